package websocket

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/wrelay/matchmaker/pkg/logger"
)

func TestEchoRoundTrip(t *testing.T) {
	log := logger.New(false)
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := NewServer(w, r, log)
		if err != nil {
			t.Errorf("upgrade fail: %v", err)
			return
		}
		ws.OnMessage = func(message []byte, _ error) { ws.Write(message) }
		ws.Listen()
		<-ws.Done
	}))
	defer s.Close()

	u, _ := url.Parse("ws" + strings.TrimPrefix(s.URL, "http"))
	client, err := NewClient(*u, log)
	if err != nil {
		t.Fatalf("dial fail: %v", err)
	}
	received := make(chan []byte, 1)
	client.OnMessage = func(message []byte, _ error) { received <- message }
	client.Listen()

	client.Write([]byte("hello"))
	select {
	case m := <-received:
		if string(m) != "hello" {
			t.Errorf("echo = %q", m)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no echo")
	}

	client.Close()
	select {
	case <-client.Done:
	case <-time.After(3 * time.Second):
		t.Fatal("the connection never finished closing")
	}

	// writes to a dead connection are silently dropped
	client.Write([]byte("after close"))
	if client.IsOpen() {
		t.Error("closed connection reports itself open")
	}
}

package matchmaker

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/wrelay/matchmaker/pkg/api"
	"github.com/wrelay/matchmaker/pkg/ice"
	"github.com/wrelay/matchmaker/pkg/logger"
)

const recvWait = 3 * time.Second
const silenceWait = 300 * time.Millisecond

// peer is a raw websocket test client with a background read pump.
type peer struct {
	t    *testing.T
	conn *websocket.Conn
	in   chan map[string]any
}

func relayServer(t *testing.T, provider ice.Provider) *httptest.Server {
	hub := NewHub(provider, logger.New(false))
	s := httptest.NewServer(http.HandlerFunc(hub.HandleConnection))
	t.Cleanup(s.Close)
	return s
}

func dial(t *testing.T, s *httptest.Server) *peer {
	u := "ws" + strings.TrimPrefix(s.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial fail: %v", err)
	}
	p := &peer{t: t, conn: conn, in: make(chan map[string]any, 64)}
	go func() {
		defer close(p.in)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var m map[string]any
			if json.Unmarshal(data, &m) == nil {
				p.in <- m
			}
		}
	}()
	t.Cleanup(func() { _ = conn.Close() })
	return p
}

func (p *peer) send(raw string) {
	if err := p.conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
		p.t.Fatalf("send fail: %v", err)
	}
}

// recvOfType waits for the next message with the given type tag,
// skipping messages of other types.
func (p *peer) recvOfType(typ string) map[string]any {
	deadline := time.After(recvWait)
	for {
		select {
		case m, ok := <-p.in:
			if !ok {
				p.t.Fatalf("connection closed while waiting for %q", typ)
			}
			if m["type"] == typ {
				return m
			}
		case <-deadline:
			p.t.Fatalf("no %q message in %v", typ, recvWait)
		}
	}
}

// expectNoneOfType asserts no message with the given type tag shows up
// within the silence window.
func (p *peer) expectNoneOfType(typ string) {
	deadline := time.After(silenceWait)
	for {
		select {
		case m, ok := <-p.in:
			if !ok {
				return
			}
			if m["type"] == typ {
				p.t.Fatalf("unexpected %q message: %v", typ, m)
			}
		case <-deadline:
			return
		}
	}
}

// join makes both peers members of the session. The receiver must have
// announced itself beforehand; the sender re-announces until its hello
// reaches the receiver, which proves the relay path is live both ways.
func join(sender, receiver *peer, key string) {
	for i := 0; i < 40; i++ {
		sender.send(`{"key":"` + key + `","type":"ready"}`)
		select {
		case m, ok := <-receiver.in:
			if !ok {
				sender.t.Fatal("receiver gone during join")
			}
			if m["type"] == api.Ready && m["key"] == key {
				return
			}
		case <-time.After(50 * time.Millisecond):
		}
	}
	sender.t.Fatalf("peers never joined session %q", key)
}

func pair(t *testing.T, s *httptest.Server, key string) (*peer, *peer) {
	a, b := dial(t, s), dial(t, s)
	b.send(`{"key":"` + key + `","type":"ready"}`)
	join(a, b, key)
	return a, b
}

func TestRelayAnnotatesIds(t *testing.T) {
	s := relayServer(t, nil)
	a, b := pair(t, s, "room1")

	a.send(`{"key":"room1","type":"answer","sdp":"x"}`)
	m := b.recvOfType(api.Answer)
	if m["sdp"] != "x" {
		t.Errorf("payload lost in relay: %v", m)
	}
	from, fromOk := m["fromClientId"].(float64)
	to, toOk := m["toClientId"].(float64)
	if !fromOk || !toOk {
		t.Fatalf("missing routing ids: %v", m)
	}
	if from == to {
		t.Errorf("sender and recipient ids must differ, both %v", from)
	}

	// the sender never hears its own message
	a.expectNoneOfType(api.Answer)
}

func TestSelfExclusionWithThreeMembers(t *testing.T) {
	s := relayServer(t, nil)
	a, b := pair(t, s, "trio")
	c := dial(t, s)
	join(c, b, "trio")

	a.send(`{"key":"trio","type":"error","reason":"test"}`)
	if m := b.recvOfType(api.Error); m["reason"] != "test" {
		t.Errorf("b got a wrong copy: %v", m)
	}
	if m := c.recvOfType(api.Error); m["reason"] != "test" {
		t.Errorf("c got a wrong copy: %v", m)
	}
	a.expectNoneOfType(api.Error)
}

func TestInvalidMessagesDropped(t *testing.T) {
	s := relayServer(t, nil)
	a, b := pair(t, s, "room1")

	// none of these may reach b and none may kill the connection
	a.send(`this is not json`)
	a.send(`{"type":"ice","candidate":"no key here"}`)
	a.send(`{"key":"","type":"ice"}`)
	a.send(`{"key":"way_too_long_key_12345","type":"ice"}`)
	a.send(`{"key":"has space","type":"ice"}`)
	a.send(`{"key":"semi;colon","type":"ice"}`)

	// inbound messages of one connection are processed in order, so the
	// sentinel arriving alone proves the above were dropped, not delayed
	a.send(`{"key":"room1","type":"sentinel"}`)
	if m := b.recvOfType("sentinel"); m["key"] != "room1" {
		t.Errorf("bad sentinel: %v", m)
	}
	b.expectNoneOfType(api.Ice)
}

func TestNoCrossTalkBetweenSessions(t *testing.T) {
	s := relayServer(t, nil)
	a1, a2 := pair(t, s, "alpha")
	b := dial(t, s)
	b.send(`{"key":"beta","type":"ready"}`)

	a1.send(`{"key":"alpha","type":"secret"}`)
	a2.recvOfType("secret")
	b.expectNoneOfType("secret")
}

func TestOfferTriggersIceServers(t *testing.T) {
	s := relayServer(t, ice.Static{{Urls: "stun:stun.test:3478"}})
	a, b := pair(t, s, "room1")

	a.send(`{"key":"room1","type":"offer","sdp":"x"}`)

	offer := b.recvOfType(api.Offer)
	if offer["sdp"] != "x" {
		t.Errorf("offer payload lost: %v", offer)
	}
	senderId, ok := offer["fromClientId"].(float64)
	if !ok {
		t.Fatalf("offer lacks fromClientId: %v", offer)
	}

	reply := a.recvOfType(api.IceServers)
	if reply["clientId"] != senderId {
		t.Errorf("iceServers clientId = %v, expected the sender id %v", reply["clientId"], senderId)
	}
	if reply["key"] != "room1" {
		t.Errorf("iceServers key = %v", reply["key"])
	}
	servers, ok := reply["iceServers"].([]any)
	if !ok || len(servers) != 1 {
		t.Fatalf("bad iceServers list: %v", reply["iceServers"])
	}
	if first, _ := servers[0].(map[string]any); first["urls"] != "stun:stun.test:3478" {
		t.Errorf("bad server entry: %v", servers[0])
	}

	// the offer is never echoed back to its sender
	a.expectNoneOfType(api.Offer)
}

func TestOfferWithoutProvider(t *testing.T) {
	s := relayServer(t, nil)
	a, b := pair(t, s, "room1")

	a.send(`{"key":"room1","type":"offer","sdp":"x"}`)
	b.recvOfType(api.Offer)
	a.expectNoneOfType(api.IceServers)
}

func TestPeerDisconnectSendsOneQuit(t *testing.T) {
	s := relayServer(t, nil)
	a, b := pair(t, s, "room2")

	_ = b.conn.Close()

	quit := a.recvOfType(api.Quit)
	if quit["key"] != "room2" {
		t.Errorf("quit key = %v, expected room2", quit["key"])
	}
	a.expectNoneOfType(api.Quit)
}

func TestQuitPerSharedSession(t *testing.T) {
	s := relayServer(t, nil)
	a, b := pair(t, s, "one")
	// the same pair meets in a second session
	a.send(`{"key":"two","type":"ready"}`)
	join(b, a, "two")

	_ = b.conn.Close()

	keys := map[any]int{}
	keys[a.recvOfType(api.Quit)["key"]]++
	keys[a.recvOfType(api.Quit)["key"]]++
	if keys["one"] != 1 || keys["two"] != 1 {
		t.Errorf("expected one quit per session, got %v", keys)
	}
	a.expectNoneOfType(api.Quit)
}

package websocket

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wrelay/matchmaker/pkg/logger"
	"github.com/wrelay/matchmaker/pkg/network"
)

const (
	maxMessageSize = 64 * 1024
	pingTime       = pongTime * 9 / 10
	pongTime       = 60 * time.Second
	writeWait      = 10 * time.Second
	sendBuffer     = 32
)

type WS struct {
	id   network.Uid
	conn deadlinedConn
	send chan []byte
	log  *logger.Logger

	// OnMessage is called for every text frame read from the connection.
	// Must be set before Listen.
	OnMessage WSMessageHandler

	pingPong bool

	mu       sync.RWMutex
	closed   bool
	shutdown sync.WaitGroup
	Done     chan struct{}
}

type WSMessageHandler func(message []byte, err error)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	WriteBufferPool: &sync.Pool{},
	// the relay is open to any origin,
	// transport security is the TLS layer's problem
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewServer upgrades an incoming HTTP request to a websocket connection.
func NewServer(w http.ResponseWriter, r *http.Request, log *logger.Logger) (*WS, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return newSocket(conn, true, log), nil
}

// NewClient dials a websocket server on the given address.
func NewClient(address url.URL, log *logger.Logger) (*WS, error) {
	conn, _, err := websocket.DefaultDialer.Dial(address.String(), nil)
	if err != nil {
		return nil, err
	}
	return newSocket(conn, false, log), nil
}

func newSocket(conn *websocket.Conn, pingPong bool, log *logger.Logger) *WS {
	id := network.NewUid()
	return &WS{
		id:       id,
		conn:     deadlinedConn{sock: conn, wt: writeWait},
		send:     make(chan []byte, sendBuffer),
		log:      log.Extend(log.With().Str("ws", id.Short())),
		pingPong: pingPong,
		Done:     make(chan struct{}),
	}
}

func (ws *WS) Id() network.Uid { return ws.id }

// IsOpen reports whether the connection still accepts writes.
func (ws *WS) IsOpen() bool {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return !ws.closed
}

// Listen starts the read and write pumps of the connection.
// The Done channel closes when both pumps have stopped.
func (ws *WS) Listen() {
	ws.shutdown.Add(2)
	go ws.reader()
	go ws.writer()
	go func() {
		ws.shutdown.Wait()
		_ = ws.conn.close()
		close(ws.Done)
	}()
}

// Write queues a message for delivery. Writes to a closed or
// congested connection are dropped, delivery is best-effort.
func (ws *WS) Write(data []byte) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	if ws.closed {
		return
	}
	select {
	case ws.send <- data:
	default:
		ws.log.Warn().Msg("send buffer overflow, message dropped")
	}
}

// Close sends the close frame and tears the connection down.
func (ws *WS) Close() {
	_ = ws.conn.write(websocket.CloseMessage, []byte{})
	_ = ws.conn.close()
}

// markClosed rejects further writes and stops the write pump.
func (ws *WS) markClosed() {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if !ws.closed {
		ws.closed = true
		close(ws.send)
	}
}

// reader pumps messages from the websocket connection to the OnMessage callback.
// Serializes all websocket reads.
func (ws *WS) reader() {
	defer func() {
		ws.markClosed()
		ws.shutdown.Done()
	}()
	ws.conn.setup(func(conn *websocket.Conn) {
		conn.SetReadLimit(maxMessageSize)
		if ws.pingPong {
			_ = conn.SetReadDeadline(time.Now().Add(pongTime))
			conn.SetPongHandler(func(string) error {
				return conn.SetReadDeadline(time.Now().Add(pongTime))
			})
		}
	})
	for {
		message, err := ws.conn.read()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				ws.log.Error().Err(err).Msg("read fail")
			}
			return
		}
		ws.OnMessage(message, nil)
	}
}

// writer pumps messages from the send channel to the websocket connection.
// Serializes all websocket writes. On a write error it closes the socket
// to unblock the read pump.
func (ws *WS) writer() {
	var ping <-chan time.Time
	if ws.pingPong {
		ticker := time.NewTicker(pingTime)
		defer ticker.Stop()
		ping = ticker.C
	}
	defer ws.shutdown.Done()
	for {
		select {
		case message, ok := <-ws.send:
			if !ok {
				_ = ws.conn.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.conn.write(websocket.TextMessage, message); err != nil {
				ws.markClosed()
				_ = ws.conn.close()
				ws.drain()
				return
			}
		case <-ping:
			if err := ws.conn.write(websocket.PingMessage, nil); err != nil {
				ws.markClosed()
				_ = ws.conn.close()
				ws.drain()
				return
			}
		}
	}
}

func (ws *WS) drain() {
	for range ws.send {
	}
}

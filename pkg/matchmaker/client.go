package matchmaker

import (
	"fmt"

	"github.com/wrelay/matchmaker/pkg/logger"
	"github.com/wrelay/matchmaker/pkg/network/websocket"
)

// Client is one accepted connection. The id is process-unique,
// assigned at accept time and never reused; it is what peers see in
// the fromClientId/toClientId annotations.
type Client struct {
	id   int64
	sock *websocket.WS
	log  *logger.Logger
}

func newClient(id int64, sock *websocket.WS, log *logger.Logger) *Client {
	return &Client{
		id:   id,
		sock: sock,
		log:  log.Extend(log.With().Int64("cid", id)),
	}
}

func (c *Client) Id() int64 { return c.id }

// IsOpen reports whether the transport still accepts writes.
func (c *Client) IsOpen() bool { return c.sock.IsOpen() }

// Send queues the frame for delivery. Best-effort: a closed or slow
// peer loses the message without an error surfacing anywhere.
func (c *Client) Send(data []byte) { c.sock.Write(data) }

// Listen runs the connection pumps until the socket dies.
func (c *Client) Listen() { c.sock.Listen() }

// Wait blocks until the connection is fully closed.
func (c *Client) Wait() { <-c.sock.Done }

func (c *Client) String() string { return fmt.Sprintf("client:%d", c.id) }

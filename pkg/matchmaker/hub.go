package matchmaker

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/wrelay/matchmaker/pkg/api"
	"github.com/wrelay/matchmaker/pkg/ice"
	"github.com/wrelay/matchmaker/pkg/logger"
	"github.com/wrelay/matchmaker/pkg/monitoring"
	"github.com/wrelay/matchmaker/pkg/network/websocket"
)

const fetchTimeout = 15 * time.Second

// Hub accepts client connections and relays session messages
// between them.
type Hub struct {
	registry *Registry
	ice      ice.Provider
	log      *logger.Logger
	counter  atomic.Int64
}

func NewHub(provider ice.Provider, log *logger.Logger) *Hub {
	return &Hub{
		registry: NewRegistry(),
		ice:      provider,
		log:      log,
	}
}

// HandleConnection upgrades an HTTP request and serves the connection
// until it closes. One goroutine per connection reads the inbound
// stream, so each sender's messages are processed in arrival order.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	sock, err := websocket.NewServer(w, r, h.log)
	if err != nil {
		h.log.Error().Err(err).Msg("connection upgrade fail")
		return
	}
	c := newClient(h.counter.Add(1), sock, h.log)
	c.log.Debug().Msg("connection accepted")
	monitoring.Connections.Inc()

	sock.OnMessage = func(message []byte, _ error) { h.handleMessage(c, message) }
	c.Listen()
	c.Wait()

	h.disconnect(c)
	monitoring.Connections.Dec()
	c.log.Debug().Msg("connection closed")
}

// handleMessage implements the relay flow for one inbound frame:
// validate, join, answer offers with ice servers, fan out to peers.
func (h *Hub) handleMessage(c *Client, message []byte) {
	m, err := api.ParseMessage(message)
	if err != nil {
		c.log.Debug().Err(err).Msg("invalid json, message dropped")
		monitoring.MessagesDropped.Inc()
		return
	}
	key, ok := m.Key()
	if !ok || !api.ValidKey(key) {
		c.log.Debug().Str("key", key).Msg("missing or invalid key, message dropped")
		monitoring.MessagesDropped.Inc()
		return
	}

	h.registry.Join(key, c)
	monitoring.Sessions.Set(float64(h.registry.SessionCount()))

	// the credential fetch and the relay below are independent,
	// neither waits for the other
	if m.Type() == api.Offer && h.ice != nil {
		go h.sendIceServers(c, key)
	}

	for _, peer := range h.registry.MembersExcluding(key, c) {
		if !peer.IsOpen() {
			continue
		}
		out, err := m.Route(c.Id(), peer.Id())
		if err != nil {
			c.log.Error().Err(err).Msg("message encode fail")
			continue
		}
		peer.Send(out)
		monitoring.MessagesRelayed.Inc()
	}
}

// sendIceServers answers an offer with a freshly fetched
// NAT-traversal server list, to the sender only. Failures are
// logged and swallowed, the call can still succeed without TURN.
func (h *Hub) sendIceServers(c *Client, key string) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()
	servers, err := h.ice.Servers(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("no ice servers for this offer")
		return
	}
	out, err := api.IceServersMessage(key, c.Id(), servers)
	if err != nil {
		c.log.Error().Err(err).Msg("iceServers encode fail")
		return
	}
	c.Send(out)
}

// disconnect removes the client from every session it joined and
// tells the remaining members their peer quit. Fire and forget: a
// peer gone in the meantime misses the notice and nobody retries.
func (h *Hub) disconnect(c *Client) {
	for _, farewell := range h.registry.Leave(c) {
		quit := api.QuitMessage(farewell.Key)
		for _, peer := range farewell.Members {
			if peer.IsOpen() {
				peer.Send(quit)
			}
		}
	}
	monitoring.Sessions.Set(float64(h.registry.SessionCount()))
}

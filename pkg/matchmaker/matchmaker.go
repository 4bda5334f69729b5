// Package matchmaker implements a signaling relay for WebRTC peers.
// Clients keep one websocket connection each and group themselves by a
// shared session key; the relay forwards their signaling payloads
// without inspecting them and never touches the media path.
package matchmaker

import (
	"context"
	"net/http"

	"github.com/wrelay/matchmaker/pkg/config"
	"github.com/wrelay/matchmaker/pkg/ice"
	"github.com/wrelay/matchmaker/pkg/logger"
	"github.com/wrelay/matchmaker/pkg/monitoring"
	"github.com/wrelay/matchmaker/pkg/network/httpx"
	"github.com/wrelay/matchmaker/pkg/service"
)

type Matchmaker struct {
	conf     config.Config
	log      *logger.Logger
	services service.Group
}

func New(conf config.Config, log *logger.Logger) *Matchmaker {
	m := &Matchmaker{conf: conf, log: log}

	provider := ice.NewProvider(conf.Ice, log)
	if provider == nil {
		log.Warn().Msg("no ice provider configured, offers get no iceServers reply")
	}
	hub := NewHub(provider, log)

	srv, err := httpx.NewServer(
		conf.Matchmaker.Server.GetAddr(),
		func(*httpx.Server) httpx.Handler {
			h := httpx.NewServeMux("")
			h.HandleFunc("/", hub.HandleConnection)
			h.HandleFunc("/healthz", func(w httpx.ResponseWriter, _ *httpx.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("ok"))
			})
			return h
		},
		httpx.WithServerConfig(conf.Matchmaker.Server),
		httpx.WithLogger(log),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("http server init fail")
	}

	m.services.Add(srv)
	m.services.AddIf(conf.Monitoring.IsEnabled(), monitoring.New(conf.Monitoring, "mm", log))
	return m
}

func (m *Matchmaker) Start() { m.services.Start() }

func (m *Matchmaker) Shutdown(ctx context.Context) error { return m.services.Shutdown(ctx) }

// Package ice resolves NAT-traversal (STUN/TURN) server lists for
// call setup. Credentials come from an external token service when one
// is configured, with a static list as the fallback.
package ice

import (
	"context"

	"github.com/wrelay/matchmaker/pkg/api"
	"github.com/wrelay/matchmaker/pkg/config"
	"github.com/wrelay/matchmaker/pkg/logger"
)

// Provider returns a fresh NAT-traversal server list.
// Called once per offer, results are not cached since TURN
// credentials have a bounded lifetime.
type Provider interface {
	Servers(ctx context.Context) ([]api.IceServer, error)
}

// Static is a fixed server list provider.
type Static []api.IceServer

func (s Static) Servers(context.Context) ([]api.IceServer, error) { return s, nil }

// fallback runs the primary provider and degrades to the backup
// list when the primary fails.
type fallback struct {
	primary Provider
	backup  Static
	log     *logger.Logger
}

func (f *fallback) Servers(ctx context.Context) ([]api.IceServer, error) {
	servers, err := f.primary.Servers(ctx)
	if err == nil {
		return servers, nil
	}
	f.log.Warn().Err(err).Msg("credential fetch failed, using the static server list")
	return f.backup.Servers(ctx)
}

func staticServers(conf config.Ice) Static {
	var servers Static
	for _, s := range conf.Servers {
		servers = append(servers, api.IceServer{Urls: s.Urls, Username: s.Username, Credential: s.Credential})
	}
	return servers
}

// NewProvider assembles a provider from the config. The result is nil
// when neither a token service nor a static list is set, in which case
// the caller skips the iceServers reply altogether.
func NewProvider(conf config.Ice, log *logger.Logger) Provider {
	static := staticServers(conf)
	if !conf.Twilio.IsConfigured() {
		if len(static) == 0 {
			return nil
		}
		return static
	}
	twilio := NewTwilio(conf.Twilio, log)
	if len(static) == 0 {
		return twilio
	}
	return &fallback{primary: twilio, backup: static, log: log}
}

package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

type (
	Config struct {
		Matchmaker Matchmaker
		Ice        Ice
		Monitoring Monitoring
		Debug      bool
	}
	Matchmaker struct {
		Server Server
	}
	Server struct {
		Address string `fig:"address" default:":3000"`
		Https   bool
		Tls     Tls
	}
	Tls struct {
		Address   string
		Domain    string
		HttpsCert string
		HttpsKey  string
	}
	Ice struct {
		Twilio Twilio
		// Servers is the static NAT-traversal server list used when no
		// credential service is configured or the fetch fails.
		// An empty list disables the iceServers reply entirely.
		Servers []IceServer
	}
	Twilio struct {
		AccountSid string
		AuthToken  string
		TokenUrl   string `fig:"tokenurl" default:"https://api.twilio.com"`
		TimeoutSec int    `fig:"timeoutsec" default:"10"`
	}
	IceServer struct {
		Urls       string `json:"urls"`
		Username   string `json:"username,omitempty"`
		Credential string `json:"credential,omitempty"`
	}
	Monitoring struct {
		Port             int    `fig:"port" default:"6601"`
		URLPrefix        string `fig:"urlprefix"`
		MetricEnabled    bool
		ProfilingEnabled bool
	}
)

func (s *Server) GetAddr() string {
	if s.Https {
		return s.Tls.Address
	}
	return s.Address
}

func (t *Twilio) IsConfigured() bool { return t.AccountSid != "" && t.AuthToken != "" }

func (m *Monitoring) IsEnabled() bool { return m.MetricEnabled || m.ProfilingEnabled }

// ParseFlags updates the config with the values from the command-line flags.
func (c *Config) ParseFlags() {
	pflag.StringVarP(&c.Matchmaker.Server.Address, "address", "a", c.Matchmaker.Server.Address, "server address")
	pflag.StringVar(&c.Matchmaker.Server.Tls.HttpsCert, "httpsCert", c.Matchmaker.Server.Tls.HttpsCert, "TLS certificate chain path")
	pflag.StringVar(&c.Matchmaker.Server.Tls.HttpsKey, "httpsKey", c.Matchmaker.Server.Tls.HttpsKey, "TLS key path")
	pflag.BoolVarP(&c.Debug, "verbose", "v", c.Debug, "verbose logging")
	pflag.Parse()
}

// NewConfig loads the config file and the env vars, and terminates
// the app on failure since there is no sane way to guess the values.
func NewConfig(path string) Config {
	var conf Config
	if err := LoadConfig(&conf, path); err != nil {
		panic(fmt.Errorf("config load has failed, %w", err))
	}
	return conf
}

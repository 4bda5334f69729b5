package ice

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/wrelay/matchmaker/pkg/api"
	"github.com/wrelay/matchmaker/pkg/config"
	"github.com/wrelay/matchmaker/pkg/logger"
)

// Twilio requests ephemeral TURN credentials from the Twilio token
// endpoint. Each call mints a new token.
type Twilio struct {
	conf   config.Twilio
	client *http.Client
	log    *logger.Logger
}

// tokenResponse is the part of the Twilio NTS token we care about.
// The "url" singular field is the legacy duplicate of "urls".
type tokenResponse struct {
	IceServers []struct {
		Url        string `json:"url"`
		Urls       string `json:"urls"`
		Username   string `json:"username"`
		Credential string `json:"credential"`
	} `json:"ice_servers"`
}

func NewTwilio(conf config.Twilio, log *logger.Logger) *Twilio {
	return &Twilio{
		conf:   conf,
		client: &http.Client{Timeout: time.Duration(conf.TimeoutSec) * time.Second},
		log:    log,
	}
}

func (t *Twilio) Servers(ctx context.Context) ([]api.IceServer, error) {
	u := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Tokens.json", t.conf.TokenUrl, t.conf.AccountSid)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(t.conf.AccountSid, t.conf.AuthToken)

	res, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode != http.StatusCreated && res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token request status %v", res.StatusCode)
	}

	var token tokenResponse
	if err := json.NewDecoder(res.Body).Decode(&token); err != nil {
		return nil, err
	}

	servers := make([]api.IceServer, 0, len(token.IceServers))
	for _, s := range token.IceServers {
		urls := s.Urls
		if urls == "" {
			urls = s.Url
		}
		if urls == "" {
			continue
		}
		servers = append(servers, api.IceServer{Urls: urls, Username: s.Username, Credential: s.Credential})
	}
	if len(servers) == 0 {
		return nil, fmt.Errorf("empty server list in the token response")
	}
	t.log.Debug().Msgf("fetched %v ice servers", len(servers))
	return servers, nil
}

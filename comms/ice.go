package comms

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/caarlos0/env/v6"
	"github.com/pion/webrtc/v2"
	"github.com/pkg/errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Used whenever no TURN credentials can be had.
var DefaultICEServers = []webrtc.ICEServer{
	{URLs: []string{"stun:stun.l.google.com:19302"}},
	{URLs: []string{"stun:stun.stunprotocol.org:3478"}},
}

// TwilioConfig comes from the environment. Without a SID and token only
// the public STUN servers are offered.
type TwilioConfig struct {
	SID     string        `env:"TWILIO_SID"`
	Token   string        `env:"TWILIO_TOKEN"`
	TTL     int           `env:"TWILIO_TTL" envDefault:"21600"`
	API     string        `env:"TWILIO_API" envDefault:"https://api.twilio.com/2010-04-01"`
	Timeout time.Duration `env:"TWILIO_TIMEOUT" envDefault:"5s"`
}

func (c TwilioConfig) Enabled() bool {
	return c.SID != "" && c.Token != ""
}

type twilioTokens struct {
	IceServers []struct {
		URL        string `json:"url"`
		URLs       string `json:"urls"`
		Username   string `json:"username"`
		Credential string `json:"credential"`
	} `json:"ice_servers"`
}

// FetchTwilio asks Twilio's token endpoint for a set of TURN servers.
func FetchTwilio(ctx context.Context, cfg TwilioConfig) (servers []webrtc.ICEServer, err error) {
	u := fmt.Sprintf("%s/Accounts/%s/Tokens.json", strings.TrimRight(cfg.API, "/"), cfg.SID)
	form := url.Values{}
	form.Add("Ttl", strconv.Itoa(cfg.TTL))

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "POST", u, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "unable to generate request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(cfg.SID, cfg.Token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "unable to get response")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, errors.Errorf("twilio server returned status code %d", resp.StatusCode)
	}

	var tokens twilioTokens
	if err = json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, errors.Wrap(err, "unable to read JSON response")
	}
	if len(tokens.IceServers) == 0 {
		return nil, errors.New("response did not contain any ice servers")
	}

	for _, ices := range tokens.IceServers {
		server := webrtc.ICEServer{URLs: []string{ices.URL}}
		if ices.URLs != "" {
			server.URLs = []string{ices.URLs}
		}
		if ices.Username != "" {
			server.Username = ices.Username
			server.Credential = ices.Credential
			server.CredentialType = webrtc.ICECredentialTypePassword
		}
		servers = append(servers, server)
	}
	return
}

// ICEServers reads the Twilio settings from the environment and falls back
// to the public STUN servers on any failure.
func ICEServers(ctx context.Context) []webrtc.ICEServer {
	var cfg TwilioConfig
	if err := env.Parse(&cfg); err != nil {
		log.WithError(err).Warn("unable to parse twilio environment")
		return DefaultICEServers
	}
	if !cfg.Enabled() {
		return DefaultICEServers
	}

	servers, err := FetchTwilio(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("falling back to public stun servers")
		return DefaultICEServers
	}
	log.WithField("servers", len(servers)).Info("using twilio ice servers")
	return servers
}

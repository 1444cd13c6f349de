package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lessonbook/internal/config"

	"github.com/rs/zerolog"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// TwilioGateway sends SMS through Twilio's Messages REST resource. The
// request carries a messaging service SID, so Twilio picks the sender
// number. Success is a 2xx response; everything else is a failed delivery.
type TwilioGateway struct {
	accountSID   string
	messagingSID string
	apiKey       string
	baseURL      string
	client       *http.Client
	logger       *zerolog.Logger
}

func NewTwilioGateway(cfg config.TwilioConfig, timeout time.Duration, logger *zerolog.Logger) *TwilioGateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TwilioGateway{
		accountSID:   cfg.AccountSID,
		messagingSID: cfg.MessagingSID,
		apiKey:       cfg.APIKey,
		baseURL:      twilioAPIBase,
		client:       &http.Client{Timeout: timeout},
		logger:       logger,
	}
}

func (g *TwilioGateway) Send(ctx context.Context, body, toPhone string) bool {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", g.baseURL, g.accountSID)

	form := url.Values{}
	form.Set("To", toPhone)
	form.Set("Body", body)
	form.Set("MessagingServiceSid", g.messagingSID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		g.logger.Error().Err(err).Msg("twilio: build request failed")
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(g.accountSID, g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Error().Err(err).Msg("twilio: request failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		g.logger.Error().Int("status", resp.StatusCode).Msg("twilio: send rejected")
		return false
	}
	return true
}

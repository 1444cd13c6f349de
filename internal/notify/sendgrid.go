package notify

import (
	"context"
	"net/http"

	"lessonbook/internal/config"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendgridGateway delivers HTML email through SendGrid's v3 mail API.
type SendgridGateway struct {
	apiKey string
	from   *sgmail.Email
	logger *zerolog.Logger
}

func NewSendgridGateway(cfg config.SendgridConfig, appName string, logger *zerolog.Logger) *SendgridGateway {
	return &SendgridGateway{
		apiKey: cfg.APIKey,
		from:   sgmail.NewEmail(appName, cfg.FromEmail),
		logger: logger,
	}
}

func (g *SendgridGateway) Send(ctx context.Context, toAddress, subject, htmlBody string) bool {
	to := sgmail.NewEmail("", toAddress)
	message := sgmail.NewSingleEmail(g.from, subject, to, htmlBody, htmlBody)

	client := sendgrid.NewSendClient(g.apiKey)
	resp, err := client.SendWithContext(ctx, message)
	if err != nil {
		g.logger.Error().Err(err).Msg("sendgrid: request failed")
		return false
	}
	if resp.StatusCode >= http.StatusBadRequest {
		g.logger.Error().Int("status", resp.StatusCode).Str("body", resp.Body).Msg("sendgrid: send rejected")
		return false
	}
	return true
}

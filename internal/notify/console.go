package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// Console gateways stand in for Twilio/SendGrid in development and tests.
// They log the outbound message and always report success.

type ConsoleSMSGateway struct {
	logger *zerolog.Logger
}

func NewConsoleSMSGateway(logger *zerolog.Logger) *ConsoleSMSGateway {
	return &ConsoleSMSGateway{logger: logger}
}

func (g *ConsoleSMSGateway) Send(ctx context.Context, body, toPhone string) bool {
	g.logger.Info().Str("to", toPhone).Str("body", body).Msg("console sms")
	return true
}

type ConsoleEmailGateway struct {
	logger *zerolog.Logger
}

func NewConsoleEmailGateway(logger *zerolog.Logger) *ConsoleEmailGateway {
	return &ConsoleEmailGateway{logger: logger}
}

func (g *ConsoleEmailGateway) Send(ctx context.Context, toAddress, subject, htmlBody string) bool {
	g.logger.Info().Str("to", toAddress).Str("subject", subject).Str("body", htmlBody).Msg("console email")
	return true
}

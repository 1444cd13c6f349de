package notify

import (
	"context"
	"time"

	"lessonbook/internal/domain"
	"lessonbook/internal/metrics"
	"lessonbook/internal/models"

	"github.com/rs/zerolog"
)

// NotificationDispatcher routes one message to a recipient's preferred
// channels. Channel failures are logged and counted, never surfaced; a
// recipient with no usable address is a logged no-op.
type NotificationDispatcher struct {
	sms     domain.SMSGateway
	email   domain.EmailGateway
	timeout time.Duration
	logger  *zerolog.Logger
}

func NewDispatcher(sms domain.SMSGateway, email domain.EmailGateway, timeout time.Duration, logger *zerolog.Logger) *NotificationDispatcher {
	if timeout <= 0 {
		timeout = models.DefaultGatewayTimeout
	}
	return &NotificationDispatcher{
		sms:     sms,
		email:   email,
		timeout: timeout,
		logger:  logger,
	}
}

func (d *NotificationDispatcher) Dispatch(ctx context.Context, recipient *models.User, message, subject string) {
	if recipient == nil {
		return
	}

	wantText := false
	wantEmail := false
	switch recipient.Preference() {
	case models.ContactEmail:
		wantEmail = true
	case models.ContactBoth:
		wantText = true
		wantEmail = true
	default:
		wantText = true
	}

	delivered := false
	if wantText {
		delivered = d.sendText(ctx, recipient, message) || delivered
	}
	if wantEmail {
		delivered = d.sendEmail(ctx, recipient, message, subject) || delivered
	}

	if !delivered {
		d.logger.Warn().
			Str("user_id", recipient.ID).
			Str("preference", recipient.Preference()).
			Msg("notification not delivered on any channel")
	}
}

func (d *NotificationDispatcher) sendText(ctx context.Context, recipient *models.User, message string) bool {
	if recipient.Phone == "" {
		d.logger.Warn().Str("user_id", recipient.ID).Msg("text preferred but no phone number on file")
		return false
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if !d.sms.Send(callCtx, message, recipient.Phone) {
		metrics.IncDeliveryFailure("text")
		d.logger.Error().Str("user_id", recipient.ID).Msg("text delivery failed")
		return false
	}
	metrics.IncDelivery("text")
	return true
}

func (d *NotificationDispatcher) sendEmail(ctx context.Context, recipient *models.User, message, subject string) bool {
	if recipient.Email == "" {
		d.logger.Warn().Str("user_id", recipient.ID).Msg("email preferred but no address on file")
		return false
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if !d.email.Send(callCtx, recipient.Email, subject, message) {
		metrics.IncDeliveryFailure("email")
		d.logger.Error().Str("user_id", recipient.ID).Msg("email delivery failed")
		return false
	}
	metrics.IncDelivery("email")
	return true
}

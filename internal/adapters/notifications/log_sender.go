package notifications

import (
	"context"

	"github.com/quietroom/therapy-booking/backend/internal/domain/entities"
	"github.com/quietroom/therapy-booking/backend/internal/domain/providers"
	"github.com/quietroom/therapy-booking/backend/internal/infrastructure/observability"
)

// LogSender implements NotificationSender by logging the delivery instead of
// sending it. Real email/SMS delivery lives in a separate service; this
// keeps the booking flow complete until that integration is wired.
type LogSender struct{}

// NewLogSender creates a logging notification sender
func NewLogSender() providers.NotificationSender {
	return &LogSender{}
}

// SendBookingConfirmation logs a booking confirmation
func (s *LogSender) SendBookingConfirmation(ctx context.Context, appointment *entities.Appointment, practitioner *entities.Practitioner) error {
	observability.LoggerFromContext(ctx).Info().
		Str("appointment_id", appointment.ID).
		Str("practitioner_id", practitioner.ID).
		Str("client_email", appointment.ClientEmail).
		Time("scheduled_at", appointment.ScheduledAt).
		Msg("booking confirmation queued")
	return nil
}

// SendCancellationNotice logs a cancellation notice
func (s *LogSender) SendCancellationNotice(ctx context.Context, appointment *entities.Appointment, practitioner *entities.Practitioner) error {
	observability.LoggerFromContext(ctx).Info().
		Str("appointment_id", appointment.ID).
		Str("practitioner_id", practitioner.ID).
		Str("client_email", appointment.ClientEmail).
		Msg("cancellation notice queued")
	return nil
}

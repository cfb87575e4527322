package providers

import (
	"context"

	"github.com/quietroom/therapy-booking/backend/internal/domain/entities"
)

// CalendarEventsChannel is the pub/sub channel calendar change events ride on
const CalendarEventsChannel = "calendar-events"

// EventBus broadcasts calendar change events across service instances
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.CalendarEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.CalendarEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// NotificationSender delivers booking emails/SMS. Template rendering and
// delivery live outside this service; only the interface is consumed here.
type NotificationSender interface {
	SendBookingConfirmation(ctx context.Context, appointment *entities.Appointment, practitioner *entities.Practitioner) error
	SendCancellationNotice(ctx context.Context, appointment *entities.Appointment, practitioner *entities.Practitioner) error
}

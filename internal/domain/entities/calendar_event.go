package entities

import (
	"time"
)

// CalendarEventType identifies a calendar change broadcast on the event bus
type CalendarEventType string

const (
	// CalendarEventInvalidated is published when a provider push notification
	// reports a change; every instance drops its cached busy data.
	CalendarEventInvalidated CalendarEventType = "calendar.invalidated"

	// CalendarEventRemoved is published on calendar teardown.
	CalendarEventRemoved CalendarEventType = "calendar.removed"
)

// CalendarEvent is the payload carried on the invalidation bus
type CalendarEvent struct {
	ID         string            `json:"id"`
	Type       CalendarEventType `json:"type"`
	CalendarID string            `json:"calendar_id"`
	OccurredAt time.Time         `json:"occurred_at"`
}

package entities

import (
	"time"
)

// BusyInterval is one opaque busy window returned by a free/busy query.
// Intervals are half-open: [Start, End).
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label,omitempty"`
}

// Overlaps reports whether the interval overlaps [start, end) under
// half-open semantics. Back-to-back intervals sharing a boundary do not
// overlap.
func (b BusyInterval) Overlaps(start, end time.Time) bool {
	return b.Start.Before(end) && b.End.After(start)
}

// EventSpec describes a calendar event to create or update
type EventSpec struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Attendees   []string  `json:"attendees,omitempty"`
}

// AvailabilityRequest asks whether a practitioner is free in a window
type AvailabilityRequest struct {
	PractitionerID string    `json:"practitioner_id"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
}

// AvailabilityResponse answers an AvailabilityRequest. Conflicts is only
// populated when Available is false; Error captures per-request failures
// inside a batch without aborting it.
type AvailabilityResponse struct {
	PractitionerID string         `json:"practitioner_id"`
	Available      bool           `json:"available"`
	Conflicts      []BusyInterval `json:"conflicts,omitempty"`
	Error          string         `json:"error,omitempty"`
}

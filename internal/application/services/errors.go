package services

import (
	"errors"
	"fmt"

	"github.com/quietroom/therapy-booking/backend/internal/domain/entities"
)

// ConflictError is returned when an event cannot be created because the
// requested window overlaps existing busy time. It is terminal: the caller
// decides whether to surface the conflicts or pick another slot, the engine
// never retries it.
type ConflictError struct {
	CalendarID string
	Conflicts  []entities.BusyInterval
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return fmt.Sprintf("calendar %s: requested window overlaps %d busy interval(s)", e.CalendarID, len(e.Conflicts))
}

// AsConflict extracts a ConflictError from an error chain
func AsConflict(err error) (*ConflictError, bool) {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return conflict, true
	}
	return nil, false
}

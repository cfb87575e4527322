package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/quietroom/therapy-booking/backend/internal/domain/entities"
)

// ProviderCalendar is the provider-side representation of a calendar
type ProviderCalendar struct {
	ID       string `json:"id"`
	Summary  string `json:"summary"`
	TimeZone string `json:"time_zone"`
}

// AclEntry is one access grant on a provider calendar
type AclEntry struct {
	Email string           `json:"email"`
	Role  entities.AclRole `json:"role"`
}

// ChannelSpec describes the push-notification subscription to open
type ChannelSpec struct {
	ID      string
	Address string
	Token   string
	TTL     time.Duration
}

// WatchResult is the provider's answer to a watch request
type WatchResult struct {
	ChannelID  string
	ResourceID string
	ExpiresAt  time.Time
}

// ChangeSet is the result of an incremental (sync-token) pull
type ChangeSet struct {
	ChangedEventIDs []string
	NextSyncToken   string
}

// CalendarProvider is the capability interface over the external calendar
// service. Any conforming implementation is substitutable; business logic
// never touches provider SDK types directly.
type CalendarProvider interface {
	CreateCalendar(ctx context.Context, summary, timeZone string) (*ProviderCalendar, error)
	GetCalendar(ctx context.Context, calendarID string) (*ProviderCalendar, error)
	DeleteCalendar(ctx context.Context, calendarID string) error

	ListAcl(ctx context.Context, calendarID string) ([]AclEntry, error)
	InsertAcl(ctx context.Context, calendarID string, entry AclEntry) error

	QueryFreeBusy(ctx context.Context, calendarID string, start, end time.Time) ([]entities.BusyInterval, error)

	GetEvent(ctx context.Context, calendarID, eventID string) (*entities.EventSpec, error)
	InsertEvent(ctx context.Context, calendarID string, spec entities.EventSpec) (string, error)
	UpdateEvent(ctx context.Context, calendarID, eventID string, spec entities.EventSpec) error
	DeleteEvent(ctx context.Context, calendarID, eventID string) error

	WatchEvents(ctx context.Context, calendarID string, spec ChannelSpec) (*WatchResult, error)
	StopChannel(ctx context.Context, channelID, resourceID string) error

	ListChanges(ctx context.Context, calendarID, syncToken string) (*ChangeSet, error)
}

// ProviderError carries the HTTP-like status code of a failed provider call
type ProviderError struct {
	Op         string
	StatusCode int
	Err        error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("calendar provider: %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("calendar provider: %s: status %d", e.Op, e.StatusCode)
}

// Unwrap implements the unwrap interface
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a provider 404. Delete-style operations
// treat it as success.
func IsNotFound(err error) bool {
	var perr *ProviderError
	return errors.As(err, &perr) && perr.StatusCode == http.StatusNotFound
}

// IsRateLimited reports whether the provider rejected the call for quota
func IsRateLimited(err error) bool {
	var perr *ProviderError
	return errors.As(err, &perr) && perr.StatusCode == http.StatusTooManyRequests
}

// transientMarkers are transport error strings the provider surfaces for
// failures that resolve on their own.
var transientMarkers = []string{
	"timeout",
	"deadline exceeded",
	"connection reset",
	"connection refused",
	"backend error",
	"service unavailable",
	"temporarily unavailable",
}

// IsRetryable classifies an error for the retry executor: rate limits,
// 5xx responses and transient transport failures are retryable, everything
// else is terminal on first occurrence.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var perr *ProviderError
	if errors.As(err, &perr) {
		if perr.StatusCode == http.StatusTooManyRequests {
			return true
		}
		if perr.StatusCode >= 500 {
			return true
		}
		if perr.StatusCode > 0 {
			return false
		}
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

package providers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil error", nil, false},
		{"rate limited", &ProviderError{Op: "freebusy.query", StatusCode: http.StatusTooManyRequests}, true},
		{"internal server error", &ProviderError{Op: "events.insert", StatusCode: http.StatusInternalServerError}, true},
		{"bad gateway", &ProviderError{Op: "events.insert", StatusCode: http.StatusBadGateway}, true},
		{"not found", &ProviderError{Op: "events.get", StatusCode: http.StatusNotFound}, false},
		{"forbidden", &ProviderError{Op: "acl.insert", StatusCode: http.StatusForbidden}, false},
		{"bad request", &ProviderError{Op: "calendars.insert", StatusCode: http.StatusBadRequest}, false},
		{"timeout transport error", &ProviderError{Op: "freebusy.query", Err: errors.New("dial tcp: i/o timeout")}, true},
		{"deadline exceeded", fmt.Errorf("query: %w", errors.New("context deadline exceeded")), true},
		{"connection reset", errors.New("read: connection reset by peer"), true},
		{"backend error string", errors.New("backend error"), true},
		{"plain validation error", errors.New("summary is required"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}

func TestIsNotFound(t *testing.T) {
	notFound := &ProviderError{Op: "events.delete", StatusCode: http.StatusNotFound}

	assert.True(t, IsNotFound(notFound))
	assert.True(t, IsNotFound(fmt.Errorf("delete: %w", notFound)))
	assert.False(t, IsNotFound(&ProviderError{Op: "events.delete", StatusCode: http.StatusInternalServerError}))
	assert.False(t, IsNotFound(errors.New("not found"))) // untyped string is not a provider 404
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, IsRateLimited(&ProviderError{StatusCode: http.StatusTooManyRequests}))
	assert.False(t, IsRateLimited(&ProviderError{StatusCode: http.StatusInternalServerError}))
	assert.False(t, IsRateLimited(nil))
}

func TestBusyKey(t *testing.T) {
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	key := BusyKey("cal-1", start, end)
	assert.Equal(t, fmt.Sprintf("busy:cal-1:%d:%d", start.Unix(), end.Unix()), key)
	assert.Contains(t, key, BusyKeyPrefix("cal-1"))

	// Same calendar, different window: distinct keys under one prefix.
	other := BusyKey("cal-1", start.Add(time.Hour), end.Add(time.Hour))
	assert.NotEqual(t, key, other)
	assert.Contains(t, other, BusyKeyPrefix("cal-1"))
}

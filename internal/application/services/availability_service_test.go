package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/quietroom/therapy-booking/backend/internal/domain/entities"
	"github.com/quietroom/therapy-booking/backend/internal/domain/providers"
	"github.com/quietroom/therapy-booking/backend/internal/infrastructure/observability"
	"github.com/quietroom/therapy-booking/backend/pkg/config"
	apperrors "github.com/quietroom/therapy-booking/backend/pkg/errors"
)

func testCalendarConfig() *config.CalendarConfig {
	return &config.CalendarConfig{
		OwnerEmail:      "calendars@quietroom.health",
		NotificationURL: "https://api.quietroom.health/webhooks/calendar",
		ChannelToken:    "shared-secret",
		FreeBusyTTL:     5 * time.Minute,
		BatchSize:       100,
		ChannelTTL:      7 * 24 * time.Hour,
		RenewalMargin:   6 * time.Hour,
	}
}

func testRetryConfig() *config.RetryConfig {
	return &config.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Jitter:       false,
	}
}

type availabilityFixture struct {
	provider  *MockCalendarProvider
	cache     *MockBusyCache
	directory *MockCalendarDirectory
	service   *AvailabilityService
}

func newAvailabilityFixture() *availabilityFixture {
	f := &availabilityFixture{
		provider:  new(MockCalendarProvider),
		cache:     new(MockBusyCache),
		directory: new(MockCalendarDirectory),
	}
	f.service = NewAvailabilityService(
		f.provider, f.cache, f.directory,
		observability.NewEngineMetrics(), nil,
		testCalendarConfig(), testRetryConfig(),
	)
	return f
}

func window() (time.Time, time.Time) {
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	return start, start.Add(time.Hour)
}

func TestAvailabilityService_ListBusy_CacheHit(t *testing.T) {
	ctx := context.Background()
	f := newAvailabilityFixture()
	start, end := window()
	cached := []entities.BusyInterval{{Start: start, End: start.Add(30 * time.Minute)}}

	key := providers.BusyKey("cal-1", start, end)
	f.cache.On("Get", ctx, key).Return(cached, true)

	got, err := f.service.ListBusy(ctx, "cal-1", start, end)

	assert.NoError(t, err)
	assert.Equal(t, cached, got)
	f.provider.AssertNotCalled(t, "QueryFreeBusy", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAvailabilityService_ListBusy_CacheMissQueriesAndCaches(t *testing.T) {
	ctx := context.Background()
	f := newAvailabilityFixture()
	start, end := window()
	busy := []entities.BusyInterval{{Start: start, End: end}}

	key := providers.BusyKey("cal-1", start, end)
	f.cache.On("Get", ctx, key).Return(nil, false)
	f.provider.On("QueryFreeBusy", ctx, "cal-1", start, end).Return(busy, nil).Once()
	f.cache.On("Set", ctx, key, busy, 5*time.Minute).Return()

	got, err := f.service.ListBusy(ctx, "cal-1", start, end)

	assert.NoError(t, err)
	assert.Equal(t, busy, got)
	f.cache.AssertExpectations(t)
	f.provider.AssertExpectations(t)
}

func TestAvailabilityService_ListBusy_RetriesTransientFailure(t *testing.T) {
	ctx := context.Background()
	f := newAvailabilityFixture()
	start, end := window()
	busy := []entities.BusyInterval{}

	key := providers.BusyKey("cal-1", start, end)
	transient := &providers.ProviderError{Op: "freebusy.query", StatusCode: http.StatusServiceUnavailable}
	f.cache.On("Get", ctx, key).Return(nil, false)
	f.provider.On("QueryFreeBusy", ctx, "cal-1", start, end).Return(nil, transient).Twice()
	f.provider.On("QueryFreeBusy", ctx, "cal-1", start, end).Return(busy, nil).Once()
	f.cache.On("Set", ctx, key, busy, 5*time.Minute).Return()

	got, err := f.service.ListBusy(ctx, "cal-1", start, end)

	assert.NoError(t, err)
	assert.Equal(t, busy, got)
	f.provider.AssertNumberOfCalls(t, "QueryFreeBusy", 3)
}

func TestAvailabilityService_ListBusy_TerminalErrorNotRetried(t *testing.T) {
	ctx := context.Background()
	f := newAvailabilityFixture()
	start, end := window()

	key := providers.BusyKey("cal-1", start, end)
	forbidden := &providers.ProviderError{Op: "freebusy.query", StatusCode: http.StatusForbidden}
	f.cache.On("Get", ctx, key).Return(nil, false)
	f.provider.On("QueryFreeBusy", ctx, "cal-1", start, end).Return(nil, forbidden)

	got, err := f.service.ListBusy(ctx, "cal-1", start, end)

	// Degraded read: the window is reported free rather than failing the caller.
	assert.NoError(t, err)
	assert.Empty(t, got)
	f.provider.AssertNumberOfCalls(t, "QueryFreeBusy", 1)
	f.cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAvailabilityService_ListBusy_InvalidWindow(t *testing.T) {
	ctx := context.Background()
	f := newAvailabilityFixture()
	start, _ := window()

	_, err := f.service.ListBusy(ctx, "cal-1", start, start)

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestAvailabilityService_Recheck_StrictOnProviderFailure(t *testing.T) {
	ctx := context.Background()
	f := newAvailabilityFixture()
	start, end := window()

	key := providers.BusyKey("cal-1", start, end)
	f.cache.On("Invalidate", ctx, "cal-1").Return()
	f.cache.On("Get", ctx, key).Return(nil, false)
	f.provider.On("QueryFreeBusy", ctx, "cal-1", start, end).
		Return(nil, errors.New("dial tcp: i/o timeout"))

	_, err := f.service.Recheck(ctx, "cal-1", start, end)

	// The recheck never degrades to "assume free".
	assert.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
	f.cache.AssertCalled(t, "Invalidate", ctx, "cal-1")
}

func TestAvailabilityService_Recheck_QuotaError(t *testing.T) {
	ctx := context.Background()
	f := newAvailabilityFixture()
	start, end := window()

	key := providers.BusyKey("cal-1", start, end)
	rateLimited := &providers.ProviderError{Op: "freebusy.query", StatusCode: http.StatusTooManyRequests}
	f.cache.On("Invalidate", ctx, "cal-1").Return()
	f.cache.On("Get", ctx, key).Return(nil, false)
	f.provider.On("QueryFreeBusy", ctx, "cal-1", start, end).Return(nil, rateLimited)

	_, err := f.service.Recheck(ctx, "cal-1", start, end)

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeQuota))
	// Rate limits are retried before giving up.
	f.provider.AssertNumberOfCalls(t, "QueryFreeBusy", 3)
}

func TestAvailabilityService_FindConflicts_FiltersToOverlapping(t *testing.T) {
	ctx := context.Background()
	f := newAvailabilityFixture()
	start, end := window()
	busy := []entities.BusyInterval{
		{Start: start.Add(-2 * time.Hour), End: start.Add(-time.Hour)}, // disjoint
		{Start: start.Add(30 * time.Minute), End: end.Add(time.Hour)},  // overlaps
		{Start: end, End: end.Add(time.Hour)},                          // back-to-back
	}

	key := providers.BusyKey("cal-1", start, end)
	f.cache.On("Get", ctx, key).Return(busy, true)

	conflicts, err := f.service.FindConflicts(ctx, "cal-1", start, end)

	assert.NoError(t, err)
	assert.Equal(t, []entities.BusyInterval{busy[1]}, conflicts)
}

func TestAvailabilityService_CheckAvailability(t *testing.T) {
	ctx := context.Background()
	start, end := window()

	t.Run("available", func(t *testing.T) {
		f := newAvailabilityFixture()
		cal := &entities.ManagedCalendar{CalendarID: "cal-1", PractitionerID: "prac-1"}
		f.directory.On("GetActiveByPractitioner", ctx, "prac-1").Return(cal, nil)
		f.cache.On("Get", ctx, providers.BusyKey("cal-1", start, end)).
			Return([]entities.BusyInterval{}, true)

		resp := f.service.CheckAvailability(ctx, entities.AvailabilityRequest{
			PractitionerID: "prac-1", Start: start, End: end,
		})

		assert.True(t, resp.Available)
		assert.Empty(t, resp.Conflicts)
		assert.Empty(t, resp.Error)
	})

	t.Run("conflict", func(t *testing.T) {
		f := newAvailabilityFixture()
		cal := &entities.ManagedCalendar{CalendarID: "cal-1", PractitionerID: "prac-1"}
		busy := []entities.BusyInterval{{Start: start, End: end}}
		f.directory.On("GetActiveByPractitioner", ctx, "prac-1").Return(cal, nil)
		f.cache.On("Get", ctx, providers.BusyKey("cal-1", start, end)).Return(busy, true)

		resp := f.service.CheckAvailability(ctx, entities.AvailabilityRequest{
			PractitionerID: "prac-1", Start: start, End: end,
		})

		assert.False(t, resp.Available)
		assert.Equal(t, busy, resp.Conflicts)
	})

	t.Run("no active calendar", func(t *testing.T) {
		f := newAvailabilityFixture()
		f.directory.On("GetActiveByPractitioner", ctx, "prac-1").
			Return(nil, apperrors.NewNotFoundError("no active calendar"))

		resp := f.service.CheckAvailability(ctx, entities.AvailabilityRequest{
			PractitionerID: "prac-1", Start: start, End: end,
		})

		assert.False(t, resp.Available)
		assert.Equal(t, "practitioner has no active calendar", resp.Error)
	})

	t.Run("inverted window", func(t *testing.T) {
		f := newAvailabilityFixture()

		resp := f.service.CheckAvailability(ctx, entities.AvailabilityRequest{
			PractitionerID: "prac-1", Start: end, End: start,
		})

		assert.False(t, resp.Available)
		assert.NotEmpty(t, resp.Error)
		f.directory.AssertNotCalled(t, "GetActiveByPractitioner", mock.Anything, mock.Anything)
	})
}

package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/quietroom/therapy-booking/backend/internal/domain/entities"
	"github.com/quietroom/therapy-booking/backend/internal/domain/providers"
	"github.com/quietroom/therapy-booking/backend/internal/infrastructure/observability"
	"github.com/quietroom/therapy-booking/backend/pkg/config"
	apperrors "github.com/quietroom/therapy-booking/backend/pkg/errors"
	"github.com/quietroom/therapy-booking/backend/pkg/retry"
)

// EventPatch carries the fields of an event update. Nil fields are left as
// the provider currently has them.
type EventPatch struct {
	Summary     *string    `json:"summary,omitempty"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	Start       *time.Time `json:"start,omitempty"`
	End         *time.Time `json:"end,omitempty"`
	Attendees   []string   `json:"attendees,omitempty"`
}

// EventService writes events to managed calendars. Creation rechecks the
// window against a fresh provider read so a conflict that slipped in
// between the availability check and the write is caught before the double
// booking lands.
type EventService struct {
	provider     providers.CalendarProvider
	cache        providers.BusyCache
	availability *AvailabilityService
	bus          providers.EventBus
	metrics      *observability.EngineMetrics
	otelMetrics  *observability.Metrics
	retryCfg     retry.Config
}

// NewEventService creates a new calendar event service
func NewEventService(
	provider providers.CalendarProvider,
	cache providers.BusyCache,
	availability *AvailabilityService,
	bus providers.EventBus,
	metrics *observability.EngineMetrics,
	otelMetrics *observability.Metrics,
	retryCfg *config.RetryConfig,
) *EventService {
	return &EventService{
		provider:     provider,
		cache:        cache,
		availability: availability,
		bus:          bus,
		metrics:      metrics,
		otelMetrics:  otelMetrics,
		retryCfg:     providerRetryConfig(retryCfg),
	}
}

// CreateEvent creates an event after confirming the window is still free.
// The recheck bypasses the cache; if the provider cannot confirm
// availability the event is not created. On overlap a ConflictError carrying
// the busy intervals is returned and never retried.
func (s *EventService) CreateEvent(ctx context.Context, calendarID string, spec entities.EventSpec) (string, error) {
	if !spec.Start.Before(spec.End) {
		return "", apperrors.NewValidationError("event start must precede end")
	}

	conflicts, err := s.availability.Recheck(ctx, calendarID, spec.Start, spec.End)
	if err != nil {
		return "", apperrors.NewExternalError("availability could not be confirmed, event not created", err)
	}
	if len(conflicts) > 0 {
		s.metrics.RecordConflict()
		observability.RecordConflict(ctx, s.otelMetrics, calendarID)
		return "", &ConflictError{CalendarID: calendarID, Conflicts: conflicts}
	}

	var eventID string
	err = retryProvider(ctx, s.retryCfg, "events.insert", func() error {
		var ierr error
		eventID, ierr = s.provider.InsertEvent(ctx, calendarID, spec)
		return ierr
	})
	if err != nil {
		return "", apperrors.NewExternalError("failed to create event", err)
	}

	s.metrics.RecordEventCreated()
	s.afterWrite(ctx, calendarID)

	observability.LoggerFromContext(ctx).Info().
		Str("calendar_id", calendarID).
		Str("event_id", eventID).
		Time("start", spec.Start).
		Time("end", spec.End).
		Msg("created calendar event")

	return eventID, nil
}

// UpdateEvent applies a partial update. The current event is fetched first
// and the patch merged onto it, so omitted fields survive the write. A move
// to a new window is rechecked for conflicts, ignoring the busy block the
// event itself occupies.
func (s *EventService) UpdateEvent(ctx context.Context, calendarID, eventID string, patch EventPatch) error {
	var current *entities.EventSpec
	err := retryProvider(ctx, s.retryCfg, "events.get", func() error {
		var gerr error
		current, gerr = s.provider.GetEvent(ctx, calendarID, eventID)
		return gerr
	})
	if err != nil {
		if providers.IsNotFound(err) {
			return apperrors.NewNotFoundError("event not found")
		}
		return apperrors.NewExternalError("failed to load event for update", err)
	}

	previous := *current
	merged := mergePatch(*current, patch)
	if !merged.Start.Before(merged.End) {
		return apperrors.NewValidationError("event start must precede end")
	}

	moved := !merged.Start.Equal(previous.Start) || !merged.End.Equal(previous.End)
	if moved {
		conflicts, err := s.availability.Recheck(ctx, calendarID, merged.Start, merged.End)
		if err != nil {
			return apperrors.NewExternalError("availability could not be confirmed, event not updated", err)
		}
		conflicts = excludeInterval(conflicts, previous.Start, previous.End)
		if len(conflicts) > 0 {
			s.metrics.RecordConflict()
			observability.RecordConflict(ctx, s.otelMetrics, calendarID)
			return &ConflictError{CalendarID: calendarID, Conflicts: conflicts}
		}
	}

	err = retryProvider(ctx, s.retryCfg, "events.update", func() error {
		return s.provider.UpdateEvent(ctx, calendarID, eventID, merged)
	})
	if err != nil {
		return apperrors.NewExternalError("failed to update event", err)
	}

	s.afterWrite(ctx, calendarID)
	return nil
}

// DeleteEvent deletes an event. An event the provider no longer has counts
// as deleted.
func (s *EventService) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	err := retryProvider(ctx, s.retryCfg, "events.delete", func() error {
		return s.provider.DeleteEvent(ctx, calendarID, eventID)
	})
	if err != nil && !providers.IsNotFound(err) {
		return apperrors.NewExternalError("failed to delete event", err)
	}

	s.afterWrite(ctx, calendarID)
	return nil
}

// afterWrite drops the calendar's cached busy data and tells every other
// instance to do the same. Bus failures are logged, not surfaced: local
// consistency is already restored and remote caches age out on TTL.
func (s *EventService) afterWrite(ctx context.Context, calendarID string) {
	s.cache.Invalidate(ctx, calendarID)

	if s.bus == nil {
		return
	}
	event := &entities.CalendarEvent{
		ID:         uuid.New().String(),
		Type:       entities.CalendarEventInvalidated,
		CalendarID: calendarID,
		OccurredAt: time.Now(),
	}
	if err := s.bus.Publish(ctx, providers.CalendarEventsChannel, event); err != nil {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("calendar_id", calendarID).
			Msg("failed to broadcast cache invalidation")
	}
}

func mergePatch(current entities.EventSpec, patch EventPatch) entities.EventSpec {
	if patch.Summary != nil {
		current.Summary = *patch.Summary
	}
	if patch.Description != nil {
		current.Description = *patch.Description
	}
	if patch.Location != nil {
		current.Location = *patch.Location
	}
	if patch.Start != nil {
		current.Start = *patch.Start
	}
	if patch.End != nil {
		current.End = *patch.End
	}
	if patch.Attendees != nil {
		current.Attendees = patch.Attendees
	}
	return current
}

// excludeInterval drops busy intervals matching the event's own previous
// window so an event moving within itself does not conflict with itself.
func excludeInterval(conflicts []entities.BusyInterval, start, end time.Time) []entities.BusyInterval {
	var out []entities.BusyInterval
	for _, c := range conflicts {
		if c.Start.Equal(start) && c.End.Equal(end) {
			continue
		}
		out = append(out, c)
	}
	return out
}

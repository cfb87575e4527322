package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/quietroom/therapy-booking/backend/internal/domain/entities"
	"github.com/quietroom/therapy-booking/backend/internal/domain/providers"
	"github.com/quietroom/therapy-booking/backend/internal/domain/repositories"
	"github.com/quietroom/therapy-booking/backend/internal/infrastructure/observability"
	"github.com/quietroom/therapy-booking/backend/pkg/config"
	apperrors "github.com/quietroom/therapy-booking/backend/pkg/errors"
	"github.com/quietroom/therapy-booking/backend/pkg/retry"
)

// SyncService pulls incremental changes for a calendar after a push
// notification. The sync token scopes each pull to what changed since the
// last one; a token the provider has expired resets to a full pull.
type SyncService struct {
	provider  providers.CalendarProvider
	directory repositories.CalendarDirectory
	cache     providers.BusyCache
	bus       providers.EventBus
	retryCfg  retry.Config
}

// NewSyncService creates a new incremental sync service
func NewSyncService(
	provider providers.CalendarProvider,
	directory repositories.CalendarDirectory,
	cache providers.BusyCache,
	bus providers.EventBus,
	retryCfg *config.RetryConfig,
) *SyncService {
	return &SyncService{
		provider:  provider,
		directory: directory,
		cache:     cache,
		bus:       bus,
		retryCfg:  providerRetryConfig(retryCfg),
	}
}

// IncrementalSync drops cached busy data for the calendar, then pulls the
// changes since its stored sync token and advances the token. Returns the
// number of changed events.
func (s *SyncService) IncrementalSync(ctx context.Context, calendarID string) (int, error) {
	cal, err := s.directory.GetByCalendarID(ctx, calendarID)
	if err != nil {
		return 0, err
	}

	// A push notification means the calendar changed. Cached busy data is
	// stale regardless of how the pull below goes, so invalidation never
	// waits on it.
	s.cache.Invalidate(ctx, calendarID)
	s.broadcast(ctx, calendarID)

	changes, err := s.listChanges(ctx, calendarID, cal.SyncToken)
	if err != nil {
		return 0, apperrors.NewExternalError("incremental sync failed", err)
	}

	if changes.NextSyncToken != "" && changes.NextSyncToken != cal.SyncToken {
		if err := s.directory.UpdateSyncToken(ctx, calendarID, changes.NextSyncToken); err != nil {
			return 0, err
		}
	}

	observability.CalendarLogger(ctx, calendarID).Debug().
		Int("changed_events", len(changes.ChangedEventIDs)).
		Msg("incremental sync complete")

	return len(changes.ChangedEventIDs), nil
}

// listChanges pulls with the stored token, falling back to a full pull when
// the provider reports the token expired (410).
func (s *SyncService) listChanges(ctx context.Context, calendarID, syncToken string) (*providers.ChangeSet, error) {
	changes, err := s.pull(ctx, calendarID, syncToken)
	if err == nil {
		return changes, nil
	}

	var perr *providers.ProviderError
	if syncToken != "" && errors.As(err, &perr) && perr.StatusCode == http.StatusGone {
		observability.CalendarLogger(ctx, calendarID).Warn().
			Msg("sync token expired, performing full pull")
		return s.pull(ctx, calendarID, "")
	}
	return nil, err
}

func (s *SyncService) pull(ctx context.Context, calendarID, syncToken string) (*providers.ChangeSet, error) {
	var changes *providers.ChangeSet
	err := retryProvider(ctx, s.retryCfg, "changes.list", func() error {
		var lerr error
		changes, lerr = s.provider.ListChanges(ctx, calendarID, syncToken)
		return lerr
	})
	return changes, err
}

func (s *SyncService) broadcast(ctx context.Context, calendarID string) {
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
		observability.CalendarLogger(ctx, calendarID).Warn().
			Err(err).
			Msg("failed to broadcast sync invalidation")
	}
}

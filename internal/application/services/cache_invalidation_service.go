package services

import (
	"context"
	"fmt"
	"time"

	"github.com/quietroom/therapy-booking/backend/internal/domain/entities"
	"github.com/quietroom/therapy-booking/backend/internal/domain/providers"
	"github.com/quietroom/therapy-booking/backend/internal/infrastructure/observability"
)

// CacheInvalidationService drops locally cached busy data when another
// instance broadcasts a calendar change. Without it, a multi-instance
// deployment would serve stale availability from instances that did not
// handle the originating write or webhook.
type CacheInvalidationService struct {
	cache  providers.BusyCache
	bus    providers.EventBus
	ctx    context.Context
	cancel context.CancelFunc
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(cache providers.BusyCache, bus providers.EventBus) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:  cache,
		bus:    bus,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to calendar change events and begins invalidating
func (s *CacheInvalidationService) Start() error {
	eventChan, err := s.bus.Subscribe(s.ctx, providers.CalendarEventsChannel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to calendar events: %w", err)
	}

	go s.processEvents(eventChan)
	observability.GetLogger().Info().Msg("cache invalidation service started")
	return nil
}

// Stop stops the cache invalidation service
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	observability.GetLogger().Info().Msg("cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.CalendarEvent) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

func (s *CacheInvalidationService) handleEvent(event *entities.CalendarEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch event.Type {
	case entities.CalendarEventInvalidated, entities.CalendarEventRemoved:
		s.cache.Invalidate(ctx, event.CalendarID)
		observability.GetLogger().Debug().
			Str("event_id", event.ID).
			Str("calendar_id", event.CalendarID).
			Str("type", string(event.Type)).
			Msg("invalidated busy cache from broadcast")
	default:
		observability.GetLogger().Warn().
			Str("event_id", event.ID).
			Str("type", string(event.Type)).
			Msg("unknown calendar event type, ignoring")
	}
}

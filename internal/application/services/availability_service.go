package services

import (
	"context"
	"time"

	"github.com/quietroom/therapy-booking/backend/internal/domain/entities"
	"github.com/quietroom/therapy-booking/backend/internal/domain/providers"
	"github.com/quietroom/therapy-booking/backend/internal/domain/repositories"
	"github.com/quietroom/therapy-booking/backend/internal/infrastructure/observability"
	"github.com/quietroom/therapy-booking/backend/pkg/config"
	apperrors "github.com/quietroom/therapy-booking/backend/pkg/errors"
	"github.com/quietroom/therapy-booking/backend/pkg/retry"
)

// AvailabilityService answers free/busy questions for managed calendars.
// Reads go through the busy cache; provider calls run under the retry
// executor. A provider outage degrades reads to "assume free" so booking
// flows keep moving; the conflict recheck at event creation stays strict.
type AvailabilityService struct {
	provider    providers.CalendarProvider
	cache       providers.BusyCache
	directory   repositories.CalendarDirectory
	metrics     *observability.EngineMetrics
	otelMetrics *observability.Metrics
	retryCfg    retry.Config
	ttl         time.Duration
}

// NewAvailabilityService creates a new availability service
func NewAvailabilityService(
	provider providers.CalendarProvider,
	cache providers.BusyCache,
	directory repositories.CalendarDirectory,
	metrics *observability.EngineMetrics,
	otelMetrics *observability.Metrics,
	calendarCfg *config.CalendarConfig,
	retryCfg *config.RetryConfig,
) *AvailabilityService {
	return &AvailabilityService{
		provider:    provider,
		cache:       cache,
		directory:   directory,
		metrics:     metrics,
		otelMetrics: otelMetrics,
		retryCfg:    providerRetryConfig(retryCfg),
		ttl:         calendarCfg.FreeBusyTTL,
	}
}

// providerRetryConfig builds the retry policy for provider calls: rate
// limits, 5xx and transient transport failures get up to MaxAttempts,
// everything else fails on first occurrence.
func providerRetryConfig(cfg *config.RetryConfig) retry.Config {
	rc := retry.DefaultConfig()
	if cfg != nil {
		if cfg.MaxAttempts > 0 {
			rc.MaxAttempts = cfg.MaxAttempts
		}
		if cfg.InitialDelay > 0 {
			rc.InitialDelay = cfg.InitialDelay
		}
		if cfg.MaxDelay > 0 {
			rc.MaxDelay = cfg.MaxDelay
		}
		rc.Jitter = cfg.Jitter
	}
	rc.RetryIf = providers.IsRetryable
	return rc
}

// retryProvider runs fn under the provider retry policy, logging each
// failed attempt.
func retryProvider(ctx context.Context, cfg retry.Config, op string, fn func() error) error {
	return retry.DoWithLog(ctx, cfg, op, fn, func(attempt int, err error, nextDelay time.Duration) {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("operation", op).
			Int("attempt", attempt).
			Dur("next_delay", nextDelay).
			Msg("provider call failed, retrying")
	})
}

// ListBusy returns the busy intervals for a calendar inside [start, end).
// Cache hits skip the provider entirely. When the provider is unreachable
// after retries the window is reported as free; conflicts missed here are
// caught by the recheck at event creation.
func (s *AvailabilityService) ListBusy(ctx context.Context, calendarID string, start, end time.Time) ([]entities.BusyInterval, error) {
	intervals, err := s.listBusyStrict(ctx, calendarID, start, end)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			return nil, err
		}
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("calendar_id", calendarID).
			Msg("free/busy query failed, assuming window is free")
		return []entities.BusyInterval{}, nil
	}
	return intervals, nil
}

// listBusyStrict is the cache-then-provider read without the degraded
// fallback. The conflict recheck uses it directly.
func (s *AvailabilityService) listBusyStrict(ctx context.Context, calendarID string, start, end time.Time) ([]entities.BusyInterval, error) {
	if !start.Before(end) {
		return nil, apperrors.NewValidationError("availability window start must precede end")
	}

	key := providers.BusyKey(calendarID, start, end)
	if intervals, ok := s.cache.Get(ctx, key); ok {
		s.metrics.RecordCacheHit()
		observability.RecordCacheHit(ctx, s.otelMetrics, key)
		return intervals, nil
	}
	s.metrics.RecordCacheMiss()
	observability.RecordCacheMiss(ctx, s.otelMetrics, key)

	var intervals []entities.BusyInterval
	err := retryProvider(ctx, s.retryCfg, "freebusy.query", func() error {
		var qerr error
		intervals, qerr = s.provider.QueryFreeBusy(ctx, calendarID, start, end)
		return qerr
	})
	if err != nil {
		if providers.IsRateLimited(err) {
			return nil, apperrors.NewQuotaError("calendar provider quota exhausted", err)
		}
		return nil, apperrors.NewExternalError("free/busy query failed", err)
	}

	if intervals == nil {
		intervals = []entities.BusyInterval{}
	}
	s.cache.Set(ctx, key, intervals, s.ttl)
	return intervals, nil
}

// FindConflicts returns the busy intervals overlapping [start, end)
func (s *AvailabilityService) FindConflicts(ctx context.Context, calendarID string, start, end time.Time) ([]entities.BusyInterval, error) {
	busy, err := s.ListBusy(ctx, calendarID, start, end)
	if err != nil {
		return nil, err
	}
	return overlapping(busy, start, end), nil
}

// Recheck re-queries the provider for conflicts with the cache bypassed.
// Event creation calls this to close the window between an availability
// check and the write; a provider failure here is an error, never "free".
func (s *AvailabilityService) Recheck(ctx context.Context, calendarID string, start, end time.Time) ([]entities.BusyInterval, error) {
	s.cache.Invalidate(ctx, calendarID)

	busy, err := s.listBusyStrict(ctx, calendarID, start, end)
	if err != nil {
		return nil, err
	}
	return overlapping(busy, start, end), nil
}

// CheckAvailability answers a single availability request. Lookup and
// validation failures are carried in the response so batch callers can
// report per-request outcomes without aborting the whole batch.
func (s *AvailabilityService) CheckAvailability(ctx context.Context, req entities.AvailabilityRequest) entities.AvailabilityResponse {
	resp := entities.AvailabilityResponse{PractitionerID: req.PractitionerID}

	if !req.Start.Before(req.End) {
		resp.Error = "availability window start must precede end"
		return resp
	}

	cal, err := s.directory.GetActiveByPractitioner(ctx, req.PractitionerID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			resp.Error = "practitioner has no active calendar"
		} else {
			resp.Error = "calendar lookup failed"
		}
		return resp
	}

	conflicts, err := s.FindConflicts(ctx, cal.CalendarID, req.Start, req.End)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}

	if len(conflicts) > 0 {
		s.metrics.RecordConflict()
		observability.RecordConflict(ctx, s.otelMetrics, cal.CalendarID)
		resp.Conflicts = conflicts
		return resp
	}

	resp.Available = true
	return resp
}

func overlapping(busy []entities.BusyInterval, start, end time.Time) []entities.BusyInterval {
	var conflicts []entities.BusyInterval
	for _, interval := range busy {
		if interval.Overlaps(start, end) {
			conflicts = append(conflicts, interval)
		}
	}
	return conflicts
}

package services

import (
	"context"
	"fmt"
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

// LifecycleService provisions and retires managed calendars. Each
// practitioner gets a dedicated provider-side calendar owned by the platform
// account and shared back to them; provisioning is idempotent per
// practitioner.
type LifecycleService struct {
	provider  providers.CalendarProvider
	directory repositories.CalendarDirectory
	channels  *ChannelService
	cfg       *config.CalendarConfig
	retryCfg  retry.Config
}

// NewLifecycleService creates a new calendar lifecycle service
func NewLifecycleService(
	provider providers.CalendarProvider,
	directory repositories.CalendarDirectory,
	channels *ChannelService,
	calendarCfg *config.CalendarConfig,
	retryCfg *config.RetryConfig,
) *LifecycleService {
	return &LifecycleService{
		provider:  provider,
		directory: directory,
		channels:  channels,
		cfg:       calendarCfg,
		retryCfg:  providerRetryConfig(retryCfg),
	}
}

// CreateManagedCalendar provisions a calendar for a practitioner. If an
// active calendar already exists it is returned as-is; a second call never
// creates a duplicate.
func (s *LifecycleService) CreateManagedCalendar(ctx context.Context, practitioner *entities.Practitioner) (*entities.ManagedCalendar, error) {
	existing, err := s.directory.GetActiveByPractitioner(ctx, practitioner.ID)
	if err == nil {
		return existing, nil
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return nil, err
	}

	summary := fmt.Sprintf("%s - Therapy Sessions", practitioner.Name)
	timeZone := practitioner.TimeZone
	if timeZone == "" {
		timeZone = "UTC"
	}

	var created *providers.ProviderCalendar
	err = retryProvider(ctx, s.retryCfg, "calendars.insert", func() error {
		var cerr error
		created, cerr = s.provider.CreateCalendar(ctx, summary, timeZone)
		return cerr
	})
	if err != nil {
		return nil, apperrors.NewExternalError("failed to provision calendar", err)
	}

	if err := s.EnsureAcl(ctx, created.ID, practitioner.Email, entities.AclRoleWriter); err != nil {
		s.cleanupCalendar(ctx, created.ID)
		return nil, err
	}

	now := time.Now()
	cal := &entities.ManagedCalendar{
		ID:             uuid.New().String(),
		PractitionerID: practitioner.ID,
		CalendarID:     created.ID,
		OwnerEmail:     s.cfg.OwnerEmail,
		SharedEmail:    practitioner.Email,
		AclRole:        entities.AclRoleWriter,
		Status:         entities.IntegrationStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.directory.Create(ctx, cal); err != nil {
		s.cleanupCalendar(ctx, created.ID)
		return nil, err
	}

	// A calendar without a watch channel still works, it just leans on
	// cache TTL until the renewal sweep opens one.
	if s.channels != nil {
		if _, err := s.channels.WatchCalendar(ctx, created.ID); err != nil {
			observability.LoggerFromContext(ctx).Warn().
				Err(err).
				Str("calendar_id", created.ID).
				Msg("failed to open watch channel during provisioning")
		}
	}

	observability.LoggerFromContext(ctx).Info().
		Str("practitioner_id", practitioner.ID).
		Str("calendar_id", created.ID).
		Msg("provisioned managed calendar")

	return cal, nil
}

// cleanupCalendar removes a provider calendar created during a provisioning
// attempt that failed later. Best effort; an orphaned calendar is logged,
// not surfaced.
func (s *LifecycleService) cleanupCalendar(ctx context.Context, calendarID string) {
	if err := s.provider.DeleteCalendar(ctx, calendarID); err != nil && !providers.IsNotFound(err) {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("calendar_id", calendarID).
			Msg("failed to clean up orphaned provider calendar")
	}
}

// EnsureAcl guarantees an access grant exists on the calendar. Re-granting
// an existing role is a no-op, so retries and repeated provisioning calls
// are safe.
func (s *LifecycleService) EnsureAcl(ctx context.Context, calendarID, email string, role entities.AclRole) error {
	var entries []providers.AclEntry
	err := retryProvider(ctx, s.retryCfg, "acl.list", func() error {
		var lerr error
		entries, lerr = s.provider.ListAcl(ctx, calendarID)
		return lerr
	})
	if err != nil {
		return apperrors.NewExternalError("failed to list calendar access", err)
	}

	for _, entry := range entries {
		if entry.Email == email && entry.Role == role {
			return nil
		}
	}

	err = retryProvider(ctx, s.retryCfg, "acl.insert", func() error {
		return s.provider.InsertAcl(ctx, calendarID, providers.AclEntry{Email: email, Role: role})
	})
	if err != nil {
		return apperrors.NewExternalError("failed to grant calendar access", err)
	}
	return nil
}

// VerifyCalendarAccess reports whether the provider calendar still exists
// and is reachable. Used by reconciliation to detect calendars deleted out
// of band.
func (s *LifecycleService) VerifyCalendarAccess(ctx context.Context, calendarID string) (bool, error) {
	err := retryProvider(ctx, s.retryCfg, "calendars.get", func() error {
		_, gerr := s.provider.GetCalendar(ctx, calendarID)
		return gerr
	})
	if err != nil {
		if providers.IsNotFound(err) {
			return false, nil
		}
		return false, apperrors.NewExternalError("failed to verify calendar access", err)
	}
	return true, nil
}

// DeleteCalendar retires a managed calendar: the watch channel is stopped,
// the provider calendar deleted and the directory record marked removed.
// A calendar already gone on the provider side still deletes cleanly.
func (s *LifecycleService) DeleteCalendar(ctx context.Context, calendarID string) error {
	if _, err := s.directory.GetByCalendarID(ctx, calendarID); err != nil {
		return err
	}

	if s.channels != nil {
		if err := s.channels.StopWatch(ctx, calendarID); err != nil {
			observability.LoggerFromContext(ctx).Warn().
				Err(err).
				Str("calendar_id", calendarID).
				Msg("failed to stop watch channel during calendar deletion")
		}
	}

	err := retryProvider(ctx, s.retryCfg, "calendars.delete", func() error {
		return s.provider.DeleteCalendar(ctx, calendarID)
	})
	if err != nil && !providers.IsNotFound(err) {
		return apperrors.NewExternalError("failed to delete provider calendar", err)
	}

	if err := s.directory.UpdateStatus(ctx, calendarID, entities.IntegrationStatusRemoved); err != nil {
		return err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("calendar_id", calendarID).
		Msg("retired managed calendar")
	return nil
}

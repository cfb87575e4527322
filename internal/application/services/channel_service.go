package services

import (
	"context"
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

// ChannelService manages push-notification channels on managed calendars.
// A calendar has at most one channel; renewal opens a replacement and swaps
// the persisted reference in one transaction so notifications are never
// attributed to a dangling channel id.
type ChannelService struct {
	provider  providers.CalendarProvider
	directory repositories.CalendarDirectory
	cfg       *config.CalendarConfig
	retryCfg  retry.Config
}

// NewChannelService creates a new webhook channel service
func NewChannelService(
	provider providers.CalendarProvider,
	directory repositories.CalendarDirectory,
	calendarCfg *config.CalendarConfig,
	retryCfg *config.RetryConfig,
) *ChannelService {
	return &ChannelService{
		provider:  provider,
		directory: directory,
		cfg:       calendarCfg,
		retryCfg:  providerRetryConfig(retryCfg),
	}
}

// WatchCalendar opens a push-notification channel on a calendar and records
// it as the calendar's current channel. Without a public notification URL
// there is nothing for the provider to call back, so the request fails fast
// as a configuration error.
func (s *ChannelService) WatchCalendar(ctx context.Context, calendarID string) (*entities.WebhookChannel, error) {
	if s.cfg.NotificationURL == "" {
		return nil, apperrors.NewConfigurationError("notification URL is not configured, cannot open watch channel")
	}

	spec := providers.ChannelSpec{
		ID:      uuid.New().String(),
		Address: s.cfg.NotificationURL,
		Token:   s.cfg.ChannelToken,
		TTL:     s.cfg.ChannelTTL,
	}

	var result *providers.WatchResult
	err := retryProvider(ctx, s.retryCfg, "events.watch", func() error {
		var werr error
		result, werr = s.provider.WatchEvents(ctx, calendarID, spec)
		return werr
	})
	if err != nil {
		return nil, apperrors.NewExternalError("failed to open watch channel", err)
	}

	channelID := result.ChannelID
	if channelID == "" {
		channelID = spec.ID
	}

	channel := &entities.WebhookChannel{
		ID:         channelID,
		CalendarID: calendarID,
		ResourceID: result.ResourceID,
		ExpiresAt:  result.ExpiresAt,
		CreatedAt:  time.Now(),
	}

	if err := s.directory.ReplaceChannel(ctx, calendarID, channel); err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("calendar_id", calendarID).
		Str("channel_id", channel.ID).
		Time("expires_at", channel.ExpiresAt).
		Msg("opened watch channel")

	return channel, nil
}

// RenewChannel replaces a calendar's channel before it lapses: the old
// channel is stopped, a new one opened, and the persisted reference swapped
// last. A calendar without a channel simply gets one.
func (s *ChannelService) RenewChannel(ctx context.Context, calendarID string) (*entities.WebhookChannel, error) {
	old, err := s.directory.GetChannel(ctx, calendarID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return s.WatchCalendar(ctx, calendarID)
		}
		return nil, err
	}

	s.stopProviderChannel(ctx, old)

	return s.WatchCalendar(ctx, calendarID)
}

// StopWatch stops a calendar's channel and deletes its reference. A
// calendar without a channel, or whose channel the provider no longer
// knows, stops cleanly.
func (s *ChannelService) StopWatch(ctx context.Context, calendarID string) error {
	channel, err := s.directory.GetChannel(ctx, calendarID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil
		}
		return err
	}

	s.stopProviderChannel(ctx, channel)

	return s.directory.DeleteChannel(ctx, channel.ID)
}

// stopProviderChannel stops a channel on the provider side. A channel the
// provider has already forgotten is treated as stopped.
func (s *ChannelService) stopProviderChannel(ctx context.Context, channel *entities.WebhookChannel) {
	err := retryProvider(ctx, s.retryCfg, "channels.stop", func() error {
		return s.provider.StopChannel(ctx, channel.ID, channel.ResourceID)
	})
	if err != nil && !providers.IsNotFound(err) {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("channel_id", channel.ID).
			Msg("failed to stop provider channel")
	}
}

// RenewExpiring renews every channel that expires within the renewal
// margin. Failures are per-channel: one calendar's renewal trouble must not
// stall the sweep. Returns the number of channels renewed.
func (s *ChannelService) RenewExpiring(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(s.cfg.RenewalMargin)
	expiring, err := s.directory.ListExpiringChannels(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	renewed := 0
	for _, channel := range expiring {
		if _, err := s.RenewChannel(ctx, channel.CalendarID); err != nil {
			observability.LoggerFromContext(ctx).Error().
				Err(err).
				Str("calendar_id", channel.CalendarID).
				Str("channel_id", channel.ID).
				Msg("channel renewal failed, calendar degraded to polling")
			continue
		}
		renewed++
	}

	if len(expiring) > 0 {
		observability.LoggerFromContext(ctx).Info().
			Int("expiring", len(expiring)).
			Int("renewed", renewed).
			Msg("channel renewal sweep finished")
	}

	return renewed, nil
}

// DegradedChannels counts calendars whose channel has lapsed. Those
// calendars receive no push notifications and rely on cache TTL expiry
// until renewal catches up.
func (s *ChannelService) DegradedChannels(ctx context.Context) (int, error) {
	return s.directory.CountExpiredChannels(ctx, time.Now())
}

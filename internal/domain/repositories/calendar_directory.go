package repositories

import (
	"context"
	"time"

	"github.com/quietroom/therapy-booking/backend/internal/domain/entities"
)

// CalendarDirectory persists managed calendars and their webhook channels.
// Absent records surface as NOT_FOUND AppErrors.
type CalendarDirectory interface {
	Create(ctx context.Context, cal *entities.ManagedCalendar) error
	GetByCalendarID(ctx context.Context, calendarID string) (*entities.ManagedCalendar, error)
	GetActiveByPractitioner(ctx context.Context, practitionerID string) (*entities.ManagedCalendar, error)
	UpdateStatus(ctx context.Context, calendarID string, status entities.IntegrationStatus) error
	UpdateSyncToken(ctx context.Context, calendarID, syncToken string) error
	CountByStatus(ctx context.Context, status entities.IntegrationStatus) (int, error)

	// ReplaceChannel swaps the channel referenced by a calendar in one
	// transaction. After it returns, the previous channel id is no longer
	// referenced anywhere.
	ReplaceChannel(ctx context.Context, calendarID string, channel *entities.WebhookChannel) error
	GetChannel(ctx context.Context, calendarID string) (*entities.WebhookChannel, error)
	GetChannelByID(ctx context.Context, channelID string) (*entities.WebhookChannel, error)
	DeleteChannel(ctx context.Context, channelID string) error
	ListExpiringChannels(ctx context.Context, before time.Time) ([]*entities.WebhookChannel, error)
	CountActiveChannels(ctx context.Context, now time.Time) (int, error)
	CountExpiredChannels(ctx context.Context, now time.Time) (int, error)
}

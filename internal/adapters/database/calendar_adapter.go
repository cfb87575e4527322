package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/quietroom/therapy-booking/backend/internal/domain/entities"
	"github.com/quietroom/therapy-booking/backend/internal/domain/repositories"
	"github.com/quietroom/therapy-booking/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/quietroom/therapy-booking/backend/pkg/errors"
)

// CalendarAdapter implements the CalendarDirectory interface
type CalendarAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewCalendarAdapter creates a new calendar directory adapter
func NewCalendarAdapter(client *postgres.Client) repositories.CalendarDirectory {
	return &CalendarAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var calendarColumns = []interface{}{
	"id", "practitioner_id", "calendar_id", "owner_email", "shared_email",
	"acl_role", "status", "sync_token", "created_at", "updated_at",
}

// Create persists a managed calendar
func (a *CalendarAdapter) Create(ctx context.Context, cal *entities.ManagedCalendar) error {
	record := goqu.Record{
		"id":              cal.ID,
		"practitioner_id": cal.PractitionerID,
		"calendar_id":     cal.CalendarID,
		"owner_email":     cal.OwnerEmail,
		"shared_email":    cal.SharedEmail,
		"acl_role":        cal.AclRole,
		"status":          cal.Status,
		"sync_token":      cal.SyncToken,
		"created_at":      cal.CreatedAt,
		"updated_at":      cal.UpdatedAt,
	}

	query, args, err := a.db.Insert("managed_calendars").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	_, err = a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to create managed calendar", err)
	}

	return nil
}

// GetByCalendarID retrieves a managed calendar by its provider-side id
func (a *CalendarAdapter) GetByCalendarID(ctx context.Context, calendarID string) (*entities.ManagedCalendar, error) {
	return a.getOne(ctx, goqu.Ex{"calendar_id": calendarID},
		fmt.Sprintf("calendar %s not found", calendarID))
}

// GetActiveByPractitioner retrieves the single active calendar for a practitioner
func (a *CalendarAdapter) GetActiveByPractitioner(ctx context.Context, practitionerID string) (*entities.ManagedCalendar, error) {
	return a.getOne(ctx, goqu.Ex{
		"practitioner_id": practitionerID,
		"status":          entities.IntegrationStatusActive,
	}, fmt.Sprintf("no active calendar for practitioner %s", practitionerID))
}

func (a *CalendarAdapter) getOne(ctx context.Context, where goqu.Ex, notFoundMsg string) (*entities.ManagedCalendar, error) {
	query, args, err := a.db.Select(calendarColumns...).
		From("managed_calendars").
		Where(where).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	cal := &entities.ManagedCalendar{}
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&cal.ID,
		&cal.PractitionerID,
		&cal.CalendarID,
		&cal.OwnerEmail,
		&cal.SharedEmail,
		&cal.AclRole,
		&cal.Status,
		&cal.SyncToken,
		&cal.CreatedAt,
		&cal.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(notFoundMsg)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get managed calendar", err)
	}

	return cal, nil
}

// UpdateStatus transitions a calendar's integration status
func (a *CalendarAdapter) UpdateStatus(ctx context.Context, calendarID string, status entities.IntegrationStatus) error {
	query, args, err := a.db.Update("managed_calendars").
		Set(goqu.Record{
			"status":     status,
			"updated_at": time.Now(),
		}).
		Where(goqu.Ex{"calendar_id": calendarID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update calendar status", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("calendar %s not found", calendarID))
	}

	return nil
}

// UpdateSyncToken stores the cursor for the next incremental pull
func (a *CalendarAdapter) UpdateSyncToken(ctx context.Context, calendarID, syncToken string) error {
	query, args, err := a.db.Update("managed_calendars").
		Set(goqu.Record{
			"sync_token": syncToken,
			"updated_at": time.Now(),
		}).
		Where(goqu.Ex{"calendar_id": calendarID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	_, err = a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update sync token", err)
	}

	return nil
}

// CountByStatus counts calendars in a given status
func (a *CalendarAdapter) CountByStatus(ctx context.Context, status entities.IntegrationStatus) (int, error) {
	query, args, err := a.db.Select(goqu.COUNT("*")).
		From("managed_calendars").
		Where(goqu.Ex{"status": status}).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build count query", err)
	}

	var count int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.NewInternalError("failed to count calendars", err)
	}
	return count, nil
}

// ReplaceChannel swaps the channel row for a calendar in one transaction so
// the old channel id is never referenced alongside the new one.
func (a *CalendarAdapter) ReplaceChannel(ctx context.Context, calendarID string, channel *entities.WebhookChannel) error {
	deleteQuery, deleteArgs, err := a.db.Delete("webhook_channels").
		Where(goqu.Ex{"calendar_id": calendarID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	insertQuery, insertArgs, err := a.db.Insert("webhook_channels").
		Rows(goqu.Record{
			"id":          channel.ID,
			"calendar_id": channel.CalendarID,
			"resource_id": channel.ResourceID,
			"expires_at":  channel.ExpiresAt,
			"created_at":  channel.CreatedAt,
		}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return apperrors.NewInternalError("failed to begin transaction", err)
	}

	if _, err := tx.ExecContext(ctx, deleteQuery, deleteArgs...); err != nil {
		tx.Rollback()
		return apperrors.NewInternalError("failed to remove previous channel", err)
	}
	if _, err := tx.ExecContext(ctx, insertQuery, insertArgs...); err != nil {
		tx.Rollback()
		return apperrors.NewInternalError("failed to insert channel", err)
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit channel swap", err)
	}

	return nil
}

// GetChannel retrieves the channel currently referenced by a calendar
func (a *CalendarAdapter) GetChannel(ctx context.Context, calendarID string) (*entities.WebhookChannel, error) {
	return a.getChannel(ctx, goqu.Ex{"calendar_id": calendarID},
		fmt.Sprintf("no channel for calendar %s", calendarID))
}

// GetChannelByID retrieves a channel by its id
func (a *CalendarAdapter) GetChannelByID(ctx context.Context, channelID string) (*entities.WebhookChannel, error) {
	return a.getChannel(ctx, goqu.Ex{"id": channelID},
		fmt.Sprintf("channel %s not found", channelID))
}

func (a *CalendarAdapter) getChannel(ctx context.Context, where goqu.Ex, notFoundMsg string) (*entities.WebhookChannel, error) {
	query, args, err := a.db.Select("id", "calendar_id", "resource_id", "expires_at", "created_at").
		From("webhook_channels").
		Where(where).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	channel := &entities.WebhookChannel{}
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&channel.ID,
		&channel.CalendarID,
		&channel.ResourceID,
		&channel.ExpiresAt,
		&channel.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(notFoundMsg)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get webhook channel", err)
	}

	return channel, nil
}

// DeleteChannel removes a channel reference
func (a *CalendarAdapter) DeleteChannel(ctx context.Context, channelID string) error {
	query, args, err := a.db.Delete("webhook_channels").
		Where(goqu.Ex{"id": channelID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	_, err = a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete webhook channel", err)
	}

	return nil
}

// ListExpiringChannels returns channels expiring before the given time
func (a *CalendarAdapter) ListExpiringChannels(ctx context.Context, before time.Time) ([]*entities.WebhookChannel, error) {
	query, args, err := a.db.Select("id", "calendar_id", "resource_id", "expires_at", "created_at").
		From("webhook_channels").
		Where(goqu.C("expires_at").Lt(before)).
		Order(goqu.I("expires_at").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list expiring channels", err)
	}
	defer rows.Close()

	var channels []*entities.WebhookChannel
	for rows.Next() {
		channel := &entities.WebhookChannel{}
		if err := rows.Scan(
			&channel.ID,
			&channel.CalendarID,
			&channel.ResourceID,
			&channel.ExpiresAt,
			&channel.CreatedAt,
		); err != nil {
			return nil, apperrors.NewInternalError("failed to scan webhook channel", err)
		}
		channels = append(channels, channel)
	}

	return channels, nil
}

// CountActiveChannels counts channels that have not yet expired
func (a *CalendarAdapter) CountActiveChannels(ctx context.Context, now time.Time) (int, error) {
	return a.countChannels(ctx, goqu.C("expires_at").Gt(now))
}

// CountExpiredChannels counts lapsed channels; these calendars run in
// polling-only degraded mode until renewal catches up.
func (a *CalendarAdapter) CountExpiredChannels(ctx context.Context, now time.Time) (int, error) {
	return a.countChannels(ctx, goqu.C("expires_at").Lte(now))
}

func (a *CalendarAdapter) countChannels(ctx context.Context, where goqu.Expression) (int, error) {
	query, args, err := a.db.Select(goqu.COUNT("*")).
		From("webhook_channels").
		Where(where).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build count query", err)
	}

	var count int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.NewInternalError("failed to count channels", err)
	}
	return count, nil
}

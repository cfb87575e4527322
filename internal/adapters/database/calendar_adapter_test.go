package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietroom/therapy-booking/backend/internal/domain/entities"
	"github.com/quietroom/therapy-booking/backend/internal/domain/repositories"
	"github.com/quietroom/therapy-booking/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/quietroom/therapy-booking/backend/pkg/errors"
)

func newTestDirectory(t *testing.T) (repositories.CalendarDirectory, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewCalendarAdapter(postgres.NewClientFromDB(db)), mock
}

func calendarRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "practitioner_id", "calendar_id", "owner_email", "shared_email",
		"acl_role", "status", "sync_token", "created_at", "updated_at",
	})
}

func channelRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "calendar_id", "resource_id", "expires_at", "created_at"})
}

func TestCalendarAdapter_GetByCalendarID(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("found", func(t *testing.T) {
		dir, mock := newTestDirectory(t)
		mock.ExpectQuery(`SELECT .+ FROM "managed_calendars"`).
			WillReturnRows(calendarRows().AddRow(
				"row-1", "prac-1", "cal-1", "calendars@quietroom.health", "dana@example.com",
				"writer", "active", "tok-1", now, now,
			))

		cal, err := dir.GetByCalendarID(ctx, "cal-1")

		assert.NoError(t, err)
		assert.Equal(t, "cal-1", cal.CalendarID)
		assert.Equal(t, entities.IntegrationStatusActive, cal.Status)
		assert.Equal(t, "tok-1", cal.SyncToken)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("absent row maps to not found", func(t *testing.T) {
		dir, mock := newTestDirectory(t)
		mock.ExpectQuery(`SELECT .+ FROM "managed_calendars"`).
			WillReturnRows(calendarRows())

		_, err := dir.GetByCalendarID(ctx, "cal-missing")

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})
}

func TestCalendarAdapter_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("updates the row", func(t *testing.T) {
		dir, mock := newTestDirectory(t)
		mock.ExpectExec(`UPDATE "managed_calendars"`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := dir.UpdateStatus(ctx, "cal-1", entities.IntegrationStatusRemoved)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero rows affected maps to not found", func(t *testing.T) {
		dir, mock := newTestDirectory(t)
		mock.ExpectExec(`UPDATE "managed_calendars"`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := dir.UpdateStatus(ctx, "cal-missing", entities.IntegrationStatusRemoved)

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})
}

func TestCalendarAdapter_ReplaceChannel(t *testing.T) {
	ctx := context.Background()
	channel := &entities.WebhookChannel{
		ID:         "chan-new",
		CalendarID: "cal-1",
		ResourceID: "res-1",
		ExpiresAt:  time.Now().Add(7 * 24 * time.Hour),
		CreatedAt:  time.Now(),
	}

	t.Run("swaps delete and insert in one transaction", func(t *testing.T) {
		dir, mock := newTestDirectory(t)
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "webhook_channels"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO "webhook_channels"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := dir.ReplaceChannel(ctx, "cal-1", channel)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert failure rolls the delete back", func(t *testing.T) {
		dir, mock := newTestDirectory(t)
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "webhook_channels"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO "webhook_channels"`).
			WillReturnError(assert.AnError)
		mock.ExpectRollback()

		err := dir.ReplaceChannel(ctx, "cal-1", channel)

		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCalendarAdapter_GetChannelByID(t *testing.T) {
	ctx := context.Background()
	dir, mock := newTestDirectory(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM "webhook_channels"`).
		WillReturnRows(channelRows().AddRow("chan-1", "cal-1", "res-1", now.Add(time.Hour), now))

	channel, err := dir.GetChannelByID(ctx, "chan-1")

	assert.NoError(t, err)
	assert.Equal(t, "cal-1", channel.CalendarID)
	assert.Equal(t, "res-1", channel.ResourceID)
}

func TestCalendarAdapter_ListExpiringChannels(t *testing.T) {
	ctx := context.Background()
	dir, mock := newTestDirectory(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM "webhook_channels"`).
		WillReturnRows(channelRows().
			AddRow("chan-1", "cal-1", "res-1", now.Add(time.Hour), now).
			AddRow("chan-2", "cal-2", "res-2", now.Add(2*time.Hour), now))

	channels, err := dir.ListExpiringChannels(ctx, now.Add(6*time.Hour))

	assert.NoError(t, err)
	require.Len(t, channels, 2)
	assert.Equal(t, "chan-1", channels[0].ID)
	assert.Equal(t, "chan-2", channels[1].ID)
}

func TestCalendarAdapter_ChannelCounts(t *testing.T) {
	ctx := context.Background()
	dir, mock := newTestDirectory(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "webhook_channels"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "webhook_channels"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	active, err := dir.CountActiveChannels(ctx, now)
	assert.NoError(t, err)
	assert.Equal(t, 4, active)

	expired, err := dir.CountExpiredChannels(ctx, now)
	assert.NoError(t, err)
	assert.Equal(t, 1, expired)
}

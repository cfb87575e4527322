package handlers

import (
	"context"
	"crypto/hmac"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/quietroom/therapy-booking/backend/internal/domain/repositories"
	"github.com/quietroom/therapy-booking/backend/internal/infrastructure/observability"
	apperrors "github.com/quietroom/therapy-booking/backend/pkg/errors"
)

// CalendarSyncer pulls incremental changes after a push notification
type CalendarSyncer interface {
	IncrementalSync(ctx context.Context, calendarID string) (int, error)
}

// NotificationHandler receives provider push notifications. Notifications
// carry no payload; they only say "something changed on this channel". The
// handler resolves the channel to its calendar, drops cached busy data and
// triggers an incremental pull.
type NotificationHandler struct {
	db           *sqlx.DB
	directory    repositories.CalendarDirectory
	syncer       CalendarSyncer
	channelToken string
}

// NewNotificationHandler creates a new push notification handler
func NewNotificationHandler(
	db *sqlx.DB,
	directory repositories.CalendarDirectory,
	syncer CalendarSyncer,
	channelToken string,
) *NotificationHandler {
	return &NotificationHandler{
		db:           db,
		directory:    directory,
		syncer:       syncer,
		channelToken: channelToken,
	}
}

// HandleNotification processes POST /webhooks/calendar
func (h *NotificationHandler) HandleNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	channelID := r.Header.Get("X-Channel-Id")
	token := r.Header.Get("X-Channel-Token")
	messageID := r.Header.Get("X-Message-Id")
	state := r.Header.Get("X-Resource-State")

	if channelID == "" {
		http.Error(w, "missing channel id", http.StatusBadRequest)
		return
	}

	// Token comparison is constant-time; a notification with the wrong
	// secret never reaches channel lookup.
	if h.channelToken != "" && !hmac.Equal([]byte(token), []byte(h.channelToken)) {
		observability.LoggerFromContext(ctx).Warn().
			Str("channel_id", channelID).
			Msg("rejected push notification with invalid token")
		http.Error(w, "invalid channel token", http.StatusUnauthorized)
		return
	}

	// The provider sends a sync handshake when the channel opens. Nothing
	// changed yet; acknowledge and move on.
	if state == "sync" {
		w.WriteHeader(http.StatusOK)
		return
	}

	channel, err := h.directory.GetChannelByID(ctx, channelID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			// Unknown or superseded channel. 404 tells the provider to stop
			// delivering on it.
			http.Error(w, "unknown channel", http.StatusNotFound)
			return
		}
		http.Error(w, "channel lookup failed", http.StatusInternalServerError)
		return
	}

	if messageID != "" && h.alreadyProcessed(ctx, messageID) {
		w.WriteHeader(http.StatusOK)
		return
	}

	if messageID != "" {
		if err := h.recordNotification(ctx, messageID, channelID, channel.CalendarID, state); err != nil {
			observability.LoggerFromContext(ctx).Warn().
				Err(err).
				Str("message_id", messageID).
				Msg("failed to record push notification")
		}
	}

	if _, err := h.syncer.IncrementalSync(ctx, channel.CalendarID); err != nil {
		observability.LoggerFromContext(ctx).Error().
			Err(err).
			Str("calendar_id", channel.CalendarID).
			Msg("incremental sync after push notification failed")
		// The notification is acknowledged anyway; the sync drops the cached
		// busy data before pulling, so a failed pull cannot serve stale data.
	}

	w.WriteHeader(http.StatusOK)
}

func (h *NotificationHandler) alreadyProcessed(ctx context.Context, messageID string) bool {
	var count int
	query := `SELECT COUNT(*) FROM webhook_notifications WHERE message_id = $1`
	if err := h.db.GetContext(ctx, &count, query, messageID); err != nil {
		return false
	}
	return count > 0
}

func (h *NotificationHandler) recordNotification(ctx context.Context, messageID, channelID, calendarID, state string) error {
	query := `
		INSERT INTO webhook_notifications (message_id, channel_id, calendar_id, resource_state, received_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (message_id) DO NOTHING
	`
	_, err := h.db.ExecContext(ctx, query, messageID, channelID, calendarID, state, time.Now())
	return err
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/quietroom/therapy-booking/backend/internal/domain/entities"
	"github.com/quietroom/therapy-booking/backend/internal/domain/repositories"
)

// CalendarLifecycle defines the calendar provisioning operations the
// handler needs
type CalendarLifecycle interface {
	CreateManagedCalendar(ctx context.Context, practitioner *entities.Practitioner) (*entities.ManagedCalendar, error)
	VerifyCalendarAccess(ctx context.Context, calendarID string) (bool, error)
	DeleteCalendar(ctx context.Context, calendarID string) error
}

// ChannelManager defines the watch-channel operations the handler needs
type ChannelManager interface {
	WatchCalendar(ctx context.Context, calendarID string) (*entities.WebhookChannel, error)
	RenewChannel(ctx context.Context, calendarID string) (*entities.WebhookChannel, error)
	StopWatch(ctx context.Context, calendarID string) error
}

// CalendarHandler handles managed calendar requests
type CalendarHandler struct {
	lifecycle     CalendarLifecycle
	channels      ChannelManager
	directory     repositories.CalendarDirectory
	practitioners repositories.PractitionerRepository
}

// NewCalendarHandler creates a new calendar handler
func NewCalendarHandler(
	lifecycle CalendarLifecycle,
	channels ChannelManager,
	directory repositories.CalendarDirectory,
	practitioners repositories.PractitionerRepository,
) *CalendarHandler {
	return &CalendarHandler{
		lifecycle:     lifecycle,
		channels:      channels,
		directory:     directory,
		practitioners: practitioners,
	}
}

type provisionCalendarRequest struct {
	PractitionerID string `json:"practitioner_id"`
}

// ProvisionCalendar handles POST /api/calendars
func (h *CalendarHandler) ProvisionCalendar(w http.ResponseWriter, r *http.Request) {
	var req provisionCalendarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.PractitionerID == "" {
		respondWithError(w, http.StatusBadRequest, "practitioner_id is required")
		return
	}

	practitioner, err := h.practitioners.GetByID(r.Context(), req.PractitionerID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	cal, err := h.lifecycle.CreateManagedCalendar(r.Context(), practitioner)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, cal)
}

// GetCalendar handles GET /api/calendars/{id}
func (h *CalendarHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	calendarID := r.PathValue("id")
	if calendarID == "" {
		respondWithError(w, http.StatusBadRequest, "calendar ID is required")
		return
	}

	cal, err := h.directory.GetByCalendarID(r.Context(), calendarID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, cal)
}

// VerifyCalendar handles GET /api/calendars/{id}/verify
func (h *CalendarHandler) VerifyCalendar(w http.ResponseWriter, r *http.Request) {
	calendarID := r.PathValue("id")
	if calendarID == "" {
		respondWithError(w, http.StatusBadRequest, "calendar ID is required")
		return
	}

	accessible, err := h.lifecycle.VerifyCalendarAccess(r.Context(), calendarID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"accessible": accessible})
}

// DeleteCalendar handles DELETE /api/calendars/{id}
func (h *CalendarHandler) DeleteCalendar(w http.ResponseWriter, r *http.Request) {
	calendarID := r.PathValue("id")
	if calendarID == "" {
		respondWithError(w, http.StatusBadRequest, "calendar ID is required")
		return
	}

	if err := h.lifecycle.DeleteCalendar(r.Context(), calendarID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// WatchCalendar handles POST /api/calendars/{id}/watch
func (h *CalendarHandler) WatchCalendar(w http.ResponseWriter, r *http.Request) {
	calendarID := r.PathValue("id")
	if calendarID == "" {
		respondWithError(w, http.StatusBadRequest, "calendar ID is required")
		return
	}

	channel, err := h.channels.WatchCalendar(r.Context(), calendarID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, channel)
}

// RenewChannel handles POST /api/calendars/{id}/watch/renew
func (h *CalendarHandler) RenewChannel(w http.ResponseWriter, r *http.Request) {
	calendarID := r.PathValue("id")
	if calendarID == "" {
		respondWithError(w, http.StatusBadRequest, "calendar ID is required")
		return
	}

	channel, err := h.channels.RenewChannel(r.Context(), calendarID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, channel)
}

// StopWatch handles DELETE /api/calendars/{id}/watch
func (h *CalendarHandler) StopWatch(w http.ResponseWriter, r *http.Request) {
	calendarID := r.PathValue("id")
	if calendarID == "" {
		respondWithError(w, http.StatusBadRequest, "calendar ID is required")
		return
	}

	if err := h.channels.StopWatch(r.Context(), calendarID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/quietroom/therapy-booking/backend/internal/application/services"
	"github.com/quietroom/therapy-booking/backend/internal/domain/entities"
)

// EventWriter defines the calendar event operations the handler needs
type EventWriter interface {
	CreateEvent(ctx context.Context, calendarID string, spec entities.EventSpec) (string, error)
	UpdateEvent(ctx context.Context, calendarID, eventID string, patch services.EventPatch) error
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}

// EventHandler handles calendar event requests
type EventHandler struct {
	events EventWriter
}

// NewEventHandler creates a new event handler
func NewEventHandler(events EventWriter) *EventHandler {
	return &EventHandler{events: events}
}

// CreateEvent handles POST /api/calendars/{id}/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	calendarID := r.PathValue("id")
	if calendarID == "" {
		respondWithError(w, http.StatusBadRequest, "calendar ID is required")
		return
	}

	var spec entities.EventSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	eventID, err := h.events.CreateEvent(r.Context(), calendarID, spec)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{"id": eventID})
}

// UpdateEvent handles PATCH /api/calendars/{id}/events/{eventId}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	calendarID := r.PathValue("id")
	eventID := r.PathValue("eventId")
	if calendarID == "" || eventID == "" {
		respondWithError(w, http.StatusBadRequest, "calendar ID and event ID are required")
		return
	}

	var patch services.EventPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := h.events.UpdateEvent(r.Context(), calendarID, eventID, patch); err != nil {
		respondWithServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteEvent handles DELETE /api/calendars/{id}/events/{eventId}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	calendarID := r.PathValue("id")
	eventID := r.PathValue("eventId")
	if calendarID == "" || eventID == "" {
		respondWithError(w, http.StatusBadRequest, "calendar ID and event ID are required")
		return
	}

	if err := h.events.DeleteEvent(r.Context(), calendarID, eventID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/quietroom/therapy-booking/backend/internal/domain/entities"
)

// AvailabilityChecker defines the availability operations the handler needs
type AvailabilityChecker interface {
	ListBusy(ctx context.Context, calendarID string, start, end time.Time) ([]entities.BusyInterval, error)
	FindConflicts(ctx context.Context, calendarID string, start, end time.Time) ([]entities.BusyInterval, error)
	CheckAvailability(ctx context.Context, req entities.AvailabilityRequest) entities.AvailabilityResponse
}

// BatchChecker answers many availability requests at once
type BatchChecker interface {
	CheckBatch(ctx context.Context, requests []entities.AvailabilityRequest) []entities.AvailabilityResponse
}

// AvailabilityHandler handles free/busy and availability requests
type AvailabilityHandler struct {
	availability AvailabilityChecker
	batch        BatchChecker
}

// NewAvailabilityHandler creates a new availability handler
func NewAvailabilityHandler(availability AvailabilityChecker, batch BatchChecker) *AvailabilityHandler {
	return &AvailabilityHandler{
		availability: availability,
		batch:        batch,
	}
}

// GetBusy handles GET /api/calendars/{id}/availability
func (h *AvailabilityHandler) GetBusy(w http.ResponseWriter, r *http.Request) {
	calendarID := r.PathValue("id")
	if calendarID == "" {
		respondWithError(w, http.StatusBadRequest, "calendar ID is required")
		return
	}

	from, to, ok := parseWindow(w, r)
	if !ok {
		return
	}

	busy, err := h.availability.ListBusy(r.Context(), calendarID, from, to)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"calendar_id": calendarID,
		"busy":        busy,
	})
}

// CheckPractitioner handles GET /api/practitioners/{id}/availability
func (h *AvailabilityHandler) CheckPractitioner(w http.ResponseWriter, r *http.Request) {
	practitionerID := r.PathValue("id")
	if practitionerID == "" {
		respondWithError(w, http.StatusBadRequest, "practitioner ID is required")
		return
	}

	from, to, ok := parseWindow(w, r)
	if !ok {
		return
	}

	resp := h.availability.CheckAvailability(r.Context(), entities.AvailabilityRequest{
		PractitionerID: practitionerID,
		Start:          from,
		End:            to,
	})

	respondWithJSON(w, http.StatusOK, resp)
}

type batchAvailabilityRequest struct {
	Requests []entities.AvailabilityRequest `json:"requests"`
}

// CheckBatch handles POST /api/availability/batch
func (h *AvailabilityHandler) CheckBatch(w http.ResponseWriter, r *http.Request) {
	var req batchAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if len(req.Requests) == 0 {
		respondWithError(w, http.StatusBadRequest, "requests must not be empty")
		return
	}

	responses := h.batch.CheckBatch(r.Context(), req.Requests)

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"results": responses,
	})
}

// parseWindow reads the from/to query parameters as RFC3339 timestamps
func parseWindow(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	if fromStr == "" || toStr == "" {
		respondWithError(w, http.StatusBadRequest, "from and to query parameters are required")
		return time.Time{}, time.Time{}, false
	}

	from, err := time.Parse(time.RFC3339, fromStr)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid from date format (use RFC3339)")
		return time.Time{}, time.Time{}, false
	}

	to, err := time.Parse(time.RFC3339, toStr)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid to date format (use RFC3339)")
		return time.Time{}, time.Time{}, false
	}

	if !from.Before(to) {
		respondWithError(w, http.StatusBadRequest, "from must precede to")
		return time.Time{}, time.Time{}, false
	}

	return from, to, true
}

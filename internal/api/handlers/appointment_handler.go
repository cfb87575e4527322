package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/quietroom/therapy-booking/backend/internal/domain/entities"
	"github.com/quietroom/therapy-booking/backend/internal/domain/repositories"
)

// BookingOperations defines the booking operations the handler needs
type BookingOperations interface {
	BookAppointment(ctx context.Context, appointment *entities.Appointment) error
	CancelAppointment(ctx context.Context, id string) error
	GetAppointment(ctx context.Context, id string) (*entities.Appointment, error)
	ListAppointments(ctx context.Context, practitionerID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error)
}

// AppointmentHandler handles appointment booking requests
type AppointmentHandler struct {
	bookings BookingOperations
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(bookings BookingOperations) *AppointmentHandler {
	return &AppointmentHandler{bookings: bookings}
}

// BookAppointment handles POST /api/appointments
func (h *AppointmentHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	var appointment entities.Appointment
	if err := json.NewDecoder(r.Body).Decode(&appointment); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := h.bookings.BookAppointment(r.Context(), &appointment); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, appointment)
}

// GetAppointment handles GET /api/appointments/{id}
func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "appointment ID is required")
		return
	}

	appointment, err := h.bookings.GetAppointment(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, appointment)
}

// CancelAppointment handles DELETE /api/appointments/{id}
func (h *AppointmentHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "appointment ID is required")
		return
	}

	if err := h.bookings.CancelAppointment(r.Context(), id); err != nil {
		respondWithServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListAppointments handles GET /api/practitioners/{id}/appointments
func (h *AppointmentHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	practitionerID := r.PathValue("id")
	if practitionerID == "" {
		respondWithError(w, http.StatusBadRequest, "practitioner ID is required")
		return
	}

	filter := repositories.AppointmentFilter{
		Status: entities.AppointmentStatus(r.URL.Query().Get("status")),
	}

	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid from date format (use RFC3339)")
			return
		}
		filter.From = &from
	}
	if toStr := r.URL.Query().Get("to"); toStr != "" {
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid to date format (use RFC3339)")
			return
		}
		filter.To = &to
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			respondWithError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		filter.Limit = limit
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			respondWithError(w, http.StatusBadRequest, "invalid offset parameter")
			return
		}
		filter.Offset = offset
	}

	appointments, err := h.bookings.ListAppointments(r.Context(), practitionerID, filter)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"appointments": appointments,
	})
}

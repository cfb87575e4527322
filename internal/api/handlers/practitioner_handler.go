package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/quietroom/therapy-booking/backend/internal/domain/entities"
	"github.com/quietroom/therapy-booking/backend/internal/domain/repositories"
)

// PractitionerHandler handles practitioner requests
type PractitionerHandler struct {
	practitioners repositories.PractitionerRepository
}

// NewPractitionerHandler creates a new practitioner handler
func NewPractitionerHandler(practitioners repositories.PractitionerRepository) *PractitionerHandler {
	return &PractitionerHandler{practitioners: practitioners}
}

// CreatePractitioner handles POST /api/practitioners
func (h *PractitionerHandler) CreatePractitioner(w http.ResponseWriter, r *http.Request) {
	var practitioner entities.Practitioner
	if err := json.NewDecoder(r.Body).Decode(&practitioner); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if practitioner.Name == "" || practitioner.Email == "" {
		respondWithError(w, http.StatusBadRequest, "name and email are required")
		return
	}

	if practitioner.ID == "" {
		practitioner.ID = uuid.New().String()
	}
	practitioner.Active = true
	practitioner.CreatedAt = time.Now()
	practitioner.UpdatedAt = practitioner.CreatedAt

	if err := h.practitioners.Create(r.Context(), &practitioner); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, practitioner)
}

// GetPractitioner handles GET /api/practitioners/{id}
func (h *PractitionerHandler) GetPractitioner(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "practitioner ID is required")
		return
	}

	practitioner, err := h.practitioners.GetByID(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, practitioner)
}

// ListPractitioners handles GET /api/practitioners
func (h *PractitionerHandler) ListPractitioners(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			respondWithError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = parsed
	}

	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		parsed, err := strconv.Atoi(offsetStr)
		if err != nil || parsed < 0 {
			respondWithError(w, http.StatusBadRequest, "invalid offset parameter")
			return
		}
		offset = parsed
	}

	practitioners, err := h.practitioners.List(r.Context(), activeOnly, limit, offset)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"practitioners": practitioners,
	})
}

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/quietroom/therapy-booking/backend/internal/application/services"
	apperrors "github.com/quietroom/therapy-booking/backend/pkg/errors"
)

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{"error": message})
}

// respondWithServiceError maps service-layer errors onto HTTP statuses.
// Booking conflicts carry their overlapping intervals so the caller can
// offer alternatives.
func respondWithServiceError(w http.ResponseWriter, err error) {
	if conflict, ok := services.AsConflict(err); ok {
		respondWithJSON(w, http.StatusConflict, map[string]interface{}{
			"error":     "requested window is no longer available",
			"conflicts": conflict.Conflicts,
		})
		return
	}

	if appErr, ok := err.(*apperrors.AppError); ok {
		switch appErr.Type {
		case apperrors.ErrorTypeNotFound:
			respondWithError(w, http.StatusNotFound, appErr.Message)
		case apperrors.ErrorTypeValidation:
			respondWithError(w, http.StatusBadRequest, appErr.Message)
		case apperrors.ErrorTypeConflict:
			respondWithError(w, http.StatusConflict, appErr.Message)
		case apperrors.ErrorTypeQuota:
			respondWithError(w, http.StatusTooManyRequests, appErr.Message)
		case apperrors.ErrorTypeConfiguration:
			respondWithError(w, http.StatusServiceUnavailable, appErr.Message)
		case apperrors.ErrorTypeTransient:
			respondWithError(w, http.StatusServiceUnavailable, appErr.Message)
		case apperrors.ErrorTypeExternal:
			respondWithError(w, http.StatusBadGateway, appErr.Message)
		default:
			respondWithError(w, http.StatusInternalServerError, appErr.Message)
		}
		return
	}

	respondWithError(w, http.StatusInternalServerError, "internal server error")
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/quietroom/therapy-booking/backend/internal/domain/entities"
	"github.com/quietroom/therapy-booking/backend/internal/domain/repositories"
	"github.com/quietroom/therapy-booking/backend/internal/infrastructure/clients/postgres"
	redisclient "github.com/quietroom/therapy-booking/backend/internal/infrastructure/clients/redis"
	"github.com/quietroom/therapy-booking/backend/internal/infrastructure/observability"
)

// HealthHandler serves liveness and engine metrics endpoints
type HealthHandler struct {
	pg        *postgres.Client
	redis     *redisclient.Client
	directory repositories.CalendarDirectory
	metrics   *observability.EngineMetrics
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(
	pg *postgres.Client,
	redis *redisclient.Client,
	directory repositories.CalendarDirectory,
	metrics *observability.EngineMetrics,
) *HealthHandler {
	return &HealthHandler{
		pg:        pg,
		redis:     redis,
		directory: directory,
		metrics:   metrics,
	}
}

type healthStatus struct {
	Status           string            `json:"status"`
	Checks           map[string]string `json:"checks"`
	DegradedChannels int               `json:"degradedChannels"`
}

// Health handles GET /health. A lapsed webhook channel degrades the report
// without failing it: availability still works off cache TTLs.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := healthStatus{
		Status: "ok",
		Checks: map[string]string{},
	}
	code := http.StatusOK

	if err := h.pg.Ping(ctx); err != nil {
		status.Checks["postgres"] = err.Error()
		status.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	} else {
		status.Checks["postgres"] = "ok"
	}

	if err := h.redis.Ping(ctx); err != nil {
		status.Checks["redis"] = err.Error()
		status.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	} else {
		status.Checks["redis"] = "ok"
	}

	degraded, err := h.directory.CountExpiredChannels(ctx, time.Now())
	if err == nil {
		status.DegradedChannels = degraded
		if degraded > 0 && status.Status == "ok" {
			status.Status = "degraded"
		}
	}

	respondWithJSON(w, code, status)
}

// Metrics handles GET /api/metrics
func (h *HealthHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	totalCalendars, err := h.directory.CountByStatus(ctx, entities.IntegrationStatusActive)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	now := time.Now()
	activeChannels, err := h.directory.CountActiveChannels(ctx, now)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	degradedChannels, err := h.directory.CountExpiredChannels(ctx, now)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	snapshot := h.metrics.Snapshot(totalCalendars, activeChannels, degradedChannels)
	respondWithJSON(w, http.StatusOK, snapshot)
}

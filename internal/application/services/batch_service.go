package services

import (
	"context"
	"sync"

	"github.com/quietroom/therapy-booking/backend/internal/domain/entities"
	"github.com/quietroom/therapy-booking/backend/pkg/config"
)

// BatchAvailabilityService answers many availability questions in one call,
// for search results and admin dashboards. Requests fan out concurrently in
// chunks; each request carries its own outcome so one practitioner's broken
// calendar never fails the page.
type BatchAvailabilityService struct {
	availability *AvailabilityService
	chunkSize    int
}

// NewBatchAvailabilityService creates a new batch availability service
func NewBatchAvailabilityService(availability *AvailabilityService, cfg *config.CalendarConfig) *BatchAvailabilityService {
	chunkSize := cfg.BatchSize
	if chunkSize <= 0 {
		chunkSize = 100
	}
	return &BatchAvailabilityService{
		availability: availability,
		chunkSize:    chunkSize,
	}
}

// CheckBatch checks every request and returns responses in request order.
// Fan-out is bounded by the chunk size so a large batch cannot open an
// unbounded number of provider calls at once.
func (s *BatchAvailabilityService) CheckBatch(ctx context.Context, requests []entities.AvailabilityRequest) []entities.AvailabilityResponse {
	responses := make([]entities.AvailabilityResponse, len(requests))

	for offset := 0; offset < len(requests); offset += s.chunkSize {
		end := offset + s.chunkSize
		if end > len(requests) {
			end = len(requests)
		}

		var wg sync.WaitGroup
		for i := offset; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				responses[idx] = s.availability.CheckAvailability(ctx, requests[idx])
			}(i)
		}
		wg.Wait()
	}

	return responses
}

package observability

import (
	"sync"
	"time"
)

// EngineMetrics tracks calendar-engine counters served by the metrics
// endpoint. Counters are per instance; fleet-wide aggregation happens in the
// OTEL pipeline, this snapshot exists for operational probes.
type EngineMetrics struct {
	mu sync.Mutex

	apiCalls          int64
	apiErrors         int64
	eventsCreated     int64
	conflictsDetected int64
	cacheHits         int64
	cacheMisses       int64

	totalResponseTime time.Duration
	responseSamples   int64

	// apiCallsToday resets when the UTC day rolls over
	apiCallsToday int64
	currentDay    string

	now func() time.Time
}

// EngineSnapshot is the wire shape of the metrics endpoint
type EngineSnapshot struct {
	TotalCalendars        int     `json:"totalCalendars"`
	ActiveChannels        int     `json:"activeChannels"`
	DegradedChannels      int     `json:"degradedChannels"`
	EventsCreated         int64   `json:"eventsCreated"`
	ConflictsDetected     int64   `json:"conflictsDetected"`
	APICallsToday         int64   `json:"apiCallsToday"`
	ErrorRate             float64 `json:"errorRate"`
	AverageResponseTimeMs float64 `json:"averageResponseTime"`
	CacheHitRatio         float64 `json:"cacheHitRatio"`
}

// NewEngineMetrics creates engine metrics using the wall clock
func NewEngineMetrics() *EngineMetrics {
	return newEngineMetrics(time.Now)
}

func newEngineMetrics(now func() time.Time) *EngineMetrics {
	m := &EngineMetrics{now: now}
	m.currentDay = m.day()
	return m
}

func (m *EngineMetrics) day() string {
	return m.now().UTC().Format("2006-01-02")
}

// RecordAPICall records one provider call with its duration and outcome
func (m *EngineMetrics) RecordAPICall(duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d := m.day(); d != m.currentDay {
		m.currentDay = d
		m.apiCallsToday = 0
	}

	m.apiCalls++
	m.apiCallsToday++
	m.totalResponseTime += duration
	m.responseSamples++
	if err != nil {
		m.apiErrors++
	}
}

// RecordEventCreated counts a successfully created calendar event
func (m *EngineMetrics) RecordEventCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventsCreated++
}

// RecordConflict counts a detected booking conflict
func (m *EngineMetrics) RecordConflict() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflictsDetected++
}

// RecordCacheHit counts a busy-cache hit
func (m *EngineMetrics) RecordCacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheHits++
}

// RecordCacheMiss counts a busy-cache miss
func (m *EngineMetrics) RecordCacheMiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheMisses++
}

// Snapshot merges the in-process counters with directory counts supplied by
// the caller.
func (m *EngineMetrics) Snapshot(totalCalendars, activeChannels, degradedChannels int) EngineSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d := m.day(); d != m.currentDay {
		m.currentDay = d
		m.apiCallsToday = 0
	}

	snap := EngineSnapshot{
		TotalCalendars:    totalCalendars,
		ActiveChannels:    activeChannels,
		DegradedChannels:  degradedChannels,
		EventsCreated:     m.eventsCreated,
		ConflictsDetected: m.conflictsDetected,
		APICallsToday:     m.apiCallsToday,
	}

	if m.apiCalls > 0 {
		snap.ErrorRate = float64(m.apiErrors) / float64(m.apiCalls)
	}
	if m.responseSamples > 0 {
		snap.AverageResponseTimeMs = float64(m.totalResponseTime.Milliseconds()) / float64(m.responseSamples)
	}
	if lookups := m.cacheHits + m.cacheMisses; lookups > 0 {
		snap.CacheHitRatio = float64(m.cacheHits) / float64(lookups)
	}

	return snap
}

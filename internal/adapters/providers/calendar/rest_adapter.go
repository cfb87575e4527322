package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/quietroom/therapy-booking/backend/internal/domain/entities"
	"github.com/quietroom/therapy-booking/backend/internal/domain/providers"
	"github.com/quietroom/therapy-booking/backend/internal/infrastructure/observability"
	"github.com/quietroom/therapy-booking/backend/pkg/config"
)

// RESTAdapter implements CalendarProvider over the calendar service's REST
// API. A circuit breaker sits under the retry executor: retries handle
// isolated failures, the breaker stops hammering a provider that is down.
type RESTAdapter struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	metrics *observability.EngineMetrics
}

// NewRESTAdapter creates a new REST calendar provider adapter
func NewRESTAdapter(cfg *config.CalendarConfig, metrics *observability.EngineMetrics) providers.CalendarProvider {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "calendar-provider",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &RESTAdapter{
		baseURL: cfg.ProviderBaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		breaker: breaker,
		metrics: metrics,
	}
}

// CreateCalendar creates a new provider-side calendar
func (a *RESTAdapter) CreateCalendar(ctx context.Context, summary, timeZone string) (*providers.ProviderCalendar, error) {
	body := map[string]string{
		"summary":   summary,
		"time_zone": timeZone,
	}

	var out providers.ProviderCalendar
	if err := a.do(ctx, "calendars.insert", http.MethodPost, "/calendars", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCalendar fetches calendar metadata
func (a *RESTAdapter) GetCalendar(ctx context.Context, calendarID string) (*providers.ProviderCalendar, error) {
	var out providers.ProviderCalendar
	path := fmt.Sprintf("/calendars/%s", calendarID)
	if err := a.do(ctx, "calendars.get", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCalendar deletes a provider-side calendar
func (a *RESTAdapter) DeleteCalendar(ctx context.Context, calendarID string) error {
	path := fmt.Sprintf("/calendars/%s", calendarID)
	return a.do(ctx, "calendars.delete", http.MethodDelete, path, nil, nil)
}

// ListAcl lists the access grants on a calendar
func (a *RESTAdapter) ListAcl(ctx context.Context, calendarID string) ([]providers.AclEntry, error) {
	var out struct {
		Items []providers.AclEntry `json:"items"`
	}
	path := fmt.Sprintf("/calendars/%s/acl", calendarID)
	if err := a.do(ctx, "acl.list", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// InsertAcl grants access on a calendar
func (a *RESTAdapter) InsertAcl(ctx context.Context, calendarID string, entry providers.AclEntry) error {
	path := fmt.Sprintf("/calendars/%s/acl", calendarID)
	return a.do(ctx, "acl.insert", http.MethodPost, path, entry, nil)
}

// QueryFreeBusy returns the busy intervals inside [start, end)
func (a *RESTAdapter) QueryFreeBusy(ctx context.Context, calendarID string, start, end time.Time) ([]entities.BusyInterval, error) {
	body := map[string]string{
		"calendar_id": calendarID,
		"start":       start.UTC().Format(time.RFC3339),
		"end":         end.UTC().Format(time.RFC3339),
	}

	var out struct {
		Intervals []entities.BusyInterval `json:"intervals"`
	}
	if err := a.do(ctx, "freebusy.query", http.MethodPost, "/freeBusy", body, &out); err != nil {
		return nil, err
	}
	return out.Intervals, nil
}

// GetEvent fetches an event for merge-then-update
func (a *RESTAdapter) GetEvent(ctx context.Context, calendarID, eventID string) (*entities.EventSpec, error) {
	var out entities.EventSpec
	path := fmt.Sprintf("/calendars/%s/events/%s", calendarID, eventID)
	if err := a.do(ctx, "events.get", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// InsertEvent creates an event and returns its provider id
func (a *RESTAdapter) InsertEvent(ctx context.Context, calendarID string, spec entities.EventSpec) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	path := fmt.Sprintf("/calendars/%s/events", calendarID)
	if err := a.do(ctx, "events.insert", http.MethodPost, path, spec, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// UpdateEvent replaces an event's fields
func (a *RESTAdapter) UpdateEvent(ctx context.Context, calendarID, eventID string, spec entities.EventSpec) error {
	path := fmt.Sprintf("/calendars/%s/events/%s", calendarID, eventID)
	return a.do(ctx, "events.update", http.MethodPatch, path, spec, nil)
}

// DeleteEvent deletes an event
func (a *RESTAdapter) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	path := fmt.Sprintf("/calendars/%s/events/%s", calendarID, eventID)
	return a.do(ctx, "events.delete", http.MethodDelete, path, nil, nil)
}

// WatchEvents opens a push-notification channel on a calendar
func (a *RESTAdapter) WatchEvents(ctx context.Context, calendarID string, spec providers.ChannelSpec) (*providers.WatchResult, error) {
	body := map[string]interface{}{
		"id":          spec.ID,
		"address":     spec.Address,
		"token":       spec.Token,
		"ttl_seconds": int(spec.TTL.Seconds()),
	}

	var out struct {
		ChannelID  string    `json:"channel_id"`
		ResourceID string    `json:"resource_id"`
		ExpiresAt  time.Time `json:"expires_at"`
	}
	path := fmt.Sprintf("/calendars/%s/watch", calendarID)
	if err := a.do(ctx, "events.watch", http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &providers.WatchResult{
		ChannelID:  out.ChannelID,
		ResourceID: out.ResourceID,
		ExpiresAt:  out.ExpiresAt,
	}, nil
}

// StopChannel stops a push-notification channel
func (a *RESTAdapter) StopChannel(ctx context.Context, channelID, resourceID string) error {
	body := map[string]string{
		"channel_id":  channelID,
		"resource_id": resourceID,
	}
	return a.do(ctx, "channels.stop", http.MethodPost, "/channels/stop", body, nil)
}

// ListChanges performs an incremental pull using a sync token
func (a *RESTAdapter) ListChanges(ctx context.Context, calendarID, syncToken string) (*providers.ChangeSet, error) {
	path := fmt.Sprintf("/calendars/%s/changes", calendarID)
	if syncToken != "" {
		path = fmt.Sprintf("%s?syncToken=%s", path, syncToken)
	}

	var out struct {
		ChangedEventIDs []string `json:"changed_event_ids"`
		NextSyncToken   string   `json:"next_sync_token"`
	}
	if err := a.do(ctx, "changes.list", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &providers.ChangeSet{
		ChangedEventIDs: out.ChangedEventIDs,
		NextSyncToken:   out.NextSyncToken,
	}, nil
}

// do performs one authenticated request through the circuit breaker.
// Rate-limit and 5xx responses count as breaker failures; other client
// errors pass through as typed ProviderErrors without tripping it.
func (a *RESTAdapter) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	start := time.Now()
	err := a.doOnce(ctx, op, method, path, body, out)
	if a.metrics != nil {
		a.metrics.RecordAPICall(time.Since(start), err)
	}
	return err
}

func (a *RESTAdapter) doOnce(ctx context.Context, op, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", a.apiKey))
	req.Header.Set("Content-Type", "application/json")

	res, err := a.breaker.Execute(func() (interface{}, error) {
		resp, err := a.client.Do(req)
		if err != nil {
			return nil, &providers.ProviderError{Op: op, Err: err}
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, &providers.ProviderError{Op: op, Err: err}
		}

		if resp.StatusCode >= 400 {
			perr := &providers.ProviderError{
				Op:         op,
				StatusCode: resp.StatusCode,
				Err:        errors.New(http.StatusText(resp.StatusCode)),
			}
			if providers.IsRetryable(perr) {
				return nil, perr
			}
			// Terminal client errors are expected responses as far as the
			// breaker is concerned.
			return perr, nil
		}

		return data, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &providers.ProviderError{
				Op:         op,
				StatusCode: http.StatusServiceUnavailable,
				Err:        err,
			}
		}
		return err
	}

	if perr, ok := res.(*providers.ProviderError); ok {
		return perr
	}

	if out != nil {
		data := res.([]byte)
		if len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("failed to decode %s response: %w", op, err)
			}
		}
	}
	return nil
}

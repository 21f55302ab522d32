// Package gateway holds the thin adapters to the engine's external
// collaborators: the calendar provider and the candidate notification
// channel. Failures here are the caller's to downgrade — the engine logs
// and swallows them.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"jobmate/interview-service/internal/interview"
)

const calendarTimeout = 15 * time.Second

// CalendarClient talks to the platform's calendar bridge, which proxies
// the actual provider (Google today). If BaseURL is empty, every call
// returns gracefully with no result — the service keeps scheduling without
// meeting links, same as the discovery service skips scraping without API
// credentials.
type CalendarClient struct {
	BaseURL string
	APIKey  string
	client  *http.Client
}

// NewCalendarClient constructs a client with a shared HTTP client.
func NewCalendarClient(baseURL, apiKey string) *CalendarClient {
	return &CalendarClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		client:  &http.Client{Timeout: calendarTimeout},
	}
}

// eventPayload mirrors the bridge's event resource.
type eventPayload struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Attendees   []string  `json:"attendees,omitempty"`
}

// eventResponse mirrors the bridge's response.
type eventResponse struct {
	EventID     string `json:"eventId"`
	MeetingLink string `json:"meetingLink"`
}

// CreateEvent creates a meeting and returns its id and joinable link.
func (c *CalendarClient) CreateEvent(ctx context.Context, ev interview.CalendarEvent) (*interview.CalendarResult, error) {
	if c.BaseURL == "" {
		return nil, nil
	}
	return c.send(ctx, http.MethodPost, c.BaseURL+"/events", ev)
}

// UpdateEvent moves an existing meeting to the event's new time.
func (c *CalendarClient) UpdateEvent(ctx context.Context, eventID string, ev interview.CalendarEvent) (*interview.CalendarResult, error) {
	if c.BaseURL == "" {
		return nil, nil
	}
	return c.send(ctx, http.MethodPut, c.BaseURL+"/events/"+eventID, ev)
}

// CancelEvent deletes a meeting.
func (c *CalendarClient) CancelEvent(ctx context.Context, eventID string) error {
	if c.BaseURL == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.BaseURL+"/events/"+eventID, nil)
	if err != nil {
		return err
	}
	c.auth(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calendar delete: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("calendar delete: HTTP %d", resp.StatusCode)
	}
	return nil
}

func (c *CalendarClient) send(ctx context.Context, method, url string, ev interview.CalendarEvent) (*interview.CalendarResult, error) {
	body, err := json.Marshal(eventPayload{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       ev.Start,
		End:         ev.End,
		Attendees:   ev.Attendees,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.auth(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendar %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("calendar %s: HTTP %d: %s", method, resp.StatusCode, raw)
	}

	var out eventResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("calendar response decode: %w", err)
	}
	return &interview.CalendarResult{EventID: out.EventID, MeetingLink: out.MeetingLink}, nil
}

func (c *CalendarClient) auth(req *http.Request) {
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
}

package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const requestTimeout = 30 * time.Second

// Client fetches events from a JSON calendar API. The endpoint is
// expected to serve GET {base}/calendars/{id}/events?from=RFC3339&to=RFC3339
// returning {"events": [{"title", "start_time", "end_time"}, ...]}.
type Client struct {
	baseURL    string
	calendarID string
	token      string
	httpClient *http.Client
}

// NewClient creates a calendar client for one calendar.
func NewClient(baseURL, calendarID, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		calendarID: calendarID,
		token:      token,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// Events returns the configured calendar's events intersecting [from, to).
// Events with unusable timestamps are dropped rather than returned.
func (c *Client) Events(ctx context.Context, from, to time.Time) ([]Event, error) {
	endpoint := fmt.Sprintf("%s/calendars/%s/events?from=%s&to=%s",
		c.baseURL,
		url.PathEscape(c.calendarID),
		url.QueryEscape(from.Format(time.RFC3339)),
		url.QueryEscape(to.Format(time.RFC3339)),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building calendar request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching calendar events: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("calendar API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Events []Event `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding calendar response: %w", err)
	}

	events := payload.Events[:0]
	for _, ev := range payload.Events {
		if ev.Valid() {
			events = append(events, ev)
		}
	}
	return events, nil
}

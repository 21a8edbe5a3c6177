package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestEvents_RequestShape(t *testing.T) {
	from := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 14)

	var gotPath, gotAuth string
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"events": []}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "work", "secret-token")
	_, err := c.Events(context.Background(), from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/calendars/work/events" {
		t.Errorf("path = %q, want /calendars/work/events", gotPath)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("auth = %q, want bearer token", gotAuth)
	}
	if got := gotQuery["from"]; len(got) != 1 || got[0] != from.Format(time.RFC3339) {
		t.Errorf("from = %v, want %s", got, from.Format(time.RFC3339))
	}
	if got := gotQuery["to"]; len(got) != 1 || got[0] != to.Format(time.RFC3339) {
		t.Errorf("to = %v, want %s", got, to.Format(time.RFC3339))
	}
}

func TestEvents_DropsInvalidEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"events": [
			{"title": "ok", "start_time": "2025-01-06T10:00:00Z", "end_time": "2025-01-06T11:00:00Z"},
			{"title": "no end", "start_time": "2025-01-06T12:00:00Z"},
			{"title": "inverted", "start_time": "2025-01-06T15:00:00Z", "end_time": "2025-01-06T14:00:00Z"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "personal", "")
	events, err := c.Events(context.Background(), time.Now(), time.Now().AddDate(0, 0, 14))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].Title != "ok" {
		t.Errorf("title = %q, want ok", events[0].Title)
	}
}

func TestEvents_NoAuthHeaderWithoutToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"events": []}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "personal", "")
	if _, err := c.Events(context.Background(), time.Now(), time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("auth = %q, want empty", gotAuth)
	}
}

func TestEvents_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "backend unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "personal", "tok")
	if _, err := c.Events(context.Background(), time.Now(), time.Now().Add(time.Hour)); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}

func TestEvents_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "personal", "")
	if _, err := c.Events(context.Background(), time.Now(), time.Now().Add(time.Hour)); err == nil {
		t.Fatal("expected a decode error")
	}
}

func TestEventValid(t *testing.T) {
	start := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ev   Event
		want bool
	}{
		{"well formed", Event{Title: "x", Start: start, End: start.Add(time.Hour)}, true},
		{"missing end", Event{Title: "x", Start: start}, false},
		{"missing start", Event{Title: "x", End: start}, false},
		{"zero length", Event{Title: "x", Start: start, End: start}, false},
		{"inverted", Event{Title: "x", Start: start.Add(time.Hour), End: start}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.ev.Valid(); got != tc.want {
				t.Errorf("Valid() = %v, want %v", got, tc.want)
			}
		})
	}
}

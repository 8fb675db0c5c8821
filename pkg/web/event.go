// Package web implements the modelboard fixture dashboard: an HTTP server
// with cookie sessions, a YAML-backed model results store and an SSE stream
// of live metric updates. The browser suite under e2e/ runs against it when
// no external dashboard URL is configured.
package web

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the type of event being streamed.
type EventType string

// event type constants for SSE streaming.
const (
	EventTypeMetric EventType = "metric" // live metric sample for a chart widget
	EventTypeModel  EventType = "model"  // model status change
	EventTypeReload EventType = "reload" // results file reloaded from disk
	EventTypePing   EventType = "ping"   // keepalive
)

// Event represents a single event streamed to dashboard clients.
type Event struct {
	Type      EventType `json:"type"`
	Widget    string    `json:"widget,omitempty"` // chart widget the sample belongs to
	Model     string    `json:"model,omitempty"`
	Value     float64   `json:"value,omitempty"`
	Unit      string    `json:"unit,omitempty"`
	Status    string    `json:"status,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMetricEvent creates a metric sample event with current timestamp.
func NewMetricEvent(widget, model string, value float64, unit string) Event {
	return Event{
		Type:      EventTypeMetric,
		Widget:    widget,
		Model:     model,
		Value:     value,
		Unit:      unit,
		Timestamp: time.Now(),
	}
}

// NewModelEvent creates a model status change event.
func NewModelEvent(model, status string) Event {
	return Event{
		Type:      EventTypeModel,
		Model:     model,
		Status:    status,
		Timestamp: time.Now(),
	}
}

// NewReloadEvent creates a reload event signalling the results file changed.
func NewReloadEvent() Event {
	return Event{Type: EventTypeReload, Timestamp: time.Now()}
}

// NewPingEvent creates a keepalive event.
func NewPingEvent() Event {
	return Event{Type: EventTypePing, Timestamp: time.Now()}
}

// JSON returns the event as JSON bytes for SSE streaming.
func (e Event) JSON() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

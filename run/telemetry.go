// Package run orchestrates QA runs: iterate the negotiation simulator,
// verify the candidate against the reference, collect telemetry, and fan
// results out to reports and the run store.
package run

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// TelemetryEvent is one structured event emitted during a run.
type TelemetryEvent struct {
	Name      string                 `json:"name"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
}

// TelemetrySink collects events in memory. Safe for concurrent emitters;
// the run loop and the ingest watcher both feed it.
type TelemetrySink struct {
	mu     sync.Mutex
	events []TelemetryEvent
}

// NewTelemetrySink creates an empty sink.
func NewTelemetrySink() *TelemetrySink {
	return &TelemetrySink{}
}

// Emit records an event with the current time.
func (s *TelemetrySink) Emit(name string, payload map[string]interface{}) {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, TelemetryEvent{
		Name:      name,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}

// Events returns a snapshot of everything emitted so far.
func (s *TelemetrySink) Events() []TelemetryEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TelemetryEvent, len(s.events))
	copy(out, s.events)
	return out
}

// FlushToFile writes the collected events as an indented JSON array.
func (s *TelemetrySink) FlushToFile(path string) error {
	data, err := json.MarshalIndent(s.Events(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

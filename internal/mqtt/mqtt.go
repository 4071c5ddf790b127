// Package mqtt publishes thermostat status and audit events to a broker.
package mqtt

import (
	"encoding/json"
	"time"

	"multizone_thermostat/internal/models"
)

const (
	statusTopic = "status"
	eventsTopic = "events"
)

// Publisher sends telemetry. Failures are reported but never fatal to the caller.
type Publisher interface {
	// PublishStatus sends a retained status snapshot.
	PublishStatus(s models.StatusSnapshot) error

	// PublishEvent sends an audit event.
	PublishEvent(e models.Event) error

	Close() error
}

// StatusTopic and EventsTopic build topic names under prefix.
func StatusTopic(prefix string) string { return prefix + "/" + statusTopic }
func EventsTopic(prefix string) string { return prefix + "/" + eventsTopic }

// EventPayload is the wire form of an audit event.
type EventPayload struct {
	Timestamp   string `json:"timestamp"`
	Type        string `json:"type"`
	Source      string `json:"source,omitempty"`
	Description string `json:"description"`
	Metadata    any    `json:"metadata,omitempty"`
}

func FormatEvent(e models.Event) ([]byte, error) {
	return json.Marshal(EventPayload{
		Timestamp:   e.OccurredAt.UTC().Format(time.RFC3339),
		Type:        e.Type,
		Source:      e.Source,
		Description: e.Description,
		Metadata:    e.Metadata,
	})
}

func FormatStatus(s models.StatusSnapshot) ([]byte, error) {
	return json.Marshal(s)
}

// Nop discards everything; used when no broker is configured.
type Nop struct{}

func (Nop) PublishStatus(models.StatusSnapshot) error { return nil }
func (Nop) PublishEvent(models.Event) error           { return nil }
func (Nop) Close() error                              { return nil }

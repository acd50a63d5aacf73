package model

import "time"

// EventType is the outcome of the PPE event rule for one run.
type EventType string

const (
	EventPPEViolation EventType = "PPE_VIOLATION"
	EventNormal       EventType = "Normal"
)

// Severity grades an event.
type Severity string

const (
	SeverityHigh Severity = "HIGH"
	SeverityLow  Severity = "LOW"
)

// Event is a persisted PPE event record.
type Event struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	Type       EventType `json:"event_type"`
	Severity   Severity  `json:"severity"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"created_at"`
}

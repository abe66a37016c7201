// Package telemetry emits best-effort presence events (logins, logouts,
// heartbeats, sweeps) to an event stream. Callers log and ignore errors;
// nothing here is on the correctness path of the session store.
package telemetry

import "time"

// Event types emitted by the service.
const (
	EventLogin     = "login"
	EventLogout    = "logout"
	EventHeartbeat = "heartbeat"
	EventSweep     = "sweep"
)

// Event is one presence event. Serialized as JSON on the wire (Kafka message
// value, Loki log line).
type Event struct {
	EventType string    `json:"eventType"`
	UserID    string    `json:"userId,omitempty"`
	Device    string    `json:"device,omitempty"`
	IPAddress string    `json:"ipAddress,omitempty"`
	Expired   int64     `json:"expired,omitempty"` // sessions closed, for sweep events
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
}

package websocket

import "time"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionEvent Action = "event"
	ActionPing  Action = "ping"
)

// RequestEnvelope is the single message shape a client sends.
type RequestEnvelope struct {
	Action    Action     `json:"action"`
	EventType string     `json:"event_type,omitempty"`
	Details   *string    `json:"details,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventWarning   Event = "warning"
	EventCompleted Event = "completed"
	EventPong      Event = "pong"
)

// WarningResponse acknowledges a recorded proctoring event.
type WarningResponse struct {
	Event        Event `json:"event"`
	WarningCount int   `json:"warning_count"`
	MaxWarnings  int   `json:"max_warnings"`
}

// CompletedResponse tells the client the test was ended by the server.
type CompletedResponse struct {
	Event  Event  `json:"event"`
	Reason string `json:"reason"`
}

// ErrSessionReplaced is sent before the server drops a socket whose login
// was superseded.
const ErrSessionReplaced = "session invalidated by a newer login"

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

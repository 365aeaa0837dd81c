package models

import "time"

// Event types appended to the camera event log.
const (
	EventMove         = "MOVE"
	EventCapture      = "CAPTURE"
	EventStart        = "START"
	EventStop         = "STOP"
	EventModeChange   = "MODE_CHANGE"
	EventConfigUpdate = "CONFIG_UPDATE"
	EventError        = "ERROR"
)

// CameraEvent is a single log entry.
type CameraEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}

// User is an operator account for the protected API group.
type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}

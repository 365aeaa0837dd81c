package models

import (
	"errors"
	"fmt"
)

// ValidationError reports a rejected configuration update. The update
// is never partially applied.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// PTZError kinds, classifying how a camera command failed.
const (
	PTZKindNetwork  = "network"
	PTZKindAuth     = "auth"
	PTZKindTimeout  = "timeout"
	PTZKindRejected = "rejected"
)

// PTZError is a failed camera move command. The controller never
// retries internally; retry policy belongs to the caller.
type PTZError struct {
	Kind    string
	Message string
}

func (e *PTZError) Error() string {
	return fmt.Sprintf("ptz %s error: %s", e.Kind, e.Message)
}

// CaptureError is a failed still-frame grab (feed unreachable or the
// decode produced nothing usable).
type CaptureError struct {
	Reason string
	Err    error
}

func (e *CaptureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capture failed: %s: %v", e.Reason, e.Err)
	}
	return "capture failed: " + e.Reason
}

func (e *CaptureError) Unwrap() error { return e.Err }

// ErrCaptureTimeout is returned to a single-flight waiter whose wait
// bound expired before the in-flight capture finished. The capture
// itself keeps running.
var ErrCaptureTimeout = errors.New("timed out waiting for in-flight capture")

package models

import "time"

// CyclePhase is the scheduler's state machine phase. Exactly one phase
// holds at any instant and only the scheduler mutates it.
type CyclePhase string

const (
	PhaseIdle      CyclePhase = "idle"
	PhaseMoving    CyclePhase = "moving"
	PhaseDwelling  CyclePhase = "dwelling"
	PhaseCapturing CyclePhase = "capturing"
	PhasePaused    CyclePhase = "paused" // started but automatic mode disabled
)

// CycleStatus is a point-in-time copy of the scheduler state.
type CycleStatus struct {
	Phase        CyclePhase `json:"phase"`
	TargetPreset int        `json:"target_preset"`
	DwellUntil   *time.Time `json:"dwell_until,omitempty"`
	Started      bool       `json:"started"`
	LastError    string     `json:"last_error,omitempty"`
}

// StatusSnapshot is the read-only aggregation served by /ptz/status,
// /health and the WebSocket push. It is recomputed on every query.
type StatusSnapshot struct {
	Status        string       `json:"status"` // "ok" or "degraded"
	CurrentPreset int          `json:"current_preset"`
	AutomaticMode bool         `json:"automatic_mode"`
	Config        CameraConfig `json:"config"`
	Cycle         CycleStatus  `json:"cycle"`
	Cache         CacheStatus  `json:"cache"`
	GeneratedAt   time.Time    `json:"generated_at"`
}

package models

import "time"

// Bounds for the numeric configuration fields. Updates outside these
// ranges are rejected outright, never clamped.
const (
	MinHomePreset = 0
	MaxHomePreset = 4

	MinDwellSeconds = 5
	MaxDwellSeconds = 300

	MinHomeDwellSeconds = 10
	MaxHomeDwellSeconds = 3600

	MinCaptureDelaySeconds = 1
	MaxCaptureDelaySeconds = 60
)

// Preset is a named, indexed camera position.
type Preset struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// CameraConfig is the persisted operating configuration of the patrol.
// Durations are stored in whole seconds, matching what the camera UI
// and the /ptz/config form submit.
type CameraConfig struct {
	ID              int       `json:"id"`
	HomePreset      int       `json:"home_preset"`
	Presets         []Preset  `json:"presets"`
	CurrentPreset   int       `json:"current_preset"`
	DwellTime       int       `json:"dwell_time"`      // seconds at a non-home preset
	HomeDwellTime   int       `json:"home_dwell_time"` // seconds at the home preset
	CaptureDelay    int       `json:"capture_delay"`   // seconds to settle before a capture
	ConnectionURL   string    `json:"connection_url"`
	Username        string    `json:"username"`
	Secret          string    `json:"-"` // camera credential, never serialized out
	IsScheduledMode bool      `json:"is_scheduled_mode"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// PresetByIndex returns the configured preset with the given index.
func (c CameraConfig) PresetByIndex(index int) (Preset, bool) {
	for _, p := range c.Presets {
		if p.Index == index {
			return p, true
		}
	}
	return Preset{}, false
}

// Clone returns a deep copy so callers can never alias the stored
// preset slice.
func (c CameraConfig) Clone() CameraConfig {
	cp := c
	cp.Presets = make([]Preset, len(c.Presets))
	copy(cp.Presets, c.Presets)
	return cp
}

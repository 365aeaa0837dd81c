package models

import "time"

// FrameInfo is one captured still. The latest frame is held in memory
// with its bytes; archive copies live on disk and are immutable once
// written.
type FrameInfo struct {
	Data       []byte    `json:"-"`
	CapturedAt time.Time `json:"captured_at"`
	SourceURL  string    `json:"source_url,omitempty"`
	Path       string    `json:"path,omitempty"`
}

// Age reports how old the frame is at the supplied instant.
func (f FrameInfo) Age(now time.Time) time.Duration {
	return now.Sub(f.CapturedAt)
}

// CacheStatus is the non-blocking introspection view of the snapshot
// cache.
type CacheStatus struct {
	HasFrame    bool      `json:"has_frame"`
	CapturedAt  time.Time `json:"captured_at,omitempty"`
	AgeSeconds  float64   `json:"age_seconds"`
	SourceURL   string    `json:"source_url,omitempty"`
	IsCapturing bool      `json:"is_capturing"`
}

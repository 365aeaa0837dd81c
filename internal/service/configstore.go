package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"ptzcam/internal/logger"
	"ptzcam/internal/models"
	"ptzcam/internal/repository"
)

// ConfigService owns the camera configuration. Updates are validated
// all-or-nothing and persisted before they become visible; readers
// always get a consistent point-in-time copy.
type ConfigService struct {
	repo   repository.ConfigRepo
	events repository.EventRepo
	log    *logger.Logger

	mu      sync.RWMutex
	current models.CameraConfig
}

// NewConfigService loads the persisted configuration; on first run it
// validates, persists and adopts the seed.
func NewConfigService(ctx context.Context, repo repository.ConfigRepo, events repository.EventRepo, seed models.CameraConfig, log *logger.Logger) (*ConfigService, error) {
	loaded, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load camera config: %w", err)
	}
	if loaded.ID == 0 {
		seed.ID = 1
		if len(seed.Presets) == 0 {
			seed.Presets = defaultPresets()
		}
		seed.UpdatedAt = time.Now().UTC()
		if err := validateConfig(seed); err != nil {
			return nil, fmt.Errorf("seed config: %w", err)
		}
		if err := repo.Save(ctx, seed); err != nil {
			return nil, fmt.Errorf("persist seed config: %w", err)
		}
		log.Infow("config_seeded", "home_preset", seed.HomePreset, "presets", len(seed.Presets))
		loaded = seed
	}
	return &ConfigService{repo: repo, events: events, log: log, current: loaded}, nil
}

func defaultPresets() []models.Preset {
	presets := make([]models.Preset, 0, models.MaxHomePreset+1)
	for i := models.MinHomePreset; i <= models.MaxHomePreset; i++ {
		presets = append(presets, models.Preset{Index: i, Name: fmt.Sprintf("Preset %d", i)})
	}
	return presets
}

// Get returns a consistent point-in-time copy.
func (s *ConfigService) Get() models.CameraConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Update applies a partial update atomically: either every field is
// accepted, persisted and visible, or nothing changes. A blank secret
// never overwrites the stored credential.
func (s *ConfigService) Update(ctx context.Context, u ConfigUpdate) (models.CameraConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Clone()
	if u.HomePreset != nil {
		next.HomePreset = *u.HomePreset
	}
	if u.DwellTime != nil {
		next.DwellTime = *u.DwellTime
	}
	if u.HomeDwellTime != nil {
		next.HomeDwellTime = *u.HomeDwellTime
	}
	if u.CaptureDelay != nil {
		next.CaptureDelay = *u.CaptureDelay
	}
	if u.ConnectionURL != nil {
		next.ConnectionURL = *u.ConnectionURL
	}
	if u.Username != nil {
		next.Username = *u.Username
	}
	if u.Secret != nil && strings.TrimSpace(*u.Secret) != "" {
		next.Secret = *u.Secret
	}
	if u.Presets != nil {
		next.Presets = make([]models.Preset, len(u.Presets))
		copy(next.Presets, u.Presets)
	}

	if err := validateConfig(next); err != nil {
		return models.CameraConfig{}, err
	}

	next.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, next); err != nil {
		return models.CameraConfig{}, fmt.Errorf("persist config update: %w", err)
	}
	s.current = next

	_ = s.events.Append(ctx, models.CameraEvent{
		Type:        models.EventConfigUpdate,
		Description: "Configuration updated",
		Metadata: map[string]any{
			"dwell_time":      next.DwellTime,
			"home_dwell_time": next.HomeDwellTime,
			"capture_delay":   next.CaptureDelay,
			"home_preset":     next.HomePreset,
		},
	})

	return next.Clone(), nil
}

// SetCurrentPreset records the last completed move target.
func (s *ConfigService) SetCurrentPreset(ctx context.Context, index int) error {
	return s.mutate(ctx, func(c *models.CameraConfig) {
		c.CurrentPreset = index
	})
}

// SetScheduledMode toggles the automatic rotation flag.
func (s *ConfigService) SetScheduledMode(ctx context.Context, enabled bool) error {
	return s.mutate(ctx, func(c *models.CameraConfig) {
		c.IsScheduledMode = enabled
	})
}

// mutate applies a small internal change through the same
// persist-before-visible path as Update.
func (s *ConfigService) mutate(ctx context.Context, fn func(*models.CameraConfig)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Clone()
	fn(&next)
	next.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, next); err != nil {
		return fmt.Errorf("persist config change: %w", err)
	}
	s.current = next
	return nil
}

func validateConfig(c models.CameraConfig) error {
	if c.HomePreset < models.MinHomePreset || c.HomePreset > models.MaxHomePreset {
		return &models.ValidationError{
			Field:   "home_preset",
			Message: fmt.Sprintf("must be between %d and %d", models.MinHomePreset, models.MaxHomePreset),
		}
	}
	if c.DwellTime < models.MinDwellSeconds || c.DwellTime > models.MaxDwellSeconds {
		return &models.ValidationError{
			Field:   "dwell_time",
			Message: fmt.Sprintf("must be between %d and %d seconds", models.MinDwellSeconds, models.MaxDwellSeconds),
		}
	}
	if c.HomeDwellTime < models.MinHomeDwellSeconds || c.HomeDwellTime > models.MaxHomeDwellSeconds {
		return &models.ValidationError{
			Field:   "home_dwell_time",
			Message: fmt.Sprintf("must be between %d and %d seconds", models.MinHomeDwellSeconds, models.MaxHomeDwellSeconds),
		}
	}
	if c.CaptureDelay < models.MinCaptureDelaySeconds || c.CaptureDelay > models.MaxCaptureDelaySeconds {
		return &models.ValidationError{
			Field:   "capture_delay",
			Message: fmt.Sprintf("must be between %d and %d seconds", models.MinCaptureDelaySeconds, models.MaxCaptureDelaySeconds),
		}
	}
	if len(c.Presets) == 0 {
		return &models.ValidationError{Field: "presets", Message: "at least one preset is required"}
	}
	seen := make(map[int]bool, len(c.Presets))
	for _, p := range c.Presets {
		if p.Index < models.MinHomePreset || p.Index > models.MaxHomePreset {
			return &models.ValidationError{
				Field:   "presets",
				Message: fmt.Sprintf("unknown preset index %d", p.Index),
			}
		}
		if seen[p.Index] {
			return &models.ValidationError{
				Field:   "presets",
				Message: fmt.Sprintf("duplicate preset index %d", p.Index),
			}
		}
		seen[p.Index] = true
	}
	if !seen[c.HomePreset] {
		return &models.ValidationError{
			Field:   "home_preset",
			Message: fmt.Sprintf("preset %d is not in the configured sequence", c.HomePreset),
		}
	}
	if strings.TrimSpace(c.ConnectionURL) == "" {
		return &models.ValidationError{Field: "connection_url", Message: "must not be empty"}
	}
	return nil
}

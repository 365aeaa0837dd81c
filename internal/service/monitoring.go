package service

import (
	"context"
	"time"

	"ptzcam/internal/models"
)

// StatusService is the read-only aggregation of config, cycle and
// cache state. Snapshots are recomputed on every query and carry no
// independent lifecycle.
type StatusService struct {
	config ConfigStore
	cycle  Cycle
	cache  Cache
}

func NewStatusService(config ConfigStore, cycle Cycle, cache Cache) *StatusService {
	return &StatusService{config: config, cycle: cycle, cache: cache}
}

func (s *StatusService) GetStatus(ctx context.Context) (models.StatusSnapshot, error) {
	cfg := s.config.Get()
	cfg.Secret = "" // the credential is not part of any external view

	cycle := s.cycle.Status()

	status := "ok"
	if cycle.LastError != "" {
		status = "degraded"
	}

	return models.StatusSnapshot{
		Status:        status,
		CurrentPreset: cfg.CurrentPreset,
		AutomaticMode: cfg.IsScheduledMode,
		Config:        cfg,
		Cycle:         cycle,
		Cache:         s.cache.Status(),
		GeneratedAt:   time.Now().UTC(),
	}, nil
}

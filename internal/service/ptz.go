package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ptzcam/internal/camera"
	"ptzcam/internal/logger"
	"ptzcam/internal/models"
	"ptzcam/internal/repository"
)

// PositionService wraps the camera controller with the process-wide
// serialization gate: concurrent conflicting move commands to the same
// camera produce undefined physical behavior, so exactly one move is
// in flight at a time. Retry policy belongs to callers.
type PositionService struct {
	ctrl   CameraController
	config ConfigStore
	events repository.EventRepo
	log    *logger.Logger

	gate sync.Mutex
}

func NewPositionService(ctrl CameraController, config ConfigStore, events repository.EventRepo, log *logger.Logger) *PositionService {
	return &PositionService{ctrl: ctrl, config: config, events: events, log: log}
}

// MoveTo issues a single serialized move command. On success the
// configured current preset is updated and a MOVE event appended.
func (s *PositionService) MoveTo(ctx context.Context, index int) error {
	cfg := s.config.Get()
	preset, ok := cfg.PresetByIndex(index)
	if !ok {
		return &models.PTZError{
			Kind:    models.PTZKindRejected,
			Message: fmt.Sprintf("preset %d is not configured", index),
		}
	}

	s.gate.Lock()
	defer s.gate.Unlock()

	target := camera.Target{
		ConnectionURL: cfg.ConnectionURL,
		Username:      cfg.Username,
		Secret:        cfg.Secret,
	}
	if err := s.ctrl.GotoPreset(ctx, target, index); err != nil {
		var pe *models.PTZError
		if !errors.As(err, &pe) {
			err = &models.PTZError{Kind: models.PTZKindNetwork, Message: err.Error()}
		}
		return err
	}

	if err := s.config.SetCurrentPreset(ctx, index); err != nil {
		s.log.Warnw("current_preset_not_persisted", "preset", index, "err", err)
	}
	_ = s.events.Append(ctx, models.CameraEvent{
		Type:        models.EventMove,
		Description: fmt.Sprintf("Moved to preset %d (%s)", index, preset.Name),
		Metadata:    map[string]any{"preset": index},
	})
	return nil
}

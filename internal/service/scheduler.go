package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ptzcam/internal/logger"
	"ptzcam/internal/models"
	"ptzcam/internal/repository"
)

const (
	defaultHomeRetryBackoff = 30 * time.Second
	defaultMoveFailBackoff  = 5 * time.Second
)

// CycleService drives the automatic rotation through the configured
// presets on a single background goroutine, so state transitions never
// interleave with themselves. All waits are interruptible: stopping
// the cycle or disabling automatic mode wakes the scheduler instead of
// waiting out the remaining dwell.
type CycleService struct {
	config   ConfigStore
	position Position
	cache    Cache
	events   repository.EventRepo
	log      *logger.Logger

	homeRetryBackoff time.Duration
	moveFailBackoff  time.Duration

	wake chan struct{}

	mu         sync.Mutex
	phase      models.CyclePhase
	target     int
	dwellUntil *time.Time
	started    bool
	lastErr    string
	next       int // rotation pointer; -1 means "start at the home anchor"
}

func NewCycleService(config ConfigStore, position Position, cache Cache, events repository.EventRepo, opts Options, log *logger.Logger) *CycleService {
	s := &CycleService{
		config:           config,
		position:         position,
		cache:            cache,
		events:           events,
		log:              log,
		homeRetryBackoff: opts.HomeRetryBackoff,
		moveFailBackoff:  opts.MoveFailBackoff,
		wake:             make(chan struct{}, 1),
		phase:            models.PhaseIdle,
		next:             -1,
	}
	if s.homeRetryBackoff <= 0 {
		s.homeRetryBackoff = defaultHomeRetryBackoff
	}
	if s.moveFailBackoff <= 0 {
		s.moveFailBackoff = defaultMoveFailBackoff
	}
	return s
}

// Run is the scheduler loop. It exits only when ctx is cancelled; no
// camera or capture failure is fatal.
func (s *CycleService) Run(ctx context.Context) {
	s.log.Infow("cycle_scheduler_running")
	for {
		if ctx.Err() != nil {
			s.settle(models.PhaseIdle)
			s.log.Infow("cycle_scheduler_stopped")
			return
		}

		if !s.isStarted() {
			s.settle(models.PhaseIdle)
			s.waitForWake(ctx)
			continue
		}
		cfg := s.config.Get()
		if !cfg.IsScheduledMode {
			s.settle(models.PhasePaused)
			s.waitForWake(ctx)
			continue
		}

		s.step(ctx, cfg)
	}
}

// step performs one stop of the rotation: move, dwell, settle, capture,
// advance. Any interrupted wait returns early so Run re-checks flags.
func (s *CycleService) step(ctx context.Context, cfg models.CameraConfig) {
	if len(cfg.Presets) == 0 {
		s.settle(models.PhaseIdle)
		s.waitForWake(ctx)
		return
	}

	idx := s.rotationIndex(cfg)
	preset := cfg.Presets[idx]

	s.setPhase(models.PhaseMoving, preset.Index, nil)
	if err := s.position.MoveTo(ctx, preset.Index); err != nil {
		s.recordError(ctx, fmt.Sprintf("move to preset %d failed", preset.Index), err)
		if preset.Index == cfg.HomePreset {
			// skipping the home anchor would desynchronize the
			// rotation, so retry the same transition after backoff
			s.settle(models.PhaseIdle)
			s.sleep(ctx, s.homeRetryBackoff)
		} else {
			s.advance(idx, cfg)
			s.sleep(ctx, s.moveFailBackoff)
		}
		return
	}

	dwell := dwellFor(cfg, preset.Index)
	until := time.Now().Add(dwell)
	s.setPhase(models.PhaseDwelling, preset.Index, &until)
	if !s.sleep(ctx, dwell) {
		return
	}

	s.setPhase(models.PhaseCapturing, preset.Index, nil)
	if !s.sleep(ctx, time.Duration(cfg.CaptureDelay)*time.Second) {
		return
	}
	if _, err := s.cache.Refresh(ctx); err != nil {
		// a missed frame is preferable to a stalled rotation
		s.recordError(ctx, fmt.Sprintf("capture at preset %d failed", preset.Index), err)
	} else {
		s.clearError()
		_ = s.events.Append(ctx, models.CameraEvent{
			Type:        models.EventCapture,
			Description: fmt.Sprintf("Captured frame at preset %d", preset.Index),
			Metadata:    map[string]any{"preset": preset.Index},
		})
	}

	s.advance(idx, cfg)
}

// rotationIndex resolves the scheduler's own pointer, anchoring a
// fresh cycle at the home preset. Manual jumps never touch it.
func (s *CycleService) rotationIndex(cfg models.CameraConfig) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next < 0 || s.next >= len(cfg.Presets) {
		s.next = 0
		for i, p := range cfg.Presets {
			if p.Index == cfg.HomePreset {
				s.next = i
				break
			}
		}
	}
	return s.next
}

func (s *CycleService) advance(idx int, cfg models.CameraConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = (idx + 1) % len(cfg.Presets)
}

func dwellFor(cfg models.CameraConfig, presetIndex int) time.Duration {
	if presetIndex == cfg.HomePreset {
		return time.Duration(cfg.HomeDwellTime) * time.Second
	}
	return time.Duration(cfg.DwellTime) * time.Second
}

// Start sets the started flag. Returns false when already started.
func (s *CycleService) Start(ctx context.Context) bool {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return false
	}
	s.started = true
	s.mu.Unlock()

	_ = s.events.Append(ctx, models.CameraEvent{Type: models.EventStart, Description: "Cycle started"})
	s.wakeUp()
	return true
}

// Stop clears the started flag and interrupts any dwell in progress.
// A move or capture already in flight completes before the machine
// settles at idle. Returns false when not started.
func (s *CycleService) Stop(ctx context.Context) bool {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return false
	}
	s.started = false
	s.next = -1 // the next start re-anchors at home
	s.mu.Unlock()

	_ = s.events.Append(ctx, models.CameraEvent{Type: models.EventStop, Description: "Cycle stopped"})
	s.wakeUp()
	return true
}

// SetAutomaticMode toggles the persisted scheduled-mode flag without
// touching the started flag.
func (s *CycleService) SetAutomaticMode(ctx context.Context, enabled bool) error {
	if err := s.config.SetScheduledMode(ctx, enabled); err != nil {
		return err
	}
	_ = s.events.Append(ctx, models.CameraEvent{
		Type:        models.EventModeChange,
		Description: fmt.Sprintf("Automatic mode set to %t", enabled),
		Metadata:    map[string]any{"automatic_mode": enabled},
	})
	s.wakeUp()
	return nil
}

// GotoPreset is the manual jump. It rides the controller's
// serialization gate and leaves the cycle state alone: the scheduler
// resumes its own rotation from wherever it left off.
func (s *CycleService) GotoPreset(ctx context.Context, index int) error {
	return s.position.MoveTo(ctx, index)
}

// CaptureNow bypasses cache freshness but still respects the
// single-flight capture guarantee.
func (s *CycleService) CaptureNow(ctx context.Context) (models.FrameInfo, error) {
	return s.cache.Refresh(ctx)
}

// Status returns a point-in-time copy of the scheduler state.
func (s *CycleService) Status() models.CycleStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := models.CycleStatus{
		Phase:        s.phase,
		TargetPreset: s.target,
		Started:      s.started,
		LastError:    s.lastErr,
	}
	if s.dwellUntil != nil {
		t := *s.dwellUntil
		st.DwellUntil = &t
	}
	return st
}

// sleep waits d unless the context is cancelled or a wake signal
// arrives; false means the caller should bail out and re-check flags.
func (s *CycleService) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		// still honor a pending wake so flag changes are not missed
		select {
		case <-s.wake:
			return false
		default:
			return true
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-s.wake:
		return false
	case <-timer.C:
		return true
	}
}

// waitForWake blocks at idle/paused until something changes.
func (s *CycleService) waitForWake(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-s.wake:
		return true
	}
}

func (s *CycleService) wakeUp() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *CycleService) setPhase(phase models.CyclePhase, target int, dwellUntil *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = phase
	s.target = target
	s.dwellUntil = dwellUntil
}

func (s *CycleService) settle(phase models.CyclePhase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = phase
	s.dwellUntil = nil
}

func (s *CycleService) isStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *CycleService) recordError(ctx context.Context, what string, err error) {
	s.mu.Lock()
	s.lastErr = fmt.Sprintf("%s: %v", what, err)
	s.mu.Unlock()

	s.log.Errorw("cycle_step_failed", "what", what, "err", err)
	_ = s.events.Append(ctx, models.CameraEvent{
		Type:        models.EventError,
		Description: what,
		Metadata:    map[string]any{"error": err.Error()},
	})
}

func (s *CycleService) clearError() {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
}

package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ptzcam/internal/models"
)

type fakeConfigStore struct {
	mu  sync.Mutex
	cfg models.CameraConfig
}

func newFakeConfigStore(cfg models.CameraConfig) *fakeConfigStore {
	return &fakeConfigStore{cfg: cfg}
}

func (f *fakeConfigStore) Get() models.CameraConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg.Clone()
}
func (f *fakeConfigStore) Update(ctx context.Context, u ConfigUpdate) (models.CameraConfig, error) {
	return f.Get(), nil
}
func (f *fakeConfigStore) SetCurrentPreset(ctx context.Context, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg.CurrentPreset = index
	return nil
}
func (f *fakeConfigStore) SetScheduledMode(ctx context.Context, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg.IsScheduledMode = enabled
	return nil
}

type fakePosition struct {
	failIndex int // moves to this preset fail; -1 disables
	failErr   error

	mu     sync.Mutex
	visits []int
	seen   chan int
}

func newFakePosition() *fakePosition {
	return &fakePosition{failIndex: -1, seen: make(chan int, 64)}
}

func (f *fakePosition) MoveTo(ctx context.Context, index int) error {
	f.mu.Lock()
	f.visits = append(f.visits, index)
	f.mu.Unlock()
	select {
	case f.seen <- index:
	default:
	}
	if index == f.failIndex {
		return f.failErr
	}
	return nil
}

func (f *fakePosition) visited() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.visits))
	copy(out, f.visits)
	return out
}

type fakeCacheStub struct {
	refreshErr error
	refreshes  atomic.Int32
}

func (f *fakeCacheStub) Get(ctx context.Context, forceRefresh bool, sourceURL string) (models.FrameInfo, error) {
	return f.Refresh(ctx)
}
func (f *fakeCacheStub) Put(ctx context.Context, data []byte, sourceURL string) (models.FrameInfo, error) {
	return models.FrameInfo{}, nil
}
func (f *fakeCacheStub) Refresh(ctx context.Context) (models.FrameInfo, error) {
	f.refreshes.Add(1)
	if f.refreshErr != nil {
		return models.FrameInfo{}, f.refreshErr
	}
	return models.FrameInfo{Data: []byte{1}, CapturedAt: time.Now().UTC()}, nil
}
func (f *fakeCacheStub) Latest() (models.FrameInfo, bool) { return models.FrameInfo{}, false }
func (f *fakeCacheStub) Status() models.CacheStatus       { return models.CacheStatus{} }

// patrolConfig returns a three-preset rotation with zeroed waits so
// the scheduler spins fast under test.
func patrolConfig() models.CameraConfig {
	return models.CameraConfig{
		ID:         1,
		HomePreset: 0,
		Presets: []models.Preset{
			{Index: 0, Name: "Home"},
			{Index: 1, Name: "Yard"},
			{Index: 2, Name: "Dock"},
		},
		ConnectionURL:   "rtsp://cam.local/stream1",
		IsScheduledMode: true,
	}
}

func newTestCycle(cfg *fakeConfigStore, pos *fakePosition, cache *fakeCacheStub) *CycleService {
	return NewCycleService(cfg, pos, cache, &localEventRepo{}, Options{
		HomeRetryBackoff: time.Millisecond,
		MoveFailBackoff:  time.Millisecond,
	}, testLogger())
}

func collectVisits(t *testing.T, pos *fakePosition, n int) []int {
	t.Helper()
	out := make([]int, 0, n)
	deadline := time.After(5 * time.Second)
	for len(out) < n {
		select {
		case v := <-pos.seen:
			out = append(out, v)
		case <-deadline:
			t.Fatalf("timed out after %d visits: %v", len(out), out)
		}
	}
	return out
}

func waitForPhase(t *testing.T, cy *CycleService, phase models.CyclePhase) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cy.Status().Phase == phase {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("phase never reached %q, stuck at %q", phase, cy.Status().Phase)
}

func TestCycleService_RotationAnchorsAtHome(t *testing.T) {
	cfgStore := newFakeConfigStore(patrolConfig())
	pos := newFakePosition()
	cache := &fakeCacheStub{}
	cy := newTestCycle(cfgStore, pos, cache)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cy.Run(ctx)

	if !cy.Start(ctx) {
		t.Fatalf("Start returned false on first call")
	}
	if cy.Start(ctx) {
		t.Fatalf("second Start should report already running")
	}

	visits := collectVisits(t, pos, 6)
	want := []int{0, 1, 2, 0, 1, 2}
	for i := range want {
		if visits[i] != want[i] {
			t.Fatalf("rotation order %v, want %v", visits, want)
		}
	}
	if cache.refreshes.Load() < 5 {
		t.Fatalf("expected a capture per visited preset, got %d", cache.refreshes.Load())
	}
}

func TestCycleService_StopInterruptsDwell(t *testing.T) {
	cfg := patrolConfig()
	cfg.DwellTime = 3600
	cfg.HomeDwellTime = 3600
	cfgStore := newFakeConfigStore(cfg)
	pos := newFakePosition()
	cy := newTestCycle(cfgStore, pos, &fakeCacheStub{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cy.Run(ctx)

	cy.Start(ctx)
	waitForPhase(t, cy, models.PhaseDwelling)
	if cy.Status().DwellUntil == nil {
		t.Fatalf("dwelling without a dwell deadline")
	}

	stopped := time.Now()
	if !cy.Stop(ctx) {
		t.Fatalf("Stop returned false while running")
	}
	waitForPhase(t, cy, models.PhaseIdle)
	if elapsed := time.Since(stopped); elapsed > 2*time.Second {
		t.Fatalf("stop took %v, dwell was not interrupted", elapsed)
	}
	if cy.Stop(ctx) {
		t.Fatalf("second Stop should report not running")
	}
}

func TestCycleService_FailedNonHomeMoveAdvances(t *testing.T) {
	cfgStore := newFakeConfigStore(patrolConfig())
	pos := newFakePosition()
	pos.failIndex = 1
	pos.failErr = &models.PTZError{Kind: models.PTZKindNetwork, Message: "unreachable"}
	cache := &fakeCacheStub{}
	cy := newTestCycle(cfgStore, pos, cache)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cy.Run(ctx)
	cy.Start(ctx)

	visits := collectVisits(t, pos, 4)
	want := []int{0, 1, 2, 0}
	for i := range want {
		if visits[i] != want[i] {
			t.Fatalf("rotation after failure %v, want %v", visits, want)
		}
	}
	if cache.refreshes.Load() == 0 {
		t.Fatalf("rotation never reached a capture after the failure")
	}
}

func TestCycleService_FailedHomeMoveRetriesSameAnchor(t *testing.T) {
	cfgStore := newFakeConfigStore(patrolConfig())
	pos := newFakePosition()
	pos.failIndex = 0
	pos.failErr = &models.PTZError{Kind: models.PTZKindTimeout, Message: "no response"}
	cy := newTestCycle(cfgStore, pos, &fakeCacheStub{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cy.Run(ctx)
	cy.Start(ctx)

	visits := collectVisits(t, pos, 3)
	for i, v := range visits {
		if v != 0 {
			t.Fatalf("home retry drifted to preset %d at attempt %d: %v", v, i, visits)
		}
	}
	if cy.Status().LastError == "" {
		t.Fatalf("expected last error to be recorded")
	}
}

func TestCycleService_ManualGotoLeavesRotationAlone(t *testing.T) {
	cfgStore := newFakeConfigStore(patrolConfig())
	pos := newFakePosition()
	cy := newTestCycle(cfgStore, pos, &fakeCacheStub{})

	// no Run goroutine: the scheduler is idle
	if err := cy.GotoPreset(context.Background(), 2); err != nil {
		t.Fatalf("manual goto failed: %v", err)
	}
	if got := pos.visited(); len(got) != 1 || got[0] != 2 {
		t.Fatalf("manual goto visits=%v", got)
	}
	st := cy.Status()
	if st.Started || st.Phase != models.PhaseIdle {
		t.Fatalf("manual goto disturbed cycle state: %+v", st)
	}
}

func TestCycleService_AutomaticOffPausesRotation(t *testing.T) {
	cfgStore := newFakeConfigStore(patrolConfig())
	pos := newFakePosition()
	cy := newTestCycle(cfgStore, pos, &fakeCacheStub{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cy.Run(ctx)
	cy.Start(ctx)
	collectVisits(t, pos, 2)

	if err := cy.SetAutomaticMode(ctx, false); err != nil {
		t.Fatalf("SetAutomaticMode: %v", err)
	}
	waitForPhase(t, cy, models.PhasePaused)
	if cfgStore.Get().IsScheduledMode {
		t.Fatalf("scheduled-mode flag not persisted")
	}
	st := cy.Status()
	if !st.Started {
		t.Fatalf("pausing must not clear the started flag")
	}

	// drain visits buffered before the pause took effect
	for {
		select {
		case <-pos.seen:
			continue
		default:
		}
		break
	}

	// flipping the flag back resumes the rotation
	if err := cy.SetAutomaticMode(ctx, true); err != nil {
		t.Fatalf("SetAutomaticMode: %v", err)
	}
	collectVisits(t, pos, 1)
}

func TestCycleService_CaptureFailureDoesNotStallRotation(t *testing.T) {
	cfgStore := newFakeConfigStore(patrolConfig())
	pos := newFakePosition()
	cache := &fakeCacheStub{refreshErr: &models.CaptureError{Reason: "ffmpeg exited 1"}}
	cy := newTestCycle(cfgStore, pos, cache)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cy.Run(ctx)
	cy.Start(ctx)

	visits := collectVisits(t, pos, 4)
	if len(visits) < 4 {
		t.Fatalf("rotation stalled after capture failures: %v", visits)
	}
	if cy.Status().LastError == "" {
		t.Fatalf("capture failure not recorded in status")
	}
}

func TestCycleService_CaptureNowDelegatesToCache(t *testing.T) {
	cache := &fakeCacheStub{}
	cy := newTestCycle(newFakeConfigStore(patrolConfig()), newFakePosition(), cache)

	if _, err := cy.CaptureNow(context.Background()); err != nil {
		t.Fatalf("CaptureNow: %v", err)
	}
	if cache.refreshes.Load() != 1 {
		t.Fatalf("expected one forced refresh, got %d", cache.refreshes.Load())
	}
}

func TestDwellFor(t *testing.T) {
	cfg := patrolConfig()
	cfg.DwellTime = 30
	cfg.HomeDwellTime = 120
	if got := dwellFor(cfg, 0); got != 120*time.Second {
		t.Fatalf("home dwell=%v", got)
	}
	if got := dwellFor(cfg, 2); got != 30*time.Second {
		t.Fatalf("non-home dwell=%v", got)
	}
}

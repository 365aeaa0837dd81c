package service

import (
	"context"
	"time"

	"ptzcam/internal/camera"
	"ptzcam/internal/logger"
	"ptzcam/internal/models"
	"ptzcam/internal/repository"
)

// CameraController issues one physical "recall preset" command. The
// wire protocol behind it is a black box; it can fail and is never
// retried at this level.
type CameraController interface {
	GotoPreset(ctx context.Context, target camera.Target, index int) error
}

// FrameGrabber captures one still frame from the live feed. Blocking,
// transient connection per call, no internal retry.
type FrameGrabber interface {
	Capture(ctx context.Context, sourceURL string) ([]byte, error)
}

// ConfigUpdate is a partial configuration update. Nil fields are left
// unchanged; a nil or blank Secret preserves the stored credential.
type ConfigUpdate struct {
	HomePreset    *int
	DwellTime     *int
	HomeDwellTime *int
	CaptureDelay  *int
	ConnectionURL *string
	Username      *string
	Secret        *string
	Presets       []models.Preset
}

// ConfigStore holds the validated, persisted camera configuration.
type ConfigStore interface {
	Get() models.CameraConfig
	Update(ctx context.Context, u ConfigUpdate) (models.CameraConfig, error)
	SetCurrentPreset(ctx context.Context, index int) error
	SetScheduledMode(ctx context.Context, enabled bool) error
}

// Position serializes move commands to the camera.
type Position interface {
	MoveTo(ctx context.Context, index int) error
}

// Cache serves the freshest available frame and guarantees at most one
// capture runs at a time.
type Cache interface {
	Get(ctx context.Context, forceRefresh bool, sourceURL string) (models.FrameInfo, error)
	Put(ctx context.Context, data []byte, sourceURL string) (models.FrameInfo, error)
	Refresh(ctx context.Context) (models.FrameInfo, error)
	Latest() (models.FrameInfo, bool)
	Status() models.CacheStatus
}

// Cycle is the automatic rotation scheduler. Run is the long-lived
// background loop; everything else is safe to call concurrently.
type Cycle interface {
	Run(ctx context.Context)
	Start(ctx context.Context) bool
	Stop(ctx context.Context) bool
	SetAutomaticMode(ctx context.Context, enabled bool) error
	GotoPreset(ctx context.Context, index int) error
	CaptureNow(ctx context.Context) (models.FrameInfo, error)
	Status() models.CycleStatus
}

// Monitoring exposes the read-only status snapshot.
type Monitoring interface {
	GetStatus(ctx context.Context) (models.StatusSnapshot, error)
}

// EventLog exposes the append-only camera event log with filtering.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.CameraEvent, error)
}

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// LogFilter supports history filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", MOVE, CAPTURE, START, STOP, MODE_CHANGE, CONFIG_UPDATE, ERROR
}

// Options tunes cache and scheduler timing. Zero values pick defaults.
type Options struct {
	FreshnessWindow  time.Duration // max cache age for non-forcing reads
	CaptureWait      time.Duration // single-flight waiter bound
	HomeRetryBackoff time.Duration // retry delay after a failed home move
	MoveFailBackoff  time.Duration // delay before advancing past a failed preset
}

// Service aggregates all sub-services.
type Service struct {
	Config     ConfigStore
	Position   Position
	Cache      Cache
	Cycle      Cycle
	Monitoring Monitoring
	EventLog   EventLog
	Auth       Authorization
}

// NewService wires the repository layer and camera capabilities into
// concrete services. seed supplies the initial configuration the first
// time the process runs against an empty database.
func NewService(ctx context.Context, repos *repository.Repository, ctrl CameraController, grabber FrameGrabber, seed models.CameraConfig, opts Options, log *logger.Logger) (*Service, error) {
	cfg, err := NewConfigService(ctx, repos.ConfigRepo, repos.EventRepo, seed, log)
	if err != nil {
		return nil, err
	}
	position := NewPositionService(ctrl, cfg, repos.EventRepo, log)
	cache := NewSnapshotCacheService(grabber, repos.FrameRepo, cfg, opts, log)
	cycle := NewCycleService(cfg, position, cache, repos.EventRepo, opts, log)

	return &Service{
		Config:     cfg,
		Position:   position,
		Cache:      cache,
		Cycle:      cycle,
		Monitoring: NewStatusService(cfg, cycle, cache),
		EventLog:   NewEventLogService(repos.EventRepo),
		Auth:       NewAuthService(repos.Auth),
	}, nil
}

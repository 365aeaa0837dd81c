package repository

import (
	"context"
	"database/sql"
	"time"

	"ptzcam/internal/models"
)

type ConfigRepo interface {
	Save(ctx context.Context, c models.CameraConfig) error
	Load(ctx context.Context) (models.CameraConfig, error)
}

// FrameRepo owns the frames directory: a "latest.jpg" plus immutable
// timestamp-named archive copies, pruned oldest-first.
type FrameRepo interface {
	Store(data []byte, capturedAt time.Time) (string, error)
	Latest() ([]byte, time.Time, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.CameraEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.CameraEvent, error)
}

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

type Repository struct {
	ConfigRepo ConfigRepo
	FrameRepo  FrameRepo
	EventRepo  EventRepo
	Auth       Authorization
}

// NewRepository wires the SQLite-backed repos plus the filesystem
// frame store rooted at framesDir. retention <= 0 disables pruning.
func NewRepository(db *sql.DB, framesDir string, retention int) *Repository {
	return &Repository{
		ConfigRepo: NewConfigSQLite(db),
		FrameRepo:  NewFrameFS(framesDir, retention),
		EventRepo:  NewEventSQLite(db),
		Auth:       NewUserRepository(db),
	}
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"ptzcam/internal/models"
)

type ConfigSQLite struct {
	db *sql.DB
}

func NewConfigSQLite(db *sql.DB) *ConfigSQLite {
	return &ConfigSQLite{db: db}
}

const (
	cameraConfigRowID = 1

	insertOrUpdateConfigSQL = `
		INSERT INTO camera_config (id, home_preset, presets, current_preset, dwell_s, home_dwell_s, capture_delay_s, connection_url, username, secret, scheduled, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			home_preset=excluded.home_preset,
			presets=excluded.presets,
			current_preset=excluded.current_preset,
			dwell_s=excluded.dwell_s,
			home_dwell_s=excluded.home_dwell_s,
			capture_delay_s=excluded.capture_delay_s,
			connection_url=excluded.connection_url,
			username=excluded.username,
			secret=excluded.secret,
			scheduled=excluded.scheduled,
			updated_at=excluded.updated_at
	`

	selectConfigSQL = `
		SELECT id, home_preset, presets, current_preset, dwell_s, home_dwell_s, capture_delay_s, connection_url, username, secret, scheduled, updated_at
		FROM camera_config WHERE id=?
	`
)

func marshalPresets(presets []models.Preset) (string, error) {
	b, err := json.Marshal(presets)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalPresets(s string) ([]models.Preset, error) {
	if s == "" {
		return nil, nil
	}
	var presets []models.Preset
	if err := json.Unmarshal([]byte(s), &presets); err != nil {
		return nil, err
	}
	return presets, nil
}

// Save upserts the single camera_config row (id always 1).
func (r *ConfigSQLite) Save(ctx context.Context, c models.CameraConfig) error {
	presetsJSON, err := marshalPresets(c.Presets)
	if err != nil {
		return err
	}

	// persist UpdatedAt as UTC; set if zero
	tsUTC := c.UpdatedAt
	if tsUTC.IsZero() {
		tsUTC = time.Now().UTC()
	} else {
		tsUTC = tsUTC.UTC()
	}

	_, err = r.db.ExecContext(ctx, insertOrUpdateConfigSQL,
		cameraConfigRowID,
		c.HomePreset,
		presetsJSON,
		c.CurrentPreset,
		c.DwellTime,
		c.HomeDwellTime,
		c.CaptureDelay,
		c.ConnectionURL,
		c.Username,
		c.Secret,
		c.IsScheduledMode,
		tsUTC,
	)
	return err
}

// Load fetches the single camera_config row. A zero-value config with
// ID 0 means nothing has been persisted yet.
func (r *ConfigSQLite) Load(ctx context.Context) (models.CameraConfig, error) {
	row := r.db.QueryRowContext(ctx, selectConfigSQL, cameraConfigRowID)

	var c models.CameraConfig
	var presetsJSON string
	if err := row.Scan(
		&c.ID,
		&c.HomePreset,
		&presetsJSON,
		&c.CurrentPreset,
		&c.DwellTime,
		&c.HomeDwellTime,
		&c.CaptureDelay,
		&c.ConnectionURL,
		&c.Username,
		&c.Secret,
		&c.IsScheduledMode,
		&c.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.CameraConfig{}, nil
		}
		return models.CameraConfig{}, err
	}

	presets, err := unmarshalPresets(presetsJSON)
	if err != nil {
		return models.CameraConfig{}, err
	}
	c.Presets = presets
	c.UpdatedAt = c.UpdatedAt.UTC()

	return c, nil
}

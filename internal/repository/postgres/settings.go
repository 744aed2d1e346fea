package postgres

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"intranet-lending/internal/logger"
	"intranet-lending/internal/repository"
)

type settingsRepository struct {
	db *sql.DB

	mu      sync.Mutex
	ensured bool
}

// NewSettingsRepository returns a key-value store whose table is created on
// first use.
func NewSettingsRepository(db *sql.DB) repository.SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) ensureTable(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ensured {
		return nil
	}
	query := `CREATE TABLE IF NOT EXISTS settings (
	              key        TEXT PRIMARY KEY,
	              value      TEXT NOT NULL,
	              updated_on TIMESTAMPTZ NOT NULL DEFAULT now()
	          )`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		logger.Error("Failed to create settings table", "error", err)
		return err
	}
	r.ensured = true
	return nil
}

func (r *settingsRepository) GetSetting(ctx context.Context, key string) (string, bool, error) {
	if err := r.ensureTable(ctx); err != nil {
		return "", false, err
	}
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *settingsRepository) SetSetting(ctx context.Context, key, value string) error {
	if err := r.ensureTable(ctx); err != nil {
		return err
	}
	query := `INSERT INTO settings (key, value, updated_on) VALUES ($1, $2, $3)
	          ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_on = EXCLUDED.updated_on`
	logger.DatabaseCall("UPSERT", "settings", "key", key)
	_, err := r.db.ExecContext(ctx, query, key, value, time.Now())
	logger.DatabaseResult("UPSERT", 1, err, "key", key)
	return err
}

package postgres

import (
	"context"
	"database/sql"
	_ "embed"

	"intranet-lending/internal/logger"
	"intranet-lending/internal/repository"

	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schema string

type Store struct {
	db *sql.DB
	repository.RentalRepository
	repository.SettingsRepository
	repository.MirrorRepository
	repository.UserRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                 db,
		RentalRepository:   NewRentalRepository(db),
		SettingsRepository: NewSettingsRepository(db),
		MirrorRepository:   NewMirrorRepository(db),
		UserRepository:     NewUserRepository(db),
	}
}

// DB exposes the pool for components that need a dedicated connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates the lending tables if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	logger.DatabaseCall("EXEC", "schema.sql")
	_, err := db.ExecContext(ctx, schema)
	logger.DatabaseResult("EXEC", 0, err)
	return err
}

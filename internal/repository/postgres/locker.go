package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"intranet-lending/internal/logger"
)

// AdvisoryLocker serializes work on one inventory item across processes with
// a session-level postgres advisory lock held on a dedicated connection.
type AdvisoryLocker struct {
	db *sql.DB
}

func NewAdvisoryLocker(db *sql.DB) *AdvisoryLocker {
	return &AdvisoryLocker{db: db}
}

// Lock blocks until the item lock is acquired or ctx is done.
func (l *AdvisoryLocker) Lock(ctx context.Context, itemID string) (func(), error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve connection for item lock: %w", err)
	}
	key := "inventory-item:" + itemID
	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock(hashtext($1))`, key); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to acquire item lock: %w", err)
	}
	return func() {
		if _, err := conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock(hashtext($1))`, key); err != nil {
			logger.Error("Failed to release item lock", "item_id", itemID, "error", err)
		}
		conn.Close()
	}, nil
}

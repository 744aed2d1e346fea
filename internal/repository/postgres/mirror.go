package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"intranet-lending/internal/domain"
	"intranet-lending/internal/logger"
	"intranet-lending/internal/repository"
)

type mirrorRepository struct {
	db *sql.DB
}

func NewMirrorRepository(db *sql.DB) repository.MirrorRepository {
	return &mirrorRepository{db: db}
}

// Upsert un-archives a row whose remote item reappeared.
func (r *mirrorRepository) Upsert(ctx context.Context, item *domain.MirrorItem) (bool, error) {
	query := `INSERT INTO inventory_mirror (remote_id, name, pieces, price, note, archived, last_synced_on, archived_on)
	          VALUES ($1, $2, $3, $4, $5, false, $6, NULL)
	          ON CONFLICT (remote_id) DO UPDATE SET
	              name = EXCLUDED.name, pieces = EXCLUDED.pieces, price = EXCLUDED.price, note = EXCLUDED.note,
	              archived = false, archived_on = NULL, last_synced_on = EXCLUDED.last_synced_on
	          RETURNING id, (xmax = 0) AS created`
	var created bool
	err := r.db.QueryRowContext(ctx, query, item.RemoteID, item.Name, item.Pieces, item.Price, item.Note, item.LastSyncedOn).
		Scan(&item.ID, &created)
	if err != nil {
		return false, err
	}
	item.Archived = false
	item.ArchivedOn = nil
	return created, nil
}

func (r *mirrorRepository) ArchiveMissing(ctx context.Context, remoteIDs []string, at time.Time) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	query := `UPDATE inventory_mirror SET archived = true, archived_on = $1
	          WHERE archived = false AND NOT (remote_id = ANY($2))`
	logger.DatabaseCall("UPDATE", "inventory_mirror archive", "present", len(remoteIDs))
	result, err := tx.ExecContext(ctx, query, at, pq.Array(remoteIDs))
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err)
		return 0, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	logger.DatabaseResult("UPDATE", rows, nil)
	return rows, nil
}

func (r *mirrorRepository) List(ctx context.Context, includeArchived bool) ([]domain.MirrorItem, error) {
	query := `SELECT id, remote_id, name, pieces, price, note, archived, last_synced_on, archived_on
	          FROM inventory_mirror WHERE archived = false OR $1 ORDER BY name, remote_id`
	rows, err := r.db.QueryContext(ctx, query, includeArchived)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.MirrorItem
	for rows.Next() {
		var (
			m          domain.MirrorItem
			archivedOn sql.NullTime
		)
		if err := rows.Scan(&m.ID, &m.RemoteID, &m.Name, &m.Pieces, &m.Price, &m.Note, &m.Archived, &m.LastSyncedOn, &archivedOn); err != nil {
			return nil, err
		}
		if archivedOn.Valid {
			m.ArchivedOn = &archivedOn.Time
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"intranet-lending/internal/domain"
	"intranet-lending/internal/logger"
	"intranet-lending/internal/repository"
)

const rentalColumns = `id, item_id, user_id, quantity, start_date, end_date, status, checkout_mode,
	remote_lending_id, return_condition, return_notes, returned_on, created_on, updated_on`

type rentalRepository struct {
	db *sql.DB
}

func NewRentalRepository(db *sql.DB) repository.RentalRepository {
	return &rentalRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRental(row rowScanner) (*domain.RentalRequest, error) {
	var (
		rt         domain.RentalRequest
		start, end time.Time
		lendingID  sql.NullString
		returnedOn sql.NullTime
	)
	err := row.Scan(&rt.ID, &rt.ItemID, &rt.UserID, &rt.Quantity, &start, &end, &rt.Status, &rt.Mode,
		&lendingID, &rt.ReturnCondition, &rt.ReturnNotes, &returnedOn, &rt.CreatedOn, &rt.UpdatedOn)
	if err != nil {
		return nil, err
	}
	rt.StartDate = start.Format(domain.DateLayout)
	rt.EndDate = end.Format(domain.DateLayout)
	if lendingID.Valid {
		rt.RemoteLendingID = &lendingID.String
	}
	if returnedOn.Valid {
		rt.ReturnedOn = &returnedOn.Time
	}
	return &rt, nil
}

func statusArray(statuses []domain.RentalStatus) any {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return pq.Array(out)
}

func (r *rentalRepository) Create(ctx context.Context, rt *domain.RentalRequest) error {
	if rt.Mode == "" {
		rt.Mode = domain.CheckoutModeLending
	}
	now := time.Now()
	rt.CreatedOn, rt.UpdatedOn = now, now

	query := `INSERT INTO rental_requests (item_id, user_id, quantity, start_date, end_date, status, checkout_mode, remote_lending_id, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	logger.DatabaseCall("INSERT", "rental_requests", "item_id", rt.ItemID, "user_id", rt.UserID)
	err := r.db.QueryRowContext(ctx, query, rt.ItemID, rt.UserID, rt.Quantity, rt.StartDate, rt.EndDate,
		rt.Status, rt.Mode, rt.RemoteLendingID, rt.CreatedOn, rt.UpdatedOn).Scan(&rt.ID)
	logger.DatabaseResult("INSERT", 1, err, "rental_id", rt.ID)
	return err
}

func (r *rentalRepository) GetByID(ctx context.Context, id int32) (*domain.RentalRequest, error) {
	query := `SELECT ` + rentalColumns + ` FROM rental_requests WHERE id = $1`
	rt, err := scanRental(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.E(domain.KindNotFound, "rental.get", "Die Anfrage wurde nicht gefunden.", fmt.Errorf("rental request %d", id))
	}
	return rt, err
}

func (r *rentalRepository) UpdateStatus(ctx context.Context, id int32, expected []domain.RentalStatus, next domain.RentalStatus) error {
	query := `UPDATE rental_requests SET status = $1, updated_on = $2 WHERE id = $3 AND status = ANY($4)`
	result, err := r.db.ExecContext(ctx, query, next, time.Now(), id, statusArray(expected))
	return checkAdvanced(result, err, "rental.update_status", id)
}

func (r *rentalRepository) MarkApproved(ctx context.Context, id int32, remoteLendingID *string) error {
	query := `UPDATE rental_requests SET status = $1, remote_lending_id = $2, updated_on = $3 WHERE id = $4 AND status = $5`
	result, err := r.db.ExecContext(ctx, query, domain.RentalStatusApproved, remoteLendingID, time.Now(), id, domain.RentalStatusPending)
	return checkAdvanced(result, err, "rental.approve", id)
}

func (r *rentalRepository) MarkReturned(ctx context.Context, id int32, expected []domain.RentalStatus, condition, notes string, returnedOn time.Time) error {
	query := `UPDATE rental_requests
	          SET status = $1, return_condition = $2, return_notes = $3, returned_on = $4, updated_on = $5
	          WHERE id = $6 AND status = ANY($7)`
	result, err := r.db.ExecContext(ctx, query, domain.RentalStatusReturned, condition, notes, returnedOn, time.Now(), id, statusArray(expected))
	return checkAdvanced(result, err, "rental.return", id)
}

// checkAdvanced turns a conditional update that matched no row into an
// invalid_state error, so a concurrent duplicate transition cannot succeed twice.
func checkAdvanced(result sql.Result, err error, op string, id int32) error {
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err, "rental_id", id)
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	logger.DatabaseResult("UPDATE", rows, nil, "rental_id", id)
	if rows == 0 {
		return domain.E(domain.KindInvalidState, op, "Die Anfrage befindet sich nicht mehr im erwarteten Status.",
			fmt.Errorf("rental request %d was not in an expected status", id))
	}
	return nil
}

func (r *rentalRepository) ListByItemAndStatus(ctx context.Context, itemID string, statuses []domain.RentalStatus) ([]domain.RentalRequest, error) {
	query := `SELECT ` + rentalColumns + ` FROM rental_requests
	          WHERE item_id = $1 AND status = ANY($2) ORDER BY created_on, id`
	return r.list(ctx, query, itemID, statusArray(statuses))
}

func (r *rentalRepository) SumOverlappingQuantity(ctx context.Context, itemID, start, end string, statuses []domain.RentalStatus, excludeID int32) (int, error) {
	query := `SELECT COALESCE(SUM(quantity), 0) FROM rental_requests
	          WHERE item_id = $1 AND status = ANY($2) AND remote_lending_id IS NULL
	            AND start_date <= $3 AND end_date >= $4 AND id <> $5`
	var total int
	err := r.db.QueryRowContext(ctx, query, itemID, statusArray(statuses), end, start, excludeID).Scan(&total)
	return total, err
}

func (r *rentalRepository) ListByUser(ctx context.Context, userID int32) ([]domain.RentalRequest, error) {
	query := `SELECT ` + rentalColumns + ` FROM rental_requests WHERE user_id = $1 ORDER BY created_on DESC, id DESC`
	return r.list(ctx, query, userID)
}

func (r *rentalRepository) ListByStatus(ctx context.Context, statuses []domain.RentalStatus) ([]domain.RentalRequest, error) {
	query := `SELECT ` + rentalColumns + ` FROM rental_requests WHERE status = ANY($1) ORDER BY created_on, id`
	return r.list(ctx, query, statusArray(statuses))
}

func (r *rentalRepository) list(ctx context.Context, query string, args ...any) ([]domain.RentalRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rentals []domain.RentalRequest
	for rows.Next() {
		rt, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		rentals = append(rentals, *rt)
	}
	return rentals, rows.Err()
}

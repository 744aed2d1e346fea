package repository

import (
	"context"
	"time"

	"intranet-lending/internal/domain"
)

type RentalRepository interface {
	Create(ctx context.Context, rental *domain.RentalRequest) error
	GetByID(ctx context.Context, id int32) (*domain.RentalRequest, error)

	// UpdateStatus moves the row to next only if its current status is one
	// of expected. A row in any other status yields an invalid_state error.
	UpdateStatus(ctx context.Context, id int32, expected []domain.RentalStatus, next domain.RentalStatus) error
	MarkApproved(ctx context.Context, id int32, remoteLendingID *string) error
	MarkReturned(ctx context.Context, id int32, expected []domain.RentalStatus, condition, notes string, returnedOn time.Time) error

	ListByItemAndStatus(ctx context.Context, itemID string, statuses []domain.RentalStatus) ([]domain.RentalRequest, error)
	// SumOverlappingQuantity sums the quantity of rows in statuses whose
	// date range overlaps [start, end] and that have no remote lending yet.
	SumOverlappingQuantity(ctx context.Context, itemID, start, end string, statuses []domain.RentalStatus, excludeID int32) (int, error)
	ListByUser(ctx context.Context, userID int32) ([]domain.RentalRequest, error)
	ListByStatus(ctx context.Context, statuses []domain.RentalStatus) ([]domain.RentalRequest, error)
}

type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}

type MirrorRepository interface {
	// Upsert creates or updates the row keyed by RemoteID and reports
	// whether it was created.
	Upsert(ctx context.Context, item *domain.MirrorItem) (bool, error)
	// ArchiveMissing archives every active row whose remote id is not in
	// remoteIDs and returns how many rows changed.
	ArchiveMissing(ctx context.Context, remoteIDs []string, at time.Time) (int64, error)
	List(ctx context.Context, includeArchived bool) ([]domain.MirrorItem, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.User, error)
}

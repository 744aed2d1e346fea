package service

import (
	"context"

	"intranet-lending/internal/domain"
)

// InventoryClient is the subset of the remote inventory API the workflow uses.
type InventoryClient interface {
	GetItem(ctx context.Context, itemID string) (*domain.RemoteItem, error)
	UpdateItem(ctx context.Context, itemID string, patch domain.ItemPatch) error
	ListCustomFields(ctx context.Context, itemID, query string) ([]domain.CustomField, error)
	BulkUpdateCustomFields(ctx context.Context, itemID string, values []domain.CustomFieldValue) error
	ListActiveLendings(ctx context.Context, itemID string) ([]domain.Lending, error)
	CreateLending(ctx context.Context, req domain.LendingRequest) (*domain.Lending, error)
	SetLendingReturnDate(ctx context.Context, lendingID, returnDate string) error
	SearchContacts(ctx context.Context, name string) ([]domain.Contact, error)
}

// ItemCatalog is the cached item list.
type ItemCatalog interface {
	GetItems(ctx context.Context) ([]domain.RemoteItem, error)
	Invalidate(ctx context.Context) error
}

// ItemLocker serializes the read-validate-write sequence on one item.
// The returned func releases the lock.
type ItemLocker interface {
	Lock(ctx context.Context, itemID string) (unlock func(), err error)
}

type AvailabilityService interface {
	AvailableUnits(ctx context.Context, itemID, startDate, endDate string) (int, error)
	// ItemAvailability computes availability for an already fetched item,
	// ignoring the local request excludeID.
	ItemAvailability(ctx context.Context, item *domain.RemoteItem, startDate, endDate string, excludeID int32) (int, error)
}

type RentalService interface {
	RequestRental(ctx context.Context, userID int32, itemID string, quantity int32, startDate, endDate string) *domain.OperationResult
	CheckoutItem(ctx context.Context, userID int32, itemID string, quantity int32, startDate, endDate string) *domain.OperationResult
	ApproveRental(ctx context.Context, adminID, rentalID int32) *domain.OperationResult
	RequestReturn(ctx context.Context, userID, rentalID int32) *domain.OperationResult
	VerifyReturn(ctx context.Context, adminID, rentalID int32, condition, notes string) *domain.OperationResult
	CheckinItem(ctx context.Context, adminID, rentalID int32) *domain.OperationResult

	GetRental(ctx context.Context, userID, rentalID int32, isAdmin bool) (*domain.RentalRequest, error)
	ListMyRentals(ctx context.Context, userID int32) ([]domain.RentalRequest, error)
	ListPendingRequests(ctx context.Context) ([]domain.RentalRequest, error)
	ListPendingReturns(ctx context.Context) ([]domain.RentalRequest, error)
	ListItems(ctx context.Context) ([]domain.RemoteItem, error)
}

// AlertService notifies operators. Failures to deliver are the caller's to log.
type AlertService interface {
	SendAlert(ctx context.Context, subject, body string) error
}

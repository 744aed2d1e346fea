package service_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"intranet-lending/internal/domain"
)

// MockRentalRepo
type MockRentalRepo struct {
	mock.Mock
}

func (m *MockRentalRepo) Create(ctx context.Context, rental *domain.RentalRequest) error {
	args := m.Called(ctx, rental)
	return args.Error(0)
}
func (m *MockRentalRepo) GetByID(ctx context.Context, id int32) (*domain.RentalRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// hand out a copy so the service cannot mutate the fixture
	rt := *args.Get(0).(*domain.RentalRequest)
	return &rt, args.Error(1)
}
func (m *MockRentalRepo) UpdateStatus(ctx context.Context, id int32, expected []domain.RentalStatus, next domain.RentalStatus) error {
	args := m.Called(ctx, id, expected, next)
	return args.Error(0)
}
func (m *MockRentalRepo) MarkApproved(ctx context.Context, id int32, remoteLendingID *string) error {
	args := m.Called(ctx, id, remoteLendingID)
	return args.Error(0)
}
func (m *MockRentalRepo) MarkReturned(ctx context.Context, id int32, expected []domain.RentalStatus, condition, notes string, returnedOn time.Time) error {
	args := m.Called(ctx, id, expected, condition, notes, returnedOn)
	return args.Error(0)
}
func (m *MockRentalRepo) ListByItemAndStatus(ctx context.Context, itemID string, statuses []domain.RentalStatus) ([]domain.RentalRequest, error) {
	args := m.Called(ctx, itemID, statuses)
	return args.Get(0).([]domain.RentalRequest), args.Error(1)
}
func (m *MockRentalRepo) SumOverlappingQuantity(ctx context.Context, itemID, start, end string, statuses []domain.RentalStatus, excludeID int32) (int, error) {
	args := m.Called(ctx, itemID, start, end, statuses, excludeID)
	return args.Int(0), args.Error(1)
}
func (m *MockRentalRepo) ListByUser(ctx context.Context, userID int32) ([]domain.RentalRequest, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.RentalRequest), args.Error(1)
}
func (m *MockRentalRepo) ListByStatus(ctx context.Context, statuses []domain.RentalStatus) ([]domain.RentalRequest, error) {
	args := m.Called(ctx, statuses)
	return args.Get(0).([]domain.RentalRequest), args.Error(1)
}

// MockUserRepo
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockInventoryClient
type MockInventoryClient struct {
	mock.Mock
}

func (m *MockInventoryClient) GetItem(ctx context.Context, itemID string) (*domain.RemoteItem, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RemoteItem), args.Error(1)
}
func (m *MockInventoryClient) UpdateItem(ctx context.Context, itemID string, patch domain.ItemPatch) error {
	args := m.Called(ctx, itemID, patch)
	return args.Error(0)
}
func (m *MockInventoryClient) ListCustomFields(ctx context.Context, itemID, query string) ([]domain.CustomField, error) {
	args := m.Called(ctx, itemID, query)
	return args.Get(0).([]domain.CustomField), args.Error(1)
}
func (m *MockInventoryClient) BulkUpdateCustomFields(ctx context.Context, itemID string, values []domain.CustomFieldValue) error {
	args := m.Called(ctx, itemID, values)
	return args.Error(0)
}
func (m *MockInventoryClient) ListActiveLendings(ctx context.Context, itemID string) ([]domain.Lending, error) {
	args := m.Called(ctx, itemID)
	return args.Get(0).([]domain.Lending), args.Error(1)
}
func (m *MockInventoryClient) CreateLending(ctx context.Context, req domain.LendingRequest) (*domain.Lending, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Lending), args.Error(1)
}
func (m *MockInventoryClient) SetLendingReturnDate(ctx context.Context, lendingID, returnDate string) error {
	args := m.Called(ctx, lendingID, returnDate)
	return args.Error(0)
}
func (m *MockInventoryClient) SearchContacts(ctx context.Context, name string) ([]domain.Contact, error) {
	args := m.Called(ctx, name)
	return args.Get(0).([]domain.Contact), args.Error(1)
}

// MockCatalog
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) GetItems(ctx context.Context) ([]domain.RemoteItem, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.RemoteItem), args.Error(1)
}
func (m *MockCatalog) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// recordingLocker counts lock/unlock pairs.
type recordingLocker struct {
	locked   []string
	released int
}

func (l *recordingLocker) Lock(ctx context.Context, itemID string) (func(), error) {
	l.locked = append(l.locked, itemID)
	return func() { l.released++ }, nil
}

package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intranet-lending/internal/domain"
	"intranet-lending/internal/service"
)

var reserving = []domain.RentalStatus{domain.RentalStatusPending, domain.RentalStatusApproved}

func TestAvailabilityService_AvailableUnits(t *testing.T) {
	ctx := context.Background()
	item := &domain.RemoteItem{ID: "17", Name: "Beamer", Pieces: 5}

	tests := []struct {
		name     string
		lendings []domain.Lending
		local    int
		want     int
	}{
		{name: "Nothing booked", lendings: []domain.Lending{}, local: 0, want: 5},
		{name: "Approved local request", lendings: []domain.Lending{}, local: 2, want: 3},
		{
			name: "Remote lendings",
			lendings: []domain.Lending{
				{ID: "a", Quantity: 2, BorrowingDate: "2024-06-02", ReturnDate: "2024-06-03"},
				{ID: "b", Quantity: 3, BorrowingDate: "2024-07-01", ReturnDate: "2024-07-05"},
				{ID: "c"},
			},
			local: 1,
			want:  1,
		},
		{
			name:     "Never negative",
			lendings: []domain.Lending{{ID: "a", Quantity: 4, BorrowingDate: "2024-05-30", ReturnDate: "2024-06-10"}},
			local:    3,
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rentalRepo := new(MockRentalRepo)
			client := new(MockInventoryClient)
			svc := service.NewAvailabilityService(rentalRepo, client)

			client.On("GetItem", ctx, "17").Return(item, nil)
			client.On("ListActiveLendings", ctx, "17").Return(tt.lendings, nil)
			rentalRepo.On("SumOverlappingQuantity", ctx, "17", "2024-06-01", "2024-06-05", reserving, int32(0)).Return(tt.local, nil)

			got, err := svc.AvailableUnits(ctx, "17", "2024-06-01", "2024-06-05")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, item.Pieces)
		})
	}
}

func TestAvailabilityService_InvalidRange(t *testing.T) {
	ctx := context.Background()
	svc := service.NewAvailabilityService(new(MockRentalRepo), new(MockInventoryClient))

	_, err := svc.ItemAvailability(ctx, &domain.RemoteItem{ID: "17", Pieces: 5}, "2024-06-05", "2024-06-01", 0)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestAvailabilityService_RemoteFailure(t *testing.T) {
	ctx := context.Background()
	client := new(MockInventoryClient)
	svc := service.NewAvailabilityService(new(MockRentalRepo), client)

	client.On("ListActiveLendings", ctx, "17").Return([]domain.Lending(nil), domain.E(domain.KindNetwork, "inventory.request", "", nil))

	_, err := svc.ItemAvailability(ctx, &domain.RemoteItem{ID: "17", Pieces: 5}, "2024-06-01", "2024-06-05", 42)
	assert.Equal(t, domain.KindNetwork, domain.KindOf(err))
}

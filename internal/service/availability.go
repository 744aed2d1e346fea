package service

import (
	"context"

	"intranet-lending/internal/domain"
	"intranet-lending/internal/repository"
)

// reservingStatuses are the local states that hold units before a remote
// lending exists for them.
var reservingStatuses = []domain.RentalStatus{domain.RentalStatusPending, domain.RentalStatusApproved}

type availabilityService struct {
	rentalRepo repository.RentalRepository
	client     InventoryClient
}

func NewAvailabilityService(rentalRepo repository.RentalRepository, client InventoryClient) AvailabilityService {
	return &availabilityService{
		rentalRepo: rentalRepo,
		client:     client,
	}
}

// AvailableUnits reads the item from the inventory system rather than the
// item cache, since another process may have changed its pieces.
func (s *availabilityService) AvailableUnits(ctx context.Context, itemID, startDate, endDate string) (int, error) {
	item, err := s.client.GetItem(ctx, itemID)
	if err != nil {
		return 0, err
	}
	return s.ItemAvailability(ctx, item, startDate, endDate, 0)
}

// ItemAvailability returns max(0, P - R - L): P the item's pieces, R the
// overlapping remote lendings and L the overlapping local reservations not
// yet represented remotely.
func (s *availabilityService) ItemAvailability(ctx context.Context, item *domain.RemoteItem, startDate, endDate string, excludeID int32) (int, error) {
	start, end, err := domain.ParseDateRange(startDate, endDate)
	if err != nil {
		return 0, err
	}

	lendings, err := s.client.ListActiveLendings(ctx, item.ID)
	if err != nil {
		return 0, err
	}
	remote := 0
	for _, l := range lendings {
		if l.Overlaps(start, end) {
			remote += l.EffectiveQuantity()
		}
	}

	local, err := s.rentalRepo.SumOverlappingQuantity(ctx, item.ID,
		start.Format(domain.DateLayout), end.Format(domain.DateLayout), reservingStatuses, excludeID)
	if err != nil {
		return 0, err
	}

	available := item.Pieces - remote - local
	if available < 0 {
		available = 0
	}
	return available, nil
}

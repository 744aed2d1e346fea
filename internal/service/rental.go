package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"intranet-lending/internal/domain"
	"intranet-lending/internal/logger"
	"intranet-lending/internal/repository"
)

const displayDateLayout = "02.01.2006"

// holdingStatuses are the local states whose lending-mode rows appear in the
// holder annotations.
var holdingStatuses = domain.HoldingStatuses()

type rentalService struct {
	rentalRepo   repository.RentalRepository
	userRepo     repository.UserRepository
	client       InventoryClient
	catalog      ItemCatalog
	availability AvailabilityService
	annotations  *AnnotationBuilder
	locker       ItemLocker
	now          func() time.Time
}

type RentalOption func(*rentalService)

// WithClock replaces the time source used for dates and log lines.
func WithClock(now func() time.Time) RentalOption {
	return func(s *rentalService) { s.now = now }
}

func NewRentalService(
	rentalRepo repository.RentalRepository,
	userRepo repository.UserRepository,
	client InventoryClient,
	catalog ItemCatalog,
	availability AvailabilityService,
	locker ItemLocker,
	opts ...RentalOption,
) RentalService {
	if locker == nil {
		locker = NoopLocker{}
	}
	s := &rentalService{
		rentalRepo:   rentalRepo,
		userRepo:     userRepo,
		client:       client,
		catalog:      catalog,
		availability: availability,
		annotations:  NewAnnotationBuilder(userRepo),
		locker:       locker,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// withItemLock runs fn under the configured lock for itemID.
func (s *rentalService) withItemLock(ctx context.Context, itemID string, fn func() *domain.OperationResult) *domain.OperationResult {
	unlock, err := s.locker.Lock(ctx, itemID)
	if err != nil {
		logger.Error("Failed to lock item", "item_id", itemID, "error", err)
		return domain.Failed(err, "Der Artikel wird gerade bearbeitet. Bitte später erneut versuchen.")
	}
	defer unlock()
	return fn()
}

// invalidate drops the item cache. It runs before a mutating operation
// returns, whether or not its later steps succeeded.
func (s *rentalService) invalidate(ctx context.Context) {
	if err := s.catalog.Invalidate(ctx); err != nil {
		logger.Error("Failed to invalidate item cache", "error", err)
	}
}

// remoteStatus is implemented by errors that carry an inventory API response.
type remoteStatus interface {
	HTTPStatus() int
}

func (s *rentalService) fail(op string, err error, fallback string, args ...any) *domain.OperationResult {
	args = append([]any{"operation", op, "kind", domain.KindOf(err), "error", err}, args...)
	var remote remoteStatus
	switch {
	case domain.KindOf(err).IsFault():
		logger.Error("Rental operation failed", args...)
	case errors.As(err, &remote):
		// a remote 404 usually means a stale id or a wrong endpoint
		logger.Warn("Rental operation rejected by inventory system", append(args, "status", remote.HTTPStatus())...)
	default:
		logger.Info("Rental operation rejected", args...)
	}
	return domain.Failed(err, fallback)
}

func insufficientStock(op string, requested int32, available int) error {
	return domain.E(domain.KindInsufficientStock, op,
		fmt.Sprintf("Nicht genügend Bestand: %d angefragt, %d verfügbar.", requested, available),
		fmt.Errorf("requested %d, available %d", requested, available))
}

func invalidState(op string, rt *domain.RentalRequest, message string) error {
	return domain.E(domain.KindInvalidState, op, message,
		fmt.Errorf("rental request %d is %s", rt.ID, rt.Status))
}

// RequestRental records a pending request after checking availability.
func (s *rentalService) RequestRental(ctx context.Context, userID int32, itemID string, quantity int32, startDate, endDate string) *domain.OperationResult {
	rt := &domain.RentalRequest{
		ItemID:    itemID,
		UserID:    userID,
		Quantity:  quantity,
		StartDate: startDate,
		EndDate:   endDate,
		Status:    domain.RentalStatusPending,
		Mode:      domain.CheckoutModeLending,
	}
	if err := rt.Validate(); err != nil {
		return s.fail("request", err, "Ungültige Anfrage.")
	}

	return s.withItemLock(ctx, itemID, func() *domain.OperationResult {
		available, err := s.availability.AvailableUnits(ctx, itemID, rt.StartDate, rt.EndDate)
		if err != nil {
			return s.fail("request", err, "Die Verfügbarkeit konnte nicht geprüft werden.", "item_id", itemID)
		}
		if int(quantity) > available {
			return s.fail("request", insufficientStock("rental.request", quantity, available), "")
		}
		if err := s.rentalRepo.Create(ctx, rt); err != nil {
			return s.fail("request", err, "Die Anfrage konnte nicht gespeichert werden.", "item_id", itemID)
		}
		logger.Info("Rental requested", "rental_id", rt.ID, "item_id", itemID, "user_id", userID, "quantity", quantity)
		return domain.Succeeded("Die Anfrage wurde gesendet und wartet auf Freigabe.", rt)
	})
}

// CheckoutItem assigns units directly without an approval step.
func (s *rentalService) CheckoutItem(ctx context.Context, userID int32, itemID string, quantity int32, startDate, endDate string) *domain.OperationResult {
	rt := &domain.RentalRequest{
		ItemID:    itemID,
		UserID:    userID,
		Quantity:  quantity,
		StartDate: startDate,
		EndDate:   endDate,
		Status:    domain.RentalStatusActive,
		Mode:      domain.CheckoutModeAssignment,
	}
	if err := rt.Validate(); err != nil {
		return s.fail("checkout", err, "Ungültige Anfrage.")
	}

	return s.withItemLock(ctx, itemID, func() *domain.OperationResult {
		// read
		item, err := s.client.GetItem(ctx, itemID)
		if err != nil {
			return s.fail("checkout", err, "Der Artikel konnte nicht geladen werden.", "item_id", itemID)
		}

		// validate
		available, err := s.availability.ItemAvailability(ctx, item, rt.StartDate, rt.EndDate, 0)
		if err != nil {
			return s.fail("checkout", err, "Die Verfügbarkeit konnte nicht geprüft werden.", "item_id", itemID)
		}
		if int(quantity) > available || int(quantity) > item.Pieces {
			return s.fail("checkout", insufficientStock("rental.checkout", quantity, min(available, item.Pieces)), "")
		}
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return s.fail("checkout", err, "Der Benutzer konnte nicht geladen werden.", "user_id", userID)
		}
		contact, err := s.findContact(ctx, user)
		if err != nil {
			return s.fail("checkout", err, "Der Ausleiher konnte nicht ermittelt werden.", "user_id", userID)
		}

		// write
		patch := domain.ItemPatch{
			Member: &contact.ID,
			Pieces: item.Pieces - int(quantity),
			Note:   s.prependLog(item.Note, fmt.Sprintf("Ausgabe: %dx an %s bis %s", quantity, user.DisplayName(), formatDate(rt.EndDate))),
		}
		err = s.client.UpdateItem(ctx, itemID, patch)
		s.invalidate(ctx)
		if err != nil {
			return s.fail("checkout", err, "Der Artikel konnte im Inventarsystem nicht ausgegeben werden.", "item_id", itemID)
		}

		// the remote assignment stands even if the local record fails
		if err := s.rentalRepo.Create(ctx, rt); err != nil {
			logger.Error("Item assigned remotely but local record failed", "item_id", itemID, "user_id", userID,
				"quantity", quantity, "error", err)
		} else {
			logger.Info("Item checked out", "rental_id", rt.ID, "item_id", itemID, "user_id", userID, "quantity", quantity)
		}
		return domain.Succeeded("Der Artikel wurde ausgegeben.", rt)
	})
}

// ApproveRental pushes a pending request to the inventory system: borrower
// lookup, lending, holder annotations and finally the local status.
func (s *rentalService) ApproveRental(ctx context.Context, adminID, rentalID int32) *domain.OperationResult {
	const op = "approve"
	rt, err := s.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		return s.fail(op, err, "Die Anfrage konnte nicht geladen werden.", "rental_id", rentalID)
	}
	if rt.Status != domain.RentalStatusPending {
		return s.fail(op, invalidState("rental.approve", rt, "Die Anfrage wurde bereits bearbeitet."), "", "rental_id", rentalID)
	}

	return s.withItemLock(ctx, rt.ItemID, func() *domain.OperationResult {
		// the row may have moved while waiting for the lock
		rt, err := s.rentalRepo.GetByID(ctx, rentalID)
		if err != nil {
			return s.fail(op, err, "Die Anfrage konnte nicht geladen werden.", "rental_id", rentalID)
		}
		if rt.Status != domain.RentalStatusPending {
			return s.fail(op, invalidState("rental.approve", rt, "Die Anfrage wurde bereits bearbeitet."), "", "rental_id", rentalID)
		}

		borrower, err := s.userRepo.GetByID(ctx, rt.UserID)
		if err != nil {
			return s.fail(op, err, "Der Antragsteller konnte nicht geladen werden.", "rental_id", rentalID)
		}

		// (a) borrower identity
		contact, err := s.findContact(ctx, borrower)
		if err != nil {
			return s.fail(op, err, "Der Ausleiher konnte nicht ermittelt werden.", "rental_id", rentalID)
		}

		// (b) lending; an earlier attempt may already have created it
		lending, err := s.findOwnLending(ctx, rt, contact.ID)
		if err != nil {
			return s.fail(op, err, "Die Ausleihen des Artikels konnten nicht geladen werden.", "rental_id", rentalID)
		}
		if lending != nil {
			logger.Info("Reusing lending from an earlier approval attempt", "rental_id", rentalID, "lending_id", lending.ID)
		} else {
			item, err := s.client.GetItem(ctx, rt.ItemID)
			if err != nil {
				return s.fail(op, err, "Der Artikel konnte nicht geladen werden.", "rental_id", rentalID)
			}
			available, err := s.availability.ItemAvailability(ctx, item, rt.StartDate, rt.EndDate, rt.ID)
			if err != nil {
				return s.fail(op, err, "Die Verfügbarkeit konnte nicht geprüft werden.", "rental_id", rentalID)
			}
			if int(rt.Quantity) > available {
				return s.fail(op, insufficientStock("rental.approve", rt.Quantity, available), "", "rental_id", rentalID)
			}

			lending, err = s.client.CreateLending(ctx, domain.LendingRequest{
				ItemID:        rt.ItemID,
				BorrowAddress: contact.ID,
				Quantity:      int(rt.Quantity),
				BorrowingDate: rt.StartDate,
				ReturnDate:    rt.EndDate,
			})
			if err != nil {
				return s.fail(op, err, "Die Ausleihe konnte im Inventarsystem nicht angelegt werden.", "rental_id", rentalID)
			}
		}
		defer s.invalidate(ctx)

		// (c) + (d) holder annotations, last condition cleared
		approved := *rt
		approved.Status = domain.RentalStatusApproved
		if err := s.writeHolderFields(ctx, rt.ItemID, rt.ID, &approved, nil); err != nil {
			return s.fail(op, err, "Die Ausleiher-Felder konnten nicht aktualisiert werden.",
				"rental_id", rentalID, "lending_id", lending.ID)
		}

		// (e) local status
		var lendingID *string
		if lending.ID != "" {
			lendingID = &lending.ID
		}
		if err := s.rentalRepo.MarkApproved(ctx, rt.ID, lendingID); err != nil {
			return s.fail(op, err, "Die Freigabe konnte nicht gespeichert werden.",
				"rental_id", rentalID, "lending_id", lending.ID)
		}
		approved.RemoteLendingID = lendingID
		logger.Info("Rental approved", "rental_id", rentalID, "item_id", rt.ItemID, "admin_id", adminID, "lending_id", lending.ID)
		return domain.Succeeded("Die Anfrage wurde genehmigt.", &approved)
	})
}

// RequestReturn is a local-only transition by the borrower.
func (s *rentalService) RequestReturn(ctx context.Context, userID, rentalID int32) *domain.OperationResult {
	const op = "request_return"
	rt, err := s.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		return s.fail(op, err, "Die Ausleihe konnte nicht geladen werden.", "rental_id", rentalID)
	}
	if rt.UserID != userID {
		return s.fail(op, domain.E(domain.KindNotFound, "rental.request_return", "Die Ausleihe wurde nicht gefunden.",
			fmt.Errorf("rental %d does not belong to user %d", rentalID, userID)), "")
	}
	if !rt.Status.CanTransitionTo(domain.RentalStatusPendingReturn) {
		return s.fail(op, invalidState("rental.request_return", rt, "Für diese Ausleihe kann keine Rückgabe angemeldet werden."), "")
	}

	err = s.rentalRepo.UpdateStatus(ctx, rt.ID,
		[]domain.RentalStatus{domain.RentalStatusApproved, domain.RentalStatusActive}, domain.RentalStatusPendingReturn)
	if err != nil {
		return s.fail(op, err, "Die Rückgabe konnte nicht angemeldet werden.", "rental_id", rentalID)
	}
	rt.Status = domain.RentalStatusPendingReturn
	logger.Info("Return requested", "rental_id", rentalID, "user_id", userID)
	return domain.Succeeded("Die Rückgabe wurde angemeldet.", rt)
}

// VerifyReturn closes the remote loan, rebuilds the holder annotations and
// records the inspected condition.
func (s *rentalService) VerifyReturn(ctx context.Context, adminID, rentalID int32, condition, notes string) *domain.OperationResult {
	const op = "verify_return"
	condition = strings.TrimSpace(condition)
	notes = strings.TrimSpace(notes)
	if condition == "" {
		return s.fail(op, domain.E(domain.KindValidation, "rental.verify_return", "Bitte den Zustand angeben.", nil), "")
	}

	rt, err := s.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		return s.fail(op, err, "Die Ausleihe konnte nicht geladen werden.", "rental_id", rentalID)
	}

	return s.withItemLock(ctx, rt.ItemID, func() *domain.OperationResult {
		rt, err := s.rentalRepo.GetByID(ctx, rentalID)
		if err != nil {
			return s.fail(op, err, "Die Ausleihe konnte nicht geladen werden.", "rental_id", rentalID)
		}
		if !rt.Status.CanTransitionTo(domain.RentalStatusReturned) {
			return s.fail(op, invalidState("rental.verify_return", rt, "Diese Ausleihe kann nicht zurückgenommen werden."), "", "rental_id", rentalID)
		}
		admin, err := s.userRepo.GetByID(ctx, adminID)
		if err != nil {
			return s.fail(op, err, "Der Prüfer konnte nicht geladen werden.", "admin_id", adminID)
		}

		// (a) close the remote side
		if rt.Mode == domain.CheckoutModeAssignment {
			err = s.returnAssignment(ctx, rt)
		} else {
			err = s.closeLending(ctx, rt)
		}
		if err != nil {
			return s.fail(op, err, "Die Rückgabe konnte im Inventarsystem nicht gebucht werden.", "rental_id", rentalID)
		}
		defer s.invalidate(ctx)

		// (b) + (c) remaining holders and inspected condition
		today := s.now()
		conditionText := formatCondition(condition, today, admin.DisplayName(), notes)
		if err := s.writeHolderFields(ctx, rt.ItemID, rt.ID, nil, &conditionText); err != nil {
			return s.fail(op, err, "Die Ausleiher-Felder konnten nicht aktualisiert werden.", "rental_id", rentalID)
		}

		// (d) local status
		expected := []domain.RentalStatus{domain.RentalStatusApproved, domain.RentalStatusActive, domain.RentalStatusPendingReturn}
		if err := s.rentalRepo.MarkReturned(ctx, rt.ID, expected, condition, notes, today); err != nil {
			return s.fail(op, err, "Die Rückgabe konnte nicht gespeichert werden.", "rental_id", rentalID)
		}
		rt.Status = domain.RentalStatusReturned
		rt.ReturnCondition = condition
		rt.ReturnNotes = notes
		rt.ReturnedOn = &today
		logger.Info("Return verified", "rental_id", rentalID, "item_id", rt.ItemID, "admin_id", adminID, "condition", condition)
		return domain.Succeeded("Die Rückgabe wurde bestätigt.", rt)
	})
}

// CheckinItem returns a directly checked out item without inspection.
func (s *rentalService) CheckinItem(ctx context.Context, adminID, rentalID int32) *domain.OperationResult {
	const op = "checkin"
	rt, err := s.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		return s.fail(op, err, "Die Ausleihe konnte nicht geladen werden.", "rental_id", rentalID)
	}

	return s.withItemLock(ctx, rt.ItemID, func() *domain.OperationResult {
		rt, err := s.rentalRepo.GetByID(ctx, rentalID)
		if err != nil {
			return s.fail(op, err, "Die Ausleihe konnte nicht geladen werden.", "rental_id", rentalID)
		}
		if rt.Mode != domain.CheckoutModeAssignment {
			return s.fail(op, invalidState("rental.checkin", rt, "Genehmigte Ausleihen werden über die Rückgabeprüfung abgeschlossen."), "")
		}
		if !rt.Status.CanTransitionTo(domain.RentalStatusReturned) {
			return s.fail(op, invalidState("rental.checkin", rt, "Dieser Artikel wurde bereits zurückgegeben."), "")
		}

		err = s.returnAssignment(ctx, rt)
		s.invalidate(ctx)
		if err != nil {
			return s.fail(op, err, "Die Rückgabe konnte im Inventarsystem nicht gebucht werden.", "rental_id", rentalID)
		}

		now := s.now()
		expected := []domain.RentalStatus{domain.RentalStatusActive, domain.RentalStatusPendingReturn}
		if err := s.rentalRepo.MarkReturned(ctx, rt.ID, expected, "", "", now); err != nil {
			return s.fail(op, err, "Die Rückgabe konnte nicht gespeichert werden.", "rental_id", rentalID)
		}
		rt.Status = domain.RentalStatusReturned
		rt.ReturnedOn = &now
		logger.Info("Item checked in", "rental_id", rentalID, "item_id", rt.ItemID, "admin_id", adminID)
		return domain.Succeeded("Der Artikel wurde zurückgenommen.", rt)
	})
}

func (s *rentalService) GetRental(ctx context.Context, userID, rentalID int32, isAdmin bool) (*domain.RentalRequest, error) {
	rt, err := s.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && rt.UserID != userID {
		return nil, domain.E(domain.KindNotFound, "rental.get", "Die Anfrage wurde nicht gefunden.",
			fmt.Errorf("rental %d does not belong to user %d", rentalID, userID))
	}
	return rt, nil
}

func (s *rentalService) ListMyRentals(ctx context.Context, userID int32) ([]domain.RentalRequest, error) {
	return s.rentalRepo.ListByUser(ctx, userID)
}

func (s *rentalService) ListPendingRequests(ctx context.Context) ([]domain.RentalRequest, error) {
	return s.rentalRepo.ListByStatus(ctx, []domain.RentalStatus{domain.RentalStatusPending})
}

func (s *rentalService) ListPendingReturns(ctx context.Context) ([]domain.RentalRequest, error) {
	return s.rentalRepo.ListByStatus(ctx, []domain.RentalStatus{domain.RentalStatusPendingReturn})
}

func (s *rentalService) ListItems(ctx context.Context) ([]domain.RemoteItem, error) {
	return s.catalog.GetItems(ctx)
}

// findContact resolves a user in the remote address book by display name and
// takes the first match.
func (s *rentalService) findContact(ctx context.Context, user *domain.User) (*domain.Contact, error) {
	name := user.DisplayName()
	contacts, err := s.client.SearchContacts(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 || contacts[0].ID == "" {
		return nil, domain.E(domain.KindNotFound, "rental.find_contact",
			fmt.Sprintf("%s wurde im Adressbuch des Inventarsystems nicht gefunden.", name),
			fmt.Errorf("no contact matches %q", name))
	}
	return &contacts[0], nil
}

// closeLending sets today as the return date of the request's lending. A
// lending that cannot be found is logged and skipped.
func (s *rentalService) closeLending(ctx context.Context, rt *domain.RentalRequest) error {
	today := s.now().Format(domain.DateLayout)

	lendingID := ""
	if rt.RemoteLendingID != nil {
		lendingID = *rt.RemoteLendingID
	} else {
		lendings, err := s.client.ListActiveLendings(ctx, rt.ItemID)
		if err != nil {
			return err
		}
		for _, l := range lendings {
			if strings.TrimSpace(l.ReturnDate) == "" && l.ID != "" {
				lendingID = l.ID
				break
			}
		}
	}
	if lendingID == "" {
		logger.Warn("No open lending found for returned request", "rental_id", rt.ID, "item_id", rt.ItemID)
		return nil
	}

	err := s.client.SetLendingReturnDate(ctx, lendingID, today)
	if domain.KindOf(err) == domain.KindNotFound {
		logger.Warn("Lending vanished before return", "rental_id", rt.ID, "lending_id", lendingID)
		return nil
	}
	return err
}

// returnAssignment puts directly assigned units back on the item. The log
// line carries the request id and is written in the same PATCH as the
// pieces, so a retry after a later failure finds it and skips the increment.
func (s *rentalService) returnAssignment(ctx context.Context, rt *domain.RentalRequest) error {
	item, err := s.client.GetItem(ctx, rt.ItemID)
	if err != nil {
		return err
	}
	marker := returnMarker(rt.ID)
	if strings.Contains(item.Note, marker) {
		logger.Info("Assignment already returned remotely", "rental_id", rt.ID, "item_id", rt.ItemID)
		return nil
	}
	who := "Unknown"
	if user, err := s.userRepo.GetByID(ctx, rt.UserID); err == nil {
		who = user.DisplayName()
	}
	return s.client.UpdateItem(ctx, rt.ItemID, domain.ItemPatch{
		Member: nil,
		Pieces: item.Pieces + int(rt.Quantity),
		Note:   s.prependLog(item.Note, fmt.Sprintf("Rückgabe: %dx von %s %s", rt.Quantity, who, marker)),
	})
}

func returnMarker(rentalID int32) string {
	return fmt.Sprintf("(Anfrage #%d)", rentalID)
}

// findOwnLending returns the open lending that matches rt and is not yet
// linked to another local request, or nil.
func (s *rentalService) findOwnLending(ctx context.Context, rt *domain.RentalRequest, addressID string) (*domain.Lending, error) {
	lendings, err := s.client.ListActiveLendings(ctx, rt.ItemID)
	if err != nil {
		return nil, err
	}
	var candidates []domain.Lending
	for _, l := range lendings {
		if l.ID != "" && l.BorrowAddress == addressID && l.EffectiveQuantity() == int(rt.Quantity) &&
			sameDay(l.BorrowingDate, rt.StartDate) && sameDay(l.ReturnDate, rt.EndDate) {
			candidates = append(candidates, l)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	rows, err := s.rentalRepo.ListByItemAndStatus(ctx, rt.ItemID, holdingStatuses)
	if err != nil {
		return nil, err
	}
	claimed := map[string]bool{}
	for _, r := range rows {
		if r.ID != rt.ID && r.RemoteLendingID != nil {
			claimed[*r.RemoteLendingID] = true
		}
	}
	for i := range candidates {
		if !claimed[candidates[i].ID] {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

// sameDay compares a remote date or timestamp with a local ISO date.
func sameDay(remote, local string) bool {
	return len(remote) >= len(domain.DateLayout) && remote[:len(domain.DateLayout)] == local
}

// writeHolderFields rebuilds the holder annotations from the local rows of
// the item, leaving out excludeID and adding extra, and writes them in one
// bulk update together with the last-condition field.
func (s *rentalService) writeHolderFields(ctx context.Context, itemID string, excludeID int32, extra *domain.RentalRequest, lastCondition *string) error {
	rows, err := s.rentalRepo.ListByItemAndStatus(ctx, itemID, holdingStatuses)
	if err != nil {
		return err
	}
	var holders []domain.RentalRequest
	for _, r := range rows {
		if r.ID == excludeID || r.Mode == domain.CheckoutModeAssignment {
			continue
		}
		holders = append(holders, r)
	}
	if extra != nil {
		holders = append(holders, *extra)
	}

	annotations, err := s.annotations.Build(ctx, holders)
	if err != nil {
		return err
	}

	fields, err := s.client.ListCustomFields(ctx, itemID, "")
	if err != nil {
		return err
	}
	condition := ""
	if lastCondition != nil {
		condition = *lastCondition
	}
	values := fieldUpdates(itemID, resolveFieldRoles(fields), map[domain.FieldRole]string{
		domain.FieldRoleCurrentBorrowers: annotations.Names,
		domain.FieldRoleBorrowerEmails:   annotations.Emails,
		domain.FieldRoleLastCondition:    condition,
	})
	if len(values) == 0 {
		logger.Warn("Item has none of the holder custom fields, skipping annotation update", "item_id", itemID)
		return nil
	}
	return s.client.BulkUpdateCustomFields(ctx, itemID, values)
}

func (s *rentalService) prependLog(note, line string) string {
	entry := fmt.Sprintf("[%s] %s", s.now().Format("02.01.2006 15:04"), line)
	if strings.TrimSpace(note) == "" {
		return entry
	}
	return entry + "\n" + note
}

// formatCondition renders the last-return-condition field.
func formatCondition(condition string, day time.Time, inspector, notes string) string {
	text := fmt.Sprintf("%s - Geprüft am %s durch %s", condition, day.Format(displayDateLayout), inspector)
	if notes != "" {
		text += ". Notiz: " + notes
	}
	return text
}

func formatDate(isoDate string) string {
	t, err := time.Parse(domain.DateLayout, isoDate)
	if err != nil {
		return isoDate
	}
	return t.Format(displayDateLayout)
}

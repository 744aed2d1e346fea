package domain

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

type RentalStatus string

const (
	RentalStatusPending       RentalStatus = "pending"
	RentalStatusApproved      RentalStatus = "approved"
	RentalStatusActive        RentalStatus = "active"
	RentalStatusPendingReturn RentalStatus = "pending_return"
	RentalStatusReturned      RentalStatus = "returned"
)

var rentalStatuses = []RentalStatus{
	RentalStatusPending,
	RentalStatusApproved,
	RentalStatusActive,
	RentalStatusPendingReturn,
	RentalStatusReturned,
}

// CheckoutMode records how a request is represented on the remote side.
// Lending rows own a remote lending record; assignment rows decremented the
// item's pieces directly and are returned by incrementing them again.
type CheckoutMode string

const (
	CheckoutModeLending    CheckoutMode = "lending"
	CheckoutModeAssignment CheckoutMode = "assignment"
)

var rentalTransitions = map[RentalStatus][]RentalStatus{
	RentalStatusPending:       {RentalStatusApproved},
	RentalStatusApproved:      {RentalStatusPendingReturn, RentalStatusReturned},
	RentalStatusActive:        {RentalStatusPendingReturn, RentalStatusReturned},
	RentalStatusPendingReturn: {RentalStatusReturned},
}

// CanTransitionTo reports whether the status may move forward to next.
func (s RentalStatus) CanTransitionTo(next RentalStatus) bool {
	for _, allowed := range rentalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsHolding reports whether a row in this status currently holds units.
func (s RentalStatus) IsHolding() bool {
	switch s {
	case RentalStatusApproved, RentalStatusActive, RentalStatusPendingReturn:
		return true
	}
	return false
}

// HoldingStatuses lists every status for which IsHolding is true.
func HoldingStatuses() []RentalStatus {
	var out []RentalStatus
	for _, st := range rentalStatuses {
		if st.IsHolding() {
			out = append(out, st)
		}
	}
	return out
}

type RentalRequest struct {
	ID              int32        `json:"id"`
	ItemID          string       `json:"item_id"`
	UserID          int32        `json:"user_id"`
	Quantity        int32        `json:"quantity"`
	StartDate       string       `json:"start_date"`
	EndDate         string       `json:"end_date"`
	Status          RentalStatus `json:"status"`
	Mode            CheckoutMode `json:"checkout_mode"`
	RemoteLendingID *string      `json:"remote_lending_id,omitempty"`
	ReturnCondition string       `json:"return_condition"`
	ReturnNotes     string       `json:"return_notes"`
	ReturnedOn      *time.Time   `json:"returned_on,omitempty"`
	CreatedOn       time.Time    `json:"created_on"`
	UpdatedOn       time.Time    `json:"updated_on"`
}

// Validate checks quantity and the date range of a new request.
func (r *RentalRequest) Validate() error {
	if r.ItemID == "" {
		return E(KindValidation, "rental.validate", "Kein Artikel angegeben.", nil)
	}
	if r.Quantity <= 0 {
		return E(KindValidation, "rental.validate", "Die Menge muss größer als 0 sein.", nil)
	}
	start, end, err := ParseDateRange(r.StartDate, r.EndDate)
	if err != nil {
		return err
	}
	r.StartDate = start.Format(DateLayout)
	r.EndDate = end.Format(DateLayout)
	return nil
}

// ParseDateRange parses two YYYY-MM-DD dates and checks end >= start.
func ParseDateRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := time.Parse(DateLayout, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, E(KindValidation, "date.parse", "Ungültiges Startdatum.", fmt.Errorf("start date %q: %w", startStr, err))
	}
	end, err := time.Parse(DateLayout, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, E(KindValidation, "date.parse", "Ungültiges Enddatum.", fmt.Errorf("end date %q: %w", endStr, err))
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, E(KindValidation, "date.parse", "Das Enddatum darf nicht vor dem Startdatum liegen.", nil)
	}
	return start, end, nil
}

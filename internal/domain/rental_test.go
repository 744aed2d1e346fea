package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRentalStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, RentalStatusPending.CanTransitionTo(RentalStatusApproved))
	assert.True(t, RentalStatusApproved.CanTransitionTo(RentalStatusPendingReturn))
	assert.True(t, RentalStatusActive.CanTransitionTo(RentalStatusReturned))
	assert.True(t, RentalStatusPendingReturn.CanTransitionTo(RentalStatusReturned))

	assert.False(t, RentalStatusApproved.CanTransitionTo(RentalStatusApproved))
	assert.False(t, RentalStatusPending.CanTransitionTo(RentalStatusReturned))
	assert.False(t, RentalStatusReturned.CanTransitionTo(RentalStatusPending))
	assert.False(t, RentalStatusPendingReturn.CanTransitionTo(RentalStatusApproved))
}

func TestRentalStatus_IsHolding(t *testing.T) {
	assert.False(t, RentalStatusPending.IsHolding())
	assert.True(t, RentalStatusApproved.IsHolding())
	assert.True(t, RentalStatusPendingReturn.IsHolding())
	assert.False(t, RentalStatusReturned.IsHolding())
}

func TestHoldingStatuses(t *testing.T) {
	assert.Equal(t, []RentalStatus{RentalStatusApproved, RentalStatusActive, RentalStatusPendingReturn}, HoldingStatuses())
}

func TestRentalRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     RentalRequest
		wantErr bool
	}{
		{"Valid", RentalRequest{ItemID: "1", Quantity: 2, StartDate: "2024-06-01", EndDate: "2024-06-05"}, false},
		{"Single day", RentalRequest{ItemID: "1", Quantity: 1, StartDate: "2024-06-01", EndDate: "2024-06-01"}, false},
		{"Missing item", RentalRequest{Quantity: 1, StartDate: "2024-06-01", EndDate: "2024-06-01"}, true},
		{"Zero quantity", RentalRequest{ItemID: "1", StartDate: "2024-06-01", EndDate: "2024-06-01"}, true},
		{"End before start", RentalRequest{ItemID: "1", Quantity: 1, StartDate: "2024-06-05", EndDate: "2024-06-01"}, true},
		{"Bad date", RentalRequest{ItemID: "1", Quantity: 1, StartDate: "01.06.2024", EndDate: "2024-06-01"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, KindValidation, KindOf(err))
				assert.NotEmpty(t, MessageOf(err, ""))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLending_Overlaps(t *testing.T) {
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)

	assert.True(t, Lending{BorrowingDate: "2024-06-01", ReturnDate: "2024-06-03"}.Overlaps(start, end))
	assert.True(t, Lending{BorrowingDate: "2024-06-05T08:00:00Z", ReturnDate: "2024-06-09"}.Overlaps(start, end))
	assert.False(t, Lending{BorrowingDate: "2024-06-01", ReturnDate: "2024-06-02"}.Overlaps(start, end))
	assert.False(t, Lending{BorrowingDate: "2024-06-06", ReturnDate: "2024-06-09"}.Overlaps(start, end))
	assert.True(t, Lending{BorrowingDate: "2024-06-06"}.Overlaps(start, end))

	assert.Equal(t, 1, Lending{}.EffectiveQuantity())
	assert.Equal(t, 3, Lending{Quantity: 3}.EffectiveQuantity())
}

func TestUser_DisplayName(t *testing.T) {
	assert.Equal(t, "Erika", (&User{Name: "Erika", Email: "e@x"}).DisplayName())
	assert.Equal(t, "e@x", (&User{Email: "e@x"}).DisplayName())
	assert.Equal(t, "Unknown", (&User{}).DisplayName())
	assert.Equal(t, "Unknown", (*User)(nil).DisplayName())
	assert.Equal(t, "Unknown", (&User{Name: "Erika"}).ContactEmail())
}

type kindedErr struct{}

func (kindedErr) Error() string { return "remote 404" }
func (kindedErr) ErrorKind() ErrorKind { return KindNotFound }

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(nil))
	assert.Equal(t, KindInternal, KindOf(errors.New("x")))
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("wrap: %w", kindedErr{})))
	assert.Equal(t, KindInvalidState, KindOf(fmt.Errorf("wrap: %w", E(KindInvalidState, "op", "msg", kindedErr{}))))

	res := Failed(E(KindInsufficientStock, "op", "Nur 2 verfügbar.", nil), "fallback")
	assert.False(t, res.Success)
	assert.Equal(t, "Nur 2 verfügbar.", res.Message)
	assert.Equal(t, KindInsufficientStock, res.Kind)

	res = Failed(errors.New("boom"), "fallback")
	assert.Equal(t, "fallback", res.Message)
	assert.True(t, res.Kind.IsFault())
}

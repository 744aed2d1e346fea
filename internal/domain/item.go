package domain

import "time"

// RemoteItem is the canonical shape of an inventory object fetched from the
// remote inventory system.
type RemoteItem struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Pieces       int           `json:"pieces"`
	Price        float64       `json:"price"`
	Note         string        `json:"note"`
	HolderID     *string       `json:"holder_id,omitempty"`
	CustomFields []CustomField `json:"custom_fields,omitempty"`
}

type CustomField struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

type CustomFieldValue struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// FieldRole names the custom fields the workflow writes back to an item.
type FieldRole string

const (
	FieldRoleCurrentBorrowers FieldRole = "Aktuelle Ausleiher"
	FieldRoleBorrowerEmails   FieldRole = "Entra E-Mail"
	FieldRoleLastCondition    FieldRole = "Zustand der letzten Rückgabe"
)

var FieldRoles = []FieldRole{FieldRoleCurrentBorrowers, FieldRoleBorrowerEmails, FieldRoleLastCondition}

// ItemPatch is the body of the assign/return mutation. A nil Member clears
// the holder.
type ItemPatch struct {
	Member *string `json:"member"`
	Note   string  `json:"note"`
	Pieces int     `json:"pieces"`
}

// Lending is one confirmed remote loan of an item.
type Lending struct {
	ID            string `json:"id"`
	ItemID        string `json:"parentInventoryObject"`
	BorrowAddress string `json:"borrowAddress"`
	Quantity      int    `json:"quantity"`
	BorrowingDate string `json:"borrowingDate"`
	ReturnDate    string `json:"returnDate"`
}

// Overlaps applies lendingStart <= end AND lendingEnd >= start. Lendings
// without usable dates are treated as overlapping.
func (l Lending) Overlaps(start, end time.Time) bool {
	ls, err1 := parseRemoteDate(l.BorrowingDate)
	le, err2 := parseRemoteDate(l.ReturnDate)
	if err1 != nil || err2 != nil {
		return true
	}
	return !ls.After(end) && !le.Before(start)
}

// EffectiveQuantity defaults an unset quantity to 1.
func (l Lending) EffectiveQuantity() int {
	if l.Quantity < 1 {
		return 1
	}
	return l.Quantity
}

type LendingRequest struct {
	ItemID        string `json:"parentInventoryObject"`
	BorrowAddress string `json:"borrowAddress"`
	Quantity      int    `json:"quantity"`
	BorrowingDate string `json:"borrowingDate"`
	ReturnDate    string `json:"returnDate"`
}

// Contact is an entry of the remote address book.
type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func parseRemoteDate(s string) (time.Time, error) {
	if len(s) >= len(DateLayout) {
		if t, err := time.Parse(DateLayout, s[:len(DateLayout)]); err == nil {
			return t, nil
		}
	}
	return time.Parse(time.RFC3339, s)
}

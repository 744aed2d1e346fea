package service

import (
	"context"
	"fmt"
	"strings"

	"intranet-lending/internal/domain"
	"intranet-lending/internal/logger"
	"intranet-lending/internal/repository"
)

// Annotations are the "who holds this item" strings written to the item's
// custom fields, one "Name (Nx)" line per distinct holder.
type Annotations struct {
	Names  string
	Emails string
}

type AnnotationBuilder struct {
	userRepo repository.UserRepository
}

func NewAnnotationBuilder(userRepo repository.UserRepository) *AnnotationBuilder {
	return &AnnotationBuilder{userRepo: userRepo}
}

// Build sums quantities per user across holders, in first-seen order. The
// strings are rebuilt from scratch on every call.
func (b *AnnotationBuilder) Build(ctx context.Context, holders []domain.RentalRequest) (Annotations, error) {
	var order []int32
	totals := map[int32]int32{}
	for _, h := range holders {
		if _, seen := totals[h.UserID]; !seen {
			order = append(order, h.UserID)
		}
		totals[h.UserID] += h.Quantity
	}

	names := make([]string, 0, len(order))
	emails := make([]string, 0, len(order))
	for _, userID := range order {
		user, err := b.userRepo.GetByID(ctx, userID)
		if err != nil {
			if domain.KindOf(err) != domain.KindNotFound {
				return Annotations{}, err
			}
			logger.Warn("Holder not found in user directory", "user_id", userID)
			user = nil
		}
		names = append(names, fmt.Sprintf("%s (%dx)", user.DisplayName(), totals[userID]))
		emails = append(emails, fmt.Sprintf("%s (%dx)", user.ContactEmail(), totals[userID]))
	}
	return Annotations{
		Names:  strings.Join(names, "\n"),
		Emails: strings.Join(emails, "\n"),
	}, nil
}

// resolveFieldRoles maps each logical field role to the id of the item's
// custom field with that name.
func resolveFieldRoles(fields []domain.CustomField) map[domain.FieldRole]string {
	ids := make(map[domain.FieldRole]string, len(domain.FieldRoles))
	for _, role := range domain.FieldRoles {
		for _, f := range fields {
			if strings.EqualFold(strings.TrimSpace(f.Name), string(role)) {
				ids[role] = f.ID
				break
			}
		}
	}
	return ids
}

// fieldUpdates builds the bulk-update payload for the roles present on the
// item. Roles without a matching field are skipped.
func fieldUpdates(itemID string, ids map[domain.FieldRole]string, values map[domain.FieldRole]string) []domain.CustomFieldValue {
	var out []domain.CustomFieldValue
	for _, role := range domain.FieldRoles {
		value, wanted := values[role]
		if !wanted {
			continue
		}
		id, ok := ids[role]
		if !ok {
			logger.Warn("Item has no custom field for role", "item_id", itemID, "field", string(role))
			continue
		}
		out = append(out, domain.CustomFieldValue{ID: id, Value: value})
	}
	return out
}

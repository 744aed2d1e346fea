package inventory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"intranet-lending/internal/domain"
)

// The inventory API is inconsistent about field names and value types
// (numbers as strings, ids as numbers, references as objects). Everything
// below maps its payloads onto one canonical domain shape.

type fields map[string]json.RawMessage

func decodeFields(raw json.RawMessage) (fields, error) {
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	return f, nil
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// str returns the first non-empty key as a string. Numbers and booleans are
// formatted, objects yield their "id".
func (f fields) str(keys ...string) string {
	for _, k := range keys {
		raw, ok := f[k]
		if !ok || isNull(raw) {
			continue
		}
		if s := scalarString(raw); s != "" {
			return s
		}
	}
	return ""
}

// ref is str for reference fields; it keeps the nil/empty distinction.
func (f fields) ref(keys ...string) *string {
	if s := f.str(keys...); s != "" {
		return &s
	}
	return nil
}

func (f fields) num(keys ...string) (float64, bool) {
	for _, k := range keys {
		raw, ok := f[k]
		if !ok || isNull(raw) {
			continue
		}
		var n float64
		if err := json.Unmarshal(raw, &n); err == nil {
			return n, true
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
			if n, err := strconv.ParseFloat(s, 64); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func scalarString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err == nil {
		return n.String()
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}
	var obj fields
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.str("id", "value")
	}
	return ""
}

func normalizeItem(raw json.RawMessage) (domain.RemoteItem, error) {
	f, err := decodeFields(raw)
	if err != nil {
		return domain.RemoteItem{}, fmt.Errorf("inventory object: %w", err)
	}

	item := domain.RemoteItem{
		ID:       f.str("id", "_id", "inventoryObjectId"),
		Name:     f.str("name", "displayName", "title"),
		Note:     f.str("note", "notes", "log"),
		HolderID: f.ref("member", "holder", "currentHolder"),
	}
	if item.ID == "" {
		return domain.RemoteItem{}, fmt.Errorf("inventory object without id")
	}
	if pieces, ok := f.num("pieces", "inventoryQuantity", "quantity"); ok {
		item.Pieces = int(pieces)
	}
	if item.Pieces < 0 {
		item.Pieces = 0
	}
	if price, ok := f.num("price", "unitPrice", "purchasePrice"); ok {
		item.Price = price
	}

	for _, key := range []string{"customFields", "custom_fields"} {
		if raw, ok := f[key]; ok && !isNull(raw) {
			cf, err := normalizeCustomFields(raw)
			if err != nil {
				return domain.RemoteItem{}, err
			}
			item.CustomFields = cf
			break
		}
	}
	return item, nil
}

func normalizeCustomFields(raw json.RawMessage) ([]domain.CustomField, error) {
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("custom fields: %w", err)
	}
	out := make([]domain.CustomField, 0, len(list))
	for _, entry := range list {
		cf, err := normalizeCustomField(entry)
		if err != nil {
			return nil, err
		}
		out = append(out, cf)
	}
	return out, nil
}

func normalizeCustomField(raw json.RawMessage) (domain.CustomField, error) {
	f, err := decodeFields(raw)
	if err != nil {
		return domain.CustomField{}, fmt.Errorf("custom field: %w", err)
	}
	cf := domain.CustomField{
		ID:    f.str("id", "customFieldId"),
		Name:  f.str("name", "label", "title"),
		Value: f.str("value"),
	}
	// some payloads nest the definition
	if cf.Name == "" {
		if def, ok := f["customField"]; ok && !isNull(def) {
			if df, err := decodeFields(def); err == nil {
				cf.Name = df.str("name", "label", "title")
				if cf.ID == "" {
					cf.ID = df.str("id")
				}
			}
		}
	}
	return cf, nil
}

func normalizeLending(raw json.RawMessage) (domain.Lending, error) {
	f, err := decodeFields(raw)
	if err != nil {
		return domain.Lending{}, fmt.Errorf("lending: %w", err)
	}
	l := domain.Lending{
		ID:            f.str("id", "_id"),
		ItemID:        f.str("parentInventoryObject", "inventoryObject"),
		BorrowAddress: f.str("borrowAddress", "address"),
		BorrowingDate: f.str("borrowingDate", "startDate", "from"),
		ReturnDate:    f.str("returnDate", "endDate", "to"),
	}
	if q, ok := f.num("quantity", "pieces", "amount"); ok {
		l.Quantity = int(q)
	}
	return l, nil
}

func normalizeContact(raw json.RawMessage) (domain.Contact, error) {
	f, err := decodeFields(raw)
	if err != nil {
		return domain.Contact{}, fmt.Errorf("contact: %w", err)
	}
	c := domain.Contact{
		ID:    f.str("id", "_id"),
		Name:  f.str("name", "displayName", "fullName"),
		Email: f.str("email", "mail"),
	}
	if c.Name == "" {
		c.Name = strings.TrimSpace(f.str("firstName", "firstname") + " " + f.str("lastName", "lastname"))
	}
	return c, nil
}

// decodePage splits a list response into its entries and the next-page link.
// Accepted shapes: a bare array, or an object carrying the entries under
// data/results/items/content and the link under next or links.next.
func decodePage(raw json.RawMessage) ([]json.RawMessage, string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, "", err
		}
		return list, "", nil
	}

	f, err := decodeFields(trimmed)
	if err != nil {
		return nil, "", err
	}

	var list []json.RawMessage
	for _, key := range []string{"data", "results", "items", "content"} {
		if entries, ok := f[key]; ok && !isNull(entries) {
			if err := json.Unmarshal(entries, &list); err != nil {
				return nil, "", fmt.Errorf("%s: %w", key, err)
			}
			break
		}
	}

	next := f.str("next", "nextPage")
	if next == "" {
		if links, ok := f["links"]; ok && !isNull(links) {
			if lf, err := decodeFields(links); err == nil {
				next = lf.str("next")
				if next == "" {
					if nr, ok := lf["next"]; ok {
						if nf, err := decodeFields(nr); err == nil {
							next = nf.str("href")
						}
					}
				}
			}
		}
	}
	return list, next, nil
}

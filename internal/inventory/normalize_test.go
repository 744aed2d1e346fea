package inventory

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeItem(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		id     string
		pieces int
		holder string
		fields int
	}{
		{"Numeric id and pieces", `{"id":7,"name":"Beamer","pieces":3}`, "7", 3, "", 0},
		{"String quantity", `{"id":"8","inventoryQuantity":"4"}`, "8", 4, "", 0},
		{"Negative clamps to zero", `{"id":"9","pieces":-2}`, "9", 0, "", 0},
		{"Holder object", `{"id":"10","member":{"id":"A-1"}}`, "10", 0, "A-1", 0},
		{"Null holder", `{"id":"11","member":null}`, "11", 0, "", 0},
		{"Custom fields", `{"id":"12","customFields":[{"id":"c1","name":"Entra E-Mail","value":"x"}]}`, "12", 0, "", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := normalizeItem(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.id, item.ID)
			assert.Equal(t, tt.pieces, item.Pieces)
			if tt.holder == "" {
				assert.Nil(t, item.HolderID)
			} else {
				require.NotNil(t, item.HolderID)
				assert.Equal(t, tt.holder, *item.HolderID)
			}
			assert.Len(t, item.CustomFields, tt.fields)
		})
	}

	_, err := normalizeItem(json.RawMessage(`{"name":"no id"}`))
	assert.Error(t, err)
}

func TestNormalizeLending(t *testing.T) {
	l, err := normalizeLending(json.RawMessage(`{"id":5,"parentInventoryObject":{"id":1},"borrowAddress":"A-1","quantity":"2","borrowingDate":"2024-06-01","returnDate":null}`))
	require.NoError(t, err)
	assert.Equal(t, "5", l.ID)
	assert.Equal(t, "1", l.ItemID)
	assert.Equal(t, 2, l.Quantity)
	assert.Equal(t, "", l.ReturnDate)
}

func TestDecodePage(t *testing.T) {
	t.Run("Bare array", func(t *testing.T) {
		entries, next, err := decodePage(json.RawMessage(`[{"id":1},{"id":2}]`))
		require.NoError(t, err)
		assert.Len(t, entries, 2)
		assert.Empty(t, next)
	})

	t.Run("Links next href", func(t *testing.T) {
		entries, next, err := decodePage(json.RawMessage(`{"items":[{"id":1}],"links":{"next":{"href":"/x?page=2"}}}`))
		require.NoError(t, err)
		assert.Len(t, entries, 1)
		assert.Equal(t, "/x?page=2", next)
	})

	t.Run("nextPage", func(t *testing.T) {
		_, next, err := decodePage(json.RawMessage(`{"content":[],"nextPage":"/x?page=3"}`))
		require.NoError(t, err)
		assert.Equal(t, "/x?page=3", next)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, _, err := decodePage(json.RawMessage(`"text"`))
		assert.Error(t, err)
	})
}

package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intranet-lending/internal/domain"
	"intranet-lending/internal/logger"
)

// memorySettings is an in-memory SettingsStore.
type memorySettings struct {
	mu      sync.Mutex
	values  map[string]string
	reads   int
	failSet error
}

func newMemorySettings() *memorySettings {
	return &memorySettings{values: map[string]string{}}
}

func (m *memorySettings) GetSetting(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memorySettings) SetSetting(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet != nil {
		return m.failSet
	}
	m.values[key] = value
	return nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *memorySettings, *Credentials) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	settings := newMemorySettings()
	creds := NewCredentials(settings, "static-token", "", "")
	client := NewClient(Options{BaseURL: srv.URL, PageLimit: 2}, creds)
	return client, settings, creds
}

func TestClient_ListItems_FollowsPagination(t *testing.T) {
	var srvURL string
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer static-token", r.Header.Get("Authorization"))
		switch r.URL.Query().Get("page") {
		case "":
			assert.Equal(t, "2", r.URL.Query().Get("limit"))
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{
					{"id": 1, "name": "Beamer", "pieces": 3, "price": "12,50"},
					{"id": "2", "displayName": "Kabeltrommel", "inventoryQuantity": "4"},
				},
				"next": srvURL + "/inventory-object?limit=2&page=2",
			})
		case "2":
			json.NewEncoder(w).Encode(map[string]any{
				"data":  []map[string]any{{"id": 3, "name": "Zelt", "quantity": 1, "member": map[string]any{"id": 77}}},
				"links": map[string]any{"next": nil},
			})
		}
	})
	srvURL = client.baseURL

	items, err := client.ListItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "1", items[0].ID)
	assert.Equal(t, 3, items[0].Pieces)
	assert.InDelta(t, 12.5, items[0].Price, 0.001)
	assert.Equal(t, "Kabeltrommel", items[1].Name)
	assert.Equal(t, 4, items[1].Pieces)
	assert.Equal(t, "Zelt", items[2].Name)
	require.NotNil(t, items[2].HolderID)
	assert.Equal(t, "77", *items[2].HolderID)
}

func TestClient_ListItems_SkipsMalformedEntries(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id":1,"name":"Beamer"},{"name":"ohne ID"},{"id":3,"name":"Zelt"},{"id":4,"customFields":"kaputt"}]`)
	})

	items, rejected, err := client.ListItemsReport(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "1", items[0].ID)
	assert.Equal(t, "3", items[1].ID)
	require.Len(t, rejected, 2)
	assert.Equal(t, 1, rejected[0].Index)
	assert.Empty(t, rejected[0].ID)
	assert.Contains(t, rejected[0].Reason, "without id")
	assert.Equal(t, 3, rejected[1].Index)
	assert.Equal(t, "4", rejected[1].ID)

	items, err = client.ListItems(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestClient_ReloadsTokenOnUnauthorized(t *testing.T) {
	var calls int32
	client, settings, creds := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Header.Get("Authorization") != "Bearer rotated" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"id": 1, "name": "Beamer"})
	})
	ctx := context.Background()

	token, err := creds.ResolveToken(ctx)
	require.NoError(t, err)
	require.Equal(t, "static-token", token)

	// another process refreshed and persisted a new token
	settings.values[TokenSettingKey] = "rotated"

	item, err := client.GetItem(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Beamer", item.Name)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	t.Run("No retry when the store has nothing new", func(t *testing.T) {
		atomic.StoreInt32(&calls, 0)
		settings.values[TokenSettingKey] = "revoked"
		_, err := creds.Reload(ctx)
		require.NoError(t, err)

		_, err = client.GetItem(ctx, "1")
		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusUnauthorized, httpErr.Status)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})
}

func TestClient_RemoteNotFoundIsLoggedAsError(t *testing.T) {
	var buf bytes.Buffer
	logger.InitializeWriter(&buf, "info", "json")
	t.Cleanup(func() { logger.Initialize("info", "text") })

	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"message":"inventory object 99 does not exist"}`)
	})

	_, err := client.GetItem(context.Background(), "99")
	require.Equal(t, domain.KindNotFound, domain.KindOf(err))

	var entry map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		if e["msg"] == "← Inventory API call failed" {
			entry = e
		}
	}
	require.NotNil(t, entry, buf.String())
	assert.Equal(t, "ERROR", entry["level"])
	assert.EqualValues(t, 404, entry["status"])
	assert.Contains(t, entry["error"], "inventory object 99 does not exist")
}

func TestClient_HTTPErrors(t *testing.T) {
	t.Run("403 carries scope hint", func(t *testing.T) {
		client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			io.WriteString(w, `{"error":"forbidden"}`)
		})

		_, err := client.SearchContacts(context.Background(), "Erika Muster")
		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusForbidden, httpErr.Status)
		assert.Contains(t, httpErr.Hint, "address book")
		assert.Contains(t, httpErr.Body, "forbidden")
		assert.Equal(t, domain.KindHTTP, domain.KindOf(err))
	})

	t.Run("403 on lending", func(t *testing.T) {
		client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
		_, err := client.ListActiveLendings(context.Background(), "5")
		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Contains(t, httpErr.Hint, "lending")
	})

	t.Run("404 maps to not found", func(t *testing.T) {
		client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		_, err := client.GetItem(context.Background(), "404")
		assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	})

	t.Run("500", func(t *testing.T) {
		client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, "boom")
		})
		err := client.UpdateItem(context.Background(), "1", domain.ItemPatch{Pieces: 1})
		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, 500, httpErr.Status)
		assert.Empty(t, httpErr.Hint)
	})

	t.Run("Malformed body", func(t *testing.T) {
		client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "<html>")
		})
		_, err := client.GetItem(context.Background(), "1")
		assert.Equal(t, domain.KindMalformedResponse, domain.KindOf(err))
	})

	t.Run("Network error", func(t *testing.T) {
		creds := NewCredentials(nil, "static-token", "", "")
		client := NewClient(Options{BaseURL: "http://127.0.0.1:1"}, creds)
		_, err := client.GetItem(context.Background(), "1")
		assert.Equal(t, domain.KindNetwork, domain.KindOf(err))
	})
}

func TestClient_NotConfigured(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL}, NewCredentials(nil, "", "", ""))
	_, err := client.ListItems(context.Background())
	assert.Equal(t, domain.KindNotConfigured, domain.KindOf(err))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestClient_RefreshHeaderRefreshesToken(t *testing.T) {
	var refreshCalls int32
	client, settings, creds := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/refresh-token":
			atomic.AddInt32(&refreshCalls, 1)
			// the refresh response itself asks again; it must not recurse
			w.Header().Set("X-Token-Refresh", "true")
			json.NewEncoder(w).Encode(map[string]string{"token": "fresh-token"})
		case "/inventory-object/1":
			if r.Header.Get("Authorization") == "Bearer static-token" {
				w.Header().Set("X-Token-Refresh", "true")
			}
			json.NewEncoder(w).Encode(map[string]any{"id": 1, "name": "Beamer", "pieces": 2})
		}
	})

	item, err := client.GetItem(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Beamer", item.Name)
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls))
	assert.Equal(t, "fresh-token", settings.values[TokenSettingKey])

	token, err := creds.ResolveToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)

	// next call uses the new token and does not refresh again
	_, err = client.GetItem(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls))
}

func TestClient_RefreshFailureIsNotFatal(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/refresh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("X-Token-Refresh", "1")
		json.NewEncoder(w).Encode(map[string]any{"id": 1, "name": "Beamer"})
	})

	item, err := client.GetItem(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "1", item.ID)
}

func TestClient_Mutations(t *testing.T) {
	var (
		mu       sync.Mutex
		requests = map[string]string{}
	)
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests[r.Method+" "+r.URL.Path] = string(body)
		mu.Unlock()
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/lending":
			io.WriteString(w, `{"data":{"id":"L-9","quantity":2}}`)
		default:
			io.WriteString(w, `{}`)
		}
	})
	ctx := context.Background()

	holder := "A-1"
	require.NoError(t, client.UpdateItem(ctx, "1", domain.ItemPatch{Member: &holder, Note: "log", Pieces: 2}))
	assert.JSONEq(t, `{"member":"A-1","note":"log","pieces":2}`, requests["PATCH /inventory-object/1"])

	lending, err := client.CreateLending(ctx, domain.LendingRequest{ItemID: "1", BorrowAddress: "A-1", Quantity: 2, BorrowingDate: "2024-06-01", ReturnDate: "2024-06-05"})
	require.NoError(t, err)
	assert.Equal(t, "L-9", lending.ID)
	assert.Equal(t, "1", lending.ItemID)
	assert.JSONEq(t, `{"parentInventoryObject":"1","borrowAddress":"A-1","quantity":2,"borrowingDate":"2024-06-01","returnDate":"2024-06-05"}`, requests["POST /lending"])

	require.NoError(t, client.SetLendingReturnDate(ctx, "L-9", "2024-06-03"))
	assert.JSONEq(t, `{"returnDate":"2024-06-03"}`, requests["PATCH /lending/L-9"])

	require.NoError(t, client.BulkUpdateCustomFields(ctx, "1", []domain.CustomFieldValue{{ID: "cf1", Value: "x"}}))
	assert.JSONEq(t, `[{"id":"cf1","value":"x"}]`, requests["PATCH /inventory-object/1/custom-fields/bulk-update"])

	err = client.UpdateItem(ctx, "1", domain.ItemPatch{Pieces: -1})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestClient_SearchContactsAndCustomFields(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/contact-details":
			assert.Equal(t, "Erika Muster", r.URL.Query().Get("search"))
			io.WriteString(w, `[{"id":12,"firstName":"Erika","lastName":"Muster","mail":"erika@example.com"}]`)
		case "/inventory-object/1/custom-fields":
			io.WriteString(w, `{"results":[{"id":"cf1","label":"Aktuelle Ausleiher","value":null},{"id":"cf2","customField":{"id":"x","name":"Entra E-Mail"},"value":"a"}]}`)
		}
	})
	ctx := context.Background()

	contacts, err := client.SearchContacts(ctx, "Erika Muster")
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, domain.Contact{ID: "12", Name: "Erika Muster", Email: "erika@example.com"}, contacts[0])

	fields, err := client.ListCustomFields(ctx, "1", "")
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "Aktuelle Ausleiher", fields[0].Name)
	assert.Equal(t, "", fields[0].Value)
	assert.Equal(t, "Entra E-Mail", fields[1].Name)
	assert.Equal(t, "cf2", fields[1].ID)
}

func TestScopeHint(t *testing.T) {
	assert.Contains(t, scopeHint("/inventory-object/1/custom-fields/bulk-update"), "custom field")
	assert.Contains(t, scopeHint("/lending?parentInventoryObject=1"), "lending")
	assert.Contains(t, scopeHint("/contact-details?search=x"), "address book")
	assert.NotEmpty(t, scopeHint("/other"))
}

package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertService_SendAlert(t *testing.T) {
	var (
		auth    string
		payload map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &payload))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	svc := newAlertService("SG.key", srv.URL, "noreply@example.com", "Intranet", []string{"ops@example.com", "it@example.com"})
	err := svc.SendAlert(context.Background(), "Inventory sync failed", "network error")
	require.NoError(t, err)

	assert.Equal(t, "Bearer SG.key", auth)
	assert.Equal(t, "Inventory sync failed", payload["subject"])
	personalizations := payload["personalizations"].([]any)
	require.Len(t, personalizations, 1)
	assert.Len(t, personalizations[0].(map[string]any)["to"], 2)
}

func TestAlertService_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"errors":[{"message":"bad key"}]}`)
	}))
	defer srv.Close()

	svc := newAlertService("SG.bad", srv.URL, "noreply@example.com", "Intranet", []string{"ops@example.com"})
	err := svc.SendAlert(context.Background(), "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestAlertService_NotConfigured(t *testing.T) {
	svc := NewAlertService("", "noreply@example.com", "Intranet", nil)
	assert.NoError(t, svc.SendAlert(context.Background(), "s", "b"))
}

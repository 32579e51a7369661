package contract

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	clierrors "github.com/entctl/entctl/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/contracts/machine", r.URL.Path)
		assert.Equal(t, "Bearer machine-token-1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"machineId": "m-1",
			"contractId": "c-1",
			"machineToken": "machine-token-1",
			"expires": "2027-01-02T15:04:05Z",
			"entitlements": {
				"esm-infra": {"entitled": true}
			}
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "machine-token-1")
	token, err := client.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "m-1", token.MachineID)
	assert.True(t, token.Entitlement("esm-infra").Entitled)
	assert.False(t, token.Entitlement("unknown-service").Entitled)
	assert.False(t, token.Expired(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, token.Expired(time.Date(2027, 6, 1, 0, 0, 0, 0, time.UTC)))
}

func TestClientRefreshForbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "revoked-token")
	_, err := client.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, clierrors.ErrForbidden))

	// Expected category: the user message is clean, no raw error chain.
	assert.Equal(t,
		"Contract access denied. Check that the machine's subscription is still valid.",
		clierrors.UserMessage(err))
}

func TestClientRefreshConnectionError(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "token")
	_, err := client.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, clierrors.ErrConnectionFailed))
	assert.True(t, clierrors.IsRetryableError(err))
}

func TestClientAttach(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/contracts/machine/attach", r.URL.Path)
		assert.Equal(t, "Bearer attach-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"machineId": "m-2", "machineToken": "mt-2", "entitlements": {}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	token, err := client.Attach(context.Background(), "attach-token", "m-2")
	require.NoError(t, err)
	assert.Equal(t, "mt-2", token.Token)
}

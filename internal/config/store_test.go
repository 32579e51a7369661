package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestStoreCacheRoundTrip(t *testing.T) {
	store := newTestStore(t)

	in := map[string]any{"entitled": true, "suite": "infra-security"}
	require.NoError(t, store.WriteCache("machine-token", in))

	var out map[string]any
	require.NoError(t, store.ReadCache("machine-token", &out))
	assert.Equal(t, true, out["entitled"])
	assert.Equal(t, "infra-security", out["suite"])
}

func TestStoreCacheMiss(t *testing.T) {
	store := newTestStore(t)

	var out map[string]any
	err := store.ReadCache("never-written", &out)
	assert.True(t, errors.Is(err, ErrCacheMiss))
}

func TestStoreDeleteCacheIdempotent(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.WriteCache(StatusCacheKey("esm-infra"), ServiceStatusRecord{Service: "esm-infra", Enabled: true}))
	require.NoError(t, store.DeleteCache(StatusCacheKey("esm-infra")))
	// Second delete of a missing key is not an error.
	require.NoError(t, store.DeleteCache(StatusCacheKey("esm-infra")))

	var rec ServiceStatusRecord
	err := store.ReadCache(StatusCacheKey("esm-infra"), &rec)
	assert.True(t, errors.Is(err, ErrCacheMiss))
}

func TestNoticesAddRemove(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.AddNotice("reboot-required", "System restart required to finish enabling realtime-kernel"))
	// Duplicate label is a no-op.
	require.NoError(t, store.AddNotice("reboot-required", "different message"))

	notices, err := store.Notices()
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.Equal(t, "reboot-required", notices[0].Label)
	assert.NotEmpty(t, notices[0].ID)

	require.NoError(t, store.RemoveNotice("reboot-required"))
	notices, err = store.Notices()
	require.NoError(t, err)
	assert.Empty(t, notices)
}

func TestPathForRejectsTraversal(t *testing.T) {
	store := newTestStore(t)

	path := store.pathFor("../../etc/passwd")
	assert.Contains(t, path, store.DataDir())
	assert.Contains(t, path, "invalid-key")
}

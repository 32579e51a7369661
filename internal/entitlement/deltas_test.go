package entitlement

import (
	"context"
	"errors"
	"testing"

	"github.com/entctl/entctl/internal/config"
	"github.com/entctl/entctl/internal/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessContractDeltasEmptyOrigIsNoop(t *testing.T) {
	h := newHarness(t)
	svc := newFakeService("svc")
	svc.application = status.Enabled
	h.entitle("svc")

	acted, err := h.engine(svc, Options{}).ProcessContractDeltas(
		context.Background(),
		map[string]any{},
		map[string]any{"entitled": false},
		false,
	)
	require.NoError(t, err)
	assert.False(t, acted, "first contract sync has nothing to reconcile")
	assert.Equal(t, 0, svc.disableCalls)
	assert.Equal(t, 0, svc.enableCalls)
}

func TestProcessContractDeltasEntitlementWithdrawnDisables(t *testing.T) {
	h := newHarness(t)
	svc := newFakeService("svc")
	svc.application = status.Enabled
	h.entitle("svc")

	acted, err := h.engine(svc, Options{}).ProcessContractDeltas(
		context.Background(),
		map[string]any{"entitled": true},
		map[string]any{"entitled": false},
		false,
	)
	require.NoError(t, err)
	assert.True(t, acted)
	assert.Equal(t, 1, svc.disableCalls)
	assert.Equal(t, status.Disabled, svc.application)
}

func TestProcessContractDeltasWithdrawnButBlockedByDependents(t *testing.T) {
	h := newHarness(t)
	svc := newFakeService("svc")
	svc.application = status.Enabled
	svc.meta.DependentServices = []ServiceDependency{{Name: "child"}}
	child := newFakeService("child")
	child.application = status.Enabled
	h.registerShared(child)
	h.entitle("svc", "child")

	// CanDisable refuses; the reconciliation logs and moves on without
	// failing or touching either service.
	acted, err := h.engine(svc, Options{}).ProcessContractDeltas(
		context.Background(),
		map[string]any{"entitled": true},
		map[string]any{"entitled": false},
		false,
	)
	require.NoError(t, err)
	assert.True(t, acted)
	assert.Equal(t, 0, svc.disableCalls)
	assert.Equal(t, 0, child.disableCalls)
}

func TestProcessContractDeltasWithdrawnWhileDisabledClearsCache(t *testing.T) {
	h := newHarness(t)
	svc := newFakeService("svc")
	h.entitle("svc")
	require.NoError(t, h.store.WriteCache(config.StatusCacheKey("svc"),
		config.ServiceStatusRecord{Service: "svc", Enabled: true}))

	acted, err := h.engine(svc, Options{}).ProcessContractDeltas(
		context.Background(),
		map[string]any{"entitled": true},
		map[string]any{"entitled": false},
		false,
	)
	require.NoError(t, err)
	assert.True(t, acted)
	assert.Equal(t, 0, svc.disableCalls, "silent path: no disable, no user-visible action")

	var record config.ServiceStatusRecord
	err = h.store.ReadCache(config.StatusCacheKey("svc"), &record)
	assert.True(t, errors.Is(err, config.ErrCacheMiss), "cached state must be cleared")
}

func TestProcessContractDeltasBetaAutoEnable(t *testing.T) {
	h := newHarness(t)
	svc := newFakeService("svc")
	svc.meta.Beta = true
	h.entitle("svc")

	e := h.engine(svc, Options{})
	acted, err := e.ProcessContractDeltas(
		context.Background(),
		map[string]any{
			"entitled":    true,
			"obligations": map[string]any{"enableByDefault": false},
		},
		map[string]any{
			"obligations": map[string]any{"enableByDefault": true},
		},
		true,
	)
	require.NoError(t, err)
	assert.True(t, acted)
	assert.Equal(t, 1, svc.enableCalls, "enable must be invoked exactly once")
	assert.True(t, e.opts.AllowBeta, "the local beta-allow override must be set")
}

func TestProcessContractDeltasBetaAutoEnableRequiresAllowEnable(t *testing.T) {
	h := newHarness(t)
	svc := newFakeService("svc")
	svc.meta.Beta = true
	h.entitle("svc")

	acted, err := h.engine(svc, Options{}).ProcessContractDeltas(
		context.Background(),
		map[string]any{
			"entitled":    true,
			"obligations": map[string]any{"enableByDefault": false},
		},
		map[string]any{
			"obligations": map[string]any{"enableByDefault": true},
		},
		false,
	)
	require.NoError(t, err)
	assert.False(t, acted)
	assert.Equal(t, 0, svc.enableCalls)
}

func TestProcessContractDeltasNoTransitionIsNoop(t *testing.T) {
	h := newHarness(t)
	svc := newFakeService("svc")
	svc.application = status.Enabled
	h.entitle("svc")

	acted, err := h.engine(svc, Options{}).ProcessContractDeltas(
		context.Background(),
		map[string]any{"entitled": true},
		map[string]any{"directives": map[string]any{"snapChannel": "edge"}},
		true,
	)
	require.NoError(t, err)
	assert.False(t, acted)
	assert.Equal(t, 0, svc.disableCalls)
	assert.Equal(t, 0, svc.enableCalls)
}

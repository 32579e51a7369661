package entitlement

import (
	"context"
	"testing"
	"time"

	"github.com/entctl/entctl/internal/config"
	"github.com/entctl/entctl/internal/contract"
	"github.com/entctl/entctl/internal/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileContractFirstSync(t *testing.T) {
	h := newHarness(t)
	svc := newFakeService("svc")
	svc.application = status.Enabled
	h.registerShared(svc)
	h.refresher = &fakeRefresher{token: &contract.MachineToken{
		Expires: time.Now().Add(24 * time.Hour),
		Entitlements: map[string]contract.EntitlementConfig{
			"svc": {Entitled: false},
		},
	}}

	// No cached token: the document is stored but nothing is reconciled.
	require.NoError(t, ReconcileContract(context.Background(), h.deps(), Options{}))
	assert.Equal(t, 0, svc.disableCalls)

	var cached contract.MachineToken
	require.NoError(t, h.store.ReadCache(config.KeyMachineToken, &cached))
}

func TestReconcileContractWithdrawal(t *testing.T) {
	h := newHarness(t)
	svc := newFakeService("svc")
	svc.application = status.Enabled
	h.registerShared(svc)
	h.entitle("svc")
	h.refresher = &fakeRefresher{token: &contract.MachineToken{
		Expires: time.Now().Add(24 * time.Hour),
		Entitlements: map[string]contract.EntitlementConfig{
			"svc": {Entitled: false},
		},
	}}

	require.NoError(t, ReconcileContract(context.Background(), h.deps(), Options{}))
	assert.Equal(t, 1, svc.disableCalls)
	assert.Equal(t, status.Disabled, svc.application)
}

func TestReconcileContractUnchangedServiceUntouched(t *testing.T) {
	h := newHarness(t)
	svc := newFakeService("svc")
	svc.application = status.Enabled
	h.registerShared(svc)
	h.entitle("svc")
	h.refresher = &fakeRefresher{token: &contract.MachineToken{
		Expires: time.Now().Add(24 * time.Hour),
		Entitlements: map[string]contract.EntitlementConfig{
			"svc": {Entitled: true},
		},
	}}

	require.NoError(t, ReconcileContract(context.Background(), h.deps(), Options{}))
	assert.Equal(t, 0, svc.disableCalls)
	assert.Equal(t, 0, svc.enableCalls)
}

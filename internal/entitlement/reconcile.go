package entitlement

import (
	"context"

	"github.com/entctl/entctl/internal/config"
	"github.com/entctl/entctl/internal/contract"
	"github.com/entctl/entctl/internal/logging"
)

// ReconcileContract fetches a fresh contract document, caches it, and runs
// delta reconciliation for every known service. Backend-driven enables are
// permitted here: this is the one flow where the contract is authoritative
// about what should be running.
func ReconcileContract(ctx context.Context, deps Deps, opts Options) error {
	logger := logging.Component("reconcile")

	var previous contract.MachineToken
	hadPrevious := deps.Store.ReadCache(config.KeyMachineToken, &previous) == nil

	updated, err := deps.Refresher.Refresh(ctx)
	if err != nil {
		return err
	}
	if err := deps.Store.WriteCache(config.KeyMachineToken, updated); err != nil {
		return err
	}

	if !hadPrevious {
		logger.Debug().Msg("First contract sync, nothing to reconcile")
		return nil
	}

	for _, name := range deps.Registry.ValidServices() {
		origAccess := map[string]any{}
		if _, known := previous.Entitlements[name]; known {
			origAccess = contract.EntitlementToMap(previous.Entitlement(name))
		}
		delta := contract.Diff(origAccess, contract.EntitlementToMap(updated.Entitlement(name)))
		if len(delta) == 0 {
			continue
		}

		engine, err := deps.Registry.Engine(name, deps, opts)
		if err != nil {
			logger.Warn().Err(err).Str("service", name).Msg("Skipping reconciliation for unknown service")
			continue
		}
		acted, err := engine.ProcessContractDeltas(ctx, origAccess, delta, true)
		if err != nil {
			logger.Warn().Err(err).Str("service", name).Msg("Reconciliation failed for service")
			continue
		}
		if acted {
			logger.Info().Str("service", name).Msg("Reconciled contract change")
		}
	}
	return nil
}

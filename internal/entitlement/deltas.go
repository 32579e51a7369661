package entitlement

import (
	"context"

	"github.com/entctl/entctl/internal/config"
	"github.com/entctl/entctl/internal/contract"
	"github.com/entctl/entctl/internal/status"
)

// ProcessContractDeltas reconciles a contract change for this service
// against live state. origAccess and delta are the service's contract
// fragment before the refresh and the computed difference; allowEnable
// permits the backend-driven auto-enable path. Returns whether any action
// was taken.
//
// Cascading disable failures are logged, not returned: a refresh must not
// hard-fail because one service could not be torn down.
func (e *Engine) ProcessContractDeltas(ctx context.Context, origAccess, delta map[string]any, allowEnable bool) (bool, error) {
	if len(origAccess) == 0 {
		// First contract sync, nothing previously known to reconcile.
		return false, nil
	}

	merged := contract.ApplyDelta(origAccess, delta)
	wasEntitled := entitledIn(origAccess)
	isEntitled := entitledIn(merged)

	if !wasEntitled || isEntitled {
		return e.maybeAutoEnable(ctx, origAccess, merged, isEntitled, allowEnable), nil
	}

	// Transition entitled -> unentitled.
	meta := e.svc.Meta()
	application, _ := e.ApplicationStatus()
	if application == status.Enabled || application == status.Warning {
		if ok, fail := e.CanDisable(false); !ok {
			e.logger.Warn().
				Str("reason", string(fail.Reason)).
				Msg("Service is no longer entitled but cannot be disabled")
			return true, nil
		}
		if _, fail, err := e.Disable(ctx); err != nil || fail != nil {
			e.logger.Warn().Err(err).Msg("Failed disabling service after entitlement was withdrawn")
			return true, nil
		}
		e.logger.Info().Msg("Disabled service: entitlement was withdrawn")
		return true, nil
	}

	// Not enabled: clear any locally cached state and stay quiet.
	if err := e.deps.Store.DeleteCache(config.StatusCacheKey(meta.Name)); err != nil {
		e.logger.Debug().Err(err).Msg("Failed clearing status cache")
	}
	e.logger.Debug().Msg("Entitlement withdrawn for inactive service, cleared cached state")
	return true, nil
}

// maybeAutoEnable handles the backend flipping enableByDefault to true for
// a beta service: the local beta-allow override is set and the service is
// enabled if permitted.
func (e *Engine) maybeAutoEnable(ctx context.Context, origAccess, merged map[string]any, isEntitled, allowEnable bool) bool {
	if !allowEnable || !isEntitled || !e.svc.Meta().Beta {
		return false
	}
	if enableByDefaultIn(origAccess) || !enableByDefaultIn(merged) {
		return false
	}

	e.opts.AllowBeta = true
	if ok, fail := e.CanEnable(ctx, false); !ok {
		e.logger.Debug().
			Str("reason", string(fail.Reason)).
			Msg("Skipping enable-by-default: enable not permitted")
		return false
	}
	ok, fail, err := e.Enable(ctx)
	if err != nil || !ok {
		e.logger.Warn().Err(err).Msg("Failed enabling service requested by contract obligations")
		if fail != nil {
			e.logger.Debug().Str("reason", string(fail.Reason)).Msg("Enable-by-default failure reason")
		}
		return true
	}
	e.logger.Info().Msg("Enabled service: contract obligations request enable by default")
	return true
}

func entitledIn(access map[string]any) bool {
	entitled, _ := access["entitled"].(bool)
	return entitled
}

func enableByDefaultIn(access map[string]any) bool {
	obligations, _ := access["obligations"].(map[string]any)
	if obligations == nil {
		return false
	}
	enabled, _ := obligations["enableByDefault"].(bool)
	return enabled
}

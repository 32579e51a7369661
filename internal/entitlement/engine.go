package entitlement

import (
	"context"
	"fmt"
	"time"

	"github.com/entctl/entctl/internal/config"
	"github.com/entctl/entctl/internal/contract"
	"github.com/entctl/entctl/internal/logging"
	"github.com/entctl/entctl/internal/status"
	"github.com/rs/zerolog"
)

// Engine composes one Service with the shared state-machine behavior:
// status computation, permission checks, and enable/disable execution.
// Engines are built fresh per operation and hold no state worth keeping;
// the config store is the only durable layer.
type Engine struct {
	svc  Service
	deps Deps
	opts Options

	hooks  []MessageHook
	logger zerolog.Logger

	// one-shot guard for the contract refresh triggered by a stale token
	// during the entitlement check
	refreshed bool

	token       *contract.MachineToken
	tokenLoaded bool
}

// NewEngine builds an engine for one service.
func NewEngine(svc Service, deps Deps, opts Options) *Engine {
	return &Engine{
		svc:    svc,
		deps:   deps,
		opts:   opts,
		logger: logging.Component("entitlement").With().Str("service", svc.Meta().Name).Logger(),
	}
}

// Service returns the service this engine operates on.
func (e *Engine) Service() Service { return e.svc }

// Deps returns the engine's collaborators.
func (e *Engine) Deps() Deps { return e.deps }

// Options returns the per-operation flags.
func (e *Engine) Options() Options { return e.opts }

// AddPreEnableHook appends a confirmation hook run before the enable
// action, after any hooks the service itself declares.
func (e *Engine) AddPreEnableHook(h MessageHook) {
	e.hooks = append(e.hooks, h)
}

// Confirm asks the user for confirmation. With assume-yes it returns true
// without blocking.
func (e *Engine) Confirm(message string) bool {
	if e.opts.AssumeYes {
		return true
	}
	if e.deps.Prompter == nil {
		return false
	}
	return e.deps.Prompter.ConfirmYesNo(message)
}

func (e *Engine) machineToken() *contract.MachineToken {
	if e.tokenLoaded {
		return e.token
	}
	e.tokenLoaded = true
	var token contract.MachineToken
	if err := e.deps.Store.ReadCache(config.KeyMachineToken, &token); err != nil {
		return nil
	}
	e.token = &token
	return e.token
}

// EntitlementConfig returns this service's contract fragment, zero when
// the machine is not attached or the contract does not mention it.
func (e *Engine) EntitlementConfig() contract.EntitlementConfig {
	return e.machineToken().Entitlement(e.svc.Meta().Name)
}

// EffectiveDirectives returns the directive set with matching overrides
// applied for this machine and variant.
func (e *Engine) EffectiveDirectives() contract.Directives {
	return e.EntitlementConfig().Effective(e.deps.Machine, e.svc.Meta().VariantName)
}

// ContractStatus reports whether the contract entitles this service.
func (e *Engine) ContractStatus() status.ContractStatus {
	if e.EntitlementConfig().Entitled {
		return status.Entitled
	}
	return status.Unentitled
}

// ApplicabilityStatus checks contract affordance filters first, then the
// service's own machine checks.
func (e *Engine) ApplicabilityStatus() (status.ApplicabilityStatus, string) {
	meta := e.svc.Meta()
	aff := e.EntitlementConfig().Affordances
	m := e.deps.Machine

	if m != nil {
		if len(aff.Series) > 0 && !contains(aff.Series, m.Series) {
			return status.Inapplicable, fmt.Sprintf(
				"%s is not available for series %s", meta.Title, m.Series)
		}
		if len(aff.Architectures) > 0 && !contains(aff.Architectures, m.Architecture) {
			return status.Inapplicable, fmt.Sprintf(
				"%s is not available on %s", meta.Title, m.Architecture)
		}
	}
	return e.svc.ApplicabilityStatus(m)
}

// ApplicationStatus reports whether the service is currently active.
func (e *Engine) ApplicationStatus() (status.ApplicationStatus, string) {
	return e.svc.ApplicationStatus(e)
}

// UserFacingStatus derives the single status rendered to users.
func (e *Engine) UserFacingStatus() status.Result {
	applicability, applicabilityDetail := e.ApplicabilityStatus()
	application, applicationDetail := e.ApplicationStatus()
	return status.UserFacing(
		applicability, applicabilityDetail,
		e.ContractStatus(),
		application, applicationDetail,
		e.svc.Meta().Title,
	)
}

// CanEnable reports whether an enable operation is permitted, checking
// conditions in a fixed order and short-circuiting at the first failure.
// When ignoreDependencies is set the incompatible/required-service checks
// are skipped; cascading resolution uses this to avoid recursion.
func (e *Engine) CanEnable(ctx context.Context, ignoreDependencies bool) (bool, *status.CanEnableFailure) {
	meta := e.svc.Meta()

	if e.ContractStatus() != status.Entitled {
		e.maybeRefreshContract(ctx)
		if e.ContractStatus() != status.Entitled {
			return false, &status.CanEnableFailure{
				Reason:  status.EnableNotEntitled,
				Message: fmt.Sprintf("%s is not entitled", meta.Title),
			}
		}
	}

	if e.opts.AccessOnly && !meta.SupportsAccessOnly {
		return false, &status.CanEnableFailure{
			Reason:  status.EnableAccessOnlyNotSupported,
			Message: fmt.Sprintf("%s does not support access-only mode", meta.Title),
		}
	}

	if application, _ := e.ApplicationStatus(); application == status.Enabled {
		return false, &status.CanEnableFailure{
			Reason:  status.EnableAlreadyEnabled,
			Message: fmt.Sprintf("%s is already enabled", meta.Title),
		}
	}

	if applicability, detail := e.ApplicabilityStatus(); applicability == status.Inapplicable {
		return false, &status.CanEnableFailure{
			Reason:  status.EnableInapplicable,
			Message: detail,
		}
	}

	if meta.Beta && !e.allowBeta() {
		return false, &status.CanEnableFailure{Reason: status.EnableIsBeta}
	}

	if !ignoreDependencies {
		if len(e.enabledIncompatibleServices()) > 0 {
			return false, &status.CanEnableFailure{Reason: status.EnableIncompatibleService}
		}
		if len(e.inactiveRequiredServices()) > 0 {
			return false, &status.CanEnableFailure{Reason: status.EnableInactiveRequiredServices}
		}
	}

	return true, nil
}

// Enable drives the service to the enabled state, resolving incompatible
// and required services first. Returns (false, failure, nil) on a
// permission-denied outcome, (false, nil, nil) when the user aborted at a
// messaging hook, and a non-nil error only for environment failures.
//
// Calling Enable twice in immediate succession is safe: the second call
// short-circuits at AlreadyEnabled.
func (e *Engine) Enable(ctx context.Context) (bool, *status.CanEnableFailure, error) {
	ok, fail := e.CanEnable(ctx, false)
	if !ok {
		switch fail.Reason {
		case status.EnableIncompatibleService:
			if resolved, f := e.disableIncompatibleServices(ctx); !resolved {
				return false, f, nil
			}
			// Conflicts resolved; required services may still be inactive.
			if len(e.inactiveRequiredServices()) > 0 {
				if resolved, f := e.enableRequiredServices(ctx); !resolved {
					return false, f, nil
				}
			}
		case status.EnableInactiveRequiredServices:
			if resolved, f := e.enableRequiredServices(ctx); !resolved {
				return false, f, nil
			}
		default:
			return false, fail, nil
		}
	}

	for _, hook := range e.preEnableHooks() {
		if !hook(e) {
			e.logger.Info().Msg("Enable aborted at pre-enable confirmation")
			return false, nil, nil
		}
	}

	if err := e.svc.PerformEnable(ctx, e); err != nil {
		return false, nil, err
	}

	meta := e.svc.Meta()
	record := config.ServiceStatusRecord{
		Service:    meta.Name,
		Enabled:    true,
		AccessOnly: e.opts.AccessOnly,
		Variant:    meta.VariantName,
		UpdatedAt:  time.Now().UTC(),
	}
	if err := e.deps.Store.WriteCache(config.StatusCacheKey(meta.Name), record); err != nil {
		e.logger.Warn().Err(err).Msg("Failed writing status cache after enable")
	}
	e.logger.Info().Str("variant", meta.VariantName).Msg("Service enabled")
	return true, nil, nil
}

// CanDisable reports whether a disable operation is permitted.
func (e *Engine) CanDisable(ignoreDependentServices bool) (bool, *status.CanDisableFailure) {
	meta := e.svc.Meta()

	if e.opts.Purge && !meta.SupportsPurge {
		return false, &status.CanDisableFailure{
			Reason:  status.DisablePurgeNotSupported,
			Message: fmt.Sprintf("%s does not support disabling with --purge", meta.Title),
		}
	}

	if application, _ := e.ApplicationStatus(); application != status.Enabled && application != status.Warning {
		return false, &status.CanDisableFailure{
			Reason:  status.DisableAlreadyDisabled,
			Message: fmt.Sprintf("%s is not currently enabled", meta.Title),
		}
	}

	if !ignoreDependentServices && len(e.enabledDependentServices()) > 0 {
		return false, &status.CanDisableFailure{Reason: status.DisableActiveDependentServices}
	}

	return true, nil
}

// Disable drives the service to the disabled state, disabling dependent
// services first.
func (e *Engine) Disable(ctx context.Context) (bool, *status.CanDisableFailure, error) {
	ok, fail := e.CanDisable(false)
	if !ok {
		if fail.Reason != status.DisableActiveDependentServices {
			return false, fail, nil
		}
		if resolved, f := e.disableDependentServices(ctx); !resolved {
			return false, f, nil
		}
	}

	if err := e.svc.PerformDisable(ctx, e); err != nil {
		return false, nil, err
	}

	meta := e.svc.Meta()
	if err := e.deps.Store.DeleteCache(config.StatusCacheKey(meta.Name)); err != nil {
		e.logger.Warn().Err(err).Msg("Failed clearing status cache after disable")
	}
	e.logger.Info().Msg("Service disabled")
	return true, nil, nil
}

func (e *Engine) allowBeta() bool {
	if e.opts.AllowBeta {
		return true
	}
	return e.deps.Settings != nil && e.deps.Settings.AllowBeta
}

// maybeRefreshContract refreshes the cached contract once per operation
// when its expiry has passed. Refresh failures are logged; the check then
// proceeds on the stale document.
func (e *Engine) maybeRefreshContract(ctx context.Context) {
	if e.refreshed || e.deps.Refresher == nil {
		return
	}
	token := e.machineToken()
	if token == nil || !token.Expired(time.Now()) {
		return
	}
	e.refreshed = true

	updated, err := e.deps.Refresher.Refresh(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Contract refresh failed, using cached contract")
		return
	}
	if err := e.deps.Store.WriteCache(config.KeyMachineToken, updated); err != nil {
		e.logger.Warn().Err(err).Msg("Failed caching refreshed contract")
	}
	e.token = updated
	e.logger.Debug().Msg("Refreshed expired contract before entitlement check")
}

func (e *Engine) preEnableHooks() []MessageHook {
	var hooks []MessageHook
	if messenger, ok := e.svc.(PreEnableMessenger); ok {
		hooks = append(hooks, messenger.PreEnableHooks()...)
	}
	return append(hooks, e.hooks...)
}

// relatedEngine builds an engine for another service named in a
// dependency declaration, through the registry indirection so fakes can
// stand in during tests.
func (e *Engine) relatedEngine(name string) (*Engine, error) {
	if e.deps.Registry == nil {
		return nil, fmt.Errorf("no service registry configured")
	}
	return e.deps.Registry.Engine(name, e.deps, Options{
		AllowBeta: e.opts.AllowBeta,
		AssumeYes: e.opts.AssumeYes,
	})
}

// enabledIncompatibleServices returns declared incompatible services that
// currently report enabled. Recomputed per call: system state may change
// between checks.
func (e *Engine) enabledIncompatibleServices() []*Engine {
	return e.relatedWithStatus(e.svc.Meta().IncompatibleServices, true)
}

// enabledDependentServices returns declared dependent services that
// currently report enabled.
func (e *Engine) enabledDependentServices() []*Engine {
	return e.relatedWithStatus(e.svc.Meta().DependentServices, true)
}

// inactiveRequiredServices returns declared required services that are not
// currently enabled.
func (e *Engine) inactiveRequiredServices() []*Engine {
	return e.relatedWithStatus(e.svc.Meta().RequiredServices, false)
}

func (e *Engine) relatedWithStatus(deps []ServiceDependency, wantEnabled bool) []*Engine {
	var matched []*Engine
	for _, dep := range deps {
		related, err := e.relatedEngine(dep.Name)
		if err != nil {
			e.logger.Warn().Err(err).Str("related", dep.Name).Msg("Skipping unknown related service")
			continue
		}
		application, _ := related.ApplicationStatus()
		enabled := application == status.Enabled
		if enabled == wantEnabled {
			matched = append(matched, related)
		}
	}
	return matched
}

func (e *Engine) dependencyMessage(name string) string {
	meta := e.svc.Meta()
	for _, dep := range append(append(append([]ServiceDependency{},
		meta.IncompatibleServices...), meta.RequiredServices...), meta.DependentServices...) {
		if dep.Name == name && dep.Message != "" {
			return dep.Message
		}
	}
	return ""
}

// disableIncompatibleServices prompts for and performs the disable of each
// enabled incompatible service. Declining or failing any of them refuses
// the outer enable.
func (e *Engine) disableIncompatibleServices(ctx context.Context) (bool, *status.CanEnableFailure) {
	title := e.svc.Meta().Title
	for _, incompatible := range e.enabledIncompatibleServices() {
		depMeta := incompatible.Service().Meta()
		message := e.dependencyMessage(depMeta.Name)
		if message == "" {
			message = fmt.Sprintf("%s is incompatible with %s. Disable %s and proceed?",
				depMeta.Title, title, depMeta.Title)
		}
		if !e.Confirm(message) {
			e.logger.Debug().Str("incompatible", depMeta.Name).Msg("User declined disabling incompatible service")
			return false, &status.CanEnableFailure{
				Reason:  status.EnableIncompatibleService,
				Message: fmt.Sprintf("Cannot enable %s while %s is enabled", title, depMeta.Title),
			}
		}
		ok, _, err := incompatible.Disable(ctx)
		if err != nil || !ok {
			e.logger.Warn().Err(err).Str("incompatible", depMeta.Name).Msg("Failed disabling incompatible service")
			return false, &status.CanEnableFailure{
				Reason:  status.EnableIncompatibleService,
				Message: fmt.Sprintf("Cannot enable %s while %s is enabled", title, depMeta.Title),
			}
		}
	}
	return true, nil
}

// enableRequiredServices prompts for and performs the enable of each
// inactive required service.
func (e *Engine) enableRequiredServices(ctx context.Context) (bool, *status.CanEnableFailure) {
	title := e.svc.Meta().Title
	for _, required := range e.inactiveRequiredServices() {
		depMeta := required.Service().Meta()
		message := e.dependencyMessage(depMeta.Name)
		if message == "" {
			message = fmt.Sprintf("%s requires %s. Enable %s and proceed?",
				title, depMeta.Title, depMeta.Title)
		}
		if !e.Confirm(message) {
			return false, &status.CanEnableFailure{
				Reason:  status.EnableInactiveRequiredServices,
				Message: fmt.Sprintf("Cannot enable required service: %s", depMeta.Title),
			}
		}
		ok, nested, err := required.Enable(ctx)
		if err != nil || !ok {
			failMessage := fmt.Sprintf("Cannot enable required service: %s", depMeta.Title)
			if nested != nil && nested.Message != "" {
				failMessage += "\n" + nested.Message
			}
			e.logger.Warn().Err(err).Str("required", depMeta.Name).Msg("Failed enabling required service")
			return false, &status.CanEnableFailure{
				Reason:  status.EnableInactiveRequiredServices,
				Message: failMessage,
			}
		}
	}
	return true, nil
}

// disableDependentServices prompts for and performs the disable of each
// enabled dependent service.
func (e *Engine) disableDependentServices(ctx context.Context) (bool, *status.CanDisableFailure) {
	title := e.svc.Meta().Title
	for _, dependent := range e.enabledDependentServices() {
		depMeta := dependent.Service().Meta()
		message := e.dependencyMessage(depMeta.Name)
		if message == "" {
			message = fmt.Sprintf("%s depends on %s. Disable %s and proceed?",
				depMeta.Title, title, depMeta.Title)
		}
		if !e.Confirm(message) {
			return false, &status.CanDisableFailure{
				Reason:  status.DisableActiveDependentServices,
				Message: fmt.Sprintf("Cannot disable %s while %s is enabled", title, depMeta.Title),
			}
		}
		ok, nested, err := dependent.Disable(ctx)
		if err != nil || !ok {
			failMessage := fmt.Sprintf("Failed disabling dependent service: %s", depMeta.Title)
			if nested != nil && nested.Message != "" {
				failMessage += "\n" + nested.Message
			}
			e.logger.Warn().Err(err).Str("dependent", depMeta.Name).Msg("Failed disabling dependent service")
			return false, &status.CanDisableFailure{
				Reason:  status.DisableActiveDependentServices,
				Message: failMessage,
			}
		}
	}
	return true, nil
}

func contains(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}

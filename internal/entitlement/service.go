// Package entitlement implements the entitlement state-transition engine:
// status computation, enable/disable permission checks and execution with
// cross-service dependency and conflict resolution, variant selection, and
// contract delta reconciliation.
package entitlement

import (
	"context"

	"github.com/entctl/entctl/internal/config"
	"github.com/entctl/entctl/internal/contract"
	"github.com/entctl/entctl/internal/status"
	"github.com/entctl/entctl/internal/system"
)

// ServiceDependency names another service constraining this one, with an
// optional presentation message used when prompting the user.
type ServiceDependency struct {
	Name    string
	Message string
}

// Meta is the static description of a service: identity, presentation,
// gating flags, and its relationships to other services.
type Meta struct {
	Name        string
	Title       string
	Description string

	Beta               bool
	SupportsAccessOnly bool
	SupportsPurge      bool

	// VariantName is non-empty when this instance is a specialized variant
	// of the service named by Name. Identity (Name) is stable across
	// variants.
	VariantName string

	// RequiredServices must be enabled before this service can enable.
	RequiredServices []ServiceDependency
	// DependentServices must be disabled before or with this service.
	DependentServices []ServiceDependency
	// IncompatibleServices conflict and must be disabled first.
	IncompatibleServices []ServiceDependency
}

// Service is the capability set one purchasable service implements. The
// shared state-machine behavior lives in Engine; a Service contributes
// only the service-specific pieces.
type Service interface {
	Meta() Meta

	// ApplicabilityStatus reports whether this machine could ever support
	// the service, independent of contract entitlement. Contract
	// affordance filters (series/architecture lists) are checked by the
	// engine before this is consulted.
	ApplicabilityStatus(m *system.Machine) (status.ApplicabilityStatus, string)

	// ApplicationStatus reports whether the service is currently active by
	// inspecting live system state through the engine's collaborators.
	ApplicationStatus(e *Engine) (status.ApplicationStatus, string)

	PerformEnable(ctx context.Context, e *Engine) error
	PerformDisable(ctx context.Context, e *Engine) error

	// Variants returns the specialized sub-services this implementation
	// supports, keyed by variant name. Variants themselves return nil.
	Variants() map[string]Service
}

// PreEnableMessenger is implemented by services that need ordered
// messaging/confirmation hooks before the enable action runs. A hook
// returning false aborts the enable; later hooks do not run.
type PreEnableMessenger interface {
	PreEnableHooks() []MessageHook
}

// VariantPicker is implemented by services that can auto-select the
// variant appropriate for a machine.
type VariantPicker interface {
	PickVariant(m *system.Machine) string
}

// MessageHook is one pre-action confirmation step.
type MessageHook func(e *Engine) bool

// Deps are the external collaborators an engine operates through. The
// engine assumes the process-wide operation lock is already held by its
// caller; nothing here acquires it.
type Deps struct {
	Store     *config.Store
	Settings  *config.Settings
	Refresher contract.Refresher // nil when the machine is not attached
	Machine   *system.Machine
	Apt       system.AptManager
	Snap      system.SnapManager
	Prompter  system.Prompter
	Registry  *Registry
}

// Options are the per-operation configuration flags.
type Options struct {
	AllowBeta  bool
	AssumeYes  bool
	AccessOnly bool
	Purge      bool
}

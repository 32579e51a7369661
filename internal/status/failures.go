package status

// CanEnableReason is the closed set of reasons an enable request can be
// refused. CLI and status-reporting code matches on specific reasons, so
// adding one is a compatibility-affecting change.
type CanEnableReason string

const (
	EnableNotEntitled              CanEnableReason = "not-entitled"
	EnableAccessOnlyNotSupported   CanEnableReason = "access-only-not-supported"
	EnableAlreadyEnabled           CanEnableReason = "already-enabled"
	EnableInapplicable             CanEnableReason = "inapplicable"
	EnableIsBeta                   CanEnableReason = "is-beta"
	EnableIncompatibleService      CanEnableReason = "incompatible-service"
	EnableInactiveRequiredServices CanEnableReason = "inactive-required-services"
)

// CanDisableReason is the closed set of reasons a disable request can be
// refused.
type CanDisableReason string

const (
	DisablePurgeNotSupported       CanDisableReason = "purge-not-supported"
	DisableAlreadyDisabled         CanDisableReason = "already-disabled"
	DisableActiveDependentServices CanDisableReason = "active-dependent-services"
)

// CanEnableFailure is a value, not an error: a refused enable is an
// expected outcome. Message may be empty for reasons that are resolved to
// a message later in the enable flow.
type CanEnableFailure struct {
	Reason  CanEnableReason
	Message string
}

// CanDisableFailure is the disable counterpart of CanEnableFailure.
type CanDisableFailure struct {
	Reason  CanDisableReason
	Message string
}

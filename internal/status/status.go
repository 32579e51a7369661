// Package status defines the value types describing whether a service can
// run on this machine, whether the contract grants it, and whether it is
// currently active. Everything here is a pure value; nothing touches the
// system or the network.
package status

import "fmt"

// ApplicabilityStatus reports whether a service could ever run on this
// machine, independent of contract entitlement.
type ApplicabilityStatus string

const (
	Applicable   ApplicabilityStatus = "applicable"
	Inapplicable ApplicabilityStatus = "inapplicable"
)

// ApplicationStatus reports whether a service is currently active on the
// machine.
type ApplicationStatus string

const (
	Enabled  ApplicationStatus = "enabled"
	Disabled ApplicationStatus = "disabled"
	// Warning means the service is enabled but in a degraded or
	// unexpected condition (for example the apt source is configured but a
	// required package is missing).
	Warning ApplicationStatus = "warning"
)

// ContractStatus reports whether the attached contract grants the service.
type ContractStatus string

const (
	Entitled   ContractStatus = "entitled"
	Unentitled ContractStatus = "unentitled"
)

// UserFacingStatus is the single status rendered to users, derived from the
// triple (applicability, contract, application).
type UserFacingStatus string

const (
	StatusInapplicable UserFacingStatus = "n/a"
	StatusUnavailable  UserFacingStatus = "unavailable"
	StatusInactive     UserFacingStatus = "disabled"
	StatusActive       UserFacingStatus = "enabled"
	StatusWarning      UserFacingStatus = "warning"
)

// Result pairs a user-facing status with optional human-readable detail.
type Result struct {
	Status UserFacingStatus
	Detail string
}

// UserFacing derives the user-facing status from the status triple.
//
// The precedence order matters: inapplicability masks entitlement and
// enablement, and lack of entitlement masks live enablement state. Callers
// must not reorder or cache the result.
func UserFacing(
	applicability ApplicabilityStatus, applicabilityDetail string,
	contract ContractStatus,
	application ApplicationStatus, applicationDetail string,
	title string,
) Result {
	if applicability == Inapplicable {
		return Result{Status: StatusInapplicable, Detail: applicabilityDetail}
	}
	if contract == Unentitled {
		return Result{
			Status: StatusUnavailable,
			Detail: fmt.Sprintf("%s is not entitled", title),
		}
	}
	switch application {
	case Warning:
		return Result{Status: StatusWarning, Detail: applicationDetail}
	case Enabled:
		return Result{Status: StatusActive}
	default:
		return Result{Status: StatusInactive}
	}
}

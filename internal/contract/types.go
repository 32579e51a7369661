// Package contract models the contract document the backend serves: the
// machine token, per-service entitlement configuration fragments, and the
// delta/merge rules used during refresh reconciliation.
package contract

import (
	"time"

	"github.com/entctl/entctl/internal/system"
)

// MachineToken is the contract document cached locally after attach and
// replaced on every refresh.
type MachineToken struct {
	MachineID    string                       `json:"machineId"`
	ContractID   string                       `json:"contractId"`
	ContractName string                       `json:"contractName,omitempty"`
	Token        string                       `json:"machineToken"`
	Expires      time.Time                    `json:"expires"`
	Entitlements map[string]EntitlementConfig `json:"entitlements"`
}

// Expired reports whether the cached contract access has passed its expiry.
func (t *MachineToken) Expired(now time.Time) bool {
	if t == nil || t.Expires.IsZero() {
		return false
	}
	return now.After(t.Expires)
}

// Entitlement returns the configuration fragment for a service, or a zero
// (unentitled) fragment when the contract does not mention it.
func (t *MachineToken) Entitlement(service string) EntitlementConfig {
	if t == nil {
		return EntitlementConfig{}
	}
	return t.Entitlements[service]
}

// EntitlementConfig is the per-service contract fragment: whether the
// service is granted, where it applies, what it installs, and ordered
// overrides patching the directives for specific machine contexts.
type EntitlementConfig struct {
	Entitled    bool        `json:"entitled"`
	Affordances Affordances `json:"affordances,omitempty"`
	Directives  Directives  `json:"directives,omitempty"`
	Obligations Obligations `json:"obligations,omitempty"`
	Overrides   []Override  `json:"overrides,omitempty"`
}

// Affordances filter where a service applies and how it is presented.
type Affordances struct {
	Series        []string `json:"series,omitempty"`
	Architectures []string `json:"architectures,omitempty"`
	PresentedAs   string   `json:"presentedAs,omitempty"`
}

// Directives tell the client what to install and from where.
type Directives struct {
	AdditionalPackages []string `json:"additionalPackages,omitempty"`
	SnapChannel        string   `json:"snapChannel,omitempty"`
	AptURL             string   `json:"aptURL,omitempty"`
	AptSuites          []string `json:"aptSuites,omitempty"`
	AptKeyID           string   `json:"aptKey,omitempty"`
}

// Obligations carry backend-driven behavior requirements.
type Obligations struct {
	EnableByDefault bool `json:"enableByDefault,omitempty"`
}

// Override patches directives when its selector matches the machine
// context. Overrides apply in listed order; a later match wins over an
// earlier one for overlapping keys.
type Override struct {
	Selector   Selector       `json:"selector"`
	Directives map[string]any `json:"directives"`
}

// Selector names the machine context an override applies to. Empty fields
// match anything; all non-empty fields must match.
type Selector struct {
	Variant string `json:"variant,omitempty"`
	Cloud   string `json:"cloud,omitempty"`
	Series  string `json:"series,omitempty"`
}

// Matches reports whether the selector applies to the given machine and
// variant in effect.
func (s Selector) Matches(m *system.Machine, variant string) bool {
	if s.Variant != "" && s.Variant != variant {
		return false
	}
	if m == nil {
		return s.Cloud == "" && s.Series == ""
	}
	if s.Cloud != "" && s.Cloud != m.Cloud {
		return false
	}
	if s.Series != "" && s.Series != m.Series {
		return false
	}
	return true
}

// VariantNames returns the variant names declared reachable through
// override selectors, in declaration order without duplicates.
func (c EntitlementConfig) VariantNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, o := range c.Overrides {
		v := o.Selector.Variant
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		names = append(names, v)
	}
	return names
}

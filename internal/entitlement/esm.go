package entitlement

import (
	"context"
	"fmt"

	"github.com/entctl/entctl/internal/config"
	"github.com/entctl/entctl/internal/status"
	"github.com/entctl/entctl/internal/system"
)

// ltsSeries are the series the esm package streams cover. Interim series
// get their security support from the regular archive.
var ltsSeries = map[string]bool{
	"xenial": true,
	"bionic": true,
	"focal":  true,
	"jammy":  true,
	"noble":  true,
}

// aptService is an apt-backed package stream: extended security updates
// delivered through a dedicated suite. Enablement means the stream's
// packages are installed; access-only configures credentials without
// installing anything.
type aptService struct {
	meta Meta
}

// NewESMInfra is the extended security stream for base-system packages.
func NewESMInfra() Service {
	return &aptService{meta: Meta{
		Name:               "esm-infra",
		Title:              "Infra Security Patches",
		Description:        "Expanded security coverage for infrastructure packages",
		SupportsAccessOnly: true,
		SupportsPurge:      true,
		DependentServices: []ServiceDependency{
			{Name: "livepatch", Message: "Livepatch uses Infra Security Patches. Disable Livepatch and proceed?"},
		},
	}}
}

// NewESMApps is the extended security stream for application packages.
func NewESMApps() Service {
	return &aptService{meta: Meta{
		Name:               "esm-apps",
		Title:              "Apps Security Patches",
		Description:        "Expanded security coverage for application packages",
		SupportsAccessOnly: true,
		SupportsPurge:      true,
	}}
}

func (s *aptService) Meta() Meta                   { return s.meta }
func (s *aptService) Variants() map[string]Service { return nil }

func (s *aptService) ApplicabilityStatus(m *system.Machine) (status.ApplicabilityStatus, string) {
	if m != nil && m.Series != "" && !ltsSeries[m.Series] {
		return status.Inapplicable, fmt.Sprintf(
			"%s is only available on LTS series, not %s", s.meta.Title, m.Series)
	}
	return status.Applicable, ""
}

func (s *aptService) ApplicationStatus(e *Engine) (status.ApplicationStatus, string) {
	var record config.ServiceStatusRecord
	if err := e.Deps().Store.ReadCache(config.StatusCacheKey(s.meta.Name), &record); err != nil || !record.Enabled {
		return status.Disabled, ""
	}
	if record.AccessOnly {
		return status.Enabled, ""
	}
	for _, pkg := range e.EffectiveDirectives().AdditionalPackages {
		if !e.Deps().Apt.IsInstalled(pkg) {
			return status.Warning, fmt.Sprintf(
				"%s is configured but package %s is not installed", s.meta.Title, pkg)
		}
	}
	return status.Enabled, ""
}

func (s *aptService) PerformEnable(ctx context.Context, e *Engine) error {
	if e.Options().AccessOnly {
		e.logger.Info().Msg("Skipping package installation in access-only mode")
		return nil
	}
	directives := e.EffectiveDirectives()
	if err := e.Deps().Apt.UpdateIndex(ctx); err != nil {
		return err
	}
	opts := system.InstallOptions{}
	if len(directives.AptSuites) > 0 {
		opts.Suite = directives.AptSuites[0]
	}
	return e.Deps().Apt.InstallPackages(ctx, directives.AdditionalPackages, opts)
}

func (s *aptService) PerformDisable(ctx context.Context, e *Engine) error {
	if !e.Options().Purge {
		return nil
	}
	return e.Deps().Apt.RemovePackages(ctx, e.EffectiveDirectives().AdditionalPackages)
}

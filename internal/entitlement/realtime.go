package entitlement

import (
	"context"
	"fmt"

	"github.com/entctl/entctl/internal/config"
	"github.com/entctl/entctl/internal/status"
	"github.com/entctl/entctl/internal/system"
)

const rebootNotice = "reboot-required"

// kernelService installs a specialized kernel flavor. The base instance
// fans out to hardware-specific variants; the contract's override
// selectors decide which variants are in effect and patch the kernel
// package list per variant.
type kernelService struct {
	meta Meta
}

// NewRealtimeKernel is the preemptible realtime kernel. Beta: enabling it
// needs the beta override or the contract flipping enableByDefault.
func NewRealtimeKernel() Service {
	return &kernelService{meta: realtimeMeta("")}
}

func realtimeMeta(variant string) Meta {
	return Meta{
		Name:          "realtime-kernel",
		Title:         "Realtime Kernel",
		Description:   "Kernel with PREEMPT_RT patches for low-latency workloads",
		Beta:          true,
		SupportsPurge: true,
		VariantName:   variant,
		IncompatibleServices: []ServiceDependency{
			{Name: "livepatch", Message: "The realtime kernel cannot be live patched. Disable Livepatch and proceed?"},
		},
	}
}

func (s *kernelService) Meta() Meta { return s.meta }

func (s *kernelService) Variants() map[string]Service {
	if s.meta.VariantName != "" {
		return nil
	}
	return map[string]Service{
		"generic":    &kernelService{meta: realtimeMeta("generic")},
		"intel-iotg": &kernelService{meta: realtimeMeta("intel-iotg")},
	}
}

// PickVariant selects the kernel flavor for the machine's hardware.
func (s *kernelService) PickVariant(m *system.Machine) string {
	if m != nil && m.CPUVendor == "intel" {
		return "intel-iotg"
	}
	return "generic"
}

func (s *kernelService) ApplicabilityStatus(m *system.Machine) (status.ApplicabilityStatus, string) {
	if m == nil {
		return status.Applicable, ""
	}
	if m.IsContainer {
		return status.Inapplicable, "Realtime Kernel is not available in containers"
	}
	if m.Architecture != "amd64" && m.Architecture != "arm64" {
		return status.Inapplicable, fmt.Sprintf(
			"Realtime Kernel is not available on %s", m.Architecture)
	}
	return status.Applicable, ""
}

func (s *kernelService) ApplicationStatus(e *Engine) (status.ApplicationStatus, string) {
	var record config.ServiceStatusRecord
	if err := e.Deps().Store.ReadCache(config.StatusCacheKey(s.meta.Name), &record); err != nil || !record.Enabled {
		return status.Disabled, ""
	}
	for _, pkg := range e.EffectiveDirectives().AdditionalPackages {
		if !e.Deps().Apt.IsInstalled(pkg) {
			return status.Warning, fmt.Sprintf(
				"Realtime Kernel is configured but package %s is not installed", pkg)
		}
	}
	return status.Enabled, ""
}

// PreEnableHooks warns that enabling replaces the running kernel. Aborting
// here leaves the system untouched.
func (s *kernelService) PreEnableHooks() []MessageHook {
	return []MessageHook{
		func(e *Engine) bool {
			return e.Confirm("Enabling Realtime Kernel will replace the running kernel and requires a reboot. Proceed?")
		},
	}
}

func (s *kernelService) PerformEnable(ctx context.Context, e *Engine) error {
	directives := e.EffectiveDirectives()
	if err := e.Deps().Apt.UpdateIndex(ctx); err != nil {
		return err
	}
	opts := system.InstallOptions{}
	if len(directives.AptSuites) > 0 {
		opts.Suite = directives.AptSuites[0]
	}
	if err := e.Deps().Apt.InstallPackages(ctx, directives.AdditionalPackages, opts); err != nil {
		return err
	}
	return e.Deps().Store.AddNotice(rebootNotice,
		"System restart required to start using Realtime Kernel")
}

func (s *kernelService) PerformDisable(ctx context.Context, e *Engine) error {
	if e.Options().Purge {
		if err := e.Deps().Apt.RemovePackages(ctx, e.EffectiveDirectives().AdditionalPackages); err != nil {
			return err
		}
	}
	return e.Deps().Store.RemoveNotice(rebootNotice)
}

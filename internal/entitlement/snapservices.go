package entitlement

import (
	"context"
	"fmt"

	clierrors "github.com/entctl/entctl/internal/errors"
	"github.com/entctl/entctl/internal/status"
	"github.com/entctl/entctl/internal/system"
)

// snapService is a snap-delivered agent. Enablement means the snap is
// installed; the application status comes from snapd, not the local cache,
// because the snap can be removed behind the client's back.
type snapService struct {
	meta       Meta
	snapName   string
	kernelTied bool // inapplicable inside containers
}

// NewLivepatch is the kernel live patching agent.
func NewLivepatch() Service {
	return &snapService{
		meta: Meta{
			Name:        "livepatch",
			Title:       "Livepatch",
			Description: "Kernel security patches applied without rebooting",
			RequiredServices: []ServiceDependency{
				{Name: "esm-infra"},
			},
			IncompatibleServices: []ServiceDependency{
				{Name: "realtime-kernel", Message: "Livepatch does not cover the realtime kernel. Disable Realtime Kernel and proceed?"},
			},
		},
		snapName:   "livepatchd",
		kernelTied: true,
	}
}

// NewMonitord is the fleet monitoring agent.
func NewMonitord() Service {
	return &snapService{
		meta: Meta{
			Name:        "monitord",
			Title:       "Machine Monitoring",
			Description: "Monitoring agent reporting machine health to the subscription dashboard",
		},
		snapName: "monitord",
	}
}

func (s *snapService) Meta() Meta                   { return s.meta }
func (s *snapService) Variants() map[string]Service { return nil }

func (s *snapService) ApplicabilityStatus(m *system.Machine) (status.ApplicabilityStatus, string) {
	if s.kernelTied && m != nil && m.IsContainer {
		return status.Inapplicable, fmt.Sprintf("%s is not available in containers", s.meta.Title)
	}
	return status.Applicable, ""
}

func (s *snapService) ApplicationStatus(e *Engine) (status.ApplicationStatus, string) {
	if e.Deps().Snap.IsInstalled(s.snapName) {
		return status.Enabled, ""
	}
	return status.Disabled, ""
}

func (s *snapService) PerformEnable(ctx context.Context, e *Engine) error {
	snap := e.Deps().Snap
	if !snap.DaemonRunning() {
		return clierrors.New(clierrors.KindSystem, "install_snap",
			fmt.Errorf("snapd is not running")).WithService(s.meta.Name)
	}
	return snap.Install(ctx, s.snapName, e.EffectiveDirectives().SnapChannel)
}

func (s *snapService) PerformDisable(ctx context.Context, e *Engine) error {
	return e.Deps().Snap.Remove(ctx, s.snapName, e.Options().Purge)
}

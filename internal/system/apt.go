package system

import (
	"context"
	"fmt"
	"os/exec"

	clierrors "github.com/entctl/entctl/internal/errors"
	"github.com/rs/zerolog/log"
)

// InstallOptions tune a package installation.
type InstallOptions struct {
	// Suite pins installs to an apt suite when non-empty.
	Suite string
}

// AptManager abstracts the apt operations the engine needs. Install and
// remove are idempotent external operations: they succeed, or signal a
// typed failure. The engine never models package dependency resolution.
type AptManager interface {
	InstallPackages(ctx context.Context, packages []string, opts InstallOptions) error
	RemovePackages(ctx context.Context, packages []string) error
	UpdateIndex(ctx context.Context) error
	IsInstalled(pkg string) bool
}

// ExecApt is the apt-get backed AptManager.
type ExecApt struct{}

var aptCommandFn = func(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func (ExecApt) InstallPackages(ctx context.Context, packages []string, opts InstallOptions) error {
	if len(packages) == 0 {
		return nil
	}
	args := []string{"install", "--assume-yes", "--allow-downgrades"}
	if opts.Suite != "" {
		args = append(args, "--target-release", opts.Suite)
	}
	args = append(args, packages...)

	out, err := aptCommandFn(ctx, "apt-get", args...)
	if err != nil {
		log.Error().Err(err).Strs("packages", packages).Msg("apt-get install failed")
		return clierrors.New(clierrors.KindSystem, "install_packages",
			fmt.Errorf("%w: %s", clierrors.ErrInstallFailed, firstLine(out)))
	}
	return nil
}

func (ExecApt) RemovePackages(ctx context.Context, packages []string) error {
	if len(packages) == 0 {
		return nil
	}
	args := append([]string{"remove", "--assume-yes"}, packages...)
	out, err := aptCommandFn(ctx, "apt-get", args...)
	if err != nil {
		return clierrors.New(clierrors.KindSystem, "remove_packages",
			fmt.Errorf("%w: %s", clierrors.ErrInstallFailed, firstLine(out)))
	}
	return nil
}

func (ExecApt) UpdateIndex(ctx context.Context) error {
	out, err := aptCommandFn(ctx, "apt-get", "update")
	if err != nil {
		return clierrors.New(clierrors.KindSystem, "update_index",
			fmt.Errorf("apt-get update: %s", firstLine(out)))
	}
	return nil
}

func (ExecApt) IsInstalled(pkg string) bool {
	out, err := aptCommandFn(context.Background(), "dpkg-query", "--show", "--showformat=${db:Status-Status}", pkg)
	if err != nil {
		return false
	}
	return string(out) == "installed"
}

func firstLine(out []byte) string {
	for i, b := range out {
		if b == '\n' {
			return string(out[:i])
		}
	}
	return string(out)
}

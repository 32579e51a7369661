package system

import (
	"context"
	"fmt"

	clierrors "github.com/entctl/entctl/internal/errors"
	"github.com/rs/zerolog/log"
)

// SnapManager abstracts the snap operations the engine needs.
type SnapManager interface {
	Install(ctx context.Context, name, channel string) error
	Remove(ctx context.Context, name string, purge bool) error
	IsInstalled(name string) bool
	DaemonRunning() bool
}

// ExecSnap is the snap CLI backed SnapManager.
type ExecSnap struct{}

func (ExecSnap) Install(ctx context.Context, name, channel string) error {
	args := []string{"install", name}
	if channel != "" {
		args = append(args, "--channel="+channel)
	}
	out, err := aptCommandFn(ctx, "snap", args...)
	if err != nil {
		log.Error().Err(err).Str("snap", name).Msg("snap install failed")
		return clierrors.New(clierrors.KindSystem, "install_snap",
			fmt.Errorf("%w: %s", clierrors.ErrInstallFailed, firstLine(out)))
	}
	return nil
}

func (ExecSnap) Remove(ctx context.Context, name string, purge bool) error {
	args := []string{"remove", name}
	if purge {
		args = append(args, "--purge")
	}
	out, err := aptCommandFn(ctx, "snap", args...)
	if err != nil {
		return clierrors.New(clierrors.KindSystem, "remove_snap",
			fmt.Errorf("snap remove %s: %s", name, firstLine(out)))
	}
	return nil
}

func (ExecSnap) IsInstalled(name string) bool {
	_, err := aptCommandFn(context.Background(), "snap", "list", name)
	return err == nil
}

func (ExecSnap) DaemonRunning() bool {
	_, err := statFn("/run/snapd.socket")
	return err == nil
}

package main

import (
	"fmt"
	"os"

	"github.com/entctl/entctl/internal/entitlement"
	clierrors "github.com/entctl/entctl/internal/errors"
	"github.com/entctl/entctl/internal/lock"
	"github.com/entctl/entctl/internal/status"
	"github.com/spf13/cobra"
)

var (
	enableAssumeYes  bool
	enableBeta       bool
	enableAccessOnly bool
)

var enableCmd = &cobra.Command{
	Use:   "enable <service>...",
	Short: "Enable one or more entitled services",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEnable,
}

func init() {
	enableCmd.Flags().BoolVarP(&enableAssumeYes, "assume-yes", "y", false, "answer yes to all confirmation prompts")
	enableCmd.Flags().BoolVar(&enableBeta, "beta", false, "allow enabling services in beta")
	enableCmd.Flags().BoolVar(&enableAccessOnly, "access-only", false, "configure access without installing packages")
}

func runEnable(cmd *cobra.Command, args []string) error {
	c, err := setup()
	if err != nil {
		return err
	}
	l, err := lock.Acquire(c.settings.DataDir, "enable")
	if err != nil {
		return err
	}
	defer l.Release()

	if _, err := c.attached(); err != nil {
		return err
	}

	deps := c.engineDeps(enableAssumeYes)
	opts := entitlement.Options{
		AllowBeta:  enableBeta,
		AssumeYes:  enableAssumeYes,
		AccessOnly: enableAccessOnly,
	}

	failed := false
	for _, name := range args {
		engine, err := c.registry.Engine(name, deps, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			failed = true
			continue
		}
		engine = engine.AutoVariant()

		ok, fail, err := engine.Enable(cmd.Context())
		switch {
		case err != nil:
			fmt.Fprintf(os.Stderr, "Could not enable %s: %s\n", name, clierrors.UserMessage(err))
			failed = true
		case fail != nil:
			fmt.Fprintln(os.Stderr, enableFailureMessage(name, fail))
			failed = true
		case !ok:
			// Aborted at a confirmation prompt; nothing was changed.
			failed = true
		default:
			fmt.Printf("%s enabled\n", name)
		}
	}
	if failed {
		return errCommandFailed
	}
	return nil
}

func enableFailureMessage(name string, fail *status.CanEnableFailure) string {
	if fail.Message != "" {
		return fail.Message
	}
	if fail.Reason == status.EnableIsBeta {
		return fmt.Sprintf("%s is in beta; pass --beta to enable it", name)
	}
	return fmt.Sprintf("Cannot enable %s", name)
}

package main

import (
	"fmt"
	"os"

	"github.com/entctl/entctl/internal/entitlement"
	clierrors "github.com/entctl/entctl/internal/errors"
	"github.com/entctl/entctl/internal/lock"
	"github.com/spf13/cobra"
)

var (
	disableAssumeYes bool
	disablePurge     bool
)

var disableCmd = &cobra.Command{
	Use:   "disable <service>...",
	Short: "Disable one or more services",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDisable,
}

func init() {
	disableCmd.Flags().BoolVarP(&disableAssumeYes, "assume-yes", "y", false, "answer yes to all confirmation prompts")
	disableCmd.Flags().BoolVar(&disablePurge, "purge", false, "also remove the packages the service installed")
}

func runDisable(cmd *cobra.Command, args []string) error {
	c, err := setup()
	if err != nil {
		return err
	}
	l, err := lock.Acquire(c.settings.DataDir, "disable")
	if err != nil {
		return err
	}
	defer l.Release()

	if _, err := c.attached(); err != nil {
		return err
	}

	deps := c.engineDeps(disableAssumeYes)
	opts := entitlement.Options{
		AssumeYes: disableAssumeYes,
		Purge:     disablePurge,
	}

	failed := false
	for _, name := range args {
		engine, err := c.registry.Engine(name, deps, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			failed = true
			continue
		}

		ok, fail, err := engine.Disable(cmd.Context())
		switch {
		case err != nil:
			fmt.Fprintf(os.Stderr, "Could not disable %s: %s\n", name, clierrors.UserMessage(err))
			failed = true
		case fail != nil:
			message := fail.Message
			if message == "" {
				message = fmt.Sprintf("Cannot disable %s", name)
			}
			fmt.Fprintln(os.Stderr, message)
			failed = true
		case !ok:
			failed = true
		default:
			fmt.Printf("%s disabled\n", name)
		}
	}
	if failed {
		return errCommandFailed
	}
	return nil
}

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/entctl/entctl/internal/config"
	"github.com/entctl/entctl/internal/contract"
	"github.com/entctl/entctl/internal/entitlement"
	clierrors "github.com/entctl/entctl/internal/errors"
	"github.com/entctl/entctl/internal/lock"
	"github.com/entctl/entctl/internal/status"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var attachCmd = &cobra.Command{
	Use:   "attach <token>",
	Short: "Attach this machine to a subscription contract",
	Args:  cobra.ExactArgs(1),
	RunE:  runAttach,
}

var detachCmd = &cobra.Command{
	Use:   "detach",
	Short: "Detach this machine, disabling all services first",
	RunE:  runDetach,
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch the current contract and reconcile service state",
	RunE:  runRefresh,
}

func runAttach(cmd *cobra.Command, args []string) error {
	c, err := setup()
	if err != nil {
		return err
	}
	l, err := lock.Acquire(c.settings.DataDir, "attach")
	if err != nil {
		return err
	}
	defer l.Release()

	if _, err := c.attached(); err == nil {
		return fmt.Errorf("this machine is already attached; run detach first")
	}

	client := contract.NewClient(c.settings.ContractURL, "")
	token, err := client.Attach(cmd.Context(), args[0], machineID())
	if err != nil {
		return err
	}
	if err := c.store.WriteCache(config.KeyMachineToken, token); err != nil {
		return err
	}
	fmt.Printf("This machine is now attached to %s\n", contractLabel(token))

	// The contract may oblige some services to come up straight away.
	deps := c.engineDeps(true)
	opts := entitlement.Options{AssumeYes: true}
	for _, name := range c.registry.ValidServices() {
		cfg := token.Entitlement(name)
		if !cfg.Entitled || !cfg.Obligations.EnableByDefault {
			continue
		}
		engine, err := c.registry.Engine(name, deps, opts)
		if err != nil {
			continue
		}
		ok, fail, err := engine.AutoVariant().Enable(cmd.Context())
		switch {
		case err != nil:
			fmt.Fprintf(os.Stderr, "Could not enable %s: %s\n", name, clierrors.UserMessage(err))
		case fail != nil:
			log.Debug().Str("service", name).Str("reason", string(fail.Reason)).
				Msg("Default service not enabled on attach")
		case ok:
			fmt.Printf("%s enabled\n", name)
		}
	}
	return nil
}

func runDetach(cmd *cobra.Command, args []string) error {
	c, err := setup()
	if err != nil {
		return err
	}
	l, err := lock.Acquire(c.settings.DataDir, "detach")
	if err != nil {
		return err
	}
	defer l.Release()

	token, err := c.attached()
	if err != nil {
		return err
	}

	deps := c.engineDeps(true)
	opts := entitlement.Options{AssumeYes: true}
	for _, name := range c.registry.ValidServices() {
		engine, err := c.registry.Engine(name, deps, opts)
		if err != nil {
			continue
		}
		if application, _ := engine.ApplicationStatus(); application == status.Disabled {
			continue
		}
		if ok, fail, err := engine.Disable(cmd.Context()); err != nil || !ok {
			message := clierrors.UserMessage(err)
			if err == nil && fail != nil {
				message = fail.Message
			}
			fmt.Fprintf(os.Stderr, "Could not disable %s: %s\n", name, message)
			continue
		}
		fmt.Printf("%s disabled\n", name)
	}

	// Deregister remotely, but detach locally even when the backend is
	// unreachable; the machine keeps no credentials either way.
	if err := contract.NewClient(c.settings.ContractURL, token.Token).Detach(cmd.Context(), token.MachineID); err != nil {
		log.Warn().Err(err).Msg("Backend detach failed, removing local state anyway")
	}
	if err := c.store.DeleteCache(config.KeyMachineToken); err != nil {
		return err
	}
	for _, name := range c.registry.ValidServices() {
		if err := c.store.DeleteCache(config.StatusCacheKey(name)); err != nil {
			log.Warn().Err(err).Str("service", name).Msg("Failed clearing status cache")
		}
	}
	fmt.Println("This machine is now detached.")
	return nil
}

func runRefresh(cmd *cobra.Command, args []string) error {
	c, err := setup()
	if err != nil {
		return err
	}
	l, err := lock.Acquire(c.settings.DataDir, "refresh")
	if err != nil {
		return err
	}
	defer l.Release()

	if _, err := c.attached(); err != nil {
		return err
	}

	deps := c.engineDeps(true)
	if deps.Refresher == nil {
		return clierrors.ErrNotAttached
	}
	if err := entitlement.ReconcileContract(cmd.Context(), deps, entitlement.Options{AssumeYes: true}); err != nil {
		return err
	}
	fmt.Println("Contract refreshed.")
	return nil
}

func contractLabel(token *contract.MachineToken) string {
	if token.ContractName != "" {
		return token.ContractName
	}
	return token.ContractID
}

// machineID identifies this machine to the backend. systemd's machine-id
// when available, a random id otherwise.
func machineID() string {
	if data, err := os.ReadFile("/etc/machine-id"); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id
		}
	}
	return uuid.NewString()
}

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/entctl/entctl/internal/config"
	"github.com/entctl/entctl/internal/contract"
	"github.com/entctl/entctl/internal/entitlement"
	clierrors "github.com/entctl/entctl/internal/errors"
	"github.com/entctl/entctl/internal/logging"
	"github.com/entctl/entctl/internal/system"
	"github.com/spf13/cobra"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configFlag   string
	logLevelFlag string
)

// errCommandFailed signals a failure whose message was already printed.
var errCommandFailed = errors.New("one or more operations failed")

var rootCmd = &cobra.Command{
	Use:     "entctl",
	Short:   "entctl - subscription service manager",
	Long:    `entctl attaches this machine to a subscription contract and manages the services the contract entitles`,
	Version: Version,

	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to the config file")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(attachCmd)
	rootCmd.AddCommand(detachCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("entctl %s\n", Version)
		if BuildTime != "unknown" {
			fmt.Printf("Built: %s\n", BuildTime)
		}
		if GitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", GitCommit)
		}
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errCommandFailed) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", clierrors.UserMessage(err))
		}
		os.Exit(1)
	}
}

// cliContext carries the collaborators every command needs. Built once per
// invocation after configuration is loaded.
type cliContext struct {
	settings *config.Settings
	store    *config.Store
	machine  *system.Machine
	registry *entitlement.Registry
}

func setup() (*cliContext, error) {
	// Baseline logger for early startup; re-initialised below once the
	// configuration is known.
	logging.Init(logging.Config{
		Format:    "auto",
		Level:     "info",
		Component: "entctl",
	})

	settings, err := config.Load(configFlag)
	if err != nil {
		return nil, err
	}
	if logLevelFlag != "" {
		settings.LogLevel = logLevelFlag
	}

	logging.Init(logging.Config{
		Format:    settings.LogFormat,
		Level:     settings.LogLevel,
		Component: "entctl",
	})

	store, err := config.NewStore(settings.DataDir)
	if err != nil {
		return nil, err
	}

	return &cliContext{
		settings: settings,
		store:    store,
		machine:  system.DetectMachine(),
		registry: entitlement.DefaultRegistry(),
	}, nil
}

// attached returns the cached machine token, or ErrNotAttached when the
// machine has never attached (or has since detached).
func (c *cliContext) attached() (*contract.MachineToken, error) {
	var token contract.MachineToken
	if err := c.store.ReadCache(config.KeyMachineToken, &token); err != nil {
		if errors.Is(err, config.ErrCacheMiss) {
			return nil, clierrors.ErrNotAttached
		}
		return nil, err
	}
	return &token, nil
}

func (c *cliContext) engineDeps(assumeYes bool) entitlement.Deps {
	var refresher contract.Refresher
	if token, err := c.attached(); err == nil && token.Token != "" {
		refresher = contract.NewClient(c.settings.ContractURL, token.Token)
	}

	var prompter system.Prompter = system.NewStdinPrompter()
	if assumeYes {
		prompter = system.AssumeYesPrompter{}
	}

	return entitlement.Deps{
		Store:     c.store,
		Settings:  c.settings,
		Refresher: refresher,
		Machine:   c.machine,
		Apt:       system.ExecApt{},
		Snap:      system.ExecSnap{},
		Prompter:  prompter,
		Registry:  c.registry,
	}
}

package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/entctl/entctl/internal/entitlement"
	"github.com/entctl/entctl/internal/status"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [service]",
	Short: "Show service entitlement and activation status",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := setup()
	if err != nil {
		return err
	}

	names := c.registry.ValidServices()
	if len(args) == 1 {
		if _, err := c.registry.New(args[0]); err != nil {
			return err
		}
		names = args
	}

	// Status never prompts and never mutates; a stale contract is rendered
	// as-is rather than refreshed here.
	deps := c.engineDeps(true)
	deps.Refresher = nil

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tENTITLED\tSTATUS\tNOTES")
	for _, name := range names {
		engine, err := c.registry.Engine(name, deps, entitlement.Options{})
		if err != nil {
			return err
		}
		printStatusRow(w, name, engine)

		variants := engine.VariantEngines()
		variantNames := make([]string, 0, len(variants))
		for v := range variants {
			variantNames = append(variantNames, v)
		}
		sort.Strings(variantNames)
		for _, v := range variantNames {
			printStatusRow(w, fmt.Sprintf("%s (%s)", name, v), variants[v])
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	token, attachErr := c.attached()
	if attachErr != nil {
		fmt.Println("\nThis machine is not attached to a subscription.")
	} else {
		fmt.Printf("\nContract: %s", token.ContractID)
		if token.ContractName != "" {
			fmt.Printf(" (%s)", token.ContractName)
		}
		fmt.Println()
		if !token.Expires.IsZero() {
			fmt.Printf("Valid until: %s\n", token.Expires.Format("2006-01-02"))
		}
	}

	notices, err := c.store.Notices()
	if err != nil {
		return err
	}
	if len(notices) > 0 {
		fmt.Println("\nNOTICES")
		for _, n := range notices {
			fmt.Printf("  %s\n", n.Message)
		}
	}
	return nil
}

func printStatusRow(w *tabwriter.Writer, name string, engine *entitlement.Engine) {
	// The contract may present a service under an alias.
	if alias := engine.EntitlementConfig().Affordances.PresentedAs; alias != "" {
		name = alias
	}
	entitled := "no"
	if engine.ContractStatus() == status.Entitled {
		entitled = "yes"
	}
	result := engine.UserFacingStatus()
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, entitled, result.Status, result.Detail)
}

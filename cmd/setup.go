package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/config"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Edit pricing, tiers, limits and customer overrides",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		fmt.Printf("  Existing config unreadable (%v); starting from defaults.\n", err)
		cfg = config.DefaultConfig()
	}

	vals := tui.ValuesFromConfig(cfg)
	if err := tui.NewSettingsForm(vals).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup cancelled; nothing saved.")
			return nil
		}
		return err
	}

	next, err := vals.Apply(cfg)
	if err != nil {
		fmt.Println("  Settings not saved.")
		return err
	}
	if err := config.Save(flagConfig, next); err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", configPath())
	fmt.Println("  Run `knackcost setup` anytime to reconfigure.")
	return nil
}

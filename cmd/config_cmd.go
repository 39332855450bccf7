package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/cli"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/config"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/pricing"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default settings",
	RunE:  runConfigReset,
}

var configOverridesCmd = &cobra.Command{
	Use:   "overrides",
	Short: "Print customer overrides as JSON",
	RunE:  runConfigOverrides,
}

var configOverridesSetCmd = &cobra.Command{
	Use:   "set <json|->",
	Short: "Replace customer overrides with a JSON list (- reads stdin)",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigOverridesSet,
}

func init() {
	configOverridesCmd.AddCommand(configOverridesSetCmd)
	configCmd.AddCommand(configResetCmd)
	configCmd.AddCommand(configOverridesCmd)
	rootCmd.AddCommand(configCmd)
}

func configPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	return config.Path()
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	s, err := cfg.Settings()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", configPath())
	if config.Exists(flagConfig) {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [Pricing]")
	fmt.Printf("    Currency:        %s (%s)\n", s.CurrencySymbol, s.Currency)
	fmt.Printf("    Include tax:     %v\n", s.IncludeTax)
	fmt.Printf("    Tax rate:        %g\n", s.TaxRate)
	fmt.Printf("    Decimal places:  %d\n", s.RoundTo)
	fmt.Println()

	t := s.DefaultTier
	fmt.Println("  [Tier]")
	fmt.Printf("    Base:            %s up to %s records\n",
		pricing.FormatCurrency(t.BasePrice, s.CurrencySymbol, s.RoundTo), cli.FormatNumber(t.BaseLimit))
	fmt.Printf("    Step:            %s per %s records\n",
		pricing.FormatCurrency(t.StepPrice, s.CurrencySymbol, s.RoundTo), cli.FormatNumber(t.StepSize))
	fmt.Printf("    Zero is free:    %v\n", t.ZeroIsFree)
	fmt.Println()

	l := s.Limits
	fmt.Println("  [Limits]")
	fmt.Printf("    Max records:     %s\n", cli.FormatNumber(l.MaxRecords))
	fmt.Printf("    Max storage:     %s\n", cli.FormatStorage(l.MaxStorageGB))
	fmt.Printf("    Monthly base:    $%g USD\n", l.MonthlyBaseCost)
	fmt.Printf("    Exchange rate:   %g\n", l.ExchangeRate)
	fmt.Println()

	fmt.Println("  [Overrides]")
	if len(s.Overrides) == 0 {
		fmt.Println("    none")
	}
	for _, r := range s.Overrides {
		fmt.Printf("    %s\n", r.Match)
	}
	for _, perr := range pricing.InvalidPatterns(s.Overrides) {
		fmt.Printf("    warning: %v (never matches)\n", perr)
	}
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:         %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Poll interval:   %ds\n", cfg.Daemon.IntervalSec)
	fmt.Printf("    Throttle:        %dms\n", cfg.Daemon.ThrottleMs)
	fmt.Println()

	fmt.Println("  Run `knackcost setup` to reconfigure.")
	return nil
}

func runConfigReset(_ *cobra.Command, _ []string) error {
	if err := config.Reset(flagConfig); err != nil {
		return err
	}
	fmt.Printf("  Restored defaults in %s\n", configPath())
	return nil
}

func runConfigOverrides(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	text, err := cfg.OverridesJSON()
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}

func runConfigOverridesSet(cmd *cobra.Command, args []string) error {
	text := args[0]
	if text == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return eris.Wrap(err, "config: read stdin")
		}
		text = string(data)
	}

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if err := cfg.SetOverridesJSON(text); err != nil {
		fmt.Fprintln(os.Stderr, "  Invalid override JSON; nothing saved.")
		return err
	}
	if err := config.Save(flagConfig, cfg); err != nil {
		return err
	}

	fmt.Printf("  Saved %d override(s) to %s\n", len(cfg.Overrides), configPath())
	return nil
}

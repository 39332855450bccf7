// Package cmd implements the knackcost CLI commands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/cli"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/config"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/logging"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/pipeline"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/source"
)

var (
	flagInputs   []string
	flagConfig   string
	flagQuiet    bool
	flagLogLevel string
	flagAsc      bool
)

var rootCmd = &cobra.Command{
	Use:   "knackcost",
	Short: "Knack reseller app cost dashboard",
	Long: "Price every Knack app by record count, total records, storage and cost,\n" +
		"and export the priced table as CSV, XLS or XLSX.",
	SilenceUsage:      true,
	PersistentPreRunE: initLogging,
	RunE:              runSummary,
}

// Execute is the main entry point called from main.go.
func Execute() {
	defer logging.Sync()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&flagInputs, "input", "i", nil,
		"Apps page (.html) or row snapshot (.json, .yaml); repeatable")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default "+config.Path()+")")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&flagAsc, "asc", false, "Sort apps by records ascending")
}

func initLogging(_ *cobra.Command, _ []string) error {
	cfg, cfgErr := config.Load(flagConfig)

	level := cfg.Log.Level
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	if err := logging.Initialize(logging.Config{
		Level:  level,
		Format: cfg.Log.Format,
		Output: "stderr",
	}); err != nil {
		return err
	}

	if cfgErr != nil {
		logging.Warn("config unreadable; using defaults", zap.Error(cfgErr))
	}
	return nil
}

// openSources opens every --input file.
func openSources() ([]pipeline.RowSource, error) {
	if len(flagInputs) == 0 {
		return nil, eris.New("no input: pass --input <apps.html|rows.json|rows.yaml>")
	}
	out := make([]pipeline.RowSource, 0, len(flagInputs))
	for _, path := range flagInputs {
		f, err := source.Open(path)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// sourceName is a short label for the inputs, e.g. "apps.html +1".
func sourceName() string {
	if len(flagInputs) == 0 {
		return ""
	}
	name := filepath.Base(flagInputs[0])
	if n := len(flagInputs) - 1; n > 0 {
		name += fmt.Sprintf(" +%d", n)
	}
	return name
}

// runPass is the shared processing path used by all commands.
func runPass(ctx context.Context) (pipeline.Pass, error) {
	sources, err := openSources()
	if err != nil {
		return pipeline.Pass{}, err
	}

	progressFn := func(current, total int) {
		if flagQuiet || total < 2 {
			return
		}
		fmt.Fprintf(os.Stderr, "\r  Reading %s", cli.RenderProgressBar(current, total, 20))
		if current == total {
			fmt.Fprintln(os.Stderr)
		}
	}

	rows := pipeline.MultiSource{Sources: sources, Progress: progressFn}
	return pipeline.RunPass(ctx, config.FileSettings{Path: flagConfig}, rows)
}

// noTable prints the "no table" notice and reports whether err was it.
func noTable(err error) bool {
	if !eris.Is(err, source.ErrNoTable) {
		return false
	}
	fmt.Printf("\n  %s.\n", source.ErrNoTable.Error())
	return true
}

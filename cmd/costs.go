package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/cli"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/config"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/export"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/logging"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/pipeline"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/pricing"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/store"
)

var flagCostsRecord bool

var costsCmd = &cobra.Command{
	Use:   "costs",
	Short: "Per-app cost table sorted by records",
	RunE:  runCosts,
}

func init() {
	costsCmd.Flags().BoolVar(&flagCostsRecord, "record", false, "Store this pass in the history database")
	rootCmd.AddCommand(costsCmd)
}

func historyPath() string {
	return filepath.Join(config.Dir(), store.FileName)
}

func runCosts(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	p, err := runPass(ctx)
	if err != nil {
		if noTable(err) {
			return nil
		}
		return err
	}

	res := p.Result
	s := p.Settings
	if res.Empty() {
		fmt.Println("\n  No Knack apps in the source.")
		return nil
	}

	sorted := pipeline.SortByRecords(res.Rows, flagAsc)
	rows := make([][]string, 0, len(sorted)+2)
	for _, r := range sorted {
		rows = append(rows, []string{r.Name, r.RecordText, r.StorageText, r.TasksText, r.CostText})
	}
	rows = append(rows, []string{"---"})
	rows = append(rows, []string{
		"TOTAL",
		export.GroupDigits(res.TotalRecords),
		cli.FormatStorage(res.TotalStorageGB),
		"",
		pricing.FormatCurrency(res.TotalCost, s.CurrencySymbol, s.RoundTo),
	})

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "App Costs",
		Headers: []string{"Name", "Records", "Storage", "Tasks", "Cost"},
		Rows:    rows,
	}))
	fmt.Printf("  %s\n", cli.Totals(res, s))

	if !flagCostsRecord {
		return nil
	}

	h, err := store.Open(historyPath())
	if err != nil {
		return err
	}
	defer func() { _ = h.Close() }()

	id, err := h.Record(ctx, sourceName(), s.Currency, p.At, p.Duration, res)
	if err != nil {
		return err
	}
	logging.Info("pass recorded", zap.String("id", id))
	if !flagQuiet {
		fmt.Printf("  Recorded pass %s\n", id)
	}
	return nil
}

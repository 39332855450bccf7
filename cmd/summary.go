package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/analytics"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/cli"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/pricing"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Totals, usage and margin at a glance",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	p, err := runPass(cmd.Context())
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

	sum := analytics.Summarize(res, s.Limits)

	fmt.Println()
	fmt.Println(cli.RenderTitle("KNACK APPS  " + sourceName()))
	fmt.Println()

	avg := res.TotalCost / float64(len(res.Rows))
	tax := "no"
	if s.IncludeTax {
		tax = fmt.Sprintf("yes (%g%%)", s.TaxRate*100)
	}

	rows := [][]string{
		{"Apps", cli.FormatNumber(int64(len(res.Rows)))},
		{"Records", cli.FormatNumber(res.TotalRecords)},
		{"Storage", cli.FormatStorage(res.TotalStorageGB)},
		{"---"},
		{fmt.Sprintf("Revenue (%s)", s.Currency), pricing.FormatCurrency(res.TotalCost, s.CurrencySymbol, s.RoundTo)},
		{"Avg per app", pricing.FormatCurrency(avg, s.CurrencySymbol, s.RoundTo)},
		{"Tax included", tax},
		{"---"},
		{"Records used", cli.FormatPercent(sum.RecordsUsedPct)},
		{"Storage used", cli.FormatPercent(sum.StorageUsedPct)},
		{"Margin", fmt.Sprintf("%s  (%s)", cli.FormatWhole(s.CurrencySymbol, sum.Margin), cli.FormatPercent(sum.MarginPct))},
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows:    rows,
	}))
	fmt.Printf("  %s\n", cli.Totals(res, s))

	if sum.RecordsOverThreshold || sum.StorageOverThreshold {
		fmt.Printf("\n  Usage above %.0f%% of plan capacity; run `knackcost analytics` for details.\n",
			analytics.WarnThreshold)
	}
	return nil
}

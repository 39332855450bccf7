package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/cli"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/store"
)

var (
	flagHistoryLimit int
	flagHistoryKeep  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded passes",
	RunE:  runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <pass-id>",
	Short: "Show the app rows of one recorded pass",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest passes",
	RunE:  runHistoryPrune,
}

func init() {
	historyCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "l", 20, "Passes to list")
	historyPruneCmd.Flags().IntVar(&flagHistoryKeep, "keep", 500, "Passes to keep")
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	h, err := store.Open(historyPath())
	if err != nil {
		return err
	}
	defer func() { _ = h.Close() }()

	passes, err := h.Recent(cmd.Context(), flagHistoryLimit)
	if err != nil {
		return err
	}
	if len(passes) == 0 {
		fmt.Println("\n  No recorded passes. Run `knackcost costs --record` or `knackcost daemon`.")
		return nil
	}

	rows := make([][]string, 0, len(passes))
	for _, p := range passes {
		rows = append(rows, []string{
			p.ID,
			p.RanAt.Local().Format(time.DateTime),
			p.Source,
			cli.FormatNumber(int64(p.RowCount)),
			cli.FormatNumber(p.TotalRecords),
			cli.FormatStorage(p.TotalStorageGB),
			fmt.Sprintf("%.2f %s", p.TotalCost, p.Currency),
		})
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Recorded Passes",
		Headers: []string{"ID", "Ran At", "Source", "Apps", "Records", "Storage", "Cost"},
		Rows:    rows,
	}))
	if total, err := h.Count(cmd.Context()); err == nil && total > len(passes) {
		fmt.Printf("  Showing %d of %d passes. Use --limit for more.\n", len(passes), total)
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	h, err := store.Open(historyPath())
	if err != nil {
		return err
	}
	defer func() { _ = h.Close() }()

	recs, err := h.Rows(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Printf("\n  No rows for pass %s.\n", args[0])
		return nil
	}

	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []string{r.Name, cli.FormatNumber(r.Records), cli.FormatStorage(r.StorageGB), r.CostText})
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Pass " + args[0],
		Headers: []string{"Name", "Records", "Storage", "Cost"},
		Rows:    rows,
	}))
	return nil
}

func runHistoryPrune(cmd *cobra.Command, _ []string) error {
	h, err := store.Open(historyPath())
	if err != nil {
		return err
	}
	defer func() { _ = h.Close() }()

	n, err := h.Prune(cmd.Context(), flagHistoryKeep)
	if err != nil {
		return err
	}
	fmt.Printf("  Removed %d pass(es)\n", n)
	return nil
}

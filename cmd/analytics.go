package cmd

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/analytics"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/cli"
)

var flagAnalyticsJSON bool

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Plan usage and profit margin",
	RunE:  runAnalytics,
}

func init() {
	analyticsCmd.Flags().BoolVar(&flagAnalyticsJSON, "json", false, "Print the summary as JSON")
	rootCmd.AddCommand(analyticsCmd)
}

func runAnalytics(cmd *cobra.Command, _ []string) error {
	p, err := runPass(cmd.Context())
	if err != nil {
		if noTable(err) {
			return nil
		}
		return err
	}

	sum := analytics.Summarize(p.Result, p.Settings.Limits)

	if flagAnalyticsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}

	fmt.Println()
	fmt.Print(cli.RenderAnalytics(sum, p.Settings))
	return nil
}

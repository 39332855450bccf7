package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/export"
)

var (
	flagExportFormat string
	flagExportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the priced apps table as CSV, XLS or XLSX",
	Long: "Write every app row plus a TOTAL row. The file is named\n" +
		export.BaseName + ".<format> unless --out is given; use --out - for stdout.",
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&flagExportFormat, "format", "f", string(export.CSV), "csv, xls or xlsx")
	exportCmd.Flags().StringVarP(&flagExportOut, "out", "o", "", "Output file")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	format, err := export.ParseFormat(flagExportFormat)
	if err != nil {
		return err
	}

	p, err := runPass(cmd.Context())
	if err != nil {
		if noTable(err) {
			return nil
		}
		return err
	}

	// Render fully before touching the file so an empty table leaves nothing behind.
	var buf bytes.Buffer
	if err := export.Write(&buf, format, p.Headers, p.Result); err != nil {
		if eris.Is(err, export.ErrNoRows) {
			fmt.Println("\n  No Knack app rows to export.")
			return nil
		}
		return err
	}

	out := flagExportOut
	if out == "-" {
		_, err := os.Stdout.Write(buf.Bytes())
		return eris.Wrap(err, "export: write stdout")
	}
	if out == "" {
		out = format.FileName()
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", out)
	}

	if !flagQuiet {
		fmt.Printf("  Exported %d apps to %s\n", len(p.Result.Rows), out)
	}
	return nil
}

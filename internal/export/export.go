// Package export renders a processing pass as CSV, an HTML table that
// spreadsheet programs open as .xls, or a native .xlsx workbook.
package export

import (
	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/model"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/parse"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/pricing"
)

// ErrNoRows is returned when there is nothing to export.
var ErrNoRows = eris.New("no Knack app rows to export")

// BaseName is the file name exports are saved under, without extension.
const BaseName = "knack-apps-with-cost"

// DefaultHeaders label the columns when the page provided none.
var DefaultHeaders = []string{"Name", "Records", "Storage", "Tasks", "Description", "Actions", "Cost"}

var grouping = message.NewPrinter(language.English)

// GroupDigits formats n with comma thousands separators.
func GroupDigits(n int64) string {
	return grouping.Sprintf("%d", n)
}

// Totals are the figures written on the TOTAL row.
type Totals struct {
	Records int64
	// Cost is the float sum of the rendered per-row cost cells, not of the
	// unrounded costs. It is rounded only when the TOTAL row is written.
	Cost float64
}

// ComputeTotals sums record counts and the displayed cost of every row.
func ComputeTotals(res model.AggregateResult) Totals {
	var t Totals
	for _, r := range res.Rows {
		t.Records += r.Records
		t.Cost += parse.CostText(r.CostText)
	}
	return t
}

// dataCells is the exported column layout for one row. Description and
// Actions are always blank.
func dataCells(r model.CostedRow) []string {
	return []string{r.Name, r.RecordText, r.StorageText, r.TasksText, "", "", r.CostText}
}

func totalCells(t Totals) []string {
	return []string{"TOTAL", GroupDigits(t.Records), "", "", "", "", "$" + pricing.ToFixed(t.Cost, 2)}
}

func headersOrDefault(headers []string) []string {
	if len(headers) == 0 {
		return DefaultHeaders
	}
	return headers
}

func checkRows(res model.AggregateResult) error {
	if res.Empty() {
		return ErrNoRows
	}
	return nil
}

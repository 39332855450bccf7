package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/model"
)

// SheetName is the worksheet Spreadsheet writes to.
const SheetName = "Knack Apps"

// Spreadsheet writes the same layout as DelimitedText as an .xlsx workbook
// with a bold, shaded TOTAL row.
func Spreadsheet(w io.Writer, headers []string, res model.AggregateResult) error {
	if err := checkRows(res); err != nil {
		return err
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	bold := xlsx.NewStyle()
	bold.Font.Bold = true
	bold.ApplyFont = true

	addRow(sheet, headersOrDefault(headers), bold)
	for _, r := range res.Rows {
		addRow(sheet, dataCells(r), nil)
	}

	total := xlsx.NewStyle()
	total.Font.Bold = true
	total.ApplyFont = true
	total.Fill = *xlsx.NewFill("solid", "FFF0F0F0", "FFF0F0F0")
	total.ApplyFill = true
	addRow(sheet, totalCells(ComputeTotals(res)), total)

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write xlsx")
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, cells []string, style *xlsx.Style) {
	row := sheet.AddRow()
	for _, v := range cells {
		cell := row.AddCell()
		cell.SetString(v)
		if style != nil {
			cell.SetStyle(style)
		}
	}
}

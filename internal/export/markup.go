package export

import (
	"strings"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/model"
)

var markupEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

const totalRowStyle = "font-weight:bold;background-color:#f0f0f0;"

// TabularMarkup renders an HTML table document that spreadsheet programs
// open as an .xls workbook.
func TabularMarkup(headers []string, res model.AggregateResult) (string, error) {
	if err := checkRows(res); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(`<html><head><meta charset="utf-8"></head><body><table border="1"><thead><tr>`)
	for _, h := range headersOrDefault(headers) {
		b.WriteString("<th>" + markupEscaper.Replace(h) + "</th>")
	}
	b.WriteString("</tr></thead><tbody>")

	for _, r := range res.Rows {
		writeMarkupRow(&b, "<tr>", dataCells(r))
	}
	writeMarkupRow(&b, `<tr style="`+totalRowStyle+`">`, totalCells(ComputeTotals(res)))

	b.WriteString("</tbody></table></body></html>")
	return b.String(), nil
}

func writeMarkupRow(b *strings.Builder, open string, cells []string) {
	b.WriteString(open)
	for _, c := range cells {
		b.WriteString("<td>" + markupEscaper.Replace(c) + "</td>")
	}
	b.WriteString("</tr>")
}

package export

import (
	"strings"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/model"
)

// DelimitedText renders headers, one line per row and the TOTAL line as
// comma-separated text joined by "\n" with no trailing newline.
func DelimitedText(headers []string, res model.AggregateResult) (string, error) {
	if err := checkRows(res); err != nil {
		return "", err
	}

	lines := make([]string, 0, len(res.Rows)+2)
	lines = append(lines, csvLine(headersOrDefault(headers)))
	for _, r := range res.Rows {
		lines = append(lines, csvLine(dataCells(r)))
	}
	lines = append(lines, csvLine(totalCells(ComputeTotals(res))))
	return strings.Join(lines, "\n"), nil
}

// csvLine quotes only fields containing a comma, quote or newline.
// encoding/csv also quotes fields with leading spaces, which changes the
// output for otherwise plain cells.
func csvLine(fields []string) string {
	out := make([]string, len(fields))
	for i, f := range fields {
		f = strings.ReplaceAll(f, `"`, `""`)
		if strings.ContainsAny(f, ",\"\n") {
			f = `"` + f + `"`
		}
		out[i] = f
	}
	return strings.Join(out, ",")
}

package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/model"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/pipeline"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/pricing"
)

var headers = []string{"Name", "Records", "Storage", "Tasks", "Description", "Actions", "Cost"}

func sample() model.AggregateResult {
	return pipeline.Aggregate([]model.Row{
		{Name: "Acme, Co", RecordText: "12,345", StorageText: "1024 MB", TasksText: "3"},
		{Name: `The "Big" One`, RecordText: "75,001", StorageText: "2.5GB"},
		{Name: "Line\nBreak", RecordText: "1,000,000", StorageText: "10 GB"},
	}, pricing.DefaultSettings())
}

func TestDelimitedText_Layout(t *testing.T) {
	out, err := DelimitedText(headers, sample())
	require.NoError(t, err)

	assert.False(t, strings.HasSuffix(out, "\n"))
	assert.True(t, strings.HasPrefix(out, "Name,Records,Storage,Tasks,Description,Actions,Cost\n"))
	assert.Contains(t, out, `"Acme, Co","12,345",1024 MB,3,,,$250.00`)
	assert.Contains(t, out, `"The ""Big"" One","75,001",2.5GB,,,,$450.00`)
	assert.Contains(t, out, "\"Line\nBreak\",\"1,000,000\",10 GB,,,,$4050.00\n")
	assert.True(t, strings.HasSuffix(out, `TOTAL,"1,087,346",,,,,$4750.00`))
}

func TestDelimitedText_RoundTrip(t *testing.T) {
	res := sample()
	out, err := DelimitedText(headers, res)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(res.Rows)+2)

	assert.Equal(t, headers, records[0])
	for i, r := range res.Rows {
		assert.Equal(t, []string{r.Name, r.RecordText, r.StorageText, r.TasksText, "", "", r.CostText}, records[i+1])
	}
	assert.Equal(t, []string{"TOTAL", "1,087,346", "", "", "", "", "$4750.00"}, records[len(records)-1])
}

func TestDelimitedText_NoRows(t *testing.T) {
	_, err := DelimitedText(headers, model.AggregateResult{})
	assert.True(t, eris.Is(err, ErrNoRows))
}

func TestComputeTotals_UsesDisplayedCost(t *testing.T) {
	s := pricing.DefaultSettings()
	s.IncludeTax = true
	s.RoundTo = 0

	res := pipeline.Aggregate([]model.Row{
		{Name: "a", RecordText: "10"},
		{Name: "b", RecordText: "10"},
	}, s)
	require.Equal(t, "$288", res.Rows[0].CostText)

	totals := ComputeTotals(res)
	assert.Equal(t, 576.0, totals.Cost)
	assert.InDelta(t, 575.0, res.TotalCost, 1e-9)
	assert.Equal(t, int64(20), totals.Records)
}

func TestComputeTotals_ForeignSymbol(t *testing.T) {
	res := model.AggregateResult{Rows: []model.CostedRow{
		{CostText: "NZ$1,250.50"},
		{CostText: "garbage"},
		{CostText: ""},
	}}
	assert.InDelta(t, 1250.5, ComputeTotals(res).Cost, 1e-9)
}

func TestTotalRow_RoundsSummedFloat(t *testing.T) {
	s := pricing.DefaultSettings()
	s.RoundTo = 3
	s.DefaultTier.BasePrice = 1.005

	res := pipeline.Aggregate([]model.Row{{Name: "a", RecordText: "10"}}, s)
	require.Equal(t, "$1.005", res.Rows[0].CostText)

	totals := ComputeTotals(res)
	assert.Equal(t, []string{"TOTAL", "10", "", "", "", "", "$1.00"}, totalCells(totals))

	res = model.AggregateResult{Rows: []model.CostedRow{
		{Records: 1, CostText: "$0.10"},
		{Records: 1, CostText: "$0.20"},
		{Records: 1, CostText: "$115.115"},
	}}
	out, err := DelimitedText(nil, res)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "TOTAL,3,,,,,$115.41"), out)
}

func TestTabularMarkup(t *testing.T) {
	res := pipeline.Aggregate([]model.Row{
		{Name: "R&D <Lab>", RecordText: "100"},
	}, pricing.DefaultSettings())

	out, err := TabularMarkup([]string{"Name", "A&B"}, res)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, `<html><head><meta charset="utf-8"></head><body><table border="1"><thead><tr><th>Name</th><th>A&amp;B</th></tr></thead><tbody>`))
	assert.Contains(t, out, "<tr><td>R&amp;D &lt;Lab&gt;</td><td>100</td><td></td><td></td><td></td><td></td><td>$250.00</td></tr>")
	assert.Contains(t, out, `<tr style="font-weight:bold;background-color:#f0f0f0;"><td>TOTAL</td><td>100</td>`)
	assert.True(t, strings.HasSuffix(out, "<td>$250.00</td></tr></tbody></table></body></html>"))

	_, err = TabularMarkup(nil, model.AggregateResult{})
	assert.True(t, eris.Is(err, ErrNoRows))
}

func TestTabularMarkup_DefaultHeaders(t *testing.T) {
	out, err := TabularMarkup(nil, sample())
	require.NoError(t, err)
	assert.Contains(t, out, "<th>Description</th><th>Actions</th><th>Cost</th>")
}

func TestSpreadsheet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Spreadsheet(&buf, headers, sample()))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	sheet, ok := f.Sheet[SheetName]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 5)

	cells := func(row *xlsx.Row) []string {
		out := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			out[i] = c.String()
		}
		return out
	}
	assert.Equal(t, headers, cells(sheet.Rows[0]))
	assert.Equal(t, "Acme, Co", cells(sheet.Rows[1])[0])
	assert.Equal(t, "Line\nBreak", cells(sheet.Rows[3])[0])
	assert.Equal(t, []string{"TOTAL", "1,087,346", "", "", "", "", "$4750.00"}, cells(sheet.Rows[4]))

	assert.True(t, eris.Is(Spreadsheet(&buf, headers, model.AggregateResult{}), ErrNoRows))
}

func TestWriteAndFormats(t *testing.T) {
	for _, f := range Formats {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, f, headers, sample()), f)
		assert.NotZero(t, buf.Len())
	}

	f, err := ParseFormat(".XLSX")
	require.NoError(t, err)
	assert.Equal(t, XLSX, f)
	assert.Equal(t, "knack-apps-with-cost.xlsx", f.FileName())
	assert.Equal(t, "text/csv", CSV.ContentType())

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}

func TestGroupDigits(t *testing.T) {
	assert.Equal(t, "0", GroupDigits(0))
	assert.Equal(t, "999", GroupDigits(999))
	assert.Equal(t, "2,500,000", GroupDigits(2_500_000))
}

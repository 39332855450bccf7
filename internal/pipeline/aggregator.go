// Package pipeline runs processing passes: it reads rows, prices them and
// accumulates totals.
package pipeline

import (
	"sort"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/model"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/parse"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/pricing"
)

// Aggregate prices every row and sums records, storage and cost. Rows keep
// their input order and none are dropped; unparsable cells count as zero.
// The result depends only on its arguments.
func Aggregate(rows []model.Row, s pricing.Settings) model.AggregateResult {
	res := model.AggregateResult{Rows: make([]model.CostedRow, 0, len(rows))}
	s.Overrides, _ = pricing.CompileOverrides(s.Overrides)

	for _, r := range rows {
		records := parse.RecordCount(r.RecordText)
		storage := parse.StorageGB(r.StorageText)
		cost := pricing.ComputeCost(r.Name, records, s)

		res.Rows = append(res.Rows, model.CostedRow{
			Row:       r,
			Records:   records,
			StorageGB: storage,
			Cost:      cost,
			CostText:  pricing.FormatCurrency(cost, s.CurrencySymbol, s.RoundTo),
		})

		res.TotalRecords += records
		res.TotalStorageGB += storage
		res.TotalCost += cost
	}

	return res
}

// SortByRecords returns a copy of rows ordered by parsed record count,
// descending unless asc is set. Equal counts keep their relative order.
func SortByRecords(rows []model.CostedRow, asc bool) []model.CostedRow {
	out := make([]model.CostedRow, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		if asc {
			return out[i].Records < out[j].Records
		}
		return out[i].Records > out[j].Records
	})
	return out
}

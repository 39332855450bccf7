// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/export"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/model"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/pricing"
)

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	return export.GroupDigits(n)
}

// FormatStorage formats a GB amount with one decimal, e.g. "12.3GB".
func FormatStorage(gb float64) string {
	return fmt.Sprintf("%.1fGB", gb)
}

// FormatPercent formats a value that is already a percentage.
// e.g., 87.25 -> "87.3%"
func FormatPercent(pct float64) string {
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		pct = 0
	}
	return fmt.Sprintf("%.1f%%", pct)
}

// FormatWhole formats an amount with no decimals after symbol.
// e.g., ("$", 3762.4) -> "$3762"
func FormatWhole(symbol string, v float64) string {
	return pricing.FormatCurrency(v, symbol, 0)
}

// Totals returns the toolbar line: "Records: 1,234  Storage: 1.5GB  Cost: $500.00".
func Totals(res model.AggregateResult, s pricing.Settings) string {
	return fmt.Sprintf("Records: %s  Storage: %s  Cost: %s",
		FormatNumber(res.TotalRecords),
		FormatStorage(res.TotalStorageGB),
		pricing.FormatCurrency(res.TotalCost, s.CurrencySymbol, s.RoundTo),
	)
}

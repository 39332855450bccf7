// Package analytics derives utilisation and margin figures from a pass.
package analytics

import (
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/model"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/pricing"
)

// WarnThreshold is the usage percentage above which usage is flagged.
const WarnThreshold = 80.0

// Summary compares a pass against the reseller's capacity limits.
// Percentages are not capped at 100.
type Summary struct {
	TotalRecords   int64   `json:"totalRecords"`
	TotalStorageGB float64 `json:"totalStorageGB"`
	TotalCost      float64 `json:"totalCost"`

	RecordsUsedPct float64 `json:"recordsUsedPct"`
	StorageUsedPct float64 `json:"storageUsedPct"`

	RecordsRemaining int64   `json:"recordsRemaining"`
	StorageRemaining float64 `json:"storageRemaining"`

	MonthlyBaseCost      float64 `json:"monthlyBaseCost"`
	ExchangeRate         float64 `json:"exchangeRate"`
	MonthlyCostConverted float64 `json:"monthlyCostConverted"`
	Margin               float64 `json:"margin"`
	MarginPct            float64 `json:"marginPct"`

	RecordsOverThreshold bool `json:"recordsOverThreshold"`
	StorageOverThreshold bool `json:"storageOverThreshold"`
}

// Summarize computes the analytics panel figures. A non-positive limit
// yields a 0% usage figure rather than a division by zero.
func Summarize(res model.AggregateResult, limits pricing.CapacityLimits) Summary {
	s := Summary{
		TotalRecords:         res.TotalRecords,
		TotalStorageGB:       res.TotalStorageGB,
		TotalCost:            res.TotalCost,
		RecordsRemaining:     limits.MaxRecords - res.TotalRecords,
		StorageRemaining:     limits.MaxStorageGB - res.TotalStorageGB,
		MonthlyBaseCost:      limits.MonthlyBaseCost,
		ExchangeRate:         limits.ExchangeRate,
		MonthlyCostConverted: limits.MonthlyBaseCost * limits.ExchangeRate,
	}

	if limits.MaxRecords > 0 {
		s.RecordsUsedPct = float64(res.TotalRecords) / float64(limits.MaxRecords) * 100
	}
	if limits.MaxStorageGB > 0 {
		s.StorageUsedPct = res.TotalStorageGB / limits.MaxStorageGB * 100
	}

	s.Margin = res.TotalCost - s.MonthlyCostConverted
	if res.TotalCost > 0 {
		s.MarginPct = s.Margin / res.TotalCost * 100
	}

	s.RecordsOverThreshold = s.RecordsUsedPct > WarnThreshold
	s.StorageOverThreshold = s.StorageUsedPct > WarnThreshold
	return s
}

// Profitable reports whether revenue exceeds the converted base cost.
func (s Summary) Profitable() bool { return s.Margin > 0 }

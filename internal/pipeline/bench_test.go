package pipeline

import (
	"fmt"
	"testing"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/model"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/pricing"
)

func benchRows(n int) []model.Row {
	rows := make([]model.Row, n)
	for i := range rows {
		rows[i] = model.Row{
			Name:        fmt.Sprintf("Customer %d", i),
			RecordText:  fmt.Sprintf("%d,%03d", i, i%1000),
			StorageText: fmt.Sprintf("%d MB", i*7),
		}
	}
	return rows
}

func BenchmarkAggregate(b *testing.B) {
	rows := benchRows(500)
	s := pricing.DefaultSettings()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Aggregate(rows, s)
	}
}

func BenchmarkAggregate_WithPatterns(b *testing.B) {
	rows := benchRows(500)
	s := pricing.DefaultSettings()
	for i := 0; i < 20; i++ {
		s.Overrides = append(s.Overrides, pricing.OverrideRule{
			Match: pricing.ParseMatch(fmt.Sprintf("/^customer %d$/i", i*25)),
		})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Aggregate(rows, s)
	}
}

package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func standardTier() Tier {
	return Tier{BaseLimit: 50000, BasePrice: 250, StepSize: 25000, StepPrice: 100, ZeroIsFree: true}
}

func TestTieredCost(t *testing.T) {
	tests := []struct {
		name    string
		records int64
		tier    Tier
		want    float64
	}{
		{"zero is free", 0, standardTier(), 0},
		{"zero is free ignores base price", 0, Tier{BaseLimit: 10, BasePrice: 999, StepSize: 1, ZeroIsFree: true}, 0},
		{"zero without free flag still zero", 0, Tier{BaseLimit: 10, BasePrice: 999, StepSize: 1}, 0},
		{"single record pays base", 1, standardTier(), 250},
		{"at base limit", 50000, standardTier(), 250},
		{"one full step", 75000, standardTier(), 350},
		{"partial step rounds up", 75001, standardTier(), 450},
		{"just over base", 50001, standardTier(), 350},
		{"negative clamps to zero", -500, standardTier(), 0},
		{"step size zero treated as one", 53, Tier{BaseLimit: 50, BasePrice: 10, StepSize: 0, StepPrice: 1}, 13},
		{"negative base limit", 0, Tier{BaseLimit: -1, BasePrice: 5, StepSize: 10, StepPrice: 2}, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TieredCost(tt.records, tt.tier))
		})
	}
}

func TestTierMerge(t *testing.T) {
	price := 100.0
	free := false
	merged := standardTier().Merge(TierOverride{BasePrice: &price, ZeroIsFree: &free})

	assert.Equal(t, int64(50000), merged.BaseLimit)
	assert.Equal(t, 100.0, merged.BasePrice)
	assert.Equal(t, int64(25000), merged.StepSize)
	assert.Equal(t, 100.0, merged.StepPrice)
	assert.False(t, merged.ZeroIsFree)

	assert.Equal(t, standardTier(), standardTier().Merge(TierOverride{}))
	assert.True(t, TierOverride{}.IsZero())
	assert.False(t, TierOverride{BasePrice: &price}.IsZero())
}

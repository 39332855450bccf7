package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordCount(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int64
	}{
		{"grouped with label", "12,345 records", 12345},
		{"empty", "", 0},
		{"plain", "42", 42},
		{"whitespace inside", " 1 234 567 ", 1234567},
		{"negative kept", "-15", -15},
		{"first integer wins", "3 of 9", 39},
		{"no digits", "n/a", 0},
		{"decimal truncated at dot", "12.9", 12},
		{"overflow degrades", "99999999999999999999999", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RecordCount(tt.in))
		})
	}
}

func TestStorageGB(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
	}{
		{"megabytes", "1024 MB", 1.0},
		{"kilobytes", "1048576kb", 1.0},
		{"gigabytes", "2.5GB", 2.5},
		{"unit defaults to gb", "7", 7},
		{"grouped megabytes", "2,048 mb", 2},
		{"empty", "", 0},
		{"no number", "unknown", 0},
		{"lone dot", ".", 0},
		{"multiple dots", "1.2.3 GB", 1.2},
		{"label prefix", "Storage: 3 GB", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, StorageGB(tt.in), 1e-12)
		})
	}
}

func TestLeadingFloat(t *testing.T) {
	assert.Equal(t, 1.2, LeadingFloat("1.2.3"))
	assert.Equal(t, 0.5, LeadingFloat(".5"))
	assert.Equal(t, -4.5, LeadingFloat("-4.5x"))
	assert.Equal(t, 3.0, LeadingFloat("3."))
	assert.Equal(t, 0.0, LeadingFloat("abc"))
	assert.Equal(t, 0.0, LeadingFloat(""))
}

func TestCostText(t *testing.T) {
	assert.Equal(t, 1234.5, CostText("$1,234.50"))
	assert.Equal(t, 287.5, CostText("NZ$287.50"))
	assert.Equal(t, 0.0, CostText(""))
	assert.Equal(t, 0.0, CostText("free"))
}

package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/model"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/pricing"
)

func sampleRows() []model.Row {
	return []model.Row{
		{Name: "Acme Co", RecordText: "12,345", StorageText: "1024 MB"},
		{Name: "BETA Corp", RecordText: "75,001", StorageText: "2.5GB"},
		{Name: "Empty", RecordText: "", StorageText: "n/a"},
		{Name: "Gamma", RecordText: "0", StorageText: "1048576kb"},
	}
}

func TestAggregate_Empty(t *testing.T) {
	res := Aggregate(nil, pricing.DefaultSettings())
	assert.True(t, res.Empty())
	assert.Equal(t, int64(0), res.TotalRecords)
	assert.Equal(t, 0.0, res.TotalStorageGB)
	assert.Equal(t, 0.0, res.TotalCost)
	assert.NotNil(t, res.Rows)
}

func TestAggregate_PerRow(t *testing.T) {
	res := Aggregate(sampleRows(), pricing.DefaultSettings())
	require.Len(t, res.Rows, 4)

	assert.Equal(t, "Acme Co", res.Rows[0].Name)
	assert.Equal(t, int64(12345), res.Rows[0].Records)
	assert.Equal(t, 1.0, res.Rows[0].StorageGB)
	assert.Equal(t, 250.0, res.Rows[0].Cost)
	assert.Equal(t, "$250.00", res.Rows[0].CostText)

	assert.Equal(t, 450.0, res.Rows[1].Cost)
	assert.Equal(t, 2.5, res.Rows[1].StorageGB)

	assert.Equal(t, int64(0), res.Rows[2].Records)
	assert.Equal(t, 0.0, res.Rows[2].StorageGB)
	assert.Equal(t, 0.0, res.Rows[2].Cost)
	assert.Equal(t, "$0.00", res.Rows[2].CostText)

	assert.Equal(t, 1.0, res.Rows[3].StorageGB)
}

func TestAggregate_TotalsEqualRowSums(t *testing.T) {
	s := pricing.DefaultSettings()
	s.IncludeTax = true

	res := Aggregate(sampleRows(), s)

	var records int64
	var storage, cost float64
	for _, r := range res.Rows {
		records += r.Records
		storage += r.StorageGB
		cost += r.Cost
	}
	assert.Equal(t, records, res.TotalRecords)
	assert.Equal(t, storage, res.TotalStorageGB)
	assert.Equal(t, cost, res.TotalCost)
	assert.Equal(t, int64(87346), res.TotalRecords)
}

func TestAggregate_Idempotent(t *testing.T) {
	s := pricing.DefaultSettings()
	rows := sampleRows()
	assert.Equal(t, Aggregate(rows, s), Aggregate(rows, s))
}

func TestAggregate_Concurrent(t *testing.T) {
	s := pricing.DefaultSettings()
	s.Overrides = []pricing.OverrideRule{{Match: pricing.ParseMatch("/^beta/i")}}
	rows := sampleRows()
	want := Aggregate(rows, s)

	var wg sync.WaitGroup
	results := make([]model.AggregateResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Aggregate(rows, s)
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestAggregate_OverrideApplies(t *testing.T) {
	price := 99.0
	s := pricing.DefaultSettings()
	s.Overrides = []pricing.OverrideRule{
		{Match: pricing.ParseMatch("Acme Co"), Tier: pricing.TierOverride{BasePrice: &price}},
		{Match: pricing.ParseMatch("/^beta/i"), Tier: pricing.TierOverride{BasePrice: &price}},
	}

	res := Aggregate(sampleRows(), s)
	assert.Equal(t, 99.0, res.Rows[0].Cost)
	assert.Equal(t, 299.0, res.Rows[1].Cost)
}

func TestSortByRecords(t *testing.T) {
	rows := []model.CostedRow{
		{Row: model.Row{Name: "a"}, Records: 10},
		{Row: model.Row{Name: "b"}, Records: 30},
		{Row: model.Row{Name: "c"}, Records: 10},
		{Row: model.Row{Name: "d"}, Records: 20},
	}

	names := func(rs []model.CostedRow) []string {
		var out []string
		for _, r := range rs {
			out = append(out, r.Name)
		}
		return out
	}

	assert.Equal(t, []string{"b", "d", "a", "c"}, names(SortByRecords(rows, false)))
	assert.Equal(t, []string{"a", "c", "d", "b"}, names(SortByRecords(rows, true)))
	assert.Equal(t, []string{"a", "b", "c", "d"}, names(rows))
}

type fakeRows struct {
	snap model.Snapshot
	err  error
}

func (f fakeRows) Snapshot(context.Context) (model.Snapshot, error) { return f.snap, f.err }

type failingSettings struct{}

func (failingSettings) Settings(context.Context) (pricing.Settings, error) {
	return pricing.Settings{}, errors.New("storage unavailable")
}

func TestRunPass(t *testing.T) {
	rows := fakeRows{snap: model.Snapshot{Headers: []string{"Name", "Cost"}, Rows: sampleRows()}}

	p, err := RunPass(context.Background(), StaticSettings(pricing.DefaultSettings()), rows)
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Cost"}, p.Headers)
	assert.Len(t, p.Result.Rows, 4)
	assert.Equal(t, 700.0, p.Result.TotalCost)
	assert.False(t, p.At.IsZero())
}

func TestRunPass_Errors(t *testing.T) {
	_, err := RunPass(context.Background(), failingSettings{}, fakeRows{})
	assert.ErrorContains(t, err, "storage unavailable")

	_, err = RunPass(context.Background(), StaticSettings(pricing.DefaultSettings()), fakeRows{err: errors.New("gone")})
	assert.ErrorContains(t, err, "gone")
}

func TestMultiSource(t *testing.T) {
	var calls int
	var mu sync.Mutex
	m := MultiSource{
		Sources: []RowSource{
			fakeRows{snap: model.Snapshot{Rows: sampleRows()[:1]}},
			fakeRows{snap: model.Snapshot{Headers: []string{"Name"}, Rows: sampleRows()[1:]}},
		},
		Progress: func(current, total int) {
			mu.Lock()
			calls++
			mu.Unlock()
			assert.Equal(t, 2, total)
		},
	}

	snap, err := m.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Name"}, snap.Headers)
	require.Len(t, snap.Rows, 4)
	assert.Equal(t, "Acme Co", snap.Rows[0].Name)
	assert.Equal(t, "Gamma", snap.Rows[3].Name)
	assert.Equal(t, 2, calls)

	m.Sources = append(m.Sources, fakeRows{err: errors.New("bad file")})
	_, err = m.Snapshot(context.Background())
	assert.ErrorContains(t, err, "bad file")

	empty, err := MultiSource{}.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, empty.Rows)
}

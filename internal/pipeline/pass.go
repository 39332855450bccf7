package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/logging"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/model"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/pricing"
)

// SettingsSource resolves the pricing settings once per pass.
type SettingsSource interface {
	Settings(ctx context.Context) (pricing.Settings, error)
}

// StaticSettings always returns the same settings.
type StaticSettings pricing.Settings

// Settings implements SettingsSource.
func (s StaticSettings) Settings(context.Context) (pricing.Settings, error) {
	return pricing.Settings(s), nil
}

// Pass is the output of one processing pass.
type Pass struct {
	Headers  []string
	Settings pricing.Settings
	Result   model.AggregateResult
	At       time.Time
	Duration time.Duration
}

// RunPass loads settings, then takes a row snapshot, then aggregates.
// Nothing is shared between passes.
func RunPass(ctx context.Context, settings SettingsSource, rows RowSource) (Pass, error) {
	start := time.Now()

	s, err := settings.Settings(ctx)
	if err != nil {
		return Pass{}, eris.Wrap(err, "pipeline: load settings")
	}
	var invalid []error
	s.Overrides, invalid = pricing.CompileOverrides(s.Overrides)
	for _, perr := range invalid {
		logging.Debug("override pattern skipped", zap.Error(perr))
	}

	snap, err := rows.Snapshot(ctx)
	if err != nil {
		return Pass{}, eris.Wrap(err, "pipeline: read rows")
	}

	p := Pass{
		Headers:  snap.Headers,
		Settings: s,
		Result:   Aggregate(snap.Rows, s),
		At:       start,
		Duration: time.Since(start),
	}
	logging.Debug("pass complete",
		zap.Int("rows", len(p.Result.Rows)),
		zap.Int64("records", p.Result.TotalRecords),
		zap.Float64("cost", p.Result.TotalCost),
		zap.Duration("took", p.Duration),
	)
	return p, nil
}

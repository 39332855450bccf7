package daemon

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/analytics"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/model"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/pipeline"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/pricing"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/source"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/store"
)

type stubRows struct {
	snap  model.Snapshot
	err   error
	calls atomic.Int64
}

func (s *stubRows) Snapshot(context.Context) (model.Snapshot, error) {
	s.calls.Add(1)
	return s.snap, s.err
}

func sampleRows() []model.Row {
	return []model.Row{
		{Name: "Small", RecordText: "100", StorageText: "512 MB"},
		{Name: "Big", RecordText: "75,001", StorageText: "2GB"},
	}
}

func newTestService(t *testing.T, rows pipeline.RowSource, history *store.History) *Service {
	t.Helper()
	return New(Config{Interval: 10 * time.Second, EventsBuffer: 10}, pipeline.StaticSettings(pricing.DefaultSettings()), rows, history)
}

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{Rows: 2, Records: 100, StorageGB: 1.5, Cost: 250}
	curr := Snapshot{Rows: 3, Records: 75_101, StorageGB: 3.5, Cost: 700}

	delta := diffSnapshots(prev, curr)
	assert.Equal(t, 1, delta.Rows)
	assert.Equal(t, int64(75_001), delta.Records)
	assert.InDelta(t, 2.0, delta.StorageGB, 1e-9)
	assert.InDelta(t, 450.0, delta.Cost, 1e-9)
	assert.False(t, delta.isZero())
	assert.True(t, diffSnapshots(curr, curr).isZero())
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := New(Config{EventsBuffer: 2}, pipeline.StaticSettings(pricing.DefaultSettings()), &stubRows{}, nil)

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	require.Len(t, s.events, 2)
	assert.Equal(t, int64(2), s.events[0].ID)
	assert.Equal(t, int64(3), s.events[1].ID)
}

func TestThrottle(t *testing.T) {
	th := throttle{gap: 800 * time.Millisecond}
	now := time.Now()
	assert.Zero(t, th.wait(now))

	th.mark(now)
	assert.Equal(t, 800*time.Millisecond, th.wait(now))
	assert.Equal(t, 300*time.Millisecond, th.wait(now.Add(500*time.Millisecond)))
	assert.Zero(t, th.wait(now.Add(800*time.Millisecond)))
}

func TestPassOnce_EventsOnlyOnChange(t *testing.T) {
	rows := &stubRows{snap: model.Snapshot{Rows: sampleRows()}}
	s := newTestService(t, rows, nil)
	ctx := context.Background()

	s.passOnce(ctx)
	s.passOnce(ctx)

	rows.snap.Rows = append(rows.snap.Rows, model.Row{Name: "New", RecordText: "10"})
	s.passOnce(ctx)

	st := s.snapshotStatus()
	assert.Equal(t, int64(3), st.PassCount)
	assert.Equal(t, 2, st.EventCount)
	assert.Equal(t, 3, st.Summary.Rows)
	assert.Equal(t, "$950.00", st.Summary.CostText)

	s.mu.RLock()
	defer s.mu.RUnlock()
	assert.Equal(t, "snapshot", s.events[0].Type)
	assert.Equal(t, "totals_delta", s.events[1].Type)
	assert.Equal(t, 1, s.events[1].Delta.Rows)
	assert.Equal(t, 250.0, s.events[1].Delta.Cost)
}

func TestPassOnce_ErrorKeepsLastPass(t *testing.T) {
	rows := &stubRows{snap: model.Snapshot{Rows: sampleRows()}}
	s := newTestService(t, rows, nil)

	s.passOnce(context.Background())
	rows.err = source.ErrNoTable
	s.passOnce(context.Background())

	st := s.snapshotStatus()
	assert.Contains(t, st.LastError, "No Knack apps table found")
	p, ok := s.latest()
	require.True(t, ok)
	assert.Len(t, p.Result.Rows, 2)
}

func TestPassOnce_RecordsHistory(t *testing.T) {
	h, err := store.Open(filepath.Join(t.TempDir(), store.FileName))
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })

	s := newTestService(t, &stubRows{snap: model.Snapshot{Rows: sampleRows()}}, h)
	s.passOnce(context.Background())

	passes, err := h.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, passes, 1)
	assert.Equal(t, 700.0, passes[0].TotalCost)

	s.mu.RLock()
	assert.Equal(t, passes[0].ID, s.events[0].PassID)
	s.mu.RUnlock()
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandlers_BeforeFirstPass(t *testing.T) {
	s := newTestService(t, &stubRows{}, nil)
	h := s.Handler()

	rec := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())

	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/v1/rows").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/v1/analytics").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/v1/history").Code)
}

func TestHandlers_AfterPass(t *testing.T) {
	s := newTestService(t, &stubRows{snap: model.Snapshot{Rows: sampleRows()}}, nil)
	s.passOnce(context.Background())
	h := s.Handler()

	rec := get(t, h, "/v1/rows")
	require.Equal(t, http.StatusOK, rec.Code)
	var rows RowsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows.Rows, 2)
	assert.Equal(t, "Big", rows.Rows[0].Name)
	assert.Equal(t, "Cost", rows.Headers[len(rows.Headers)-1])
	assert.Equal(t, int64(75_101), rows.Totals.Records)

	rec = get(t, h, "/v1/rows?order=asc")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	assert.Equal(t, "Small", rows.Rows[0].Name)

	rec = get(t, h, "/v1/analytics")
	require.Equal(t, http.StatusOK, rec.Code)
	var sum analytics.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.InDelta(t, 75_101.0/2_500_000*100, sum.RecordsUsedPct, 1e-9)

	rec = get(t, h, "/v1/export.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "knack-apps-with-cost.csv")
	assert.True(t, strings.HasSuffix(rec.Body.String(), `TOTAL,"75,101",,,,,$700.00`))

	rec = get(t, h, "/v1/export.xls")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<td>TOTAL</td>")

	rec = get(t, h, "/v1/export.xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"))

	assert.Equal(t, http.StatusNotFound, get(t, h, "/v1/export.pdf").Code)

	rec = get(t, h, "/v1/status")
	var st Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, int64(1), st.PassCount)
	assert.Equal(t, int64(800), st.ThrottleMs)

	rec = get(t, h, "/v1/events")
	var events []Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	assert.Len(t, events, 1)
}

func TestHandlers_ExportNoRows(t *testing.T) {
	s := newTestService(t, &stubRows{snap: model.Snapshot{}}, nil)
	s.passOnce(context.Background())

	rec := get(t, s.Handler(), "/v1/export.csv")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no Knack app rows to export")
}

func TestHandlers_CORS(t *testing.T) {
	cases := []struct {
		name    string
		origins []string
		origin  string
		allowed bool
	}{
		{"builder default", nil, "https://builder.knack.com", true},
		{"tenant subdomain", nil, "https://acme.knack.com", true},
		{"other site", nil, "https://example.com", false},
		{"configured", []string{"http://localhost:3000"}, "http://localhost:3000", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := New(Config{EventsBuffer: 10, AllowedOrigins: tc.origins},
				pipeline.StaticSettings(pricing.DefaultSettings()), &stubRows{}, nil)

			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.Header.Set("Origin", tc.origin)
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)

			got := rec.Header().Get("Access-Control-Allow-Origin")
			if tc.allowed {
				assert.Equal(t, tc.origin, got)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestLoop_ReprocessesOnFileChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rows.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name":"A","records":"10"}]`), 0o600))

	f, err := source.Open(path)
	require.NoError(t, err)

	s := New(Config{
		WatchPaths: []string{path},
		Interval:   time.Hour,
		Throttle:   50 * time.Millisecond,
	}, pipeline.StaticSettings(pricing.DefaultSettings()), f, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.loop(ctx) }()

	require.Eventually(t, func() bool { return s.snapshotStatus().PassCount >= 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(`[{"name":"A","records":"10"},{"name":"B","records":"60000"}]`), 0o600))

	require.Eventually(t, func() bool { return s.snapshotStatus().Summary.Rows == 2 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 600.0, s.snapshotStatus().Summary.Cost)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	s := New(Config{Addr: "127.0.0.1:0"}, pipeline.StaticSettings(pricing.DefaultSettings()), &stubRows{err: errors.New("no rows")}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.snapshotStatus().PassCount >= 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

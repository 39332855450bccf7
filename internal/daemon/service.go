// Package daemon re-processes the row snapshot whenever it or the settings
// change and serves the latest pass over HTTP.
package daemon

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/logging"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/pipeline"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/pricing"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/store"
)

// Config controls the daemon runtime behavior.
type Config struct {
	// WatchPaths are files whose changes trigger a pass: the row inputs
	// and the settings file.
	WatchPaths   []string
	Interval     time.Duration
	Throttle     time.Duration
	Addr         string
	EventsBuffer int
	// AllowedOrigins may read the API from a browser. Empty means the
	// Knack builder domains.
	AllowedOrigins []string
}

// DefaultOrigins are the browser origins allowed when none are configured.
var DefaultOrigins = []string{"https://builder.knack.com", "https://*.knack.com"}

// Snapshot is a compact pass state for status/event payloads.
type Snapshot struct {
	At        time.Time `json:"at"`
	Rows      int       `json:"rows"`
	Records   int64     `json:"records"`
	StorageGB float64   `json:"storage_gb"`
	Cost      float64   `json:"cost"`
	CostText  string    `json:"cost_text"`
	Currency  string    `json:"currency"`
}

// Delta captures snapshot deltas between passes.
type Delta struct {
	Rows      int     `json:"rows"`
	Records   int64   `json:"records"`
	StorageGB float64 `json:"storage_gb"`
	Cost      float64 `json:"cost"`
}

func (d Delta) isZero() bool {
	return d.Rows == 0 &&
		d.Records == 0 &&
		d.StorageGB == 0 &&
		d.Cost == 0
}

// Event is emitted whenever a pass changes the totals.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	PassID    string    `json:"pass_id,omitempty"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPassAt      time.Time `json:"last_pass_at"`
	IntervalSec     int       `json:"interval_sec"`
	ThrottleMs      int64     `json:"throttle_ms"`
	PassCount       int64     `json:"pass_count"`
	WatchPaths      []string  `json:"watch_paths"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg      Config
	settings pipeline.SettingsSource
	rows     pipeline.RowSource
	history  *store.History
	log      *zap.Logger

	passMu sync.Mutex

	mu          sync.RWMutex
	startedAt   time.Time
	lastPassAt  time.Time
	passCount   int64
	lastError   string
	hasPass     bool
	pass        pipeline.Pass
	snapshot    Snapshot
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a daemon service. history may be nil.
func New(cfg Config, settings pipeline.SettingsSource, rows pipeline.RowSource, history *store.History) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Throttle <= 0 {
		cfg.Throttle = 800 * time.Millisecond
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8788"
	}

	return &Service{
		cfg:       cfg,
		settings:  settings,
		rows:      rows,
		history:   history,
		log:       logging.Named("daemon"),
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Run serves the HTTP API and re-processes on change or interval until ctx
// is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "daemon: http server")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return s.loop(ctx)
	})

	s.log.Info("daemon listening", zap.String("addr", s.cfg.Addr))
	return g.Wait()
}

// loop runs one pass immediately, then one per interval and one per
// relevant file change, never closer together than the throttle gap.
func (s *Service) loop(ctx context.Context) error {
	th := throttle{gap: s.cfg.Throttle}
	th.mark(time.Now())
	s.passOnce(ctx)

	w, err := newWatcher(s.cfg.WatchPaths)
	if err != nil {
		s.log.Warn("file watching disabled", zap.Error(err))
	} else {
		defer w.Close()
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	var timer *time.Timer
	var pending <-chan time.Time
	request := func() {
		if pending != nil {
			return
		}
		now := time.Now()
		if wait := th.wait(now); wait > 0 {
			timer = time.NewTimer(wait)
			pending = timer.C
			return
		}
		th.mark(now)
		s.passOnce(ctx)
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			request()
		case <-w.changes():
			request()
		case err := <-w.errors():
			s.log.Warn("watch error", zap.Error(err))
		case <-pending:
			pending = nil
			th.mark(time.Now())
			s.passOnce(ctx)
		}
	}
}

// passOnce runs a full pass and publishes the result. Passes never
// overlap.
func (s *Service) passOnce(ctx context.Context) {
	s.passMu.Lock()
	defer s.passMu.Unlock()

	p, err := pipeline.RunPass(ctx, s.settings, s.rows)
	now := time.Now()
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastPassAt = now
		s.passCount++
		s.mu.Unlock()
		s.log.Warn("pass failed", zap.Error(err))
		return
	}

	var passID string
	if s.history != nil {
		id, herr := s.history.Record(ctx, "daemon", p.Settings.Currency, p.At, p.Duration, p.Result)
		if herr != nil {
			s.log.Error("history record failed", zap.Error(herr))
		}
		passID = id
	}

	snap := snapshotFromPass(p, now)

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasPass

	s.hasPass = true
	s.pass = p
	s.snapshot = snap
	s.lastPassAt = now
	s.passCount++
	s.lastError = ""

	if !prevExists {
		s.nextEventID++
		ev = Event{ID: s.nextEventID, Type: "snapshot", Timestamp: now, PassID: passID, Snapshot: snap}
		publish = true
	} else if delta := diffSnapshots(prev, snap); !delta.isZero() {
		s.nextEventID++
		ev = Event{ID: s.nextEventID, Type: "totals_delta", Timestamp: now, PassID: passID, Snapshot: snap, Delta: delta}
		publish = true
	}
	s.mu.Unlock()

	if publish {
		s.publishEvent(ev)
	}
}

func snapshotFromPass(p pipeline.Pass, at time.Time) Snapshot {
	return Snapshot{
		At:        at,
		Rows:      len(p.Result.Rows),
		Records:   p.Result.TotalRecords,
		StorageGB: p.Result.TotalStorageGB,
		Cost:      p.Result.TotalCost,
		CostText:  pricing.FormatCurrency(p.Result.TotalCost, p.Settings.CurrencySymbol, p.Settings.RoundTo),
		Currency:  p.Settings.Currency,
	}
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Rows:      curr.Rows - prev.Rows,
		Records:   curr.Records - prev.Records,
		StorageGB: curr.StorageGB - prev.StorageGB,
		Cost:      curr.Cost - prev.Cost,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPassAt:      s.lastPassAt,
		IntervalSec:     int(s.cfg.Interval.Seconds()),
		ThrottleMs:      s.cfg.Throttle.Milliseconds(),
		PassCount:       s.passCount,
		WatchPaths:      s.cfg.WatchPaths,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

// latest returns the most recent successful pass.
func (s *Service) latest() (pipeline.Pass, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pass, s.hasPass
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}

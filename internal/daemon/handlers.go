package daemon

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/analytics"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/export"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/model"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/pipeline"
)

// RowsResponse is served at /v1/rows.
type RowsResponse struct {
	PassAt   time.Time         `json:"pass_at"`
	Headers  []string          `json:"headers"`
	Rows     []model.CostedRow `json:"rows"`
	Totals   Snapshot          `json:"totals"`
	Currency string            `json:"currency"`
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(chimw.Recoverer)

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = DefaultOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Cache-Control"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/rows", s.handleRows)
		r.Get("/analytics", s.handleAnalytics)
		r.Get("/export.{format}", s.handleExport)
		r.Get("/history", s.handleHistory)
		r.Get("/events", s.handleEvents)
		r.Get("/stream", s.handleStream)
	})
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", chimw.GetReqID(r.Context())),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Service) requirePass(w http.ResponseWriter) (pipeline.Pass, bool) {
	p, ok := s.latest()
	if !ok {
		msg := "no pass has completed yet"
		if st := s.snapshotStatus(); st.LastError != "" {
			msg = st.LastError
		}
		writeError(w, http.StatusServiceUnavailable, msg)
	}
	return p, ok
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

// handleRows serves rows sorted by record count, descending unless
// ?order=asc.
func (s *Service) handleRows(w http.ResponseWriter, r *http.Request) {
	p, ok := s.requirePass(w)
	if !ok {
		return
	}
	headers := p.Headers
	if len(headers) == 0 {
		headers = export.DefaultHeaders
	}
	writeJSON(w, http.StatusOK, RowsResponse{
		PassAt:   p.At,
		Headers:  headers,
		Rows:     pipeline.SortByRecords(p.Result.Rows, r.URL.Query().Get("order") == "asc"),
		Totals:   snapshotFromPass(p, p.At),
		Currency: p.Settings.Currency,
	})
}

func (s *Service) handleAnalytics(w http.ResponseWriter, _ *http.Request) {
	p, ok := s.requirePass(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, analytics.Summarize(p.Result, p.Settings.Limits))
}

func (s *Service) handleExport(w http.ResponseWriter, r *http.Request) {
	f, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	p, ok := s.requirePass(w)
	if !ok {
		return
	}
	if p.Result.Empty() {
		writeError(w, http.StatusNotFound, export.ErrNoRows.Error())
		return
	}

	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.FileName()))
	if err := export.Write(w, f, p.Headers, p.Result); err != nil {
		s.log.Error("export failed", zap.String("format", string(f)), zap.Error(err))
	}
}

func (s *Service) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	passes, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.log.Error("history query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, eris.Cause(err).Error())
		return
	}
	writeJSON(w, http.StatusOK, passes)
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	writeSSE(w, Event{
		Type:      "snapshot",
		Timestamp: time.Now(),
		Snapshot:  s.snapshotStatus().Summary,
	})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

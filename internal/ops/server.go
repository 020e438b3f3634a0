// Package ops serves the operational HTTP surface: health, current
// risk state and Prometheus metrics.
package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/marketforge/portengine/internal/metrics"
	"github.com/marketforge/portengine/internal/risk"
)

// Status is the engine state reported on /risk.
type Status struct {
	RunID    string      `json:"run_id"`
	Equity   float64     `json:"equity"`
	Report   risk.Report `json:"report"`
	Breaker  string      `json:"breaker"`
	Uptime   string      `json:"uptime"`
	CycleNum int         `json:"cycle"`
}

// StatusFunc supplies the current status; it must be safe to call from
// the serving goroutine.
type StatusFunc func() Status

// Server is the ops endpoint.
type Server struct {
	srv    *http.Server
	status StatusFunc
	start  time.Time
}

func NewServer(addr string, m *metrics.Metrics, status StatusFunc) *Server {
	s := &Server{status: status, start: time.Now()}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/risk", s.handleRisk).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.srv.Addr).Msg("ops server listening")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

func (s *Server) handleRisk(w http.ResponseWriter, _ *http.Request) {
	if s.status == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "status source not wired"})
		return
	}
	st := s.status()
	st.Uptime = time.Since(s.start).String()
	writeJSON(w, http.StatusOK, st)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("ops response encode failed")
	}
}

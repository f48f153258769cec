package debug

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 3 * time.Second

// Status is the JSON document served on /status.
type Status struct {
	Tick         int     `json:"tick"`
	Machine      string  `json:"machine"`
	State        string  `json:"state"`
	TargetEntity *int32  `json:"target_entity,omitempty"`
	Distance     float64 `json:"distance"`
	GoalID       string  `json:"goal_id,omitempty"`
	GoalKind     string  `json:"goal_kind,omitempty"`
	Dynamic      bool    `json:"dynamic"`
	PathLen      int     `json:"path_len"`
}

// StatusFunc must be safe to call from the HTTP goroutine.
type StatusFunc func() Status

func NewHandler(status StatusFunc, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		if status == nil {
			http.Error(w, "status unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status()); err != nil {
			slog.Error("Failed to encode status", "error", err)
		}
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

type Server struct {
	addr    string
	handler http.Handler
}

func NewServer(addr string, handler http.Handler) *Server {
	return &Server{addr: addr, handler: handler}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.handler == nil {
		return fmt.Errorf("debug server has no handler")
	}
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Debug server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("debug server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("debug server shutdown: %w", err)
		}
		return nil
	}
}

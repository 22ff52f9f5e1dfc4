package health

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/cbrbot/core/logger"
)

// Check reports the status of a dependency; nil means healthy.
type Check func(ctx context.Context) error

// Server exposes /healthz and /metrics.
type Server struct {
	httpServer *http.Server
	startedAt  time.Time
	checks     map[string]Check
}

type checkResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type healthResponse struct {
	Status        string                 `json:"status"`
	UptimeSeconds int64                  `json:"uptimeSeconds"`
	Checks        map[string]checkResult `json:"checks,omitempty"`
}

// NewServer builds a listener on addr. checks may be nil.
func NewServer(addr string, checks map[string]Check) *Server {
	s := &Server{startedAt: time.Now(), checks: checks}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.healthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the underlying mux, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves in the background until Shutdown.
func (s *Server) Start() {
	go func() {
		logger.HTTP.Info("listening",
			slog.String("event", "http.listen"),
			slog.String("listen", s.httpServer.Addr),
		)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.HTTP.Error("listener stopped",
				slog.String("event", "http.listen"),
				slog.String("err", err.Error()),
			)
		}
	}()
}

// Shutdown stops the listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res := healthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	}
	code := http.StatusOK
	if len(s.checks) > 0 {
		res.Checks = make(map[string]checkResult, len(s.checks))
		for name, check := range s.checks {
			if err := check(ctx); err != nil {
				res.Checks[name] = checkResult{Error: err.Error()}
				res.Status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			res.Checks[name] = checkResult{OK: true}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		logger.HTTP.Error("encode health response failed",
			slog.String("event", "http.health"),
			slog.String("err", err.Error()),
		)
	}
}

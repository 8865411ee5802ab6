package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	recheck "rostrum/contexts/appeals-desk/recheck-service"
	anomalyreview "rostrum/contexts/integrity-safety/anomaly-review-service"
	scoreentry "rostrum/contexts/judging-core/score-entry-service"
	_ "rostrum/internal/platform/httpserver/docs"
)

const shutdownGrace = 10 * time.Second

type Server struct {
	mux       *http.ServeMux
	server    *http.Server
	logger    *slog.Logger
	addr      string
	scoring   scoreentry.Module
	integrity anomalyreview.Module
	rechecks  recheck.Module
	metrics   *Metrics
}

func New(
	scoring scoreentry.Module,
	integrity anomalyreview.Module,
	rechecks recheck.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:       http.NewServeMux(),
		logger:    logger,
		addr:      addr,
		scoring:   scoring,
		integrity: integrity,
		rechecks:  rechecks,
		metrics:   NewMetrics(),
	}
	s.registerRoutes()
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.metrics.Instrument(s.mux),
	}
	return s
}

// Start serves until the context is cancelled, then drains in-flight
// requests within the shutdown grace period.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		s.logger.Info("http server shutting down",
			"event", "http_server_stopping",
			"module", "internal/platform/httpserver",
			"layer", "platform",
		)
		return s.server.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.Handle("GET /metrics", s.metrics.Handler())
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	s.mux.HandleFunc("POST /api/v1/events/{event_id}/participants/{participant_id}/scores", s.handleSubmitScore)
	s.mux.HandleFunc("GET /api/v1/events/{event_id}/participants/{participant_id}/consensus", s.handleConsensus)
	s.mux.HandleFunc("GET /api/v1/events/{event_id}/participants/{participant_id}/scores", s.handleActiveSheets)

	s.mux.HandleFunc("GET /api/v1/integrity/flags", s.handleListFlags)
	s.mux.HandleFunc("POST /api/v1/integrity/flags/{flag_id}/review", s.handleReviewFlag)

	s.mux.HandleFunc("POST /api/v1/rechecks", s.handleSubmitRecheck)
	s.mux.HandleFunc("GET /api/v1/rechecks/{request_id}", s.handleRecheckStatus)
	s.mux.HandleFunc("POST /api/v1/rechecks/{request_id}/decision", s.handleDecideRecheck)
	s.mux.HandleFunc("POST /api/v1/rechecks/{request_id}/payment", s.handleInitiatePayment)
	s.mux.HandleFunc("POST /api/v1/rechecks/payments/verify", s.handleVerifyPayment)
	s.mux.HandleFunc("POST /api/v1/rechecks/{request_id}/resolve", s.handleResolveRecheck)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

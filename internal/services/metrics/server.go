package metrics

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/louisbranch/splitlab/internal/platform/httpx"
	"github.com/louisbranch/splitlab/internal/platform/observability"
	"github.com/louisbranch/splitlab/internal/platform/timeouts"
	"github.com/louisbranch/splitlab/internal/services/metrics/storage"
	metricsqlite "github.com/louisbranch/splitlab/internal/services/metrics/storage/sqlite"
)

// Config defines startup inputs for the metrics service.
type Config struct {
	Port              int    `env:"PORT" envDefault:"5001"`
	DBPath            string `env:"DB_PATH" envDefault:"data/metrics.db"`
	MaxEventsResponse int    `env:"MAX_EVENTS_RESPONSE" envDefault:"200"`
}

// Server hosts the metrics HTTP surface and lifecycle.
type Server struct {
	httpAddr   string
	httpServer *http.Server
	store      storage.EventStore
}

// NewHandler composes the metrics routes with shared middleware.
func NewHandler(service *Service) http.Handler {
	mux := http.NewServeMux()
	newHandlers(service).register(mux)
	handler := httpx.Chain(mux,
		httpx.RecoverPanic(),
		httpx.RequestID("metrics"),
		httpx.CORS("GET,POST,OPTIONS"),
		observability.RequestLogger(log.Default()),
	)
	return otelhttp.NewHandler(handler, "metrics")
}

// NewServer opens storage and constructs the server.
func NewServer(ctx context.Context, cfg Config) (*Server, error) {
	if cfg.Port <= 0 {
		return nil, errors.New("port is required")
	}
	if cfg.MaxEventsResponse <= 0 {
		return nil, errors.New("max events response must be positive")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	store, err := metricsqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open metrics storage: %w", err)
	}

	httpAddr := fmt.Sprintf(":%d", cfg.Port)
	return &Server{
		httpAddr: httpAddr,
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           NewHandler(NewService(store, cfg.MaxEventsResponse)),
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		store: store,
	}, nil
}

// ListenAndServe serves HTTP traffic until context cancellation or server stop.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("metrics server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown metrics http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve metrics http: %w", err)
	}
}

// Close closes open server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.store != nil {
		_ = s.store.Close()
	}
}

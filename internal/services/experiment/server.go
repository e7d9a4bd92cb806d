package experiment

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
	"github.com/louisbranch/splitlab/internal/services/experiment/storage"
	expsqlite "github.com/louisbranch/splitlab/internal/services/experiment/storage/sqlite"
)

// Config defines startup inputs for the experiment service.
type Config struct {
	Port      int    `env:"PORT" envDefault:"5002"`
	DBPath    string `env:"DB_PATH" envDefault:"data/experiment.db"`
	FlagsFile string `env:"SPLITLAB_EXPERIMENT_FLAGS_FILE"`
}

// Server hosts the experiment HTTP surface and lifecycle.
type Server struct {
	httpAddr   string
	httpServer *http.Server
	store      storage.Store
}

// NewHandler composes the experiment routes with shared middleware.
func NewHandler(service *Service) http.Handler {
	mux := http.NewServeMux()
	newHandlers(service).register(mux)
	handler := httpx.Chain(mux,
		httpx.RecoverPanic(),
		httpx.RequestID("experiment"),
		httpx.CORS("GET,PUT,OPTIONS"),
		observability.RequestLogger(log.Default()),
	)
	return otelhttp.NewHandler(handler, "experiment")
}

// NewServer opens storage, seeds flag defaults, and constructs the server.
func NewServer(ctx context.Context, cfg Config) (*Server, error) {
	if cfg.Port <= 0 {
		return nil, errors.New("port is required")
	}

	store, err := expsqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open experiment storage: %w", err)
	}

	defaults, err := LoadDefaultFlags(cfg.FlagsFile)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("load flag defaults: %w", err)
	}
	if err := store.SeedFlags(ctx, defaults); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("seed flags: %w", err)
	}

	httpAddr := fmt.Sprintf(":%d", cfg.Port)
	return &Server{
		httpAddr: httpAddr,
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           NewHandler(NewService(store)),
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		store: store,
	}, nil
}

// ListenAndServe serves HTTP traffic until context cancellation or server stop.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("experiment server is nil")
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
			return fmt.Errorf("shutdown experiment http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve experiment http: %w", err)
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

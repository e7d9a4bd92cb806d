// Package adminui serves the static operator dashboard.
package adminui

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
	"github.com/louisbranch/splitlab/internal/services/adminui/static"
)

// Config defines startup inputs for the admin UI service.
type Config struct {
	Port int `env:"PORT" envDefault:"8081"`
}

// Server hosts the admin dashboard assets and lifecycle.
type Server struct {
	httpAddr   string
	httpServer *http.Server
}

// NewHandler composes the dashboard routes with shared middleware.
// Assets are served from the embedded filesystem; the file server
// resolves "/" to index.html.
func NewHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", handleHealth)
	mux.Handle("/", http.FileServer(http.FS(static.FS)))
	handler := httpx.Chain(mux,
		httpx.RecoverPanic(),
		httpx.RequestID("adminui"),
		observability.RequestLogger(log.Default()),
	)
	return otelhttp.NewHandler(handler, "adminui")
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		_ = httpx.WriteJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NewServer constructs the admin UI server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Port <= 0 {
		return nil, errors.New("port is required")
	}

	httpAddr := fmt.Sprintf(":%d", cfg.Port)
	return &Server{
		httpAddr: httpAddr,
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           NewHandler(),
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
	}, nil
}

// ListenAndServe serves HTTP traffic until context cancellation or server stop.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("adminui server is nil")
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
			return fmt.Errorf("shutdown adminui http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve adminui http: %w", err)
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
}

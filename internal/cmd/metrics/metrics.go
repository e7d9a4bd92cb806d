// Package metrics wires configuration and startup for the metrics service.
package metrics

import (
	"context"
	"flag"
	"fmt"

	platformcmd "github.com/louisbranch/splitlab/internal/platform/cmd"
	"github.com/louisbranch/splitlab/internal/services/metrics"
)

// Config holds the metrics command configuration.
type Config struct {
	Port              int
	DBPath            string
	MaxEventsResponse int
}

// ParseConfig reads environment defaults and applies flag overrides.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var envCfg metrics.Config
	if err := platformcmd.ParseConfig(&envCfg); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:              envCfg.Port,
		DBPath:            envCfg.DBPath,
		MaxEventsResponse: envCfg.MaxEventsResponse,
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP listen port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "SQLite database path")
	fs.IntVar(&cfg.MaxEventsResponse, "max-events-response", cfg.MaxEventsResponse, "cap on recent events per stats response")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Run starts the metrics ingestion server.
func Run(ctx context.Context, cfg Config) error {
	return platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceMetrics, func(ctx context.Context) error {
		server, err := metrics.NewServer(ctx, metrics.Config{
			Port:              cfg.Port,
			DBPath:            cfg.DBPath,
			MaxEventsResponse: cfg.MaxEventsResponse,
		})
		if err != nil {
			return fmt.Errorf("init metrics server: %w", err)
		}
		defer server.Close()

		if err := server.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("serve metrics: %w", err)
		}
		return nil
	})
}

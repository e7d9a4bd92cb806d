// Package adminui wires configuration and startup for the admin dashboard.
package adminui

import (
	"context"
	"flag"
	"fmt"

	platformcmd "github.com/louisbranch/splitlab/internal/platform/cmd"
	"github.com/louisbranch/splitlab/internal/services/adminui"
)

// Config holds the admin UI command configuration.
type Config struct {
	Port int
}

// ParseConfig reads environment defaults and applies flag overrides.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var envCfg adminui.Config
	if err := platformcmd.ParseConfig(&envCfg); err != nil {
		return Config{}, err
	}

	cfg := Config{Port: envCfg.Port}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP listen port")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Run starts the admin dashboard server.
func Run(ctx context.Context, cfg Config) error {
	return platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceAdminUI, func(ctx context.Context) error {
		server, err := adminui.NewServer(adminui.Config{Port: cfg.Port})
		if err != nil {
			return fmt.Errorf("init adminui server: %w", err)
		}
		defer server.Close()

		if err := server.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("serve adminui: %w", err)
		}
		return nil
	})
}

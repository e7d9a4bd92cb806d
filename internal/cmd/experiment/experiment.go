// Package experiment wires configuration and startup for the experiment service.
package experiment

import (
	"context"
	"flag"
	"fmt"

	platformcmd "github.com/louisbranch/splitlab/internal/platform/cmd"
	"github.com/louisbranch/splitlab/internal/services/experiment"
)

// Config holds the experiment command configuration.
type Config struct {
	Port      int
	DBPath    string
	FlagsFile string
}

// ParseConfig reads environment defaults and applies flag overrides.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var envCfg experiment.Config
	if err := platformcmd.ParseConfig(&envCfg); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:      envCfg.Port,
		DBPath:    envCfg.DBPath,
		FlagsFile: envCfg.FlagsFile,
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP listen port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "SQLite database path")
	fs.StringVar(&cfg.FlagsFile, "flags-file", cfg.FlagsFile, "TOML file overriding flag defaults")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Run starts the experiment assignment server.
func Run(ctx context.Context, cfg Config) error {
	return platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceExperiment, func(ctx context.Context) error {
		server, err := experiment.NewServer(ctx, experiment.Config{
			Port:      cfg.Port,
			DBPath:    cfg.DBPath,
			FlagsFile: cfg.FlagsFile,
		})
		if err != nil {
			return fmt.Errorf("init experiment server: %w", err)
		}
		defer server.Close()

		if err := server.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("serve experiment: %w", err)
		}
		return nil
	})
}

// Package main starts the admin dashboard service.
//
// This process serves the embedded operator UI that reads from the
// experiment and metrics services.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	adminuicmd "github.com/louisbranch/splitlab/internal/cmd/adminui"
	"github.com/louisbranch/splitlab/internal/platform/config"
)

func main() {
	cfg, err := adminuicmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[ADMINUI] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := adminuicmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}

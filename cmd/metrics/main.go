// Package main starts the metrics ingestion service.
//
// This process owns the append-only event log and the aggregation surface
// the admin dashboard reads from.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	metricscmd "github.com/louisbranch/splitlab/internal/cmd/metrics"
	"github.com/louisbranch/splitlab/internal/platform/config"
)

func main() {
	cfg, err := metricscmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[METRICS] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := metricscmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}

// Package main starts the experiment assignment service.
//
// This process owns deterministic variant assignment and the experiment
// flag configuration surface.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	experimentcmd "github.com/louisbranch/splitlab/internal/cmd/experiment"
	"github.com/louisbranch/splitlab/internal/platform/config"
)

func main() {
	cfg, err := experimentcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[EXPERIMENT] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := experimentcmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}

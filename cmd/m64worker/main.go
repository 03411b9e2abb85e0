// Package main provides the m64worker command. It serves a simulation
// session over stdin and stdout, one JSON request and one JSON result per
// line.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/sarchlab/m64sim/session"
	"github.com/sarchlab/m64sim/timing/core"
	"github.com/sarchlab/m64sim/worker"
)

var (
	configPath = flag.String("config", "", "Path to machine configuration JSON file")
	logFormat  = flag.String("log-format", "json", "Log format: text or json")
	verbose    = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if *verbose {
		opts.Level = slog.LevelDebug
	}
	var logger *slog.Logger
	if *logFormat == "text" {
		logger = slog.New(slog.NewTextHandler(os.Stderr, opts))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	slog.SetDefault(logger)

	config := core.DefaultConfig()
	if *configPath != "" {
		var err error
		config, err = core.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	machine, err := core.NewMachine(config, core.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating machine: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	w := worker.New(session.FromMachine(machine, session.WithLogger(logger)),
		worker.WithLogger(logger))

	err = w.Serve(ctx, os.Stdin, os.Stdout)
	interrupted := ctx.Err() != nil
	stop()

	if err != nil && !interrupted {
		logger.Error("worker stopped", "error", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/gamespin/internal/probe"
	"github.com/okian/gamespin/pkg/logger"
)

const defaultProbeTimeout = 2 * time.Minute

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the gate")
		identity   = flag.String("user", "", "Identity to probe (default: a fresh random identity)")
		requests   = flag.Int("requests", probe.DefaultRequests, "Concurrent authorization attempts")
		workers    = flag.Int("workers", probe.DefaultWorkers, "Goroutines issuing requests")
		checks     = flag.Int("checks", probe.DefaultStatusChecks, "Status checks afterwards")
		timeout    = flag.Duration("timeout", probe.DefaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Write the JSON report to this file")
		logFile    = flag.String("log", "", "Log file (default: probe_log_TIMESTAMP.log)")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		probe.ShowHelp()
		return
	}

	closer, err := probe.SetupLogging(*logFile)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer closer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), defaultProbeTimeout)
	defer cancel()

	cfg := &probe.Config{
		BaseURL:      *baseURL,
		Identity:     *identity,
		Requests:     *requests,
		Workers:      *workers,
		StatusChecks: *checks,
		Timeout:      *timeout,
		OutputFile:   *outputFile,
	}

	report, err := probe.Run(ctx, cfg)
	if err != nil {
		logger.Get().Error(ctx, "probe failed", logger.Error(err))
		closer.Close()
		os.Exit(1)
	}
	if err := report.Verify(*identity == ""); err != nil {
		logger.Get().Error(ctx, "gate failed verification", logger.Error(err))
		closer.Close()
		os.Exit(1)
	}
	logger.Get().Info(ctx, "gate passed verification", logger.String("identity", report.Identity))
}

package probe

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/gamespin/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging logs to stdout and to logFile. An empty logFile gets a
// timestamped name. The returned closer closes the file.
func SetupLogging(logFile string) (io.Closer, error) {
	if logFile == "" {
		logFile = "probe_log_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.Init(logger.WithWriter(io.MultiWriter(os.Stdout, file))); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return file, nil
}

// ShowHelp prints usage information for the probe tool.
func ShowHelp() {
	os.Stdout.WriteString(`GameSpin Gate Probe
===================

Fires many simultaneous spin authorizations for one identity and checks
that the gate granted at most one, that every denial carried a wait, and
that read-only status checks agree with each other.

Usage:
  spin-probe [options]

Options:
  -url string
        Base URL of the gate (default "http://localhost:9080")
  -user string
        Identity to probe (default: a fresh random identity)
  -requests int
        Concurrent authorization attempts (default 64)
  -workers int
        Goroutines issuing requests (default 16)
  -checks int
        Status checks afterwards (default 10)
  -timeout duration
        HTTP request timeout (default 5s)
  -output string
        Write the JSON report to this file
  -log string
        Log file (default: probe_log_TIMESTAMP.log)
  -help
        Show this help message

Exit status is 1 when the gate failed verification.
`)
}

package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/gamespin/internal/adapters/http/gateclient"
	"github.com/okian/gamespin/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	reportPermission    = 0o600
)

// Default probe settings.
const (
	DefaultRequests     = 64
	DefaultWorkers      = 16
	DefaultStatusChecks = 10
	DefaultTimeout      = 5 * time.Second
)

// Run fires cfg.Requests concurrent authorizations for one identity, then
// cfg.StatusChecks status reads, and returns the tallies. The returned
// error is non-nil only when the probe could not run; use Verify to judge
// the gate.
func Run(ctx context.Context, cfg *Config) (Report, error) {
	applyDefaults(cfg)
	log := logger.Get().Named("probe")

	gate, err := gateclient.New(cfg.BaseURL, gateclient.WithTimeout(cfg.Timeout))
	if err != nil {
		return Report{}, err
	}

	report := Report{Identity: cfg.Identity, Requests: cfg.Requests, StartTime: time.Now()}
	log.Info(ctx, "starting gate probe",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("identity", cfg.Identity),
		logger.Int("requests", cfg.Requests),
		logger.Int("workers", cfg.Workers),
	)

	authorizeAll(ctx, gate, cfg, &report)
	if err := checkStatus(ctx, gate, cfg, &report); err != nil {
		return report, fmt.Errorf("status checks: %w", err)
	}
	report.Duration = time.Since(report.StartTime)

	log.Info(ctx, "probe finished",
		logger.Int("granted", report.Granted),
		logger.Int("denied", report.Denied),
		logger.Int("unavailable", report.Unavailable),
		logger.Int("failed", report.Failed),
		logger.Int("statusFlips", report.StatusFlips),
		logger.Duration("duration", report.Duration),
	)

	if cfg.OutputFile != "" {
		if err := saveReport(cfg.OutputFile, report); err != nil {
			log.Warn(ctx, "failed to save report", logger.Error(err))
		}
	}
	return report, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Identity == "" {
		cfg.Identity = "probe-" + uuid.NewString()[:8]
	}
	if cfg.Requests <= 0 {
		cfg.Requests = DefaultRequests
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.StatusChecks <= 0 {
		cfg.StatusChecks = DefaultStatusChecks
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
}

// authorizeAll runs the requests through a worker pool released at once.
func authorizeAll(ctx context.Context, gate *gateclient.Client, cfg *Config, report *Report) {
	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		start = make(chan struct{})
		jobs  = make(chan struct{}, cfg.Requests)
	)
	for i := 0; i < cfg.Requests; i++ {
		jobs <- struct{}{}
	}
	close(jobs)

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for range jobs {
				if ctx.Err() != nil {
					return
				}
				grant, err := gate.Authorize(ctx, cfg.Identity)

				mu.Lock()
				tally(report, grant, err)
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()
}

func tally(report *Report, grant gateclient.Grant, err error) {
	switch {
	case errors.Is(err, gateclient.ErrUnavailable):
		report.Unavailable++
	case err != nil:
		report.Failed++
	case grant.Outcome == gateclient.OutcomeGranted:
		report.Granted++
		report.SpinIDs = append(report.SpinIDs, grant.SpinID)
	default:
		report.Denied++
		if grant.Remaining <= 0 {
			report.ZeroWait++
		}
	}
}

// checkStatus reads status repeatedly. canSpin must not change and the
// remaining wait must never grow.
func checkStatus(ctx context.Context, gate *gateclient.Client, cfg *Config, report *Report) error {
	var prev *gateclient.Status
	for i := 0; i < cfg.StatusChecks; i++ {
		st, err := gate.Status(ctx, cfg.Identity)
		if err != nil {
			return err
		}
		report.StatusChecks++
		if prev != nil && (st.CanSpin != prev.CanSpin || st.Remaining > prev.Remaining) {
			report.StatusFlips++
		}
		prev = &st
	}
	return nil
}

func saveReport(filename string, report Report) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, reportPermission)
}

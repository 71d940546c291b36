// Package probe hammers the spin gate with duplicate authorization
// requests for one identity and checks that it granted at most once.
package probe

import "time"

// Config holds configuration for a probe run.
type Config struct {
	BaseURL      string        // Base URL of the gate
	Identity     string        // Identity to authorize; empty picks a fresh one
	Requests     int           // Concurrent authorization attempts
	Workers      int           // Goroutines issuing them
	StatusChecks int           // Read-only checks made afterwards
	Timeout      time.Duration // HTTP request timeout
	OutputFile   string        // Optional JSON report destination
}

// Report holds the outcome counts of a probe run.
type Report struct {
	Identity     string        `json:"identity"`
	Requests     int           `json:"requests"`
	Granted      int           `json:"granted"`
	Denied       int           `json:"denied"`
	Unavailable  int           `json:"unavailable"`
	Failed       int           `json:"failed"`
	ZeroWait     int           `json:"zeroWaitDenials"`
	SpinIDs      []string      `json:"spinIds"`
	StatusChecks int           `json:"statusChecks"`
	StatusFlips  int           `json:"statusFlips"`
	StartTime    time.Time     `json:"startTime"`
	Duration     time.Duration `json:"duration"`
}

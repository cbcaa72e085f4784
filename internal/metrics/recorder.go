// Package metrics provides observability hooks for provisioning runs.
// Components receive a Recorder through injection; the default NoopRecorder
// keeps metrics optional with zero overhead.
package metrics

import "time"

// Recorder defines observability hooks for sync and install operations.
// Implementations may forward to Prometheus, OpenTelemetry, etc.
type Recorder interface {
	ObserveSyncDuration(repo string, d time.Duration, success bool)
	ObserveInstallDuration(strategy string, d time.Duration, success bool)
	IncSyncResult(success bool)
	IncInstallResult(strategy string, success bool)
	IncRunOutcome(outcome string) // outcome: success|failed
}

// NoopRecorder is a Recorder that does nothing (default when metrics are
// not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveSyncDuration(string, time.Duration, bool)    {}
func (NoopRecorder) ObserveInstallDuration(string, time.Duration, bool) {}
func (NoopRecorder) IncSyncResult(bool)                                 {}
func (NoopRecorder) IncInstallResult(string, bool)                      {}
func (NoopRecorder) IncRunOutcome(string)                               {}

// Package monitoring - metrics.go provides simple counters.
//
// DESIGN: Lightweight in-memory counters for the gateway:
//   - requests/successes/failures: outcome of each logical call
//   - refreshes:                   forced token refreshes after a 401
//   - replays:                     requests re-sent after a refresh
package monitoring

import (
	"fmt"
	"sync/atomic"
	"time"
)

// MetricsCollector collects gateway counters.
type MetricsCollector struct {
	startedAt time.Time

	requests  atomic.Int64
	successes atomic.Int64
	failures  atomic.Int64
	refreshes atomic.Int64
	replays   atomic.Int64
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		startedAt: time.Now(),
	}
}

// RecordRequest records the outcome of a logical request.
func (mc *MetricsCollector) RecordRequest(success bool) {
	mc.requests.Add(1)
	if success {
		mc.successes.Add(1)
	} else {
		mc.failures.Add(1)
	}
}

// RecordRefresh records a forced token refresh.
func (mc *MetricsCollector) RecordRefresh() { mc.refreshes.Add(1) }

// RecordReplay records a replayed request.
func (mc *MetricsCollector) RecordReplay() { mc.replays.Add(1) }

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Uptime    time.Duration
	Requests  int64
	Successes int64
	Failures  int64
	Refreshes int64
	Replays   int64
}

// Snapshot returns the current counters.
func (mc *MetricsCollector) Snapshot() Snapshot {
	return Snapshot{
		Uptime:    time.Since(mc.startedAt),
		Requests:  mc.requests.Load(),
		Successes: mc.successes.Load(),
		Failures:  mc.failures.Load(),
		Refreshes: mc.refreshes.Load(),
		Replays:   mc.replays.Load(),
	}
}

func (s Snapshot) String() string {
	return fmt.Sprintf("requests=%d ok=%d failed=%d refreshes=%d replays=%d uptime=%s",
		s.Requests, s.Successes, s.Failures, s.Refreshes, s.Replays, s.Uptime.Round(time.Millisecond))
}

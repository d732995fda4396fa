package app

import (
	"sync/atomic"
	"time"
)

// Metrics tracks application performance metrics.
type Metrics struct {
	// Extension point dispatch timing
	dispatchCount   atomic.Uint64
	dispatchTotalNs atomic.Int64
	dispatchMinNs   atomic.Int64
	dispatchMaxNs   atomic.Int64
	lastDispatchNs  atomic.Int64

	// Plugin accounting
	pluginsLoaded atomic.Uint64
	pluginErrors  atomic.Uint64

	// Start time for uptime calculation
	startTime time.Time
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),
	}
	// Initialize min to max int64 so the first dispatch will be smaller
	m.dispatchMinNs.Store(1<<63 - 1)
	return m
}

// RecordDispatch records one extension point dispatch across the
// active plugins.
func (m *Metrics) RecordDispatch(duration time.Duration) {
	ns := duration.Nanoseconds()

	m.dispatchCount.Add(1)
	m.dispatchTotalNs.Add(ns)
	m.lastDispatchNs.Store(ns)

	// Update min (atomic compare-and-swap loop)
	for {
		old := m.dispatchMinNs.Load()
		if ns >= old {
			break
		}
		if m.dispatchMinNs.CompareAndSwap(old, ns) {
			break
		}
	}

	// Update max (atomic compare-and-swap loop)
	for {
		old := m.dispatchMaxNs.Load()
		if ns <= old {
			break
		}
		if m.dispatchMaxNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordPluginLoaded records a successful plugin load.
func (m *Metrics) RecordPluginLoaded() {
	m.pluginsLoaded.Add(1)
}

// RecordPluginError records a plugin failure.
func (m *Metrics) RecordPluginError() {
	m.pluginErrors.Add(1)
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	dispatchCount := m.dispatchCount.Load()

	var avgDispatchNs int64
	if dispatchCount > 0 {
		avgDispatchNs = m.dispatchTotalNs.Load() / int64(dispatchCount)
	}

	minDispatchNs := m.dispatchMinNs.Load()
	if minDispatchNs == 1<<63-1 {
		minDispatchNs = 0
	}

	return MetricsSnapshot{
		Uptime:         time.Since(m.startTime),
		DispatchCount:  dispatchCount,
		AvgDispatchNs:  avgDispatchNs,
		MinDispatchNs:  minDispatchNs,
		MaxDispatchNs:  m.dispatchMaxNs.Load(),
		LastDispatchNs: m.lastDispatchNs.Load(),
		PluginsLoaded:  m.pluginsLoaded.Load(),
		PluginErrors:   m.pluginErrors.Load(),
	}
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.dispatchCount.Store(0)
	m.dispatchTotalNs.Store(0)
	m.dispatchMinNs.Store(1<<63 - 1)
	m.dispatchMaxNs.Store(0)
	m.lastDispatchNs.Store(0)
	m.pluginsLoaded.Store(0)
	m.pluginErrors.Store(0)
	m.startTime = time.Now()
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	Uptime         time.Duration
	DispatchCount  uint64
	AvgDispatchNs  int64
	MinDispatchNs  int64
	MaxDispatchNs  int64
	LastDispatchNs int64
	PluginsLoaded  uint64
	PluginErrors   uint64
}

// AvgDispatchMs returns the average dispatch time in milliseconds.
func (s MetricsSnapshot) AvgDispatchMs() float64 {
	return float64(s.AvgDispatchNs) / 1e6
}

// Timer provides a simple way to measure elapsed time.
type Timer struct {
	start time.Time
}

// StartTimer creates a new timer.
func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the elapsed time since the timer started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// ElapsedMs returns the elapsed time in milliseconds.
func (t *Timer) ElapsedMs() float64 {
	return float64(t.Elapsed().Nanoseconds()) / 1e6
}

// Stop returns the elapsed time and resets the timer.
func (t *Timer) Stop() time.Duration {
	elapsed := t.Elapsed()
	t.start = time.Now()
	return elapsed
}

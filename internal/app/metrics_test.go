package app

import (
	"testing"
	"time"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()
	if m == nil {
		t.Fatal("NewMetrics() returned nil")
	}

	snapshot := m.Snapshot()
	if snapshot.DispatchCount != 0 {
		t.Errorf("expected 0 dispatch count, got %d", snapshot.DispatchCount)
	}
	if snapshot.MinDispatchNs != 0 {
		t.Errorf("expected 0 min dispatch time (sentinel handled), got %d", snapshot.MinDispatchNs)
	}
}

func TestMetrics_RecordDispatch(t *testing.T) {
	m := NewMetrics()

	m.RecordDispatch(10 * time.Millisecond)
	m.RecordDispatch(20 * time.Millisecond)
	m.RecordDispatch(5 * time.Millisecond)

	snapshot := m.Snapshot()
	if snapshot.DispatchCount != 3 {
		t.Errorf("expected 3 dispatches, got %d", snapshot.DispatchCount)
	}
	if snapshot.MinDispatchNs != int64(5*time.Millisecond) {
		t.Errorf("expected min 5ms, got %d ns", snapshot.MinDispatchNs)
	}
	if snapshot.MaxDispatchNs != int64(20*time.Millisecond) {
		t.Errorf("expected max 20ms, got %d ns", snapshot.MaxDispatchNs)
	}
	if snapshot.LastDispatchNs != int64(5*time.Millisecond) {
		t.Errorf("expected last 5ms, got %d ns", snapshot.LastDispatchNs)
	}
}

func TestMetrics_RecordPluginLoaded(t *testing.T) {
	m := NewMetrics()

	m.RecordPluginLoaded()
	m.RecordPluginLoaded()

	snapshot := m.Snapshot()
	if snapshot.PluginsLoaded != 2 {
		t.Errorf("expected 2 plugins loaded, got %d", snapshot.PluginsLoaded)
	}
}

func TestMetrics_RecordPluginError(t *testing.T) {
	m := NewMetrics()

	m.RecordPluginError()
	m.RecordPluginError()
	m.RecordPluginError()

	snapshot := m.Snapshot()
	if snapshot.PluginErrors != 3 {
		t.Errorf("expected 3 plugin errors, got %d", snapshot.PluginErrors)
	}
}

func TestMetrics_Snapshot_Uptime(t *testing.T) {
	m := NewMetrics()

	time.Sleep(10 * time.Millisecond)

	snapshot := m.Snapshot()
	if snapshot.Uptime < 10*time.Millisecond {
		t.Errorf("expected uptime >= 10ms, got %v", snapshot.Uptime)
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := NewMetrics()

	m.RecordDispatch(10 * time.Millisecond)
	m.RecordPluginLoaded()
	m.RecordPluginError()

	m.Reset()

	snapshot := m.Snapshot()
	if snapshot.DispatchCount != 0 {
		t.Errorf("expected 0 dispatches after reset, got %d", snapshot.DispatchCount)
	}
	if snapshot.PluginsLoaded != 0 {
		t.Errorf("expected 0 plugins loaded after reset, got %d", snapshot.PluginsLoaded)
	}
	if snapshot.PluginErrors != 0 {
		t.Errorf("expected 0 plugin errors after reset, got %d", snapshot.PluginErrors)
	}
	if snapshot.MinDispatchNs != 0 {
		t.Errorf("expected 0 min dispatch time after reset, got %d", snapshot.MinDispatchNs)
	}
}

func TestMetricsSnapshot_AvgDispatchMs(t *testing.T) {
	tests := []struct {
		avgDispatchNs int64
		expectedMs    float64
	}{
		{0, 0},            // Zero protection
		{1000000, 1.0},    // 1ms
		{16666666, 16.67}, // ~16.67ms
	}

	for _, tt := range tests {
		snapshot := MetricsSnapshot{AvgDispatchNs: tt.avgDispatchNs}
		ms := snapshot.AvgDispatchMs()
		// Allow small floating point variance
		diff := ms - tt.expectedMs
		if diff < -0.01 || diff > 0.01 {
			t.Errorf("AvgDispatchMs() for %d ns = %f, expected ~%f", tt.avgDispatchNs, ms, tt.expectedMs)
		}
	}
}

func TestTimer(t *testing.T) {
	timer := StartTimer()
	if timer == nil {
		t.Fatal("StartTimer() returned nil")
	}

	time.Sleep(10 * time.Millisecond)

	elapsed := timer.Elapsed()
	if elapsed < 10*time.Millisecond {
		t.Errorf("Elapsed() = %v, expected >= 10ms", elapsed)
	}
}

func TestTimer_ElapsedMs(t *testing.T) {
	timer := StartTimer()

	time.Sleep(10 * time.Millisecond)

	ms := timer.ElapsedMs()
	if ms < 10.0 {
		t.Errorf("ElapsedMs() = %f, expected >= 10.0", ms)
	}
}

func TestTimer_Stop(t *testing.T) {
	timer := StartTimer()

	time.Sleep(10 * time.Millisecond)

	elapsed := timer.Stop()
	if elapsed < 10*time.Millisecond {
		t.Errorf("Stop() returned %v, expected >= 10ms", elapsed)
	}

	// After stop, timer should be reset
	time.Sleep(5 * time.Millisecond)
	elapsed2 := timer.Elapsed()
	if elapsed2 > 10*time.Millisecond {
		t.Errorf("expected timer to be reset after Stop(), got %v", elapsed2)
	}
}

func BenchmarkMetrics_RecordDispatch(b *testing.B) {
	m := NewMetrics()
	duration := 16 * time.Millisecond

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.RecordDispatch(duration)
	}
}

func BenchmarkMetrics_Snapshot(b *testing.B) {
	m := NewMetrics()
	// Pre-populate with some data
	for i := 0; i < 1000; i++ {
		m.RecordDispatch(16 * time.Millisecond)
		m.RecordPluginLoaded()
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m.Snapshot()
	}
}

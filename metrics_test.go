package tokenkeep

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricRotateSuccess)

	if got := m.Value(MetricRotateSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricRotateSuccess)
	m.Inc(MetricRotateSuccess)
	m.Inc(MetricRotateSuccess)

	if got := m.Value(MetricRotateSuccess); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestMetricsAddCounts(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Add(MetricRecordsRevoked, 5)
	m.Add(MetricRecordsRevoked, 0)

	if got := m.Value(MetricRecordsRevoked); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricRotateSuccess)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricRotateSuccess); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		700 * time.Millisecond,
	}

	for _, d := range observations {
		m.Observe(MetricRotateLatency, d)
	}

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricRotateLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}

	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
}

func TestMetricsHistogramDisabledByDefault(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Observe(MetricRotateLatency, time.Millisecond)

	snap := m.Snapshot()
	if len(snap.Histograms) != 0 {
		t.Fatalf("expected no histograms without opt-in, got %d", len(snap.Histograms))
	}
}

func TestMetricsSnapshotConsistency(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	m.Inc(MetricRotateSuccess)
	m.Inc(MetricReuseDetected)
	m.Inc(MetricReuseDetected)
	m.Observe(MetricRotateLatency, 2*time.Millisecond)

	snap := m.Snapshot()

	if snap.Counters[MetricRotateSuccess] != 1 {
		t.Fatalf("expected MetricRotateSuccess=1 got %d", snap.Counters[MetricRotateSuccess])
	}
	if snap.Counters[MetricReuseDetected] != 2 {
		t.Fatalf("expected MetricReuseDetected=2 got %d", snap.Counters[MetricReuseDetected])
	}
	if len(snap.Histograms[MetricRotateLatency]) != 8 {
		t.Fatalf("expected histogram length 8")
	}
	if snap.Histograms[MetricRotateLatency][0] != 1 {
		t.Fatalf("expected first histogram bucket=1 got %d", snap.Histograms[MetricRotateLatency][0])
	}
}

func TestEngineRotateObservesLatency(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()
	defer rdb.Close()

	engine, err := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	ctx := context.Background()
	refresh, _, err := engine.IssueRefresh(ctx, "user-1", "acme", "")
	if err != nil {
		t.Fatalf("IssueRefresh failed: %v", err)
	}
	if _, _, err := engine.Rotate(ctx, refresh); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	snap := engine.MetricsSnapshot()
	buckets := snap.Histograms[MetricRotateLatency]
	var total uint64
	for _, v := range buckets {
		total += v
	}
	if total != 1 {
		t.Fatalf("expected one latency observation, got %d", total)
	}
}

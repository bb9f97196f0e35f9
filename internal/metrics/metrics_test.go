package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestDisabledMetricsAreNoOps(t *testing.T) {
	m := New(Config{})
	m.Inc(MetricIssueSuccess)
	m.Observe(MetricValidateLatency, time.Millisecond)

	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestCountersAreConcurrentSafe(t *testing.T) {
	m := New(Config{Enabled: true})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Inc(MetricValidateSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricValidateSuccess); got != 16000 {
		t.Fatalf("expected 16000, got %d", got)
	}
	if got := m.Snapshot().Counters[MetricValidateSuccess]; got != 16000 {
		t.Fatalf("snapshot mismatch: %d", got)
	}
}

func TestLatencyHistogramBuckets(t *testing.T) {
	m := New(Config{Enabled: true, EnableLatency: true})
	m.Observe(MetricValidateLatency, 2*time.Millisecond)
	m.Observe(MetricValidateLatency, 40*time.Millisecond)
	m.Observe(MetricValidateLatency, 2*time.Second)
	m.Observe(MetricIssueSuccess, time.Millisecond)

	buckets := m.Snapshot().Histograms[MetricValidateLatency]
	want := []uint64{1, 0, 0, 1, 0, 0, 0, 1}
	for i := range want {
		if buckets[i] != want[i] {
			t.Fatalf("bucket %d: expected %d, got %d (%v)", i, want[i], buckets[i], buckets)
		}
	}
}

func TestOutOfRangeIDIgnored(t *testing.T) {
	m := New(Config{Enabled: true})
	m.Inc(MetricIDCount + 3)
	if got := m.Value(MetricIDCount + 3); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

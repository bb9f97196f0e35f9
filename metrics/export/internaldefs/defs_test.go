package internaldefs

import (
	"strings"
	"testing"

	"github.com/MrEthical07/authcore"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	seen := make(map[authcore.MetricID]bool, len(CounterDefs))
	names := make(map[string]bool, len(CounterDefs))
	for _, def := range CounterDefs {
		if seen[def.ID] {
			t.Fatalf("duplicate counter id %d", def.ID)
		}
		if names[def.Name] {
			t.Fatalf("duplicate counter name %s", def.Name)
		}
		if !strings.HasPrefix(def.Name, "authcore_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("counter name %s does not follow naming convention", def.Name)
		}
		seen[def.ID] = true
		names[def.Name] = true
	}

	snapshot := authcore.NewMetrics(authcore.MetricsConfig{Enabled: true}).Snapshot()
	for id := range snapshot.Counters {
		if !seen[id] {
			t.Fatalf("counter %d has no export definition", id)
		}
	}
}

func TestBucketHelpers(t *testing.T) {
	if len(HistogramUpperBounds)+1 != bucketCount || len(HistogramBoundSuffix) != bucketCount {
		t.Fatal("bucket bounds and suffixes must match the engine bucket count")
	}

	normalized := NormalizeBuckets([]uint64{1, 2, 3})
	if normalized != [bucketCount]uint64{1, 2, 3} {
		t.Fatalf("unexpected normalized buckets %v", normalized)
	}
	cumulative := CumulativeBuckets([bucketCount]uint64{1, 1, 1, 1, 1, 1, 1, 1})
	if cumulative[bucketCount-1] != 8 || cumulative[0] != 1 {
		t.Fatalf("unexpected cumulative buckets %v", cumulative)
	}
}

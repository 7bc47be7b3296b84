package monitoring

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsCollector(t *testing.T) {
	mc := NewMetricsCollector()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome := OutcomeOK
			if i%5 == 0 {
				outcome = "missing_feature"
			}
			mc.RecordPrediction(outcome, time.Duration(i+1)*time.Millisecond)
			mc.RecordCache(i%2 == 0)
		}(i)
	}
	wg.Wait()

	s := mc.Snapshot()
	if s.Predictions != 10 || s.Outcomes[OutcomeOK] != 8 || s.Outcomes["missing_feature"] != 2 {
		t.Fatalf("unexpected outcomes: %+v", s)
	}
	if s.CacheHits != 5 || s.CacheMisses != 5 {
		t.Fatalf("unexpected cache counts: %d/%d", s.CacheHits, s.CacheMisses)
	}
	if s.MaxLatencyMs != 10 || s.AvgLatencyMs != 5.5 {
		t.Fatalf("unexpected latency: avg %f max %f", s.AvgLatencyMs, s.MaxLatencyMs)
	}
	if s.NumGoroutines == 0 || s.HeapAlloc == 0 {
		t.Fatalf("runtime gauges not filled: %+v", s)
	}

	// Snapshots are copies.
	s.Outcomes[OutcomeOK] = 0
	if mc.Snapshot().Outcomes[OutcomeOK] != 8 {
		t.Fatal("snapshot shares state with collector")
	}
}

func TestSnapshotEmpty(t *testing.T) {
	s := NewMetricsCollector().Snapshot()
	if s.Predictions != 0 || s.AvgLatencyMs != 0 {
		t.Fatalf("unexpected empty snapshot: %+v", s)
	}
}

package monitoring

import (
	"runtime"
	"sync"
	"time"
)

const OutcomeOK = "ok"

// MetricsCollector counts prediction outcomes and cache use for the serving
// process. It is safe for concurrent use.
type MetricsCollector struct {
	mu          sync.RWMutex
	outcomes    map[string]int64
	cacheHits   int64
	cacheMisses int64
	latency     time.Duration
	maxLatency  time.Duration

	startTime time.Time
}

type Snapshot struct {
	Uptime        string           `json:"uptime"`
	Predictions   int64            `json:"predictions"`
	Outcomes      map[string]int64 `json:"outcomes"`
	CacheHits     int64            `json:"cache_hits"`
	CacheMisses   int64            `json:"cache_misses"`
	AvgLatencyMs  float64          `json:"avg_latency_ms"`
	MaxLatencyMs  float64          `json:"max_latency_ms"`
	HeapAlloc     uint64           `json:"memory_heap_alloc"`
	NumGC         uint32           `json:"memory_gc_count"`
	NumGoroutines int              `json:"goroutines"`
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		outcomes:  make(map[string]int64),
		startTime: time.Now(),
	}
}

// RecordPrediction counts one answered /predict request. outcome is
// OutcomeOK or an error code.
func (mc *MetricsCollector) RecordPrediction(outcome string, elapsed time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.outcomes[outcome]++
	mc.latency += elapsed
	mc.maxLatency = max(mc.maxLatency, elapsed)
}

func (mc *MetricsCollector) RecordCache(hit bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if hit {
		mc.cacheHits++
	} else {
		mc.cacheMisses++
	}
}

func (mc *MetricsCollector) Snapshot() Snapshot {
	mc.mu.RLock()
	outcomes := make(map[string]int64, len(mc.outcomes))
	var total int64
	for k, v := range mc.outcomes {
		outcomes[k] = v
		total += v
	}
	s := Snapshot{
		Uptime:       time.Since(mc.startTime).Round(time.Second).String(),
		Predictions:  total,
		Outcomes:     outcomes,
		CacheHits:    mc.cacheHits,
		CacheMisses:  mc.cacheMisses,
		MaxLatencyMs: float64(mc.maxLatency) / float64(time.Millisecond),
	}
	if total > 0 {
		s.AvgLatencyMs = float64(mc.latency) / float64(total) / float64(time.Millisecond)
	}
	mc.mu.RUnlock()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	s.HeapAlloc = m.HeapAlloc
	s.NumGC = m.NumGC
	s.NumGoroutines = runtime.NumGoroutine()
	return s
}

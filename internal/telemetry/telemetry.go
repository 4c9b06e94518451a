// Package telemetry collects in-memory query metrics. It is intentionally
// small: per-type counters, zero-result counts, and a latency accumulator,
// exposed as a snapshot for the stats surface. No external metrics backend.
package telemetry

import (
	"sync"
	"time"
)

// QueryEvent describes one completed search.
type QueryEvent struct {
	QueryType   string
	ResultCount int
	Latency     time.Duration
	Degraded    bool
}

// Snapshot is a point-in-time view of the collected metrics.
type Snapshot struct {
	TotalQueries   int64            `json:"total_queries"`
	ZeroResults    int64            `json:"zero_results"`
	Degraded       int64            `json:"degraded"`
	ByType         map[string]int64 `json:"by_type"`
	AvgLatencyMS   float64          `json:"avg_latency_ms"`
	TotalLatencyMS int64            `json:"total_latency_ms"`
}

// Collector accumulates query metrics. Safe for concurrent use.
// A nil Collector is valid and records nothing.
type Collector struct {
	mu           sync.Mutex
	total        int64
	zeroResults  int64
	degraded     int64
	byType       map[string]int64
	totalLatency time.Duration
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{byType: make(map[string]int64)}
}

// Record adds one query event.
func (c *Collector) Record(ev QueryEvent) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	c.byType[ev.QueryType]++
	c.totalLatency += ev.Latency
	if ev.ResultCount == 0 {
		c.zeroResults++
	}
	if ev.Degraded {
		c.degraded++
	}
}

// Snapshot returns a copy of the current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{ByType: map[string]int64{}}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	byType := make(map[string]int64, len(c.byType))
	for k, v := range c.byType {
		byType[k] = v
	}

	snap := Snapshot{
		TotalQueries:   c.total,
		ZeroResults:    c.zeroResults,
		Degraded:       c.degraded,
		ByType:         byType,
		TotalLatencyMS: c.totalLatency.Milliseconds(),
	}
	if c.total > 0 {
		snap.AvgLatencyMS = float64(c.totalLatency.Milliseconds()) / float64(c.total)
	}
	return snap
}

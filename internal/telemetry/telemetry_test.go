package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCollector_Record(t *testing.T) {
	c := NewCollector()

	c.Record(QueryEvent{QueryType: "ERROR", ResultCount: 3, Latency: 20 * time.Millisecond})
	c.Record(QueryEvent{QueryType: "GENERAL", ResultCount: 0, Latency: 40 * time.Millisecond, Degraded: true})
	c.Record(QueryEvent{QueryType: "ERROR", ResultCount: 1, Latency: 30 * time.Millisecond})

	snap := c.Snapshot()
	assert.Equal(t, int64(3), snap.TotalQueries)
	assert.Equal(t, int64(1), snap.ZeroResults)
	assert.Equal(t, int64(1), snap.Degraded)
	assert.Equal(t, int64(2), snap.ByType["ERROR"])
	assert.Equal(t, int64(1), snap.ByType["GENERAL"])
	assert.Equal(t, int64(90), snap.TotalLatencyMS)
	assert.InDelta(t, 30.0, snap.AvgLatencyMS, 0.01)
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	c.Record(QueryEvent{QueryType: "GENERAL"})

	snap := c.Snapshot()
	assert.Zero(t, snap.TotalQueries)
	assert.NotNil(t, snap.ByType)
}

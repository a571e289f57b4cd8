package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/tickets", "POST", 200, 20*time.Millisecond)
	m.RecordRequest("/tickets", "POST", 200, 40*time.Millisecond)
	m.RecordError("/tickets/verify", "POST", "code_incorrect")
	m.RecordFrame("message")
	m.RecordFrame("skipped")
	m.RecordUpload(true)
	m.RecordUpload(false)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["/tickets|POST|200"])
	assert.Equal(t, int64(1), snap.Errors["/tickets/verify|POST|code_incorrect"])
	assert.Equal(t, int64(1), snap.StreamFrames["skipped"])
	assert.Equal(t, int64(1), snap.Uploads["failed"])
	assert.InDelta(t, 30.0, snap.AvgLatencyMS, 0.001)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordFrame("message")
	m.RecordUpload(true)
}

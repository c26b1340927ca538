package stats

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/spyspec/packages/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics()

	m.Record("save", Sample{Duration: 100 * time.Millisecond})
	m.Record("save", Sample{Duration: 150 * time.Millisecond, Threw: true})
	m.Record("load", Sample{Constructed: true})

	summary := m.GetSummary()
	assert.Equal(t, int64(3), summary.Calls)
	assert.Equal(t, int64(1), summary.Throws)
	assert.Equal(t, int64(2), summary.Timed)
	assert.InDelta(t, 1.0/3, summary.ThrowRate, 0.001)

	require.Len(t, summary.Spies, 2)
	assert.Equal(t, "save", summary.Spies[0].Name)

	load, ok := summary.Spy("load")
	require.True(t, ok)
	assert.Equal(t, int64(1), load.Constructed)
	assert.Equal(t, int64(0), load.Timed)
	assert.Zero(t, load.P95)
}

func TestMetricsSummary_Percentiles(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < 100; i++ {
		m.Record("query", Sample{Duration: time.Duration(i+1) * time.Millisecond})
	}

	summary := m.GetSummary()
	assert.InDelta(t, float64(50*time.Millisecond), float64(summary.P50), float64(time.Millisecond))
	assert.InDelta(t, float64(95*time.Millisecond), float64(summary.P95), float64(time.Millisecond))
	assert.InDelta(t, float64(100*time.Millisecond), float64(summary.Max), float64(time.Millisecond))
	assert.True(t, summary.P50 <= summary.P95)
	assert.True(t, summary.P95 <= summary.P99)
}

func TestFromRecording(t *testing.T) {
	rec := recorder.NewRecording()
	save := rec.Spy("save")
	save.Record(recorder.Invocation{Duration: 2 * time.Millisecond})
	save.Record(recorder.Invocation{Duration: 4 * time.Millisecond, Exception: errors.New("conflict")})
	rec.Spy("unused")

	summary := FromRecording(rec).GetSummary()
	assert.Equal(t, int64(2), summary.Calls)
	assert.Equal(t, int64(1), summary.Throws)

	require.Len(t, summary.Spies, 2)
	assert.Equal(t, "unused", summary.Spies[1].Name)
	assert.Equal(t, int64(0), summary.Spies[1].Calls)
}

func TestSummary_SortBy(t *testing.T) {
	m := NewMetrics()
	m.Record("b", Sample{})
	m.Record("a", Sample{Threw: true})
	m.Record("a", Sample{})

	summary := m.GetSummary()
	summary.SortBy("name")
	assert.Equal(t, "a", summary.Spies[0].Name)

	summary.SortBy("unknown")
	assert.Equal(t, "a", summary.Spies[0].Name)

	m.Record("b", Sample{})
	m.Record("b", Sample{})
	summary = m.GetSummary()
	summary.SortBy("calls")
	assert.Equal(t, "b", summary.Spies[0].Name)
}

func TestEvaluateThresholds(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < 10; i++ {
		m.Record("s", Sample{Duration: 10 * time.Millisecond, Threw: i == 0})
	}
	summary := m.GetSummary()

	results := summary.EvaluateThresholds(Thresholds{
		P95:        50 * time.Millisecond,
		MaxLatency: time.Millisecond,
		ThrowRate:  0.05,
	})
	require.Len(t, results, 3)

	assert.Equal(t, "p95", results[0].Name)
	assert.True(t, results[0].Passed)
	assert.Equal(t, "max latency", results[1].Name)
	assert.False(t, results[1].Passed)
	assert.Equal(t, "throw rate", results[2].Name)
	assert.False(t, results[2].Passed)
	assert.Equal(t, "10%", results[2].Actual)

	assert.Empty(t, summary.EvaluateThresholds(Thresholds{}))
}

func TestReporter(t *testing.T) {
	m := NewMetrics()
	m.Record("save", Sample{Duration: 3 * time.Millisecond, Threw: true})
	m.Record("load", Sample{})
	summary := m.GetSummary()
	thresholds := summary.EvaluateThresholds(Thresholds{ThrowRate: 0.1})

	var buf bytes.Buffer
	r := NewReporter(WithWriter(&buf), WithNoColor(true))
	r.Summary("run.json", summary, thresholds)

	out := buf.String()
	assert.Contains(t, out, "run.json")
	assert.Contains(t, out, "save")
	assert.Contains(t, out, "3ms")
	assert.Contains(t, out, "✗ throw rate")
	assert.NotContains(t, out, "\x1b[")

	buf.Reset()
	require.NoError(t, r.JSONSummary(summary, thresholds))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, float64(2), decoded["calls"])
	assert.Len(t, decoded["spies"], 2)
	assert.Len(t, decoded["thresholds"], 1)
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1,000", formatNumber(1000))
	assert.Equal(t, "1,234,567", formatNumber(1234567))
}

func TestFormatLatency(t *testing.T) {
	assert.Equal(t, "500μs", formatLatency(500*time.Microsecond))
	assert.Equal(t, "12ms", formatLatency(12*time.Millisecond))
	assert.Equal(t, "1.5s", formatLatency(1500*time.Millisecond))
}

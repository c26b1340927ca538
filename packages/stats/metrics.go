package stats

import (
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/abdul-hamid-achik/spyspec/packages/recorder"
)

// Histogram range: 1µs to 60s, 3 significant digits.
const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
	sigFigs      = 3
)

// Metrics collects per-spy call statistics. It is safe for concurrent use.
type Metrics struct {
	mu sync.RWMutex

	totalCalls  atomic.Int64
	totalThrows atomic.Int64

	// Latency histogram across all spies, in microseconds
	histogram *hdrhistogram.Histogram

	spies map[string]*SpyMetrics
	order []string
}

// SpyMetrics holds metrics for a single spy
type SpyMetrics struct {
	Name        string
	Calls       atomic.Int64
	Throws      atomic.Int64
	Constructed atomic.Int64
	Histogram   *hdrhistogram.Histogram
	mu          sync.Mutex
}

// NewMetrics creates a new Metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		histogram: hdrhistogram.New(minLatencyUs, maxLatencyUs, sigFigs),
		spies:     make(map[string]*SpyMetrics),
	}
}

// FromRecording collects metrics for every call in rec.
func FromRecording(rec *recorder.Recording) *Metrics {
	m := NewMetrics()
	for _, s := range rec.Spies() {
		m.spy(s.Name())
		for _, c := range s.Calls() {
			m.Record(s.Name(), Sample{
				Duration:    c.Duration(),
				Threw:       c.Exception() != nil,
				Constructed: c.Constructed(),
			})
		}
	}
	return m
}

// Sample is one observed call.
type Sample struct {
	Duration    time.Duration
	Threw       bool
	Constructed bool
}

// Record records a call to the named spy. Calls without a duration count
// towards the totals but not the latency percentiles.
func (m *Metrics) Record(name string, sample Sample) {
	m.totalCalls.Add(1)
	if sample.Threw {
		m.totalThrows.Add(1)
	}

	sm := m.spy(name)
	sm.Calls.Add(1)
	if sample.Threw {
		sm.Throws.Add(1)
	}
	if sample.Constructed {
		sm.Constructed.Add(1)
	}

	if sample.Duration <= 0 {
		return
	}
	latencyUs := clamp(sample.Duration.Microseconds())

	m.mu.Lock()
	_ = m.histogram.RecordValue(latencyUs)
	m.mu.Unlock()

	sm.mu.Lock()
	_ = sm.Histogram.RecordValue(latencyUs)
	sm.mu.Unlock()
}

func (m *Metrics) spy(name string) *SpyMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	sm, ok := m.spies[name]
	if !ok {
		sm = &SpyMetrics{
			Name:      name,
			Histogram: hdrhistogram.New(minLatencyUs, maxLatencyUs, sigFigs),
		}
		m.spies[name] = sm
		m.order = append(m.order, name)
	}
	return sm
}

func clamp(us int64) int64 {
	if us < minLatencyUs {
		return minLatencyUs
	}
	if us > maxLatencyUs {
		return maxLatencyUs
	}
	return us
}

// Summary returns the final metrics summary
type Summary struct {
	Calls     int64
	Throws    int64
	Timed     int64
	ThrowRate float64

	// Latency percentiles across all timed calls
	P50  time.Duration
	P95  time.Duration
	P99  time.Duration
	Max  time.Duration
	Mean time.Duration

	// Per-spy breakdown in recording order
	Spies []*SpySummary
}

// SpySummary holds summary for a specific spy
type SpySummary struct {
	Name        string
	Calls       int64
	Throws      int64
	Constructed int64
	Timed       int64
	P50         time.Duration
	P95         time.Duration
	P99         time.Duration
	Max         time.Duration
	Mean        time.Duration
}

// GetSummary returns the metrics summary
func (m *Metrics) GetSummary() *Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	calls := m.totalCalls.Load()
	throws := m.totalThrows.Load()

	throwRate := float64(0)
	if calls > 0 {
		throwRate = float64(throws) / float64(calls)
	}

	summary := &Summary{
		Calls:     calls,
		Throws:    throws,
		Timed:     m.histogram.TotalCount(),
		ThrowRate: throwRate,
		P50:       micros(m.histogram.ValueAtQuantile(50)),
		P95:       micros(m.histogram.ValueAtQuantile(95)),
		P99:       micros(m.histogram.ValueAtQuantile(99)),
		Max:       micros(m.histogram.Max()),
		Mean:      micros(int64(m.histogram.Mean())),
	}

	for _, name := range m.order {
		sm := m.spies[name]
		sm.mu.Lock()
		summary.Spies = append(summary.Spies, &SpySummary{
			Name:        name,
			Calls:       sm.Calls.Load(),
			Throws:      sm.Throws.Load(),
			Constructed: sm.Constructed.Load(),
			Timed:       sm.Histogram.TotalCount(),
			P50:         micros(sm.Histogram.ValueAtQuantile(50)),
			P95:         micros(sm.Histogram.ValueAtQuantile(95)),
			P99:         micros(sm.Histogram.ValueAtQuantile(99)),
			Max:         micros(sm.Histogram.Max()),
			Mean:        micros(int64(sm.Histogram.Mean())),
		})
		sm.mu.Unlock()
	}

	return summary
}

// Spy returns the summary for one spy.
func (s *Summary) Spy(name string) (*SpySummary, bool) {
	for _, sp := range s.Spies {
		if sp.Name == name {
			return sp, true
		}
	}
	return nil, false
}

// SortBy orders the per-spy breakdown. Supported keys are name, calls,
// throws and p95; anything else keeps recording order.
func (s *Summary) SortBy(key string) {
	var less func(a, b *SpySummary) bool
	switch key {
	case "name":
		less = func(a, b *SpySummary) bool { return a.Name < b.Name }
	case "calls":
		less = func(a, b *SpySummary) bool { return a.Calls > b.Calls }
	case "throws":
		less = func(a, b *SpySummary) bool { return a.Throws > b.Throws }
	case "p95":
		less = func(a, b *SpySummary) bool { return a.P95 > b.P95 }
	default:
		return
	}
	sort.SliceStable(s.Spies, func(i, j int) bool { return less(s.Spies[i], s.Spies[j]) })
}

func micros(us int64) time.Duration {
	return time.Duration(us) * time.Microsecond
}

// Thresholds are upper bounds a recording's statistics must stay under.
// Zero values are not checked.
type Thresholds struct {
	P95        time.Duration
	P99        time.Duration
	MaxLatency time.Duration
	ThrowRate  float64
}

// ThresholdResult is the outcome of one threshold.
type ThresholdResult struct {
	Name     string
	Passed   bool
	Expected string
	Actual   string
}

// EvaluateThresholds evaluates the thresholds against the summary
func (s *Summary) EvaluateThresholds(t Thresholds) []ThresholdResult {
	var results []ThresholdResult

	if t.P95 > 0 {
		results = append(results, ThresholdResult{
			Name:     "p95",
			Passed:   s.P95 <= t.P95,
			Expected: "< " + t.P95.String(),
			Actual:   s.P95.String(),
		})
	}

	if t.P99 > 0 {
		results = append(results, ThresholdResult{
			Name:     "p99",
			Passed:   s.P99 <= t.P99,
			Expected: "< " + t.P99.String(),
			Actual:   s.P99.String(),
		})
	}

	if t.MaxLatency > 0 {
		results = append(results, ThresholdResult{
			Name:     "max latency",
			Passed:   s.Max <= t.MaxLatency,
			Expected: "< " + t.MaxLatency.String(),
			Actual:   s.Max.String(),
		})
	}

	if t.ThrowRate > 0 {
		results = append(results, ThresholdResult{
			Name:     "throw rate",
			Passed:   s.ThrowRate <= t.ThrowRate,
			Expected: "< " + formatPercent(t.ThrowRate),
			Actual:   formatPercent(s.ThrowRate),
		})
	}

	return results
}

func formatPercent(f float64) string {
	return formatFloat(f*100) + "%"
}

func formatFloat(f float64) string {
	if f == float64(int(f)) {
		return strconv.Itoa(int(f))
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

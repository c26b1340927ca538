package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
)

// Reporter prints summaries
type Reporter struct {
	writer  io.Writer
	noColor bool

	green  *color.Color
	red    *color.Color
	yellow *color.Color
	bold   *color.Color
	dim    *color.Color
}

// ReporterOption configures the reporter
type ReporterOption func(*Reporter)

// WithWriter sets the output writer
func WithWriter(w io.Writer) ReporterOption {
	return func(r *Reporter) {
		r.writer = w
	}
}

// WithNoColor disables colored output
func WithNoColor(noColor bool) ReporterOption {
	return func(r *Reporter) {
		r.noColor = noColor
	}
}

// NewReporter creates a new reporter
func NewReporter(opts ...ReporterOption) *Reporter {
	r := &Reporter{
		writer: os.Stdout,
	}

	for _, opt := range opts {
		opt(r)
	}

	r.green = r.color(color.FgGreen)
	r.red = r.color(color.FgRed)
	r.yellow = r.color(color.FgYellow)
	r.bold = r.color(color.Bold)
	r.dim = r.color(color.Faint)

	return r
}

func (r *Reporter) color(attr color.Attribute) *color.Color {
	c := color.New(attr)
	if r.noColor {
		c.DisableColor()
	}
	return c
}

// Summary prints a per-spy table followed by threshold outcomes.
func (r *Reporter) Summary(title string, summary *Summary, thresholdResults []ThresholdResult) {
	r.bold.Fprintf(r.writer, "%s\n", title)
	fmt.Fprintf(r.writer, "Calls: %s | Throws: ", formatNumber(summary.Calls))
	if summary.Throws > 0 {
		r.red.Fprintf(r.writer, "%s", formatNumber(summary.Throws))
	} else {
		fmt.Fprintf(r.writer, "%s", formatNumber(summary.Throws))
	}
	fmt.Fprintf(r.writer, " (%.1f%%) | Timed: %s\n", summary.ThrowRate*100, formatNumber(summary.Timed))
	if summary.Timed > 0 {
		fmt.Fprintf(r.writer, "Latency: p50: %s | p95: %s | p99: %s | max: %s\n",
			formatLatency(summary.P50), formatLatency(summary.P95),
			formatLatency(summary.P99), formatLatency(summary.Max))
	}

	if len(summary.Spies) > 0 {
		fmt.Fprintln(r.writer)
		r.dim.Fprintf(r.writer, "  %-24s %8s %8s %6s %8s %8s %8s %8s\n",
			"SPY", "CALLS", "THROWS", "NEW", "P50", "P95", "P99", "MAX")
		for _, s := range summary.Spies {
			fmt.Fprintf(r.writer, "  %-24s %8s ", s.Name, formatNumber(s.Calls))
			throws := fmt.Sprintf("%8s", formatNumber(s.Throws))
			if s.Throws > 0 {
				r.yellow.Fprint(r.writer, throws)
			} else {
				fmt.Fprint(r.writer, throws)
			}
			fmt.Fprintf(r.writer, " %6s", formatNumber(s.Constructed))
			if s.Timed == 0 {
				r.dim.Fprintf(r.writer, " %8s %8s %8s %8s\n", "-", "-", "-", "-")
				continue
			}
			fmt.Fprintf(r.writer, " %8s %8s %8s %8s\n",
				formatLatency(s.P50), formatLatency(s.P95), formatLatency(s.P99), formatLatency(s.Max))
		}
	}

	if len(thresholdResults) > 0 {
		fmt.Fprintln(r.writer)
		fmt.Fprintln(r.writer, "Thresholds:")
		for _, tr := range thresholdResults {
			if tr.Passed {
				r.green.Fprintf(r.writer, "  ✓ ")
			} else {
				r.red.Fprintf(r.writer, "  ✗ ")
			}
			fmt.Fprintf(r.writer, "%s %s    (actual: %s)\n", tr.Name, tr.Expected, tr.Actual)
		}
	}
}

// JSONSummary outputs the summary as JSON
func (r *Reporter) JSONSummary(summary *Summary, thresholdResults []ThresholdResult) error {
	spies := make([]map[string]any, 0, len(summary.Spies))
	for _, s := range summary.Spies {
		spies = append(spies, map[string]any{
			"name":   s.Name,
			"calls":  s.Calls,
			"throws": s.Throws,
			"new":    s.Constructed,
			"timed":  s.Timed,
			"latencyUs": map[string]any{
				"p50":  s.P50.Microseconds(),
				"p95":  s.P95.Microseconds(),
				"p99":  s.P99.Microseconds(),
				"max":  s.Max.Microseconds(),
				"mean": s.Mean.Microseconds(),
			},
		})
	}

	output := map[string]any{
		"calls":     summary.Calls,
		"throws":    summary.Throws,
		"timed":     summary.Timed,
		"throwRate": summary.ThrowRate,
		"latencyUs": map[string]any{
			"p50":  summary.P50.Microseconds(),
			"p95":  summary.P95.Microseconds(),
			"p99":  summary.P99.Microseconds(),
			"max":  summary.Max.Microseconds(),
			"mean": summary.Mean.Microseconds(),
		},
		"spies": spies,
	}

	if len(thresholdResults) > 0 {
		thresholds := make([]map[string]any, len(thresholdResults))
		for i, tr := range thresholdResults {
			thresholds[i] = map[string]any{
				"name":     tr.Name,
				"passed":   tr.Passed,
				"expected": tr.Expected,
				"actual":   tr.Actual,
			}
		}
		output["thresholds"] = thresholds
	}

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// formatLatency formats latency for display
func formatLatency(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dμs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// formatNumber formats a number with commas
func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	s := fmt.Sprintf("%d", n)
	result := make([]byte, 0, len(s)+(len(s)-1)/3)

	start := len(s) % 3
	if start == 0 {
		start = 3
	}

	result = append(result, s[:start]...)
	for i := start; i < len(s); i += 3 {
		result = append(result, ',')
		result = append(result, s[i:i+3]...)
	}

	return string(result)
}

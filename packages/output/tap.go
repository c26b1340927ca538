package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/spyspec/packages/core/runner"
	"gopkg.in/yaml.v3"
)

// TAPFormatter formats check results in TAP (Test Anything Protocol) format
type TAPFormatter struct {
	writer    io.Writer
	testCount int
	results   []tapResult
}

type tapResult struct {
	number     int
	name       string
	passed     bool
	skipped    bool
	skipReason string
	diagnostic *tapDiagnostic
}

// tapDiagnostic is the YAML block TAP 13 allows after a failing line.
type tapDiagnostic struct {
	Message  string   `yaml:"message"`
	Severity string   `yaml:"severity"`
	Spy      string   `yaml:"spy,omitempty"`
	Expect   string   `yaml:"expect,omitempty"`
	At       string   `yaml:"at,omitempty"`
	Failures []string `yaml:"failures,omitempty"`
}

type TAPOption func(*TAPFormatter)

func NewTAPFormatter(opts ...TAPOption) *TAPFormatter {
	f := &TAPFormatter{
		writer:  os.Stdout,
		results: make([]tapResult, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPFormatter) {
		f.writer = w
	}
}

func (f *TAPFormatter) FormatResult(result *runner.RunResult) {
	for _, r := range result.Results {
		f.testCount++
		tr := tapResult{
			number:     f.testCount,
			name:       r.Name,
			passed:     r.Passed,
			skipped:    r.Skipped,
			skipReason: r.SkipReason,
		}

		if !r.Passed && !r.Skipped {
			d := &tapDiagnostic{
				Message:  r.Message,
				Severity: "fail",
				Spy:      r.Spy,
				Expect:   r.Expect,
			}
			if r.Line > 0 {
				d.At = fmt.Sprintf("%s:%d", result.File, r.Line)
			}
			if r.Error != nil {
				d.Message = r.Error.Error()
				d.Severity = "error"
			}
			for _, failure := range r.Failures {
				d.Failures = append(d.Failures, failure.Expectation)
			}
			tr.diagnostic = d
		}

		f.results = append(f.results, tr)
	}
}

func (f *TAPFormatter) FormatError(err error) {
	// Errors are included in individual check results
}

func (f *TAPFormatter) FormatHeader(version string) {
	// Header is written in Flush
}

// Flush writes the accumulated TAP output
func (f *TAPFormatter) Flush(totalDuration time.Duration) error {
	fmt.Fprintf(f.writer, "TAP version 13\n")
	fmt.Fprintf(f.writer, "1..%d\n", f.testCount)

	for _, r := range f.results {
		if r.skipped {
			reason := r.skipReason
			if reason == "" || reason == "filtered out" {
				reason = "SKIP"
			}
			fmt.Fprintf(f.writer, "ok %d - %s # SKIP %s\n", r.number, r.name, reason)
			continue
		}

		if r.passed {
			fmt.Fprintf(f.writer, "ok %d - %s\n", r.number, r.name)
			continue
		}

		fmt.Fprintf(f.writer, "not ok %d - %s\n", r.number, r.name)
		if r.diagnostic != nil {
			if err := f.writeDiagnostic(r.diagnostic); err != nil {
				return err
			}
		}
	}

	fmt.Fprintf(f.writer, "# time %s\n", totalDuration.Round(time.Millisecond))
	fmt.Fprintln(f.writer)

	return nil
}

func (f *TAPFormatter) writeDiagnostic(d *tapDiagnostic) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding TAP diagnostic: %w", err)
	}
	fmt.Fprintf(f.writer, "  ---\n")
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		fmt.Fprintf(f.writer, "  %s\n", line)
	}
	fmt.Fprintf(f.writer, "  ...\n")
	return nil
}

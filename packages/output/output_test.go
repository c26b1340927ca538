package output

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/spyspec/packages/assertions"
	"github.com/abdul-hamid-achik/spyspec/packages/core/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleResult() *runner.RunResult {
	return &runner.RunResult{
		File:      "checks/repo.spy.yaml",
		Recording: "session.json",
		Duration:  3 * time.Millisecond,
		Passed:    1,
		Failed:    2,
		Skipped:   1,
		Results: []*runner.CheckResult{
			{Name: "save called", Spy: "save", Expect: "called", Passed: true, Duration: 40 * time.Microsecond, Line: 3},
			{
				Name:    "save twice",
				Spy:     "save",
				Expect:  "called",
				Line:    5,
				Message: "save should run twice",
				Failures: []*assertions.Failure{{
					Predicate:   "called",
					Expectation: "expected spy to be called twice, called once",
					Message:     "save should run twice",
				}},
			},
			{Name: "bogus", Spy: "save", Expect: "fooled", Line: 9, Error: errors.New("unknown predicate: fooled"), Message: "unknown predicate: fooled"},
			{Name: "later", Spy: "load", Expect: "called", Skipped: true, SkipReason: "not ready"},
		},
	}
}

func TestConsoleFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithVerbose(true))
	f.FormatHeader("v1.0.0")
	f.FormatResult(sampleResult())
	f.FormatError(errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "spyspec v1.0.0")
	assert.Contains(t, out, "Running: checks/repo.spy.yaml")
	assert.Contains(t, out, "Recording: session.json")
	assert.Contains(t, out, "✓ save called (40µs)")
	assert.Contains(t, out, "✗ save twice")
	assert.Contains(t, out, "→ save should run twice")
	assert.Contains(t, out, "expected spy to be called twice, called once")
	assert.Contains(t, out, "at checks/repo.spy.yaml:5")
	assert.Contains(t, out, "x bogus (unknown predicate: fooled)")
	assert.Contains(t, out, "- later (not ready)")
	assert.Contains(t, out, "1 passed, 2 failed, 1 skipped, 4 total")
	assert.Contains(t, out, "Error: boom")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))
	f.FormatResult(sampleResult())
	require.NoError(t, f.Flush(5*time.Millisecond))

	var out JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, JSONSummary{Total: 4, Passed: 1, Failed: 2, Skipped: 1}, out.Summary)
	require.Len(t, out.Checks, 4)

	failed := out.Checks[1]
	assert.Equal(t, "save should run twice", failed.Message)
	assert.Equal(t, "session.json", failed.Recording)
	require.Len(t, failed.Failures, 1)
	assert.Equal(t, "called", failed.Failures[0].Predicate)

	assert.Equal(t, "unknown predicate: fooled", out.Checks[2].Error)
	assert.Empty(t, out.Checks[2].Message)
	assert.Equal(t, "not ready", out.Checks[3].SkipReason)
}

func TestJUnitFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJUnitFormatter(JUnitWithWriter(&buf))
	f.FormatResult(sampleResult())
	require.NoError(t, f.Flush(time.Second))

	assert.True(t, strings.HasPrefix(buf.String(), "<?xml"))

	var suites JUnitTestSuites
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &suites))
	assert.Equal(t, "spyspec", suites.Name)
	assert.Equal(t, 4, suites.Tests)
	assert.Equal(t, 1, suites.Failures)
	assert.Equal(t, 1, suites.Errors)
	assert.Equal(t, 1, suites.Skipped)

	require.Len(t, suites.TestSuites, 1)
	cases := suites.TestSuites[0].TestCases
	require.Len(t, cases, 4)
	assert.Nil(t, cases[0].Failure)
	require.NotNil(t, cases[1].Failure)
	assert.Equal(t, "called", cases[1].Failure.Type)
	assert.Contains(t, cases[1].Failure.Content, "called twice, called once")
	assert.Contains(t, cases[1].Failure.Content, "repo.spy.yaml:5")
	require.NotNil(t, cases[2].Error)
	require.NotNil(t, cases[3].Skipped)
	assert.Equal(t, "recording", suites.TestSuites[0].Properties[0].Name)
}

func TestTAPFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewTAPFormatter(TAPWithWriter(&buf))
	f.FormatResult(sampleResult())
	require.NoError(t, f.Flush(time.Millisecond))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "TAP version 13\n1..4\n"))
	assert.Contains(t, out, "ok 1 - save called\n")
	assert.Contains(t, out, "not ok 2 - save twice\n")
	assert.Contains(t, out, "not ok 3 - bogus\n")
	assert.Contains(t, out, "ok 4 - later # SKIP not ready\n")

	// the diagnostic block must be valid YAML
	start := strings.Index(out, "  ---\n")
	end := strings.Index(out, "  ...\n")
	require.True(t, start >= 0 && end > start)
	var diag tapDiagnostic
	require.NoError(t, yaml.Unmarshal([]byte(out[start+6:end]), &diag))
	assert.Equal(t, "save should run twice", diag.Message)
	assert.Equal(t, "fail", diag.Severity)
	assert.Equal(t, "checks/repo.spy.yaml:5", diag.At)
	assert.Equal(t, []string{"expected spy to be called twice, called once"}, diag.Failures)
}

func TestHTMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewHTMLFormatter(HTMLWithWriter(&buf))
	f.FormatHeader("v1.0.0")
	f.FormatResult(sampleResult())
	require.NoError(t, f.Flush(time.Millisecond))

	out := buf.String()
	assert.Contains(t, out, "<h1>spyspec v1.0.0</h1>")
	assert.Contains(t, out, "1 passed, 2 failed, 1 skipped, 4 total")
	assert.Contains(t, out, `<tr class="failed">`)
	assert.Contains(t, out, "save should run twice")
	assert.Contains(t, out, "later (not ready)")
}

func TestFailureText(t *testing.T) {
	r := sampleResult().Results[1]
	assert.Equal(t, "save should run twice\nexpected spy to be called twice, called once", failureText(r))

	assert.Equal(t, "only message", failureText(&runner.CheckResult{Message: "only message"}))
}

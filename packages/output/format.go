package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/spyspec/packages/core/runner"
)

// formatDuration prints sub-millisecond check times in microseconds, since
// evaluating a check against a loaded recording is usually that fast.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	return fmt.Sprintf("%dms", d.Milliseconds())
}

// failureText joins every failure reported for a check, one per line.
func failureText(r *runner.CheckResult) string {
	if len(r.Failures) == 0 {
		return r.Message
	}
	lines := make([]string, 0, len(r.Failures)+1)
	if r.Message != "" && r.Message != r.Failures[0].Expectation {
		lines = append(lines, r.Message)
	}
	for _, f := range r.Failures {
		lines = append(lines, f.Expectation)
	}
	return strings.Join(lines, "\n")
}

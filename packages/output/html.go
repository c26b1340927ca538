package output

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/spyspec/packages/core/runner"
)

// HTMLOutput represents the complete HTML output structure
type HTMLOutput struct {
	Version        string
	Summary        JSONSummary
	Files          []*HTMLFile
	Duration       float64
	Time           string
	PassedPercent  float64
	FailedPercent  float64
	SkippedPercent float64
}

// HTMLFile groups the checks of one check file
type HTMLFile struct {
	Path      string
	Recording string
	Checks    []HTMLCheck
}

// HTMLCheck represents a single check result for HTML output
type HTMLCheck struct {
	Name        string
	Spy         string
	Expect      string
	Line        int
	Skipped     bool
	SkipReason  string
	Duration    string
	Message     string
	Details     []string
	StatusClass string
}

// HTMLFormatter formats check results as a standalone HTML report
type HTMLFormatter struct {
	writer  io.Writer
	files   []*HTMLFile
	version string
}

// HTMLOption is a functional option for HTMLFormatter
type HTMLOption func(*HTMLFormatter)

// NewHTMLFormatter creates a new HTML formatter
func NewHTMLFormatter(opts ...HTMLOption) *HTMLFormatter {
	f := &HTMLFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// HTMLWithWriter sets the output writer
func HTMLWithWriter(w io.Writer) HTMLOption {
	return func(f *HTMLFormatter) {
		f.writer = w
	}
}

// FormatResult accumulates a file's results
func (f *HTMLFormatter) FormatResult(result *runner.RunResult) {
	file := &HTMLFile{
		Path:      result.File,
		Recording: result.Recording,
	}

	for _, r := range result.Results {
		check := HTMLCheck{
			Name:     r.Name,
			Spy:      r.Spy,
			Expect:   r.Expect,
			Line:     r.Line,
			Skipped:  r.Skipped,
			Duration: formatDuration(r.Duration),
		}

		switch {
		case r.Skipped:
			check.StatusClass = "skipped"
			if r.SkipReason != "filtered out" {
				check.SkipReason = r.SkipReason
			}
		case r.Passed:
			check.StatusClass = "passed"
		default:
			check.StatusClass = "failed"
			check.Message = r.Message
			if r.Error != nil {
				check.Message = r.Error.Error()
			}
			for _, failure := range r.Failures {
				if failure.Expectation != check.Message {
					check.Details = append(check.Details, failure.Expectation)
				}
			}
		}

		file.Checks = append(file.Checks, check)
	}

	f.files = append(f.files, file)
}

// FormatError handles errors (no-op for HTML, errors are in check results)
func (f *HTMLFormatter) FormatError(err error) {
	// Errors are included in individual check results
}

// FormatHeader captures the version for the HTML report
func (f *HTMLFormatter) FormatHeader(version string) {
	f.version = version
}

// Flush writes the accumulated HTML output
func (f *HTMLFormatter) Flush(totalDuration time.Duration) error {
	var passed, failed, skipped int
	for _, file := range f.files {
		for _, c := range file.Checks {
			switch c.StatusClass {
			case "skipped":
				skipped++
			case "passed":
				passed++
			default:
				failed++
			}
		}
	}

	total := passed + failed + skipped
	var passedPct, failedPct, skippedPct float64
	if total > 0 {
		passedPct = float64(passed) / float64(total) * 100
		failedPct = float64(failed) / float64(total) * 100
		skippedPct = float64(skipped) / float64(total) * 100
	}

	output := HTMLOutput{
		Version: f.version,
		Summary: JSONSummary{
			Total:   total,
			Passed:  passed,
			Failed:  failed,
			Skipped: skipped,
		},
		Files:          f.files,
		Duration:       float64(totalDuration.Milliseconds()),
		Time:           time.Now().Format("2006-01-02 15:04:05"),
		PassedPercent:  passedPct,
		FailedPercent:  failedPct,
		SkippedPercent: skippedPct,
	}

	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse HTML template: %w", err)
	}

	return tmpl.Execute(f.writer, output)
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>spyspec report</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, sans-serif; margin: 2rem; color: #222; }
.bar { display: flex; height: 8px; border-radius: 4px; overflow: hidden; margin: 1rem 0; }
.bar .passed { background: #2da44e; } .bar .failed { background: #cf222e; } .bar .skipped { background: #d4a72c; }
table { border-collapse: collapse; width: 100%; margin-bottom: 2rem; }
td, th { text-align: left; padding: .35rem .6rem; border-bottom: 1px solid #eee; vertical-align: top; }
tr.passed td:first-child { color: #2da44e; } tr.failed td:first-child { color: #cf222e; } tr.skipped td { color: #888; }
code { font-size: .9em; } .detail { color: #666; font-size: .9em; }
</style>
</head>
<body>
<h1>spyspec {{.Version}}</h1>
<p>{{.Summary.Passed}} passed, {{.Summary.Failed}} failed, {{.Summary.Skipped}} skipped, {{.Summary.Total}} total in {{.Duration}}ms ({{.Time}})</p>
<div class="bar">
<div class="passed" style="width: {{printf "%.1f" .PassedPercent}}%"></div>
<div class="failed" style="width: {{printf "%.1f" .FailedPercent}}%"></div>
<div class="skipped" style="width: {{printf "%.1f" .SkippedPercent}}%"></div>
</div>
{{range .Files}}
<h2>{{.Path}}</h2>
<p class="detail">recording: <code>{{.Recording}}</code></p>
<table>
<tr><th></th><th>Check</th><th>Spy</th><th>Expect</th><th>Time</th></tr>
{{range .Checks}}
<tr class="{{.StatusClass}}">
<td>{{if eq .StatusClass "passed"}}&#10003;{{else if eq .StatusClass "failed"}}&#10007;{{else}}-{{end}}</td>
<td>{{.Name}}{{if .SkipReason}} ({{.SkipReason}}){{end}}
{{if .Message}}<div>{{.Message}}</div>{{end}}
{{range .Details}}<div class="detail">{{.}}</div>{{end}}</td>
<td><code>{{.Spy}}</code></td>
<td><code>{{.Expect}}</code></td>
<td>{{.Duration}}</td>
</tr>
{{end}}
</table>
{{end}}
</body>
</html>
`

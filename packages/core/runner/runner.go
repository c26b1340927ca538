package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/spyspec/packages/assertions"
	"github.com/abdul-hamid-achik/spyspec/packages/core/env"
	"github.com/abdul-hamid-achik/spyspec/packages/core/parser"
	"github.com/abdul-hamid-achik/spyspec/packages/recorder"
	"github.com/abdul-hamid-achik/spyspec/packages/spy"
	charmlog "github.com/charmbracelet/log"
)

const (
	// DefaultHookTimeout bounds each before/after hook command.
	DefaultHookTimeout = time.Minute
)

// ErrNoRecording is returned when neither the check file nor the config
// names a recording.
var ErrNoRecording = errors.New("no recording configured")

type Runner struct {
	registry *assertions.Registry
	config   *Config
}

type Config struct {
	Verbose    bool
	Bail       bool
	NameFilter string
	TagsFilter []string
	// Recording replaces the recording named by each check file.
	Recording string
	// DefaultRecording is used by check files that name no recording.
	DefaultRecording string
	// ValidateSchema checks JSON recordings against the recording schema
	// before evaluating anything.
	ValidateSchema bool
	HookTimeout    time.Duration
	Variables      map[string]any
	Logger         *charmlog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithRegistry evaluates checks against reg instead of assertions.Default().
func WithRegistry(reg *assertions.Registry) Option {
	return func(r *Runner) {
		r.registry = reg
	}
}

func NewRunner(cfg *Config, opts ...Option) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}
	r := &Runner{
		registry: assertions.Default(),
		config:   cfg,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type RunResult struct {
	File      string
	Recording string
	Results   []*CheckResult
	Duration  time.Duration
	Passed    int
	Failed    int
	Skipped   int
	// HookError is the first failing after hook, if any. It does not
	// change the check counts.
	HookError error
}

type CheckResult struct {
	Name       string
	Spy        string
	Expect     string
	Line       int
	Passed     bool
	Skipped    bool
	SkipReason string
	Duration   time.Duration
	// Message is the failure text shown to the user.
	Message  string
	Failures []*assertions.Failure
	Error    error
}

func (r *Runner) RunFile(path string) (*RunResult, error) {
	return r.RunFileContext(context.Background(), path)
}

// RunFileContext parses the check file at path, prepares and loads its
// recording, and evaluates every check against it.
func (r *Runner) RunFileContext(ctx context.Context, path string) (*RunResult, error) {
	file, err := parser.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parsing file: %w", err)
	}
	return r.Run(ctx, file)
}

// Run evaluates an already parsed check file.
func (r *Runner) Run(ctx context.Context, file *parser.File) (*RunResult, error) {
	start := time.Now()
	baseDir := filepath.Dir(file.Path)

	resolver, err := r.newResolver(baseDir, file)
	if err != nil {
		return nil, err
	}

	ref := r.config.Recording
	if ref == "" {
		ref = file.Recording
	}
	if ref == "" {
		ref = r.config.DefaultRecording
	}
	ref = strings.TrimSpace(resolver.Resolve(ref))
	if ref == "" {
		return nil, fmt.Errorf("%s: %w", file.Path, ErrNoRecording)
	}
	if missing := resolver.Unresolved(ref); len(missing) > 0 {
		return nil, fmt.Errorf("%s: %w: %q has unresolved variables %s", file.Path, ErrNoRecording, ref, strings.Join(missing, ", "))
	}

	result := &RunResult{
		File:      file.Path,
		Recording: ref,
	}

	if err := r.executePreHooks(ctx, file.Before, baseDir, resolver.Resolve); err != nil {
		return nil, err
	}
	defer func() {
		result.HookError = r.executePostHooks(ctx, file.After, baseDir, resolver.Resolve)
		if result.HookError != nil {
			r.logger().Warn("after hook failed", "file", file.Path, "err", result.HookError)
		}
	}()

	validate := r.config.ValidateSchema || file.Validate
	var rec *recorder.Recording
	if file.WaitFor != nil {
		rec, err = r.waitForRecording(ctx, file.WaitFor, ref, baseDir, validate, resolver.Resolve)
	} else {
		rec, err = r.loadRecording(ctx, ref, baseDir, validate)
	}
	if err != nil {
		return nil, err
	}
	r.logger().Debug("loaded recording", "ref", ref, "id", rec.ID, "spies", len(rec.Spies()))

	r.runChecks(file, rec, resolver, result)
	result.Duration = time.Since(start)
	return result, nil
}

func (r *Runner) newResolver(baseDir string, file *parser.File) (*env.Resolver, error) {
	dotenv, err := env.LoadDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	fileVars := make(map[string]any, len(file.Variables))
	for k, v := range file.Variables {
		fileVars[k] = v
	}

	resolver := env.NewResolver()
	resolver.SetWarnFunc(func(format string, args ...any) {
		r.logger().Warnf(format, args...)
	})
	resolver.SetVariables(env.MergeVariables(dotenv, r.config.Variables, fileVars))
	return resolver, nil
}

func (r *Runner) runChecks(file *parser.File, rec *recorder.Recording, resolver *env.Resolver, result *RunResult) {
	hasOnly := false
	for _, check := range file.Checks {
		if check.Only {
			hasOnly = true
			break
		}
	}

	for _, check := range file.Checks {
		if !r.shouldRun(check, hasOnly) {
			result.Results = append(result.Results, &CheckResult{
				Name:       check.Name,
				Spy:        check.Spy,
				Expect:     check.Expect,
				Line:       check.Line,
				Skipped:    true,
				SkipReason: "filtered out",
			})
			result.Skipped++
			continue
		}

		if check.Skip != "" {
			result.Results = append(result.Results, &CheckResult{
				Name:       check.Name,
				Spy:        check.Spy,
				Expect:     check.Expect,
				Line:       check.Line,
				Skipped:    true,
				SkipReason: check.Skip,
			})
			result.Skipped++
			continue
		}

		checkResult := r.runCheck(check, rec, resolver)
		result.Results = append(result.Results, checkResult)

		if checkResult.Passed {
			result.Passed++
			continue
		}
		result.Failed++
		if r.config.Bail {
			break
		}
	}
}

// runCheck evaluates one check. Failures are collected by a Capture rather
// than a live test, so every check runs even when earlier ones fail.
func (r *Runner) runCheck(check *parser.Check, rec *recorder.Recording, resolver *env.Resolver) *CheckResult {
	start := time.Now()
	result := &CheckResult{
		Name:   check.Name,
		Spy:    check.Spy,
		Expect: check.Expect,
		Line:   check.Line,
	}

	capture := &assertions.Capture{}
	subject := lookupSubject(rec, check.Spy, check.Call)
	args := checkArgs(check, rec, resolver)

	ok, err := r.registry.Apply(r.registry.Assume(capture, subject), check.Expect, args...)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err
		result.Message = err.Error()
		return result
	}

	result.Passed = ok
	result.Failures = capture.Failures()
	if !ok {
		if len(result.Failures) > 0 {
			result.Message = result.Failures[0].Error()
		}
		if check.Message != "" {
			result.Message = check.Message
		}
	}

	r.logger().Debug("check evaluated", "name", check.Name, "passed", ok, "duration", result.Duration)
	return result
}

// lookupSubject returns the spy, or one of its calls, that a check is
// about. A missing spy or call yields nil.
func lookupSubject(rec *recorder.Recording, name string, call *int) any {
	s, ok := rec.Lookup(name)
	if !ok {
		return nil
	}
	if call == nil {
		return s
	}
	if c := s.GetCall(*call); c != nil {
		return c
	}
	return nil
}

// checkArgs builds the predicate arguments a check's fields map to.
func checkArgs(check *parser.Check, rec *recorder.Recording, resolver *env.Resolver) []any {
	var msg []any
	if check.Message != "" {
		msg = []any{check.Message}
	}

	switch predicateName(check.Expect) {
	case "called":
		if check.Count != 0 {
			return append([]any{check.Count}, msg...)
		}
		return msg

	case "calledWith", "calledWithMatch", "calledWithExactly":
		args := make([]any, len(check.Args))
		for i, a := range check.Args {
			args[i] = resolver.ResolveValue(a)
		}
		return args

	case "calledOn":
		return append([]any{resolver.ResolveValue(check.Receiver)}, msg...)

	case "returned":
		return append([]any{resolver.ResolveValue(check.Value)}, msg...)

	case "thrown":
		if check.HasValue {
			return append([]any{thrownValue(resolver.ResolveValue(check.Value))}, msg...)
		}
		if len(msg) > 0 {
			return append([]any{nil}, msg...)
		}
		return nil

	case "calledBefore", "calledAfter":
		return append([]any{lookupSubject(rec, check.Other, check.OtherCall)}, msg...)
	}
	return msg
}

// thrownValue keeps a bare string expectation from being read as a failure
// message.
func thrownValue(v any) any {
	text, ok := v.(string)
	if !ok {
		return v
	}
	return spy.Func(text, func(x any) bool { return spy.ThrowMatches(x, text) })
}

func predicateName(chain string) string {
	words := strings.FieldsFunc(chain, func(c rune) bool { return c == ' ' || c == '.' })
	if len(words) == 0 {
		return ""
	}
	return words[len(words)-1]
}

func (r *Runner) shouldRun(check *parser.Check, hasOnly bool) bool {
	if hasOnly && !check.Only {
		return false
	}

	if r.config.NameFilter != "" {
		if !matchesPattern(check.Name, r.config.NameFilter) {
			return false
		}
	}

	if len(r.config.TagsFilter) > 0 {
		if !hasAnyTag(check.Tags, r.config.TagsFilter) {
			return false
		}
	}

	return true
}

func (r *Runner) logger() *charmlog.Logger {
	if r.config.Logger != nil {
		return r.config.Logger
	}
	return charmlog.Default()
}

func matchesPattern(name, pattern string) bool {
	if pattern == "" {
		return true
	}

	if len(pattern) > 1 && pattern[0] == '*' && pattern[len(pattern)-1] == '*' {
		return strings.Contains(name, pattern[1:len(pattern)-1])
	}

	if pattern[0] == '*' {
		return strings.HasSuffix(name, pattern[1:])
	}

	if pattern[len(pattern)-1] == '*' {
		return strings.HasPrefix(name, pattern[:len(pattern)-1])
	}

	return name == pattern
}

func hasAnyTag(tags []string, filters []string) bool {
	for _, filter := range filters {
		for _, tag := range tags {
			if tag == filter {
				return true
			}
		}
	}
	return false
}

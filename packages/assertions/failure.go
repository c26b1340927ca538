package assertions

import (
	"fmt"
	"sync"
)

// TestingT is the reporting surface of the host framework. It is the same
// interface testify's assert package accepts.
type TestingT interface {
	Errorf(format string, args ...any)
}

type tHelper interface {
	Helper()
}

type failNower interface {
	FailNow()
}

// Failure is an unmet assertion.
type Failure struct {
	// Predicate is the registered name of the failing predicate.
	Predicate string
	// Expectation describes what was expected, e.g.
	// "expected spy to be called twice, called once".
	Expectation string
	// Message is the caller's override text, if any.
	Message string
}

func (f *Failure) Error() string {
	if f.Message != "" {
		return f.Message
	}
	return f.Expectation
}

// FailureHandler is implemented by a TestingT that wants structured
// failures in addition to the formatted report.
type FailureHandler interface {
	HandleFailure(f *Failure)
}

// Capture is a TestingT that collects failures instead of failing a test.
// The zero value is ready to use.
type Capture struct {
	mu       sync.Mutex
	failures []*Failure
	output   []string
	stopped  bool
}

var (
	_ TestingT       = (*Capture)(nil)
	_ FailureHandler = (*Capture)(nil)
)

func (c *Capture) Errorf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.output = append(c.output, fmt.Sprintf(format, args...))
}

func (c *Capture) HandleFailure(f *Failure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, f)
}

// FailNow marks the capture as stopped. It does not end the goroutine.
func (c *Capture) FailNow() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
}

func (c *Capture) Helper() {}

// Failed reports whether anything was reported.
func (c *Capture) Failed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.failures) > 0 || len(c.output) > 0
}

// Stopped reports whether FailNow was called.
func (c *Capture) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// Failures returns the structured failures in report order.
func (c *Capture) Failures() []*Failure {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Failure, len(c.failures))
	copy(out, c.failures)
	return out
}

// Output returns the formatted reports.
func (c *Capture) Output() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.output))
	copy(out, c.output)
	return out
}

// Reset clears everything captured so far.
func (c *Capture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = nil
	c.output = nil
	c.stopped = false
}

// messageFromMsgAndArgs mirrors testify's handling of the trailing
// msgAndArgs parameter.
func messageFromMsgAndArgs(msgAndArgs ...any) string {
	switch len(msgAndArgs) {
	case 0:
		return ""
	case 1:
		if msg, ok := msgAndArgs[0].(string); ok {
			return msg
		}
		return fmt.Sprintf("%+v", msgAndArgs[0])
	}
	if tmpl, ok := msgAndArgs[0].(string); ok {
		return fmt.Sprintf(tmpl, msgAndArgs[1:]...)
	}
	return fmt.Sprintf("%+v", msgAndArgs)
}

package assertions

import (
	"strings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Flags is the chain configuration an assumption carries.
type Flags struct {
	// Consistently switches predicates from "some call matches" to
	// "every call matches".
	Consistently bool
	// Not negates the outcome of the predicate. The spy-like check that
	// precedes every spy predicate is never negated.
	Not bool
}

// Assumption is a subject under assertion plus its chain flags. Flag
// methods return copies; an Assumption is never modified after creation.
type Assumption struct {
	t       TestingT
	value   any
	flags   Flags
	utils   Utils
	failNow bool
}

// Assume starts an assertion on value that reports failures to t and
// carries on.
func Assume(t TestingT, value any) *Assumption {
	return &Assumption{t: t, value: value, utils: DefaultUtils()}
}

// Require is like Assume but stops the test with t.FailNow on failure.
func Require(t require.TestingT, value any) *Assumption {
	a := Assume(t, value)
	a.failNow = true
	return a
}

func (a *Assumption) Value() any   { return a.value }
func (a *Assumption) Flags() Flags { return a.flags }
func (a *Assumption) Utils() Utils { return a.utils }

// Always sets the consistently flag.
func (a *Assumption) Always() *Assumption {
	f := a.flags
	f.Consistently = true
	return a.WithFlags(f)
}

// Consistently is an alias of Always.
func (a *Assumption) Consistently() *Assumption { return a.Always() }

// Not negates the next predicate.
func (a *Assumption) Not() *Assumption {
	f := a.flags
	f.Not = !f.Not
	return a.WithFlags(f)
}

// WithFlags returns a copy of a carrying flags.
func (a *Assumption) WithFlags(flags Flags) *Assumption {
	c := *a
	c.flags = flags
	return &c
}

// derive starts a fresh assumption on v for nested checks: same reporting
// target, no flags.
func (a *Assumption) derive(v any) *Assumption {
	c := *a
	c.value = v
	c.flags = Flags{}
	return &c
}

func (a *Assumption) helper() {
	if h, ok := a.t.(tHelper); ok {
		h.Helper()
	}
}

// Expectation fills the "@ " marker in template with the chain words that
// apply ("not", "always") and prefixes "expected ".
//
//	a.Always().Expectation("spy to have @ been called") == "expected spy to have always been called"
func (a *Assumption) Expectation(template string) string {
	var words []string
	if a.flags.Not {
		words = append(words, "not")
	}
	if a.flags.Consistently {
		words = append(words, "always")
	}
	fill := ""
	if len(words) > 0 {
		fill = strings.Join(words, " ") + " "
	}
	return "expected " + strings.Replace(template, "@ ", fill, 1)
}

// Test reports a failure when ok, after negation, is false. It returns the
// final outcome.
func (a *Assumption) Test(predicate string, ok bool, expectation string, msgAndArgs ...any) bool {
	a.helper()
	if a.flags.Not {
		ok = !ok
	}
	if ok {
		return true
	}

	if h, isHandler := a.t.(FailureHandler); isHandler {
		h.HandleFailure(&Failure{
			Predicate:   predicate,
			Expectation: expectation,
			Message:     messageFromMsgAndArgs(msgAndArgs...),
		})
	}
	assert.Fail(a.t, expectation, msgAndArgs...)
	if a.failNow {
		if f, canStop := a.t.(failNower); canStop {
			f.FailNow()
		}
	}
	return false
}

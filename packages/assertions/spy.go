package assertions

import (
	"math"
	"reflect"
	"strconv"

	"github.com/abdul-hamid-achik/spyspec/packages/spy"
)

// SpyAssertions is the spy plugin. It adds the "consistently" flag, alias
// "always", and the call-history predicates.
func SpyAssertions(r *Registry, u Utils) {
	_ = r.AddFlag("consistently", func(f *Flags) { f.Consistently = true }, "always")

	s := spyAssertions{u: u}
	_ = r.Add("spylike", s.spylike)
	_ = r.Add("called", s.called)
	_ = r.Add("calledWithNew", s.calledWithNew)
	_ = r.Add("calledBefore", withOperand(s.calledBefore))
	_ = r.Add("calledAfter", withOperand(s.calledAfter))
	_ = r.Add("calledOn", withOperand(s.calledOn))
	_ = r.Add("calledWith", s.calledWith)
	_ = r.Add("calledWithMatch", s.calledWithMatch)
	_ = r.Add("calledWithExactly", s.calledWithExactly)
	_ = r.Add("returned", withOperand(s.returned))
	_ = r.Add("thrown", s.thrown)
}

// withOperand adapts a predicate with one required input. A missing input
// is passed as nil.
func withOperand(fn func(a *Assumption, v any, msgAndArgs ...any) bool) Predicate {
	return func(a *Assumption, args ...any) bool {
		a.helper()
		if len(args) == 0 {
			return fn(a, nil)
		}
		return fn(a, args[0], args[1:]...)
	}
}

// Spylike asserts that the subject is a spy or stands in for one.
func (a *Assumption) Spylike(msgAndArgs ...any) bool {
	a.helper()
	return a.plugin().spylike(a, msgAndArgs...)
}

// Called asserts that the subject was called. A leading integer is the
// exact number of calls expected; the remaining arguments are the failure
// message.
func (a *Assumption) Called(countAndMsg ...any) bool {
	a.helper()
	return a.plugin().called(a, countAndMsg...)
}

func (a *Assumption) CalledWithNew(msgAndArgs ...any) bool {
	a.helper()
	return a.plugin().calledWithNew(a, msgAndArgs...)
}

func (a *Assumption) CalledBefore(other any, msgAndArgs ...any) bool {
	a.helper()
	return a.plugin().calledBefore(a, other, msgAndArgs...)
}

func (a *Assumption) CalledAfter(other any, msgAndArgs ...any) bool {
	a.helper()
	return a.plugin().calledAfter(a, other, msgAndArgs...)
}

// CalledOn asserts the receiver of the call. Comparable receivers of the
// same type compare by identity.
func (a *Assumption) CalledOn(receiver any, msgAndArgs ...any) bool {
	a.helper()
	return a.plugin().calledOn(a, receiver, msgAndArgs...)
}

// CalledWith asserts that the leading arguments of a call equal args.
// Every element of args is one expected argument.
func (a *Assumption) CalledWith(args ...any) bool {
	a.helper()
	return a.plugin().calledWith(a, args...)
}

func (a *Assumption) CalledWithMatch(args ...any) bool {
	a.helper()
	return a.plugin().calledWithMatch(a, args...)
}

func (a *Assumption) CalledWithExactly(args ...any) bool {
	a.helper()
	return a.plugin().calledWithExactly(a, args...)
}

func (a *Assumption) Returned(value any, msgAndArgs ...any) bool {
	a.helper()
	return a.plugin().returned(a, value, msgAndArgs...)
}

// Thrown asserts that a call panicked or failed. A single string argument
// is the failure message; otherwise the first argument is the expected
// error, panic value or matcher.
func (a *Assumption) Thrown(errAndMsg ...any) bool {
	a.helper()
	return a.plugin().thrown(a, errAndMsg...)
}

func (a *Assumption) plugin() spyAssertions {
	return spyAssertions{u: a.utils}
}

type spyAssertions struct {
	u Utils
}

func (s spyAssertions) spylike(a *Assumption, msgAndArgs ...any) bool {
	a.helper()
	name := s.maybeSpyName(a.value)
	expect := s.u.Format(a.Expectation("`%s` to @ be a spy"), name)
	return a.Test("spylike", spy.IsSpyLike(a.value), expect, msgAndArgs...)
}

// subject runs the spy-like check on a fresh assumption and returns the
// history to query.
func (s spyAssertions) subject(a *Assumption, predicate string) (spy.History, bool) {
	a.helper()
	if !s.spylike(a.derive(a.value)) {
		return nil, false
	}
	h, ok := spy.Subject(a.value)
	if !ok {
		expect := s.u.Format("expected `%s` to expose its call history", s.maybeSpyName(a.value))
		a.derive(a.value).Test(predicate, false, expect)
		return nil, false
	}
	return h, true
}

func (s spyAssertions) called(a *Assumption, countAndMsg ...any) bool {
	a.helper()
	count, msgAndArgs := splitCount(countAndMsg)

	h, ok := s.subject(a, "called")
	if !ok {
		return false
	}

	if count != 0 {
		expect := a.Expectation("spy to @ be called " + countInWords(count) + ", called " + timesInWords(h.CallCount()))
		return a.Test("called", float64(h.CallCount()) == count, expect, msgAndArgs...)
	}
	return a.Test("called", h.Called(), a.Expectation("spy to @ be called at least once"), msgAndArgs...)
}

func (s spyAssertions) calledWithNew(a *Assumption, msgAndArgs ...any) bool {
	a.helper()
	h, ok := s.subject(a, "calledWithNew")
	if !ok {
		return false
	}

	query := h.CalledWithNew
	if a.flags.Consistently {
		query = h.AlwaysCalledWithNew
	}
	return a.Test("calledWithNew", query(), a.Expectation("spy to have @ been called with new"), msgAndArgs...)
}

func (s spyAssertions) calledBefore(a *Assumption, other any, msgAndArgs ...any) bool {
	a.helper()
	h, ok := s.subject(a, "calledBefore")
	if !ok {
		return false
	}

	query := h.CalledBefore
	if a.flags.Consistently {
		query = h.AlwaysCalledBefore
	}
	passed := false
	if o, isSpy := spy.Unwrap(other); isSpy {
		passed = query(o)
	}
	expect := s.u.Format(a.Expectation("spy to have @ been called before %s"), s.maybeSpyName(other))
	return a.Test("calledBefore", passed, expect, msgAndArgs...)
}

func (s spyAssertions) calledAfter(a *Assumption, other any, msgAndArgs ...any) bool {
	a.helper()
	h, ok := s.subject(a, "calledAfter")
	if !ok {
		return false
	}

	query := h.CalledAfter
	if a.flags.Consistently {
		query = h.AlwaysCalledAfter
	}
	passed := false
	if o, isSpy := spy.Unwrap(other); isSpy {
		passed = query(o)
	}
	expect := s.u.Format(a.Expectation("spy to have @ been called after %s"), s.maybeSpyName(other))
	return a.Test("calledAfter", passed, expect, msgAndArgs...)
}

func (s spyAssertions) calledOn(a *Assumption, receiver any, msgAndArgs ...any) bool {
	a.helper()
	h, ok := s.subject(a, "calledOn")
	if !ok {
		return false
	}

	query := h.CalledOn
	if a.flags.Consistently {
		query = h.AlwaysCalledOn
	}
	expect := s.u.Format(a.Expectation("spy to have @ been called with %j as receiver"), receiver)
	return a.Test("calledOn", query(receiver), expect, msgAndArgs...)
}

func (s spyAssertions) calledWith(a *Assumption, args ...any) bool {
	a.helper()
	h, ok := s.subject(a, "calledWith")
	if !ok {
		return false
	}

	query := h.CalledWith
	if a.flags.Consistently {
		query = h.AlwaysCalledWith
	}
	expect := s.u.Format(a.Expectation("spy to have @ been called with arguments %j, called with %j"), orEmpty(args), h.CallArgs())
	return a.Test("calledWith", query(args...), expect)
}

func (s spyAssertions) calledWithMatch(a *Assumption, args ...any) bool {
	a.helper()
	h, ok := s.subject(a, "calledWithMatch")
	if !ok {
		return false
	}

	query := h.CalledWithMatch
	if a.flags.Consistently {
		query = h.AlwaysCalledWithMatch
	}
	expect := s.u.Format(a.Expectation("spy to have @ been called with arguments matching %j, called with %j"), orEmpty(args), h.CallArgs())
	return a.Test("calledWithMatch", query(args...), expect)
}

func (s spyAssertions) calledWithExactly(a *Assumption, args ...any) bool {
	a.helper()
	h, ok := s.subject(a, "calledWithExactly")
	if !ok {
		return false
	}

	query := h.CalledWithExactly
	if a.flags.Consistently {
		query = h.AlwaysCalledWithExactly
	}
	expect := s.u.Format(a.Expectation("spy to have @ been called with exact arguments %j, called with %j"), orEmpty(args), h.CallArgs())
	return a.Test("calledWithExactly", query(args...), expect)
}

func (s spyAssertions) returned(a *Assumption, value any, msgAndArgs ...any) bool {
	a.helper()
	h, ok := s.subject(a, "returned")
	if !ok {
		return false
	}

	query := h.Returned
	if a.flags.Consistently {
		query = h.AlwaysReturned
	}
	expect := s.u.Format(a.Expectation("spy to have @ returned %j, returned %j"), value, h.ReturnValues())
	return a.Test("returned", query(value), expect, msgAndArgs...)
}

func (s spyAssertions) thrown(a *Assumption, errAndMsg ...any) bool {
	a.helper()
	expected, hasExpected, msgAndArgs := splitThrown(errAndMsg)

	h, ok := s.subject(a, "thrown")
	if !ok {
		return false
	}

	query := h.Threw
	if a.flags.Consistently {
		query = h.AlwaysThrew
	}
	if hasExpected {
		expect := s.u.Format(a.Expectation("spy to have @ thrown %j, threw %j"), expected, h.Exceptions())
		return a.Test("thrown", query(expected), expect, msgAndArgs...)
	}
	expect := s.u.Format(a.Expectation("spy to have @ thrown, threw %j"), h.Exceptions())
	return a.Test("thrown", query(), expect, msgAndArgs...)
}

// maybeSpyName renders spies and functions by name, anything else by its
// string form.
func (s spyAssertions) maybeSpyName(v any) string {
	switch s.u.Type(v) {
	case "spy", "function":
		if name := s.u.Name(v); name != "" {
			return name
		}
	}
	return s.u.String(v)
}

func timesInWords(count int) string {
	switch count {
	case 1:
		return "once"
	case 2:
		return "twice"
	case 3:
		return "thrice"
	}
	return strconv.Itoa(count) + " times"
}

func countInWords(count float64) string {
	if count == math.Trunc(count) && math.Abs(count) < math.MaxInt32 {
		return timesInWords(int(count))
	}
	return strconv.FormatFloat(count, 'g', -1, 64) + " times"
}

// splitCount separates a leading numeric count from the message arguments.
// Any non-zero number is compared exactly against the call count, so
// negative and fractional counts never pass. Zero and NaN mean "no count".
func splitCount(args []any) (float64, []any) {
	if len(args) == 0 || args[0] == nil {
		return 0, args
	}
	rv := reflect.ValueOf(args[0])
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), args[1:]
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), args[1:]
	case reflect.Float32, reflect.Float64:
		if f := rv.Float(); !math.IsNaN(f) {
			return f, args[1:]
		}
		return 0, args[1:]
	}
	return 0, args
}

// splitThrown separates the expected throw from the message arguments. A
// lone string is a message.
func splitThrown(args []any) (expected any, hasExpected bool, msgAndArgs []any) {
	if len(args) == 0 {
		return nil, false, nil
	}
	if _, isString := args[0].(string); isString && len(args) == 1 {
		return nil, false, args
	}
	if args[0] == nil {
		return nil, false, args[1:]
	}
	return args[0], true, args[1:]
}

func orEmpty(args []any) []any {
	if args == nil {
		return []any{}
	}
	return args
}

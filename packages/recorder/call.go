package recorder

import (
	"fmt"
	"reflect"
	"time"

	"github.com/abdul-hamid-achik/spyspec/packages/spy"
)

// Call is one recorded invocation. It answers history queries about itself,
// so a single call can be asserted on exactly like a spy.
type Call struct {
	spy         *Spy
	id          uint64
	args        []any
	receiver    any
	returnValue any
	exception   any
	constructed bool
	duration    time.Duration
}

var (
	_ spy.Call    = (*Call)(nil)
	_ spy.History = (*Call)(nil)
)

func newCall(s *Spy, id uint64, inv Invocation) *Call {
	args := make([]any, len(inv.Args))
	copy(args, inv.Args)
	return &Call{
		spy:         s,
		id:          id,
		args:        args,
		receiver:    inv.Receiver,
		returnValue: inv.Return,
		exception:   inv.Exception,
		constructed: inv.Constructed,
		duration:    inv.Duration,
	}
}

func (c *Call) Proxy() spy.SpyLike { return c.spy }

func (c *Call) ID() uint64 { return c.id }

func (c *Call) Args() []any {
	out := make([]any, len(c.args))
	copy(out, c.args)
	return out
}

func (c *Call) Receiver() any             { return c.receiver }
func (c *Call) ReturnValue() any          { return c.returnValue }
func (c *Call) Exception() any            { return c.exception }
func (c *Call) Constructed() bool         { return c.constructed }
func (c *Call) Duration() time.Duration   { return c.duration }
func (c *Call) Name() string              { return fmt.Sprintf("%s#%d", c.spy.name, c.id) }
func (c *Call) CallCount() int            { return 1 }
func (c *Call) Called() bool              { return true }
func (c *Call) CallIDs() []uint64         { return []uint64{c.id} }
func (c *Call) CallArgs() [][]any         { return [][]any{c.Args()} }
func (c *Call) ReturnValues() []any       { return []any{c.returnValue} }
func (c *Call) Exceptions() []any         { return []any{c.exception} }
func (c *Call) CalledWithNew() bool       { return c.constructed }
func (c *Call) AlwaysCalledWithNew() bool { return c.constructed }

func (c *Call) GetCall(n int) spy.Call {
	if n != 0 {
		return nil
	}
	return c
}

func (c *Call) CalledBefore(other spy.SpyLike) bool {
	return calledBefore(c.CallIDs(), spy.CallIDs(other))
}

func (c *Call) AlwaysCalledBefore(other spy.SpyLike) bool {
	return alwaysCalledBefore(c.CallIDs(), spy.CallIDs(other))
}

func (c *Call) CalledAfter(other spy.SpyLike) bool {
	return calledAfter(c.CallIDs(), spy.CallIDs(other))
}

func (c *Call) AlwaysCalledAfter(other spy.SpyLike) bool {
	return alwaysCalledAfter(c.CallIDs(), spy.CallIDs(other))
}

func (c *Call) CalledOn(receiver any) bool       { return c.calledOn(receiver) }
func (c *Call) AlwaysCalledOn(receiver any) bool { return c.calledOn(receiver) }

func (c *Call) CalledWith(args ...any) bool       { return c.calledWith(args) }
func (c *Call) AlwaysCalledWith(args ...any) bool { return c.calledWith(args) }

func (c *Call) CalledWithMatch(args ...any) bool       { return c.calledWithMatch(args) }
func (c *Call) AlwaysCalledWithMatch(args ...any) bool { return c.calledWithMatch(args) }

func (c *Call) CalledWithExactly(args ...any) bool       { return c.calledWithExactly(args) }
func (c *Call) AlwaysCalledWithExactly(args ...any) bool { return c.calledWithExactly(args) }

func (c *Call) Returned(value any) bool       { return c.returned(value) }
func (c *Call) AlwaysReturned(value any) bool { return c.returned(value) }

func (c *Call) Threw(expected ...any) bool       { return c.threw(expected) }
func (c *Call) AlwaysThrew(expected ...any) bool { return c.threw(expected) }

// calledWith reports whether the leading arguments equal args; extra
// trailing arguments are allowed.
func (c *Call) calledWith(args []any) bool {
	if len(args) > len(c.args) {
		return false
	}
	for i, want := range args {
		if !spy.Equal(c.args[i], want) {
			return false
		}
	}
	return true
}

func (c *Call) calledWithExactly(args []any) bool {
	return len(args) == len(c.args) && c.calledWith(args)
}

func (c *Call) calledWithMatch(args []any) bool {
	if len(args) > len(c.args) {
		return false
	}
	for i, want := range args {
		if !spy.Match(want).Matches(c.args[i]) {
			return false
		}
	}
	return true
}

// calledOn compares receivers by identity where the type allows it and by
// deep equality otherwise.
func (c *Call) calledOn(receiver any) bool {
	if m, ok := receiver.(spy.Matcher); ok {
		return m.Matches(c.receiver)
	}
	if c.receiver != nil && receiver != nil {
		t := reflect.TypeOf(receiver)
		if reflect.TypeOf(c.receiver) == t && t.Comparable() {
			return spy.Same(receiver).Matches(c.receiver)
		}
	}
	return spy.Equal(c.receiver, receiver)
}

func (c *Call) returned(value any) bool {
	return spy.Equal(c.returnValue, value)
}

func (c *Call) threw(expected []any) bool {
	if len(expected) == 0 || expected[0] == nil {
		return c.exception != nil
	}
	return spy.ThrowMatches(c.exception, expected[0])
}

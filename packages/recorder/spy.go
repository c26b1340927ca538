package recorder

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/abdul-hamid-achik/spyspec/packages/spy"
	"github.com/google/uuid"
)

// sequence orders calls across every spy in the process.
var sequence atomic.Uint64

func nextID() uint64 {
	return sequence.Add(1)
}

// observe moves the sequence past an id read from a recording so that calls
// recorded afterwards still sort later.
func observe(id uint64) {
	for {
		cur := sequence.Load()
		if id <= cur || sequence.CompareAndSwap(cur, id) {
			return
		}
	}
}

// Invocation describes one call to record.
type Invocation struct {
	Args        []any
	Receiver    any
	Return      any
	Exception   any
	Constructed bool
	Duration    time.Duration
}

// Spy is a named, concurrency-safe call history.
type Spy struct {
	id   string
	name string

	mu    sync.RWMutex
	calls []*Call
}

var (
	_ spy.History = (*Spy)(nil)
	_ spy.Named   = (*Spy)(nil)
)

// New creates an empty spy.
func New(name string) *Spy {
	return &Spy{
		id:   uuid.NewString(),
		name: name,
	}
}

// ID returns the spy's unique identifier.
func (s *Spy) ID() string { return s.id }

// Name returns the declared name. A nil spy has none.
func (s *Spy) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

func (s *Spy) String() string {
	if s == nil {
		return "nil"
	}
	return s.name
}

// Record appends an invocation to the history and returns its call record.
func (s *Spy) Record(inv Invocation) *Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := newCall(s, nextID(), inv)
	s.calls = append(s.calls, c)
	return c
}

// Reset forgets every recorded call.
func (s *Spy) Reset() {
	s.mu.Lock()
	s.calls = nil
	s.mu.Unlock()
}

// Calls returns a copy of the recorded calls in call order.
func (s *Spy) Calls() []*Call {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Call, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *Spy) CallCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.calls)
}

func (s *Spy) Called() bool { return s.CallCount() > 0 }

// GetCall returns the n-th call, or nil when there is none.
func (s *Spy) GetCall(n int) spy.Call {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n < 0 || n >= len(s.calls) {
		return nil
	}
	return s.calls[n]
}

func (s *Spy) CallIDs() []uint64 {
	calls := s.Calls()
	ids := make([]uint64, len(calls))
	for i, c := range calls {
		ids[i] = c.id
	}
	return ids
}

func (s *Spy) CallArgs() [][]any {
	calls := s.Calls()
	out := make([][]any, len(calls))
	for i, c := range calls {
		out[i] = c.Args()
	}
	return out
}

func (s *Spy) ReturnValues() []any {
	calls := s.Calls()
	out := make([]any, len(calls))
	for i, c := range calls {
		out[i] = c.returnValue
	}
	return out
}

func (s *Spy) Exceptions() []any {
	calls := s.Calls()
	out := make([]any, len(calls))
	for i, c := range calls {
		out[i] = c.exception
	}
	return out
}

func (s *Spy) some(match func(*Call) bool) bool {
	for _, c := range s.Calls() {
		if match(c) {
			return true
		}
	}
	return false
}

func (s *Spy) every(match func(*Call) bool) bool {
	calls := s.Calls()
	if len(calls) == 0 {
		return false
	}
	for _, c := range calls {
		if !match(c) {
			return false
		}
	}
	return true
}

func (s *Spy) CalledWithNew() bool       { return s.some((*Call).Constructed) }
func (s *Spy) AlwaysCalledWithNew() bool { return s.every((*Call).Constructed) }

func (s *Spy) CalledBefore(other spy.SpyLike) bool {
	return calledBefore(s.CallIDs(), spy.CallIDs(other))
}

func (s *Spy) AlwaysCalledBefore(other spy.SpyLike) bool {
	return alwaysCalledBefore(s.CallIDs(), spy.CallIDs(other))
}

func (s *Spy) CalledAfter(other spy.SpyLike) bool {
	return calledAfter(s.CallIDs(), spy.CallIDs(other))
}

func (s *Spy) AlwaysCalledAfter(other spy.SpyLike) bool {
	return alwaysCalledAfter(s.CallIDs(), spy.CallIDs(other))
}

func (s *Spy) CalledOn(receiver any) bool {
	return s.some(func(c *Call) bool { return c.calledOn(receiver) })
}

func (s *Spy) AlwaysCalledOn(receiver any) bool {
	return s.every(func(c *Call) bool { return c.calledOn(receiver) })
}

func (s *Spy) CalledWith(args ...any) bool {
	return s.some(func(c *Call) bool { return c.calledWith(args) })
}

func (s *Spy) AlwaysCalledWith(args ...any) bool {
	return s.every(func(c *Call) bool { return c.calledWith(args) })
}

func (s *Spy) CalledWithMatch(args ...any) bool {
	return s.some(func(c *Call) bool { return c.calledWithMatch(args) })
}

func (s *Spy) AlwaysCalledWithMatch(args ...any) bool {
	return s.every(func(c *Call) bool { return c.calledWithMatch(args) })
}

func (s *Spy) CalledWithExactly(args ...any) bool {
	return s.some(func(c *Call) bool { return c.calledWithExactly(args) })
}

func (s *Spy) AlwaysCalledWithExactly(args ...any) bool {
	return s.every(func(c *Call) bool { return c.calledWithExactly(args) })
}

func (s *Spy) Returned(value any) bool {
	return s.some(func(c *Call) bool { return c.returned(value) })
}

func (s *Spy) AlwaysReturned(value any) bool {
	return s.every(func(c *Call) bool { return c.returned(value) })
}

func (s *Spy) Threw(expected ...any) bool {
	return s.some(func(c *Call) bool { return c.threw(expected) })
}

func (s *Spy) AlwaysThrew(expected ...any) bool {
	return s.every(func(c *Call) bool { return c.threw(expected) })
}

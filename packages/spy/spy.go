package spy

import (
	"reflect"
	"time"
)

// SpyLike is the minimal capability set that identifies a spy: a call count,
// access to individual calls and an exact-arguments query.
type SpyLike interface {
	CallCount() int
	GetCall(n int) Call
	CalledWithExactly(args ...any) bool
}

// Proxied is implemented by values that stand in for a spy.
type Proxied interface {
	Proxy() SpyLike
}

// Named is implemented by spies that carry a declared name.
type Named interface {
	Name() string
}

// Call is one recorded invocation.
type Call interface {
	Proxied

	// ID is a process-wide sequence number; lower ids happened first.
	ID() uint64
	Args() []any
	Receiver() any
	ReturnValue() any
	// Exception is the panic value or error the invocation produced, or nil.
	Exception() any
	// Constructed reports whether the invocation was a constructor call.
	Constructed() bool
	Duration() time.Duration
}

// History is the read-only call-history query surface. Every Always variant
// is false when nothing was recorded.
type History interface {
	SpyLike

	Called() bool
	CallArgs() [][]any
	ReturnValues() []any
	Exceptions() []any

	CalledWithNew() bool
	AlwaysCalledWithNew() bool
	CalledBefore(other SpyLike) bool
	AlwaysCalledBefore(other SpyLike) bool
	CalledAfter(other SpyLike) bool
	AlwaysCalledAfter(other SpyLike) bool
	CalledOn(receiver any) bool
	AlwaysCalledOn(receiver any) bool
	CalledWith(args ...any) bool
	AlwaysCalledWith(args ...any) bool
	CalledWithMatch(args ...any) bool
	AlwaysCalledWithMatch(args ...any) bool
	AlwaysCalledWithExactly(args ...any) bool
	Returned(value any) bool
	AlwaysReturned(value any) bool
	Threw(expected ...any) bool
	AlwaysThrew(expected ...any) bool
}

// IsSpyLike reports whether v is a spy or a proxy for one.
func IsSpyLike(v any) bool {
	_, ok := Unwrap(v)
	return ok
}

// Unwrap returns the spy behind v. The value itself wins over its proxy.
func Unwrap(v any) (SpyLike, bool) {
	if isNil(v) {
		return nil, false
	}
	if s, ok := v.(SpyLike); ok {
		return s, true
	}
	if p, ok := v.(Proxied); ok {
		s := p.Proxy()
		if !isNil(s) {
			return s, true
		}
	}
	return nil, false
}

// Subject returns the History that answers queries about v: v itself when it
// carries the query surface, otherwise the spy it proxies for.
func Subject(v any) (History, bool) {
	if isNil(v) {
		return nil, false
	}
	if h, ok := v.(History); ok {
		return h, true
	}
	if p, ok := v.(Proxied); ok {
		if h, ok := p.Proxy().(History); ok && !isNil(h) {
			return h, true
		}
	}
	return nil, false
}

// CallIDs returns the ids of every call recorded by s, in call order.
func CallIDs(s SpyLike) []uint64 {
	if isNil(s) {
		return nil
	}
	if withIDs, ok := s.(interface{ CallIDs() []uint64 }); ok {
		return withIDs.CallIDs()
	}
	ids := make([]uint64, 0, s.CallCount())
	for i := 0; i < s.CallCount(); i++ {
		if c := s.GetCall(i); c != nil {
			ids = append(ids, c.ID())
		}
	}
	return ids
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

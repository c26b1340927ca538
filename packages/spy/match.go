package spy

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/tidwall/gjson"
)

// Matcher is a representation of a class of values. It is compatible with
// gomock.Matcher.
type Matcher interface {
	// Matches returns whether x is a match.
	Matches(x any) bool

	// String describes what the matcher matches.
	String() string
}

var (
	// exportAll lets cmp descend into unexported fields instead of panicking.
	exportAll = cmp.Exporter(func(reflect.Type) bool { return true })

	numbers = cmp.FilterValues(func(x, y any) bool {
		_, xOk := toFloat64(x)
		_, yOk := toFloat64(y)
		return xOk && yOk
	}, cmp.Comparer(func(x, y any) bool {
		a, _ := toFloat64(x)
		b, _ := toFloat64(y)
		return a == b
	}))

	// Nested matchers, on exactly one side so the comparison stays symmetric.
	matchers = cmp.FilterValues(func(x, y any) bool {
		_, xOk := x.(Matcher)
		_, yOk := y.(Matcher)
		return xOk != yOk
	}, cmp.Comparer(func(x, y any) bool {
		if m, ok := y.(Matcher); ok {
			return m.Matches(x)
		}
		return x.(Matcher).Matches(y)
	}))
)

// Equal reports whether a recorded value equals an expectation. Matcher
// expectations are asked directly, at any depth, and numbers of different
// kinds compare by value.
func Equal(actual, expected any) bool {
	if m, ok := expected.(Matcher); ok {
		return m.Matches(actual)
	}
	return cmp.Equal(actual, expected, exportAll, numbers, matchers)
}

// Match converts an expectation into the matcher used by calledWithMatch:
// strings match by substring, regular expressions by pattern, maps by
// recursive subset and predicates by calling them.
func Match(expected any) Matcher {
	switch e := expected.(type) {
	case Matcher:
		return e
	case string:
		return Contains(e)
	case *regexp.Regexp:
		return regexpMatcher{re: e}
	case map[string]any:
		return subsetMatcher{want: e}
	case func(any) bool:
		return Func("custom predicate", e)
	default:
		return Eq(e)
	}
}

// ThrowMatches reports whether a recorded exception satisfies expected.
// Errors compare with errors.Is; strings compare against a panic value, an
// error message or the error's dynamic type name.
func ThrowMatches(exception, expected any) bool {
	if exception == nil {
		return false
	}
	switch e := expected.(type) {
	case Matcher:
		return e.Matches(exception)
	case error:
		if err, ok := exception.(error); ok && errors.Is(err, e) {
			return true
		}
		return Equal(exception, e)
	case string:
		switch x := exception.(type) {
		case string:
			return x == e
		case error:
			return x.Error() == e || reflect.TypeOf(x).String() == e
		}
		return false
	default:
		return Equal(exception, expected)
	}
}

type anyMatcher struct{}

// Any matches every value, nil included.
func Any() Matcher { return anyMatcher{} }

func (anyMatcher) Matches(any) bool { return true }
func (anyMatcher) String() string   { return "any" }

type eqMatcher struct{ want any }

// Eq matches values equal to want.
func Eq(want any) Matcher { return eqMatcher{want: want} }

func (m eqMatcher) Matches(x any) bool { return Equal(x, m.want) }
func (m eqMatcher) String() string     { return fmt.Sprintf("is equal to %v", m.want) }

type sameMatcher struct{ want any }

// Same matches only the identical value: pointers by address, other
// comparable values with ==.
func Same(want any) Matcher { return sameMatcher{want: want} }

func (m sameMatcher) Matches(x any) bool { return identical(x, m.want) }
func (m sameMatcher) String() string     { return fmt.Sprintf("is the same as %v", m.want) }

type typeMatcher[T any] struct{}

// TypeOf matches values whose dynamic type is, or implements, T.
func TypeOf[T any]() Matcher { return typeMatcher[T]{} }

func (typeMatcher[T]) Matches(x any) bool {
	_, ok := x.(T)
	return ok
}

func (typeMatcher[T]) String() string {
	return "type " + reflect.TypeOf((*T)(nil)).Elem().String()
}

type regexpMatcher struct{ re *regexp.Regexp }

// Regexp matches strings, errors and Stringers whose text matches pattern.
// It panics if pattern does not compile.
func Regexp(pattern string) Matcher {
	return regexpMatcher{re: regexp.MustCompile(pattern)}
}

func (m regexpMatcher) Matches(x any) bool {
	s, ok := text(x)
	return ok && m.re.MatchString(s)
}

func (m regexpMatcher) String() string { return "matches /" + m.re.String() + "/" }

type containsMatcher struct{ substr string }

// Contains matches strings, errors and Stringers containing substr.
func Contains(substr string) Matcher { return containsMatcher{substr: substr} }

func (m containsMatcher) Matches(x any) bool {
	s, ok := text(x)
	return ok && strings.Contains(s, m.substr)
}

func (m containsMatcher) String() string { return fmt.Sprintf("contains %q", m.substr) }

type funcMatcher struct {
	desc string
	fn   func(any) bool
}

// Func wraps a predicate as a Matcher.
func Func(desc string, fn func(any) bool) Matcher {
	return funcMatcher{desc: desc, fn: fn}
}

func (m funcMatcher) Matches(x any) bool { return m.fn(x) }
func (m funcMatcher) String() string     { return m.desc }

type notMatcher struct{ m Matcher }

// Not inverts a matcher.
func Not(m Matcher) Matcher { return notMatcher{m: m} }

func (n notMatcher) Matches(x any) bool { return !n.m.Matches(x) }
func (n notMatcher) String() string     { return "not(" + n.m.String() + ")" }

type pathMatcher struct {
	path string
	want any
}

// Path matches values whose JSON form holds want at the given gjson path.
// Strings and byte slices that already contain JSON are queried as-is.
func Path(path string, want any) Matcher {
	return pathMatcher{path: path, want: want}
}

func (m pathMatcher) Matches(x any) bool {
	var result gjson.Result
	switch v := x.(type) {
	case string:
		if !gjson.Valid(v) {
			return false
		}
		result = gjson.Get(v, m.path)
	case []byte:
		if !gjson.ValidBytes(v) {
			return false
		}
		result = gjson.GetBytes(v, m.path)
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return false
		}
		result = gjson.GetBytes(data, m.path)
	}
	if !result.Exists() {
		return false
	}
	return Equal(result.Value(), m.want)
}

func (m pathMatcher) String() string { return fmt.Sprintf("has %s == %v", m.path, m.want) }

type subsetMatcher struct{ want map[string]any }

func (m subsetMatcher) Matches(x any) bool {
	got, ok := asMap(x)
	if !ok {
		return false
	}
	for k, want := range m.want {
		v, exists := got[k]
		if !exists || !Match(want).Matches(v) {
			return false
		}
	}
	return true
}

func (m subsetMatcher) String() string {
	keys := make([]string, 0, len(m.want))
	for k := range m.want {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "has fields " + strings.Join(keys, ", ")
}

// asMap views maps with string keys, and structs through their JSON form, as
// map[string]any.
func asMap(x any) (map[string]any, bool) {
	if m, ok := x.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(x)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Struct:
	default:
		return nil, false
	}
	data, err := json.Marshal(x)
	if err != nil {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false
	}
	return m, true
}

func text(x any) (string, bool) {
	switch v := x.(type) {
	case string:
		return v, true
	case error:
		return v.Error(), true
	case fmt.Stringer:
		return v.String(), true
	case []byte:
		return string(v), true
	}
	return "", false
}

func identical(a, b any) (same bool) {
	// Comparable static types can still hold incomparable dynamic values.
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case int16:
		return float64(n), true
	case int8:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint8:
		return float64(n), true
	case json.Number:
		if f, err := strconv.ParseFloat(string(n), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

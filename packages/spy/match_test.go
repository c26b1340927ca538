package spy

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

type user struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	email string
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name     string
		actual   any
		expected any
		want     bool
	}{
		{name: "equal strings", actual: "A", expected: "A", want: true},
		{name: "different strings", actual: "A", expected: "B", want: false},
		{name: "int and float", actual: float64(3), expected: 3, want: true},
		{name: "nil and nil", actual: nil, expected: nil, want: true},
		{name: "nil and value", actual: nil, expected: "A", want: false},
		{name: "slices", actual: []any{"a", 1}, expected: []any{"a", 1}, want: true},
		{name: "structs with unexported fields", actual: user{ID: 1, email: "a"}, expected: user{ID: 1, email: "a"}, want: true},
		{name: "structs differing in unexported field", actual: user{ID: 1, email: "a"}, expected: user{ID: 1, email: "b"}, want: false},
		{name: "matcher expectation", actual: "anything", expected: Any(), want: true},
		{name: "pointers compare by value", actual: &user{ID: 2}, expected: &user{ID: 2}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.actual, tt.expected))
		})
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		expected any
		actual   any
		want     bool
	}{
		{name: "substring", expected: "ell", actual: "hello", want: true},
		{name: "substring miss", expected: "xyz", actual: "hello", want: false},
		{name: "substring of error", expected: "denied", actual: errors.New("access denied"), want: true},
		{name: "regexp", expected: regexp.MustCompile(`^h.*o$`), actual: "hello", want: true},
		{name: "map subset", expected: map[string]any{"id": 1}, actual: map[string]any{"id": float64(1), "name": "x"}, want: true},
		{name: "map subset miss", expected: map[string]any{"id": 2}, actual: map[string]any{"id": 1}, want: false},
		{name: "struct as map", expected: map[string]any{"name": "Ann"}, actual: user{ID: 1, Name: "Ann"}, want: true},
		{name: "nested map subset", expected: map[string]any{"user": map[string]any{"name": "An"}}, actual: map[string]any{"user": map[string]any{"name": "Ann", "id": 3}}, want: true},
		{name: "predicate", expected: func(x any) bool { return x == 42 }, actual: 42, want: true},
		{name: "number", expected: 5, actual: 5, want: true},
		{name: "number miss", expected: 5, actual: 6, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.expected).Matches(tt.actual))
		})
	}
}

func TestMatchers(t *testing.T) {
	t.Run("any", func(t *testing.T) {
		assert.True(t, Any().Matches(nil))
		assert.Equal(t, "any", Any().String())
	})

	t.Run("same", func(t *testing.T) {
		a, b := &user{ID: 1}, &user{ID: 1}
		assert.True(t, Same(a).Matches(a))
		assert.False(t, Same(a).Matches(b))
		assert.False(t, Same([]int{1}).Matches([]int{1}))
	})

	t.Run("type", func(t *testing.T) {
		assert.True(t, TypeOf[string]().Matches("x"))
		assert.False(t, TypeOf[string]().Matches(1))
		assert.True(t, TypeOf[error]().Matches(errors.New("x")))
		assert.Equal(t, "type string", TypeOf[string]().String())
	})

	t.Run("regexp", func(t *testing.T) {
		assert.True(t, Regexp(`\d+`).Matches("abc123"))
		assert.False(t, Regexp(`\d+`).Matches(123))
	})

	t.Run("not", func(t *testing.T) {
		assert.True(t, Not(Eq("a")).Matches("b"))
		assert.Equal(t, "not(is equal to a)", Not(Eq("a")).String())
	})

	t.Run("path", func(t *testing.T) {
		v := map[string]any{"user": map[string]any{"id": 7, "tags": []string{"a", "b"}}}
		assert.True(t, Path("user.id", 7).Matches(v))
		assert.True(t, Path("user.tags.1", "b").Matches(v))
		assert.False(t, Path("user.missing", 7).Matches(v))
		assert.True(t, Path("name", "Ann").Matches(`{"name":"Ann"}`))
		assert.False(t, Path("name", "Ann").Matches("not json"))
		assert.True(t, Path("id", Any()).Matches(user{ID: 3}))
	})
}

func TestThrowMatches(t *testing.T) {
	sentinel := errors.New("boom")
	wrapped := fmt.Errorf("save: %w", sentinel)
	pathErr := &fs.PathError{Op: "open", Path: "x", Err: fs.ErrNotExist}

	tests := []struct {
		name      string
		exception any
		expected  any
		want      bool
	}{
		{name: "nothing thrown", exception: nil, expected: Any(), want: false},
		{name: "errors.Is", exception: wrapped, expected: sentinel, want: true},
		{name: "different error", exception: errors.New("other"), expected: sentinel, want: false},
		{name: "panic string", exception: "boom", expected: "boom", want: true},
		{name: "error message", exception: sentinel, expected: "boom", want: true},
		{name: "error type name", exception: pathErr, expected: "*fs.PathError", want: true},
		{name: "matcher", exception: wrapped, expected: Contains("save"), want: true},
		{name: "panic value", exception: 42, expected: 42, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ThrowMatches(tt.exception, tt.expected))
		})
	}
}

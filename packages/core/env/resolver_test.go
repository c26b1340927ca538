package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolverResolve(t *testing.T) {
	t.Setenv("SPYSPEC_TEST_DIR", "/tmp/recordings")

	tests := []struct {
		name      string
		input     string
		variables map[string]any
		expected  string
	}{
		{name: "no variables", input: "hello world", expected: "hello world"},
		{name: "variable", input: "{{dir}}/save.json", variables: map[string]any{"dir": "out"}, expected: "out/save.json"},
		{name: "spaces inside braces", input: "{{ dir }}", variables: map[string]any{"dir": "out"}, expected: "out"},
		{name: "number", input: "id-{{id}}", variables: map[string]any{"id": 7}, expected: "id-7"},
		{name: "environment", input: "{{$SPYSPEC_TEST_DIR}}/a.json", expected: "/tmp/recordings/a.json"},
		{name: "unresolved kept", input: "{{missing}}", expected: "{{missing}}"},
		{name: "unset environment kept", input: "{{$SPYSPEC_TEST_UNSET}}", expected: "{{$SPYSPEC_TEST_UNSET}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver()
			r.SetVariables(tt.variables)
			assert.Equal(t, tt.expected, r.Resolve(tt.input))
		})
	}
}

func TestResolverWarnsOnUnresolved(t *testing.T) {
	var warnings []string
	r := NewResolver()
	r.SetWarnFunc(func(format string, args ...any) {
		warnings = append(warnings, format)
	})

	r.Resolve("{{a}} {{$SPYSPEC_TEST_UNSET}}")
	assert.Equal(t, []string{"unresolved variable: %s", "unresolved environment variable: $%s"}, warnings)
}

func TestResolverResolveValue(t *testing.T) {
	r := NewResolver()
	r.SetVariables(map[string]any{"user": "ada", "limit": 10})

	got := r.ResolveValue([]any{
		"{{user}}",
		"{{limit}}",
		"max {{limit}}",
		map[string]any{"owner": "{{user}}", "n": 1},
		true,
	})
	assert.Equal(t, []any{"ada", 10, "max 10", map[string]any{"owner": "ada", "n": 1}, true}, got)
}

func TestResolverUnresolved(t *testing.T) {
	t.Setenv("SPYSPEC_TEST_SET", "1")
	r := NewResolver()
	r.SetVariable("foo", "bar")

	assert.Empty(t, r.Unresolved("{{foo}} {{$SPYSPEC_TEST_SET}}"))
	assert.Equal(t, []string{"bar", "$SPYSPEC_TEST_UNSET"}, r.Unresolved("{{foo}} {{bar}} {{$SPYSPEC_TEST_UNSET}}"))
}

func TestMergeVariables(t *testing.T) {
	got := MergeVariables(
		map[string]any{"a": 1, "b": 1},
		nil,
		map[string]any{"b": 2},
	)
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, got)
}

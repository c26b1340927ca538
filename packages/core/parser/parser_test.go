package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/abdul-hamid-achik/spyspec/packages/spy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_SimpleFile(t *testing.T) {
	input := `name: repository
recording: ./recordings/save.json
checks:
  - spy: save
    expect: called
    count: 2
  - name: always with A
    spy: save
    expect: to have always been calledWith
    args: ["A", 1, true]
    tags: [smoke, args]
`
	file, err := Parse(input, "repo.spy.yaml")
	require.NoError(t, err)

	assert.Equal(t, "repository", file.Name)
	assert.Equal(t, "./recordings/save.json", file.Recording)
	require.Len(t, file.Checks, 2)

	first := file.Checks[0]
	assert.Equal(t, "save called", first.Name)
	assert.Equal(t, "save", first.Spy)
	assert.Equal(t, "called", first.Expect)
	assert.Equal(t, 2, first.Count)
	assert.Equal(t, 4, first.Line)
	assert.Empty(t, first.Args)

	second := file.Checks[1]
	assert.Equal(t, "always with A", second.Name)
	assert.Equal(t, []any{"A", 1, true}, second.Args)
	assert.Equal(t, []string{"smoke", "args"}, second.Tags)
	assert.Equal(t, 7, second.Line)
}

func TestParser_DefaultName(t *testing.T) {
	file, err := Parse("checks: []\n", "dir/orders.spy.yml")
	require.NoError(t, err)
	assert.Equal(t, "orders", file.Name)
	assert.Empty(t, file.Checks)
}

func TestParser_CallAndOther(t *testing.T) {
	input := `checks:
  - spy: save
    call: 1
    expect: calledAfter
    other: load
    otherCall: 0
`
	file, err := Parse(input, "t.spy.yaml")
	require.NoError(t, err)
	c := file.Checks[0]
	require.NotNil(t, c.Call)
	assert.Equal(t, 1, *c.Call)
	require.NotNil(t, c.OtherCall)
	assert.Equal(t, 0, *c.OtherCall)
	assert.Equal(t, "load", c.Other)
	assert.Equal(t, "save#1 calledAfter", c.Name)
}

func TestParser_ValueAndReceiver(t *testing.T) {
	input := `checks:
  - spy: lookup
    expect: returned
    value: null
  - spy: method
    expect: calledOn
    receiver: {id: repo, shards: [1, 2]}
  - spy: risky
    expect: thrown
`
	file, err := Parse(input, "t.spy.yaml")
	require.NoError(t, err)
	require.Len(t, file.Checks, 3)

	assert.True(t, file.Checks[0].HasValue)
	assert.Nil(t, file.Checks[0].Value)

	assert.Equal(t, map[string]any{"id": "repo", "shards": []any{1, 2}}, file.Checks[1].Receiver)

	assert.False(t, file.Checks[2].HasValue)
}

func TestParser_Matchers(t *testing.T) {
	input := `checks:
  - spy: save
    expect: calledWith
    args:
      - {match: any}
      - {match: type, type: number}
      - {match: regexp, pattern: "^user-[0-9]+$"}
      - {match: contains, value: needle}
      - {match: path, path: user.id, value: 7}
      - {match: not, value: {match: type, type: string}}
      - {match: not, value: 3}
      - nested: {match: any}
`
	file, err := Parse(input, "t.spy.yaml")
	require.NoError(t, err)
	args := file.Checks[0].Args
	require.Len(t, args, 8)

	tests := []struct {
		name  string
		index int
		value any
		want  bool
	}{
		{name: "any", index: 0, value: nil, want: true},
		{name: "number", index: 1, value: 1.5, want: true},
		{name: "number rejects string", index: 1, value: "1", want: false},
		{name: "regexp", index: 2, value: "user-42", want: true},
		{name: "regexp rejects", index: 2, value: "admin-42", want: false},
		{name: "contains", index: 3, value: "haystack with needle", want: true},
		{name: "path", index: 4, value: map[string]any{"user": map[string]any{"id": 7.0}}, want: true},
		{name: "path json string", index: 4, value: `{"user":{"id":8}}`, want: false},
		{name: "not matcher", index: 5, value: 3, want: true},
		{name: "not value", index: 6, value: 3, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := args[tt.index].(spy.Matcher)
			require.True(t, ok, "arg %d is %T", tt.index, args[tt.index])
			assert.Equal(t, tt.want, m.Matches(tt.value))
		})
	}

	nested, ok := args[7].(map[string]any)
	require.True(t, ok)
	assert.True(t, spy.Equal(map[string]any{"nested": "anything"}, nested))
}

func TestParser_Hooks(t *testing.T) {
	input := `recording: out.json
before:
  - go test ./... -run TestRecord
  - "-rm -f stale.json"
after:
  - echo done
waitFor:
  timeout: 500
checks: []
`
	file, err := Parse(input, "t.spy.yaml")
	require.NoError(t, err)

	require.Len(t, file.Before, 2)
	assert.Equal(t, "go test ./... -run TestRecord", file.Before[0].Command)
	assert.False(t, file.Before[0].IgnoreError)
	assert.Equal(t, "rm -f stale.json", file.Before[1].Command)
	assert.True(t, file.Before[1].IgnoreError)
	require.Len(t, file.After, 1)

	require.NotNil(t, file.WaitFor)
	assert.Equal(t, "out.json", file.WaitFor.Path)
	assert.Equal(t, 500, file.WaitFor.Timeout)
	assert.Equal(t, 250, file.WaitFor.Interval)
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "empty", input: "", wantErr: "empty check file"},
		{name: "not a mapping", input: "- a\n- b\n", wantErr: "must be a mapping"},
		{name: "unknown top-level field", input: "recordings: x\n", wantErr: `t.spy.yaml:1:1: unknown field "recordings"`},
		{name: "missing spy", input: "checks:\n  - expect: called\n", wantErr: `missing "spy"`},
		{name: "missing expect", input: "checks:\n  - spy: s\n", wantErr: `missing "expect"`},
		{name: "unknown check field", input: "checks:\n  - spy: s\n    expect: called\n    times: 2\n", wantErr: `t.spy.yaml:4:5: unknown field "times"`},
		{name: "negative call", input: "checks:\n  - spy: s\n    call: -1\n    expect: called\n", wantErr: "must not be negative"},
		{name: "bad pattern", input: "checks:\n  - spy: s\n    expect: calledWith\n    args: [{match: regexp, pattern: \"(\"}]\n", wantErr: "invalid pattern"},
		{name: "unknown matcher", input: "checks:\n  - spy: s\n    expect: calledWith\n    args: [{match: fuzzy}]\n", wantErr: `unknown matcher "fuzzy"`},
		{name: "unknown type", input: "checks:\n  - spy: s\n    expect: calledWith\n    args: [{match: type, type: date}]\n", wantErr: `unknown type "date"`},
		{name: "bad yaml", input: "checks: [\n", wantErr: "t.spy.yaml"},
		{name: "wrong type", input: "checks:\n  - spy: s\n    expect: called\n    count: many\n", wantErr: "t.spy.yaml:4:0: cannot unmarshal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input, "t.spy.yaml")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			var perr *ParseError
			assert.ErrorAs(t, err, &perr)
		})
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.spy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("checks:\n  - spy: s\n    expect: called\n"), 0644))

	file, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, file.Path)
	assert.Len(t, file.Checks, 1)

	_, err = ParseFile(filepath.Join(dir, "missing.spy.yaml"))
	assert.Error(t, err)
}

func TestIsCheckFile(t *testing.T) {
	assert.True(t, IsCheckFile("a.spy.yaml"))
	assert.True(t, IsCheckFile("dir/B.SPY.YML"))
	assert.False(t, IsCheckFile("a.yaml"))
	assert.False(t, IsCheckFile("a.http"))
}

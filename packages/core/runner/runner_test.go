package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/spyspec/packages/db"
	"github.com/abdul-hamid-achik/spyspec/packages/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFixture records a small repository session and writes it, with the
// given check file, into a temp dir. It returns the check file path.
func writeFixture(t *testing.T, checks string) string {
	t.Helper()
	dir := t.TempDir()

	rec := recorder.NewRecording()
	load := rec.Spy("load")
	save := rec.Spy("save")
	load.Record(recorder.Invocation{Args: []any{"user-1"}, Return: map[string]any{"id": 1}})
	save.Record(recorder.Invocation{Args: []any{"user-1", map[string]any{"id": 1}}, Receiver: "repo", Return: true})
	save.Record(recorder.Invocation{Args: []any{"user-2", map[string]any{"id": 2}}, Receiver: "repo", Exception: errors.New("conflict")})
	require.NoError(t, rec.Save(filepath.Join(dir, "session.json")))

	path := filepath.Join(dir, "session.spy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(checks), 0644))
	return path
}

func TestNewRunner(t *testing.T) {
	t.Run("with nil config", func(t *testing.T) {
		r := NewRunner(nil)
		assert.NotNil(t, r)
		assert.NotNil(t, r.registry)
		assert.NotNil(t, r.config)
	})

	t.Run("with custom config", func(t *testing.T) {
		r := NewRunner(&Config{Verbose: true, Bail: true})
		assert.True(t, r.config.Verbose)
		assert.True(t, r.config.Bail)
	})
}

func TestRunner_RunFile(t *testing.T) {
	path := writeFixture(t, `recording: session.json
checks:
  - spy: save
    expect: called
    count: 2
  - spy: save
    expect: to have been calledWith
    args: [user-2, {match: any}]
  - spy: save
    expect: always calledOn
    receiver: repo
  - spy: save
    call: 0
    expect: returned
    value: true
  - spy: save
    expect: thrown
    value: conflict
  - spy: load
    expect: calledBefore
    other: save
  - spy: save
    call: 1
    expect: calledAfter
    other: save
    otherCall: 0
  - spy: load
    expect: not calledWithNew
  - spy: load
    expect: calledWithExactly
    args: [{match: regexp, pattern: "^user-"}]
`)

	result, err := NewRunner(&Config{}).RunFile(path)
	require.NoError(t, err)

	for _, r := range result.Results {
		assert.True(t, r.Passed, "%s: %s", r.Name, r.Message)
	}
	assert.Equal(t, 9, result.Passed)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, "session.json", result.Recording)
}

func TestRunner_RunFile_Failures(t *testing.T) {
	path := writeFixture(t, `recording: session.json
checks:
  - spy: save
    expect: called
    count: 3
  - spy: missing
    expect: called
  - spy: save
    expect: always returned
    value: true
    message: every save should succeed
  - spy: save
    expect: calledWith
    args: [user-9]
    message: nobody saved user-9
  - spy: save
    expect: fooled
`)

	result, err := NewRunner(&Config{}).RunFile(path)
	require.NoError(t, err)
	require.Len(t, result.Results, 5)
	assert.Equal(t, 0, result.Passed)
	assert.Equal(t, 5, result.Failed)

	assert.Equal(t, "expected spy to be called thrice, called twice", result.Results[0].Message)
	require.Len(t, result.Results[0].Failures, 1)
	assert.Equal(t, "called", result.Results[0].Failures[0].Predicate)

	assert.Equal(t, "expected `nil` to be a spy", result.Results[1].Message)
	assert.Equal(t, "every save should succeed", result.Results[2].Message)
	assert.Equal(t, "nobody saved user-9", result.Results[3].Message)

	assert.Error(t, result.Results[4].Error)
	assert.Contains(t, result.Results[4].Message, "fooled")
}

func TestRunner_RunFile_WithSkip(t *testing.T) {
	path := writeFixture(t, `recording: session.json
checks:
  - spy: save
    expect: called
    skip: not ready
`)

	result, err := NewRunner(&Config{}).RunFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Passed)
	assert.Equal(t, 1, result.Skipped)
	assert.True(t, result.Results[0].Skipped)
	assert.Equal(t, "not ready", result.Results[0].SkipReason)
}

func TestRunner_Only(t *testing.T) {
	path := writeFixture(t, `recording: session.json
checks:
  - spy: save
    expect: called
  - spy: load
    expect: called
    only: true
`)

	result, err := NewRunner(&Config{}).RunFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, "filtered out", result.Results[0].SkipReason)
}

func TestRunner_NameFilter(t *testing.T) {
	path := writeFixture(t, `recording: session.json
checks:
  - name: save count
    spy: save
    expect: called
  - name: load count
    spy: load
    expect: called
`)

	result, err := NewRunner(&Config{NameFilter: "save*"}).RunFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Skipped)
}

func TestRunner_TagsFilter(t *testing.T) {
	path := writeFixture(t, `recording: session.json
checks:
  - spy: save
    expect: called
    tags: [smoke]
  - spy: load
    expect: called
`)

	result, err := NewRunner(&Config{TagsFilter: []string{"smoke"}}).RunFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, "save", result.Results[0].Spy)
}

func TestRunner_Bail(t *testing.T) {
	path := writeFixture(t, `recording: session.json
checks:
  - spy: save
    expect: not called
  - spy: load
    expect: called
`)

	result, err := NewRunner(&Config{Bail: true}).RunFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Len(t, result.Results, 1)
}

func TestRunner_Variables(t *testing.T) {
	path := writeFixture(t, `recording: "{{file}}"
variables:
  user: user-2
checks:
  - spy: save
    expect: calledWith
    args: ["{{user}}", {match: any}]
`)
	dir := filepath.Dir(path)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("file=session.json\n"), 0644))

	result, err := NewRunner(&Config{}).RunFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Passed)
}

func TestRunner_RecordingOverride(t *testing.T) {
	path := writeFixture(t, "checks:\n  - spy: save\n    expect: called\n")

	_, err := NewRunner(&Config{}).RunFile(path)
	assert.ErrorIs(t, err, ErrNoRecording)

	result, err := NewRunner(&Config{Recording: "session.json"}).RunFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Passed)

	result, err = NewRunner(&Config{DefaultRecording: "session.json"}).RunFile(path)
	require.NoError(t, err)
	assert.Equal(t, "session.json", result.Recording)
}

func TestRunner_UnresolvedRecording(t *testing.T) {
	path := writeFixture(t, "recording: \"{{dir}}/session.json\"\nchecks: []\n")

	_, err := NewRunner(&Config{}).RunFile(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoRecording)
	assert.Contains(t, err.Error(), "unresolved variables dir")

	result, err := NewRunner(&Config{Variables: map[string]any{"dir": "."}}).RunFile(path)
	require.NoError(t, err)
	assert.Equal(t, "./session.json", result.Recording)
}

func TestRunner_DefaultRecordingDoesNotOverride(t *testing.T) {
	path := writeFixture(t, "recording: session.json\nchecks:\n  - spy: save\n    expect: called\n")

	result, err := NewRunner(&Config{DefaultRecording: "missing.json"}).RunFile(path)
	require.NoError(t, err)
	assert.Equal(t, "session.json", result.Recording)
	assert.Equal(t, 1, result.Passed)
}

func TestRunner_ValidateSchema(t *testing.T) {
	path := writeFixture(t, "recording: bad.json\nvalidate: true\nchecks: []\n")
	bad := filepath.Join(filepath.Dir(path), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"spies": [{"calls": []}]}`), 0644))

	_, err := NewRunner(&Config{}).RunFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid recording")
}

func TestRunner_StoredRecording(t *testing.T) {
	dir := t.TempDir()
	rec := recorder.NewRecording()
	rec.Spy("save").Record(recorder.Invocation{Args: []any{"a"}})

	store, err := db.Open("sqlite://" + filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	require.NoError(t, store.SaveRecording(context.Background(), rec))
	require.NoError(t, store.Close())

	path := filepath.Join(dir, "stored.spy.yaml")
	content := "recording: sqlite://runs.db#" + rec.ID + "\nchecks:\n  - spy: save\n    expect: calledWith\n    args: [a]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	result, err := NewRunner(&Config{}).RunFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Passed)
}

func TestRunner_WaitFor(t *testing.T) {
	t.Run("recording written by a before hook", func(t *testing.T) {
		path := writeFixture(t, `recording: late.json
before:
  - "-sleep 0.1 && cp session.json late.json"
waitFor:
  timeout: 2000
  interval: 20
checks:
  - spy: save
    expect: called
`)
		result, err := NewRunner(&Config{}).RunFile(path)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Passed)
	})

	t.Run("times out", func(t *testing.T) {
		path := writeFixture(t, `recording: never.json
waitFor:
  timeout: 50
  interval: 10
checks: []
`)
		start := time.Now()
		_, err := NewRunner(&Config{}).RunFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not ready")
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}

func TestMatchesPattern(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		expected bool
	}{
		{"exact match", "testName", true},
		{"prefix match", "test*", true},
		{"suffix match", "*Name", true},
		{"contains match", "*stNa*", true},
		{"no match", "other*", false},
		{"empty pattern", "", true},
		{"lone star", "*", true},
	}

	for _, tt := range tests {
		t.Run(tt.name+" - "+tt.pattern, func(t *testing.T) {
			result := matchesPattern("testName", tt.pattern)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestHasAnyTag(t *testing.T) {
	tests := []struct {
		tags     []string
		filters  []string
		expected bool
	}{
		{[]string{"smoke", "api"}, []string{"smoke"}, true},
		{[]string{"smoke", "api"}, []string{"integration"}, false},
		{[]string{"smoke", "api"}, []string{"smoke", "integration"}, true},
		{[]string{}, []string{"smoke"}, false},
		{[]string{"smoke"}, []string{}, false},
	}

	for _, tt := range tests {
		result := hasAnyTag(tt.tags, tt.filters)
		assert.Equal(t, tt.expected, result)
	}
}

func TestRunner_Hooks(t *testing.T) {
	t.Run("before and after hooks run in order", func(t *testing.T) {
		path := writeFixture(t, `recording: session.json
before:
  - ./setup1.sh
  - ./setup2.sh
after:
  - ./cleanup.sh
checks:
  - spy: save
    expect: not called
`)
		dir := filepath.Dir(path)
		orderFile := filepath.Join(dir, "order.txt")
		for name, line := range map[string]string{"setup1.sh": "1", "setup2.sh": "2", "cleanup.sh": "after"} {
			script := "#!/bin/sh\necho '" + line + "' >> " + orderFile
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(script), 0755))
		}

		result, err := NewRunner(&Config{}).RunFile(path)
		require.NoError(t, err)
		// after hooks run even when a check fails
		assert.Equal(t, 1, result.Failed)
		assert.NoError(t, result.HookError)

		data, err := os.ReadFile(orderFile)
		require.NoError(t, err)
		assert.Equal(t, "1\n2\nafter\n", string(data))
	})

	t.Run("failing before hook aborts the file", func(t *testing.T) {
		path := writeFixture(t, "recording: session.json\nbefore:\n  - exit 3\nchecks: []\n")

		_, err := NewRunner(&Config{}).RunFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "before hook failed")
	})

	t.Run("ignored before hook failure", func(t *testing.T) {
		path := writeFixture(t, "recording: session.json\nbefore:\n  - \"-exit 3\"\nchecks: []\n")

		_, err := NewRunner(&Config{}).RunFile(path)
		assert.NoError(t, err)
	})

	t.Run("failing after hook is reported on the result", func(t *testing.T) {
		path := writeFixture(t, "recording: session.json\nafter:\n  - exit 1\nchecks:\n  - spy: save\n    expect: called\n")

		result, err := NewRunner(&Config{}).RunFile(path)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Passed)
		assert.ErrorContains(t, result.HookError, "after hook failed")
	})

	t.Run("hook timeout", func(t *testing.T) {
		path := writeFixture(t, "recording: session.json\nbefore:\n  - sleep 5\nchecks: []\n")

		_, err := NewRunner(&Config{HookTimeout: 50 * time.Millisecond}).RunFile(path)
		assert.Error(t, err)
	})
}

func TestStorePath(t *testing.T) {
	assert.Equal(t, "sqlite://"+filepath.Join("base", "runs.db"), storePath("sqlite://runs.db", "base"))
	assert.Equal(t, "sqlite:/abs/runs.db", storePath("sqlite:/abs/runs.db", "base"))
	assert.Equal(t, "sqlite::memory:", storePath("sqlite::memory:", "base"))
}

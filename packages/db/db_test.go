package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/abdul-hamid-achik/spyspec/packages/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open("sqlite://" + filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRecording() *recorder.Recording {
	rec := recorder.NewRecording()
	save := rec.Spy("save")
	save.Record(recorder.Invocation{Args: []any{"a", 1.0}, Return: true})
	save.Record(recorder.Invocation{Args: []any{"b", 2.0}, Return: false})
	rec.Spy("load").Record(recorder.Invocation{Args: []any{"a"}})
	return rec
}

func TestStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	rec := sampleRecording()

	require.NoError(t, store.SaveRecording(ctx, rec))

	loaded, err := store.LoadRecording(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, loaded.ID)
	assert.Equal(t, []string{"save", "load"}, loaded.Names())

	save, ok := loaded.Lookup("save")
	require.True(t, ok)
	assert.Equal(t, 2, save.CallCount())
	assert.True(t, save.CalledWith("b", 2))
	assert.True(t, save.Returned(false))
}

func TestStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	rec := sampleRecording()

	require.NoError(t, store.SaveRecording(ctx, rec))
	rec.Spy("extra")
	require.NoError(t, store.SaveRecording(ctx, rec))

	list, err := store.ListRecordings(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].Spies)
	assert.Equal(t, 3, list[0].Calls)
}

func TestStore_LoadMissing(t *testing.T) {
	store := openStore(t)

	_, err := store.LoadRecording(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRecordingNotFound)
	assert.ErrorIs(t, store.DeleteRecording(context.Background(), "nope"), ErrRecordingNotFound)
}

func TestStore_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	first, second := sampleRecording(), sampleRecording()
	require.NoError(t, store.SaveRecording(ctx, first))
	require.NoError(t, store.SaveRecording(ctx, second))

	list, err := store.ListRecordings(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, store.DeleteRecording(ctx, first.ID))
	list, err = store.ListRecordings(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)
}

func TestOpen_ColonPrefix(t *testing.T) {
	store, err := Open("sqlite:" + filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}

func TestParseConnectionString(t *testing.T) {
	tests := []struct {
		name    string
		conn    string
		want    string
		wantErr bool
	}{
		{name: "double slash", conn: "sqlite://runs.db", want: "runs.db"},
		{name: "colon", conn: "sqlite:./runs.db", want: "./runs.db"},
		{name: "memory", conn: " sqlite::memory: ", want: ":memory:"},
		{name: "postgres", conn: "postgres://localhost/db", wantErr: true},
		{name: "empty path", conn: "sqlite://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn, err := parseConnectionString(tt.conn)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, dsn)
		})
	}
}

func TestReferences(t *testing.T) {
	assert.True(t, IsReference("sqlite://runs.db#abc"))
	assert.False(t, IsReference("./recordings/run.json"))

	conn, id, err := SplitReference("sqlite://runs.db#abc")
	require.NoError(t, err)
	assert.Equal(t, "sqlite://runs.db", conn)
	assert.Equal(t, "abc", id)

	_, _, err = SplitReference("sqlite://runs.db")
	assert.Error(t, err)
}

package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/spyspec/packages/db"
	"github.com/abdul-hamid-achik/spyspec/packages/recorder"
)

// loadRecording resolves ref to a recording. ref is either a JSON file,
// relative to the check file, or a store reference such as
// sqlite://runs.db#<id>.
func (r *Runner) loadRecording(ctx context.Context, ref, baseDir string, validate bool) (*recorder.Recording, error) {
	if db.IsReference(ref) {
		return loadStored(ctx, ref, baseDir)
	}

	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	if validate {
		if err := recorder.ValidateFile(path); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	rec, err := recorder.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading recording: %w", err)
	}
	return rec, nil
}

func loadStored(ctx context.Context, ref, baseDir string) (*recorder.Recording, error) {
	conn, id, err := db.SplitReference(ref)
	if err != nil {
		return nil, err
	}
	conn = storePath(conn, baseDir)

	store, err := db.Open(conn)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	rec, err := store.LoadRecording(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading recording: %w", err)
	}
	return rec, nil
}

// storePath makes a relative sqlite database path relative to baseDir.
func storePath(conn, baseDir string) string {
	for _, prefix := range []string{"sqlite://", "sqlite:"} {
		if path, ok := strings.CutPrefix(conn, prefix); ok {
			if filepath.IsAbs(path) || path == ":memory:" {
				return conn
			}
			return prefix + filepath.Join(baseDir, path)
		}
	}
	return conn
}

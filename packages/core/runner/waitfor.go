package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/abdul-hamid-achik/spyspec/packages/core/parser"
	"github.com/abdul-hamid-achik/spyspec/packages/db"
	"github.com/abdul-hamid-achik/spyspec/packages/recorder"
)

// waitForRecording polls until the recording named by ref can be loaded,
// which lets a before hook start the program under test in the background.
// For file recordings the watched path must exist and be non-empty first.
func (r *Runner) waitForRecording(ctx context.Context, cfg *parser.WaitForConfig, ref, baseDir string, validate bool, resolver func(string) string) (*recorder.Recording, error) {
	path := resolver(cfg.Path)
	if path == "" {
		path = ref
	}
	if !db.IsReference(path) && !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	interval := time.Duration(cfg.Interval) * time.Millisecond

	r.logger().Debug("waiting for recording", "path", path, "timeout", timeout, "interval", interval)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		if ready(path) {
			rec, err := r.loadRecording(ctx, ref, baseDir, validate)
			if err == nil {
				r.logger().Debug("recording is ready", "path", path)
				return rec, nil
			}
			lastErr = err
		}

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return nil, fmt.Errorf("recording %s not ready after %v: %w", ref, timeout, lastErr)
			}
			return nil, fmt.Errorf("recording %s not ready after %v: %s does not exist", ref, timeout, path)
		case <-ticker.C:
		}
	}
}

func ready(path string) bool {
	if db.IsReference(path) {
		return true
	}
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

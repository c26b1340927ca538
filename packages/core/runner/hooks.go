package runner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/spyspec/packages/core/parser"
)

// executePreHooks runs the before hooks in order and stops at the first
// failure that is not ignored.
func (r *Runner) executePreHooks(ctx context.Context, hooks []*parser.Hook, baseDir string, resolver func(string) string) error {
	for _, hook := range hooks {
		if err := r.executeHook(ctx, hook, baseDir, resolver); err != nil {
			return fmt.Errorf("before hook failed: %w", err)
		}
	}
	return nil
}

// executePostHooks runs every after hook and returns the first failure.
func (r *Runner) executePostHooks(ctx context.Context, hooks []*parser.Hook, baseDir string, resolver func(string) string) error {
	var firstErr error
	for _, hook := range hooks {
		if err := r.executeHook(ctx, hook, baseDir, resolver); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("after hook failed: %w", err)
			}
		}
	}
	return firstErr
}

// executeHook executes a single hook command
func (r *Runner) executeHook(ctx context.Context, hook *parser.Hook, baseDir string, resolver func(string) string) error {
	cmdStr := strings.TrimSpace(resolver(hook.Command))
	if cmdStr == "" {
		return nil
	}

	// Scripts next to the check file may be named without a path.
	parts := strings.Fields(cmdStr)
	if len(parts) > 0 {
		executable := parts[0]
		if strings.HasPrefix(executable, "./") || strings.HasPrefix(executable, "../") {
			parts[0] = filepath.Join(baseDir, executable)
			cmdStr = strings.Join(parts, " ")
		} else if !filepath.IsAbs(executable) && !isInPath(executable) {
			potentialPath := filepath.Join(baseDir, executable)
			if _, err := os.Stat(potentialPath); err == nil {
				parts[0] = potentialPath
				cmdStr = strings.Join(parts, " ")
			}
		}
	}

	timeout := r.config.HookTimeout
	if timeout <= 0 {
		timeout = DefaultHookTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", cmdStr)
	cmd.Dir = baseDir
	cmd.Env = os.Environ()
	cmd.WaitDelay = time.Second

	output, err := cmd.CombinedOutput()
	if r.config.Verbose && len(output) > 0 {
		r.logger().Info("hook output", "command", hook.Command, "output", strings.TrimSpace(string(output)))
	}
	if err != nil {
		if hook.IgnoreError {
			r.logger().Warn("ignoring hook failure", "command", hook.Command, "err", err)
			return nil
		}
		return fmt.Errorf("command %q failed: %v\nOutput: %s", hook.Command, err, string(output))
	}
	return nil
}

// isInPath checks if a command is available in the system PATH
func isInPath(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

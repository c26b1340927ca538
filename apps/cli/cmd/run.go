package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/spyspec/packages/core/config"
	"github.com/abdul-hamid-achik/spyspec/packages/core/env"
	"github.com/abdul-hamid-achik/spyspec/packages/core/parser"
	"github.com/abdul-hamid-achik/spyspec/packages/core/runner"
	"github.com/abdul-hamid-achik/spyspec/packages/db"
	"github.com/abdul-hamid-achik/spyspec/packages/output"
	"github.com/abdul-hamid-achik/spyspec/packages/recorder"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

var runCmd = &cobra.Command{
	Use:   "run <file|directory>...",
	Short: "Run checks from spyspec files",
	Long: `Run the checks defined in .spy.yaml files against their recordings.

Examples:
  spyspec run checks/
  spyspec run session.spy.yaml --recording out/session.json
  spyspec run checks/ --tags smoke --bail
  spyspec run checks/ --name "save*" -o junit --output-file report.xml
  spyspec run checks/ --watch`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	nameFlag        string
	tagsFlag        string
	bailFlag        bool
	outputFlag      string
	outputFileFlag  string
	recordingFlag   string
	validateFlag    bool
	hookTimeoutFlag string
	watchFlag       bool
	varFlags        []string
)

func init() {
	// Selection flags
	runCmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Run only checks matching name pattern (supports * prefix/suffix)")
	runCmd.Flags().StringVarP(&tagsFlag, "tags", "t", getEnvString("SPYSPEC_TAGS", ""), "Run only checks with specified tags (comma-separated) (env: SPYSPEC_TAGS)")

	// Recording flags
	runCmd.Flags().StringVarP(&recordingFlag, "recording", "r", getEnvString("SPYSPEC_RECORDING", ""), "Recording to check against, overriding each file's recording (env: SPYSPEC_RECORDING)")
	runCmd.Flags().BoolVar(&validateFlag, "validate", getEnvBool("SPYSPEC_VALIDATE", true), "Validate JSON recordings against the recording schema (env: SPYSPEC_VALIDATE)")
	runCmd.Flags().StringArrayVar(&varFlags, "var", nil, "Set a variable (key=value), may be repeated")

	// Output flags
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("SPYSPEC_OUTPUT", "console"), "Output format: console, json, junit, tap, html (env: SPYSPEC_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("SPYSPEC_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: SPYSPEC_OUTPUT_FILE)")

	// Execution flags
	runCmd.Flags().BoolVar(&bailFlag, "bail", getEnvBool("SPYSPEC_BAIL", false), "Stop on first failure (env: SPYSPEC_BAIL)")
	runCmd.Flags().StringVar(&hookTimeoutFlag, "hook-timeout", getEnvString("SPYSPEC_HOOK_TIMEOUT", "1m"), "Timeout for each before/after hook (env: SPYSPEC_HOOK_TIMEOUT)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch check files and recordings and re-run on change")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

// explicit reports whether a flag was given on the command line or through
// its environment variable, so that it should win over the config file.
func explicit(cmd *cobra.Command, name, envKey string) bool {
	return cmd.Flags().Changed(name) || os.Getenv(envKey) != ""
}

// Formatter interface for all output formatters
type Formatter interface {
	FormatResult(result *runner.RunResult)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable interface for formatters that need to flush output
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// loadRunConfig reads the config file and applies explicit flags on top.
func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	fileConfig, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}

	overrides := &config.Config{}
	if explicit(cmd, "output", "SPYSPEC_OUTPUT") {
		overrides.Output = outputFlag
	}
	if explicit(cmd, "output-file", "SPYSPEC_OUTPUT_FILE") {
		overrides.OutputFile = outputFileFlag
	}
	if explicit(cmd, "tags", "SPYSPEC_TAGS") {
		overrides.Tags = tagsFlag
	}
	if explicit(cmd, "bail", "SPYSPEC_BAIL") {
		overrides.Bail = config.BoolPtr(bailFlag)
	}
	if explicit(cmd, "validate", "SPYSPEC_VALIDATE") {
		overrides.ValidateSchema = config.BoolPtr(validateFlag)
	}
	if explicit(cmd, "verbose", "SPYSPEC_VERBOSE") {
		overrides.Verbose = config.BoolPtr(verboseFlag)
	}
	if explicit(cmd, "no-color", "SPYSPEC_NO_COLOR") {
		overrides.NoColor = config.BoolPtr(noColorFlag)
	}
	if explicit(cmd, "hook-timeout", "SPYSPEC_HOOK_TIMEOUT") {
		d, err := time.ParseDuration(hookTimeoutFlag)
		if err != nil {
			return nil, withExitCode(ExitUsageError, fmt.Errorf("invalid hook timeout %q: %w (use format like 30s, 1m, 500ms)", hookTimeoutFlag, err))
		}
		overrides.HookTimeout = int(d.Milliseconds())
	}

	vars, err := parseVars(varFlags)
	if err != nil {
		return nil, withExitCode(ExitUsageError, err)
	}
	overrides.Variables = vars

	return fileConfig.Merge(overrides), nil
}

func parseVars(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid variable %q (expected key=value)", pair)
		}
		vars[key] = value
	}
	return vars, nil
}

func splitTags(tags string) []string {
	var out []string
	for _, t := range strings.Split(tags, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func newRunnerConfig(cfg *config.Config) *runner.Config {
	return &runner.Config{
		Verbose:          cfg.GetVerbose(),
		Bail:             cfg.GetBail(),
		NameFilter:       nameFlag,
		TagsFilter:       splitTags(cfg.Tags),
		Recording:        recordingFlag,
		DefaultRecording: cfg.Recording,
		ValidateSchema:   cfg.GetValidateSchema(),
		HookTimeout:      time.Duration(cfg.HookTimeout) * time.Millisecond,
		Variables:        cfg.VariablesAsAny(),
		Logger:           logger,
	}
}

// newFormatter builds the formatter for format. A nil w writes to stdout.
func newFormatter(format string, w io.Writer, cfg *config.Config) (Formatter, error) {
	switch strings.ToLower(format) {
	case "json":
		opts := []output.JSONOption{}
		if w != nil {
			opts = append(opts, output.JSONWithWriter(w))
		}
		return output.NewJSONFormatter(opts...), nil
	case "junit":
		opts := []output.JUnitOption{}
		if w != nil {
			opts = append(opts, output.JUnitWithWriter(w))
		}
		return output.NewJUnitFormatter(opts...), nil
	case "tap":
		opts := []output.TAPOption{}
		if w != nil {
			opts = append(opts, output.TAPWithWriter(w))
		}
		return output.NewTAPFormatter(opts...), nil
	case "html":
		opts := []output.HTMLOption{}
		if w != nil {
			opts = append(opts, output.HTMLWithWriter(w))
		}
		return output.NewHTMLFormatter(opts...), nil
	case "", "console":
		opts := []output.ConsoleOption{
			output.WithVerbose(cfg.GetVerbose()),
			output.WithNoColor(cfg.GetNoColor()),
		}
		if w != nil {
			opts = append(opts, output.WithWriter(w))
		}
		return output.NewConsoleFormatter(opts...), nil
	}
	return nil, fmt.Errorf("unknown output format %q (want console, json, junit, tap or html)", format)
}

// runTotals accumulates results across the files of one run.
type runTotals struct {
	Passed   int
	Failed   int
	Skipped  int
	Duration time.Duration
	// Err is the first file-level error, such as a parse error.
	Err error
}

// result turns the totals into the command's return value.
func (t *runTotals) result() error {
	if t.Err != nil {
		return withExitCode(classify(t.Err), t.Err)
	}
	if t.Failed > 0 {
		return withExitCode(ExitTestFailure, fmt.Errorf("%w: %d of %d", errChecksFailed, t.Failed, t.Passed+t.Failed))
	}
	return nil
}

// classify maps a file-level error to an exit code.
func classify(err error) int {
	var parseErr *parser.ParseError
	switch {
	case errors.As(err, &parseErr):
		return ExitParseError
	case errors.Is(err, runner.ErrNoRecording):
		return ExitConfigError
	case errors.Is(err, recorder.ErrInvalidRecording),
		errors.Is(err, db.ErrRecordingNotFound),
		errors.Is(err, fs.ErrNotExist):
		return ExitRecordingError
	}
	return ExitTestFailure
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	// Validate the format before running anything.
	if _, err := newFormatter(cfg.Output, io.Discard, cfg); err != nil {
		return withExitCode(ExitUsageError, err)
	}

	r := runner.NewRunner(newRunnerConfig(cfg))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	totals, err := runFiles(ctx, cmd, r, args, cfg)
	if err != nil {
		return err
	}
	if !watchFlag {
		return totals.result()
	}

	interval := time.Duration(cfg.WatchInterval) * time.Millisecond
	return watch(ctx, cmd, args, interval, func() {
		if _, err := runFiles(ctx, cmd, r, args, cfg); err != nil {
			logger.Error(err)
		}
	})
}

// runFiles runs every check file under args once and writes the report.
func runFiles(ctx context.Context, cmd *cobra.Command, r *runner.Runner, args []string, cfg *config.Config) (*runTotals, error) {
	files, err := collectFiles(args)
	if err != nil {
		return nil, withExitCode(ExitUsageError, err)
	}
	if len(files) == 0 {
		return nil, withExitCode(ExitUsageError, fmt.Errorf("no %s files found", strings.Join(parser.Extensions, " or ")))
	}

	var out io.Writer = cmd.OutOrStdout()
	if cfg.OutputFile != "" {
		f, err := os.Create(cfg.OutputFile)
		if err != nil {
			return nil, fmt.Errorf("cannot create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	formatter, err := newFormatter(cfg.Output, out, cfg)
	if err != nil {
		return nil, withExitCode(ExitUsageError, err)
	}
	formatter.FormatHeader(version)

	totals := &runTotals{}
	start := time.Now()
	for _, file := range files {
		if ctx.Err() != nil {
			break
		}

		result, err := r.RunFileContext(ctx, file)
		if err != nil {
			formatter.FormatError(err)
			if totals.Err == nil {
				totals.Err = err
			}
			if cfg.GetBail() {
				break
			}
			continue
		}

		formatter.FormatResult(result)
		totals.Passed += result.Passed
		totals.Failed += result.Failed
		totals.Skipped += result.Skipped

		if cfg.GetBail() && result.Failed > 0 {
			break
		}
	}
	totals.Duration = time.Since(start)

	// Flush output for formatters that accumulate results
	if flushable, ok := formatter.(Flushable); ok {
		if err := flushable.Flush(totals.Duration); err != nil {
			return nil, fmt.Errorf("error writing output: %w", err)
		}
	}

	logger.Debug("run finished", "files", len(files), "passed", totals.Passed, "failed", totals.Failed, "skipped", totals.Skipped)
	return totals, nil
}

// watch re-runs rerun whenever a check file, recording or .env file under
// args changes. Bursts of events are debounced, and re-runs are spaced at
// least interval apart.
func watch(ctx context.Context, cmd *cobra.Command, args []string, interval time.Duration, rerun func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	watched := make(map[string]bool)
	add := func(dir string) {
		if watched[dir] {
			return
		}
		watched[dir] = true
		if err := watcher.Add(dir); err != nil {
			logger.Warn("cannot watch directory", "dir", dir, "err", err)
		}
	}
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			add(filepath.Dir(arg))
			continue
		}
		_ = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err == nil && d.IsDir() {
				add(path)
			}
			return nil
		})
	}

	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	limiter := rate.NewLimiter(limit, 1)
	// The initial run already happened.
	limiter.Allow()

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	var (
		debounce <-chan time.Time
		changed  string
	)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !isWatched(event.Name) {
				continue
			}
			logger.Debug("file changed", "path", event.Name, "op", event.Op.String())
			changed = event.Name
			debounce = time.After(WatchDebounceDelay)

		case <-debounce:
			debounce = nil
			if err := limiter.Wait(ctx); err != nil {
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n\nFile changed: %s\nRe-running checks...\n\n", changed)
			rerun()
			fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "err", err)
		}
	}
}

func isWatched(path string) bool {
	if parser.IsCheckFile(path) {
		return true
	}
	if filepath.Ext(path) == ".json" {
		return true
	}
	base := filepath.Base(path)
	for _, name := range env.DotEnvFiles {
		if base == name {
			return true
		}
	}
	return false
}

func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if info.IsDir() {
			err := filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() && parser.IsCheckFile(path) {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else if parser.IsCheckFile(arg) {
			files = append(files, arg)
		}
	}

	return files, nil
}

// formatCount renders n with a singular or plural noun.
func formatCount(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}

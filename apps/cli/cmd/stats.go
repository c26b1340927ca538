package cmd

import (
	"fmt"

	"github.com/abdul-hamid-achik/spyspec/packages/stats"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats <recording>",
	Short: "Show per-spy call statistics for a recording",
	Long: `Show call counts, throws, constructor calls and latency percentiles
for every spy in a recording. The recording is a JSON file or a store
reference such as sqlite://runs.db#<id>.

Examples:
  spyspec stats out/session.json
  spyspec stats out/session.json --sort p95
  spyspec stats sqlite://runs.db#3f2c --json
  spyspec stats out/session.json --threshold "p95<5ms,throws<1%"`,
	Args: cobra.ExactArgs(1),
	RunE: statsCommand,
}

var (
	statsJSONFlag      bool
	statsSortFlag      string
	statsThresholdFlag string
)

func init() {
	statsCmd.Flags().BoolVar(&statsJSONFlag, "json", false, "Output statistics as JSON")
	statsCmd.Flags().StringVar(&statsSortFlag, "sort", "", "Sort spies by: name, calls, throws, p95 (default: recording order)")
	statsCmd.Flags().StringVar(&statsThresholdFlag, "threshold", getEnvString("SPYSPEC_THRESHOLD", ""), "Pass/fail thresholds (e.g., \"p95<5ms,throws<1%\") (env: SPYSPEC_THRESHOLD)")
}

func statsCommand(cmd *cobra.Command, args []string) error {
	thresholds, err := stats.ParseThresholds(statsThresholdFlag)
	if err != nil {
		return withExitCode(ExitUsageError, fmt.Errorf("invalid thresholds: %w", err))
	}
	switch statsSortFlag {
	case "", "name", "calls", "throws", "p95":
	default:
		return withExitCode(ExitUsageError, fmt.Errorf("unknown sort key %q", statsSortFlag))
	}

	rec, err := openRecording(cmd.Context(), args[0], false)
	if err != nil {
		return err
	}

	summary := stats.FromRecording(rec).GetSummary()
	summary.SortBy(statsSortFlag)

	var results []stats.ThresholdResult
	if thresholds.HasThresholds() {
		results = summary.EvaluateThresholds(thresholds)
	}

	reporter := stats.NewReporter(
		stats.WithWriter(cmd.OutOrStdout()),
		stats.WithNoColor(noColorFlag),
	)
	if statsJSONFlag {
		if err := reporter.JSONSummary(summary, results); err != nil {
			return err
		}
	} else {
		reporter.Summary(fmt.Sprintf("Recording %s", rec.ID), summary, results)
	}

	if !stats.AllPassed(results) {
		return withExitCode(ExitTestFailure, fmt.Errorf("%w: thresholds not met", errChecksFailed))
	}
	return nil
}

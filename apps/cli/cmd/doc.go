// Package cmd implements the spyspec CLI commands using Cobra.
//
// Available commands:
//   - run: Evaluate check files against their recordings
//   - validate: Check file syntax and recording schemas without evaluating
//   - list: Display all checks defined in files
//   - stats: Per-spy call counts and latency percentiles for a recording
//   - store: Import, list and delete recordings in a SQLite store
//   - init: Create a new spyspec project with example files
//   - version: Show spyspec version information
//
// Flags fall back to SPYSPEC_* environment variables, and then to the
// .spyspec.yaml or .spyspec.json config file.
package cmd

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/abdul-hamid-achik/spyspec/packages/core/config"
	"github.com/abdul-hamid-achik/spyspec/packages/recorder"
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a new spyspec project",
	Long: `Initialize a new spyspec project (default: the current directory).

This creates:
  - .spyspec.yaml              - Configuration file
  - example.spy.yaml           - Example check file
  - recordings/example.json    - Example recording the checks run against

Examples:
  spyspec init
  spyspec init ./checks --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

const exampleChecks = `name: example
recording: recordings/example.json

checks:
  - name: user is fetched twice
    spy: fetchUser
    expect: called
    count: 2
    tags: [smoke]

  - name: fetched user is cached
    spy: cache.set
    expect: to have been calledWithMatch
    args: [user-1, {match: path, path: name, value: Ada}]

  - spy: cache.set
    expect: always calledOn
    receiver: cache

  - name: fetch happens before caching
    spy: fetchUser
    expect: calledBefore
    other: cache.set

  - name: first fetch returns the user
    spy: fetchUser
    call: 0
    expect: returned
    value: {id: user-1, name: Ada}

  - name: unknown user throws
    spy: fetchUser
    call: 1
    expect: thrown
    value: not found
    tags: [smoke]
`

func initCommand(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	if err := os.MkdirAll(filepath.Join(dir, "recordings"), 0755); err != nil {
		return err
	}

	configFile := filepath.Join(dir, ".spyspec.yaml")
	exampleFile := filepath.Join(dir, "example.spy.yaml")
	recordingFile := filepath.Join(dir, "recordings", "example.json")

	if !forceInit {
		for _, f := range []string{configFile, exampleFile, recordingFile} {
			if _, err := os.Stat(f); err == nil {
				return withExitCode(ExitUsageError, fmt.Errorf("file already exists: %s (use --force to overwrite)", f))
			}
		}
	}

	if err := config.DefaultConfig().SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	if err := os.WriteFile(exampleFile, []byte(exampleChecks), 0644); err != nil {
		return fmt.Errorf("failed to create example file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", exampleFile)

	if err := exampleRecording().Save(recordingFile); err != nil {
		return fmt.Errorf("failed to create example recording: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", recordingFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nspyspec project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'spyspec run %s' to execute the example checks.\n", exampleFile)

	return nil
}

// exampleRecording is a user lookup that caches the first result and fails
// on the second.
func exampleRecording() *recorder.Recording {
	rec := recorder.NewRecording()
	fetch := rec.Spy("fetchUser")
	cache := rec.Spy("cache.set")

	user := map[string]any{"id": "user-1", "name": "Ada"}
	fetch.Record(recorder.Invocation{
		Args:     []any{"user-1"},
		Receiver: "api",
		Return:   user,
		Duration: 12 * time.Millisecond,
	})
	cache.Record(recorder.Invocation{
		Args:     []any{"user-1", user},
		Receiver: "cache",
		Return:   true,
		Duration: 300 * time.Microsecond,
	})
	fetch.Record(recorder.Invocation{
		Args:      []any{"user-2"},
		Receiver:  "api",
		Exception: errors.New("not found"),
		Duration:  31 * time.Millisecond,
	})
	return rec
}

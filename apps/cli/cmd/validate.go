package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/spyspec/packages/core/parser"
	"github.com/abdul-hamid-achik/spyspec/packages/db"
	"github.com/abdul-hamid-achik/spyspec/packages/recorder"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|directory>...",
	Short: "Validate check files and recordings",
	Long: `Validate check files for syntax errors and JSON recordings against the
recording schema, without evaluating any checks.

For each check file, the JSON recording it names is validated too when it
exists on disk.

Examples:
  spyspec validate session.spy.yaml
  spyspec validate out/session.json
  spyspec validate ./checks/`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	checkFiles, recordings, err := collectValidateTargets(args)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	if len(checkFiles) == 0 && len(recordings) == 0 {
		return withExitCode(ExitUsageError, fmt.Errorf("no check files or recordings found"))
	}

	seen := make(map[string]bool)
	parseFailed, recordingFailed := false, false

	for _, file := range checkFiles {
		f, err := parser.ParseFile(file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s: %v\n", file, err)
			parseFailed = true
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s (%s)\n", file, formatCount(len(f.Checks), "check"))

		// Only plain JSON references can be checked before variables are
		// resolved.
		ref := f.Recording
		if ref == "" || db.IsReference(ref) || strings.Contains(ref, "{{") {
			continue
		}
		path := ref
		if !filepath.IsAbs(path) {
			path = filepath.Join(filepath.Dir(file), path)
		}
		if _, err := os.Stat(path); err == nil {
			recordings = append(recordings, path)
		}
	}

	for _, path := range recordings {
		path = filepath.Clean(path)
		if seen[path] {
			continue
		}
		seen[path] = true
		if err := recorder.ValidateFile(path); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s: %v\n", path, err)
			recordingFailed = true
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Valid recording: %s\n", path)
	}

	switch {
	case parseFailed:
		return withExitCode(ExitParseError, fmt.Errorf("validation failed"))
	case recordingFailed:
		return withExitCode(ExitRecordingError, fmt.Errorf("validation failed"))
	}
	return nil
}

// collectValidateTargets splits args into check files and JSON recordings.
// Directories are searched for check files only.
func collectValidateTargets(args []string) (checkFiles, recordings []string, err error) {
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}
		if info.IsDir() {
			err := filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() && parser.IsCheckFile(path) {
					checkFiles = append(checkFiles, path)
				}
				return nil
			})
			if err != nil {
				return nil, nil, err
			}
			continue
		}
		switch {
		case parser.IsCheckFile(arg):
			checkFiles = append(checkFiles, arg)
		case strings.EqualFold(filepath.Ext(arg), ".json"):
			recordings = append(recordings, arg)
		}
	}
	return checkFiles, recordings, nil
}

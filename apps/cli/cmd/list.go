package cmd

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/spyspec/packages/core/parser"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <file|directory>...",
	Short: "List all checks in check files",
	Long: `List all checks defined in .spy.yaml files.

Examples:
  spyspec list session.spy.yaml
  spyspec list ./checks/`,
	Args: cobra.MinimumNArgs(1),
	RunE: listCommand,
}

func listCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	if len(files) == 0 {
		return withExitCode(ExitUsageError, fmt.Errorf("no %s files found", strings.Join(parser.Extensions, " or ")))
	}

	for _, file := range files {
		f, err := parser.ParseFile(file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error parsing %s: %v\n", file, err)
			continue
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\n%s:\n", file)
		if f.Recording != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "  recording: %s\n", f.Recording)
		}
		for _, check := range f.Checks {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s (line %d)\n", check.Name, check.Line)
			if len(check.Tags) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "    tags: %v\n", check.Tags)
			}
			if check.Skip != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "    skip: %s\n", check.Skip)
			}
		}
	}

	return nil
}

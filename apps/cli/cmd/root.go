package cmd

import (
	"errors"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// logger is the application-wide structured logger (writes to stderr).
var logger = charmlog.NewWithOptions(os.Stderr, charmlog.Options{
	ReportTimestamp: false,
})

var (
	configFlag  string
	verboseFlag bool
	noColorFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "spyspec",
	Short: "Declarative assertions over recorded spy calls.",
	Long: `spyspec checks what a program did against what it was expected to do.
Calls are captured as recordings (JSON files or a SQLite store) and
checked against plain YAML check files.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verboseFlag {
			logger.SetLevel(charmlog.DebugLevel)
		}
	},
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = v
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errChecksFailed) {
			logger.Error(err)
		}
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", getEnvString("SPYSPEC_CONFIG", ""), "Path to config file (env: SPYSPEC_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", getEnvBool("SPYSPEC_VERBOSE", false), "Verbose output (env: SPYSPEC_VERBOSE)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", getEnvBool("SPYSPEC_NO_COLOR", false), "Disable colored output (env: SPYSPEC_NO_COLOR)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}

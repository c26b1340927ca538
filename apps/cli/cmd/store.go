package cmd

import (
	"fmt"

	"github.com/abdul-hamid-achik/spyspec/packages/db"
	"github.com/spf13/cobra"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the SQLite recording store",
	Long: `Import, list and delete recordings kept in a SQLite store. Check files
refer to stored recordings as sqlite://<path>#<id>.

The store is taken from --db, or from "store" in the config file.

Examples:
  spyspec store import out/session.json --db sqlite://runs.db
  spyspec store list
  spyspec store delete 3f2c`,
}

var storeDBFlag string

var storeImportCmd = &cobra.Command{
	Use:   "import <recording.json>...",
	Short: "Import JSON recordings into the store",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, conn, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		for _, path := range args {
			rec, err := openRecording(cmd.Context(), path, true)
			if err != nil {
				return err
			}
			if err := store.SaveRecording(cmd.Context(), rec); err != nil {
				return err
			}
			logger.Debug("imported recording", "path", path, "id", rec.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported: %s -> %s#%s\n", path, conn, rec.ID)
		}
		return nil
	},
}

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored recordings, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		recordings, err := store.ListRecordings(cmd.Context())
		if err != nil {
			return err
		}
		if len(recordings) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No recordings stored.")
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%-36s  %-20s  %6s  %6s\n", "ID", "CREATED", "SPIES", "CALLS")
		for _, r := range recordings {
			fmt.Fprintf(cmd.OutOrStdout(), "%-36s  %-20s  %6d  %6d\n",
				r.ID, r.Created.Local().Format("2006-01-02 15:04:05"), r.Spies, r.Calls)
		}
		return nil
	},
}

var storeDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete stored recordings",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		for _, id := range args {
			if err := store.DeleteRecording(cmd.Context(), id); err != nil {
				return withExitCode(ExitRecordingError, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted: %s\n", id)
		}
		return nil
	},
}

func init() {
	storeCmd.PersistentFlags().StringVar(&storeDBFlag, "db", getEnvString("SPYSPEC_STORE", ""), "Store connection string, e.g. sqlite://runs.db (env: SPYSPEC_STORE)")

	storeCmd.AddCommand(storeImportCmd)
	storeCmd.AddCommand(storeListCmd)
	storeCmd.AddCommand(storeDeleteCmd)
}

func openStore() (*db.Store, string, error) {
	conn, err := storeConnection(storeDBFlag)
	if err != nil {
		return nil, "", err
	}
	store, err := db.Open(conn)
	if err != nil {
		return nil, "", withExitCode(ExitConfigError, err)
	}
	return store, conn, nil
}

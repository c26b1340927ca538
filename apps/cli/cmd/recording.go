package cmd

import (
	"context"
	"fmt"

	"github.com/abdul-hamid-achik/spyspec/packages/core/config"
	"github.com/abdul-hamid-achik/spyspec/packages/db"
	"github.com/abdul-hamid-achik/spyspec/packages/recorder"
)

// openRecording loads a recording from a JSON file or a store reference
// such as sqlite://runs.db#<id>.
func openRecording(ctx context.Context, ref string, validate bool) (*recorder.Recording, error) {
	if db.IsReference(ref) {
		conn, id, err := db.SplitReference(ref)
		if err != nil {
			return nil, withExitCode(ExitUsageError, err)
		}
		store, err := db.Open(conn)
		if err != nil {
			return nil, withExitCode(ExitRecordingError, err)
		}
		defer store.Close()

		rec, err := store.LoadRecording(ctx, id)
		if err != nil {
			return nil, withExitCode(ExitRecordingError, err)
		}
		return rec, nil
	}

	if validate {
		if err := recorder.ValidateFile(ref); err != nil {
			return nil, withExitCode(ExitRecordingError, fmt.Errorf("%s: %w", ref, err))
		}
	}
	rec, err := recorder.Load(ref)
	if err != nil {
		return nil, withExitCode(ExitRecordingError, fmt.Errorf("loading recording: %w", err))
	}
	return rec, nil
}

// storeConnection picks the store from the flag, then the config file.
func storeConnection(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return "", withExitCode(ExitConfigError, err)
	}
	if cfg.Store == "" {
		return "", withExitCode(ExitUsageError, fmt.Errorf("no store configured (use --db or set store in the config file)"))
	}
	return cfg.Store, nil
}

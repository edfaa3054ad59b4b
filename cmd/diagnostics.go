// file: cmd/diagnostics.go
// version: 2.1.0
// guid: c8f6a0d4-2a8b-48cf-9d08-02cc9915d9fc

package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/pebble/v2"
	"github.com/jdfalk/playlist-importer/internal/config"
	"github.com/jdfalk/playlist-importer/internal/database"
	"github.com/spf13/cobra"
)

func newDiagnosticsCmd() *cobra.Command {
	diagnosticsCmd := &cobra.Command{
		Use:   "diagnostics",
		Short: "Debugging helpers",
		Long:  "Diagnostic utilities for inspecting the playlist database.",
	}

	var limit int
	var prefix string
	var raw bool
	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Inspect recent operations or raw database keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnosticsQuery(cmd.OutOrStdout(), limit, prefix, raw)
		},
	}
	queryCmd.Flags().IntVar(&limit, "limit", 5, "Number of records to display")
	queryCmd.Flags().StringVar(&prefix, "prefix", "collection:", "Key prefix to inspect when --raw is set")
	queryCmd.Flags().BoolVar(&raw, "raw", false, "Show raw Pebble key/value data (Pebble only)")

	migrationsCmd := &cobra.Command{
		Use:   "migrations",
		Short: "Show the schema version and applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			history, err := database.GetMigrationHistory(store)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(history) == 0 {
				fmt.Fprintln(out, "No migrations applied.")
				return nil
			}
			fmt.Fprintf(out, "Schema version %d\n", history[len(history)-1].Version)
			for _, m := range history {
				fmt.Fprintf(out, "  %3d  %s  %s\n", m.Version, m.AppliedAt.Local().Format(time.DateTime), m.Description)
			}
			return nil
		},
	}

	diagnosticsCmd.AddCommand(queryCmd, migrationsCmd)
	return diagnosticsCmd
}

func runDiagnosticsQuery(out io.Writer, limit int, prefix string, raw bool) error {
	if limit <= 0 {
		return errors.New("limit must be positive")
	}

	if raw {
		if config.AppConfig.DatabaseType != "pebble" {
			return fmt.Errorf("raw inspection is only available for Pebble databases")
		}
		return runRawPebbleQuery(out, limit, prefix)
	}

	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	ops, err := store.GetRecentOperations(limit)
	if err != nil {
		return fmt.Errorf("failed to fetch operations: %w", err)
	}
	if len(ops) == 0 {
		fmt.Fprintln(out, "No operations found.")
		return nil
	}

	for i, op := range ops {
		fmt.Fprintf(out, "%2d. ID: %s\n", i+1, op.ID)
		fmt.Fprintf(out, "    Type: %s\n", op.Type)
		fmt.Fprintf(out, "    Status: %s (%d/%d)\n", op.Status, op.Progress, op.Total)
		if op.FolderPath != nil {
			fmt.Fprintf(out, "    Folder: %s\n", *op.FolderPath)
		}
		if op.ErrorMessage != nil {
			fmt.Fprintf(out, "    Error: %s\n", *op.ErrorMessage)
		}
		logs, err := store.GetOperationLogs(op.ID)
		if err == nil {
			for _, entry := range logs {
				fmt.Fprintf(out, "    [%s] %s\n", entry.Level, truncateString(entry.Message, 200))
			}
		}
		fmt.Fprintln(out, "---")
	}

	return nil
}

func runRawPebbleQuery(out io.Writer, limit int, prefix string) error {
	db, err := pebble.Open(config.AppConfig.DatabasePath, &pebble.Options{
		FormatMajorVersion: pebble.FormatNewest,
	})
	if err != nil {
		return fmt.Errorf("failed to open Pebble database: %w", err)
	}
	defer db.Close()

	iterOpts := &pebble.IterOptions{}
	if prefix != "" {
		iterOpts.LowerBound = []byte(prefix)
		iterOpts.UpperBound = append([]byte(prefix), 0xFF)
	}

	iter, err := db.NewIter(iterOpts)
	if err != nil {
		return fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	count := 0
	for ok := iter.First(); ok && iter.Valid(); ok = iter.Next() {
		fmt.Fprintf(out, "Key: %s\n", string(iter.Key()))
		val := iter.Value()
		fmt.Fprintf(out, "Value length: %d bytes\n", len(val))
		fmt.Fprintf(out, "Value preview: %s\n", truncateString(string(val), 500))
		fmt.Fprintln(out, "---")

		count++
		if count >= limit {
			break
		}
	}

	if err := iter.Error(); err != nil {
		return fmt.Errorf("iterator error: %w", err)
	}

	if count == 0 {
		fmt.Fprintln(out, "No keys matched the requested prefix.")
	}

	return nil
}

func truncateString(in string, max int) string {
	if len(in) <= max {
		return in
	}
	return in[:max] + "..."
}

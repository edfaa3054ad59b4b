// file: cmd/import.go
// version: 1.0.0
// guid: 2e4f6a8c-1b3d-4e5f-9a7b-8c6d4e2f0a1b

package cmd

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jdfalk/playlist-importer/internal/config"
	"github.com/jdfalk/playlist-importer/internal/importer"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	var quiet bool

	importCmd := &cobra.Command{
		Use:   "import [dir]",
		Short: "Import a folder tree as collections",
		Long: `Import walks dir, or folder_dir when dir is omitted, and adds the
audio files of every directory to a collection named after it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			root := ""
			if len(args) > 0 {
				root = args[0]
			}
			opts := config.ImportOptions(root)
			if opts.Root == "" {
				return errors.New("no directory given and folder_dir is not set")
			}

			logger := newLogger()
			orchestrator, err := newOrchestrator(store, logger)
			if err != nil {
				return err
			}

			if quiet {
				opts.Reporter = importer.LogReporter{Logger: logger}
			} else {
				opts.Reporter = newBarReporter(cmd.ErrOrStderr(), cmd.OutOrStdout())
			}

			if _, err := orchestrator.Run(cmd.Context(), opts); err != nil {
				return fmt.Errorf("import of %s failed: %w", opts.Root, err)
			}
			return nil
		},
	}
	importCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "log the summary instead of drawing a progress bar")
	return importCmd
}

func newClearHistoryCmd() *cobra.Command {
	var yes bool

	clearCmd := &cobra.Command{
		Use:   "clear-history",
		Short: "Forget which files were imported",
		Long:  "Empties the import ledger so the next import picks up every file again.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				ok, err := promptYesNo(cmd.InOrStdin(), cmd.OutOrStdout(), "Clear the import history")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted. Import history kept.")
					return nil
				}
			}

			store, closeStore, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			orchestrator, err := newOrchestrator(store, newLogger())
			if err != nil {
				return err
			}
			if err := orchestrator.ClearHistory(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Import history cleared.")
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&yes, "yes", false, "skip confirmation prompt")
	return clearCmd
}

func newPurgeCmd() *cobra.Command {
	var yes bool

	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every collection created by an import",
		Long:  "Deletes imported collections and their tracks. Collections you created yourself are kept.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				ok, err := promptYesNo(cmd.InOrStdin(), cmd.OutOrStdout(), "Delete all imported collections")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted. No collections deleted.")
					return nil
				}
			}

			store, closeStore, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			orchestrator, err := newOrchestrator(store, newLogger())
			if err != nil {
				return err
			}
			purged, err := orchestrator.Purge()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d imported collections.\n", purged)
			return nil
		},
	}
	purgeCmd.Flags().BoolVar(&yes, "yes", false, "skip confirmation prompt")
	return purgeCmd
}

// barReporter draws directory progress on a terminal and prints the
// summary when the run ends.
type barReporter struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
	err io.Writer
	out io.Writer
}

func newBarReporter(errOut, out io.Writer) *barReporter {
	return &barReporter{err: errOut, out: out}
}

func (r *barReporter) Progress(finished, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bar == nil {
		r.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(r.err),
			progressbar.OptionSetDescription("importing directories"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	// The walk discovers directories as it goes.
	r.bar.ChangeMax(total)
	_ = r.bar.Set(finished)
}

func (r *barReporter) Complete(s importer.Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bar != nil {
		_ = r.bar.Finish()
	}

	fmt.Fprintf(r.out, "Directories visited: %d\n", s.DirectoriesVisited)
	fmt.Fprintf(r.out, "Collections created: %d\n", s.CollectionsCreated)
	fmt.Fprintf(r.out, "Collections reused:  %d\n", s.CollectionsReused)
	if s.CollectionsPurged > 0 {
		fmt.Fprintf(r.out, "Collections purged:  %d\n", s.CollectionsPurged)
	}
	fmt.Fprintf(r.out, "Tracks imported:     %d\n", s.TracksImported)
	fmt.Fprintf(r.out, "Tracks skipped:      %d\n", s.TracksSkipped)
	fmt.Fprintf(r.out, "Duration:            %v\n", s.Duration.Round(time.Millisecond))
	if len(s.Failures) > 0 {
		fmt.Fprintf(r.out, "Failures:            %d\n", len(s.Failures))
		for _, msg := range s.FailureMessages() {
			fmt.Fprintf(r.out, "  - %s\n", msg)
		}
	}
}

// file: cmd/serve.go
// version: 1.0.0
// guid: 3f5b7d9e-1a2c-4e6f-8b0d-4c6e8a0b2d4f

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jdfalk/playlist-importer/internal/browse"
	"github.com/jdfalk/playlist-importer/internal/config"
	"github.com/jdfalk/playlist-importer/internal/importer"
	"github.com/jdfalk/playlist-importer/internal/operations"
	"github.com/jdfalk/playlist-importer/internal/realtime"
	"github.com/jdfalk/playlist-importer/internal/server"
	"github.com/jdfalk/playlist-importer/internal/watcher"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newServeCmd() *cobra.Command {
	var readTimeout, idleTimeout time.Duration

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Serve exposes imports, collections and settings over HTTP. Imports
run one at a time on a background queue; progress is streamed at
/api/events and metrics are served at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			logger := newLogger()
			orchestrator, err := newOrchestrator(store, logger)
			if err != nil {
				return err
			}

			hub := realtime.NewEventHub()
			queue := operations.NewOperationQueue(store, hub, 1)
			defer func() {
				if err := queue.Shutdown(30 * time.Second); err != nil {
					log.Printf("[WARN] Operation queue shutdown error: %v", err)
				}
			}()

			srv := server.NewServer(store, queue, orchestrator, hub, logger)
			return srv.Start(cmd.Context(), server.ServerConfig{
				Listen:      config.AppConfig.Listen,
				ReadTimeout: readTimeout,
				IdleTimeout: idleTimeout,
			})
		},
	}

	serveCmd.Flags().String("listen", ":8484", "address to listen on")
	serveCmd.Flags().DurationVar(&readTimeout, "read-timeout", 15*time.Second, "read timeout (e.g. 15s, 1m)")
	serveCmd.Flags().DurationVar(&idleTimeout, "idle-timeout", 60*time.Second, "idle timeout (e.g. 60s, 2m)")
	if err := viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen")); err != nil {
		log.Printf("[WARN] Failed to bind flag listen: %v", err)
	}
	return serveCmd
}

func newWatchCmd() *cobra.Command {
	var initial bool

	watchCmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Re-import a local folder tree whenever it changes",
		Long: `Watch imports dir, or folder_dir when dir is omitted, and imports it
again once new audio files or directories have settled for
watch_debounce_seconds.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if kind := config.SourceKind(); kind != browse.KindData && kind != "local" {
				return fmt.Errorf("watch needs a local source, not %q", kind)
			}

			store, closeStore, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			root := config.AppConfig.FolderDir
			if len(args) > 0 {
				root = args[0]
			}
			if root == "" {
				return errors.New("no directory given and folder_dir is not set")
			}

			logger := newLogger()
			orchestrator, err := newOrchestrator(store, logger)
			if err != nil {
				return err
			}

			runImport := func(ctx context.Context, rootDir string) {
				if ctx.Err() != nil {
					return
				}
				opts := config.ImportOptions(rootDir)
				opts.Reporter = importer.LogReporter{Logger: logger}
				if _, err := orchestrator.Run(ctx, opts); err != nil {
					logger.Errorf("import of %s failed: %v", rootDir, err)
				}
			}

			ctx := cmd.Context()
			if initial {
				runImport(ctx, root)
			}

			debounce := time.Duration(config.AppConfig.WatchDebounceSeconds) * time.Second
			w := watcher.New(root, debounce, runImport, logger)
			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s, press Ctrl+C to stop\n", root)
			if err := w.Run(ctx); err != nil {
				return fmt.Errorf("failed to watch %s: %w", root, err)
			}
			return nil
		},
	}
	watchCmd.Flags().BoolVar(&initial, "initial", true, "import once before watching")
	return watchCmd
}

// file: cmd/root.go
// version: 2.0.0
// guid: 6a7b8c9d-0e1f-2a3b-4c5d-6e7f8a9b0c1d

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/jdfalk/playlist-importer/internal/browse"
	"github.com/jdfalk/playlist-importer/internal/config"
	"github.com/jdfalk/playlist-importer/internal/database"
	"github.com/jdfalk/playlist-importer/internal/importer"
	"github.com/jdfalk/playlist-importer/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// persistentBindings maps viper keys to root persistent flags.
var persistentBindings = map[string]string{
	"database_path":                   "db",
	"database_type":                   "db-type",
	"enable_sqlite3_i_know_the_risks": "enable-sqlite3-i-know-the-risks",
	config.KeyLogLevel:                "log-level",
	config.KeySource:                  "source",
	config.KeyBucket:                  "bucket",
	config.KeyDuplicateChecking:       "duplicate-check",
	config.KeyRepeat:                  "repeat",
	config.KeyStream:                  "stream",
	config.KeyLogVolume:               "log-volume",
	config.KeyOverride:                "override",
	config.KeyDeletePrevious:          "delete-previous",
	config.KeyPreserveNames:           "preserve-names",
	config.KeyExcludePattern:          "exclude",
	config.KeyWorkers:                 "workers",
	config.KeyReadTags:                "read-tags",
}

// newRootCmd builds the command tree and binds its flags to viper.
func newRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "playlist-importer",
		Short: "Import folder trees of audio files as playlists",
		Long: `Playlist Importer walks a local or S3 folder tree and creates one
collection per directory, named after the directory and its parents.

Files already imported are remembered in an import ledger so repeated
runs only pick up new files.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cfgFile)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.playlist-importer.yaml)")
	pf.String("db", "playlists.pebble", "path to database")
	pf.String("db-type", "pebble", "database type: pebble (default) or sqlite")
	pf.Bool("enable-sqlite3-i-know-the-risks", false, "enable SQLite3 database (PebbleDB recommended)")
	pf.String("log-level", "info", "log level: debug, info, warn or error")

	// Import behaviour. Unset flags fall back to stored settings.
	pf.String("source", browse.KindData, "where folders live: data (local) or s3")
	pf.String("bucket", "", "bucket to import from when --source=s3")
	pf.Bool("duplicate-check", true, "skip files recorded in the import ledger")
	pf.Bool("repeat", false, "mark imported tracks as repeating")
	pf.Bool("stream", false, "mark imported tracks as streamed")
	pf.String("log-volume", importer.DefaultLogVolume, "playback volume between 0 and 1 on a log scale")
	pf.Bool("override", false, "recreate collections left by earlier imports")
	pf.Bool("delete-previous", false, "purge imported collections before importing")
	pf.Bool("preserve-names", false, "keep directory names as they are")
	pf.String("exclude", "", "regular expression removed from collection names")
	pf.Int("workers", 1, "directories visited concurrently")
	pf.Bool("read-tags", false, "read artist and album tags from local files")

	for key, flag := range persistentBindings {
		if err := viper.BindPFlag(key, pf.Lookup(flag)); err != nil {
			log.Printf("[WARN] Failed to bind flag %s: %v", flag, err)
		}
	}

	rootCmd.AddCommand(
		newImportCmd(),
		newClearHistoryCmd(),
		newPurgeCmd(),
		newCollectionsCmd(),
		newExportCmd(),
		newSettingsCmd(),
		newServeCmd(),
		newWatchCmd(),
		newDiagnosticsCmd(),
	)
	return rootCmd
}

// Execute runs the CLI until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func initConfig(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".playlist-importer")
	}

	viper.SetEnvPrefix("PLAYLIST_IMPORTER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		log.Printf("[INFO] Using config file: %s", viper.ConfigFileUsed())
	}

	config.InitConfig()

	if dbDir := filepath.Dir(config.AppConfig.DatabasePath); dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	return nil
}

// openStore opens the configured database and applies persisted settings
// underneath explicit flags and environment values.
func openStore() (database.Store, func(), error) {
	if err := database.InitializeStore(config.AppConfig.DatabaseType, config.AppConfig.DatabasePath, config.AppConfig.EnableSQLite); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	closeStore := func() {
		if err := database.CloseStore(); err != nil {
			log.Printf("[WARN] Failed to close database: %v", err)
		}
	}

	if err := database.InitEncryption(filepath.Dir(config.AppConfig.DatabasePath)); err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("failed to initialize encryption: %w", err)
	}
	if err := config.LoadConfigFromDatabase(database.GlobalStore); err != nil {
		log.Printf("[WARN] Could not load config from database: %v", err)
	}
	config.SyncConfigFromEnv()

	return database.GlobalStore, closeStore, nil
}

func newLogger() *logging.Logger {
	return logging.NewLogger(logging.ParseLevel(config.AppConfig.LogLevel))
}

func newOrchestrator(store database.Store, logger *logging.Logger) (*importer.Orchestrator, error) {
	browser, err := browse.New(config.SourceKind(), config.BrowseOptions())
	if err != nil {
		return nil, err
	}
	return importer.NewOrchestrator(store, browser, logger), nil
}

// promptYesNo asks for confirmation; only "yes" confirms.
func promptYesNo(in io.Reader, out io.Writer, action string) (bool, error) {
	fmt.Fprintf(out, "%s? Type 'yes' to confirm: ", action)
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	return strings.TrimSpace(strings.ToLower(response)) == "yes", nil
}

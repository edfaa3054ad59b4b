// file: internal/config/config.go
// version: 2.0.0
// guid: 7b8c9d0e-1f2a-3b4c-5d6e-7f8a9b0c1d2e

package config

import (
	"strings"

	"github.com/jdfalk/playlist-importer/internal/browse"
	"github.com/jdfalk/playlist-importer/internal/importer"
	"github.com/spf13/viper"
)

// Persisted setting keys.
const (
	KeyDuplicateChecking = "enable_duplicate_checking"
	KeyRepeat            = "should_repeat"
	KeyStream            = "should_stream"
	KeyLogVolume         = "log_volume"
	KeyOverride          = "should_override_playlist"
	KeyDeletePrevious    = "should_delete_playlist"
	KeyPreserveNames     = "maintain_original_folder_name"
	KeyExcludePattern    = "custom_regex_delete"
	KeyBucket            = "bucket"
	KeySource            = "source"
	KeyFolderDir         = "folder_dir"
	KeyS3Region          = "s3_region"
	KeyS3Endpoint        = "s3_endpoint"
	KeyS3AccessKey       = "s3_access_key"
	KeyS3SecretKey       = "s3_secret_key"
	KeyWorkers           = "workers"
	KeyReadTags          = "read_tags"
	KeyLogLevel          = "log_level"
	KeyExportDir         = "export_dir"
	KeyWatchDebounce     = "watch_debounce_seconds"
	KeyAPIRateLimit      = "api_rate_limit_per_minute"
)

// Config holds application configuration
type Config struct {
	DatabasePath string
	DatabaseType string // "pebble" (default) or "sqlite"
	EnableSQLite bool   // Must be true to use SQLite (safety flag)
	Listen       string
	LogLevel     string
	ExportDir    string

	// Import behaviour
	EnableDuplicateChecking    bool
	ShouldRepeat               bool
	ShouldStream               bool
	LogVolume                  string
	ShouldOverridePlaylist     bool
	ShouldDeletePlaylist       bool
	MaintainOriginalFolderName bool
	CustomRegexDelete          string
	Workers                    int
	ReadTags                   bool

	// Source
	Source      string // "data" or "s3"
	FolderDir   string
	Bucket      string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	// Server and watch mode
	APIRateLimitPerMinute int
	WatchDebounceSeconds  int
}

var AppConfig Config

// Defaults returns the configuration used before any flag, environment
// variable or stored setting is applied.
func Defaults() Config {
	return Config{
		DatabaseType:            "pebble",
		Listen:                  ":8484",
		LogLevel:                "info",
		EnableDuplicateChecking: true,
		LogVolume:               importer.DefaultLogVolume,
		Workers:                 1,
		Source:                  browse.KindData,
		APIRateLimitPerMinute:   120,
		WatchDebounceSeconds:    5,
	}
}

// InitConfig initializes the application configuration from defaults and
// explicitly set viper values.
func InitConfig() {
	viper.SetDefault("database_type", "pebble")
	viper.SetDefault("enable_sqlite3_i_know_the_risks", false)
	viper.SetDefault("listen", ":8484")

	AppConfig = Defaults()
	AppConfig.DatabasePath = viper.GetString("database_path")
	AppConfig.DatabaseType = viper.GetString("database_type")
	AppConfig.EnableSQLite = viper.GetBool("enable_sqlite3_i_know_the_risks")
	AppConfig.Listen = viper.GetString("listen")

	// Setting keys have no viper defaults so IsSet only sees values the
	// user provided.
	SyncConfigFromEnv()

	// Normalize database type
	if AppConfig.DatabaseType == "sqlite3" {
		AppConfig.DatabaseType = "sqlite"
	}
	if AppConfig.DatabaseType == "" {
		AppConfig.DatabaseType = "pebble"
	}
}

// ImportOptions builds importer options from the current configuration.
// root overrides folder_dir when non-empty.
func ImportOptions(root string) importer.Options {
	if root == "" {
		root = AppConfig.FolderDir
	}
	return importer.Options{
		Root:                  root,
		DuplicateCheck:        AppConfig.EnableDuplicateChecking,
		Repeat:                AppConfig.ShouldRepeat,
		Stream:                AppConfig.ShouldStream,
		LogVolume:             AppConfig.LogVolume,
		Override:              AppConfig.ShouldOverridePlaylist,
		DeletePrevious:        AppConfig.ShouldDeletePlaylist,
		PreserveOriginalNames: AppConfig.MaintainOriginalFolderName,
		ExcludePattern:        AppConfig.CustomRegexDelete,
		ReadTags:              AppConfig.ReadTags,
		Workers:               AppConfig.Workers,
	}
}

// SourceKind returns the configured enumeration backend.
func SourceKind() string {
	kind := strings.ToLower(strings.TrimSpace(AppConfig.Source))
	if kind == "" {
		return browse.KindData
	}
	return kind
}

// BrowseOptions returns the enumeration backend options. Local browsing
// uses the OS filesystem.
func BrowseOptions() browse.Options {
	return browse.Options{
		Bucket:    AppConfig.Bucket,
		Region:    AppConfig.S3Region,
		Endpoint:  AppConfig.S3Endpoint,
		AccessKey: AppConfig.S3AccessKey,
		SecretKey: AppConfig.S3SecretKey,
	}
}

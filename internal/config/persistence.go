// file: internal/config/persistence.go
// version: 2.1.0
// guid: 9c8d7e6f-5a4b-3c2d-1e0f-9a8b7c6d5e4f

package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/jdfalk/playlist-importer/internal/database"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownSetting is returned for keys that are not persisted settings.
	ErrUnknownSetting = errors.New("unknown setting key")
	// ErrInvalidSettingValue is returned when a value does not parse as the
	// setting's type.
	ErrInvalidSettingValue = errors.New("invalid setting value")
)

type settingDef struct {
	typ      string
	isSecret bool
}

var settingDefs = map[string]settingDef{
	KeyDuplicateChecking: {"bool", false},
	KeyRepeat:            {"bool", false},
	KeyStream:            {"bool", false},
	KeyLogVolume:         {"float", false},
	KeyOverride:          {"bool", false},
	KeyDeletePrevious:    {"bool", false},
	KeyPreserveNames:     {"bool", false},
	KeyExcludePattern:    {"string", false},
	KeyBucket:            {"string", false},
	KeySource:            {"string", false},
	KeyFolderDir:         {"string", false},
	KeyS3Region:          {"string", false},
	KeyS3Endpoint:        {"string", false},
	KeyS3AccessKey:       {"string", false},
	KeyS3SecretKey:       {"string", true},
	KeyWorkers:           {"int", false},
	KeyReadTags:          {"bool", false},
	KeyLogLevel:          {"string", false},
	KeyExportDir:         {"string", false},
	KeyWatchDebounce:     {"int", false},
	KeyAPIRateLimit:      {"int", false},
}

// SettingKeys lists every persisted setting key in sorted order.
func SettingKeys() []string {
	keys := make([]string, 0, len(settingDefs))
	for key := range settingDefs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// IsSecret reports whether key is stored encrypted.
func IsSecret(key string) bool {
	return settingDefs[key].isSecret
}

// ConfigFilePath returns the path to the YAML config file next to the database.
func ConfigFilePath() string {
	if AppConfig.DatabasePath != "" {
		return filepath.Join(filepath.Dir(AppConfig.DatabasePath), "config.yaml")
	}
	return ""
}

// LoadConfigFromFile loads settings from the YAML config file as a fallback.
// Called after LoadConfigFromDatabase so file values only fill in gaps.
func LoadConfigFromFile() error {
	path := ConfigFilePath()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileConfig map[string]any
	if err := yaml.Unmarshal(data, &fileConfig); err != nil {
		log.Printf("[WARN] Failed to parse config file %s: %v", path, err)
		return nil
	}

	applied := 0

	// Only fill in values that are currently empty.
	stringFallbacks := map[string]*string{
		KeyFolderDir:      &AppConfig.FolderDir,
		KeyBucket:         &AppConfig.Bucket,
		KeyS3Region:       &AppConfig.S3Region,
		KeyS3Endpoint:     &AppConfig.S3Endpoint,
		KeyS3AccessKey:    &AppConfig.S3AccessKey,
		KeyS3SecretKey:    &AppConfig.S3SecretKey,
		KeyExcludePattern: &AppConfig.CustomRegexDelete,
		KeyExportDir:      &AppConfig.ExportDir,
	}
	for key, ptr := range stringFallbacks {
		if *ptr == "" {
			if val, ok := fileConfig[key].(string); ok && val != "" {
				*ptr = val
				applied++
				log.Printf("[INFO] Loaded %s from config file", key)
			}
		}
	}

	if applied > 0 {
		log.Printf("[INFO] Applied %d settings from config file %s", applied, path)
	}
	return nil
}

// SaveConfigToFile writes the settings to a YAML config file next to the
// database. The secret key is written in plaintext; the file is created
// with 0600 permissions.
func SaveConfigToFile() error {
	path := ConfigFilePath()
	if path == "" {
		return fmt.Errorf("cannot determine config file path")
	}

	fileConfig := make(map[string]any, len(settingDefs))
	for key, def := range settingDefs {
		value := settingValue(key)
		if def.isSecret && value == "" {
			continue
		}
		fileConfig[key] = value
	}

	data, err := yaml.Marshal(fileConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Printf("[INFO] Configuration saved to file: %s", path)
	return nil
}

// LoadConfigFromDatabase loads settings from database and applies them to AppConfig
// This is called after database initialization to override defaults with persisted values
func LoadConfigFromDatabase(store database.Store) error {
	if store == nil {
		return fmt.Errorf("store is nil")
	}

	settings, err := store.GetAllSettings()
	if err != nil {
		log.Printf("[WARN] Could not load settings from database: %v", err)
		return nil
	}

	applied := 0
	for _, setting := range settings {
		value, err := setting.Plaintext()
		if err != nil {
			log.Printf("[WARN] Failed to decrypt setting %q, will try config file fallback: %v", setting.Key, err)
			continue
		}

		if err := applySetting(setting.Key, value); err != nil {
			// The schema state setting lives in the
			// same keyspace.
			if !errors.Is(err, ErrUnknownSetting) {
				log.Printf("[WARN] Failed to apply setting %s: %v", setting.Key, err)
			}
			continue
		}
		applied++
	}

	log.Printf("[DEBUG] Applied %d settings from database", applied)

	if err := LoadConfigFromFile(); err != nil {
		log.Printf("[WARN] Config file fallback failed: %v", err)
	}
	return nil
}

// applySetting applies a single setting to AppConfig. Malformed values
// are rejected and leave AppConfig unchanged.
func applySetting(key, value string) error {
	parseBool := func(dst *bool) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s wants a bool: %v", ErrInvalidSettingValue, key, err)
		}
		*dst = b
		return nil
	}
	parseInt := func(dst *int) error {
		i, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s wants an int: %v", ErrInvalidSettingValue, key, err)
		}
		*dst = i
		return nil
	}

	switch key {
	// Import behaviour
	case KeyDuplicateChecking:
		return parseBool(&AppConfig.EnableDuplicateChecking)
	case KeyRepeat:
		return parseBool(&AppConfig.ShouldRepeat)
	case KeyStream:
		return parseBool(&AppConfig.ShouldStream)
	case KeyLogVolume:
		// Validated per directory at import time.
		AppConfig.LogVolume = value
	case KeyOverride:
		return parseBool(&AppConfig.ShouldOverridePlaylist)
	case KeyDeletePrevious:
		return parseBool(&AppConfig.ShouldDeletePlaylist)
	case KeyPreserveNames:
		return parseBool(&AppConfig.MaintainOriginalFolderName)
	case KeyExcludePattern:
		AppConfig.CustomRegexDelete = value
	case KeyWorkers:
		return parseInt(&AppConfig.Workers)
	case KeyReadTags:
		return parseBool(&AppConfig.ReadTags)

	// Source
	case KeySource:
		AppConfig.Source = value
	case KeyFolderDir:
		AppConfig.FolderDir = value
	case KeyBucket:
		AppConfig.Bucket = value
	case KeyS3Region:
		AppConfig.S3Region = value
	case KeyS3Endpoint:
		AppConfig.S3Endpoint = value
	case KeyS3AccessKey:
		AppConfig.S3AccessKey = value
	case KeyS3SecretKey:
		AppConfig.S3SecretKey = value

	// Misc
	case KeyLogLevel:
		AppConfig.LogLevel = value
	case KeyExportDir:
		AppConfig.ExportDir = value
	case KeyWatchDebounce:
		return parseInt(&AppConfig.WatchDebounceSeconds)
	case KeyAPIRateLimit:
		return parseInt(&AppConfig.APIRateLimitPerMinute)

	default:
		return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}

	return nil
}

// settingValue renders the current AppConfig value of key.
func settingValue(key string) string {
	switch key {
	case KeyDuplicateChecking:
		return strconv.FormatBool(AppConfig.EnableDuplicateChecking)
	case KeyRepeat:
		return strconv.FormatBool(AppConfig.ShouldRepeat)
	case KeyStream:
		return strconv.FormatBool(AppConfig.ShouldStream)
	case KeyLogVolume:
		return AppConfig.LogVolume
	case KeyOverride:
		return strconv.FormatBool(AppConfig.ShouldOverridePlaylist)
	case KeyDeletePrevious:
		return strconv.FormatBool(AppConfig.ShouldDeletePlaylist)
	case KeyPreserveNames:
		return strconv.FormatBool(AppConfig.MaintainOriginalFolderName)
	case KeyExcludePattern:
		return AppConfig.CustomRegexDelete
	case KeyWorkers:
		return strconv.Itoa(AppConfig.Workers)
	case KeyReadTags:
		return strconv.FormatBool(AppConfig.ReadTags)
	case KeySource:
		return AppConfig.Source
	case KeyFolderDir:
		return AppConfig.FolderDir
	case KeyBucket:
		return AppConfig.Bucket
	case KeyS3Region:
		return AppConfig.S3Region
	case KeyS3Endpoint:
		return AppConfig.S3Endpoint
	case KeyS3AccessKey:
		return AppConfig.S3AccessKey
	case KeyS3SecretKey:
		return AppConfig.S3SecretKey
	case KeyLogLevel:
		return AppConfig.LogLevel
	case KeyExportDir:
		return AppConfig.ExportDir
	case KeyWatchDebounce:
		return strconv.Itoa(AppConfig.WatchDebounceSeconds)
	case KeyAPIRateLimit:
		return strconv.Itoa(AppConfig.APIRateLimitPerMinute)
	}
	return ""
}

// UpdateSetting validates value, applies it to AppConfig and persists it.
func UpdateSetting(store database.Store, key, value string) error {
	if store == nil {
		return fmt.Errorf("store is nil")
	}
	def, ok := settingDefs[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	if def.typ == "float" {
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("%w: %s wants a number: %v", ErrInvalidSettingValue, key, err)
		}
	}

	previous := AppConfig
	if err := applySetting(key, value); err != nil {
		AppConfig = previous
		return err
	}
	if err := store.SetSetting(key, value, def.typ, def.isSecret); err != nil {
		AppConfig = previous
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}

// SettingValue returns the current value of key. Secrets are masked
// unless reveal is set.
func SettingValue(key string, reveal bool) (string, error) {
	def, ok := settingDefs[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	value := settingValue(key)
	if def.isSecret && !reveal {
		return database.MaskSecret(value), nil
	}
	return value, nil
}

// SaveConfigToDatabase persists current AppConfig to database AND config file.
func SaveConfigToDatabase(store database.Store) error {
	if store == nil {
		return fmt.Errorf("store is nil")
	}

	saved := 0
	for key, def := range settingDefs {
		value := settingValue(key)
		// An empty secret never overwrites a stored one.
		if def.isSecret && value == "" {
			existing, err := store.GetSetting(key)
			if err == nil && existing != nil && existing.Value != "" {
				continue
			}
		}

		if err := store.SetSetting(key, value, def.typ, def.isSecret); err != nil {
			log.Printf("[WARN] Failed to save setting %s: %v", key, err)
			continue
		}
		saved++
	}

	log.Printf("[INFO] Saved %d settings to database", saved)

	if err := SaveConfigToFile(); err != nil {
		log.Printf("[WARN] Failed to save config file: %v", err)
	}
	return nil
}

// SyncConfigFromEnv overrides AppConfig with explicitly set viper values
// (flags, environment, config file) without saving them.
func SyncConfigFromEnv() {
	for _, key := range SettingKeys() {
		if !viper.IsSet(key) {
			continue
		}
		if err := applySetting(key, viper.GetString(key)); err != nil {
			log.Printf("[WARN] Ignoring %s from environment: %v", key, err)
		}
	}
}

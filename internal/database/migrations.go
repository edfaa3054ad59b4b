// file: internal/database/migrations.go
// version: 3.0.0
// guid: 9a8b7c6d-5e4f-3d2c-1b0a-9f8e7d6c5b4a

package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"
)

// Migration upgrades a store by one schema version.
type Migration struct {
	Version     int
	Description string
	Up          func(store Store) error
}

// MigrationRecord describes an applied migration.
type MigrationRecord struct {
	Version     int       `json:"version"`
	Description string    `json:"description"`
	AppliedAt   time.Time `json:"applied_at"`
}

// schemaState is kept as one JSON setting so the version and its history
// are always written together.
type schemaState struct {
	Version int               `json:"version"`
	Applied []MigrationRecord `json:"applied"`
}

const (
	// SchemaSettingKey holds the schema state in the settings keyspace.
	SchemaSettingKey = "schema_state"

	// LegacyLedgerSettingKey holds the ledger as a single JSON object of
	// key -> true. Older databases stored it this way.
	LegacyLedgerSettingKey = "songs"
)

var migrations = []Migration{
	{
		Version:     1,
		Description: "collections, tracks, ledger and operations keyspaces",
		Up:          func(Store) error { return nil },
	},
	{
		Version:     2,
		Description: "move the legacy ledger setting into the ledger keyspace",
		Up:          moveLegacyLedger,
	},
}

// RunMigrations applies every migration newer than the stored schema
// version, saving the state after each step.
func RunMigrations(store Store) error {
	state, err := loadSchemaState(store)
	if err != nil {
		return err
	}

	from := state.Version
	for _, m := range migrations {
		if m.Version <= state.Version {
			continue
		}
		log.Printf("[INFO] Applying migration %d: %s", m.Version, m.Description)
		if err := m.Up(store); err != nil {
			return fmt.Errorf("migration %d failed: %w", m.Version, err)
		}

		state.Version = m.Version
		state.Applied = append(state.Applied, MigrationRecord{
			Version:     m.Version,
			Description: m.Description,
			AppliedAt:   time.Now().UTC(),
		})
		if err := saveSchemaState(store, state); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
	}

	if state.Version == from {
		log.Printf("[DEBUG] Database schema is current (version %d)", from)
	} else {
		log.Printf("[INFO] Database schema migrated from version %d to %d", from, state.Version)
	}
	return nil
}

// GetMigrationHistory returns the applied migrations, oldest first.
func GetMigrationHistory(store Store) ([]MigrationRecord, error) {
	state, err := loadSchemaState(store)
	if err != nil {
		return nil, err
	}
	return state.Applied, nil
}

func loadSchemaState(store Store) (schemaState, error) {
	var state schemaState
	setting, err := store.GetSetting(SchemaSettingKey)
	if errors.Is(err, ErrSettingNotFound) || (err == nil && setting == nil) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("failed to read schema state: %w", err)
	}
	if err := json.Unmarshal([]byte(setting.Value), &state); err != nil {
		return state, fmt.Errorf("failed to parse schema state: %w", err)
	}
	return state, nil
}

func saveSchemaState(store Store, state schemaState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return store.SetSetting(SchemaSettingKey, string(data), "json", false)
}

// moveLegacyLedger copies every key of the legacy ledger setting into the
// ledger and removes the setting. An unreadable setting is dropped.
func moveLegacyLedger(store Store) error {
	setting, err := store.GetSetting(LegacyLedgerSettingKey)
	if errors.Is(err, ErrSettingNotFound) || (err == nil && setting == nil) {
		return nil
	}
	if err != nil {
		return err
	}

	var legacy map[string]bool
	if err := json.Unmarshal([]byte(setting.Value), &legacy); err != nil {
		log.Printf("[WARN] Dropping unreadable legacy ledger: %v", err)
		return store.DeleteSetting(LegacyLedgerSettingKey)
	}

	moved := 0
	for key, present := range legacy {
		if !present {
			continue
		}
		if err := store.PutLedgerEntry(key); err != nil {
			return fmt.Errorf("failed to move ledger entry %q: %w", key, err)
		}
		moved++
	}
	log.Printf("[INFO] Moved %d legacy ledger entries", moved)
	return store.DeleteSetting(LegacyLedgerSettingKey)
}

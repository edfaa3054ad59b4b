// file: internal/database/settings.go
// version: 3.0.0
// guid: 8a7b6c5d-4e3f-2a1b-0c9d-8e7f6a5b4c3d

package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble/v2"
)

// ErrSettingNotFound is returned by GetSetting for unknown keys.
var ErrSettingNotFound = errors.New("setting not found")

const prefixSetting = "setting:"

// Setting is one stored configuration value. Secret values are stored
// sealed and returned as stored; callers decrypt or mask them.
type Setting struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Type     string `json:"type"` // string, bool, int, float or json
	IsSecret bool   `json:"is_secret"`
}

// newSetting seals value when isSecret is set. Empty secrets stay empty.
func newSetting(key, value, typ string, isSecret bool) (Setting, error) {
	s := Setting{Key: key, Value: value, Type: typ, IsSecret: isSecret}
	if isSecret && value != "" {
		sealed, err := EncryptValue(value)
		if err != nil {
			return Setting{}, fmt.Errorf("failed to seal %s: %w", key, err)
		}
		s.Value = sealed
	}
	return s, nil
}

// Plaintext returns the usable value of the setting.
func (s Setting) Plaintext() (string, error) {
	if !s.IsSecret || s.Value == "" {
		return s.Value, nil
	}
	return DecryptValue(s.Value)
}

// GetDecryptedSetting returns the plaintext value of key.
func GetDecryptedSetting(store Store, key string) (string, error) {
	setting, err := store.GetSetting(key)
	if err != nil {
		return "", err
	}
	if setting == nil {
		return "", fmt.Errorf("%w: %s", ErrSettingNotFound, key)
	}
	return setting.Plaintext()
}

func (p *PebbleStore) GetSetting(key string) (*Setting, error) {
	var setting Setting
	found, err := p.getJSON(prefixSetting+key, &setting)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrSettingNotFound, key)
	}
	return &setting, nil
}

func (p *PebbleStore) SetSetting(key, value, typ string, isSecret bool) error {
	setting, err := newSetting(key, value, typ, isSecret)
	if err != nil {
		return err
	}
	data, err := json.Marshal(setting)
	if err != nil {
		return err
	}
	return p.db.Set([]byte(prefixSetting+key), data, pebble.Sync)
}

// GetAllSettings returns every stored setting in key order.
func (p *PebbleStore) GetAllSettings() ([]Setting, error) {
	iter, err := p.db.NewIter(prefixBounds(prefixSetting))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var settings []Setting
	for iter.First(); iter.Valid(); iter.Next() {
		var setting Setting
		if err := json.Unmarshal(iter.Value(), &setting); err != nil {
			return nil, fmt.Errorf("corrupt setting %s: %w", iter.Key(), err)
		}
		settings = append(settings, setting)
	}
	return settings, iter.Error()
}

func (p *PebbleStore) DeleteSetting(key string) error {
	return p.db.Delete([]byte(prefixSetting+key), pebble.Sync)
}

func (s *SQLiteStore) GetSetting(key string) (*Setting, error) {
	var setting Setting
	err := s.db.QueryRow(
		`SELECT key, value, type, is_secret FROM settings WHERE key = ?`, key,
	).Scan(&setting.Key, &setting.Value, &setting.Type, &setting.IsSecret)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSettingNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (s *SQLiteStore) SetSetting(key, value, typ string, isSecret bool) error {
	setting, err := newSetting(key, value, typ, isSecret)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO settings (key, value, type, is_secret, updated_at)
		VALUES (?, ?, ?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			type = excluded.type,
			is_secret = excluded.is_secret,
			updated_at = excluded.updated_at
	`, setting.Key, setting.Value, setting.Type, setting.IsSecret)
	return err
}

// GetAllSettings returns every stored setting in key order.
func (s *SQLiteStore) GetAllSettings() ([]Setting, error) {
	rows, err := s.db.Query(`SELECT key, value, type, is_secret FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var setting Setting
		if err := rows.Scan(&setting.Key, &setting.Value, &setting.Type, &setting.IsSecret); err != nil {
			return nil, err
		}
		settings = append(settings, setting)
	}
	return settings, rows.Err()
}

func (s *SQLiteStore) DeleteSetting(key string) error {
	_, err := s.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	return err
}

// file: internal/database/sqlite_store.go
// version: 2.0.0
// guid: 8b9c0d1e-2f3a-4b5c-6d7e-8f9a0b1c2d3e

package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

const collectionSelectColumns = `id, name, flags, created_at, updated_at`

const trackSelectColumns = `
	id, collection_id, name, path, repeat, volume, stream,
	artist, album, position, created_at
`

func scanCollection(scanner rowScanner, collection *Collection) error {
	var flags string
	if err := scanner.Scan(&collection.ID, &collection.Name, &flags, &collection.CreatedAt, &collection.UpdatedAt); err != nil {
		return err
	}
	collection.Flags = map[string]bool{}
	if flags == "" {
		return nil
	}
	return json.Unmarshal([]byte(flags), &collection.Flags)
}

func scanTrack(scanner rowScanner, track *Track) error {
	var repeat, stream int
	err := scanner.Scan(
		&track.ID, &track.CollectionID, &track.Name, &track.Path,
		&repeat, &track.Volume, &stream, &track.Artist, &track.Album,
		&track.Position, &track.CreatedAt,
	)
	track.Repeat = repeat == 1
	track.Stream = stream == 1
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// SQLiteStore implements the Store interface using SQLite3
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	store := &SQLiteStore{db: db}

	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

// createTables creates all required tables
func (s *SQLiteStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		flags TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tracks (
		id TEXT PRIMARY KEY,
		collection_id TEXT NOT NULL,
		name TEXT NOT NULL,
		path TEXT NOT NULL,
		repeat INTEGER NOT NULL DEFAULT 0,
		volume REAL NOT NULL DEFAULT 0,
		stream INTEGER NOT NULL DEFAULT 0,
		artist TEXT NOT NULL DEFAULT '',
		album TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (collection_id) REFERENCES collections(id)
	);

	CREATE INDEX IF NOT EXISTS idx_tracks_collection ON tracks(collection_id, position);

	CREATE TABLE IF NOT EXISTS import_ledger (
		key TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'string',
		is_secret INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS operations (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		progress INTEGER NOT NULL DEFAULT 0,
		total INTEGER NOT NULL DEFAULT 0,
		message TEXT NOT NULL DEFAULT '',
		folder_path TEXT,
		created_at DATETIME NOT NULL,
		started_at DATETIME,
		completed_at DATETIME,
		error_message TEXT
	);

	CREATE TABLE IF NOT EXISTS operation_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		operation_id TEXT NOT NULL,
		level TEXT NOT NULL,
		message TEXT NOT NULL,
		details TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_operation_logs_op ON operation_logs(operation_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Reset removes all rows from every table.
func (s *SQLiteStore) Reset() error {
	tables := []string{"tracks", "collections", "import_ledger", "settings", "operation_logs", "operations"}
	for _, table := range tables {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// Collection operations

func (s *SQLiteStore) GetAllCollections() ([]Collection, error) {
	rows, err := s.db.Query(`SELECT ` + collectionSelectColumns + ` FROM collections ORDER BY created_at, rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var collections []Collection
	for rows.Next() {
		var collection Collection
		if err := scanCollection(rows, &collection); err != nil {
			return nil, err
		}
		collections = append(collections, collection)
	}
	return collections, rows.Err()
}

func (s *SQLiteStore) getCollection(where string, arg string) (*Collection, error) {
	var collection Collection
	row := s.db.QueryRow(`SELECT `+collectionSelectColumns+` FROM collections WHERE `+where+` = ?`, arg)
	if err := scanCollection(row, &collection); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &collection, nil
}

func (s *SQLiteStore) GetCollectionByID(id string) (*Collection, error) {
	return s.getCollection("id", id)
}

func (s *SQLiteStore) GetCollectionByName(name string) (*Collection, error) {
	return s.getCollection("name", name)
}

func (s *SQLiteStore) CreateCollection(name string, flags map[string]bool) (*Collection, error) {
	id, err := newULID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	collection := &Collection{ID: id, Name: name, Flags: copyFlags(flags), CreatedAt: now, UpdatedAt: now}
	data, err := json.Marshal(collection.Flags)
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(`
		INSERT INTO collections (id, name, flags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, name, string(data), now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection %q: %w", name, err)
	}
	return collection, nil
}

func (s *SQLiteStore) DeleteCollection(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tracks WHERE collection_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.Exec(`DELETE FROM collections WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCollectionNotFound
	}
	return tx.Commit()
}

func (s *SQLiteStore) SetCollectionFlag(id, flag string, value bool) error {
	collection, err := s.GetCollectionByID(id)
	if err != nil {
		return err
	}
	if collection == nil {
		return ErrCollectionNotFound
	}

	collection.Flags[flag] = value
	data, err := json.Marshal(collection.Flags)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`UPDATE collections SET flags = ?, updated_at = ? WHERE id = ?`, string(data), time.Now(), id)
	return err
}

func (s *SQLiteStore) CountCollections() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM collections`).Scan(&count)
	return count, err
}

// Track operations

func (s *SQLiteStore) AddTracks(collectionID string, tracks []Track) error {
	collection, err := s.GetCollectionByID(collectionID)
	if err != nil {
		return err
	}
	if collection == nil {
		return ErrCollectionNotFound
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var position int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(position), 0) FROM tracks WHERE collection_id = ?`, collectionID).Scan(&position); err != nil {
		return err
	}

	for i := range tracks {
		id, err := newULID()
		if err != nil {
			return err
		}
		position++

		track := tracks[i]
		track.ID = id
		track.CollectionID = collectionID
		track.Position = position
		track.CreatedAt = time.Now()

		_, err = tx.Exec(`
			INSERT INTO tracks (`+trackSelectColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, track.ID, track.CollectionID, track.Name, track.Path,
			boolToInt(track.Repeat), track.Volume, boolToInt(track.Stream),
			track.Artist, track.Album, track.Position, track.CreatedAt)
		if err != nil {
			return err
		}
		tracks[i] = track
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetTracks(collectionID string) ([]Track, error) {
	rows, err := s.db.Query(`SELECT `+trackSelectColumns+` FROM tracks WHERE collection_id = ? ORDER BY position`, collectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []Track
	for rows.Next() {
		var track Track
		if err := scanTrack(rows, &track); err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	return tracks, rows.Err()
}

// Ledger operations

func (s *SQLiteStore) HasLedgerEntry(key string) (bool, error) {
	var exists int
	err := s.db.QueryRow(`SELECT 1 FROM import_ledger WHERE key = ?`, key).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLiteStore) PutLedgerEntry(key string) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO import_ledger (key, created_at) VALUES (?, ?)`, key, time.Now())
	return err
}

func (s *SQLiteStore) DeleteLedgerEntry(key string) error {
	_, err := s.db.Exec(`DELETE FROM import_ledger WHERE key = ?`, key)
	return err
}

func (s *SQLiteStore) ClearLedger() error {
	_, err := s.db.Exec(`DELETE FROM import_ledger`)
	return err
}

func (s *SQLiteStore) CountLedgerEntries() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM import_ledger`).Scan(&count)
	return count, err
}

// Operation operations

const operationSelectColumns = `
	id, type, status, progress, total, message, folder_path,
	created_at, started_at, completed_at, error_message
`

func scanOperation(scanner rowScanner, op *Operation) error {
	return scanner.Scan(
		&op.ID, &op.Type, &op.Status, &op.Progress, &op.Total, &op.Message,
		&op.FolderPath, &op.CreatedAt, &op.StartedAt, &op.CompletedAt, &op.ErrorMessage,
	)
}

func (s *SQLiteStore) CreateOperation(id, opType string, folderPath *string) (*Operation, error) {
	op := &Operation{ID: id, Type: opType, Status: "pending", FolderPath: folderPath, CreatedAt: time.Now()}
	_, err := s.db.Exec(`
		INSERT INTO operations (id, type, status, folder_path, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, op.ID, op.Type, op.Status, op.FolderPath, op.CreatedAt)
	if err != nil {
		return nil, err
	}
	return op, nil
}

func (s *SQLiteStore) GetOperationByID(id string) (*Operation, error) {
	var op Operation
	row := s.db.QueryRow(`SELECT `+operationSelectColumns+` FROM operations WHERE id = ?`, id)
	if err := scanOperation(row, &op); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &op, nil
}

func (s *SQLiteStore) GetRecentOperations(limit int) ([]Operation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT `+operationSelectColumns+` FROM operations ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []Operation
	for rows.Next() {
		var op Operation
		if err := scanOperation(rows, &op); err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

func (s *SQLiteStore) UpdateOperationStatus(id, status string, progress, total int, message string) error {
	now := time.Now()
	var startedAt, completedAt *time.Time
	if status == "running" {
		startedAt = &now
	}
	if status == "completed" || status == "failed" || status == "canceled" {
		completedAt = &now
	}

	_, err := s.db.Exec(`
		UPDATE operations
		SET status = ?, progress = ?, total = ?, message = ?,
			started_at = COALESCE(started_at, ?),
			completed_at = COALESCE(?, completed_at)
		WHERE id = ?
	`, status, progress, total, message, startedAt, completedAt, id)
	return err
}

func (s *SQLiteStore) UpdateOperationError(id, errorMessage string) error {
	_, err := s.db.Exec(`
		UPDATE operations SET status = 'failed', error_message = ?, completed_at = ?
		WHERE id = ?
	`, errorMessage, time.Now(), id)
	return err
}

func (s *SQLiteStore) AddOperationLog(operationID, level, message string, details *string) error {
	_, err := s.db.Exec(`
		INSERT INTO operation_logs (operation_id, level, message, details, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, operationID, level, message, details, time.Now())
	return err
}

func (s *SQLiteStore) GetOperationLogs(operationID string) ([]OperationLog, error) {
	rows, err := s.db.Query(`
		SELECT id, operation_id, level, message, details, created_at
		FROM operation_logs WHERE operation_id = ? ORDER BY id
	`, operationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []OperationLog
	for rows.Next() {
		var entry OperationLog
		if err := rows.Scan(&entry.ID, &entry.OperationID, &entry.Level, &entry.Message, &entry.Details, &entry.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

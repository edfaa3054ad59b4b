// file: internal/ledger/ledger.go
// version: 1.1.0
// guid: 5a6b7c8d-9e0f-4a1b-2c3d-4e5f6a7b8c9d

// Package ledger records which (collection, track) pairs were imported.
//
// The ledger is independent of live collection contents: a track removed
// from a collection stays "seen" until the ledger is cleared.
package ledger

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Backend is the persistence the ledger needs. database.Store satisfies it.
type Backend interface {
	HasLedgerEntry(key string) (bool, error)
	PutLedgerEntry(key string) error
	DeleteLedgerEntry(key string) error
	ClearLedger() error
	CountLedgerEntries() (int, error)
}

// Key returns the ledger key of a track: the lower-cased concatenation of
// the collection name and the track name, with no separator.
func Key(collectionName, trackName string) string {
	return cases.Lower(language.Und).String(collectionName + trackName)
}

// Ledger checks and records imported tracks. Writes go straight to the
// backend, so a Record is visible to the next Has.
type Ledger struct {
	backend Backend
}

// New wraps backend.
func New(backend Backend) *Ledger {
	return &Ledger{backend: backend}
}

// Has reports whether the pair was recorded.
func (l *Ledger) Has(collectionName, trackName string) (bool, error) {
	seen, err := l.backend.HasLedgerEntry(Key(collectionName, trackName))
	if err != nil {
		return false, fmt.Errorf("failed to read ledger: %w", err)
	}
	return seen, nil
}

// Record marks the pair as imported.
func (l *Ledger) Record(collectionName, trackName string) error {
	if err := l.backend.PutLedgerEntry(Key(collectionName, trackName)); err != nil {
		return fmt.Errorf("failed to record ledger entry: %w", err)
	}
	return nil
}

// Forget removes the pair, undoing a Record whose import did not complete.
func (l *Ledger) Forget(collectionName, trackName string) error {
	if err := l.backend.DeleteLedgerEntry(Key(collectionName, trackName)); err != nil {
		return fmt.Errorf("failed to remove ledger entry: %w", err)
	}
	return nil
}

// Clear empties the whole ledger. It has no per-collection granularity and
// cannot be undone.
func (l *Ledger) Clear() error {
	if err := l.backend.ClearLedger(); err != nil {
		return fmt.Errorf("failed to clear ledger: %w", err)
	}
	return nil
}

// Count returns the number of recorded pairs.
func (l *Ledger) Count() (int, error) {
	return l.backend.CountLedgerEntries()
}

// file: internal/importer/errors.go
// version: 1.0.0
// guid: 3c4d5e6f-7a8b-4c9d-0e1f-2a3b4c5d6e7f

package importer

import (
	"errors"
	"fmt"
)

// ErrImportRunning is returned by Run while another run holds the importer.
var ErrImportRunning = errors.New("an import is already running")

// EnumerationError reports a directory that could not be listed. Only that
// branch of the walk is lost.
type EnumerationError struct {
	Path string
	Err  error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("failed to enumerate %s: %v", e.Path, e.Err)
}

func (e *EnumerationError) Unwrap() error { return e.Err }

// CollectionCreateError reports a collection that could not be created or
// replaced. The directory's files are skipped; its children are still
// walked.
type CollectionCreateError struct {
	Name string
	Err  error
}

func (e *CollectionCreateError) Error() string {
	return fmt.Sprintf("failed to create collection %q: %v", e.Name, e.Err)
}

func (e *CollectionCreateError) Unwrap() error { return e.Err }

// ConfigurationError reports an unusable setting value.
type ConfigurationError struct {
	Setting string
	Value   string
	Err     error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Setting, e.Value, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// LedgerPersistError reports a ledger write that failed. The track it
// belonged to is not appended.
type LedgerPersistError struct {
	Collection string
	Track      string
	Err        error
}

func (e *LedgerPersistError) Error() string {
	return fmt.Sprintf("failed to record %q in %q: %v", e.Track, e.Collection, e.Err)
}

func (e *LedgerPersistError) Unwrap() error { return e.Err }

// failureKind labels an error for metrics.
func failureKind(err error) string {
	var (
		enumErr   *EnumerationError
		createErr *CollectionCreateError
		configErr *ConfigurationError
		ledgerErr *LedgerPersistError
	)
	switch {
	case errors.As(err, &enumErr):
		return "enumeration"
	case errors.As(err, &createErr):
		return "collection_create"
	case errors.As(err, &configErr):
		return "configuration"
	case errors.As(err, &ledgerErr):
		return "ledger"
	default:
		return "store"
	}
}

// file: internal/importer/orchestrator.go
// version: 1.0.0
// guid: 8b9c0d1e-2f3a-4b4c-5d6e-7f8a9b0c1d2e

package importer

import (
	"context"
	"fmt"
	"sync"

	"github.com/jdfalk/playlist-importer/internal/browse"
	"github.com/jdfalk/playlist-importer/internal/database"
	"github.com/jdfalk/playlist-importer/internal/ledger"
	"github.com/jdfalk/playlist-importer/internal/logging"
	"github.com/jdfalk/playlist-importer/internal/metrics"
)

// Orchestrator runs imports against one store. Runs are serialized.
type Orchestrator struct {
	store   database.Store
	browser browse.Browser
	logger  *logging.Logger
	running sync.Mutex
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(store database.Store, browser browse.Browser, logger *logging.Logger) *Orchestrator {
	return &Orchestrator{store: store, browser: browser, logger: logger}
}

// Run purges previous imports when requested, then walks opts.Root.
//
// Only a purge failure, a failure to list the root or a canceled context
// are returned as errors. The reporter's Complete is called on every path.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (summary Summary, err error) {
	if !o.running.TryLock() {
		return Summary{}, ErrImportRunning
	}
	defer o.running.Unlock()

	reporter := opts.Reporter
	if reporter == nil {
		reporter = NopReporter{}
	}

	timer := o.logger.Start("import " + opts.Root)
	defer func() {
		summary.Duration = timer.Stop(err)
		metrics.ObserveImportDuration(summary.Duration)
		o.updateGauges()
		reporter.Complete(summary)
	}()

	if opts.DeletePrevious {
		summary.CollectionsPurged, err = o.purge()
		if err != nil {
			return summary, err
		}
	}

	walker, err := NewWalker(o.browser, o.store, opts, o.logger)
	if err != nil {
		return summary, err
	}

	summary.Result, err = walker.walk(ctx, opts.Root, reporter.Progress)
	return summary, err
}

// Purge deletes every collection created by an import. User-created
// collections are kept.
func (o *Orchestrator) Purge() (int, error) {
	if !o.running.TryLock() {
		return 0, ErrImportRunning
	}
	defer o.running.Unlock()

	purged, err := o.purge()
	o.updateGauges()
	return purged, err
}

func (o *Orchestrator) purge() (int, error) {
	collections, err := o.store.GetAllCollections()
	if err != nil {
		return 0, fmt.Errorf("failed to list collections: %w", err)
	}

	purged := 0
	for i := range collections {
		if !collections[i].IsImported() {
			continue
		}
		if err := o.store.DeleteCollection(collections[i].ID); err != nil {
			return purged, fmt.Errorf("failed to delete collection %q: %w", collections[i].Name, err)
		}
		purged++
	}
	o.logger.Infof("purged %d imported collections", purged)
	return purged, nil
}

// ClearHistory empties the import ledger so every file can be imported
// again.
func (o *Orchestrator) ClearHistory() error {
	if !o.running.TryLock() {
		return ErrImportRunning
	}
	defer o.running.Unlock()

	if err := ledger.New(o.store).Clear(); err != nil {
		return err
	}
	o.logger.Infof("import history cleared")
	o.updateGauges()
	return nil
}

func (o *Orchestrator) updateGauges() {
	if n, err := o.store.CountCollections(); err == nil {
		metrics.SetCollections(n)
	}
	if n, err := o.store.CountLedgerEntries(); err == nil {
		metrics.SetLedgerEntries(n)
	}
}

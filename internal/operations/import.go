// file: internal/operations/import.go
// version: 1.0.0
// guid: a1b2c3d4-e5f6-4890-abcd-ef1234567890

package operations

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jdfalk/playlist-importer/internal/database"
	"github.com/jdfalk/playlist-importer/internal/importer"
)

// Operation types.
const (
	TypeImport       = "import"
	TypePurge        = "purge"
	TypeClearHistory = "clear_history"
)

// Runner runs one import. *importer.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, opts importer.Options) (importer.Summary, error)
}

// Maintainer performs the maintenance operations of an importer.
type Maintainer interface {
	Purge() (int, error)
	ClearHistory() error
}

// importReporter turns import progress into operation progress and the
// summary into operation logs.
type importReporter struct {
	operationID string
	progress    ProgressReporter
	publisher   Publisher
	next        importer.Reporter
}

func (r *importReporter) Progress(finished, total int) {
	_ = r.progress.UpdateProgress(finished, total, fmt.Sprintf("%d of %d directories", finished, total))
	if r.next != nil {
		r.next.Progress(finished, total)
	}
}

func (r *importReporter) Complete(s importer.Summary) {
	for _, msg := range s.FailureMessages() {
		_ = r.progress.Log("warn", msg, nil)
	}

	payload := summaryPayload(s)
	var details *string
	if data, err := json.Marshal(payload); err == nil {
		text := string(data)
		details = &text
	}
	_ = r.progress.Log("info", fmt.Sprintf("imported %d tracks into %d new and %d reused collections",
		s.TracksImported, s.CollectionsCreated, s.CollectionsReused), details)

	if r.publisher != nil {
		r.publisher.SendImportSummary(r.operationID, payload)
	}
	if r.next != nil {
		r.next.Complete(s)
	}
}

func summaryPayload(s importer.Summary) map[string]any {
	return map[string]any{
		"collections_created": s.CollectionsCreated,
		"collections_reused":  s.CollectionsReused,
		"collections_purged":  s.CollectionsPurged,
		"tracks_imported":     s.TracksImported,
		"tracks_skipped":      s.TracksSkipped,
		"directories_visited": s.DirectoriesVisited,
		"failures":            s.FailureMessages(),
		"duration_ms":         s.Duration.Milliseconds(),
	}
}

// SubmitImport queues an import run. Any reporter already set on opts
// keeps receiving events.
func (q *OperationQueue) SubmitImport(runner Runner, opts importer.Options) (*database.Operation, error) {
	root := opts.Root
	return q.Submit(TypeImport, &root, func(ctx context.Context, progress ProgressReporter) error {
		run := opts
		run.Reporter = &importReporter{
			operationID: progress.OperationID(),
			progress:    progress,
			publisher:   q.publisher,
			next:        opts.Reporter,
		}
		_, err := runner.Run(ctx, run)
		return err
	})
}

// SubmitPurge queues deletion of every imported collection.
func (q *OperationQueue) SubmitPurge(m Maintainer) (*database.Operation, error) {
	return q.Submit(TypePurge, nil, func(ctx context.Context, progress ProgressReporter) error {
		purged, err := m.Purge()
		if err != nil {
			return err
		}
		return progress.Log("info", fmt.Sprintf("purged %d imported collections", purged), nil)
	})
}

// SubmitClearHistory queues clearing of the import ledger.
func (q *OperationQueue) SubmitClearHistory(m Maintainer) (*database.Operation, error) {
	return q.Submit(TypeClearHistory, nil, func(ctx context.Context, progress ProgressReporter) error {
		if err := m.ClearHistory(); err != nil {
			return err
		}
		return progress.Log("info", "import history cleared", nil)
	})
}

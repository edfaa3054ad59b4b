// file: internal/importer/reporter.go
// version: 1.0.0
// guid: 5e6f7a8b-9c0d-4e1f-2a3b-4c5d6e7f8a9b

package importer

import (
	"time"

	"github.com/jdfalk/playlist-importer/internal/logging"
)

// Result aggregates the outcome of a walk.
type Result struct {
	CollectionsCreated int     `json:"collections_created"`
	CollectionsReused  int     `json:"collections_reused"`
	TracksImported     int     `json:"tracks_imported"`
	TracksSkipped      int     `json:"tracks_skipped"`
	DirectoriesVisited int     `json:"directories_visited"`
	Failures           []error `json:"-"`
}

// Summary is the outcome of a whole run.
type Summary struct {
	Result
	CollectionsPurged int           `json:"collections_purged"`
	Duration          time.Duration `json:"duration"`
}

// FailureMessages renders Failures for JSON output.
func (r Result) FailureMessages() []string {
	out := make([]string, 0, len(r.Failures))
	for _, err := range r.Failures {
		out = append(out, err.Error())
	}
	return out
}

// Reporter receives progress during a run and the summary at its end.
// Complete is called exactly once per run, on every exit path.
type Reporter interface {
	Progress(finished, total int)
	Complete(summary Summary)
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) Progress(int, int) {}
func (NopReporter) Complete(Summary)  {}

// LogReporter writes the summary through a logger.
type LogReporter struct {
	Logger *logging.Logger
}

func (r LogReporter) Progress(finished, total int) {
	r.Logger.Debugf("progress %d/%d directories", finished, total)
}

func (r LogReporter) Complete(s Summary) {
	r.Logger.Infof("import complete: %d collections created, %d reused, %d tracks imported, %d skipped, %d failures in %v",
		s.CollectionsCreated, s.CollectionsReused, s.TracksImported, s.TracksSkipped, len(s.Failures), s.Duration)
	for _, err := range s.Failures {
		r.Logger.Warnf("%v", err)
	}
}

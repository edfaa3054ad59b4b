// file: internal/importer/walker.go
// version: 1.1.0
// guid: 6f7a8b9c-0d1e-4f2a-3b4c-5d6e7f8a9b0c

package importer

import (
	"context"
	"fmt"
	"path"
	"sync"

	"github.com/jdfalk/playlist-importer/internal/browse"
	"github.com/jdfalk/playlist-importer/internal/database"
	"github.com/jdfalk/playlist-importer/internal/ledger"
	"github.com/jdfalk/playlist-importer/internal/logging"
	"github.com/jdfalk/playlist-importer/internal/metrics"
	"github.com/jdfalk/playlist-importer/internal/naming"
	"golang.org/x/sync/errgroup"
)

// Walker imports a directory tree, one collection per directory.
type Walker struct {
	browser    browse.Browser
	store      database.Store
	ledger     *ledger.Ledger
	normalizer *naming.Normalizer
	opts       Options
	logger     *logging.Logger
}

// NewWalker validates opts and builds a walker. An invalid exclusion
// pattern is returned as a *ConfigurationError.
func NewWalker(browser browse.Browser, store database.Store, opts Options, logger *logging.Logger) (*Walker, error) {
	normalizer, err := naming.NewNormalizer(opts.ExcludePattern)
	if err != nil {
		return nil, &ConfigurationError{Setting: "custom_regex_delete", Value: opts.ExcludePattern, Err: err}
	}
	return &Walker{
		browser:    browser,
		store:      store,
		ledger:     ledger.New(store),
		normalizer: normalizer,
		opts:       opts,
		logger:     logger.With("importer"),
	}, nil
}

// traversal is the state of one Walk. It is created per run and released
// when the run ends.
type traversal struct {
	mu       sync.Mutex
	visited  map[string]struct{}
	claimed  []string
	result   Result
	total    int
	finished int
	progress func(finished, total int)
}

func (t *traversal) release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.visited = nil
	t.claimed = nil
}

// visit adds p to the visited set and reports whether it was new.
func (t *traversal) visit(p string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.visited[p]; ok {
		return false
	}
	t.visited[p] = struct{}{}
	t.total++
	return true
}

// markVisited records p without counting it as a pending directory.
func (t *traversal) markVisited(p string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.visited[p] = struct{}{}
}

func (t *traversal) done(visited bool) {
	t.mu.Lock()
	t.finished++
	if visited {
		t.result.DirectoriesVisited++
	}
	finished, total := t.finished, t.total
	t.mu.Unlock()

	if t.progress != nil {
		t.progress(finished, total)
	}
}

func (t *traversal) fail(err error) {
	metrics.IncDirectoryFailure(failureKind(err))
	t.mu.Lock()
	defer t.mu.Unlock()
	t.result.Failures = append(t.result.Failures, err)
}

func (t *traversal) skipped(reason string) {
	metrics.IncTrackSkipped(reason)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.result.TracksSkipped++
}

func (t *traversal) imported() {
	metrics.IncTrackImported()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.result.TracksImported++
}

func (t *traversal) snapshot() Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.result
	r.Failures = append([]error(nil), t.result.Failures...)
	return r
}

// Walk imports the tree under root. The returned error is non-nil only when
// root itself cannot be listed or ctx is canceled; every other failure is
// collected in Result.Failures.
func (w *Walker) Walk(ctx context.Context, root string) (Result, error) {
	return w.walk(ctx, root, nil)
}

func (w *Walker) walk(ctx context.Context, root string, progress func(finished, total int)) (Result, error) {
	tr, err := w.newTraversal(progress)
	if err != nil {
		return Result{}, err
	}
	defer tr.release()

	tr.visit(cleanPath(root))
	listing, err := w.browser.Browse(ctx, root)
	if err != nil {
		enumErr := &EnumerationError{Path: root, Err: err}
		tr.fail(enumErr)
		tr.done(false)
		return tr.snapshot(), enumErr
	}
	tr.markVisited(cleanPath(listing.Target))

	if w.opts.Workers <= 1 {
		w.walkSequential(ctx, tr, "", listing, "")
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(w.opts.Workers)
		g.Go(func() error {
			return w.walkConcurrent(gctx, g, tr, "", listing, "")
		})
		_ = g.Wait()
	}

	return tr.snapshot(), ctx.Err()
}

// newTraversal seeds the claimed names with user-created collections so
// imports never write into them.
func (w *Walker) newTraversal(progress func(finished, total int)) (*traversal, error) {
	collections, err := w.store.GetAllCollections()
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	tr := &traversal{
		visited:  make(map[string]struct{}),
		progress: progress,
	}
	for i := range collections {
		if !collections[i].IsImported() {
			tr.claimed = append(tr.claimed, collections[i].Name)
		}
	}
	return tr, nil
}

func (w *Walker) walkSequential(ctx context.Context, tr *traversal, dir string, listing *browse.Listing, parent string) {
	if ctx.Err() != nil {
		return
	}
	listing = w.list(ctx, tr, dir, listing)
	if listing == nil {
		return
	}

	name, children := w.visitDirectory(ctx, tr, listing, parent)
	tr.done(true)

	for _, child := range children {
		w.walkSequential(ctx, tr, child, nil, name)
	}
}

// walkConcurrent lists and imports dir, then hands each child to a free
// worker of g. When every worker is busy the child is walked on the current
// goroutine, so the group never blocks waiting on its own descendants.
func (w *Walker) walkConcurrent(ctx context.Context, g *errgroup.Group, tr *traversal, dir string, listing *browse.Listing, parent string) error {
	if ctx.Err() != nil {
		return nil
	}
	listing = w.list(ctx, tr, dir, listing)
	if listing == nil {
		return nil
	}
	name, children := w.visitDirectory(ctx, tr, listing, parent)
	tr.done(true)

	for _, child := range children {
		walkChild := func() error {
			return w.walkConcurrent(ctx, g, tr, child, nil, name)
		}
		if !g.TryGo(walkChild) {
			_ = walkChild()
		}
	}
	return nil
}

// list returns listing when already known and browses dir otherwise. A
// failed listing is recorded and aborts only this branch.
func (w *Walker) list(ctx context.Context, tr *traversal, dir string, listing *browse.Listing) *browse.Listing {
	if listing != nil {
		return listing
	}
	listing, err := w.browser.Browse(ctx, dir)
	if err != nil {
		w.logger.Warnf("skipping %s: %v", dir, err)
		tr.fail(&EnumerationError{Path: dir, Err: err})
		tr.done(false)
		return nil
	}
	return listing
}

// visitDirectory resolves and claims the collection for listing, imports
// its files and returns the collection name with the unvisited children.
// The name is returned even when the collection could not be created so
// descendants keep a stable prefix.
func (w *Walker) visitDirectory(ctx context.Context, tr *traversal, listing *browse.Listing, parent string) (string, []string) {
	name, collection, err := w.claimCollection(tr, listing.Target, parent)
	if err != nil {
		w.logger.Errorf("%v", err)
		tr.fail(err)
	} else {
		w.importFiles(ctx, tr, collection, listing)
	}

	self := cleanPath(listing.Target)
	var children []string
	for _, dir := range listing.Dirs {
		child := cleanPath(dir)
		if child == self {
			continue
		}
		if tr.visit(child) {
			children = append(children, child)
		} else {
			w.logger.Debugf("already visited %s", child)
		}
	}
	return name, children
}

// claimCollection resolves a free name and creates or reuses the
// collection under the traversal lock, so sibling resolution and creation
// happen as one step.
func (w *Walker) claimCollection(tr *traversal, target, parent string) (string, *database.Collection, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	base := naming.BaseName(target)
	for {
		name := naming.ResolveCollectionName(base, parent, tr.claimed, w.opts.PreserveOriginalNames, w.normalizer)
		tr.claimed = append(tr.claimed, name)

		existing, err := w.store.GetCollectionByName(name)
		if err != nil {
			metrics.IncCollection("failed")
			return name, nil, &CollectionCreateError{Name: name, Err: err}
		}

		switch {
		case existing == nil:
			created, err := w.createCollection(name)
			if err != nil {
				return name, nil, err
			}
			tr.result.CollectionsCreated++
			return name, created, nil

		case !existing.IsImported():
			// Created by the user after the run started; route around it.
			continue

		case w.opts.Override:
			if err := w.store.DeleteCollection(existing.ID); err != nil {
				metrics.IncCollection("failed")
				return name, nil, &CollectionCreateError{Name: name, Err: fmt.Errorf("failed to delete existing collection: %w", err)}
			}
			created, err := w.createCollection(name)
			if err != nil {
				return name, nil, err
			}
			tr.result.CollectionsCreated++
			return name, created, nil

		default:
			w.logger.Debugf("reusing collection %q", name)
			metrics.IncCollection("reused")
			tr.result.CollectionsReused++
			return name, existing, nil
		}
	}
}

func (w *Walker) createCollection(name string) (*database.Collection, error) {
	created, err := w.store.CreateCollection(name, map[string]bool{database.FlagImported: true})
	if err != nil {
		metrics.IncCollection("failed")
		return nil, &CollectionCreateError{Name: name, Err: err}
	}
	w.logger.Infof("created collection %q", name)
	metrics.IncCollection("created")
	return created, nil
}

// importFiles appends the accepted, not yet imported files of listing to
// collection, in listing order.
func (w *Walker) importFiles(ctx context.Context, tr *traversal, collection *database.Collection, listing *browse.Listing) {
	if len(listing.Files) == 0 {
		return
	}

	volume, err := ParseVolume(w.opts.LogVolume)
	if err != nil {
		w.logger.Warnf("skipping files of %s: %v", listing.Target, err)
		tr.fail(err)
		return
	}

	existing, err := w.store.GetTracks(collection.ID)
	if err != nil {
		tr.fail(fmt.Errorf("failed to load tracks of %q: %w", collection.Name, err))
		return
	}
	live := make(map[string]bool, len(existing))
	for _, track := range existing {
		live[track.Name] = true
	}

	locator, _ := w.browser.(browse.Locator)

	for _, file := range listing.Files {
		if ctx.Err() != nil {
			return
		}

		if !IsAcceptedExtension(file) {
			w.logger.Debugf("skipping %s: unsupported extension", file)
			tr.skipped("extension")
			continue
		}

		trackName := w.normalizer.Normalize(file)

		if w.opts.DuplicateCheck {
			seen, err := w.ledger.Has(collection.Name, trackName)
			if err != nil {
				tr.fail(err)
				tr.skipped("ledger_error")
				continue
			}
			if seen {
				w.logger.Debugf("skipping %q in %q: already imported", trackName, collection.Name)
				tr.skipped("ledger")
				continue
			}
		}
		if live[trackName] {
			w.logger.Debugf("skipping %q in %q: already in collection", trackName, collection.Name)
			tr.skipped("duplicate")
			continue
		}

		filePath := path.Join(listing.Target, file)
		track := database.Track{
			Name:   trackName,
			Path:   filePath,
			Repeat: w.opts.Repeat,
			Volume: volume,
			Stream: w.opts.Stream,
		}
		if locator != nil {
			track.Path = locator.URL(filePath)
		}
		if w.opts.ReadTags {
			w.readTags(ctx, filePath, &track)
		}

		if err := w.ledger.Record(collection.Name, trackName); err != nil {
			tr.fail(&LedgerPersistError{Collection: collection.Name, Track: trackName, Err: err})
			tr.skipped("ledger_error")
			continue
		}
		if err := w.store.AddTracks(collection.ID, []database.Track{track}); err != nil {
			tr.fail(fmt.Errorf("failed to add %q to %q: %w", trackName, collection.Name, err))
			if err := w.ledger.Forget(collection.Name, trackName); err != nil {
				tr.fail(&LedgerPersistError{Collection: collection.Name, Track: trackName, Err: err})
			}
			continue
		}

		live[trackName] = true
		tr.imported()
	}
}

func cleanPath(p string) string {
	return path.Clean(p)
}

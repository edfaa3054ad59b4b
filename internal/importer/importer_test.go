// file: internal/importer/importer_test.go
// version: 1.1.0
// guid: 9c0d1e2f-3a4b-4c5d-6e7f-8a9b0c1d2e3f

package importer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jdfalk/playlist-importer/internal/browse"
	"github.com/jdfalk/playlist-importer/internal/database"
	"github.com/jdfalk/playlist-importer/internal/ledger"
	"github.com/jdfalk/playlist-importer/internal/logging"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBrowser serves fixed listings and counts how often each path is
// browsed.
type fakeBrowser struct {
	mu       sync.Mutex
	listings map[string]*browse.Listing
	errs     map[string]error
	calls    map[string]int
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{
		listings: map[string]*browse.Listing{},
		errs:     map[string]error{},
		calls:    map[string]int{},
	}
}

func (f *fakeBrowser) dir(p string, files []string, dirs ...string) *fakeBrowser {
	f.listings[p] = &browse.Listing{Target: p, Files: files, Dirs: dirs}
	return f
}

func (f *fakeBrowser) Browse(_ context.Context, p string) (*browse.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[p]++
	if err, ok := f.errs[p]; ok {
		return nil, err
	}
	l, ok := f.listings[p]
	if !ok {
		return nil, fmt.Errorf("no such directory: %s", p)
	}
	copied := *l
	return &copied, nil
}

type urlBrowser struct{ *fakeBrowser }

func (urlBrowser) URL(p string) string { return "s3://bucket/" + p }

type recordingReporter struct {
	mu        sync.Mutex
	progress  [][2]int
	summaries []Summary
}

func (r *recordingReporter) Progress(finished, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, [2]int{finished, total})
}

func (r *recordingReporter) Complete(s Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, s)
}

func newStore(t *testing.T) database.Store {
	t.Helper()
	store, err := database.NewPebbleStore(filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.ErrorLevel)
}

func runImport(t *testing.T, store database.Store, browser browse.Browser, opts Options) (Summary, error) {
	t.Helper()
	return NewOrchestrator(store, browser, testLogger()).Run(context.Background(), opts)
}

func trackNames(t *testing.T, store database.Store, collection string) []string {
	t.Helper()
	c, err := store.GetCollectionByName(collection)
	require.NoError(t, err)
	require.NotNil(t, c, "collection %q", collection)
	tracks, err := store.GetTracks(c.ID)
	require.NoError(t, err)
	names := []string{}
	for _, track := range tracks {
		names = append(names, track.Name)
	}
	return names
}

func collectionNames(t *testing.T, store database.Store) []string {
	t.Helper()
	collections, err := store.GetAllCollections()
	require.NoError(t, err)
	names := []string{}
	for _, c := range collections {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}

func TestForestSoundsScenario(t *testing.T) {
	// Arrange
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/Music/Forest Sounds", 0o755))
	for _, name := range []string{"rain_Loop.wav", "Owl-Hoot.ogg", "notes.txt"} {
		require.NoError(t, afero.WriteFile(fs, "/Music/Forest Sounds/"+name, []byte("x"), 0o644))
	}
	store := newStore(t)
	opts := DefaultOptions()
	opts.Root = "/Music/Forest Sounds"

	// Act
	summary, err := runImport(t, store, browse.NewLocal(fs), opts)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"Forest Sounds"}, collectionNames(t, store))
	assert.ElementsMatch(t, []string{"Rain Loop", "Owl Hoot"}, trackNames(t, store, "Forest Sounds"))
	assert.Equal(t, 1, summary.CollectionsCreated)
	assert.Equal(t, 2, summary.TracksImported)
	assert.Equal(t, 1, summary.TracksSkipped)
	assert.Equal(t, 1, summary.DirectoriesVisited)
	assert.Empty(t, summary.Failures)

	c, err := store.GetCollectionByName("Forest Sounds")
	require.NoError(t, err)
	assert.True(t, c.IsImported())
	tracks, err := store.GetTracks(c.ID)
	require.NoError(t, err)
	for _, track := range tracks {
		assert.InDelta(t, InputToVolume(0.5), track.Volume, 1e-9)
		assert.Contains(t, track.Path, "/Music/Forest Sounds/")
	}
}

func TestUnsupportedExtensionIsNotImported(t *testing.T) {
	store := newStore(t)
	browser := newFakeBrowser().dir("/root", []string{"track.mp4", "song.MP3", "clip.webm", "noext"})
	opts := DefaultOptions()
	opts.Root = "/root"

	summary, err := runImport(t, store, browser, opts)

	require.NoError(t, err)
	assert.Equal(t, []string{"Song", "Clip.webm"}, trackNames(t, store, "Root"))
	assert.Equal(t, 2, summary.TracksSkipped)
}

func TestDuplicateSuppressionWithLedger(t *testing.T) {
	store := newStore(t)
	browser := newFakeBrowser().dir("/Forest Sounds", []string{"rain_Loop.wav"})
	opts := DefaultOptions()
	opts.Root = "/Forest Sounds"

	first, err := runImport(t, store, browser, opts)
	require.NoError(t, err)
	second, err := runImport(t, store, browser, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"Rain Loop"}, trackNames(t, store, "Forest Sounds"))
	assert.Equal(t, 1, first.TracksImported)
	assert.Equal(t, 0, second.TracksImported)
	assert.Equal(t, 1, second.TracksSkipped)
	assert.Equal(t, 1, second.CollectionsReused)
}

func TestDuplicateCheckDisabledStillChecksLiveCollection(t *testing.T) {
	store := newStore(t)
	browser := newFakeBrowser().dir("/Forest Sounds", []string{"rain_Loop.wav"})
	opts := DefaultOptions()
	opts.Root = "/Forest Sounds"
	opts.DuplicateCheck = false

	_, err := runImport(t, store, browser, opts)
	require.NoError(t, err)
	second, err := runImport(t, store, browser, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"Rain Loop"}, trackNames(t, store, "Forest Sounds"))
	assert.Equal(t, 1, second.TracksSkipped)

	// The ledger is still written when the check is off
	count, err := store.CountLedgerEntries()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLedgerIsIndependentOfLiveCollections(t *testing.T) {
	store := newStore(t)
	browser := newFakeBrowser().dir("/Forest Sounds", []string{"rain_Loop.wav"})
	opts := DefaultOptions()
	opts.Root = "/Forest Sounds"

	_, err := runImport(t, store, browser, opts)
	require.NoError(t, err)
	c, err := store.GetCollectionByName("Forest Sounds")
	require.NoError(t, err)
	require.NoError(t, store.DeleteCollection(c.ID))

	// Removed tracks stay "seen"
	summary, err := runImport(t, store, browser, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.CollectionsCreated)
	assert.Empty(t, trackNames(t, store, "Forest Sounds"))

	// Clearing the history makes them importable again
	require.NoError(t, NewOrchestrator(store, browser, testLogger()).ClearHistory())
	summary, err = runImport(t, store, browser, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TracksImported)
	assert.Equal(t, []string{"Rain Loop"}, trackNames(t, store, "Forest Sounds"))
}

func TestCycleTerminates(t *testing.T) {
	store := newStore(t)
	browser := newFakeBrowser().
		dir("/root", nil, "/root/a").
		dir("/root/a", []string{"x.mp3"}, "/root", "/root/a", "/root/a/b/").
		dir("/root/a/b", []string{"y.mp3"}, "/root/a", "/root")
	opts := DefaultOptions()
	opts.Root = "/root"

	summary, err := runImport(t, store, browser, opts)

	require.NoError(t, err)
	assert.Equal(t, []string{"Root", "Root_A", "Root_A_B"}, collectionNames(t, store))
	assert.Equal(t, 3, summary.DirectoriesVisited)
	assert.Equal(t, 2, summary.TracksImported)
	for p, n := range browser.calls {
		assert.Equal(t, 1, n, "browsed %s", p)
	}
}

func TestSiblingCollisionsGetSuffixes(t *testing.T) {
	store := newStore(t)
	browser := newFakeBrowser().
		dir("/root", nil, "/root/intro", "/root/Intro", "/root/INTRO_").
		dir("/root/intro", []string{"a.mp3"}).
		dir("/root/Intro", []string{"b.mp3"}).
		dir("/root/INTRO_", []string{"c.mp3"})
	opts := DefaultOptions()
	opts.Root = "/root"
	opts.PreserveOriginalNames = true

	summary, err := runImport(t, store, browser, opts)

	require.NoError(t, err)
	assert.Equal(t, []string{"INTRO", "Intro", "Intro-1", "Root"}, collectionNames(t, store))
	assert.Equal(t, []string{"A"}, trackNames(t, store, "Intro"))
	assert.Equal(t, []string{"B"}, trackNames(t, store, "Intro-1"))
	assert.Equal(t, 4, summary.CollectionsCreated)
}

func TestCollisionNamesAreStableAcrossRuns(t *testing.T) {
	store := newStore(t)
	browser := newFakeBrowser().
		dir("/root", nil, "/root/intro", "/root/Intro").
		dir("/root/intro", []string{"a.mp3"}).
		dir("/root/Intro", []string{"b.mp3"})
	opts := DefaultOptions()
	opts.Root = "/root"

	_, err := runImport(t, store, browser, opts)
	require.NoError(t, err)
	second, err := runImport(t, store, browser, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"Root", "Root_Intro", "Root_Intro-1"}, collectionNames(t, store))
	assert.Equal(t, 3, second.CollectionsReused)
	assert.Zero(t, second.CollectionsCreated)
}

func TestUserCreatedCollectionIsNeverImportedInto(t *testing.T) {
	store := newStore(t)
	_, err := store.CreateCollection("Forest Sounds", nil)
	require.NoError(t, err)
	browser := newFakeBrowser().dir("/Forest Sounds", []string{"rain_Loop.wav"})
	opts := DefaultOptions()
	opts.Root = "/Forest Sounds"
	opts.Override = true

	_, err = runImport(t, store, browser, opts)

	require.NoError(t, err)
	assert.Empty(t, trackNames(t, store, "Forest Sounds"))
	assert.Equal(t, []string{"Rain Loop"}, trackNames(t, store, "Forest Sounds-1"))
}

func TestOverrideRecreatesImportedCollection(t *testing.T) {
	store := newStore(t)
	browser := newFakeBrowser().dir("/Rain", []string{"drops.ogg"})
	opts := DefaultOptions()
	opts.Root = "/Rain"
	opts.DuplicateCheck = false

	_, err := runImport(t, store, browser, opts)
	require.NoError(t, err)
	before, err := store.GetCollectionByName("Rain")
	require.NoError(t, err)

	opts.Override = true
	summary, err := runImport(t, store, browser, opts)
	require.NoError(t, err)

	after, err := store.GetCollectionByName("Rain")
	require.NoError(t, err)
	assert.NotEqual(t, before.ID, after.ID)
	assert.Equal(t, 1, summary.CollectionsCreated)
	assert.Equal(t, []string{"Drops"}, trackNames(t, store, "Rain"))
}

func TestDeletePreviousPurgesOnlyImported(t *testing.T) {
	store := newStore(t)
	_, err := store.CreateCollection("Mine", nil)
	require.NoError(t, err)
	_, err = store.CreateCollection("Old Import", map[string]bool{database.FlagImported: true})
	require.NoError(t, err)

	browser := newFakeBrowser().dir("/Rain", []string{"drops.ogg"})
	opts := DefaultOptions()
	opts.Root = "/Rain"
	opts.DeletePrevious = true

	summary, err := runImport(t, store, browser, opts)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.CollectionsPurged)
	assert.Equal(t, []string{"Mine", "Rain"}, collectionNames(t, store))
}

func TestChildEnumerationFailureAbortsOnlyThatBranch(t *testing.T) {
	store := newStore(t)
	browser := newFakeBrowser().
		dir("/root", nil, "/root/bad", "/root/good").
		dir("/root/good", []string{"a.mp3"})
	browser.errs["/root/bad"] = errors.New("permission denied")
	opts := DefaultOptions()
	opts.Root = "/root"

	summary, err := runImport(t, store, browser, opts)

	require.NoError(t, err)
	assert.Equal(t, []string{"Root", "Root_Good"}, collectionNames(t, store))
	require.Len(t, summary.Failures, 1)
	var enumErr *EnumerationError
	require.ErrorAs(t, summary.Failures[0], &enumErr)
	assert.Equal(t, "/root/bad", enumErr.Path)
}

func TestRootEnumerationFailureIsReturned(t *testing.T) {
	store := newStore(t)
	reporter := &recordingReporter{}
	opts := DefaultOptions()
	opts.Root = "/missing"
	opts.Reporter = reporter

	_, err := runImport(t, store, newFakeBrowser(), opts)

	var enumErr *EnumerationError
	require.ErrorAs(t, err, &enumErr)
	require.Len(t, reporter.summaries, 1)
	assert.Len(t, reporter.summaries[0].Failures, 1)
}

// failingStore injects errors into a real store.
type failingStore struct {
	database.Store
	failCreate string
	failLedger bool
	failAdds   int
}

func (s *failingStore) AddTracks(collectionID string, tracks []database.Track) error {
	if s.failAdds > 0 {
		s.failAdds--
		return errors.New("disk full")
	}
	return s.Store.AddTracks(collectionID, tracks)
}

func (s *failingStore) CreateCollection(name string, flags map[string]bool) (*database.Collection, error) {
	if name == s.failCreate {
		return nil, errors.New("quota exceeded")
	}
	return s.Store.CreateCollection(name, flags)
}

func (s *failingStore) PutLedgerEntry(key string) error {
	if s.failLedger {
		return errors.New("disk full")
	}
	return s.Store.PutLedgerEntry(key)
}

func TestCollectionCreateFailureSkipsFilesButNotChildren(t *testing.T) {
	store := &failingStore{Store: newStore(t), failCreate: "Root_Bad"}
	browser := newFakeBrowser().
		dir("/root", nil, "/root/bad").
		dir("/root/bad", []string{"a.mp3"}, "/root/bad/child").
		dir("/root/bad/child", []string{"b.mp3"})
	opts := DefaultOptions()
	opts.Root = "/root"

	summary, err := runImport(t, store, browser, opts)

	require.NoError(t, err)
	assert.Equal(t, []string{"Root", "Root_Bad_Child"}, collectionNames(t, store))
	assert.Equal(t, 1, summary.TracksImported)
	require.Len(t, summary.Failures, 1)
	var createErr *CollectionCreateError
	require.ErrorAs(t, summary.Failures[0], &createErr)
	assert.Equal(t, "Root_Bad", createErr.Name)
}

func TestLedgerPersistFailureSkipsTrack(t *testing.T) {
	store := &failingStore{Store: newStore(t), failLedger: true}
	browser := newFakeBrowser().dir("/Rain", []string{"a.mp3", "b.mp3"})
	opts := DefaultOptions()
	opts.Root = "/Rain"

	summary, err := runImport(t, store, browser, opts)

	require.NoError(t, err)
	assert.Empty(t, trackNames(t, store, "Rain"))
	assert.Zero(t, summary.TracksImported)
	require.Len(t, summary.Failures, 2)
	var ledgerErr *LedgerPersistError
	require.ErrorAs(t, summary.Failures[0], &ledgerErr)
	assert.Equal(t, "A", ledgerErr.Track)
}

func TestFailedTrackWriteIsRetriedNextRun(t *testing.T) {
	store := &failingStore{Store: newStore(t), failAdds: 1}
	browser := newFakeBrowser().dir("/Forest Sounds", []string{"rain_Loop.wav"})
	opts := DefaultOptions()
	opts.Root = "/Forest Sounds"

	first, err := runImport(t, store, browser, opts)
	require.NoError(t, err)
	assert.Zero(t, first.TracksImported)
	require.Len(t, first.Failures, 1)
	assert.Contains(t, first.Failures[0].Error(), "disk full")
	seen, err := store.HasLedgerEntry(ledger.Key("Forest Sounds", "Rain Loop"))
	require.NoError(t, err)
	assert.False(t, seen)

	second, err := runImport(t, store, browser, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, second.TracksImported)
	assert.Equal(t, []string{"Rain Loop"}, trackNames(t, store, "Forest Sounds"))
}

func TestInvalidLogVolumeSkipsDirectoryFiles(t *testing.T) {
	store := newStore(t)
	browser := newFakeBrowser().dir("/Rain", []string{"a.mp3"})
	opts := DefaultOptions()
	opts.Root = "/Rain"
	opts.LogVolume = "loud"

	summary, err := runImport(t, store, browser, opts)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.CollectionsCreated)
	assert.Empty(t, trackNames(t, store, "Rain"))
	require.Len(t, summary.Failures, 1)
	var configErr *ConfigurationError
	assert.ErrorAs(t, summary.Failures[0], &configErr)
}

func TestInvalidExcludePatternFailsRun(t *testing.T) {
	opts := DefaultOptions()
	opts.Root = "/Rain"
	opts.ExcludePattern = "([a-"

	_, err := runImport(t, newStore(t), newFakeBrowser().dir("/Rain", nil), opts)

	var configErr *ConfigurationError
	assert.ErrorAs(t, err, &configErr)
}

func TestExcludePatternAndPlaybackOptions(t *testing.T) {
	store := newStore(t)
	browser := urlBrowser{newFakeBrowser().dir("Music", []string{"01 intro.mp3"})}
	opts := DefaultOptions()
	opts.Root = "Music"
	opts.ExcludePattern = `^\d+ `
	opts.Repeat = true
	opts.Stream = true
	opts.LogVolume = "1"

	_, err := runImport(t, store, browser, opts)
	require.NoError(t, err)

	c, err := store.GetCollectionByName("Music")
	require.NoError(t, err)
	tracks, err := store.GetTracks(c.ID)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "Intro", tracks[0].Name)
	assert.Equal(t, "s3://bucket/Music/01 intro.mp3", tracks[0].Path)
	assert.True(t, tracks[0].Repeat)
	assert.True(t, tracks[0].Stream)
	assert.InDelta(t, 1.0, tracks[0].Volume, 1e-9)
}

// id3v1 returns a file body ending in an ID3v1 trailer.
func id3v1(title, artist, album string) []byte {
	field := func(s string, n int) []byte {
		b := make([]byte, n)
		copy(b, s)
		return b
	}
	body := []byte("not really audio data")
	body = append(body, "TAG"...)
	body = append(body, field(title, 30)...)
	body = append(body, field(artist, 30)...)
	body = append(body, field(album, 30)...)
	body = append(body, field("2020", 4)...)
	body = append(body, field("", 30)...)
	return append(body, 0)
}

func TestReadTagsFillsArtistAndAlbum(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/Music/Night", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/Music/Night/crickets.mp3", id3v1("Crickets", "Field Crew", "Night Recordings"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/Music/Night/wind.mp3", []byte("x"), 0o644))
	store := newStore(t)
	opts := DefaultOptions()
	opts.Root = "/Music/Night"
	opts.ReadTags = true

	summary, err := runImport(t, store, browse.NewLocal(fs), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TracksImported)

	c, err := store.GetCollectionByName("Night")
	require.NoError(t, err)
	require.NotNil(t, c)
	tracks, err := store.GetTracks(c.ID)
	require.NoError(t, err)
	byName := map[string]database.Track{}
	for _, track := range tracks {
		byName[track.Name] = track
	}
	require.Len(t, byName, 2)
	assert.Equal(t, "Field Crew", byName["Crickets"].Artist)
	assert.Equal(t, "Night Recordings", byName["Crickets"].Album)
	assert.Empty(t, byName["Wind"].Artist)
}

func TestConcurrentWalk(t *testing.T) {
	store := newStore(t)
	browser := newFakeBrowser()
	var dirs []string
	for i := 0; i < 10; i++ {
		dir := fmt.Sprintf("/root/d%d", i)
		dirs = append(dirs, dir)
		browser.dir(dir, []string{"x.mp3"}, "/root", dir+"/inner")
		browser.dir(dir+"/inner", []string{"y.mp3"}, dir)
	}
	browser.dir("/root", nil, dirs...)
	opts := DefaultOptions()
	opts.Root = "/root"
	opts.Workers = 4

	summary, err := runImport(t, store, browser, opts)

	require.NoError(t, err)
	assert.Equal(t, 21, summary.CollectionsCreated)
	assert.Equal(t, 21, summary.DirectoriesVisited)
	assert.Equal(t, 20, summary.TracksImported)
	assert.Contains(t, collectionNames(t, store), "Root_D3_Inner")
	for p, n := range browser.calls {
		assert.Equal(t, 1, n, "browsed %s", p)
	}
}

// gaugedBrowser records the most Browse calls in flight at once.
type gaugedBrowser struct {
	*fakeBrowser
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (b *gaugedBrowser) Browse(ctx context.Context, p string) (*browse.Listing, error) {
	n := b.inFlight.Add(1)
	defer b.inFlight.Add(-1)
	for {
		peak := b.peak.Load()
		if n <= peak || b.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return b.fakeBrowser.Browse(ctx, p)
}

func TestConcurrentWalkStaysWithinWorkerLimit(t *testing.T) {
	store := newStore(t)
	fake := newFakeBrowser()
	var dirs []string
	for i := 0; i < 12; i++ {
		dir := fmt.Sprintf("/wide/d%d", i)
		dirs = append(dirs, dir)
		fake.dir(dir, []string{"x.mp3"}, dir+"/a", dir+"/b")
		fake.dir(dir+"/a", []string{"y.mp3"})
		fake.dir(dir+"/b", []string{"z.mp3"})
	}
	fake.dir("/wide", nil, dirs...)
	browser := &gaugedBrowser{fakeBrowser: fake}
	opts := DefaultOptions()
	opts.Root = "/wide"
	opts.Workers = 3

	summary, err := runImport(t, store, browser, opts)

	require.NoError(t, err)
	assert.Equal(t, 37, summary.DirectoriesVisited)
	assert.Equal(t, 36, summary.TracksImported)
	assert.LessOrEqual(t, browser.peak.Load(), int32(3))
}

func TestReporterReceivesProgressAndOneSummary(t *testing.T) {
	store := newStore(t)
	browser := newFakeBrowser().
		dir("/root", nil, "/root/a", "/root/b").
		dir("/root/a", []string{"a.mp3"}).
		dir("/root/b", nil)
	reporter := &recordingReporter{}
	opts := DefaultOptions()
	opts.Root = "/root"
	opts.Reporter = reporter

	_, err := runImport(t, store, browser, opts)

	require.NoError(t, err)
	require.Len(t, reporter.summaries, 1)
	assert.Equal(t, 1, reporter.summaries[0].TracksImported)
	require.NotEmpty(t, reporter.progress)
	assert.Equal(t, [2]int{3, 3}, reporter.progress[len(reporter.progress)-1])
}

type blockingBrowser struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (b *blockingBrowser) Browse(ctx context.Context, p string) (*browse.Listing, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return &browse.Listing{Target: p}, nil
}

func TestConcurrentRunsAreRejected(t *testing.T) {
	store := newStore(t)
	browser := &blockingBrowser{started: make(chan struct{}), release: make(chan struct{})}
	orchestrator := NewOrchestrator(store, browser, testLogger())
	opts := DefaultOptions()
	opts.Root = "/root"

	done := make(chan error, 1)
	go func() {
		_, err := orchestrator.Run(context.Background(), opts)
		done <- err
	}()
	<-browser.started

	_, err := orchestrator.Run(context.Background(), opts)
	assert.ErrorIs(t, err, ErrImportRunning)
	_, err = orchestrator.Purge()
	assert.ErrorIs(t, err, ErrImportRunning)

	close(browser.release)
	assert.NoError(t, <-done)
}

func TestCanceledContextStopsWalk(t *testing.T) {
	store := newStore(t)
	browser := newFakeBrowser().
		dir("/root", nil, "/root/a").
		dir("/root/a", []string{"a.mp3"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := DefaultOptions()
	opts.Root = "/root"

	_, err := NewOrchestrator(store, browser, testLogger()).Run(ctx, opts)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, collectionNames(t, store))
}

func TestOptionsHelpers(t *testing.T) {
	assert.True(t, IsAcceptedExtension("a.MP3"))
	assert.True(t, IsAcceptedExtension("a.mp4.flac"))
	assert.False(t, IsAcceptedExtension("a.mp4"))
	assert.False(t, IsAcceptedExtension("mp3"))

	v, err := ParseVolume("")
	require.NoError(t, err)
	assert.InDelta(t, InputToVolume(0.5), v, 1e-9)

	_, err = ParseVolume("1.5")
	assert.Error(t, err)
	_, err = ParseVolume("NaN")
	assert.Error(t, err)
}

// file: cmd/root_test.go
// version: 2.0.0
// guid: 7eae8d0c-7fda-4f45-8f73-5d1e0c7c9f1a

package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jdfalk/playlist-importer/internal/config"
	"github.com/jdfalk/playlist-importer/internal/database"
	"github.com/jdfalk/playlist-importer/internal/importer"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliEnv struct {
	dir    string
	db     string
	cfg    string
	forest string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	forest := filepath.Join(dir, "music", "Forest Sounds")
	require.NoError(t, os.MkdirAll(forest, 0o755))
	for _, name := range []string{"rain_Loop.wav", "Owl-Hoot.ogg", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(forest, name), []byte("x"), 0o644))
	}
	return &cliEnv{
		dir:    dir,
		db:     filepath.Join(dir, "data", "playlists.pebble"),
		cfg:    filepath.Join(dir, "missing.yaml"),
		forest: forest,
	}
}

// run executes a fresh command tree and returns everything it printed.
func (e *cliEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	previous := config.AppConfig
	viper.Reset()
	defer func() {
		config.AppConfig = previous
		viper.Reset()
	}()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", e.cfg, "--db", e.db, "--log-level", "error"}, args...))

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, "", args...)
	require.NoError(t, err, out)
	return out
}

// openDB opens the database written by earlier commands.
func (e *cliEnv) openDB(t *testing.T) database.Store {
	t.Helper()
	store, err := database.NewPebbleStore(e.db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestImportWorkflow(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun(t, "import", env.forest)
	assert.Contains(t, out, "Collections created: 1")
	assert.Contains(t, out, "Tracks imported:     2")

	out = env.mustRun(t, "import", env.forest)
	assert.Contains(t, out, "Collections reused:  1")
	assert.Contains(t, out, "Tracks imported:     0")
	assert.Contains(t, out, "Tracks skipped:      3")

	out = env.mustRun(t, "collections", "forest")
	assert.Contains(t, out, "Forest Sounds")
	assert.Contains(t, out, "true")

	outDir := filepath.Join(env.dir, "export")
	out = env.mustRun(t, "export", "--out", outDir)
	assert.Contains(t, out, "Exported 1 playlists")
	data, err := os.ReadFile(filepath.Join(outDir, "Forest Sounds.m3u"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "#EXTINF:-1,Rain Loop\n")

	out, err = env.run(t, "no\n", "purge")
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted")
	assert.Contains(t, env.mustRun(t, "collections"), "Forest Sounds")

	out = env.mustRun(t, "purge", "--yes")
	assert.Contains(t, out, "Purged 1 imported collections.")
	assert.Contains(t, env.mustRun(t, "collections"), "No collections found.")

	out = env.mustRun(t, "import", "--quiet", env.forest)
	assert.NotContains(t, out, "Tracks imported")

	out = env.mustRun(t, "clear-history", "--yes")
	assert.Contains(t, out, "Import history cleared.")

	out = env.mustRun(t, "import", env.forest)
	assert.Contains(t, out, "Tracks imported:     2")

	store := env.openDB(t)
	entries, err := store.CountLedgerEntries()
	require.NoError(t, err)
	assert.Equal(t, 2, entries)
}

func TestClearHistoryConfirmation(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "import", env.forest)

	out, err := env.run(t, "\n", "clear-history")
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted. Import history kept.")

	out, err = env.run(t, "yes\n", "clear-history")
	require.NoError(t, err)
	assert.Contains(t, out, "Import history cleared.")
}

func TestImportRequiresDirectory(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "", "import")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "folder_dir")
}

func TestImportUsesStoredFolderDir(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "settings", "set", config.KeyFolderDir, env.forest)

	out := env.mustRun(t, "import")
	assert.Contains(t, out, "Tracks imported:     2")
}

func TestFlagsOverrideStoredSettings(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "settings", "set", config.KeyRepeat, "false")
	env.mustRun(t, "import", "--repeat", "--log-volume", "1", env.forest)

	store := env.openDB(t)
	collection, err := store.GetCollectionByName("Forest Sounds")
	require.NoError(t, err)
	require.NotNil(t, collection)
	tracks, err := store.GetTracks(collection.ID)
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	for _, track := range tracks {
		assert.True(t, track.Repeat)
		assert.InDelta(t, 1.0, track.Volume, 1e-9)
	}
}

func TestInvalidExcludePatternFailsImport(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "", "import", "--exclude", "(", env.forest)
	require.Error(t, err)
	var cfgErr *importer.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestSettingsCommands(t *testing.T) {
	env := newCLIEnv(t)

	assert.Equal(t, "should_repeat = true\n", env.mustRun(t, "settings", "set", config.KeyRepeat, "true"))
	assert.Equal(t, "true\n", env.mustRun(t, "settings", "get", config.KeyRepeat))

	assert.Equal(t, "s3_secret_key = sup****alue\n", env.mustRun(t, "settings", "set", config.KeyS3SecretKey, "supersecretvalue"))
	assert.Equal(t, "supersecretvalue\n", env.mustRun(t, "settings", "get", "--reveal", config.KeyS3SecretKey))

	out := env.mustRun(t, "settings", "list")
	assert.Contains(t, out, "log_volume = 0.5\n")
	assert.Contains(t, out, "s3_secret_key = sup****alue\n")

	_, err := env.run(t, "", "settings", "set", config.KeyWorkers, "many")
	assert.ErrorIs(t, err, config.ErrInvalidSettingValue)

	_, err = env.run(t, "", "settings", "get", "no_such_key")
	assert.ErrorIs(t, err, config.ErrUnknownSetting)

	_, err = os.Stat(filepath.Join(env.dir, "data", "config.yaml"))
	assert.NoError(t, err)
}

func TestDiagnosticsQuery(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "import", env.forest)

	out := env.mustRun(t, "diagnostics", "query")
	assert.Contains(t, out, "No operations found.")

	out = env.mustRun(t, "diagnostics", "query", "--raw", "--limit", "10")
	assert.Contains(t, out, "Key: collection:")

	out = env.mustRun(t, "diagnostics", "query", "--raw", "--prefix", "nothing:")
	assert.Contains(t, out, "No keys matched the requested prefix.")

	_, err := env.run(t, "", "diagnostics", "query", "--limit", "0")
	assert.Error(t, err)

	out = env.mustRun(t, "diagnostics", "migrations")
	assert.Contains(t, out, "Schema version 2")
	assert.Contains(t, out, "legacy ledger")
}

func TestWatchRejectsBucketSource(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "", "watch", "--source", "s3", env.forest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "local source")
}

func TestBarReporter(t *testing.T) {
	var progress, out bytes.Buffer
	r := newBarReporter(&progress, &out)

	r.Progress(1, 2)
	r.Progress(2, 3)
	r.Progress(3, 3)
	r.Complete(importer.Summary{
		Result: importer.Result{
			CollectionsCreated: 2,
			TracksImported:     5,
			Failures:           []error{errors.New("boom")},
		},
	})

	assert.Contains(t, out.String(), "Collections created: 2\n")
	assert.Contains(t, out.String(), "Tracks imported:     5\n")
	assert.Contains(t, out.String(), "Failures:            1\n")
	assert.Contains(t, out.String(), "  - boom\n")
	assert.NotContains(t, out.String(), "Collections purged")
}

func TestPromptYesNo(t *testing.T) {
	tests := map[string]bool{
		"yes\n":   true,
		" YES \n": true,
		"yes":     true,
		"no\n":    false,
		"":        false,
		"y\n":     false,
	}
	for input, want := range tests {
		var out bytes.Buffer
		got, err := promptYesNo(strings.NewReader(input), &out, "Delete")
		require.NoError(t, err)
		assert.Equal(t, want, got, "%q", input)
		assert.Equal(t, "Delete? Type 'yes' to confirm: ", out.String())
	}
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", truncateString("abc", 5))
	assert.Equal(t, "ab...", truncateString("abcdef", 2))
}

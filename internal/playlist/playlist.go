// file: internal/playlist/playlist.go
// version: 2.0.0
// guid: 2a3b4c5d-6e7f-8a9b-0c1d-2e3f4a5b6c7d

// Package playlist exports collections as M3U playlists and searches them
// by name.
package playlist

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/jdfalk/playlist-importer/internal/database"
	"github.com/spf13/afero"
)

// Write renders collection as an extended M3U playlist.
func Write(w io.Writer, collection *database.Collection, tracks []database.Track) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "#EXTM3U")
	fmt.Fprintf(bw, "#PLAYLIST:%s\n", collection.Name)
	for _, track := range tracks {
		title := track.Name
		if track.Artist != "" {
			title = track.Artist + " - " + track.Name
		}
		fmt.Fprintf(bw, "#EXTINF:-1,%s\n", title)
		fmt.Fprintln(bw, track.Path)
	}

	return bw.Flush()
}

// SafeFileName replaces characters that are not allowed in file names.
func SafeFileName(name string) string {
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", "*", "-", "?", "-", "\"", "-", "<", "-", ">", "-", "|", "-")
	safe := strings.TrimSpace(replacer.Replace(name))
	if safe == "" || safe == "." || safe == ".." {
		return "playlist"
	}
	return safe
}

// ExportCollection writes the collection with id to dir/<name>.m3u and
// returns the file path.
func ExportCollection(store database.Store, fs afero.Fs, dir, id string) (string, error) {
	collection, err := store.GetCollectionByID(id)
	if err != nil {
		return "", err
	}
	if collection == nil {
		return "", fmt.Errorf("%w: %s", database.ErrCollectionNotFound, id)
	}
	tracks, err := store.GetTracks(id)
	if err != nil {
		return "", fmt.Errorf("failed to load tracks of %q: %w", collection.Name, err)
	}

	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}
	path := filepath.Join(dir, SafeFileName(collection.Name)+".m3u")
	f, err := fs.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := Write(f, collection, tracks); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// ExportAll exports every collection, or only imported ones when
// importedOnly is set, and returns the written paths.
func ExportAll(store database.Store, fs afero.Fs, dir string, importedOnly bool) ([]string, error) {
	collections, err := store.GetAllCollections()
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	var paths []string
	for i := range collections {
		if importedOnly && !collections[i].IsImported() {
			continue
		}
		path, err := ExportCollection(store, fs, dir, collections[i].ID)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

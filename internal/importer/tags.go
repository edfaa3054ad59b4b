// file: internal/importer/tags.go
// version: 1.0.0
// guid: 7a8b9c0d-1e2f-4a3b-4c5d-6e7f8a9b0c1d

package importer

import (
	"context"

	"github.com/dhowden/tag"
	"github.com/jdfalk/playlist-importer/internal/browse"
	"github.com/jdfalk/playlist-importer/internal/database"
)

// readTags fills artist and album from embedded tags when the browser can
// open files. Unreadable tags are not an error.
func (w *Walker) readTags(ctx context.Context, filePath string, track *database.Track) {
	opener, ok := w.browser.(browse.Opener)
	if !ok {
		return
	}

	f, err := opener.Open(ctx, filePath)
	if err != nil {
		w.logger.Debugf("cannot open %s for tags: %v", filePath, err)
		return
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		w.logger.Debugf("no tags in %s: %v", filePath, err)
		return
	}
	track.Artist = m.Artist()
	track.Album = m.Album()
}

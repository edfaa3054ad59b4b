// file: internal/browse/local.go
// version: 1.0.0
// guid: 8d9e0f1a-2b3c-4d4e-5f6a-7b8c9d0e1f2a

package browse

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

// Local browses an afero filesystem.
type Local struct {
	fs afero.Fs
}

// NewLocal creates a Local browser over fs.
func NewLocal(fs afero.Fs) *Local {
	return &Local{fs: fs}
}

// Browse lists dir. Symlinks are followed: a symlinked directory is
// reported by its target path so the caller can detect cycles.
func (l *Local) Browse(ctx context.Context, dir string) (*Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target, err := l.resolve(filepath.Clean(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	entries, err := afero.ReadDir(l.fs, target)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	listing := &Listing{Target: target}
	for _, entry := range entries {
		full := filepath.Join(target, entry.Name())

		if entry.Mode()&os.ModeSymlink != 0 {
			resolved, err := l.resolve(full)
			if err != nil {
				continue
			}
			info, err := l.fs.Stat(resolved)
			if err != nil {
				continue
			}
			if info.IsDir() {
				listing.Dirs = append(listing.Dirs, resolved)
			} else if info.Mode().IsRegular() {
				listing.Files = append(listing.Files, entry.Name())
			}
			continue
		}

		if entry.IsDir() {
			listing.Dirs = append(listing.Dirs, full)
		} else if entry.Mode().IsRegular() {
			listing.Files = append(listing.Files, entry.Name())
		}
	}

	sort.Strings(listing.Files)
	sort.Strings(listing.Dirs)
	return listing, nil
}

// resolve follows symlinks until it reaches a non-link path.
func (l *Local) resolve(p string) (string, error) {
	reader, ok := l.fs.(afero.LinkReader)
	lstater, lok := l.fs.(afero.Lstater)
	if !ok || !lok {
		return p, nil
	}

	for hops := 0; hops < 40; hops++ {
		info, _, err := lstater.LstatIfPossible(p)
		if err != nil {
			return "", err
		}
		if info.Mode()&os.ModeSymlink == 0 {
			return p, nil
		}
		link, err := reader.ReadlinkIfPossible(p)
		if err != nil {
			return "", err
		}
		if !filepath.IsAbs(link) {
			link = filepath.Join(filepath.Dir(p), link)
		}
		p = filepath.Clean(link)
	}
	return "", fmt.Errorf("too many levels of symbolic links: %s", p)
}

// Open opens a file for tag reading.
func (l *Local) Open(ctx context.Context, p string) (io.ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.fs.Open(p)
}

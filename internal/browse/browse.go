// file: internal/browse/browse.go
// version: 1.0.0
// guid: 7c8d9e0f-1a2b-4c3d-4e5f-6a7b8c9d0e1f

// Package browse enumerates directories on local disk or in an S3 bucket.
package browse

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// Source kinds accepted by New.
const (
	KindData = "data"
	KindS3   = "s3"
)

// Listing is the content of one directory.
type Listing struct {
	// Target is the resolved path of the listed directory. Symlinked
	// directories report the path they point to.
	Target string
	// Files holds base names of the regular files in the directory.
	Files []string
	// Dirs holds full paths of the child directories.
	Dirs []string
}

// Browser lists a single directory level.
type Browser interface {
	Browse(ctx context.Context, path string) (*Listing, error)
}

// Opener is implemented by browsers that can also read file content.
type Opener interface {
	Open(ctx context.Context, path string) (io.ReadSeekCloser, error)
}

// Locator is implemented by browsers whose file paths need a scheme to be
// playable, such as bucket keys.
type Locator interface {
	URL(path string) string
}

// Options configures New.
type Options struct {
	// Fs backs the data source. Defaults to the OS filesystem.
	Fs afero.Fs

	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// New returns the browser for kind.
func New(kind string, opts Options) (Browser, error) {
	switch kind {
	case KindData, "local", "":
		fs := opts.Fs
		if fs == nil {
			fs = afero.NewOsFs()
		}
		return NewLocal(fs), nil
	case KindS3:
		return NewS3FromOptions(opts)
	default:
		return nil, fmt.Errorf("unsupported source kind: %s (supported: %s, %s)", kind, KindData, KindS3)
	}
}

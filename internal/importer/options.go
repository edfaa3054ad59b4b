// file: internal/importer/options.go
// version: 1.0.0
// guid: 4d5e6f7a-8b9c-4d0e-1f2a-3b4c5d6e7f8a

package importer

import (
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"
)

// DefaultLogVolume is used when no volume is configured.
const DefaultLogVolume = "0.5"

// acceptedExtensions are the importable audio types. mp4 is deliberately
// absent.
var acceptedExtensions = map[string]bool{
	"mp3":  true,
	"wav":  true,
	"ogg":  true,
	"flac": true,
	"webm": true,
	"m4a":  true,
}

// Options controls an import run.
type Options struct {
	// Root is the directory the walk starts from.
	Root string

	DuplicateCheck        bool
	Repeat                bool
	Stream                bool
	LogVolume             string
	Override              bool
	DeletePrevious        bool
	PreserveOriginalNames bool
	ExcludePattern        string
	ReadTags              bool

	// Workers bounds concurrent directory visits. Values <= 1 walk
	// sequentially, which keeps collision suffixes deterministic.
	Workers int

	// Reporter receives progress and the final summary. Nil discards them.
	Reporter Reporter `json:"-"`
}

// DefaultOptions mirrors the default settings.
func DefaultOptions() Options {
	return Options{
		DuplicateCheck: true,
		LogVolume:      DefaultLogVolume,
		Workers:        1,
	}
}

// IsAcceptedExtension reports whether the last dot segment of name is an
// importable audio type, ignoring case.
func IsAcceptedExtension(name string) bool {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	return acceptedExtensions[strings.ToLower(ext)]
}

// ParseVolume converts a log-scale volume setting in [0, 1] to the linear
// playback volume.
func ParseVolume(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = DefaultLogVolume
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &ConfigurationError{Setting: "log_volume", Value: raw, Err: err}
	}
	if math.IsNaN(v) || v < 0 || v > 1 {
		return 0, &ConfigurationError{Setting: "log_volume", Value: raw, Err: fmt.Errorf("must be between 0 and 1")}
	}
	return InputToVolume(v), nil
}

// InputToVolume maps a slider position to playback volume (v^1.5).
func InputToVolume(v float64) float64 {
	return math.Pow(v, 1.5)
}

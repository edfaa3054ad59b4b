// file: internal/naming/normalize.go
// version: 1.0.0
// guid: 2d3e4f5a-6b7c-4d8e-9f0a-1b2c3d4e5f6a

package naming

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Untitled is returned when a name normalizes to nothing and the raw name is
// blank as well.
const Untitled = "Untitled"

// Precompiled patterns.
var (
	// Matches the first audio extension token. mp4 is stripped here even
	// though it is never accepted for import; webm is accepted but kept.
	reExtension = regexp.MustCompile(`(?i)\.(mp3|mp4|wav|ogg|flac|m4a)`)

	// Runs of word separators.
	reSeparators = regexp.MustCompile(`[_-]+`)

	// A lowercase letter followed by a capitalized word, optionally followed
	// by the capital that starts the next word. Examples:
	//   rainLoop     -> rain Loop
	//   goToHome     -> go to Home
	reCamelCase = regexp.MustCompile(`([a-z])([A-Z][a-z]*)([A-Z])?`)

	reWhitespace = regexp.MustCompile(`\s+`)
)

// smallWords stay lowercase unless they open or close a name.
var smallWords = map[string]bool{
	"a": true, "an": true, "at": true, "and": true, "but": true, "by": true,
	"for": true, "if": true, "nor": true, "on": true, "of": true, "or": true,
	"so": true, "the": true, "to": true, "yet": true,
}

// Normalizer turns raw file and directory names into display names.
//
// Normalization is idempotent: Normalize(Normalize(x)) == Normalize(x) for
// names that contain no percent-escapes after decoding. A doubly encoded
// name decodes one level per call.
//
// Embedded all-caps acronyms are split by the camelCase step
// ("MyABCSong" becomes "My a BCSong"). This is a known limitation.
type Normalizer struct {
	exclude *regexp.Regexp
}

// NewNormalizer builds a Normalizer. Every match of excludePattern is
// removed from names before word splitting; an empty pattern disables the
// removal.
func NewNormalizer(excludePattern string) (*Normalizer, error) {
	n := &Normalizer{}
	if excludePattern == "" {
		return n, nil
	}
	re, err := regexp.Compile(excludePattern)
	if err != nil {
		return nil, fmt.Errorf("invalid exclusion pattern %q: %w", excludePattern, err)
	}
	n.exclude = re
	return n, nil
}

var defaultNormalizer = &Normalizer{}

// Normalize normalizes raw with no exclusion pattern.
func Normalize(raw string) string {
	return defaultNormalizer.Normalize(raw)
}

// Normalize converts raw into a title-cased display name.
func (n *Normalizer) Normalize(raw string) string {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		decoded = raw
	}

	name := decoded
	if loc := reExtension.FindStringIndex(name); loc != nil {
		name = name[:loc[0]]
	}
	stripped := name
	if n != nil && n.exclude != nil {
		name = n.exclude.ReplaceAllString(name, "")
	}
	name = reSeparators.ReplaceAllString(name, " ")
	name = splitCamelCase(name)

	words := strings.Split(strings.TrimSpace(reWhitespace.ReplaceAllString(name, " ")), " ")
	for i, word := range words {
		if word == "" {
			continue
		}
		if i == 0 || i == len(words)-1 || !smallWords[word] {
			words[i] = upperFirst(word)
		}
	}

	result := strings.Join(words, " ")
	if result == "" {
		result = strings.TrimSpace(stripped)
	}
	if result == "" {
		result = Untitled
	}
	return result
}

// splitCamelCase rewrites the first camelCase boundary until none remain.
// Each step removes one lowercase-uppercase adjacency and adds none, so the
// loop terminates.
func splitCamelCase(name string) string {
	for {
		m := reCamelCase.FindStringSubmatchIndex(name)
		if m == nil {
			return name
		}

		p1 := name[m[2]:m[3]]
		p2 := name[m[4]:m[5]]
		replacement := p1 + " " + p2
		if m[6] >= 0 {
			if smallWords[strings.ToLower(p2)] {
				p2 = strings.ToLower(p2)
			}
			replacement = p1 + " " + p2 + " " + name[m[6]:m[7]]
		}

		name = name[:m[0]] + replacement + name[m[1]:]
	}
}

func upperFirst(word string) string {
	r, size := utf8.DecodeRuneInString(word)
	if r == utf8.RuneError {
		return word
	}
	return string(unicode.ToUpper(r)) + word[size:]
}

// BaseName returns the last segment of a slash separated path, ignoring
// trailing slashes. Bucket prefixes and local paths both use this form.
func BaseName(p string) string {
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

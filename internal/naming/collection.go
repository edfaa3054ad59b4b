// file: internal/naming/collection.go
// version: 1.0.0
// guid: 3e4f5a6b-7c8d-4e9f-0a1b-2c3d4e5f6a7b

package naming

import "fmt"

// ResolveCollectionName computes the collection name for a directory.
//
// The directory's base name is normalized and, unless preserveOriginal is
// set, prefixed with "<parentName>_". When the candidate is already taken,
// a numeric suffix is appended: with c exact matches in existing, the
// suffixes c, c+1, ... are tried and the first free one wins, so the first
// collision yields "-1".
//
// The function is pure. Callers register the returned name in existing
// before resolving the next sibling.
func ResolveCollectionName(dirBaseName, parentName string, existing []string, preserveOriginal bool, n *Normalizer) string {
	if n == nil {
		n = defaultNormalizer
	}

	candidate := n.Normalize(dirBaseName)
	if !preserveOriginal && parentName != "" {
		candidate = parentName + "_" + candidate
	}

	taken := make(map[string]bool, len(existing))
	count := 0
	for _, name := range existing {
		taken[name] = true
		if name == candidate {
			count++
		}
	}
	if count == 0 {
		return candidate
	}

	for suffix := count; ; suffix++ {
		name := fmt.Sprintf("%s-%d", candidate, suffix)
		if !taken[name] {
			return name
		}
	}
}

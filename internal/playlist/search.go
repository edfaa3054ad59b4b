// file: internal/playlist/search.go
// version: 1.0.0
// guid: 3b4c5d6e-7f8a-4b9c-0d1e-2f3a4b5c6d7e

package playlist

import (
	"sort"

	"github.com/jdfalk/playlist-importer/internal/database"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Search returns the collections whose names fuzzily match query, closest
// match first. An empty query returns every collection sorted by name.
func Search(collections []database.Collection, query string) []database.Collection {
	if query == "" {
		out := append([]database.Collection(nil), collections...)
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out
	}

	names := make([]string, len(collections))
	for i := range collections {
		names[i] = collections[i].Name
	}

	ranks := fuzzy.RankFindNormalizedFold(query, names)
	sort.Stable(ranks)

	out := make([]database.Collection, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, collections[r.OriginalIndex])
	}
	return out
}

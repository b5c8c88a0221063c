package filter

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/s0up4200/reelshelf/catalog"
)

// Match is a fuzzy search hit
type Match struct {
	Movie catalog.Movie
	Score int
	// MatchedIndexes are rune offsets into the searched text
	MatchedIndexes []int
}

// movieSource adapts movies to fuzzy.Source. The searched text is the title
// followed by the actor names.
type movieSource []catalog.Movie

func (s movieSource) String(i int) string {
	m := s[i]
	if len(m.Actors) == 0 {
		return m.Title
	}
	return m.Title + " " + strings.Join(m.ActorNames(), " ")
}

func (s movieSource) Len() int {
	return len(s)
}

// Fuzzy ranks movies whose title or actors fuzzily match pattern, best
// first. An empty pattern matches nothing.
func Fuzzy(pattern string, movies []catalog.Movie) []Match {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || len(movies) == 0 {
		return nil
	}

	results := fuzzy.FindFrom(pattern, movieSource(movies))
	matches := make([]Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, Match{
			Movie:          movies[r.Index],
			Score:          r.Score,
			MatchedIndexes: r.MatchedIndexes,
		})
	}
	return matches
}

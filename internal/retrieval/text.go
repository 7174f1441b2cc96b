package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/deskwise/intake/internal/textutil"
)

// TextSearch is the fallback lookup used when embeddings are disabled or
// the vector index finds nothing above the medium threshold. It tries an
// exact phrase match first, then a looser search that requires at least two
// significant query words in the same article.
type TextSearch struct {
	source CorpusSource
}

func NewTextSearch(source CorpusSource) *TextSearch {
	return &TextSearch{source: source}
}

func (t *TextSearch) Articles(ctx context.Context, query string, limit int) ([]Match, error) {
	articles, err := t.source.ListArticles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}

	phrase := strings.ToLower(strings.TrimSpace(query))
	var hits []Match
	for _, a := range articles {
		if phrase != "" && strings.Contains(strings.ToLower(a.Title+" "+a.Body), phrase) {
			hits = append(hits, Match{Record: Record{
				ID: a.ID, Title: a.Title, Body: a.Body, Category: a.Category,
			}})
		}
	}
	if len(hits) > 0 {
		return limitMatches(hits, limit), nil
	}

	words := textutil.SignificantWords(query)
	if len(words) < 2 {
		return nil, nil
	}
	type scored struct {
		match   Match
		overlap int
	}
	var loose []scored
	for _, a := range articles {
		overlap := textutil.Overlap(words, a.Title+" "+a.Body)
		if overlap < 2 {
			continue
		}
		loose = append(loose, scored{
			match: Match{Record: Record{
				ID: a.ID, Title: a.Title, Body: a.Body, Category: a.Category,
			}},
			overlap: overlap,
		})
	}
	sort.SliceStable(loose, func(i, j int) bool { return loose[i].overlap > loose[j].overlap })
	for _, s := range loose {
		hits = append(hits, s.match)
	}
	return limitMatches(hits, limit), nil
}

func limitMatches(matches []Match, limit int) []Match {
	if limit > 0 && len(matches) > limit {
		return matches[:limit]
	}
	return matches
}

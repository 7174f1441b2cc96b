package retrieval

import (
	"context"
	"log/slog"
	"sort"

	"github.com/deskwise/intake/internal/config"
)

// Searcher runs the tiered lookup: vector search with the high/medium
// threshold chain, then text fallback. A nil index (embeddings disabled)
// goes straight to text search.
type Searcher struct {
	index  *Index
	text   *TextSearch
	check  *RelevanceChecker
	cfg    config.Retrieval
	logger *slog.Logger
}

func NewSearcher(index *Index, source CorpusSource, check *RelevanceChecker, cfg config.Retrieval, logger *slog.Logger) *Searcher {
	return &Searcher{
		index:  index,
		text:   NewTextSearch(source),
		check:  check,
		cfg:    cfg,
		logger: logger.With("component", "retrieval.search"),
	}
}

// SearchArticles resolves a requester question against the help articles.
// A hit at or above the high threshold that survives the relevance re-check
// becomes the single confident answer. Otherwise medium-threshold hits are
// collected as candidates. A rejected high hit falls through to the next
// match rather than ending the search.
func (s *Searcher) SearchArticles(ctx context.Context, query string) (KBResult, error) {
	if s.index != nil {
		matches, err := s.index.QueryArticles(ctx, query, s.cfg.TopK)
		if err != nil {
			return KBResult{}, err
		}
		var candidates []Match
		for i := range matches {
			m := matches[i]
			if m.Score < s.cfg.MediumThreshold {
				break
			}
			if !s.check.Relevant(ctx, query, m.Record) {
				s.logger.Debug("candidate rejected by relevance check",
					"id", m.Record.ID, "score", m.Score)
				continue
			}
			if m.Score >= s.cfg.HighThreshold {
				return KBResult{Confident: &m}, nil
			}
			if len(candidates) < s.cfg.MaxCandidates {
				candidates = append(candidates, m)
			}
		}
		if len(candidates) > 0 {
			return KBResult{Candidates: candidates}, nil
		}
	}

	hits, err := s.text.Articles(ctx, query, s.cfg.MaxCandidates)
	if err != nil {
		return KBResult{}, err
	}
	return KBResult{Candidates: hits}, nil
}

// SimilarTickets returns resolved tickets close to the query for the
// classifier's context block. Tickets rated 1-2 are excluded outright and
// rating-5 tickets are boosted before ranking. When the best hit fails the
// relevance re-check the whole block is dropped.
func (s *Searcher) SimilarTickets(ctx context.Context, query string) ([]Match, error) {
	if s.index == nil {
		return nil, nil
	}
	matches, err := s.index.QueryTickets(ctx, query, s.cfg.TopK)
	if err != nil {
		return nil, err
	}

	kept := matches[:0]
	for _, m := range matches {
		if m.Record.QualityRating >= 1 && m.Record.QualityRating <= 2 {
			continue
		}
		if m.Record.QualityRating == 5 && s.cfg.RatingBoost > 1 {
			m.Score = min(1, m.Score*s.cfg.RatingBoost)
		}
		kept = append(kept, m)
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Score > kept[j].Score })

	var out []Match
	for _, m := range kept {
		if m.Score < s.cfg.MediumThreshold {
			break
		}
		out = append(out, m)
		if len(out) == s.cfg.MaxCandidates {
			break
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	if !s.check.Relevant(ctx, query, out[0].Record) {
		s.logger.Debug("ticket context dropped by relevance check", "id", out[0].Record.ID)
		return nil, nil
	}
	return out, nil
}

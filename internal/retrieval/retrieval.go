// Package retrieval answers "does the knowledge base already cover this?"
// It keeps a vector index over help articles and resolved tickets, applies
// the similarity thresholds from configuration, and falls back to plain
// text search when embeddings are unavailable or return nothing usable.
package retrieval

import (
	"context"

	"github.com/deskwise/intake/internal/store"
)

// Record is one indexed item, either a help article or a resolved ticket.
type Record struct {
	ID       string
	Title    string
	Body     string
	Category string
	// Resolution carries the fix summary for ticket records.
	Resolution string
	// QualityRating is the post-resolution 1-5 score for tickets, 0 otherwise.
	QualityRating int
}

// Match pairs a record with its similarity score in [0, 1]. Text-search
// fallback results carry a zero score.
type Match struct {
	Record Record
	Score  float64
}

// KBResult is the outcome of an article lookup. Confident is set for a
// single high-similarity hit; otherwise Candidates holds up to a handful of
// medium-similarity or text-search matches, best first.
type KBResult struct {
	Confident  *Match
	Candidates []Match
}

// Empty reports that the lookup produced nothing to show the requester.
func (r KBResult) Empty() bool {
	return r.Confident == nil && len(r.Candidates) == 0
}

// CorpusSource provides the rows the index and the text fallback read.
// *store.Store satisfies it.
type CorpusSource interface {
	ListArticles(ctx context.Context) ([]store.Article, error)
	ListResolvedTickets(ctx context.Context) ([]store.Ticket, error)
}

package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"golang.org/x/sync/errgroup"

	"github.com/deskwise/intake/internal/embeddings"
	"github.com/deskwise/intake/internal/store"
)

const (
	articleCollection = "articles"
	ticketCollection  = "resolved-tickets"

	// addConcurrency bounds parallel embedding calls during a rebuild.
	addConcurrency = 4
)

// Index is the in-memory vector index over articles and resolved tickets.
// Rebuild replaces both collections atomically with respect to queries.
type Index struct {
	mu     sync.RWMutex
	db     *chromem.DB
	embed  chromem.EmbeddingFunc
	logger *slog.Logger

	articles *chromem.Collection
	tickets  *chromem.Collection
}

func NewIndex(embedder embeddings.Embedder, logger *slog.Logger) (*Index, error) {
	ix := &Index{
		db:     chromem.NewDB(),
		embed:  embeddings.ChromemFunc(embedder),
		logger: logger.With("component", "retrieval.index"),
	}
	var err error
	if ix.articles, err = ix.db.GetOrCreateCollection(articleCollection, nil, ix.embed); err != nil {
		return nil, fmt.Errorf("create article collection: %w", err)
	}
	if ix.tickets, err = ix.db.GetOrCreateCollection(ticketCollection, nil, ix.embed); err != nil {
		return nil, fmt.Errorf("create ticket collection: %w", err)
	}
	return ix, nil
}

// Rebuild re-embeds the whole corpus into fresh collections and swaps them
// in. Tickets rated 1-2 never enter the index.
func (ix *Index) Rebuild(ctx context.Context, source CorpusSource) error {
	articles, err := source.ListArticles(ctx)
	if err != nil {
		return fmt.Errorf("list articles: %w", err)
	}
	resolved, err := source.ListResolvedTickets(ctx)
	if err != nil {
		return fmt.Errorf("list resolved tickets: %w", err)
	}

	fresh := chromem.NewDB()
	articleCol, err := fresh.GetOrCreateCollection(articleCollection, nil, ix.embed)
	if err != nil {
		return fmt.Errorf("create article collection: %w", err)
	}
	ticketCol, err := fresh.GetOrCreateCollection(ticketCollection, nil, ix.embed)
	if err != nil {
		return fmt.Errorf("create ticket collection: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		docs := articleDocuments(articles)
		if len(docs) == 0 {
			return nil
		}
		if err := articleCol.AddDocuments(gctx, docs, addConcurrency); err != nil {
			return fmt.Errorf("index articles: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		docs := ticketDocuments(resolved)
		if len(docs) == 0 {
			return nil
		}
		if err := ticketCol.AddDocuments(gctx, docs, addConcurrency); err != nil {
			return fmt.Errorf("index tickets: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	ix.mu.Lock()
	ix.db = fresh
	ix.articles = articleCol
	ix.tickets = ticketCol
	ix.mu.Unlock()

	ix.logger.Info("index rebuilt",
		"articles", articleCol.Count(),
		"tickets", ticketCol.Count())
	return nil
}

func articleDocuments(articles []store.Article) []chromem.Document {
	docs := make([]chromem.Document, 0, len(articles))
	for _, a := range articles {
		if strings.TrimSpace(a.Body) == "" {
			continue
		}
		docs = append(docs, chromem.Document{
			ID: a.ID,
			Metadata: map[string]string{
				"title":    a.Title,
				"category": a.Category,
			},
			Content: a.Title + "\n" + a.Body,
		})
	}
	return docs
}

func ticketDocuments(tickets []store.Ticket) []chromem.Document {
	docs := make([]chromem.Document, 0, len(tickets))
	for _, t := range tickets {
		if t.QualityRating >= 1 && t.QualityRating <= 2 {
			continue
		}
		if strings.TrimSpace(t.ResolutionSummary) == "" {
			continue
		}
		docs = append(docs, chromem.Document{
			ID: t.ID,
			Metadata: map[string]string{
				"title":      t.Title,
				"category":   t.Category,
				"rating":     strconv.Itoa(t.QualityRating),
				"resolution": t.ResolutionSummary,
			},
			Content: t.Title + "\n" + t.Description + "\n" + t.ResolutionSummary,
		})
	}
	return docs
}

// QueryArticles returns the nearest article records, best first.
func (ix *Index) QueryArticles(ctx context.Context, query string, topK int) ([]Match, error) {
	ix.mu.RLock()
	col := ix.articles
	ix.mu.RUnlock()
	return queryCollection(ctx, col, query, topK)
}

// QueryTickets returns the nearest resolved-ticket records, best first.
func (ix *Index) QueryTickets(ctx context.Context, query string, topK int) ([]Match, error) {
	ix.mu.RLock()
	col := ix.tickets
	ix.mu.RUnlock()
	return queryCollection(ctx, col, query, topK)
}

func queryCollection(ctx context.Context, col *chromem.Collection, query string, topK int) ([]Match, error) {
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}
	results, err := col.Query(ctx, query, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, res := range results {
		rating, _ := strconv.Atoi(res.Metadata["rating"])
		matches = append(matches, Match{
			Record: Record{
				ID:            res.ID,
				Title:         res.Metadata["title"],
				Body:          res.Content,
				Category:      res.Metadata["category"],
				Resolution:    res.Metadata["resolution"],
				QualityRating: rating,
			},
			Score: float64(res.Similarity),
		})
	}
	return matches, nil
}

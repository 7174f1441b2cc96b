package retrieval

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/deskwise/intake/internal/config"
	"github.com/deskwise/intake/internal/llm"
	"github.com/deskwise/intake/internal/store"
)

// stubEmbedder maps keyword buckets to fixed unit vectors so similarity
// scores in the tests are exact.
type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = embedText(text)
	}
	return out, nil
}

func (stubEmbedder) Dimensions() int { return 4 }
func (stubEmbedder) Name() string    { return "stub" }

func embedText(text string) []float32 {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "toner"):
		return axisVec(0.6)
	case strings.Contains(lower, "inkjet"):
		return axisVec(0.55)
	case strings.Contains(lower, "fax"):
		return axisVec(1)
	case strings.Contains(lower, "printer"):
		return axisVec(1)
	case strings.Contains(lower, "display"):
		return []float32{0, 1, 0, 0}
	default:
		return []float32{0, 0, 0, 1}
	}
}

// axisVec returns a unit vector whose cosine similarity against axisVec(1)
// is exactly x.
func axisVec(x float64) []float32 {
	return []float32{float32(x), float32(math.Sqrt(1 - x*x)), 0, 0}
}

type fakeSource struct {
	articles []store.Article
	tickets  []store.Ticket
}

func (f *fakeSource) ListArticles(context.Context) ([]store.Article, error) {
	return f.articles, nil
}

func (f *fakeSource) ListResolvedTickets(context.Context) ([]store.Ticket, error) {
	return f.tickets, nil
}

type fakeProvider struct {
	reply string
	err   error
}

func (f *fakeProvider) Complete(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: f.reply}, nil
}

func (f *fakeProvider) Name() string { return "fake" }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSearcher(t *testing.T, source *fakeSource) *Searcher {
	t.Helper()
	logger := testLogger()
	ix, err := NewIndex(stubEmbedder{}, logger)
	if err != nil {
		t.Fatalf("new index: %v", err)
	}
	if err := ix.Rebuild(context.Background(), source); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	check := NewRelevanceChecker(nil, logger)
	return NewSearcher(ix, source, check, config.Default().Retrieval, logger)
}

func TestRebuildSkipsLowRatedTickets(t *testing.T) {
	source := &fakeSource{tickets: []store.Ticket{
		{ID: "tic-1", Title: "Printer offline", ResolutionSummary: "power cycled the printer", QualityRating: 1},
		{ID: "tic-2", Title: "Printer smudges", ResolutionSummary: "replaced the printer drum", QualityRating: 2},
		{ID: "tic-3", Title: "Printer jam", ResolutionSummary: "cleared the printer tray", QualityRating: 4},
	}}
	s := newSearcher(t, source)

	matches, err := s.index.QueryTickets(context.Background(), "printer broken", 10)
	if err != nil {
		t.Fatalf("query tickets: %v", err)
	}
	if len(matches) != 1 || matches[0].Record.ID != "tic-3" {
		t.Fatalf("expected only tic-3 indexed, got %+v", matches)
	}
}

func TestSearchArticlesConfidentHit(t *testing.T) {
	source := &fakeSource{articles: []store.Article{{
		ID:    "kb-1",
		Title: "Fixing printer jams",
		Body:  "Open the tray, remove the stuck sheet, close the printer.",
	}}}
	s := newSearcher(t, source)

	res, err := s.SearchArticles(context.Background(), "printer jam again")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Confident == nil || res.Confident.Record.ID != "kb-1" {
		t.Fatalf("expected confident hit, got %+v", res)
	}
	if len(res.Candidates) != 0 {
		t.Fatalf("confident result must not carry candidates: %+v", res)
	}
	if res.Confident.Score < 0.99 {
		t.Fatalf("unexpected score %f", res.Confident.Score)
	}
}

func TestSearchArticlesMediumCandidates(t *testing.T) {
	source := &fakeSource{articles: []store.Article{{
		ID:    "kb-2",
		Title: "Printer maintenance guide",
		Body:  "Cleaning routine for streaks and faded output on the printer.",
	}}}
	s := newSearcher(t, source)

	// "toner" embeds at cosine 0.6 against the printer article: between the
	// medium and high thresholds.
	res, err := s.SearchArticles(context.Background(), "toner streaks on every page")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Confident != nil {
		t.Fatalf("score 0.6 must not be a confident hit: %+v", res)
	}
	if len(res.Candidates) != 1 || res.Candidates[0].Record.ID != "kb-2" {
		t.Fatalf("expected kb-2 as candidate, got %+v", res)
	}
	score := res.Candidates[0].Score
	if score < 0.5 || score >= 0.78 {
		t.Fatalf("candidate score %f outside the medium band", score)
	}
}

func TestSearchArticlesRelevanceRejectionFallsThrough(t *testing.T) {
	// The keyword-overlap guard rejects the high-similarity article that
	// shares no words with the query, so the search falls through to the
	// next candidate instead of returning a confident miss.
	source := &fakeSource{articles: []store.Article{
		{ID: "kb-3", Title: "Fax firmware", Body: "Flash steps for office models."},
		{ID: "kb-4", Title: "Printer jam help", Body: "What to do when paper is stuck."},
	}}
	s := newSearcher(t, source)

	res, err := s.SearchArticles(context.Background(), "printer paper stuck")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Confident == nil || res.Confident.Record.ID != "kb-4" {
		t.Fatalf("expected confident hit on kb-4 after fall-through, got %+v", res)
	}
}

func TestSearchArticlesVectorMissFallsBackToText(t *testing.T) {
	source := &fakeSource{articles: []store.Article{{
		ID:    "kb-5",
		Title: "Printer room appliances",
		Body:  "Report coffee machine leaking to facilities, not IT.",
	}}}
	s := newSearcher(t, source)

	res, err := s.SearchArticles(context.Background(), "coffee machine leaking")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Confident != nil || len(res.Candidates) != 1 {
		t.Fatalf("expected one text-search candidate, got %+v", res)
	}
	if res.Candidates[0].Record.ID != "kb-5" || res.Candidates[0].Score != 0 {
		t.Fatalf("unexpected fallback match: %+v", res.Candidates[0])
	}
}

func TestTextSearchCooccurrence(t *testing.T) {
	source := &fakeSource{articles: []store.Article{
		{ID: "kb-6", Title: "Kitchen equipment", Body: "The grinder needs fresh beans every morning."},
		{ID: "kb-7", Title: "Unrelated", Body: "Wifi onboarding for guests."},
	}}
	search := NewSearcher(nil, source, NewRelevanceChecker(nil, testLogger()), config.Default().Retrieval, testLogger())

	res, err := search.SearchArticles(context.Background(), "beans grinder broken")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res.Candidates) != 1 || res.Candidates[0].Record.ID != "kb-6" {
		t.Fatalf("expected co-occurrence hit on kb-6, got %+v", res)
	}
}

func TestTextSearchRequiresTwoWords(t *testing.T) {
	source := &fakeSource{articles: []store.Article{
		{ID: "kb-8", Title: "Monitors", Body: "Vertical lines usually mean a bad cable."},
	}}
	search := NewSearcher(nil, source, NewRelevanceChecker(nil, testLogger()), config.Default().Retrieval, testLogger())

	res, err := search.SearchArticles(context.Background(), "flickering")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !res.Empty() {
		t.Fatalf("single-word query must not match loosely, got %+v", res)
	}
}

func TestSimilarTicketsBoostReordersRatingFive(t *testing.T) {
	source := &fakeSource{tickets: []store.Ticket{
		{ID: "tic-a", Title: "Toner printer streaks", ResolutionSummary: "swap cartridge", QualityRating: 3},
		{ID: "tic-b", Title: "Inkjet printer smudges", ResolutionSummary: "clean heads", QualityRating: 5},
	}}
	s := newSearcher(t, source)

	// Raw similarity puts tic-a (0.6) above tic-b (0.55); the rating-5
	// boost lifts tic-b to 0.66 and flips the order.
	matches, err := s.SimilarTickets(context.Background(), "printer output is dirty")
	if err != nil {
		t.Fatalf("similar tickets: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected two matches, got %+v", matches)
	}
	if matches[0].Record.ID != "tic-b" || matches[1].Record.ID != "tic-a" {
		t.Fatalf("boost did not reorder: %+v", matches)
	}
	for _, m := range matches {
		if m.Score < 0 || m.Score > 1 {
			t.Fatalf("score %f outside [0,1]", m.Score)
		}
	}
}

func TestSimilarTicketsDropsBlockOnIrrelevantTop(t *testing.T) {
	// The top ticket shares no significant words with the query, so the
	// overlap guard rejects it and the whole context block is dropped.
	source := &fakeSource{tickets: []store.Ticket{
		{ID: "tic-c", Title: "Quarterly audit", ResolutionSummary: "toner swap declined by finance", QualityRating: 4},
	}}
	s := newSearcher(t, source)

	matches, err := s.SimilarTickets(context.Background(), "printer")
	if err != nil {
		t.Fatalf("similar tickets: %v", err)
	}
	if matches != nil {
		t.Fatalf("expected dropped block, got %+v", matches)
	}
}

func TestRelevanceCheckerModelVerdicts(t *testing.T) {
	rec := Record{Title: "VPN setup", Body: "Install the client and sign in."}

	yes := NewRelevanceChecker(&fakeProvider{reply: "Yes, it does."}, testLogger())
	if !yes.Relevant(context.Background(), "vpn will not connect", rec) {
		t.Fatal("expected yes verdict to pass")
	}

	no := NewRelevanceChecker(&fakeProvider{reply: "no"}, testLogger())
	if no.Relevant(context.Background(), "vpn will not connect", rec) {
		t.Fatal("expected no verdict to reject")
	}
}

func TestRelevanceCheckerFailsOpen(t *testing.T) {
	broken := NewRelevanceChecker(&fakeProvider{err: errors.New("model offline")}, testLogger())
	rec := Record{Title: "VPN setup", Body: "Install the client."}
	if !broken.Relevant(context.Background(), "vpn will not connect", rec) {
		t.Fatal("model failure must pass the candidate through")
	}
}

package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/deskwise/intake/internal/llm"
	"github.com/deskwise/intake/internal/retry"
	"github.com/deskwise/intake/internal/textutil"
)

const relevancePrompt = `You check whether a knowledge base entry actually answers a user's question.
Answer with a single word: yes or no.`

// RelevanceChecker re-checks a similarity hit before it is shown to the
// requester. With a model it asks a yes/no question; without one it falls
// back to keyword overlap. Model failures pass the candidate through, the
// check filters only on a confident "no".
type RelevanceChecker struct {
	provider llm.Provider
	policy   retry.Policy
	logger   *slog.Logger
}

func NewRelevanceChecker(provider llm.Provider, logger *slog.Logger) *RelevanceChecker {
	policy := retry.ModelCalls()
	policy.Classify = llm.Transient
	return &RelevanceChecker{
		provider: provider,
		policy:   policy,
		logger:   logger.With("component", "retrieval.relevance"),
	}
}

// Relevant reports whether the record plausibly addresses the query.
func (c *RelevanceChecker) Relevant(ctx context.Context, query string, rec Record) bool {
	if c.provider == nil {
		words := textutil.SignificantWords(query)
		return len(words) == 0 || textutil.Overlap(words, rec.Title+" "+rec.Body) > 0
	}

	body := rec.Body
	if len([]rune(body)) > 600 {
		body = string([]rune(body)[:600])
	}
	user := fmt.Sprintf("Question: %s\n\nEntry title: %s\nEntry text: %s\n\nDoes the entry answer the question? yes or no.",
		query, rec.Title, body)

	resp, err := retry.Do(ctx, c.policy, func(ctx context.Context) (*llm.CompletionResponse, error) {
		return c.provider.Complete(ctx, llm.CompletionRequest{
			Messages: []llm.Message{
				{Role: llm.RoleSystem, Content: relevancePrompt},
				{Role: llm.RoleUser, Content: user},
			},
			MaxTokens:   5,
			Temperature: 0,
		})
	})
	if err != nil {
		c.logger.Warn("relevance check failed, passing candidate through", "error", err)
		return true
	}
	answer := strings.ToLower(strings.TrimSpace(resp.Content))
	return !strings.HasPrefix(answer, "no")
}

// Package classify turns a support dialogue into a structured intent
// decision. It runs a cheap light pass for short opening messages and a
// full pass with every context block the engine can assemble, and repairs
// the model's JSON before ever giving up on it.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/deskwise/intake/internal/config"
	"github.com/deskwise/intake/internal/llm"
	"github.com/deskwise/intake/internal/retry"
	"github.com/deskwise/intake/internal/session"
)

// ArticleRef is a knowledge article reference carried in a Result.
type ArticleRef struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Body        string   `json:"body,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
}

// Result is the classifier's decision for one pass. At most one terminal
// action survives normalization: a knowledge article, a quick solution, an
// off-topic answer, or ticket intent.
type Result struct {
	RequestType    string   `json:"requestType"`
	Confidence     float64  `json:"confidence"`
	IsTicketIntent bool     `json:"isTicketIntent"`
	NeedsMoreInfo  bool     `json:"needsMoreInfo"`
	MissingInfo    []string `json:"missingInfo,omitempty"`

	Category      string `json:"category,omitempty"`
	Priority      string `json:"priority,omitempty"`
	EmotionalTone string `json:"emotionalTone,omitempty"`

	QuickSolution      string       `json:"quickSolution,omitempty"`
	OffTopicResponse   string       `json:"offTopicResponse,omitempty"`
	ClarifyingQuestion string       `json:"clarifyingQuestion,omitempty"`
	Article            *ArticleRef  `json:"knowledgeArticle,omitempty"`
	ArticleCandidates  []ArticleRef `json:"knowledgeArticleCandidates,omitempty"`

	NeedMoreContext   bool   `json:"needMoreContext"`
	MoreContextSource string `json:"moreContextSource,omitempty"`
	DuplicateTicketID string `json:"duplicateTicketId,omitempty"`

	// NeedsFullAnalysis is set by the light tier when the message is too
	// ambiguous for a cheap decision.
	NeedsFullAnalysis bool `json:"needsFullAnalysis,omitempty"`
}

const (
	SourceKB      = "kb"
	SourceTickets = "tickets"
	SourceNone    = "none"
)

// defaultResult is the safe decision used when the model output cannot be
// salvaged: treat the turn as an unconfident question so the engine asks
// for clarification instead of acting.
func defaultResult() Result {
	return Result{RequestType: "question", Confidence: 0}
}

// parseResult runs the parse, repair, default pipeline over raw model
// output.
func parseResult(raw string) Result {
	extracted := llm.ExtractJSON(raw)

	var res Result
	if err := json.Unmarshal([]byte(extracted), &res); err != nil {
		res = Result{}
		if err := json.Unmarshal([]byte(llm.RepairJSON(extracted)), &res); err != nil {
			return defaultResult()
		}
	}
	return normalize(res)
}

// normalize clamps the numeric fields and enforces the single terminal
// action rule. Ticket intent wins over a canned answer, a knowledge article
// over a quick solution, a quick solution over an off-topic reply.
func normalize(res Result) Result {
	if res.Confidence < 0 {
		res.Confidence = 0
	}
	if res.Confidence > 1 {
		res.Confidence = 1
	}
	if strings.TrimSpace(res.RequestType) == "" {
		res.RequestType = "question"
	}
	switch res.MoreContextSource {
	case SourceKB, SourceTickets:
	default:
		res.MoreContextSource = SourceNone
	}
	if res.MoreContextSource == SourceNone {
		res.NeedMoreContext = false
	}

	switch {
	case res.IsTicketIntent:
		res.Article = nil
		res.QuickSolution = ""
		res.OffTopicResponse = ""
	case res.Article != nil:
		res.QuickSolution = ""
		res.OffTopicResponse = ""
	case res.QuickSolution != "":
		res.OffTopicResponse = ""
	}
	return res
}

// ContextFetcher supplies the agentic loop with retrieval text for the
// source the classifier asked about.
type ContextFetcher func(ctx context.Context, source string) (string, error)

type Classifier struct {
	provider llm.Provider
	policy   retry.Policy
	cfg      config.Classifier
	logger   *slog.Logger
}

func New(provider llm.Provider, cfg config.Classifier, logger *slog.Logger) *Classifier {
	policy := retry.ModelCalls()
	policy.Classify = llm.Transient
	return &Classifier{
		provider: provider,
		policy:   policy,
		cfg:      cfg,
		logger:   logger.With("component", "classify"),
	}
}

// LightApplies reports whether the cheap tier may handle this turn: only
// the very first user message, and only when it is short.
func (c *Classifier) LightApplies(dialogTurns int, message string) bool {
	return dialogTurns <= 1 && len([]rune(message)) <= c.cfg.ShortMessageRunes
}

// Light runs the cheap opening-message pass.
func (c *Classifier) Light(ctx context.Context, message string, user session.UserContext) (Result, error) {
	raw, err := c.complete(ctx, lightSystemPrompt, lightUserPrompt(message, user),
		c.cfg.LightMaxTokens, c.cfg.LightTemperature)
	if err != nil {
		return defaultResult(), fmt.Errorf("light classification: %w", err)
	}
	return parseResult(raw), nil
}

// FullInput carries every context block the engine assembled for a full
// pass. Empty blocks are omitted from the prompt.
type FullInput struct {
	Dialog             string
	User               session.UserContext
	Hours              string
	Health             string
	FastTrackCatalogue string
	SimilarTickets     string
	DuplicateFact      string
	OutageFact         string
	ActiveTicketFact   string
	ExtraContext       string
}

// Full runs one full-tier pass.
func (c *Classifier) Full(ctx context.Context, in FullInput) (Result, error) {
	raw, err := c.complete(ctx, fullSystemPrompt, fullUserPrompt(in),
		c.cfg.FullMaxTokens, c.cfg.FullTemperature)
	if err != nil {
		return defaultResult(), fmt.Errorf("full classification: %w", err)
	}
	return parseResult(raw), nil
}

// Run executes the bounded context-expansion loop: a full pass, then at
// most one more if the classifier asked for extra retrieval context and the
// fetch returned something substantive.
func (c *Classifier) Run(ctx context.Context, in FullInput, fetch ContextFetcher) (Result, error) {
	res, err := c.Full(ctx, in)
	if err != nil {
		return res, err
	}

	for pass := 1; pass < c.cfg.MaxContextPasses; pass++ {
		if !res.NeedMoreContext || fetch == nil {
			return res, nil
		}
		extra, err := fetch(ctx, res.MoreContextSource)
		if err != nil {
			c.logger.Warn("context fetch failed, keeping current result",
				"source", res.MoreContextSource, "error", err)
			return res, nil
		}
		if len([]rune(strings.TrimSpace(extra))) < c.cfg.MinContextChars {
			c.logger.Debug("fetched context too thin, terminating loop",
				"source", res.MoreContextSource)
			return res, nil
		}
		in.ExtraContext = strings.TrimSpace(in.ExtraContext + "\n" + extra)
		if res, err = c.Full(ctx, in); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (c *Classifier) complete(ctx context.Context, system, user string, maxTokens int, temperature float64) (string, error) {
	if c.provider == nil {
		return "", llm.ErrUnavailable
	}
	resp, err := retry.Do(ctx, c.policy, func(ctx context.Context) (*llm.CompletionResponse, error) {
		return c.provider.Complete(ctx, llm.CompletionRequest{
			Messages: []llm.Message{
				{Role: llm.RoleSystem, Content: system},
				{Role: llm.RoleUser, Content: user},
			},
			MaxTokens:   maxTokens,
			Temperature: temperature,
			JSONMode:    true,
		})
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

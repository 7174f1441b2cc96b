// Package drafter turns a finished intake dialogue into a ticket draft.
// The model writes the draft; when it cannot, a deterministic fallback
// built from the dialogue itself keeps the flow moving.
package drafter

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
	"github.com/deskwise/intake/internal/validate"
)

const systemPrompt = `You write internal IT helpdesk tickets from a support dialogue.
Reply with a single JSON object:
{
  "title": "short problem summary, at most 200 characters",
  "description": "what happened, what was tried, what is needed",
  "category": "short category label",
  "priority": "low" | "medium" | "high" | "urgent",
  "environmentClues": ["device, OS or software facts mentioned in the dialogue"]
}
Write title and description in the requester's language. Use only facts from the dialogue.`

// Input is everything the drafter may use. Category and Priority are the
// classifier's cached values and act as hints the model may refine.
type Input struct {
	Dialog   string
	User     session.UserContext
	Category string
	Priority string
	// EditRequest is the requester's change instruction during an edit
	// cycle, empty on first drafting.
	EditRequest string
	// PriorDraft is the draft being edited, nil on first drafting.
	PriorDraft *session.TicketDraft
}

type Drafter struct {
	provider llm.Provider
	policy   retry.Policy
	cfg      config.Drafter
	logger   *slog.Logger
}

func New(provider llm.Provider, cfg config.Drafter, logger *slog.Logger) *Drafter {
	policy := retry.ModelCalls()
	policy.Classify = llm.Transient
	return &Drafter{
		provider: provider,
		policy:   policy,
		cfg:      cfg,
		logger:   logger.With("component", "drafter"),
	}
}

// Draft produces a validated ticket draft. Model failure, unparseable
// output and validator rejection all land on the deterministic fallback,
// so the caller always gets a usable draft.
func (d *Drafter) Draft(ctx context.Context, in Input) session.TicketDraft {
	raw, err := d.complete(ctx, in)
	if err != nil {
		d.logger.Warn("draft call failed, using fallback", "error", err)
		return Fallback(in)
	}

	var draft session.TicketDraft
	payload := llm.ExtractJSON(raw)
	if err := json.Unmarshal([]byte(payload), &draft); err != nil {
		if err := json.Unmarshal([]byte(llm.RepairJSON(payload)), &draft); err != nil {
			d.logger.Warn("draft output unparseable, using fallback")
			return Fallback(in)
		}
	}

	coerced, verdict := validate.Draft(draft)
	if !verdict.Valid {
		d.logger.Warn("draft rejected by validator, using fallback", "reason", verdict.Reason)
		return Fallback(in)
	}
	return coerced
}

func (d *Drafter) complete(ctx context.Context, in Input) (string, error) {
	if d.provider == nil {
		return "", llm.ErrUnavailable
	}
	resp, err := retry.Do(ctx, d.policy, func(ctx context.Context) (*llm.CompletionResponse, error) {
		return d.provider.Complete(ctx, llm.CompletionRequest{
			Messages: []llm.Message{
				{Role: llm.RoleSystem, Content: systemPrompt},
				{Role: llm.RoleUser, Content: userPrompt(in)},
			},
			MaxTokens:   d.cfg.MaxTokens,
			Temperature: d.cfg.Temperature,
			JSONMode:    true,
		})
	})
	if err != nil {
		return "", fmt.Errorf("draft ticket: %w", err)
	}
	return resp.Content, nil
}

func userPrompt(in Input) string {
	var b strings.Builder
	b.WriteString("## Dialogue\n")
	b.WriteString(in.Dialog)
	if in.User.Location != "" || in.User.Role != "" || in.User.Equipment != "" {
		b.WriteString("\n## Requester\n")
		if in.User.Location != "" {
			fmt.Fprintf(&b, "location: %s\n", in.User.Location)
		}
		if in.User.Role != "" {
			fmt.Fprintf(&b, "role: %s\n", in.User.Role)
		}
		if in.User.Equipment != "" {
			fmt.Fprintf(&b, "equipment: %s\n", in.User.Equipment)
		}
	}
	if in.Category != "" || in.Priority != "" {
		fmt.Fprintf(&b, "\n## Classifier hints\ncategory: %s\npriority: %s\n", in.Category, in.Priority)
	}
	if in.PriorDraft != nil {
		prior, _ := json.Marshal(in.PriorDraft)
		fmt.Fprintf(&b, "\n## Current draft\n%s\n", prior)
	}
	if in.EditRequest != "" {
		fmt.Fprintf(&b, "\n## Requested change\n%s\n", in.EditRequest)
	}
	return b.String()
}

// Fallback builds a draft from the dialogue alone. The last user message
// becomes the title (truncated) and the full dialogue the description, so
// the result always passes validation.
func Fallback(in Input) session.TicketDraft {
	title := lastUserLine(in.Dialog)
	if title == "" {
		title = "Support request"
	}
	runes := []rune(title)
	if len(runes) > validate.TitleMaxRunes {
		title = string(runes[:validate.TitleMaxRunes-3]) + "..."
	}

	description := strings.TrimSpace(in.Dialog)
	if description == "" {
		description = title
	}
	if descRunes := []rune(description); len(descRunes) > validate.DescMaxRunes {
		description = string(descRunes[:validate.DescMaxRunes])
	}

	draft := session.TicketDraft{
		Title:       title,
		Description: description,
		Category:    in.Category,
		Priority:    in.Priority,
	}
	coerced, _ := validate.Draft(draft)
	return coerced
}

func lastUserLine(dialog string) string {
	lines := strings.Split(dialog, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if rest, found := strings.CutPrefix(line, "user: "); found {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

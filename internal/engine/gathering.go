package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/deskwise/intake/internal/classify"
	"github.com/deskwise/intake/internal/drafter"
	"github.com/deskwise/intake/internal/fasttrack"
	"github.com/deskwise/intake/internal/retrieval"
	"github.com/deskwise/intake/internal/session"
	"github.com/deskwise/intake/internal/validate"
)

const (
	genericQuestion = "Could you describe the problem in a bit more detail: what happens, on which device, and since when?"
	fallbackOffer   = "I could not pin this down automatically. You can fill in a short form instead and a support agent will take it from there. Shall I open the form?"
)

// gather handles a turn in the gathering state: the knowledge base first,
// then the deterministic shortcuts, then the classifier tiers. A confident
// article always outranks a canned fast-track rule.
func (e *Engine) gather(ctx context.Context, sess *session.Session, text string) (Action, error) {
	kb, err := e.search.SearchArticles(ctx, text)
	if err != nil {
		e.logger.Warn("article search failed", "error", err)
		kb = retrieval.KBResult{}
	}
	if kb.Confident != nil {
		return e.answerWithArticle(sess, *kb.Confident), nil
	}

	if rule, ok := e.rules.Match(text); ok {
		if act, handled := e.applyFastTrack(ctx, sess, rule); handled {
			return act, nil
		}
	}

	if hit, err := e.detectors.DetectActiveRepeat(ctx, sess.User.RequesterID, text); err != nil {
		e.logger.Warn("active-repeat detector failed", "error", err)
	} else if hit != nil {
		return Action{
			Type: ActionAnswer,
			Text: fmt.Sprintf("Your request %s (%s) is still open and being worked on. I will not create a second one.", hit.ID, hit.Title),
		}, nil
	}

	if sess.QuestionsAsked >= e.cfg.Session.MaxQuestions ||
		sess.LowConfidenceAttempts >= e.cfg.Session.MaxLowConfidence {
		return Action{Type: ActionFallbackOffer, Text: fallbackOffer}, nil
	}

	if e.classifier.LightApplies(len(sess.Dialog), text) {
		res, err := e.classifier.Light(ctx, text, sess.User)
		if err != nil {
			e.logger.Warn("light classification failed", "error", err)
		} else if !res.NeedsFullAnalysis {
			if act, done := e.applyLight(sess, res); done {
				return act, nil
			}
		}
	}

	in := e.buildFullInput(ctx, sess, text)
	res, err := e.classifier.Run(ctx, in, e.contextFetcher(text))
	if err != nil {
		e.logger.Warn("full classification failed", "error", err)
		sess.LowConfidenceAttempts++
		if sess.LowConfidenceAttempts >= e.cfg.Session.MaxLowConfidence {
			return Action{Type: ActionFallbackOffer, Text: fallbackOffer}, nil
		}
		return e.askQuestion(sess, ""), nil
	}
	return e.applyFull(ctx, sess, res, kb), nil
}

// applyFastTrack resolves a rule hit without any model call.
func (e *Engine) applyFastTrack(ctx context.Context, sess *session.Session, rule fasttrack.Rule) (Action, bool) {
	switch rule.Outcome {
	case fasttrack.OutcomeAutoTicket:
		draft := drafter.Fallback(drafter.Input{
			Dialog:   sess.DialogText(),
			User:     sess.User,
			Category: rule.Category,
			Priority: rule.Priority,
		})
		sess.Draft = &draft
		sess.State = session.StateConfirm
		return e.confirmAction(&draft), true

	default:
		if sess.IsSuppressed(rule.Solution) {
			return Action{}, false
		}
		if rule.NeedsMoreInfo {
			// The canned text alone is not enough: deliver it once, then
			// keep gathering with a clarifying question.
			sess.SuppressSolution(rule.Solution)
			act := e.askQuestion(sess, "")
			act.Text = rule.Solution + "\n\n" + act.Text
			return act, true
		}
		sess.LastSolution = rule.Solution
		sess.State = session.StateAwaitingTip
		return Action{Type: ActionAnswer, Text: rule.Solution}, true
	}
}

// articleText is what the requester actually reads; the title stands in
// when the classifier returned only a reference.
func articleText(ref *classify.ArticleRef) string {
	if strings.TrimSpace(ref.Body) != "" {
		return ref.Body
	}
	return strings.TrimSpace(ref.Title)
}

func (e *Engine) answerWithArticle(sess *session.Session, match retrieval.Match) Action {
	rec := match.Record
	sess.LastSolution = rec.Body
	sess.State = session.StateAwaitingTip
	return Action{
		Type:    ActionAnswer,
		Text:    rec.Body,
		Article: &classify.ArticleRef{ID: rec.ID, Title: rec.Title, Body: rec.Body},
	}
}

// applyLight accepts only a confident canned outcome from the cheap tier;
// anything else escalates to the full tier.
func (e *Engine) applyLight(sess *session.Session, res classify.Result) (Action, bool) {
	e.cacheResult(sess, res)
	if res.OffTopicResponse != "" {
		return Action{Type: ActionAnswer, Text: res.OffTopicResponse}, true
	}
	if res.QuickSolution != "" && res.Confidence >= e.cfg.Classifier.HighConfidence &&
		!sess.IsSuppressed(res.QuickSolution) && validate.Solution(res.QuickSolution).Valid {
		sess.LastSolution = res.QuickSolution
		sess.State = session.StateAwaitingTip
		return Action{Type: ActionAnswer, Text: res.QuickSolution}, true
	}
	return Action{}, false
}

func (e *Engine) applyFull(ctx context.Context, sess *session.Session, res classify.Result, kb retrieval.KBResult) Action {
	e.cacheResult(sess, res)

	switch {
	case res.DuplicateTicketID != "":
		return Action{
			Type: ActionAnswer,
			Text: fmt.Sprintf("This looks like a problem we are already tracking as %s. The team is on it; I will not open a duplicate.", res.DuplicateTicketID),
		}

	case res.OffTopicResponse != "":
		return Action{Type: ActionAnswer, Text: res.OffTopicResponse}

	case res.Article != nil && articleText(res.Article) != "" &&
		!sess.IsSuppressed(articleText(res.Article)):
		text := articleText(res.Article)
		sess.LastSolution = text
		sess.State = session.StateAwaitingTip
		return Action{Type: ActionAnswer, Text: text, Article: res.Article}

	case res.QuickSolution != "" && !sess.IsSuppressed(res.QuickSolution) &&
		validate.Solution(res.QuickSolution).Valid:
		sess.LastSolution = res.QuickSolution
		sess.State = session.StateAwaitingTip
		return Action{Type: ActionAnswer, Text: res.QuickSolution}

	case res.IsTicketIntent && !res.NeedsMoreInfo && res.Confidence >= e.cfg.Classifier.HighConfidence:
		draft := e.drafter.Draft(ctx, drafter.Input{
			Dialog:   sess.DialogText(),
			User:     sess.User,
			Category: sess.CachedCategory,
			Priority: sess.CachedPriority,
		})
		sess.Draft = &draft
		sess.State = session.StateConfirm
		return e.confirmAction(&draft)

	case res.NeedsMoreInfo:
		return e.askQuestion(sess, res.ClarifyingQuestion)
	}

	if len(kb.Candidates) > 0 {
		refs := make([]classify.ArticleRef, 0, len(kb.Candidates))
		var b strings.Builder
		b.WriteString("These might cover it:\n")
		for _, c := range kb.Candidates {
			refs = append(refs, classify.ArticleRef{ID: c.Record.ID, Title: c.Record.Title})
			fmt.Fprintf(&b, "- %s\n", c.Record.Title)
		}
		b.WriteString("Did one of these help?")
		sess.State = session.StateAwaitingTip
		return Action{Type: ActionAnswer, Text: b.String(), Candidates: refs}
	}

	if res.Confidence < e.cfg.Classifier.LowConfidence {
		sess.LowConfidenceAttempts++
		if sess.LowConfidenceAttempts >= e.cfg.Session.MaxLowConfidence {
			return Action{Type: ActionFallbackOffer, Text: fallbackOffer}
		}
	}
	return e.askQuestion(sess, res.ClarifyingQuestion)
}

func (e *Engine) askQuestion(sess *session.Session, question string) Action {
	if !validate.Question(question).Valid {
		question = genericQuestion
	}
	sess.QuestionsAsked++
	return Action{Type: ActionQuestion, Text: question}
}

func (e *Engine) confirmAction(draft *session.TicketDraft) Action {
	text := fmt.Sprintf(
		"Here is the ticket I prepared:\n\nTitle: %s\nPriority: %s\nCategory: %s\n\n%s\n\nShall I create it, or would you change something?",
		draft.Title, draft.Priority, draft.Category, draft.Description)
	return Action{Type: ActionTicketConfirmation, Text: text, Draft: draft}
}

func (e *Engine) buildFullInput(ctx context.Context, sess *session.Session, text string) classify.FullInput {
	in := classify.FullInput{
		Dialog:             sess.DialogText(),
		User:               sess.User,
		Hours:              e.detectors.BusinessHours(e.clock()).String(),
		FastTrackCatalogue: e.rules.Catalogue(),
	}
	if e.health != nil {
		in.Health = e.health(ctx)
	}

	if dup, err := e.detectors.DetectDuplicate(ctx, sess.User.Location, sess.CachedCategory, text); err != nil {
		e.logger.Warn("duplicate detector failed", "error", err)
	} else if dup != nil {
		in.DuplicateFact = fmt.Sprintf("an open ticket %s (%q) from the same location matches this report", dup.ID, dup.Title)
	}

	if outage, err := e.detectors.DetectOutage(ctx, sess.User.Location); err != nil {
		e.logger.Warn("outage detector failed", "error", err)
	} else if outage != nil {
		in.OutageFact = fmt.Sprintf("a network outage is likely in progress at %s: %d open network tickets since %s",
			outage.Location, outage.TicketCount, outage.Since.Format("15:04"))
	}

	if matches, err := e.search.SimilarTickets(ctx, text); err != nil {
		e.logger.Warn("similar-ticket search failed", "error", err)
	} else {
		in.SimilarTickets = formatTicketMatches(matches)
	}
	return in
}

// contextFetcher serves the classifier's agentic context requests from the
// retrieval layer.
func (e *Engine) contextFetcher(query string) classify.ContextFetcher {
	return func(ctx context.Context, source string) (string, error) {
		switch source {
		case classify.SourceKB:
			kb, err := e.search.SearchArticles(ctx, query)
			if err != nil {
				return "", err
			}
			var b strings.Builder
			if kb.Confident != nil {
				fmt.Fprintf(&b, "%s\n%s\n", kb.Confident.Record.Title, kb.Confident.Record.Body)
			}
			for _, c := range kb.Candidates {
				fmt.Fprintf(&b, "%s\n%s\n", c.Record.Title, c.Record.Body)
			}
			return b.String(), nil
		case classify.SourceTickets:
			matches, err := e.search.SimilarTickets(ctx, query)
			if err != nil {
				return "", err
			}
			return formatTicketMatches(matches), nil
		default:
			return "", nil
		}
	}
}

func formatTicketMatches(matches []retrieval.Match) string {
	if len(matches) == 0 {
		return ""
	}
	var b strings.Builder
	for _, m := range matches {
		fmt.Fprintf(&b, "- %s -> %s\n", m.Record.Title, m.Record.Resolution)
	}
	return b.String()
}

// noChangePhrases end an edit cycle without a model call.
var noChangePhrases = []string{
	"nothing", "no changes", "all good", "looks good", "its fine", "it's fine",
	"нічого", "все ок", "все вірно", "все добре", "ничего", "все верно",
}

// edit handles a free-text message while a draft is on the table.
func (e *Engine) edit(ctx context.Context, sess *session.Session, text string) (Action, error) {
	if sess.Draft == nil {
		// A draft vanished mid-edit; restart gathering rather than fail.
		sess.State = session.StateGathering
		return e.gather(ctx, sess, text)
	}

	lower := strings.ToLower(strings.TrimSpace(text))
	for _, phrase := range noChangePhrases {
		if lower == phrase {
			sess.State = session.StateConfirm
			return e.confirmAction(sess.Draft), nil
		}
	}

	sess.State = session.StateEditing
	draft := e.drafter.Draft(ctx, drafter.Input{
		Dialog:      sess.DialogText(),
		User:        sess.User,
		Category:    sess.CachedCategory,
		Priority:    sess.CachedPriority,
		EditRequest: text,
		PriorDraft:  sess.Draft,
	})
	sess.Draft = &draft
	sess.State = session.StateConfirm
	return e.confirmAction(&draft), nil
}

func (e *Engine) cacheResult(sess *session.Session, res classify.Result) {
	if res.Category != "" {
		sess.CachedCategory = res.Category
	}
	if res.Priority != "" {
		sess.CachedPriority = res.Priority
	}
	if res.EmotionalTone != "" {
		sess.CachedTone = res.EmotionalTone
	}
	if res.RequestType != "" {
		sess.CachedRequestType = res.RequestType
	}
}

// Package validate is the structural acceptance gate for model output: quick
// solutions, clarifying questions, and ticket drafts. It never returns an
// error; invalid input yields a Verdict the caller swaps for a fixed
// fallback.
package validate

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/deskwise/intake/internal/session"
)

type Verdict struct {
	Valid  bool
	Reason string
}

func ok() Verdict                { return Verdict{Valid: true} }
func fail(reason string) Verdict { return Verdict{Valid: false, Reason: reason} }

// TitleMaxRunes and DescMaxRunes bound ticket drafts; the drafter fallback
// truncates to them.
const (
	TitleMaxRunes = 200
	DescMaxRunes  = 4000

	solutionMinRunes = 20
	solutionMaxRunes = 1500
	questionMinRunes = 5
	questionMaxRunes = 300

	maxWordRepeats = 5
)

var enumeratedStepPattern = regexp.MustCompile(`(?m)^\s*(?:\d+[.)]|[-*•])\s+`)

// hallucinationPhrases flag output that leaked meta-talk instead of an
// actual instruction for the requester.
var hallucinationPhrases = []string{
	"as an ai",
	"as a language model",
	"i do not have access to your",
	"i don't have access to your",
	"according to my training",
	"i cannot browse",
}

// Solution checks a free-text quick solution: length bounds, an enumerated
// step list or a clarifying question mark, bounded word repetition, and no
// meta-talk phrases.
func Solution(text string) Verdict {
	trimmed := strings.TrimSpace(text)
	runes := len([]rune(trimmed))
	if runes < solutionMinRunes {
		return fail("solution too short")
	}
	if runes > solutionMaxRunes {
		return fail("solution too long")
	}
	if !strings.Contains(trimmed, "?") && !enumeratedStepPattern.MatchString(trimmed) {
		return fail("solution has neither enumerated steps nor a question")
	}
	if word, count := mostRepeatedContentWord(trimmed); count > maxWordRepeats {
		return fail("word repeated too often: " + word)
	}
	lower := strings.ToLower(trimmed)
	for _, phrase := range hallucinationPhrases {
		if strings.Contains(lower, phrase) {
			return fail("contains meta-talk phrase")
		}
	}
	return ok()
}

// Question checks a free-text clarifying question.
func Question(text string) Verdict {
	trimmed := strings.TrimSpace(text)
	runes := len([]rune(trimmed))
	if runes < questionMinRunes {
		return fail("question too short")
	}
	if runes > questionMaxRunes {
		return fail("question too long")
	}
	return ok()
}

var validPriorities = map[string]bool{"low": true, "medium": true, "high": true, "urgent": true}

// Draft checks required fields and length bounds on a ticket draft and
// coerces enum fields, substituting defaults for unknown values. The
// returned draft is the coerced copy; the verdict reports whether the input
// was acceptable at all.
func Draft(draft session.TicketDraft) (session.TicketDraft, Verdict) {
	draft.Title = strings.TrimSpace(draft.Title)
	draft.Description = strings.TrimSpace(draft.Description)

	if draft.Title == "" {
		return draft, fail("draft title is empty")
	}
	if draft.Description == "" {
		return draft, fail("draft description is empty")
	}
	if len([]rune(draft.Title)) > TitleMaxRunes {
		return draft, fail("draft title too long")
	}
	if len([]rune(draft.Description)) > DescMaxRunes {
		return draft, fail("draft description too long")
	}

	priority := strings.ToLower(strings.TrimSpace(draft.Priority))
	if !validPriorities[priority] {
		priority = "medium"
	}
	draft.Priority = priority

	if strings.TrimSpace(draft.Category) == "" {
		draft.Category = "general"
	}
	return draft, ok()
}

// mostRepeatedContentWord returns the most frequent content word (>3 runes)
// and its count. Short function words are ignored.
func mostRepeatedContentWord(text string) (string, int) {
	counts := make(map[string]int)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	topWord, topCount := "", 0
	for _, word := range words {
		if len([]rune(word)) <= 3 {
			continue
		}
		counts[word]++
		if counts[word] > topCount {
			topWord, topCount = word, counts[word]
		}
	}
	return topWord, topCount
}

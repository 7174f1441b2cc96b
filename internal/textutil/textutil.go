// Package textutil holds the small text heuristics shared by the detectors
// and the retrieval fallbacks.
package textutil

import "strings"

// stopwords covers the function words common in the requester languages we
// see (English, Ukrainian, Russian).
var stopwords = map[string]bool{
	"this": true, "that": true, "with": true, "have": true, "does": true,
	"what": true, "when": true, "where": true, "будь": true, "ласка": true,
	"мене": true, "мені": true, "який": true, "яка": true, "яке": true,
	"чому": true, "коли": true, "это": true, "меня": true, "почему": true,
	"когда": true, "please": true, "help": true,
}

// SignificantWords extracts lowercase content words (4+ runes, not
// stopwords) for keyword matching.
func SignificantWords(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	words := make([]string, 0, len(fields))
	for _, field := range fields {
		word := strings.Trim(field, ".,!?;:\"'()[]«»")
		if len([]rune(word)) < 4 || stopwords[word] {
			continue
		}
		words = append(words, word)
	}
	return words
}

// Overlap counts how many of the words occur in the candidate text.
func Overlap(words []string, candidate string) int {
	haystack := strings.ToLower(candidate)
	count := 0
	for _, word := range words {
		if strings.Contains(haystack, word) {
			count++
		}
	}
	return count
}

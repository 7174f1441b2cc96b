package textutil

import "testing"

func TestSignificantWordsFiltersShortAndStopwords(t *testing.T) {
	words := SignificantWords("Мій принтер не друкує, please help!")
	want := map[string]bool{"принтер": true, "друкує": true}
	for _, word := range words {
		if !want[word] {
			t.Fatalf("unexpected significant word %q in %v", word, words)
		}
		delete(want, word)
	}
	if len(want) != 0 {
		t.Fatalf("missing significant words: %v", want)
	}
}

func TestOverlap(t *testing.T) {
	words := SignificantWords("printer driver update")
	if got := Overlap(words, "How to update the printer driver on Windows"); got != 3 {
		t.Fatalf("expected overlap 3, got %d", got)
	}
	if got := Overlap(words, "coffee machine manual"); got != 0 {
		t.Fatalf("expected overlap 0, got %d", got)
	}
}

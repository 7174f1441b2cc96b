package llm

import (
	"encoding/json"
	"testing"
)

func TestSanitizeReplyStripsThinkBlocks(t *testing.T) {
	input := "<think>reasoning goes here</think>\n{\"ok\": true}"
	if got := sanitizeReply(input); got != `{"ok": true}` {
		t.Fatalf("unexpected sanitized reply: %q", got)
	}
}

func TestExtractJSONFromFencedReply(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"category\": \"network\"}\n```\nDone."
	got := ExtractJSON(raw)
	if got != `{"category": "network"}` {
		t.Fatalf("unexpected extraction: %q", got)
	}
}

func TestExtractJSONWithoutClosingBrace(t *testing.T) {
	raw := `prefix {"a": 1, "b": 2`
	got := ExtractJSON(raw)
	if got != `{"a": 1, "b": 2` {
		t.Fatalf("unexpected extraction: %q", got)
	}
}

func TestRepairJSONTruncated(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"missing brace", `{"requestType": "question", "confidence": 0.9`},
		{"missing brace and bracket", `{"missingInfo": ["location", "device"`},
		{"dangling comma", `{"requestType": "question",`},
		{"dangling key", `{"requestType": "question", "confidence":`},
		{"dangling string", `{"requestType": "quest`},
	}
	for _, tc := range cases {
		repaired := RepairJSON(tc.in)
		var out map[string]any
		if err := json.Unmarshal([]byte(repaired), &out); err != nil {
			t.Fatalf("%s: repaired output does not parse: %v (%q)", tc.name, err, repaired)
		}
	}
}

func TestRepairJSONPreservesCompleteFields(t *testing.T) {
	repaired := RepairJSON(`{"requestType": "question", "confidence": 0.9`)
	var out struct {
		RequestType string  `json:"requestType"`
		Confidence  float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		t.Fatalf("unmarshal repaired: %v", err)
	}
	if out.RequestType != "question" || out.Confidence != 0.9 {
		t.Fatalf("fields lost in repair: %+v", out)
	}
}

func TestRepairJSONLeavesValidInputAlone(t *testing.T) {
	valid := `{"requestType": "appeal", "isTicketIntent": true}`
	if got := RepairJSON(valid); got != valid {
		t.Fatalf("valid input was modified: %q", got)
	}
}

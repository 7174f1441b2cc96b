package llm

import "strings"

// ExtractJSON pulls the first JSON object out of a model reply, dropping
// markdown fences and any prose around it. Returns "" when no object start
// is present.
func ExtractJSON(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}
	start := strings.Index(trimmed, "{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(trimmed, "}")
	if end > start {
		return trimmed[start : end+1]
	}
	// Truncated output with no closing brace at all; hand the tail to repair.
	return trimmed[start:]
}

// RepairJSON closes unbalanced braces and brackets on truncated model output.
// A dangling string is closed, a dangling `"key":` gets a null value, and a
// trailing comma is dropped. Anything beyond that is left to the caller's
// default substitution: truncation loses trailing fields, it does not
// scramble the ones already emitted.
func RepairJSON(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return trimmed
	}

	depthBrace, depthBracket := 0, 0
	inString := false
	escaped := false
	for _, r := range trimmed {
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch r {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{':
			depthBrace++
		case '}':
			depthBrace--
		case '[':
			depthBracket++
		case ']':
			depthBracket--
		}
	}

	if inString {
		trimmed += `"`
	}

	trimmed = strings.TrimRight(trimmed, " \t\r\n")
	trimmed = strings.TrimSuffix(trimmed, ",")
	if strings.HasSuffix(trimmed, ":") {
		trimmed += " null"
	}

	for i := 0; i < depthBracket; i++ {
		trimmed += "]"
	}
	for i := 0; i < depthBrace; i++ {
		trimmed += "}"
	}
	return trimmed
}

// Package tolerantjson implements the best-effort JSON extraction/repair
// pass the specification requires of every LLM-facing parser: strip
// surrounding prose, tolerate a fenced code block, repair trailing commas,
// then give up. Used by pkg/issue for primary output and by pkg/loop for
// challenger evaluations.
package tolerantjson

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

// ExtractCandidate strips leading/trailing prose around a JSON payload,
// preferring a fenced block, then the first balanced {...} or [...] span.
func ExtractCandidate(raw string) string {
	trimmed := strings.TrimSpace(raw)

	if m := fencedBlock.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}

	start := strings.IndexAny(trimmed, "{[")
	if start < 0 {
		return trimmed
	}
	open := trimmed[start]
	closer := byte('}')
	if open == '[' {
		closer = ']'
	}
	depth := 0
	for i := start; i < len(trimmed); i++ {
		switch trimmed[i] {
		case open:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return trimmed[start : i+1]
			}
		}
	}
	return trimmed[start:]
}

// Unmarshal extracts a JSON candidate from raw and decodes it into v, making
// one best-effort trailing-comma repair pass if the first attempt fails.
func Unmarshal(raw string, v any) error {
	candidate := ExtractCandidate(raw)

	if err := json.Unmarshal([]byte(candidate), v); err == nil {
		return nil
	}

	repaired := trailingComma.ReplaceAllString(candidate, "$1")
	return json.Unmarshal([]byte(repaired), v)
}

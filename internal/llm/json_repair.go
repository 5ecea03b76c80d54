package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// RepairStats tracks what a repair pass had to fix. Kept small on purpose:
// the stats feed run logs, not persistence.
type RepairStats struct {
	OriginalBytes int      `json:"original_bytes"`
	RepairedBytes int      `json:"repaired_bytes"`
	Strategies    []string `json:"strategies"`
	WasRepaired   bool     `json:"was_repaired"`
}

var (
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	unquotedKeyRe   = regexp.MustCompile(`([{,]\s*)([a-zA-Z_][a-zA-Z0-9_]*)(\s*:)`)
	singleQuoteRe   = regexp.MustCompile(`'([^']*)'`)
	blockCommentRe  = regexp.MustCompile(`/\*.*?\*/`)
)

// RepairJSON attempts to salvage a malformed structured-output payload.
// Models under token pressure produce JSON with trailing commas, comments,
// unquoted keys, single quotes, or truncated tails; cheap targeted fixes are
// applied first and the jsonrepair library serves as the heavyweight
// fallback. Returns the payload unchanged when it already parses.
func RepairJSON(raw string) (string, RepairStats, error) {
	stats := RepairStats{OriginalBytes: len(raw)}

	var probe interface{}
	if json.Unmarshal([]byte(raw), &probe) == nil {
		stats.RepairedBytes = len(raw)
		return raw, stats, nil
	}

	stats.WasRepaired = true
	repaired := raw

	if trailingCommaRe.MatchString(repaired) {
		repaired = trailingCommaRe.ReplaceAllString(repaired, "$1")
		stats.Strategies = append(stats.Strategies, "trailing_commas")
	}

	if strings.Contains(repaired, "//") || strings.Contains(repaired, "/*") {
		repaired = stripComments(repaired)
		stats.Strategies = append(stats.Strategies, "comments_removed")
	}

	if unquotedKeyRe.MatchString(repaired) {
		repaired = unquotedKeyRe.ReplaceAllString(repaired, `$1"$2"$3`)
		stats.Strategies = append(stats.Strategies, "key_quotes")
	}

	if singleQuoteRe.MatchString(repaired) {
		repaired = singleQuoteRe.ReplaceAllString(repaired, `"$1"`)
		stats.Strategies = append(stats.Strategies, "single_quotes")
	}

	if needsCompletion(repaired) {
		repaired = completeJSON(repaired)
		stats.Strategies = append(stats.Strategies, "completion")
	}

	if json.Unmarshal([]byte(repaired), &probe) == nil {
		stats.RepairedBytes = len(repaired)
		return repaired, stats, nil
	}

	// Targeted fixes weren't enough; hand the original to the library so
	// its fixes aren't compounded with ours.
	libRepaired, err := jsonrepair.JSONRepair(raw)
	if err == nil && json.Unmarshal([]byte(libRepaired), &probe) == nil {
		stats.Strategies = append(stats.Strategies, "jsonrepair_library")
		stats.RepairedBytes = len(libRepaired)
		return libRepaired, stats, nil
	}

	stats.RepairedBytes = len(repaired)
	return repaired, stats, fmt.Errorf("JSON repair failed after %d strategies", len(stats.Strategies))
}

func stripComments(s string) string {
	lines := strings.Split(s, "\n")
	clean := make([]string, 0, len(lines))
	for _, line := range lines {
		inString := false
		for i := 0; i < len(line); i++ {
			if line[i] == '"' && (i == 0 || line[i-1] != '\\') {
				inString = !inString
			}
			if !inString && i+1 < len(line) && line[i] == '/' && line[i+1] == '/' {
				line = line[:i]
				break
			}
		}
		clean = append(clean, line)
	}
	return blockCommentRe.ReplaceAllString(strings.Join(clean, "\n"), "")
}

// needsCompletion checks if JSON objects or arrays are left unclosed.
func needsCompletion(s string) bool {
	s = strings.TrimSpace(s)
	openBraces := strings.Count(s, "{") - strings.Count(s, "}")
	openBrackets := strings.Count(s, "[") - strings.Count(s, "]")
	return openBraces > 0 || openBrackets > 0
}

// completeJSON closes unterminated structures last-opened-first-closed.
func completeJSON(s string) string {
	s = strings.TrimSpace(s)

	var stack []rune
	inString := false
	escaped := false

	for _, char := range s {
		if escaped {
			escaped = false
			continue
		}
		switch char {
		case '\\':
			escaped = true
		case '"':
			inString = !inString
		case '{':
			if !inString {
				stack = append(stack, '}')
			}
		case '[':
			if !inString {
				stack = append(stack, ']')
			}
		case '}', ']':
			if !inString && len(stack) > 0 && stack[len(stack)-1] == char {
				stack = stack[:len(stack)-1]
			}
		}
	}

	// A string cut off mid-value needs its quote closed first.
	if inString {
		s += `"`
	}

	for i := len(stack) - 1; i >= 0; i-- {
		s += string(stack[i])
	}

	return s
}

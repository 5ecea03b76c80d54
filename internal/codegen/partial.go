package codegen

import "strings"

// extractPartialCode pulls the value of the "code" string field out of a
// possibly-incomplete JSON payload as it streams. Milestone detection runs
// against this extracted source, not the raw JSON, so escape sequences are
// decoded as far as the snapshot allows. Returns an empty string until the
// field's opening quote has arrived.
func extractPartialCode(raw string) string {
	idx := strings.Index(raw, `"code"`)
	if idx < 0 {
		return ""
	}
	rest := raw[idx+len(`"code"`):]

	// skip whitespace and the colon up to the opening quote
	i := 0
	for i < len(rest) && (rest[i] == ' ' || rest[i] == '\t' || rest[i] == '\n' || rest[i] == '\r' || rest[i] == ':') {
		i++
	}
	if i >= len(rest) || rest[i] != '"' {
		return ""
	}
	rest = rest[i+1:]

	var sb strings.Builder
	for j := 0; j < len(rest); j++ {
		c := rest[j]
		if c == '"' {
			break
		}
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		if j+1 >= len(rest) {
			break // escape cut off mid-stream
		}
		j++
		switch rest[j] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '"':
			sb.WriteByte('"')
		case '\\':
			sb.WriteByte('\\')
		case '/':
			sb.WriteByte('/')
		case 'u':
			if j+4 < len(rest) {
				if r, ok := decodeHex4(rest[j+1 : j+5]); ok {
					sb.WriteRune(r)
				}
				j += 4
			} else {
				j = len(rest)
			}
		default:
			sb.WriteByte(rest[j])
		}
	}
	return sb.String()
}

func decodeHex4(s string) (rune, bool) {
	var r rune
	for i := 0; i < 4; i++ {
		r <<= 4
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			r |= rune(c - '0')
		case c >= 'a' && c <= 'f':
			r |= rune(c-'a') + 10
		case c >= 'A' && c <= 'F':
			r |= rune(c-'A') + 10
		default:
			return 0, false
		}
	}
	return r, true
}

// stripCodeFences removes a Markdown code-fence wrapper the model sometimes
// adds despite the structured contract.
func stripCodeFences(code string) string {
	trimmed := strings.TrimSpace(code)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
		// drop the language tag line
		first := strings.TrimSpace(trimmed[:nl])
		if first == "" || isFenceLang(first) {
			trimmed = trimmed[nl+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func isFenceLang(s string) bool {
	switch strings.ToLower(s) {
	case "jsx", "js", "javascript", "tsx", "ts", "typescript", "html":
		return true
	}
	return false
}

package plan

import "strings"

// extractJSON pulls a JSON object out of a model response.
//
// Models asked for raw JSON still frequently wrap it in a markdown code
// fence or surround it with prose. Strategy: strip a leading code fence if
// present, otherwise take the substring between the first '{' and the last
// '}'. The result is returned as-is for the JSON decoder to judge.
func extractJSON(content string) string {
	trimmed := strings.TrimSpace(content)

	if strings.HasPrefix(trimmed, "```") {
		if inner, ok := stripCodeFence(trimmed); ok {
			return inner
		}
	}

	first := strings.Index(trimmed, "{")
	last := strings.LastIndex(trimmed, "}")
	if first != -1 && last > first {
		return trimmed[first : last+1]
	}

	return trimmed
}

// stripCodeFence removes a ```...``` wrapper, tolerating a language tag
// after the opening fence (e.g. ```json).
func stripCodeFence(s string) (string, bool) {
	body := strings.TrimPrefix(s, "```")

	// Drop the language tag on the opening fence line, if any.
	if idx := strings.IndexByte(body, '\n'); idx != -1 {
		firstLine := strings.TrimSpace(body[:idx])
		if firstLine == "" || isFenceTag(firstLine) {
			body = body[idx+1:]
		}
	}

	closing := strings.LastIndex(body, "```")
	if closing == -1 {
		return "", false
	}
	return strings.TrimSpace(body[:closing]), true
}

// isFenceTag reports whether s looks like a fence language tag rather than
// JSON content (no braces, single short token).
func isFenceTag(s string) bool {
	return !strings.ContainsAny(s, "{}") && len(s) <= 16 && !strings.ContainsAny(s, " \t")
}

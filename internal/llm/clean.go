package llm

import "strings"

// CleanModelJSON strips the Markdown wrapping and surrounding prose that
// models sometimes emit despite being told not to, keeping only the JSON
// payload. It handles both object ({...}) and array ([...]) bodies.
func CleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			// Single-line weirdness; just return as-is.
			return s
		}
		s = strings.TrimSpace(s)
	}

	// Remove trailing ``` if present.
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Extra safety: if there's still junk around the JSON value, keep
	// only from the first opening brace/bracket to its matching closer.
	objStart := strings.Index(s, "{")
	arrStart := strings.Index(s, "[")

	start, closer := objStart, "}"
	if objStart == -1 || (arrStart != -1 && arrStart < objStart) {
		start, closer = arrStart, "]"
	}

	if start != -1 {
		if end := strings.LastIndex(s, closer); end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}

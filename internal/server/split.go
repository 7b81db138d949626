package server

import "strings"

// maxMessageLen is Twilio's WhatsApp body limit.
const maxMessageLen = 1600

// SplitMessage breaks s into pieces of at most limit bytes, preferring
// paragraph breaks, then line breaks, then a hard cut.
func SplitMessage(s string, limit int) []string {
	if limit <= 0 {
		limit = maxMessageLen
	}
	if len(s) <= limit {
		return []string{s}
	}

	var parts []string
	for len(s) > limit {
		cut := lastBreak(s[:limit])
		parts = append(parts, strings.TrimRight(s[:cut], "\n"))
		s = strings.TrimLeft(s[cut:], "\n")
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}

func lastBreak(s string) int {
	if i := strings.LastIndex(s, "\n\n"); i > 0 {
		return i
	}
	if i := strings.LastIndex(s, "\n"); i > 0 {
		return i
	}
	return len(s)
}

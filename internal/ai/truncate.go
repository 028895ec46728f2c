package ai

import (
	"strings"
	"unicode/utf8"
)

// TruncationMarker is appended to text cut by TruncateToTokens.
const TruncationMarker = "[Document truncated]"

// EstimateTokens approximates the token count of text as one token per four characters.
func EstimateTokens(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

// TruncateToTokens shortens text to roughly maxTokens tokens. The cut backs off to the
// last paragraph, sentence or word boundary inside the final 20% of the budget, and the
// result ends with TruncationMarker unless the budget is too small to hold it. The
// result never exceeds maxTokens*4 runes. The bool reports whether text was cut.
func TruncateToTokens(text string, maxTokens int) (string, bool) {
	if maxTokens <= 0 {
		return text, false
	}
	maxRunes := maxTokens * 4
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text, false
	}

	suffix := "\n\n" + TruncationMarker
	limit := maxRunes - utf8.RuneCountInString(suffix)
	if limit <= 0 {
		limit, suffix = maxRunes, ""
	}
	cut := string(runes[:limit])
	floor := len(string(runes[:limit*4/5]))
	cut = strings.TrimSpace(cutAtBoundary(cut, floor))
	return cut + suffix, true
}

var sentenceEnds = []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}

// cutAtBoundary returns s cut at the best boundary found at or after byte offset floor.
func cutAtBoundary(s string, floor int) string {
	if i := strings.LastIndex(s, "\n\n"); i >= floor {
		return s[:i]
	}
	best := -1
	for _, end := range sentenceEnds {
		if i := strings.LastIndex(s, end); i > best {
			best = i
		}
	}
	if best >= floor {
		return s[:best+1]
	}
	if i := strings.LastIndexAny(s, " \n\t"); i >= floor {
		return s[:i]
	}
	return s
}

// Package tokens provides the deterministic token heuristic shared by every
// budgeting decision in llmctx.
package tokens

import (
	"strings"
	"unicode/utf8"
)

// CharsPerToken is the fixed character-to-token ratio used for estimates.
const CharsPerToken = 4

// Estimate estimates the token count for a given text.
// Non-empty text is never estimated below one token.
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	n := utf8.RuneCountInString(text) / CharsPerToken
	if n < 1 {
		return 1
	}
	return n
}

// CharsFor returns the character allowance for n tokens.
func CharsFor(n int) int {
	if n <= 0 {
		return 0
	}
	return n * CharsPerToken
}

// Truncate cuts text so that the result, including "\n"+marker, is estimated
// at no more than maxTokens (as long as maxTokens covers the marker itself).
// The cut prefers a line boundary in the last quarter of the window.
func Truncate(text string, maxTokens int, marker string) string {
	suffix := "\n" + marker
	limit := CharsFor(maxTokens - Estimate(suffix))

	runes := []rune(text)
	if limit >= len(runes) {
		return text + suffix
	}

	cut := string(runes[:limit])
	if idx := strings.LastIndexByte(cut, '\n'); idx >= 0 {
		if utf8.RuneCountInString(cut[:idx]) > limit*3/4 {
			cut = cut[:idx]
		}
	}
	return cut + suffix
}

package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const marker = "... [CONTENT TRUNCATED TO FIT TOKEN LIMIT] ..."

func TestEstimate(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected int
	}{
		{name: "empty text", text: "", expected: 0},
		{name: "single char floors to one", text: "a", expected: 1},
		{name: "three chars floors to one", text: "abc", expected: 1},
		{name: "exact multiple", text: strings.Repeat("x", 3200), expected: 800},
		{name: "remainder dropped", text: strings.Repeat("x", 2003), expected: 500},
		{name: "runes not bytes", text: "ação", expected: 1},
		{name: "multibyte long", text: strings.Repeat("é", 40), expected: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Estimate(tt.text))
		})
	}
}

func TestCharsFor(t *testing.T) {
	assert.Equal(t, 0, CharsFor(-3))
	assert.Equal(t, 0, CharsFor(0))
	assert.Equal(t, 2000, CharsFor(500))
}

func TestTruncate_FitsAllottedTokens(t *testing.T) {
	original := strings.Repeat("a", 4000)

	for _, budget := range []int{0, 5, 12, 100, 500, 999} {
		got := Truncate(original, budget, marker)
		assert.Contains(t, got, marker)
		assert.Less(t, len(got), len(original))
		if budget >= Estimate("\n"+marker) {
			assert.LessOrEqual(t, Estimate(got), budget, "budget %d", budget)
		}
	}
}

func TestTruncate_HalvesOversizedText(t *testing.T) {
	got := Truncate(strings.Repeat("a", 4000), 500, marker)
	assert.LessOrEqual(t, len(got), 2050)
	assert.True(t, strings.HasSuffix(got, marker))
}

func TestTruncate_PrefersLineBoundary(t *testing.T) {
	line := strings.Repeat("b", 39) + "\n"
	text := strings.Repeat(line, 50)

	got := Truncate(text, 60, marker)
	body := strings.TrimSuffix(got, "\n"+marker)
	assert.True(t, strings.HasSuffix(body, "b"), "cut should land before a newline")
	assert.Len(t, body, 4*40-1)
}

func TestTruncate_ShortTextKeepsContent(t *testing.T) {
	got := Truncate("short", 100, marker)
	assert.Equal(t, "short\n"+marker, got)
}

func TestTruncate_MultibyteSafe(t *testing.T) {
	got := Truncate(strings.Repeat("ç", 400), 20, marker)
	assert.True(t, strings.HasSuffix(got, marker))
	assert.NotContains(t, got, "�")
}

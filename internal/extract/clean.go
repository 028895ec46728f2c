package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/sectionkit/internal/models"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t]+`)
	blankLineRuns   = regexp.MustCompile(`\n{3,}`)
)

// Clean normalizes line endings and whitespace: lines are trimmed, inner runs of
// spaces and tabs collapse to one space, and at most one blank line separates blocks.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\t':
			return r
		case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff', '\u00ad':
			return -1
		}
		if unicode.IsSpace(r) {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(horizontalSpace.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")
	text = blankLineRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// ComputeStats counts words, characters (runes), and blank-line separated paragraphs.
func ComputeStats(text string) models.TextStats {
	paragraphs := 0
	for _, block := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(block) != "" {
			paragraphs++
		}
	}
	return models.TextStats{
		Words:      len(strings.Fields(text)),
		Characters: utf8.RuneCountInString(text),
		Paragraphs: paragraphs,
	}
}

// Preview returns at most maxChars characters of text, cut at a word boundary
// when one exists in the second half, with "..." appended if anything was dropped.
func Preview(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:maxChars])
	if i := strings.LastIndexAny(cut, " \n"); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "..."
}

package ingestion

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/fmuoria/doc-compare-agent/internal/models"
)

var (
	excessBlankLines = regexp.MustCompile(`\n{3,}`)
	paragraphBreak   = regexp.MustCompile(`\n\n+`)
)

// CleanText normalizes line endings and collapses runs of blank lines
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = excessBlankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// GetDocumentStats counts characters, words, non-blank lines and paragraphs
func GetDocumentStats(text string) models.DocumentStats {
	stats := models.DocumentStats{
		Characters: utf8.RuneCountInString(text),
		Words:      len(strings.Fields(text)),
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			stats.Lines++
		}
	}
	for _, p := range paragraphBreak.Split(text, -1) {
		if strings.TrimSpace(p) != "" {
			stats.Paragraphs++
		}
	}

	return stats
}

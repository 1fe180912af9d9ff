package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fmuoria/doc-compare-agent/internal/models"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"CRLF normalised", "a\r\nb", "a\nb"},
		{"blank runs collapsed", "a\n\n\n\n\nb", "a\n\nb"},
		{"double newline kept", "a\n\nb", "a\n\nb"},
		{"trimmed", "  \n a \n ", "a"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanText(tt.input))
		})
	}
}

func TestGetDocumentStats(t *testing.T) {
	text := "Functional Spec\n1. Authentication\n\n2. Data processing — fast\n   \nlast line"
	stats := GetDocumentStats(text)

	assert.Equal(t, models.DocumentStats{
		Characters: 74,
		Words:      11,
		Lines:      4,
		Paragraphs: 2,
	}, stats)
}

func TestGetDocumentStats_Empty(t *testing.T) {
	assert.Equal(t, models.DocumentStats{}, GetDocumentStats(""))
}

package scoring

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fmuoria/doc-compare-agent/internal/models"
)

// Closing sentences selected by overall score
const (
	SummaryStrong      = "The response demonstrates strong alignment with the specification requirements."
	SummaryModerate    = "The response shows moderate alignment with some areas needing improvement."
	SummarySignificant = "Significant gaps exist between the specification requirements and the response."
)

const (
	strongAlignmentThreshold   = 80.0
	moderateAlignmentThreshold = 60.0
)

// StatusCounts tallies categories per status tier
func StatusCounts(results []models.CategoryResult) map[models.Status]int {
	counts := make(map[models.Status]int, 3)
	for _, r := range results {
		counts[r.Status]++
	}
	return counts
}

// Summarize builds the natural-language summary of a report
func Summarize(results []models.CategoryResult, overall float64) string {
	counts := StatusCounts(results)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Overall comparison score: %s/100. ", strconv.FormatFloat(overall, 'f', -1, 64)))

	if n := counts[models.StatusExcellent]; n > 0 {
		sb.WriteString(fmt.Sprintf("%d categories rated as EXCELLENT. ", n))
	}
	if n := counts[models.StatusGood]; n > 0 {
		sb.WriteString(fmt.Sprintf("%d categories rated as GOOD. ", n))
	}
	if n := counts[models.StatusCriticalGap]; n > 0 {
		sb.WriteString(fmt.Sprintf("%d CRITICAL GAPS identified requiring immediate attention. ", n))
	}

	sb.WriteString(ClosingSentence(overall))
	return sb.String()
}

// ClosingSentence picks the alignment verdict for an overall score
func ClosingSentence(overall float64) string {
	switch {
	case overall >= strongAlignmentThreshold:
		return SummaryStrong
	case overall >= moderateAlignmentThreshold:
		return SummaryModerate
	default:
		return SummarySignificant
	}
}

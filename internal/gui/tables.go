package gui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fmuoria/doc-compare-agent/internal/models"
	"github.com/fmuoria/doc-compare-agent/internal/scoring"
)

var categoryHeaders = []string{"Category", "Weight", "Score", "Weighted", "Status", "Key Finding"}

var rankingHeaders = []string{"Rank", "Response", "Overall", "Status", "Critical Gaps", "Method"}

func categoryCell(c models.CategoryResult, col int) string {
	switch col {
	case 0:
		return c.Name
	case 1:
		return fmt.Sprintf("%.0f%%", c.Weight*100)
	case 2:
		return fmt.Sprintf("%.1f", c.Score)
	case 3:
		return fmt.Sprintf("%.1f", c.WeightedScore)
	case 4:
		return string(c.Status)
	case 5:
		return c.KeyFinding
	}
	return ""
}

func rankingCell(r models.RankedResponse, col int) string {
	switch col {
	case 0:
		return strconv.Itoa(r.Rank)
	case 1:
		return r.Name
	}
	if r.Result == nil {
		return ""
	}
	switch col {
	case 2:
		return fmt.Sprintf("%.1f", r.Result.OverallScore)
	case 3:
		return string(scoring.Classify(r.Result.OverallScore))
	case 4:
		return strconv.Itoa(scoring.StatusCounts(r.Result.Categories)[models.StatusCriticalGap])
	case 5:
		return string(r.Result.Method)
	}
	return ""
}

func overallText(result *models.ComparisonResult) string {
	return fmt.Sprintf("Overall score: %.1f/100 (%s)", result.OverallScore, scoring.Classify(result.OverallScore))
}

// exportFileName builds a timestamped default workbook name
func exportFileName(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_Results_%s.xlsx", prefix, now.Format("2006-01-02_150405"))
}

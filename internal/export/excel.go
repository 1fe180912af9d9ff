package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fmuoria/doc-compare-agent/internal/models"
	"github.com/fmuoria/doc-compare-agent/internal/scoring"
)

// Sheet names of the exported workbook
const (
	SummarySheet   = "Summary"
	RankedSheet    = "Ranked Responses"
	BreakdownSheet = "Category Breakdown"
)

var statusFills = map[models.Status]string{
	models.StatusExcellent:   "C6EFCE",
	models.StatusGood:        "FFEB9C",
	models.StatusCriticalGap: "FFC7CE",
}

var thinBorder = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
}

// ExportComparison writes a single comparison as a one-entry ranking
func ExportComparison(specName, responseName string, result *models.ComparisonResult, outputPath string) (string, error) {
	report := models.BatchReport{
		Specification: specName,
		Responses:     []models.RankedResponse{{Rank: 1, Name: responseName, Result: result}},
		Timestamp:     time.Now().Format(time.RFC3339),
	}
	return ExportToExcel(report, outputPath)
}

// ExportToExcel generates an Excel workbook from a ranking report and returns the written path
func ExportToExcel(report models.BatchReport, outputPath string) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	// Ensure output path has .xlsx extension
	if !strings.HasSuffix(strings.ToLower(outputPath), ".xlsx") {
		outputPath = outputPath + ".xlsx"
	}
	outputPath = filepath.Clean(outputPath)

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return "", err
	}
	if _, err := f.NewSheet(RankedSheet); err != nil {
		return "", err
	}
	if _, err := f.NewSheet(BreakdownSheet); err != nil {
		return "", err
	}

	s, err := newStyles(f)
	if err != nil {
		return "", fmt.Errorf("failed to create styles: %w", err)
	}

	if err := createSummarySheet(f, s, report); err != nil {
		return "", fmt.Errorf("failed to create summary sheet: %w", err)
	}

	if err := createRankedSheet(f, s, report.Responses); err != nil {
		return "", fmt.Errorf("failed to create ranked responses sheet: %w", err)
	}

	if err := createBreakdownSheet(f, s, report.Responses); err != nil {
		return "", fmt.Errorf("failed to create category breakdown sheet: %w", err)
	}

	// Try to save the file directly
	if err := f.SaveAs(outputPath); err != nil {
		// If direct save fails, try buffer write fallback
		var buf bytes.Buffer
		if writeErr := f.Write(&buf); writeErr != nil {
			return "", fmt.Errorf("failed to save Excel file: direct save failed (%v), buffer write also failed: %w", err, writeErr)
		}

		if fileErr := os.WriteFile(outputPath, buf.Bytes(), 0644); fileErr != nil {
			return "", fmt.Errorf("failed to save Excel file: direct save failed (%v), file write failed: %w", err, fileErr)
		}
	}

	return outputPath, nil
}

type styles struct {
	title  int
	header int
	label  int
	wrap   int
	status map[models.Status]int
}

func newStyles(f *excelize.File) (*styles, error) {
	var err error
	s := &styles{status: make(map[models.Status]int, len(statusFills))}

	s.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return nil, err
	}

	s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder,
	})
	if err != nil {
		return nil, err
	}

	s.label, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	s.wrap, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		Border:    thinBorder,
	})
	if err != nil {
		return nil, err
	}

	for status, color := range statusFills {
		id, err := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
			Border:    thinBorder,
		})
		if err != nil {
			return nil, err
		}
		s.status[status] = id
	}

	return s, nil
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func setLabel(f *excelize.File, s *styles, sheet string, row int, label string, value any) {
	f.SetCellValue(sheet, cell("A", row), label)
	f.SetCellStyle(sheet, cell("A", row), cell("A", row), s.label)
	f.SetCellValue(sheet, cell("B", row), value)
}

func setSection(f *excelize.File, s *styles, sheet string, row int, title string) {
	f.SetCellValue(sheet, cell("A", row), title)
	f.SetCellStyle(sheet, cell("A", row), cell("B", row), s.title)
	f.MergeCell(sheet, cell("A", row), cell("B", row))
}

// createSummarySheet writes report details and overall score statistics
func createSummarySheet(f *excelize.File, s *styles, report models.BatchReport) error {
	sheet := SummarySheet
	f.SetColWidth(sheet, "A", "A", 30)
	f.SetColWidth(sheet, "B", "B", 50)

	row := 1
	setSection(f, s, sheet, row, "Document Comparison Report")
	row += 2

	setLabel(f, s, sheet, row, "Specification:", report.Specification)
	row++
	setLabel(f, s, sheet, row, "Generated:", report.Timestamp)
	row++
	setLabel(f, s, sheet, row, "Responses Compared:", len(report.Responses))
	row += 2

	if len(report.Responses) == 0 {
		return nil
	}

	setSection(f, s, sheet, row, "Overall Score Tiers:")
	row++

	tiers := make(map[models.Status]int, 3)
	minScore, maxScore := report.Responses[0].Result.OverallScore, report.Responses[0].Result.OverallScore
	var total float64
	for _, r := range report.Responses {
		score := r.Result.OverallScore
		tiers[scoring.Classify(score)]++
		total += score
		minScore = min(minScore, score)
		maxScore = max(maxScore, score)
	}

	setLabel(f, s, sheet, row, fmt.Sprintf("Excellent (>= %.0f):", scoring.ExcellentThreshold), tiers[models.StatusExcellent])
	row++
	setLabel(f, s, sheet, row, fmt.Sprintf("Good (%.0f-%.0f):", scoring.GoodThreshold, scoring.ExcellentThreshold), tiers[models.StatusGood])
	row++
	setLabel(f, s, sheet, row, fmt.Sprintf("Critical Gap (< %.0f):", scoring.GoodThreshold), tiers[models.StatusCriticalGap])
	row += 2

	setSection(f, s, sheet, row, "Score Distribution:")
	row++
	setLabel(f, s, sheet, row, "Average Score:", fmt.Sprintf("%.2f", total/float64(len(report.Responses))))
	row++
	setLabel(f, s, sheet, row, "Highest Score:", fmt.Sprintf("%.2f", maxScore))
	row++
	setLabel(f, s, sheet, row, "Lowest Score:", fmt.Sprintf("%.2f", minScore))
	row++
	setLabel(f, s, sheet, row, "Score Range:", fmt.Sprintf("%.2f", maxScore-minScore))

	return nil
}

// createRankedSheet writes one colour-coded row per response
func createRankedSheet(f *excelize.File, s *styles, responses []models.RankedResponse) error {
	sheet := RankedSheet
	widths := map[string]float64{"A": 8, "B": 25, "C": 14, "D": 14, "E": 12, "F": 12, "G": 14, "H": 70, "I": 14}
	for col, w := range widths {
		f.SetColWidth(sheet, col, col, w)
	}

	headers := []string{"Rank", "Response", "Overall Score", "Status", "Method", "Critical Gaps", "Document", "Summary", "Deployment"}
	for col, header := range headers {
		c := cell(string(rune('A'+col)), 1)
		f.SetCellValue(sheet, c, header)
		f.SetCellStyle(sheet, c, c, s.header)
	}

	for i, r := range responses {
		row := i + 2
		status := scoring.Classify(r.Result.OverallScore)

		f.SetCellValue(sheet, cell("A", row), r.Rank)
		f.SetCellValue(sheet, cell("B", row), r.Name)
		f.SetCellValue(sheet, cell("C", row), r.Result.OverallScore)
		f.SetCellValue(sheet, cell("D", row), string(status))
		f.SetCellValue(sheet, cell("E", row), string(r.Result.Method))
		f.SetCellValue(sheet, cell("F", row), scoring.StatusCounts(r.Result.Categories)[models.StatusCriticalGap])
		f.SetCellValue(sheet, cell("H", row), r.Result.Summary)
		f.SetCellValue(sheet, cell("I", row), r.Result.Metadata.DeploymentID)
		f.SetCellStyle(sheet, cell("A", row), cell("I", row), s.status[status])

		if r.Path != "" {
			absPath, err := filepath.Abs(r.Path)
			if err != nil {
				absPath = r.Path
			}
			f.SetCellValue(sheet, cell("G", row), "Open")
			fileURL := "file:///" + strings.TrimPrefix(strings.ReplaceAll(absPath, "\\", "/"), "/")
			f.SetCellHyperLink(sheet, cell("G", row), fileURL, "External")
		}
	}

	if len(responses) > 0 {
		if err := f.AutoFilter(sheet, fmt.Sprintf("A1:I%d", len(responses)+1), []excelize.AutoFilterOptions{}); err != nil {
			return err
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// createBreakdownSheet writes one row per response and category
func createBreakdownSheet(f *excelize.File, s *styles, responses []models.RankedResponse) error {
	sheet := BreakdownSheet
	widths := map[string]float64{"A": 8, "B": 25, "C": 35, "D": 10, "E": 10, "F": 14, "G": 14, "H": 70}
	for col, w := range widths {
		f.SetColWidth(sheet, col, col, w)
	}

	headers := []string{"Rank", "Response", "Category", "Weight", "Score", "Weighted Score", "Status", "Key Finding"}
	for col, header := range headers {
		c := cell(string(rune('A'+col)), 1)
		f.SetCellValue(sheet, c, header)
		f.SetCellStyle(sheet, c, c, s.header)
	}

	row := 2
	for _, r := range responses {
		for _, c := range r.Result.Categories {
			f.SetCellValue(sheet, cell("A", row), r.Rank)
			f.SetCellValue(sheet, cell("B", row), r.Name)
			f.SetCellValue(sheet, cell("C", row), c.Name)
			f.SetCellValue(sheet, cell("D", row), c.Weight)
			f.SetCellValue(sheet, cell("E", row), scoring.Round1(c.Score))
			f.SetCellValue(sheet, cell("F", row), c.WeightedScore)
			f.SetCellValue(sheet, cell("G", row), string(c.Status))
			f.SetCellValue(sheet, cell("H", row), c.KeyFinding)
			f.SetCellStyle(sheet, cell("A", row), cell("F", row), s.wrap)
			if style, ok := s.status[c.Status]; ok {
				f.SetCellStyle(sheet, cell("G", row), cell("G", row), style)
			}
			f.SetCellStyle(sheet, cell("H", row), cell("H", row), s.wrap)
			row++
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

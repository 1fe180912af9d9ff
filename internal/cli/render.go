package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fmuoria/doc-compare-agent/internal/models"
	"github.com/fmuoria/doc-compare-agent/internal/scoring"
)

const (
	formatJSON = "json"
	formatText = "text"
)

func checkFormat(format string) error {
	switch format {
	case formatJSON, formatText:
		return nil
	}
	return exitError(2, "unknown format %q (want json or text)", format)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderComparison(w io.Writer, format string, result *models.ComparisonResult) error {
	if format == formatJSON {
		return writeJSON(w, result)
	}

	fmt.Fprintf(w, "Overall score: %.1f/100 (%s, %s)\n\n", result.OverallScore, scoring.Classify(result.OverallScore), result.Method)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tWEIGHT\tSCORE\tWEIGHTED\tSTATUS\tKEY FINDING")
	for _, c := range result.Categories {
		fmt.Fprintf(tw, "%s\t%.2f\t%.1f\t%.1f\t%s\t%s\n", c.Name, c.Weight, c.Score, c.WeightedScore, c.Status, c.KeyFinding)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%s\n", result.Summary)
	if result.Metadata.FallbackReason != "" {
		fmt.Fprintf(w, "\nAI analysis failed, rule-based fallback used: %s\n", result.Metadata.FallbackReason)
	}
	return nil
}

func renderBatch(w io.Writer, format string, report models.BatchReport) error {
	if format == formatJSON {
		return writeJSON(w, report)
	}

	fmt.Fprintf(w, "Specification: %s\nResponses: %d\n\n", report.Specification, len(report.Responses))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tRESPONSE\tOVERALL\tSTATUS\tCRITICAL GAPS\tMETHOD")
	for _, r := range report.Responses {
		counts := scoring.StatusCounts(r.Result.Categories)
		fmt.Fprintf(tw, "%d\t%s\t%.1f\t%s\t%d\t%s\n",
			r.Rank, r.Name, r.Result.OverallScore, scoring.Classify(r.Result.OverallScore),
			counts[models.StatusCriticalGap], r.Result.Method)
	}
	return tw.Flush()
}

func renderDeployments(w io.Writer, format string, list any, rows [][]string) error {
	if format == formatJSON {
		return writeJSON(w, list)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tCONFIGURATION\tSCENARIO")
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

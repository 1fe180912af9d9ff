package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/fmuoria/doc-compare-agent/internal/models"
	"github.com/fmuoria/doc-compare-agent/internal/scoring"
)

// ErrMalformedReply is returned when the model reply carries no usable report
var ErrMalformedReply = errors.New("malformed model reply")

const replySchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["categories"],
  "properties": {
    "categories": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": { "type": "string" },
          "weight": { "type": "number" },
          "score": { "type": "number" },
          "fsScore": { "type": "number" },
          "weightedScore": { "type": "number" },
          "status": { "type": "string" },
          "keyFinding": { "type": "string" }
        },
        "anyOf": [
          { "required": ["score"] },
          { "required": ["fsScore"] }
        ]
      }
    },
    "overallScore": { "type": "number" },
    "summary": { "type": "string" }
  }
}`

var replySchemaLoader = gojsonschema.NewStringLoader(replySchemaJSON)

type replyCategory struct {
	Name       string   `json:"name"`
	Weight     *float64 `json:"weight"`
	Score      *float64 `json:"score"`
	FSScore    *float64 `json:"fsScore"`
	Status     string   `json:"status"`
	KeyFinding string   `json:"keyFinding"`
}

type reply struct {
	Categories []replyCategory `json:"categories"`
	Summary    string          `json:"summary"`
}

// Parsed is a report decoded from a model reply, with any schema problems found on the way
type Parsed struct {
	Report       models.ComparisonReport
	SchemaIssues []string
}

// ExtractJSON returns the outermost {...} block of text, or "" when there is none
func ExtractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// ParseReport decodes a model reply into a report.
// Scores are clamped, weights normalised to sum 1, and weighted scores, statuses and the overall score
// recomputed so the report obeys the same invariants as a rule-based one.
func ParseReport(text string) (*Parsed, error) {
	payload := ExtractJSON(text)
	if payload == "" {
		return nil, fmt.Errorf("%w: no JSON object found", ErrMalformedReply)
	}

	var issues []string
	result, err := gojsonschema.Validate(replySchemaLoader, gojsonschema.NewStringLoader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if !result.Valid() {
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
	}

	var r reply
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if len(r.Categories) == 0 {
		return nil, fmt.Errorf("%w: no categories", ErrMalformedReply)
	}

	return &Parsed{Report: coerce(r), SchemaIssues: issues}, nil
}

func coerce(r reply) models.ComparisonReport {
	weights := normaliseWeights(r.Categories)

	results := make([]models.CategoryResult, 0, len(r.Categories))
	for i, c := range r.Categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			name = fmt.Sprintf("Category %d", i+1)
		}

		var score float64
		switch {
		case c.Score != nil:
			score = *c.Score
		case c.FSScore != nil:
			score = *c.FSScore
		}
		if math.IsNaN(score) {
			score = 0
		}
		score = scoring.Clamp(score)

		finding := strings.TrimSpace(c.KeyFinding)
		if finding == "" {
			finding = scoring.DefaultFinding
		}

		results = append(results, models.CategoryResult{
			ID:            i + 1,
			Name:          name,
			Weight:        weights[i],
			Score:         score,
			WeightedScore: scoring.Round1(score * weights[i]),
			Status:        scoring.Classify(score),
			KeyFinding:    finding,
		})
	}

	overall := scoring.OverallScore(results)
	summary := strings.TrimSpace(r.Summary)
	if summary == "" {
		summary = scoring.Summarize(results, overall)
	}

	return models.ComparisonReport{
		Categories:   results,
		OverallScore: overall,
		Summary:      summary,
		Method:       models.MethodAI,
	}
}

// normaliseWeights scales positive weights to sum 1. Missing or non-positive weights share equally
// when no category carries a usable weight, and are zero otherwise.
func normaliseWeights(cats []replyCategory) []float64 {
	weights := make([]float64, len(cats))
	var total float64
	for i, c := range cats {
		if c.Weight != nil && *c.Weight > 0 && !math.IsInf(*c.Weight, 0) {
			weights[i] = *c.Weight
			total += *c.Weight
		}
	}

	if total == 0 {
		for i := range weights {
			weights[i] = 1 / float64(len(weights))
		}
		return weights
	}

	for i := range weights {
		weights[i] /= total
	}
	return weights
}

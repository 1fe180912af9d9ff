package models

import "time"

// Status classifies how well a category is covered by the response
type Status string

const (
	StatusExcellent   Status = "EXCELLENT"
	StatusGood        Status = "GOOD"
	StatusCriticalGap Status = "CRITICAL GAP"
)

// Valid reports whether s is one of the known status tiers
func (s Status) Valid() bool {
	switch s {
	case StatusExcellent, StatusGood, StatusCriticalGap:
		return true
	}
	return false
}

// Method records which engine produced a comparison report
type Method string

const (
	MethodAI        Method = "ai"
	MethodRuleBased Method = "rule-based"
)

// Category is one weighted dimension of comparison
type Category struct {
	Name     string   `json:"name" yaml:"name"`
	Weight   float64  `json:"weight" yaml:"weight"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// CategoryResult is the scored outcome for a single category
type CategoryResult struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	Weight        float64 `json:"weight"`
	Score         float64 `json:"score"`         // 0-100
	WeightedScore float64 `json:"weightedScore"` // score * weight
	Status        Status  `json:"status"`
	KeyFinding    string  `json:"keyFinding"`
}

// ComparisonReport is the scored breakdown of one specification/response pair
type ComparisonReport struct {
	Categories   []CategoryResult `json:"categories"`
	OverallScore float64          `json:"overallScore"` // 0-100, one decimal
	Summary      string           `json:"summary"`
	Method       Method           `json:"method"`
}

// DocumentStats holds simple size statistics for an extracted document
type DocumentStats struct {
	Characters int `json:"characters"`
	Words      int `json:"words"`
	Lines      int `json:"lines"`
	Paragraphs int `json:"paragraphs"`
}

// DocumentStatsPair groups the statistics of both compared documents
type DocumentStatsPair struct {
	Specification DocumentStats `json:"specDocument"`
	Response      DocumentStats `json:"responseDocument"`
}

// ComparisonMetadata describes how and when a comparison was produced
type ComparisonMetadata struct {
	ID             string    `json:"id"`
	DeploymentID   string    `json:"deploymentId,omitempty"`
	Provider       string    `json:"provider,omitempty"`
	ModelName      string    `json:"modelName,omitempty"`
	Method         Method    `json:"method"`
	FallbackReason string    `json:"fallbackReason,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Version        string    `json:"version"`
}

// ComparisonResult is the full output of the comparison service
type ComparisonResult struct {
	ComparisonReport
	DocumentStats DocumentStatsPair  `json:"documentStats"`
	Metadata      ComparisonMetadata `json:"comparisonMetadata"`
}

// FileMetadata describes an uploaded file
type FileMetadata struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// UploadMetadata describes both uploaded files of a comparison request
type UploadMetadata struct {
	Specification FileMetadata `json:"specDocument"`
	Response      FileMetadata `json:"responseDocument"`
	Timestamp     time.Time    `json:"timestamp"`
}

// CompareResponse is the body returned by POST /api/compare
type CompareResponse struct {
	Success    bool              `json:"success"`
	Comparison *ComparisonResult `json:"comparison"`
	Metadata   UploadMetadata    `json:"metadata"`
}

// ResponseDocument is a candidate document loaded for batch comparison
type ResponseDocument struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Content string `json:"content"`
}

// RankedResponse is one ranked entry of a batch comparison
type RankedResponse struct {
	Rank   int               `json:"rank"`
	Name   string            `json:"name"`
	Path   string            `json:"path,omitempty"`
	Result *ComparisonResult `json:"result"`
}

// BatchReport is the ranking of many responses against one specification
type BatchReport struct {
	Specification string           `json:"specification"`
	Responses     []RankedResponse `json:"responses"`
	Timestamp     string           `json:"timestamp"`
}

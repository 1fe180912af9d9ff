// Package analysis asks an LLM to compare a specification with a response and turns the reply into a report.
package analysis

import "fmt"

// MaxDocumentRunes caps each document embedded in the user prompt
const MaxDocumentRunes = 15000

const systemPrompt = `You are an expert document analyzer. Your task is to:
1. First, intelligently detect what type of documents are being compared
2. Then provide a relevant comparison based on the document type

Return your analysis in JSON format with the following structure:
{
  "categories": [
    {
      "name": "Category Name (relevant to document type)",
      "weight": 0.10,
      "score": 84.0,
      "weightedScore": 8.4,
      "status": "GOOD|EXCELLENT|CRITICAL GAP",
      "keyFinding": "Detailed finding description"
    }
  ],
  "overallScore": 75.5,
  "summary": "Overall assessment summary"
}

For different document types, use relevant categories:
- **Technical Specs/Requirements**: Solution Architecture, Business Process Coverage, Error Handling, Testing, Deployment
- **Invoices/Bills**: Amount Accuracy, Line Items Match, Dates & Periods, Vendor/Customer Info, Tax Calculations, Payment Terms
- **Contracts**: Terms & Conditions, Obligations, Deliverables, Timeline, Payment Terms, Legal Compliance
- **Reports**: Data Accuracy, Completeness, Insights Quality, Formatting, Timeliness
- **General Documents**: Content Accuracy, Completeness, Structure, Clarity, Relevance

Always use 4-6 categories with weights summing to 1.0.
Scores are on a 0-100 scale and weightedScore is score multiplied by weight.

Status criteria:
- EXCELLENT: Score >= 85
- GOOD: Score >= 70
- CRITICAL GAP: Score < 70`

const userPromptTemplate = `Please analyze and compare the following two documents. First detect what type of documents these are, then provide a relevant comparison:

DOCUMENT 1 (specification):
%s

DOCUMENT 2 (response):
%s

Provide a detailed comparison with appropriate categories based on the document type.`

// SystemPrompt returns the fixed instructions sent with every comparison
func SystemPrompt() string {
	return systemPrompt
}

// BuildPrompts returns the system prompt and the user prompt embedding both documents
func BuildPrompts(specText, responseText string) (system, user string) {
	return systemPrompt, fmt.Sprintf(userPromptTemplate, Truncate(specText, MaxDocumentRunes), Truncate(responseText, MaxDocumentRunes))
}

// Truncate returns at most n runes of s
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

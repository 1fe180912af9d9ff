package scoring

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/fmuoria/doc-compare-agent/internal/models"
)

// DefaultFinding is used when the rubric has no finding for a category/status pair
const DefaultFinding = "Analysis completed"

// weightTolerance bounds the accepted drift of the weight sum from 1.0
const weightTolerance = 1e-6

//go:embed rubric.yaml
var defaultRubricYAML []byte

// Rubric is the immutable category table and finding lookup used by the scorer
type Rubric struct {
	categories []models.Category
	findings   map[string]map[models.Status]string
}

type rubricFile struct {
	Categories []rubricCategory `yaml:"categories"`
}

type rubricCategory struct {
	models.Category `yaml:",inline"`
	Findings        map[string]string `yaml:"findings"`
}

var defaultRubric = sync.OnceValue(func() *Rubric {
	r, err := ParseRubric(defaultRubricYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded rubric is invalid: %v", err))
	}
	return r
})

// DefaultRubric returns the built-in six-category rubric
func DefaultRubric() *Rubric {
	return defaultRubric()
}

// LoadRubric reads a rubric YAML file from disk
func LoadRubric(path string) (*Rubric, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rubric file: %w", err)
	}
	r, err := ParseRubric(data)
	if err != nil {
		return nil, fmt.Errorf("invalid rubric %s: %w", path, err)
	}
	return r, nil
}

// ParseRubric decodes and validates a rubric document
func ParseRubric(data []byte) (*Rubric, error) {
	var file rubricFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rubric: %w", err)
	}

	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("rubric has no categories")
	}

	r := &Rubric{
		categories: make([]models.Category, 0, len(file.Categories)),
		findings:   make(map[string]map[models.Status]string, len(file.Categories)),
	}

	var total float64
	for i, c := range file.Categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("category %d has no name", i+1)
		}
		if _, dup := r.findings[name]; dup {
			return nil, fmt.Errorf("duplicate category %q", name)
		}
		if c.Weight <= 0 || c.Weight > 1 {
			return nil, fmt.Errorf("category %q: weight %v outside (0,1]", name, c.Weight)
		}

		keywords := make([]string, 0, len(c.Keywords))
		for _, kw := range c.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				keywords = append(keywords, kw)
			}
		}
		if len(keywords) == 0 {
			return nil, fmt.Errorf("category %q has no keywords", name)
		}

		findings := make(map[models.Status]string, len(c.Findings))
		for status, text := range c.Findings {
			st := models.Status(strings.ToUpper(strings.TrimSpace(status)))
			if !st.Valid() {
				return nil, fmt.Errorf("category %q: unknown status %q in findings", name, status)
			}
			findings[st] = text
		}

		r.categories = append(r.categories, models.Category{Name: name, Weight: c.Weight, Keywords: keywords})
		r.findings[name] = findings
		total += c.Weight
	}

	if math.Abs(total-1) > weightTolerance {
		return nil, fmt.Errorf("category weights sum to %v, want 1.0", total)
	}

	return r, nil
}

// Categories returns a copy of the rubric's categories in declaration order
func (r *Rubric) Categories() []models.Category {
	out := make([]models.Category, len(r.categories))
	for i, c := range r.categories {
		c.Keywords = append([]string(nil), c.Keywords...)
		out[i] = c
	}
	return out
}

// TotalWeight is the sum of all category weights
func (r *Rubric) TotalWeight() float64 {
	var total float64
	for _, c := range r.categories {
		total += c.Weight
	}
	return total
}

// Finding returns the canned finding for a category at a status tier
func (r *Rubric) Finding(category string, status models.Status) string {
	if f, ok := r.findings[category][status]; ok && f != "" {
		return f
	}
	return DefaultFinding
}

// Package llm defines the provider interface and the hosted model backends used for document analysis.
package llm

import (
	"context"
	"errors"
)

// ErrNotSupported is returned by operations a provider cannot perform
var ErrNotSupported = errors.New("operation not supported by provider")

// Settings configures a single generation request
type Settings struct {
	Model       string // model name, or the AI Core deployment ID
	System      string
	Temperature *float64 // nil selects the provider default
	MaxTokens   int
}

// Float64 returns a pointer to v, for optional settings such as Temperature
func Float64(v float64) *float64 { return &v }

// Provider generates text from a prompt using an LLM
type Provider interface {
	Generate(ctx context.Context, prompt string, settings Settings) (string, error)
	Name() string
}

// Deployment is one model deployment known to the backend
type Deployment struct {
	ID                string `json:"id"`
	ConfigurationID   string `json:"configurationId,omitempty"`
	ConfigurationName string `json:"configurationName,omitempty"`
	ScenarioID        string `json:"scenarioId,omitempty"`
	Status            string `json:"status,omitempty"`
	TargetStatus      string `json:"targetStatus,omitempty"`
	DeploymentURL     string `json:"deploymentUrl,omitempty"`
	CreatedAt         string `json:"createdAt,omitempty"`
	ModifiedAt        string `json:"modifiedAt,omitempty"`
}

// DeploymentList is the deployment listing returned by GET /v2/lm/deployments
type DeploymentList struct {
	Count     int          `json:"count"`
	Resources []Deployment `json:"resources"`
}

// DeploymentLister is implemented by providers that can enumerate their deployments
type DeploymentLister interface {
	ListDeployments(ctx context.Context) (*DeploymentList, error)
}

// joinPrompt prefixes the user prompt with the system prompt for backends without a system role
func joinPrompt(system, prompt string) string {
	if system == "" {
		return prompt
	}
	return system + "\n\n" + prompt
}

package llm

import (
	"context"
	"sync"
)

// MockProvider is a test double that returns canned responses and records prompts
type MockProvider struct {
	Response    string
	Err         error
	Deployments *DeploymentList

	mu      sync.Mutex
	prompts  []string
	models   []string
	settings []Settings
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Generate(_ context.Context, prompt string, s Settings) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, joinPrompt(s.System, prompt))
	m.models = append(m.models, s.Model)
	m.settings = append(m.settings, s)
	m.mu.Unlock()
	return m.Response, m.Err
}

// ListDeployments returns the canned deployment list, or ErrNotSupported when none is set
func (m *MockProvider) ListDeployments(_ context.Context) (*DeploymentList, error) {
	if m.Deployments == nil {
		return nil, ErrNotSupported
	}
	return m.Deployments, nil
}

// Prompts returns the prompts received so far
func (m *MockProvider) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Models returns the model names requested so far
func (m *MockProvider) Models() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.models...)
}

// Settings returns the generation settings received so far
func (m *MockProvider) Settings() []Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Settings(nil), m.settings...)
}

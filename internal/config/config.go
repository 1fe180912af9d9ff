package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fmuoria/doc-compare-agent/internal/comparison"
	"github.com/fmuoria/doc-compare-agent/internal/llm"
	"github.com/fmuoria/doc-compare-agent/internal/logging"
	"github.com/fmuoria/doc-compare-agent/internal/scoring"
)

// DefaultDeploymentID is the AI Core deployment used when a request names none
const DefaultDeploymentID = "dc3ee26c175a1d47"

// Config holds application configuration
type Config struct {
	Addr           string `koanf:"addr" yaml:"addr"`
	UploadsDir     string `koanf:"uploads_dir" yaml:"uploads_dir"`
	MaxUploadBytes int64  `koanf:"max_upload_bytes" yaml:"max_upload_bytes"`
	LogLevel       string `koanf:"log_level" yaml:"log_level"`
	Fallback       string `koanf:"fallback" yaml:"fallback"`
	RubricPath     string `koanf:"rubric_path" yaml:"rubric_path,omitempty"`

	LLM     LLMConfig     `koanf:"llm" yaml:"llm"`
	AICore  AICoreConfig  `koanf:"aicore" yaml:"aicore"`
	Google  GoogleConfig  `koanf:"google" yaml:"google"`
	Scoring ScoringConfig `koanf:"scoring" yaml:"scoring"`
	Agent   AgentConfig   `koanf:"agent" yaml:"agent"`
}

// LLMConfig selects and tunes the analysis model
type LLMConfig struct {
	Provider    string        `koanf:"provider" yaml:"provider"`
	Model       string        `koanf:"model" yaml:"model"`           // model name, or the default AI Core deployment ID
	ModelName   string        `koanf:"model_name" yaml:"model_name"` // display name stored in comparison metadata
	Temperature float64       `koanf:"temperature" yaml:"temperature"`
	MaxTokens   int           `koanf:"max_tokens" yaml:"max_tokens"`
	MaxAttempts int           `koanf:"max_attempts" yaml:"max_attempts"`
	RetryDelay  time.Duration `koanf:"retry_delay" yaml:"retry_delay"`
	Timeout     time.Duration `koanf:"timeout" yaml:"timeout"`

	AnthropicAPIKey  string `koanf:"anthropic_api_key" yaml:"anthropic_api_key,omitempty"`
	AnthropicBaseURL string `koanf:"anthropic_base_url" yaml:"anthropic_base_url,omitempty"`
	OpenAIAPIKey     string `koanf:"openai_api_key" yaml:"openai_api_key,omitempty"`
	OpenAIBaseURL    string `koanf:"openai_base_url" yaml:"openai_base_url,omitempty"`
}

// AICoreConfig holds the AI Core service key
type AICoreConfig struct {
	APIURL        string        `koanf:"api_url" yaml:"api_url"`
	AuthURL       string        `koanf:"auth_url" yaml:"auth_url"`
	ClientID      string        `koanf:"client_id" yaml:"client_id"`
	ClientSecret  string        `koanf:"client_secret" yaml:"client_secret,omitempty"`
	ResourceGroup string        `koanf:"resource_group" yaml:"resource_group"`
	Timeout       time.Duration `koanf:"timeout" yaml:"timeout"`
}

// GoogleConfig holds Vertex AI and Gmail settings
type GoogleConfig struct {
	Project              string `koanf:"project" yaml:"project"`
	Location             string `koanf:"location" yaml:"location"`
	CredentialsPath      string `koanf:"credentials_path" yaml:"credentials_path,omitempty"`
	GmailCredentialsPath string `koanf:"gmail_credentials_path" yaml:"gmail_credentials_path,omitempty"`
	GmailTokenPath       string `koanf:"gmail_token_path" yaml:"gmail_token_path"`
}

// ScoringConfig tunes the rule-based scorer
type ScoringConfig struct {
	Jitter float64 `koanf:"jitter" yaml:"jitter"` // amplitude; 0 disables
	Seed   uint64  `koanf:"seed" yaml:"seed"`
}

// AgentConfig paces batch comparisons
type AgentConfig struct {
	RequestDelay time.Duration `koanf:"request_delay" yaml:"request_delay"`
	MaxRetries   int           `koanf:"max_retries" yaml:"max_retries"`
	RetryBackoff time.Duration `koanf:"retry_backoff" yaml:"retry_backoff"`
}

// DefaultConfig returns a new config with default values
func DefaultConfig() *Config {
	return &Config{
		Addr:           ":3000",
		UploadsDir:     "uploads",
		MaxUploadBytes: 10 << 20,
		LogLevel:       "info",
		Fallback:       string(comparison.FallbackDisabled),
		LLM: LLMConfig{
			Provider:    llm.ProviderAICore,
			Model:       DefaultDeploymentID,
			ModelName:   "Claude 3.7 Sonnet",
			Temperature: llm.DefaultAICoreTemperature,
			MaxTokens:   llm.DefaultAICoreMaxTokens,
			MaxAttempts: 2,
			RetryDelay:  time.Second,
			Timeout:     300 * time.Second,
		},
		AICore: AICoreConfig{
			ResourceGroup: llm.DefaultAICoreResourceGroup,
			Timeout:       llm.DefaultAICoreTimeout,
		},
		Google: GoogleConfig{
			Location:       llm.DefaultVertexLocation,
			GmailTokenPath: "token.json",
		},
		Agent: AgentConfig{
			RequestDelay: 4 * time.Second,
			MaxRetries:   3,
			RetryBackoff: 10 * time.Second,
		},
	}
}

// GetConfigPath returns the path to the configuration file
// On Windows: %APPDATA%/DocCompareAgent/config.yaml
// On Unix: ~/.config/DocCompareAgent/config.yaml
func GetConfigPath() (string, error) {
	var configDir string

	if os.Getenv("APPDATA") != "" {
		configDir = filepath.Join(os.Getenv("APPDATA"), "DocCompareAgent")
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "DocCompareAgent")
	}

	return filepath.Join(configDir, "config.yaml"), nil
}

// Save saves the configuration to the default config path
func (c *Config) Save() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	return c.SaveTo(configPath)
}

// SaveTo saves the configuration to a specific path
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}

	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive")
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	if _, err := comparison.ParseFallbackPolicy(c.Fallback); err != nil {
		return err
	}

	if c.LLM.Temperature < 0 {
		return fmt.Errorf("llm.temperature must not be negative")
	}

	if c.Scoring.Jitter < 0 {
		return fmt.Errorf("scoring.jitter must not be negative")
	}

	if c.Agent.MaxRetries < 0 {
		return fmt.Errorf("agent.max_retries must not be negative")
	}

	switch c.LLM.Provider {
	case llm.ProviderAICore, "":
		if c.AICore.APIURL == "" || c.AICore.AuthURL == "" {
			return fmt.Errorf("aicore.api_url and aicore.auth_url are required")
		}
		if c.AICore.ClientID == "" || c.AICore.ClientSecret == "" {
			return fmt.Errorf("aicore.client_id and aicore.client_secret are required")
		}
	case llm.ProviderVertexAI:
		if c.Google.Project == "" {
			return fmt.Errorf("google.project is required")
		}
		if c.Google.Location == "" {
			return fmt.Errorf("google.location is required")
		}
	case llm.ProviderAnthropic, llm.ProviderOpenAI, llm.ProviderMock, llm.ProviderNone:
	default:
		return fmt.Errorf("unknown llm.provider %q", c.LLM.Provider)
	}

	if c.Google.CredentialsPath != "" {
		if _, err := os.Stat(c.Google.CredentialsPath); err != nil {
			return fmt.Errorf("google credentials file not found: %w", err)
		}
	}

	if c.Google.GmailCredentialsPath != "" {
		if _, err := os.Stat(c.Google.GmailCredentialsPath); err != nil {
			return fmt.Errorf("gmail credentials file not found: %w", err)
		}
	}

	if c.RubricPath != "" {
		if _, err := scoring.LoadRubric(c.RubricPath); err != nil {
			return err
		}
	}

	return nil
}

// ApplyToEnv applies configuration values to environment variables read by Google client libraries
func (c *Config) ApplyToEnv() {
	if c.Google.Project != "" {
		os.Setenv("GOOGLE_CLOUD_PROJECT", c.Google.Project)
	}
	if c.Google.Location != "" {
		os.Setenv("GOOGLE_CLOUD_LOCATION", c.Google.Location)
	}
	if c.Google.CredentialsPath != "" {
		os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", c.Google.CredentialsPath)
	}
}

// FallbackPolicy returns the parsed fallback policy
func (c *Config) FallbackPolicy() comparison.FallbackPolicy {
	p, err := comparison.ParseFallbackPolicy(c.Fallback)
	if err != nil {
		return comparison.FallbackDisabled
	}
	return p
}

// EffectiveModel returns the configured model. The default AI Core deployment ID is dropped
// for other providers so they fall back to their own default model.
func (c *Config) EffectiveModel() string {
	switch c.LLM.Provider {
	case llm.ProviderAICore, "":
		return c.LLM.Model
	}
	if c.LLM.Model == DefaultDeploymentID {
		return ""
	}
	return c.LLM.Model
}

// LLMOptions converts the config into provider construction options
func (c *Config) LLMOptions() llm.Options {
	return llm.Options{
		Provider: c.LLM.Provider,
		Model:    c.EffectiveModel(),
		AICore: llm.AICoreConfig{
			APIURL:        c.AICore.APIURL,
			AuthURL:       c.AICore.AuthURL,
			ClientID:      c.AICore.ClientID,
			ClientSecret:  c.AICore.ClientSecret,
			ResourceGroup: c.AICore.ResourceGroup,
			MaxTokens:     c.LLM.MaxTokens,
			Temperature:   llm.Float64(c.LLM.Temperature),
			Timeout:       c.AICore.Timeout,
		},
		VertexAI: llm.VertexAIConfig{
			ProjectID: c.Google.Project,
			Location:  c.Google.Location,
		},
		AnthropicAPIKey:  c.LLM.AnthropicAPIKey,
		AnthropicBaseURL: c.LLM.AnthropicBaseURL,
		OpenAIAPIKey:     c.LLM.OpenAIAPIKey,
		OpenAIBaseURL:    c.LLM.OpenAIBaseURL,
		Retry: llm.RetryConfig{
			MaxAttempts:  c.LLM.MaxAttempts,
			InitialDelay: c.LLM.RetryDelay,
			Timeout:      c.LLM.Timeout,
		},
	}
}

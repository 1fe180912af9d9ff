package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmuoria/doc-compare-agent/internal/comparison"
	"github.com/fmuoria/doc-compare-agent/internal/llm"
)

func validAICoreConfig() *Config {
	cfg := DefaultConfig()
	cfg.AICore.APIURL = "https://api.example"
	cfg.AICore.AuthURL = "https://auth.example"
	cfg.AICore.ClientID = "id"
	cfg.AICore.ClientSecret = "secret"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ":3000", cfg.Addr)
	assert.Equal(t, "uploads", cfg.UploadsDir)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, llm.ProviderAICore, cfg.LLM.Provider)
	assert.Equal(t, DefaultDeploymentID, cfg.LLM.Model)
	assert.Equal(t, comparison.FallbackDisabled, cfg.FallbackPolicy())
	assert.Equal(t, 4*time.Second, cfg.Agent.RequestDelay)
	assert.Zero(t, cfg.Scoring.Jitter)
}

func TestLoadFrom_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
addr: ":8080"
fallback: rule-based
llm:
  provider: mock
  retry_delay: 250ms
aicore:
  client_id: from-file
scoring:
  jitter: 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	t.Setenv("DOCCOMPARE_AICORE__CLIENT_ID", "from-env")
	t.Setenv("DOCCOMPARE_SCORING__SEED", "42")
	t.Setenv("DOCCOMPARE_LOG_LEVEL", "debug")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, comparison.FallbackRuleBased, cfg.FallbackPolicy())
	assert.Equal(t, llm.ProviderMock, cfg.LLM.Provider)
	assert.Equal(t, 250*time.Millisecond, cfg.LLM.RetryDelay)
	assert.Equal(t, "from-env", cfg.AICore.ClientID)
	assert.Equal(t, 5.0, cfg.Scoring.Jitter)
	assert.Equal(t, uint64(42), cfg.Scoring.Seed)
	assert.Equal(t, "debug", cfg.LogLevel)

	// untouched keys keep their defaults
	assert.Equal(t, "uploads", cfg.UploadsDir)
	assert.Equal(t, DefaultDeploymentID, cfg.LLM.Model)
	assert.Equal(t, llm.DefaultAICoreResourceGroup, cfg.AICore.ResourceGroup)
	assert.Equal(t, 3, cfg.Agent.MaxRetries)
}

func TestLoadFrom_MissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvConfigPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("uploads_dir: /tmp/docs\n"), 0600))
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/docs", cfg.UploadsDir)
}

func TestSaveTo_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := validAICoreConfig()
	cfg.Fallback = string(comparison.FallbackRuleBased)
	cfg.Agent.RetryBackoff = 15 * time.Second
	require.NoError(t, cfg.SaveTo(path))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid aicore", func(c *Config) {}, false},
		{"missing aicore secret", func(c *Config) { c.AICore.ClientSecret = "" }, true},
		{"missing aicore url", func(c *Config) { c.AICore.APIURL = "" }, true},
		{"vertex needs project", func(c *Config) { c.LLM.Provider = llm.ProviderVertexAI }, true},
		{"vertex with project", func(c *Config) { c.LLM.Provider = llm.ProviderVertexAI; c.Google.Project = "p" }, false},
		{"none provider", func(c *Config) { c.LLM.Provider = llm.ProviderNone; c.AICore = AICoreConfig{} }, false},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "llama" }, true},
		{"bad fallback", func(c *Config) { c.Fallback = "maybe" }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"negative jitter", func(c *Config) { c.Scoring.Jitter = -1 }, true},
		{"zero temperature", func(c *Config) { c.LLM.Temperature = 0 }, false},
		{"negative temperature", func(c *Config) { c.LLM.Temperature = -0.5 }, true},
		{"zero upload size", func(c *Config) { c.MaxUploadBytes = 0 }, true},
		{"empty addr", func(c *Config) { c.Addr = "" }, true},
		{"missing gmail credentials", func(c *Config) { c.Google.GmailCredentialsPath = "/nonexistent/credentials.json" }, true},
		{"missing rubric", func(c *Config) { c.RubricPath = "/nonexistent/rubric.yaml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validAICoreConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLLMOptions(t *testing.T) {
	cfg := validAICoreConfig()
	cfg.LLM.MaxAttempts = 4

	opts := cfg.LLMOptions()
	assert.Equal(t, llm.ProviderAICore, opts.Provider)
	assert.Equal(t, "id", opts.AICore.ClientID)
	assert.Equal(t, llm.DefaultAICoreMaxTokens, opts.AICore.MaxTokens)
	require.NotNil(t, opts.AICore.Temperature)
	assert.InDelta(t, llm.DefaultAICoreTemperature, *opts.AICore.Temperature, 1e-9)

	cfg.LLM.Temperature = 0
	require.NotNil(t, cfg.LLMOptions().AICore.Temperature)
	assert.Zero(t, *cfg.LLMOptions().AICore.Temperature)
	assert.Equal(t, 4, opts.Retry.MaxAttempts)
	assert.Equal(t, cfg.Google.Location, opts.VertexAI.Location)
}

func TestEffectiveModel(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultDeploymentID, cfg.EffectiveModel())

	cfg.LLM.Provider = llm.ProviderOpenAI
	assert.Empty(t, cfg.EffectiveModel())
	assert.Empty(t, cfg.LLMOptions().Model)

	cfg.LLM.Model = "gpt-4o"
	assert.Equal(t, "gpt-4o", cfg.EffectiveModel())
}

func TestApplyToEnv(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PROJECT", "")
	cfg := DefaultConfig()
	cfg.Google.Project = "my-project"
	cfg.ApplyToEnv()
	assert.Equal(t, "my-project", os.Getenv("GOOGLE_CLOUD_PROJECT"))
}

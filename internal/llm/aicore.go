package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// AnthropicBedrockVersion is the message format version expected by the AI Core invoke endpoint
	AnthropicBedrockVersion = "bedrock-2023-05-31"

	DefaultAICoreMaxTokens     = 4000
	DefaultAICoreTemperature   = 0.1
	DefaultAICoreTimeout       = 120 * time.Second
	DefaultAICoreResourceGroup = "default"

	// tokenEarlyExpiry refreshes the access token this long before it actually expires
	tokenEarlyExpiry = 5 * time.Minute

	maxErrorBody = 4096
)

// AICoreConfig holds the service key fields of an AI Core instance
type AICoreConfig struct {
	APIURL        string
	AuthURL       string
	ClientID      string
	ClientSecret  string
	ResourceGroup string
	MaxTokens     int
	Temperature   *float64 // nil or negative selects DefaultAICoreTemperature
	Timeout       time.Duration

	// Base transport, used for both the token and API requests. Defaults to http.DefaultTransport.
	Transport http.RoundTripper
}

// APIError is a non-2xx reply from AI Core
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ai core returned status %d: %s", e.StatusCode, e.Body)
}

// AICoreProvider invokes Anthropic models deployed on AI Core
type AICoreProvider struct {
	cfg    AICoreConfig
	apiURL string
	client *http.Client
}

type invokeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type invokeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	Temperature      float64         `json:"temperature"`
	Messages         []invokeMessage `json:"messages"`
}

type invokeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// NewAICoreProvider creates a provider authenticating with the OAuth2 client credentials grant.
// The access token is cached and reused until five minutes before it expires.
func NewAICoreProvider(cfg AICoreConfig) (*AICoreProvider, error) {
	if cfg.APIURL == "" || cfg.AuthURL == "" {
		return nil, fmt.Errorf("ai core api url and auth url are required")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("ai core client id and client secret are required")
	}
	if cfg.ResourceGroup == "" {
		cfg.ResourceGroup = DefaultAICoreResourceGroup
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultAICoreMaxTokens
	}
	if cfg.Temperature == nil || *cfg.Temperature < 0 {
		cfg.Temperature = Float64(DefaultAICoreTemperature)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultAICoreTimeout
	}
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     strings.TrimRight(cfg.AuthURL, "/") + "/oauth/token",
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{
		Timeout:   cfg.Timeout,
		Transport: base,
	})
	ts := oauth2.ReuseTokenSourceWithExpiry(nil, cc.TokenSource(tokenCtx), tokenEarlyExpiry)

	return &AICoreProvider{
		cfg:    cfg,
		apiURL: strings.TrimRight(cfg.APIURL, "/"),
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &oauth2.Transport{Source: ts, Base: base},
		},
	}, nil
}

func (p *AICoreProvider) Name() string { return "aicore" }

// Generate posts the prompt to the deployment named by settings.Model and returns the first text block
func (p *AICoreProvider) Generate(ctx context.Context, prompt string, s Settings) (string, error) {
	if s.Model == "" {
		return "", fmt.Errorf("ai core deployment id is required")
	}

	req := invokeRequest{
		AnthropicVersion: AnthropicBedrockVersion,
		MaxTokens:        p.cfg.MaxTokens,
		Temperature:      *p.cfg.Temperature,
		Messages:         []invokeMessage{{Role: "user", Content: joinPrompt(s.System, prompt)}},
	}
	if s.MaxTokens > 0 {
		req.MaxTokens = s.MaxTokens
	}
	if s.Temperature != nil && *s.Temperature >= 0 {
		req.Temperature = *s.Temperature
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode invoke request: %w", err)
	}

	url := fmt.Sprintf("%s/v2/inference/deployments/%s/invoke", p.apiURL, s.Model)
	var resp invokeResponse
	if err := p.do(ctx, http.MethodPost, url, bytes.NewReader(body), &resp); err != nil {
		return "", fmt.Errorf("failed to call AI model: %w", err)
	}

	for _, c := range resp.Content {
		if c.Text != "" {
			return c.Text, nil
		}
	}
	return "", fmt.Errorf("no response content")
}

// ListDeployments returns the deployments of the configured resource group
func (p *AICoreProvider) ListDeployments(ctx context.Context) (*DeploymentList, error) {
	var list DeploymentList
	if err := p.do(ctx, http.MethodGet, p.apiURL+"/v2/lm/deployments", nil, &list); err != nil {
		return nil, fmt.Errorf("failed to fetch AI Core deployments: %w", err)
	}
	return &list, nil
}

func (p *AICoreProvider) do(ctx context.Context, method, url string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("AI-Resource-Group", p.cfg.ResourceGroup)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

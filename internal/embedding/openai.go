package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	linkerrors "github.com/csplab/linkage/internal/errors"
)

const (
	// DefaultModel matches the 3072-wide vectors persisted by the ingestion pipeline
	DefaultModel = "text-embedding-3-large"

	// DefaultTimeoutSeconds bounds a single embeddings request
	DefaultTimeoutSeconds = 30

	providerName = "openai"
)

// ProviderConfig configures an OpenAI-compatible embeddings endpoint
// (OpenAI, OpenRouter, Albert, a local gateway...).
type ProviderConfig struct {
	APIKey         string `json:"api_key" toml:"api_key"`
	BaseURL        string `json:"base_url" toml:"base_url"`
	Model          string `json:"model" toml:"model"`
	TimeoutSeconds int    `json:"timeout_seconds" toml:"timeout_seconds"`
}

// Validate checks required fields and fills defaults
func (c *ProviderConfig) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return linkerrors.NewConfigError("embedding.api_key", "", fmt.Errorf("api key is required"))
	}
	if c.BaseURL == "" {
		return linkerrors.NewConfigError("embedding.base_url", "", fmt.Errorf("base url is required"))
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return linkerrors.NewConfigError("embedding.base_url", c.BaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return linkerrors.NewConfigError("embedding.base_url", c.BaseURL, fmt.Errorf("must be an absolute http(s) url"))
	}
	if c.TimeoutSeconds < 0 {
		return linkerrors.NewConfigError("embedding.timeout_seconds", fmt.Sprint(c.TimeoutSeconds), fmt.Errorf("must not be negative"))
	}

	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
	return nil
}

// OpenAIProvider calls POST {base_url}/embeddings
type OpenAIProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

type embeddingRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	EncodingFormat string `json:"encoding_format"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Model string `json:"model"`
}

// NewOpenAIProvider validates cfg and builds a provider
func NewOpenAIProvider(cfg ProviderConfig) (*OpenAIProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &OpenAIProvider{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	}, nil
}

// Model returns the embedding model name sent with each request
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Embed requests the embedding of a single text
func (p *OpenAIProvider) Embed(ctx context.Context, text string) (Vector, error) {
	if strings.TrimSpace(text) == "" {
		return nil, linkerrors.NewProviderError(providerName, "embed", fmt.Errorf("empty input text"))
	}

	body, err := json.Marshal(embeddingRequest{Model: p.model, Input: text, EncodingFormat: "float"})
	if err != nil {
		return nil, linkerrors.NewProviderError(providerName, "embed", fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, linkerrors.NewProviderError(providerName, "embed", fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, linkerrors.NewProviderError(providerName, "embed", fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, linkerrors.NewProviderError(providerName, "embed",
			fmt.Errorf("API error: %s", strings.TrimSpace(string(respBody)))).WithStatus(resp.StatusCode)
	}

	var result embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, linkerrors.NewProviderError(providerName, "embed",
			fmt.Errorf("failed to decode response: %w", err)).WithStatus(resp.StatusCode)
	}
	if len(result.Data) == 0 || len(result.Data[0].Embedding) == 0 {
		return nil, linkerrors.NewProviderError(providerName, "embed",
			fmt.Errorf("response contained no embedding")).WithStatus(resp.StatusCode)
	}

	return Vector(result.Data[0].Embedding), nil
}

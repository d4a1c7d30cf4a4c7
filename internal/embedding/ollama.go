package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultOllamaURL is the default Ollama API endpoint.
	DefaultOllamaURL = "http://localhost:11434"

	// DefaultOllamaModel is the default Ollama embedding model.
	DefaultOllamaModel = "nomic-embed-text"

	// DefaultTimeout bounds one HTTP round trip to the embedding backend.
	DefaultTimeout = 30 * time.Second

	apiPathTags  = "/api/tags"
	apiPathEmbed = "/api/embed"
)

// OllamaProvider embeds text with a local Ollama server. It is the offline
// alternative to OpenAIProvider and speaks the batch /api/embed endpoint.
type OllamaProvider struct {
	baseURL    string
	model      string
	dimensions int
	client     *http.Client
}

// OllamaOption configures an OllamaProvider.
type OllamaOption func(*OllamaProvider)

// WithBaseURL sets the Ollama API base URL.
func WithBaseURL(url string) OllamaOption {
	return func(p *OllamaProvider) {
		p.baseURL = url
	}
}

// WithModel sets the embedding model.
func WithModel(model string) OllamaOption {
	return func(p *OllamaProvider) {
		p.model = model
	}
}

// WithDimensions sets the expected vector dimensions. Zero skips the check.
func WithDimensions(dims int) OllamaOption {
	return func(p *OllamaProvider) {
		p.dimensions = dims
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) OllamaOption {
	return func(p *OllamaProvider) {
		p.client.Timeout = timeout
	}
}

// NewOllamaProvider creates a new Ollama embedding provider.
func NewOllamaProvider(opts ...OllamaOption) *OllamaProvider {
	p := &OllamaProvider{
		baseURL: DefaultOllamaURL,
		model:   DefaultOllamaModel,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// formatErrorBody reads at most 4KB of an error response for the message.
func formatErrorBody(body io.Reader) string {
	respBody, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return fmt.Sprintf("(failed to read response body: %v)", err)
	}
	return string(respBody)
}

// Embed generates embeddings for all texts in one /api/embed call.
func (p *OllamaProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(ollamaEmbedRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+apiPathEmbed, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Provider: "ollama", StatusCode: resp.StatusCode, Body: formatErrorBody(resp.Body)}
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(result.Embeddings), len(texts))
	}

	if p.dimensions > 0 {
		for _, v := range result.Embeddings {
			if len(v) != p.dimensions {
				return nil, fmt.Errorf("unexpected embedding dimensions: got %d, want %d", len(v), p.dimensions)
			}
		}
	}

	return result.Embeddings, nil
}

// ModelName returns the name of the embedding model.
func (p *OllamaProvider) ModelName() string {
	return p.model
}

// Dimensions returns the expected vector dimensions.
func (p *OllamaProvider) Dimensions() int {
	return p.dimensions
}

// listModels returns the tags of every model the server has pulled.
func (p *OllamaProvider) listModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+apiPathTags, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Provider: "ollama", StatusCode: resp.StatusCode}
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// IsAvailable reports an error when the Ollama server cannot be reached.
func (p *OllamaProvider) IsAvailable(ctx context.Context) error {
	if _, err := p.listModels(ctx); err != nil {
		return fmt.Errorf("ollama is not running: %w", err)
	}
	return nil
}

// HasModel reports whether the configured model has been pulled.
// Tags pulled without a version get a ":latest" suffix, so both forms match.
func (p *OllamaProvider) HasModel(ctx context.Context) (bool, error) {
	names, err := p.listModels(ctx)
	if err != nil {
		return false, fmt.Errorf("checking models: %w", err)
	}
	for _, name := range names {
		if name == p.model || name == p.model+":latest" {
			return true, nil
		}
	}
	return false, nil
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

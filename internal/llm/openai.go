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
)

const (
	// DefaultOpenAIURL is the default OpenAI API base URL.
	DefaultOpenAIURL = "https://api.openai.com/v1"

	// DefaultModel is the default chat model.
	DefaultModel = "gpt-4o-mini"

	// DefaultTimeout bounds a single completion request.
	DefaultTimeout = 60 * time.Second
)

// OpenAI generates text with the OpenAI chat completions API.
type OpenAI struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// OpenAIOption configures an OpenAI completer.
type OpenAIOption func(*OpenAI)

// WithBaseURL sets the API base URL (for compatible APIs and testing).
func WithBaseURL(url string) OpenAIOption {
	return func(o *OpenAI) {
		o.baseURL = url
	}
}

// WithModel sets the model used when a Request leaves Model empty.
func WithModel(model string) OpenAIOption {
	return func(o *OpenAI) {
		o.model = model
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) OpenAIOption {
	return func(o *OpenAI) {
		o.client.Timeout = timeout
	}
}

// NewOpenAI creates a chat completer.
func NewOpenAI(apiKey string, opts ...OpenAIOption) *OpenAI {
	o := &OpenAI{
		baseURL: DefaultOpenAIURL,
		apiKey:  apiKey,
		model:   DefaultModel,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Complete implements Completer.
func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = o.model
	}

	// Temperature is always sent: zero is a meaningful request, not "unset".
	body, err := json.Marshal(chatRequest{
		Model:       model,
		Temperature: req.Temperature,
		Messages:    req.Messages,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("openai returned status %d: %s", resp.StatusCode, string(msg))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := strings.TrimSpace(result.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// chatRequest is the OpenAI /chat/completions request format.
type chatRequest struct {
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	Messages    []Message `json:"messages"`
}

// chatResponse is the subset of the /chat/completions response we read.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

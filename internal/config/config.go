// Package config handles qarag configuration.
//
// Values are resolved in this order, later sources winning: built-in defaults,
// the YAML config file, then environment variables. The CLI loads a .env file
// into the environment before calling Load and applies flag overrides after.
package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Provider names accepted for embedding_provider and llm_provider.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderClaude = "claude"
	ProviderNone   = "none"
)

// Defaults mirror the values the service has always shipped with.
const (
	DefaultEmbedModel    = "text-embedding-3-small"
	DefaultChatModel     = "gpt-4o-mini"
	DefaultThreshold     = 0.78
	DefaultTopK          = 15
	DefaultBatchSize     = 100
	DefaultHost          = "0.0.0.0"
	DefaultCorpusPath    = "data/060kc_qa.jsonl"
	DefaultIndexPath     = "data/embeddings.json"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOllamaURL     = "http://localhost:11434"
	DefaultEmbedTimeout  = 30 * time.Second
	DefaultLLMTimeout    = 60 * time.Second
	DefaultMaxAttempts   = 5
	DefaultBaseDelay     = 300 * time.Millisecond
)

// DefaultAllowedOrigins are the browser origins allowed to call /ask.
var DefaultAllowedOrigins = []string{
	"http://localhost:8080",
	"http://127.0.0.1:8080",
	"http://localhost",
	"http://127.0.0.1",
	"https://www.060kc.com",
	"https://060kc.com",
}

// Errors returned by validation.
var (
	ErrMissingAPIKey = errors.New("OPENAI_API_KEY is not set")
	ErrMissingPort   = errors.New("PORT is not set")
)

// RetryConfig configures the embedding retry policy.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	Jitter      float64       `yaml:"jitter" json:"jitter"`
}

// Config is the effective qarag configuration.
type Config struct {
	OpenAIAPIKey  string `yaml:"openai_api_key,omitempty" json:"openai_api_key,omitempty"`
	OpenAIBaseURL string `yaml:"openai_base_url,omitempty" json:"openai_base_url,omitempty"`
	OllamaURL     string `yaml:"ollama_url,omitempty" json:"ollama_url,omitempty"`

	EmbeddingProvider string `yaml:"embedding_provider" json:"embedding_provider"`
	LLMProvider       string `yaml:"llm_provider" json:"llm_provider"`
	EmbedModel        string `yaml:"embed_model" json:"embed_model"`
	ChatModel         string `yaml:"chat_model" json:"chat_model"`

	Threshold float64 `yaml:"threshold" json:"threshold"`
	TopK      int     `yaml:"top_k" json:"top_k"`
	BatchSize int     `yaml:"batch_size" json:"batch_size"`

	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`

	CorpusPath string `yaml:"corpus_path" json:"corpus_path"`
	IndexPath  string `yaml:"index_path" json:"index_path"`
	AskLogPath string `yaml:"ask_log_path,omitempty" json:"ask_log_path,omitempty"`

	EmbedTimeout time.Duration `yaml:"embed_timeout" json:"embed_timeout"`
	LLMTimeout   time.Duration `yaml:"llm_timeout" json:"llm_timeout"`
	RateLimit    float64       `yaml:"rate_limit" json:"rate_limit"` // embedding requests per second, 0 = unlimited
	Retry        RetryConfig   `yaml:"retry" json:"retry"`

	AllowedOrigins    []string `yaml:"allowed_origins,omitempty" json:"allowed_origins,omitempty"`
	DisableIndexWatch bool     `yaml:"disable_index_watch" json:"disable_index_watch"`
}

// Defaults returns a Config populated with built-in defaults.
func Defaults() *Config {
	return &Config{
		OpenAIBaseURL:     DefaultOpenAIBaseURL,
		OllamaURL:         DefaultOllamaURL,
		EmbeddingProvider: ProviderOpenAI,
		LLMProvider:       ProviderOpenAI,
		EmbedModel:        DefaultEmbedModel,
		ChatModel:         DefaultChatModel,
		Threshold:         DefaultThreshold,
		TopK:              DefaultTopK,
		BatchSize:         DefaultBatchSize,
		Host:              DefaultHost,
		CorpusPath:        DefaultCorpusPath,
		IndexPath:         DefaultIndexPath,
		EmbedTimeout:      DefaultEmbedTimeout,
		LLMTimeout:        DefaultLLMTimeout,
		Retry: RetryConfig{
			MaxAttempts: DefaultMaxAttempts,
			BaseDelay:   DefaultBaseDelay,
		},
		AllowedOrigins: append([]string(nil), DefaultAllowedOrigins...),
	}
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str("OPENAI_API_KEY", &c.OpenAIAPIKey)
	str("OPENAI_BASE_URL", &c.OpenAIBaseURL)
	str("OLLAMA_URL", &c.OllamaURL)
	str("EMBEDDING_PROVIDER", &c.EmbeddingProvider)
	str("LLM_PROVIDER", &c.LLMProvider)
	str("EMBED_MODEL", &c.EmbedModel)
	str("CHAT_MODEL", &c.ChatModel)
	str("HOST", &c.Host)
	str("QA_PATH", &c.CorpusPath)
	str("INDEX_PATH", &c.IndexPath)
	str("ASK_LOG_PATH", &c.AskLogPath)

	if v, ok := lookup("THRESHOLD"); ok && strings.TrimSpace(v) != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("parsing THRESHOLD %q: %w", v, err)
		}
		c.Threshold = f
	}
	if v, ok := lookup("PORT"); ok && strings.TrimSpace(v) != "" {
		p, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("parsing PORT %q: %w", v, err)
		}
		c.Port = p
	}
	if v, ok := lookup("ALLOWED_ORIGINS"); ok && strings.TrimSpace(v) != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.AllowedOrigins = origins
	}
	return nil
}

// Validate checks values that are wrong regardless of the command being run.
func (c *Config) Validate() error {
	switch c.EmbeddingProvider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("invalid embedding_provider: %q (valid: openai, ollama)", c.EmbeddingProvider)
	}
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderClaude, ProviderNone:
	default:
		return fmt.Errorf("invalid llm_provider: %q (valid: openai, claude, none)", c.LLMProvider)
	}
	if math.IsNaN(c.Threshold) || math.IsInf(c.Threshold, 0) {
		return fmt.Errorf("threshold must be a finite number, got %v", c.Threshold)
	}
	if c.TopK < 1 {
		return fmt.Errorf("top_k must be positive, got %d", c.TopK)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be positive, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.Jitter < 0 || c.Retry.Jitter > 1 {
		return fmt.Errorf("retry.jitter must be within [0, 1], got %v", c.Retry.Jitter)
	}
	return nil
}

// ValidateBuild checks the settings required by the offline index build.
func (c *Config) ValidateBuild() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.EmbeddingProvider == ProviderOpenAI && c.OpenAIAPIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// ValidateQuery checks the settings required to answer a question.
func (c *Config) ValidateQuery() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.usesOpenAI() && c.OpenAIAPIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// ValidateServe checks the settings required by the serving path.
// A missing credential or port is fatal at startup.
func (c *Config) ValidateServe() error {
	if err := c.ValidateQuery(); err != nil {
		return err
	}
	if c.Port == 0 {
		return ErrMissingPort
	}
	return nil
}

func (c *Config) usesOpenAI() bool {
	return c.EmbeddingProvider == ProviderOpenAI || c.LLMProvider == ProviderOpenAI
}

// Addr returns the host:port the server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Redacted returns a copy safe to print, with the API key masked.
func (c *Config) Redacted() Config {
	out := *c
	out.AllowedOrigins = append([]string(nil), c.AllowedOrigins...)
	if out.OpenAIAPIKey != "" {
		out.OpenAIAPIKey = redact(out.OpenAIAPIKey)
	}
	return out
}

func redact(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:3] + "..." + key[len(key)-4:]
}

package main

import (
	"context"

	"github.com/matsen/qarag/internal/answer"
	"github.com/matsen/qarag/internal/config"
	"github.com/matsen/qarag/internal/embedding"
	"github.com/matsen/qarag/internal/llm"
	"github.com/matsen/qarag/internal/qa"
	"github.com/matsen/qarag/internal/query"
	"github.com/matsen/qarag/internal/semantic"
)

// newEmbeddingProvider returns the configured embedding backend.
func newEmbeddingProvider(c *config.Config) embedding.Provider {
	if c.EmbeddingProvider == config.ProviderOllama {
		model := c.EmbedModel
		if model == config.DefaultEmbedModel {
			model = embedding.DefaultOllamaModel
		}
		return embedding.NewOllamaProvider(
			embedding.WithBaseURL(c.OllamaURL),
			embedding.WithModel(model),
			embedding.WithTimeout(c.EmbedTimeout),
		)
	}
	return embedding.NewOpenAIProvider(c.OpenAIAPIKey,
		embedding.WithOpenAIBaseURL(c.OpenAIBaseURL),
		embedding.WithOpenAIModel(c.EmbedModel),
		embedding.WithOpenAITimeout(c.EmbedTimeout),
		embedding.WithRateLimit(c.RateLimit),
	)
}

// newEmbeddingClient wraps the provider with the configured retry policy.
func newEmbeddingClient(c *config.Config, provider embedding.Provider) *embedding.Client {
	return embedding.NewClient(provider,
		embedding.WithRetryPolicy(embedding.RetryPolicy{
			MaxAttempts: c.Retry.MaxAttempts,
			BaseDelay:   c.Retry.BaseDelay,
			Jitter:      c.Retry.Jitter,
		}),
		embedding.WithAttemptTimeout(c.EmbedTimeout),
	)
}

// newCompleter returns the configured text-generation backend.
func newCompleter(c *config.Config) llm.Completer {
	switch c.LLMProvider {
	case config.ProviderClaude:
		cli := llm.NewClaudeCLI("")
		cli.Timeout = c.LLMTimeout
		return cli
	case config.ProviderNone:
		return llm.Disabled
	default:
		return llm.NewOpenAI(c.OpenAIAPIKey,
			llm.WithBaseURL(c.OpenAIBaseURL),
			llm.WithModel(c.ChatModel),
			llm.WithTimeout(c.LLMTimeout),
		)
	}
}

// newAsker assembles the online pipeline over store.
func newAsker(c *config.Config, store *semantic.Store, client *embedding.Client, recorder qa.AskRecorder) *qa.Asker {
	completer := newCompleter(c)
	opts := []qa.Option{
		qa.WithNormalizer(query.NewNormalizer(completer, c.ChatModel)),
		qa.WithResolver(answer.NewResolver(answer.NewRewriter(completer, c.ChatModel))),
		qa.WithTopK(c.TopK),
		qa.WithThreshold(c.Threshold),
	}
	if recorder != nil {
		opts = append(opts, qa.WithRecorder(recorder))
	}
	return qa.NewAsker(store, client, opts...)
}

// mustValidateOllama checks that Ollama is running and has the embedding model.
func mustValidateOllama(ctx context.Context, provider embedding.Provider) {
	ollama, ok := provider.(*embedding.OllamaProvider)
	if !ok {
		return
	}
	if err := ollama.IsAvailable(ctx); err != nil {
		exitWithError(ExitEmbeddingError, "Ollama is not running\n\nStart Ollama with 'ollama serve' or install from https://ollama.ai")
	}
	hasModel, err := ollama.HasModel(ctx)
	if err != nil {
		exitWithError(ExitError, "checking model availability: %v", err)
	}
	if !hasModel {
		exitWithError(ExitEmbeddingError, "embedding model %q not found\n\nRun 'ollama pull %s' to download it.", ollama.ModelName(), ollama.ModelName())
	}
}

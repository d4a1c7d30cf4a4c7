package main

import (
	"errors"

	"github.com/matsen/qarag/internal/config"
	"github.com/matsen/qarag/internal/embedding"
	"github.com/matsen/qarag/internal/semantic"
)

const (
	ExitSuccess        = 0 // Success
	ExitError          = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError    = 2 // Configuration error (missing key or port, bad config file)
	ExitDataError      = 3 // Data error (missing or empty corpus)
	ExitEmbeddingError = 4 // Embedding service failed after retries or is unreachable
	ExitIndexNotFound  = 5 // Index artifact not found
)

// exitCodeFor maps a pipeline error to the exit code reported for it.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, config.ErrMissingAPIKey), errors.Is(err, config.ErrMissingPort),
		embedding.IsAuthError(err):
		return ExitConfigError
	case errors.Is(err, semantic.ErrEmptyCorpus):
		return ExitDataError
	case errors.Is(err, embedding.ErrEmbeddingService):
		return ExitEmbeddingError
	case errors.Is(err, semantic.ErrIndexNotFound):
		return ExitIndexNotFound
	default:
		return ExitError
	}
}

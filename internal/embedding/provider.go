package embedding

import "context"

// Provider generates embeddings from text.
type Provider interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// ModelName returns the name of the embedding model.
	ModelName() string

	// Dimensions returns the expected vector dimensions, or 0 if unknown.
	Dimensions() int
}

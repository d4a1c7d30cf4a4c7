package semantic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matsen/qarag/internal/corpus"
	"github.com/matsen/qarag/internal/logger"
)

// DefaultBatchSize is the number of texts sent per embedding request.
const DefaultBatchSize = 100

// ErrEmptyCorpus is returned when no record normalizes to a QA pair.
var ErrEmptyCorpus = errors.New("corpus has no valid QA pairs")

// Embedder turns a batch of texts into vectors, one per text, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

// ProgressReporter receives progress updates during index building.
type ProgressReporter interface {
	// OnProgress is called with the current progress.
	OnProgress(current, total int)
}

// ProgressFunc is a function adapter for ProgressReporter.
type ProgressFunc func(current, total int)

// OnProgress implements ProgressReporter.
func (f ProgressFunc) OnProgress(current, total int) {
	f(current, total)
}

// Builder constructs an index from corpus records.
type Builder struct {
	embedder  Embedder
	batchSize int
	progress  ProgressReporter
}

// NewBuilder creates a new index builder.
func NewBuilder(embedder Embedder) *Builder {
	return &Builder{
		embedder:  embedder,
		batchSize: DefaultBatchSize,
	}
}

// SetBatchSize overrides the chunk size. Values below 1 are ignored.
func (b *Builder) SetBatchSize(n int) {
	if n > 0 {
		b.batchSize = n
	}
}

// SetProgressReporter sets the progress reporter for the builder.
func (b *Builder) SetProgressReporter(reporter ProgressReporter) {
	b.progress = reporter
}

// Build normalizes records and embeds each question in sequential chunks.
// Malformed records are skipped and reported in BuildStats.Diagnostics.
// Any embedding failure aborts the build; nothing is returned in that case.
func (b *Builder) Build(ctx context.Context, records []corpus.RawRecord) (*Index, *BuildStats, error) {
	startTime := time.Now()

	pairs, bad := corpus.Normalize(records)
	stats := &BuildStats{
		Records: len(records),
		Skipped: len(bad),
		Model:   b.embedder.ModelName(),
	}
	for _, e := range bad {
		stats.Diagnostics = append(stats.Diagnostics, e.Error())
		logger.Warn("%s", e.Error())
	}

	if len(pairs) == 0 {
		return nil, stats, ErrEmptyCorpus
	}

	entries := make([]Entry, 0, len(pairs))
	total := len(pairs)

	for start := 0; start < total; start += b.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		end := min(start+b.batchSize, total)
		chunk := pairs[start:end]

		texts := make([]string, len(chunk))
		for i, p := range chunk {
			texts[i] = p.Question
		}

		vecs, err := b.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, nil, fmt.Errorf("embedding records %d-%d: %w", start+1, end, err)
		}
		if len(vecs) != len(chunk) {
			return nil, nil, fmt.Errorf("embedding records %d-%d: got %d vectors for %d texts",
				start+1, end, len(vecs), len(chunk))
		}

		for i, p := range chunk {
			if want := stats.Dimensions; want == 0 {
				stats.Dimensions = len(vecs[i])
			} else if len(vecs[i]) != want {
				return nil, nil, &DimensionMismatchError{Got: len(vecs[i]), Want: want}
			}
			entries = append(entries, Entry{
				Question:  p.Question,
				Answer:    p.Answer,
				Embedding: vecs[i],
			})
		}

		stats.Chunks++
		logger.Debug("embedded %d/%d", end, total)
		if b.progress != nil {
			b.progress.OnProgress(end, total)
		}
	}

	stats.Indexed = len(entries)
	stats.Duration = time.Since(startTime)

	return NewIndex(entries), stats, nil
}

// Package qa runs the online question-answering pipeline.
package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matsen/qarag/internal/answer"
	"github.com/matsen/qarag/internal/logger"
	"github.com/matsen/qarag/internal/query"
	"github.com/matsen/qarag/internal/semantic"
	"github.com/matsen/qarag/internal/storage"
)

// DefaultTopK is the number of hits returned with each answer.
const DefaultTopK = 15

// DefaultThreshold is the minimum top score for disclosing an answer.
const DefaultThreshold = 0.78

// ErrQuestionRequired is returned for a blank question.
var ErrQuestionRequired = errors.New("question required")

// QueryEmbedder embeds a single query.
type QueryEmbedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// AskRecorder receives every resolved ask.
type AskRecorder interface {
	RecordAsk(rec storage.AskRecord) error
}

// Request is one question.
type Request struct {
	Question  string `json:"question"`
	Rewrite   bool   `json:"rewrite,omitempty"`
	RequestID string `json:"-"`
}

// Response is the answer with the hits it was drawn from.
type Response struct {
	Answer     string         `json:"answer"`
	Hits       []semantic.Hit `json:"hits"`
	BestScore  float64        `json:"bestScore"`
	Found      bool           `json:"found"`
	Normalized string         `json:"normalized,omitempty"`
}

// Asker answers questions against the current index snapshot.
type Asker struct {
	store      *semantic.Store
	embedder   QueryEmbedder
	normalizer *query.Normalizer
	resolver   *answer.Resolver
	recorder   AskRecorder
	topK       int
	threshold  float64
}

// Option configures an Asker.
type Option func(*Asker)

// WithNormalizer sets the query normalizer. Without one, questions are
// embedded as typed.
func WithNormalizer(n *query.Normalizer) Option {
	return func(a *Asker) {
		a.normalizer = n
	}
}

// WithResolver sets the answer resolver.
func WithResolver(r *answer.Resolver) Option {
	return func(a *Asker) {
		a.resolver = r
	}
}

// WithRecorder sets the ask log.
func WithRecorder(r AskRecorder) Option {
	return func(a *Asker) {
		a.recorder = r
	}
}

// WithTopK sets how many hits are returned.
func WithTopK(k int) Option {
	return func(a *Asker) {
		a.topK = k
	}
}

// WithThreshold sets the disclosure threshold.
func WithThreshold(t float64) Option {
	return func(a *Asker) {
		a.threshold = t
	}
}

// NewAsker creates an Asker reading from store.
func NewAsker(store *semantic.Store, embedder QueryEmbedder, opts ...Option) *Asker {
	a := &Asker{
		store:     store,
		embedder:  embedder,
		resolver:  answer.NewResolver(nil),
		topK:      DefaultTopK,
		threshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Threshold returns the configured disclosure threshold.
func (a *Asker) Threshold() float64 {
	return a.threshold
}

// Ask answers one question. An empty index yields the fallback answer
// without contacting any external service.
func (a *Asker) Ask(ctx context.Context, req Request) (*Response, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrQuestionRequired
	}

	idx := a.store.Current()
	if idx.Len() == 0 {
		logger.Debug("index empty, returning fallback")
		return &Response{Answer: answer.FallbackText, Hits: []semantic.Hit{}}, nil
	}

	normalized := question
	if a.normalizer != nil {
		normalized = a.normalizer.Normalize(ctx, question)
	}

	vec, err := a.embedder.EmbedOne(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	hits, err := semantic.Retrieve(vec, idx, a.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieving: %w", err)
	}

	res := a.resolver.Resolve(ctx, hits, a.threshold, req.Rewrite)
	logger.Debug("ask resolved: found=%v best=%.4f hits=%d", res.Found, res.BestScore, len(hits))

	resp := &Response{
		Answer:    res.Answer,
		Hits:      hits,
		BestScore: res.BestScore,
		Found:     res.Found,
	}
	if normalized != question {
		resp.Normalized = normalized
	}

	a.record(req, question, resp)
	return resp, nil
}

func (a *Asker) record(req Request, question string, resp *Response) {
	if a.recorder == nil {
		return
	}
	err := a.recorder.RecordAsk(storage.AskRecord{
		RequestID:  req.RequestID,
		AskedAt:    time.Now(),
		Question:   question,
		Normalized: resp.Normalized,
		BestScore:  resp.BestScore,
		Found:      resp.Found,
		Rewrite:    req.Rewrite,
	})
	if err != nil {
		logger.Warn("recording ask: %v", err)
	}
}

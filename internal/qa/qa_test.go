package qa

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/qarag/internal/answer"
	"github.com/matsen/qarag/internal/embedding"
	"github.com/matsen/qarag/internal/llm"
	"github.com/matsen/qarag/internal/query"
	"github.com/matsen/qarag/internal/semantic"
	"github.com/matsen/qarag/internal/storage"
)

type fakeEmbedder struct {
	vec   []float32
	err   error
	calls int
	texts []string
}

func (f *fakeEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	f.texts = append(f.texts, text)
	return f.vec, f.err
}

type fakeRecorder struct {
	records []storage.AskRecord
	err     error
}

func (f *fakeRecorder) RecordAsk(rec storage.AskRecord) error {
	f.records = append(f.records, rec)
	return f.err
}

func axisStore() *semantic.Store {
	s := semantic.NewStore()
	s.Swap(semantic.NewIndex([]semantic.Entry{
		{Question: "x", Answer: "A1", Embedding: []float32{1, 0}},
		{Question: "y", Answer: "A2", Embedding: []float32{0, 1}},
	}))
	return s
}

func TestAsk_EndToEnd(t *testing.T) {
	emb := &fakeEmbedder{vec: []float32{0.9, 0.1}}
	a := NewAsker(axisStore(), emb, WithThreshold(0.78))

	resp, err := a.Ask(context.Background(), Request{Question: "무엇?"})
	require.NoError(t, err)

	assert.True(t, resp.Found)
	assert.Equal(t, "A1", resp.Answer)
	assert.InDelta(t, 0.994, resp.BestScore, 1e-3)
	require.Len(t, resp.Hits, 2)
	assert.Equal(t, "A1", resp.Hits[0].Answer)
	assert.Empty(t, resp.Normalized)
}

func TestAsk_BelowThreshold(t *testing.T) {
	emb := &fakeEmbedder{vec: []float32{0.6, 0.4}}
	a := NewAsker(axisStore(), emb, WithThreshold(0.9))

	resp, err := a.Ask(context.Background(), Request{Question: "q"})
	require.NoError(t, err)
	assert.False(t, resp.Found)
	assert.Equal(t, answer.FallbackText, resp.Answer)
	assert.Len(t, resp.Hits, 2, "hits are returned even when the answer is withheld")
	assert.Less(t, resp.BestScore, 0.9)
}

func TestAsk_BlankQuestion(t *testing.T) {
	emb := &fakeEmbedder{}
	a := NewAsker(axisStore(), emb)

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := a.Ask(context.Background(), Request{Question: q})
		assert.ErrorIs(t, err, ErrQuestionRequired)
	}
	assert.Zero(t, emb.calls)
}

func TestAsk_EmptyIndex(t *testing.T) {
	emb := &fakeEmbedder{vec: []float32{1, 0}}
	normalizerCalls := 0
	n := query.NewNormalizer(llm.CompleterFunc(func(ctx context.Context, req llm.Request) (string, error) {
		normalizerCalls++
		return "x", nil
	}), "")
	a := NewAsker(semantic.NewStore(), emb, WithNormalizer(n))

	resp, err := a.Ask(context.Background(), Request{Question: "anything"})
	require.NoError(t, err)
	assert.Equal(t, answer.FallbackText, resp.Answer)
	assert.False(t, resp.Found)
	assert.Zero(t, resp.BestScore)
	assert.NotNil(t, resp.Hits)
	assert.Empty(t, resp.Hits)
	assert.Zero(t, emb.calls, "embedder must not be called for an empty index")
	assert.Zero(t, normalizerCalls)
}

func TestAsk_UsesNormalizedQuery(t *testing.T) {
	emb := &fakeEmbedder{vec: []float32{1, 0}}
	n := query.NewNormalizer(llm.CompleterFunc(func(ctx context.Context, req llm.Request) (string, error) {
		return "정규화된 쿼리", nil
	}), "")
	a := NewAsker(axisStore(), emb, WithNormalizer(n))

	resp, err := a.Ask(context.Background(), Request{Question: "  원래 질문 "})
	require.NoError(t, err)
	assert.Equal(t, []string{"정규화된 쿼리"}, emb.texts)
	assert.Equal(t, "정규화된 쿼리", resp.Normalized)
}

func TestAsk_NormalizerFailureUsesOriginal(t *testing.T) {
	emb := &fakeEmbedder{vec: []float32{1, 0}}
	a := NewAsker(axisStore(), emb, WithNormalizer(query.NewNormalizer(llm.Disabled, "")))

	resp, err := a.Ask(context.Background(), Request{Question: "원래 질문"})
	require.NoError(t, err)
	assert.Equal(t, []string{"원래 질문"}, emb.texts)
	assert.Empty(t, resp.Normalized)
}

func TestAsk_EmbeddingErrorPropagates(t *testing.T) {
	svcErr := &embedding.ServiceError{Attempts: 5, Err: errors.New("503")}
	a := NewAsker(axisStore(), &fakeEmbedder{err: svcErr})

	_, err := a.Ask(context.Background(), Request{Question: "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, embedding.ErrEmbeddingService)
}

func TestAsk_DimensionMismatchPropagates(t *testing.T) {
	a := NewAsker(axisStore(), &fakeEmbedder{vec: []float32{1, 0, 0}})

	_, err := a.Ask(context.Background(), Request{Question: "q"})
	assert.ErrorIs(t, err, semantic.ErrDimensionMismatch)
}

func TestAsk_TopK(t *testing.T) {
	entries := make([]semantic.Entry, 30)
	for i := range entries {
		entries[i] = semantic.Entry{Answer: "a", Embedding: []float32{1, float32(i)}}
	}
	s := semantic.NewStore()
	s.Swap(semantic.NewIndex(entries))

	resp, err := NewAsker(s, &fakeEmbedder{vec: []float32{1, 0}}).Ask(context.Background(), Request{Question: "q"})
	require.NoError(t, err)
	assert.Len(t, resp.Hits, DefaultTopK)

	resp, err = NewAsker(s, &fakeEmbedder{vec: []float32{1, 0}}, WithTopK(3)).Ask(context.Background(), Request{Question: "q"})
	require.NoError(t, err)
	assert.Len(t, resp.Hits, 3)
}

func TestAsk_RewriteRequested(t *testing.T) {
	c := llm.CompleterFunc(func(ctx context.Context, req llm.Request) (string, error) {
		return "답변: 다듬은 답", nil
	})
	a := NewAsker(axisStore(), &fakeEmbedder{vec: []float32{1, 0}},
		WithResolver(answer.NewResolver(answer.NewRewriter(c, ""))))

	resp, err := a.Ask(context.Background(), Request{Question: "q", Rewrite: true})
	require.NoError(t, err)
	assert.Equal(t, "다듬은 답", resp.Answer)

	resp, err = a.Ask(context.Background(), Request{Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, "A1", resp.Answer)
}

func TestAsk_RecordsAsks(t *testing.T) {
	rec := &fakeRecorder{}
	a := NewAsker(axisStore(), &fakeEmbedder{vec: []float32{0, 1}}, WithRecorder(rec), WithThreshold(0.99))

	_, err := a.Ask(context.Background(), Request{Question: " q1 ", Rewrite: true, RequestID: "req-1"})
	require.NoError(t, err)

	require.Len(t, rec.records, 1)
	got := rec.records[0]
	assert.Equal(t, "q1", got.Question)
	assert.Equal(t, "req-1", got.RequestID)
	assert.True(t, got.Found)
	assert.True(t, got.Rewrite)
	assert.False(t, got.AskedAt.IsZero())
}

func TestAsk_RecorderFailureIgnored(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("disk full")}
	a := NewAsker(axisStore(), &fakeEmbedder{vec: []float32{1, 0}}, WithRecorder(rec))

	resp, err := a.Ask(context.Background(), Request{Question: "q"})
	require.NoError(t, err)
	assert.True(t, resp.Found)
}

func TestAsk_SeesSwappedSnapshot(t *testing.T) {
	s := semantic.NewStore()
	emb := &fakeEmbedder{vec: []float32{1, 0}}
	a := NewAsker(s, emb)

	resp, err := a.Ask(context.Background(), Request{Question: "q"})
	require.NoError(t, err)
	assert.False(t, resp.Found)

	s.Swap(semantic.NewIndex([]semantic.Entry{{Answer: "now indexed", Embedding: []float32{1, 0}}}))
	resp, err = a.Ask(context.Background(), Request{Question: "q"})
	require.NoError(t, err)
	assert.True(t, resp.Found)
	assert.Equal(t, "now indexed", resp.Answer)
}

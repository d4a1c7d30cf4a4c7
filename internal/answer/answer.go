// Package answer turns retrieval hits into the text returned to the user.
package answer

import (
	"context"
	"errors"
	"strings"

	"github.com/matsen/qarag/internal/llm"
	"github.com/matsen/qarag/internal/logger"
	"github.com/matsen/qarag/internal/semantic"
)

// FallbackText is returned when no stored answer is close enough.
const FallbackText = "자료에 없음"

// RewriteTemperature keeps rewrites close to the stored wording.
const RewriteTemperature = 0.1

// RewriteInstruction limits the model to the answer body.
const RewriteInstruction = "너는 060KC Q&A 전용 상담봇이다. 반드시 '답변 본문'만 출력해. " +
	"'질문:' '답변:' 같은 접두어/설명, 인사말, 새로운 사실 모두 금지."

// Result is the resolved answer.
type Result struct {
	Answer    string  `json:"answer"`
	Found     bool    `json:"found"`
	BestScore float64 `json:"bestScore"`
}

// Rewriter polishes an answer with a text-generation backend.
type Rewriter struct {
	completer llm.Completer
	model     string
}

// NewRewriter creates a rewriter. A nil completer makes Rewrite a no-op.
func NewRewriter(completer llm.Completer, model string) *Rewriter {
	return &Rewriter{completer: completer, model: model}
}

// Rewrite returns the polished answer, or answer unchanged on any failure.
func (r *Rewriter) Rewrite(ctx context.Context, answer string) string {
	if r == nil || r.completer == nil {
		return answer
	}

	out, err := r.completer.Complete(ctx, llm.Request{
		Model:       r.model,
		Temperature: RewriteTemperature,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: RewriteInstruction},
			{Role: llm.RoleUser, Content: "다듬을 답변:\n" + answer + "\n\n출력은 답변 문장만."},
		},
	})
	if err == nil && strings.TrimSpace(out) == "" {
		err = errors.New("empty rewrite")
	}
	if err != nil {
		logger.Debug("answer rewrite fell back to stored text: %v", err)
		return answer
	}
	return out
}

// Resolver applies the confidence gate and cleans the winning answer.
type Resolver struct {
	rewriter *Rewriter
}

// NewResolver creates a resolver. rewriter may be nil.
func NewResolver(rewriter *Rewriter) *Resolver {
	return &Resolver{rewriter: rewriter}
}

// Resolve gates on the top hit's score. Below threshold, or with no hits,
// it returns FallbackText and never calls the rewriter.
func (r *Resolver) Resolve(ctx context.Context, hits []semantic.Hit, threshold float64, rewrite bool) Result {
	if len(hits) == 0 {
		return Result{Answer: FallbackText}
	}

	top := hits[0]
	if top.Score < threshold {
		return Result{Answer: FallbackText, BestScore: top.Score}
	}

	// A stored answer that is nothing but labels has no content to serve.
	text := StripLabels(top.Answer)
	if text == "" {
		return Result{Answer: FallbackText, BestScore: top.Score}
	}
	if rewrite {
		if polished := StripLabels(r.rewriter.Rewrite(ctx, text)); polished != "" {
			text = polished
		}
	}

	return Result{Answer: text, Found: true, BestScore: top.Score}
}

// Package query rewrites user questions into search-friendly queries.
package query

import (
	"context"
	"errors"
	"strings"

	"github.com/matsen/qarag/internal/llm"
	"github.com/matsen/qarag/internal/logger"
)

// Instruction asks for a single meaning-preserving search line.
const Instruction = "아래 한국어 질문을 검색에 적합한 한 줄 쿼리로 바꿔줘. " +
	"의미 보존, 동의어/약어 풀어쓰기, 불필요한 말 삭제. 출력은 한 줄 쿼리만."

var errEmptyRewrite = errors.New("empty rewrite")

// Normalizer rewrites queries with a text-generation backend.
type Normalizer struct {
	completer llm.Completer
	model     string
}

// NewNormalizer creates a normalizer. A nil completer disables rewriting.
func NewNormalizer(completer llm.Completer, model string) *Normalizer {
	return &Normalizer{completer: completer, model: model}
}

// Normalize returns a rewritten query, or q unchanged when rewriting fails
// for any reason. It never returns an error.
func (n *Normalizer) Normalize(ctx context.Context, q string) string {
	out, err := n.attempt(ctx, q)
	if err != nil {
		logger.Debug("query normalize fell back to original: %v", err)
		return q
	}
	return out
}

func (n *Normalizer) attempt(ctx context.Context, q string) (string, error) {
	if n == nil || n.completer == nil {
		return "", errors.New("no completer configured")
	}

	out, err := n.completer.Complete(ctx, llm.Request{
		Model:       n.model,
		Temperature: 0,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: Instruction},
			{Role: llm.RoleUser, Content: q},
		},
	})
	if err != nil {
		return "", err
	}

	line := firstLine(out)
	if line == "" {
		return "", errEmptyRewrite
	}
	return line, nil
}

// firstLine returns the first non-blank line of s, trimmed.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// Package llm provides the text-generation capability used to rewrite
// queries and answers.
package llm

import (
	"context"
	"errors"
	"strings"
)

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyCompletion is returned when the model produced no text.
var ErrEmptyCompletion = errors.New("empty completion")

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single completion call.
type Request struct {
	Model       string
	Temperature float64
	Messages    []Message
}

// Completer generates text for a chat request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

// Complete implements Completer.
func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// ErrDisabled is returned by Disabled.
var ErrDisabled = errors.New("text generation disabled")

// Disabled is a Completer that always fails, so every caller takes its
// fallback branch. Used when llm_provider is "none".
var Disabled Completer = disabled{}

type disabled struct{}

func (disabled) Complete(context.Context, Request) (string, error) {
	return "", ErrDisabled
}

// flattenPrompt renders chat messages as one prompt for backends without a
// chat format.
func flattenPrompt(msgs []Message) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch m.Role {
		case RoleSystem:
			b.WriteString("Instructions:\n")
		case RoleAssistant:
			b.WriteString("Assistant:\n")
		default:
			b.WriteString("Input:\n")
		}
		b.WriteString(m.Content)
	}
	return b.String()
}

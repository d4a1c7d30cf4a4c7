package llm

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultClaudeModel is the model passed to the claude CLI.
const DefaultClaudeModel = "haiku"

// ClaudeCLI generates text by shelling out to the claude CLI.
// The CLI has no temperature control; Request.Temperature is ignored.
type ClaudeCLI struct {
	Binary  string
	Model   string
	Timeout time.Duration

	// run executes the CLI; replaced in tests.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewClaudeCLI creates a completer using the claude binary on PATH.
func NewClaudeCLI(model string) *ClaudeCLI {
	if model == "" {
		model = DefaultClaudeModel
	}
	return &ClaudeCLI{
		Binary:  "claude",
		Model:   model,
		Timeout: 2 * time.Minute,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

// Complete implements Completer.
func (c *ClaudeCLI) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	output, err := c.run(ctx, c.Binary, "--model", c.Model, "-p", flattenPrompt(req.Messages))
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("claude CLI timed out after %s", c.Timeout)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("claude CLI error: %s", string(exitErr.Stderr))
		}
		return "", fmt.Errorf("claude CLI error: %w", err)
	}

	text := strings.TrimSpace(string(output))
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

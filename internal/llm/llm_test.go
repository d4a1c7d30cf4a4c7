package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestOpenAI_Complete(t *testing.T) {
	var got chatRequest
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		body := json.NewDecoder(r.Body)
		if err := body.Decode(&raw); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := json.Marshal(raw)
		json.Unmarshal(data, &got)
		w.Write([]byte(`{"choices":[{"message":{"content":"  rewritten query \n"}}]}`))
	}))
	defer srv.Close()

	o := NewOpenAI("sk", WithBaseURL(srv.URL), WithModel("gpt-test"))
	text, err := o.Complete(context.Background(), Request{
		Temperature: 0,
		Messages: []Message{
			{Role: RoleSystem, Content: "sys"},
			{Role: RoleUser, Content: "hi"},
		},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "rewritten query" {
		t.Errorf("text = %q", text)
	}
	if got.Model != "gpt-test" {
		t.Errorf("model = %q, want gpt-test", got.Model)
	}
	if _, ok := raw["temperature"]; !ok {
		t.Error("temperature 0 must be sent explicitly")
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != RoleSystem {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestOpenAI_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, `oops`, nil},
		{"no choices", http.StatusOK, `{"choices":[]}`, ErrEmptyCompletion},
		{"blank content", http.StatusOK, `{"choices":[{"message":{"content":"  "}}]}`, ErrEmptyCompletion},
		{"bad json", http.StatusOK, `{`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewOpenAI("sk", WithBaseURL(srv.URL)).Complete(context.Background(), Request{})
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestClaudeCLI_Complete(t *testing.T) {
	c := NewClaudeCLI("")
	var gotArgs []string
	c.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte("answer text\n"), nil
	}

	text, err := c.Complete(context.Background(), Request{Messages: []Message{
		{Role: RoleSystem, Content: "rules"},
		{Role: RoleUser, Content: "question"},
	}})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "answer text" {
		t.Errorf("text = %q", text)
	}
	if gotArgs[0] != "claude" || gotArgs[2] != DefaultClaudeModel || gotArgs[3] != "-p" {
		t.Errorf("args = %v", gotArgs)
	}
	prompt := gotArgs[4]
	if !strings.Contains(prompt, "Instructions:\nrules") || !strings.Contains(prompt, "Input:\nquestion") {
		t.Errorf("prompt = %q", prompt)
	}
}

func TestClaudeCLI_Failures(t *testing.T) {
	c := NewClaudeCLI("sonnet")
	c.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, errors.New("not installed")
	}
	if _, err := c.Complete(context.Background(), Request{}); err == nil {
		t.Error("expected error from failing CLI")
	}

	c.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("   "), nil
	}
	if _, err := c.Complete(context.Background(), Request{}); !errors.Is(err, ErrEmptyCompletion) {
		t.Errorf("expected ErrEmptyCompletion, got %v", err)
	}

	c.Timeout = 10 * time.Millisecond
	c.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	_, err := c.Complete(context.Background(), Request{})
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout error, got %v", err)
	}
}

func TestDisabled(t *testing.T) {
	if _, err := Disabled.Complete(context.Background(), Request{}); !errors.Is(err, ErrDisabled) {
		t.Errorf("Disabled should always fail with ErrDisabled, got %v", err)
	}
}

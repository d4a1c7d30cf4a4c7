package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/matsen/qarag/internal/llm"
	"github.com/matsen/qarag/internal/semantic"
)

func TestStripLabels(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text unchanged", "9시부터 6시까지 운영합니다.", "9시부터 6시까지 운영합니다."},
		{"leading QA block", "질문: 영업시간은? 답변: 9시부터 6시", "9시부터 6시"},
		{"leading block across lines", "  질문：가격은?\n답변：만원  ", "만원"},
		{"english block", "Question: hours?\nAnswer: nine to six", "nine to six"},
		{"line prefixes", "Q: 뭐예요?\nA: 이것입니다", "뭐예요?\n이것입니다"},
		{"answer prefix", "A: 9시에 엽니다", "9시에 엽니다"},
		{"short answer label", "답: 네", "네"},
		{"embedded label", "안내드립니다. 답변: 네 가능합니다", "안내드립니다. 네 가능합니다"},
		{"label after punctuation", "...답변: 네", "네"},
		{"hangul compound kept", "정답: 3번", "정답: 3번"},
		{"embedded latin label", "Please see the Question: section", "Please see the section"},
		{"leading ideographic period", "。 안내드립니다", "안내드립니다"},
		{"leading dots", "... 네", "네"},
		{"nested labels", "A: A: 답변: 네", "네"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripLabels(tt.in); got != tt.want {
				t.Errorf("StripLabels(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStripLabels_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"질문: a 답변: b",
		"Q: x\nA: y\nQ: z\nA: w",
		"답변: 답변: 답변: 끝",
		". . . 。。 답: 시작",
		"Answer: Question: Answer: ok",
		"질문 : 공백 있는 라벨 답변 : 값",
		"A:\nA:\n",
		"정답: 유지\n답: 제거",
		"normal sentence with a: colon",
	}
	for _, in := range inputs {
		once := StripLabels(in)
		if twice := StripLabels(once); twice != once {
			t.Errorf("not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

type recordingCompleter struct {
	calls  int
	req    llm.Request
	output string
	err    error
}

func (c *recordingCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	c.calls++
	c.req = req
	return c.output, c.err
}

func hit(answer string, score float64) semantic.Hit {
	return semantic.Hit{Question: "q", Answer: answer, Score: score}
}

func TestResolve_Gate(t *testing.T) {
	tests := []struct {
		name      string
		hits      []semantic.Hit
		wantFound bool
		wantBest  float64
	}{
		{"no hits", nil, false, 0},
		{"below threshold", []semantic.Hit{hit("A1", 0.77), hit("A2", 0.5)}, false, 0.77},
		{"at threshold", []semantic.Hit{hit("A1", 0.78)}, true, 0.78},
		{"above threshold", []semantic.Hit{hit("A1", 0.99)}, true, 0.99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &recordingCompleter{output: "rewritten"}
			r := NewResolver(NewRewriter(c, "m"))

			got := r.Resolve(context.Background(), tt.hits, 0.78, true)
			if got.Found != tt.wantFound {
				t.Errorf("Found = %v, want %v", got.Found, tt.wantFound)
			}
			if got.BestScore != tt.wantBest {
				t.Errorf("BestScore = %v, want %v", got.BestScore, tt.wantBest)
			}
			if !tt.wantFound {
				if got.Answer != FallbackText {
					t.Errorf("Answer = %q, want fallback", got.Answer)
				}
				if c.calls != 0 {
					t.Error("rewriter must not be called below threshold")
				}
			}
		})
	}
}

func TestResolve_NoRewriteIsStrippedStoredAnswer(t *testing.T) {
	stored := "질문: 영업시간? 답변: 평일 9시~18시 운영합니다."
	c := &recordingCompleter{output: "should not be used"}
	r := NewResolver(NewRewriter(c, "m"))

	got := r.Resolve(context.Background(), []semantic.Hit{hit(stored, 0.9)}, 0.78, false)
	if got.Answer != StripLabels(stored) {
		t.Errorf("Answer = %q, want %q", got.Answer, StripLabels(stored))
	}
	if got.Answer != "평일 9시~18시 운영합니다." {
		t.Errorf("Answer = %q", got.Answer)
	}
	if c.calls != 0 {
		t.Error("rewriter must not be called when rewrite is false")
	}
}

func TestResolve_Rewrite(t *testing.T) {
	c := &recordingCompleter{output: "답변: 평일 오전 9시부터 오후 6시까지 운영합니다."}
	r := NewResolver(NewRewriter(c, "gpt-4o-mini"))

	got := r.Resolve(context.Background(), []semantic.Hit{hit("A: 9-18시", 0.95)}, 0.78, true)
	if got.Answer != "평일 오전 9시부터 오후 6시까지 운영합니다." {
		t.Errorf("Answer = %q", got.Answer)
	}
	if c.req.Temperature != RewriteTemperature {
		t.Errorf("Temperature = %v", c.req.Temperature)
	}
	if c.req.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q", c.req.Model)
	}
	if len(c.req.Messages) != 2 || c.req.Messages[0].Content != RewriteInstruction {
		t.Fatalf("Messages = %+v", c.req.Messages)
	}
	if !strings.Contains(c.req.Messages[1].Content, "9-18시") || strings.Contains(c.req.Messages[1].Content, "A:") {
		t.Errorf("rewrite input should be the cleaned answer, got %q", c.req.Messages[1].Content)
	}
}

func TestResolve_RewriteFallback(t *testing.T) {
	tests := []struct {
		name   string
		output string
		err    error
	}{
		{"error", "", errors.New("timeout")},
		{"blank", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &recordingCompleter{output: tt.output, err: tt.err}
			r := NewResolver(NewRewriter(c, "m"))
			got := r.Resolve(context.Background(), []semantic.Hit{hit("A: 저장된 답", 0.9)}, 0.78, true)
			if got.Answer != "저장된 답" || !got.Found {
				t.Errorf("got %+v, want cleaned stored answer", got)
			}
		})
	}
}

func TestResolve_NilRewriter(t *testing.T) {
	got := NewResolver(nil).Resolve(context.Background(), []semantic.Hit{hit("답: 네", 0.9)}, 0.78, true)
	if got.Answer != "네" {
		t.Errorf("Answer = %q", got.Answer)
	}
}

func TestResolve_LabelOnlyAnswerFallsBack(t *testing.T) {
	c := &recordingCompleter{output: "다듬은 답"}
	got := NewResolver(NewRewriter(c, "m")).Resolve(context.Background(), []semantic.Hit{hit(" 답변: ", 0.9)}, 0.78, true)
	if got.Answer != FallbackText || got.Found {
		t.Errorf("got %+v, want fallback with found=false", got)
	}
	if got.BestScore != 0.9 {
		t.Errorf("BestScore = %v", got.BestScore)
	}
	if c.calls != 0 {
		t.Errorf("rewriter called %d times for an empty answer", c.calls)
	}
}

func TestResolve_LabelOnlyRewriteKeepsStoredAnswer(t *testing.T) {
	c := &recordingCompleter{output: "답변:"}
	got := NewResolver(NewRewriter(c, "m")).Resolve(context.Background(), []semantic.Hit{hit("네, 가능합니다.", 0.9)}, 0.78, true)
	if got.Answer != "네, 가능합니다." || !got.Found {
		t.Errorf("got %+v", got)
	}
}

package answer

import (
	"regexp"
	"strings"
)

// Label patterns, applied in order. Korean tokens are only matched when not
// glued to a preceding Hangul syllable, so words like 정답 survive.
var (
	leadingBlock = regexp.MustCompile(`(?is)^\s*(?:질문|question)[ \t]*[:：].*?(?:답변|answer)[ \t]*[:：]\s*`)

	lineQuestion = regexp.MustCompile(`(?im)^[ \t]*(?:q|질문|question)[ \t]*[:：][ \t]*`)
	lineAnswer   = regexp.MustCompile(`(?im)^[ \t]*(?:a|답변|답|answer)[ \t]*[:：][ \t]*`)

	embeddedKorean = regexp.MustCompile(`(^|[^가-힣])(?:질문|답변|답)[ \t]*[:：][ \t]*`)
	embeddedLatin  = regexp.MustCompile(`(?i)\b(?:question|answer)[ \t]*[:：][ \t]*`)
)

// StripLabels removes Q/A markers that leaked into stored answer text. The
// cleanup is heuristic. It runs until the text stops changing, so applying
// it twice gives the same result as applying it once.
func StripLabels(s string) string {
	for {
		next := stripOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func stripOnce(s string) string {
	s = leadingBlock.ReplaceAllString(s, "")
	s = lineQuestion.ReplaceAllString(s, "")
	s = lineAnswer.ReplaceAllString(s, "")
	s = embeddedKorean.ReplaceAllString(s, "$1")
	s = embeddedLatin.ReplaceAllString(s, "")

	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, ".。")
	return strings.TrimSpace(s)
}

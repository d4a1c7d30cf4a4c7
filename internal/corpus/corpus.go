// Package corpus turns raw line-delimited JSON records into question/answer pairs.
package corpus

import (
	"encoding/json"
	"fmt"
	"strings"
)

// QAPair is one question with its answer. Both fields are trimmed and non-empty.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// RawRecord is one non-empty line of the corpus file.
type RawRecord struct {
	Line int             // 1-based position in the corpus
	Data json.RawMessage // undecoded line contents
}

// MalformedRecordError reports a record that yielded no QA pair.
// It is a diagnostic; normalization continues past it.
type MalformedRecordError struct {
	Line   int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("invalid record at #%d: %s", e.Line, e.Reason)
}

// message is one entry of a conversational record.
type message struct {
	Role    any `json:"role"`
	Content any `json:"content"`
}

// shape decodes both recognized record layouts at once.
type shape struct {
	Messages json.RawMessage `json:"messages"`
	Question any             `json:"question"`
	Answer   any             `json:"answer"`
}

// Normalize converts raw records into QA pairs. Records matching neither the
// conversational nor the direct shape, or producing an empty side after
// trimming, are returned as diagnostics instead.
func Normalize(records []RawRecord) ([]QAPair, []*MalformedRecordError) {
	pairs := make([]QAPair, 0, len(records))
	var diags []*MalformedRecordError

	for i, rec := range records {
		line := rec.Line
		if line == 0 {
			line = i + 1
		}

		pair, reason := toQA(rec.Data)
		if reason != "" {
			diags = append(diags, &MalformedRecordError{Line: line, Reason: reason})
			continue
		}
		pairs = append(pairs, pair)
	}

	return pairs, diags
}

// toQA extracts a pair from one record, trying the conversational shape first.
// It returns a non-empty reason when the record is rejected.
func toQA(data json.RawMessage) (QAPair, string) {
	var s shape
	if err := json.Unmarshal(data, &s); err != nil {
		return QAPair{}, "not a JSON object"
	}

	if q, a, ok := fromMessages(s.Messages); ok {
		return QAPair{Question: q, Answer: a}, ""
	}

	q, qok := s.Question.(string)
	a, aok := s.Answer.(string)
	if qok && aok {
		q, a = strings.TrimSpace(q), strings.TrimSpace(a)
		if q != "" && a != "" {
			return QAPair{Question: q, Answer: a}, ""
		}
		return QAPair{}, "empty question or answer"
	}

	if len(s.Messages) > 0 {
		return QAPair{}, "messages without usable user/assistant content"
	}
	return QAPair{}, "neither messages nor question/answer fields"
}

// fromMessages picks the first user message (else the first message) and the
// first assistant message (else the second message).
func fromMessages(raw json.RawMessage) (string, string, bool) {
	if len(raw) == 0 {
		return "", "", false
	}

	var msgs []message
	if err := json.Unmarshal(raw, &msgs); err != nil || len(msgs) < 2 {
		return "", "", false
	}

	user, asst := -1, -1
	for i, m := range msgs {
		role := strings.ToLower(strings.TrimSpace(text(m.Role)))
		if role == "user" && user < 0 {
			user = i
		}
		if role == "assistant" && asst < 0 {
			asst = i
		}
	}
	if user < 0 {
		user = 0
	}
	if asst < 0 {
		asst = 1
	}

	q := strings.TrimSpace(text(msgs[user].Content))
	a := strings.TrimSpace(text(msgs[asst].Content))
	if q == "" || a == "" {
		return "", "", false
	}
	return q, a, true
}

// text renders a decoded JSON scalar as a string. Objects, arrays and null
// produce "" so they can never satisfy the non-empty check.
func text(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return fmt.Sprint(x)
	case bool:
		return fmt.Sprint(x)
	default:
		return ""
	}
}

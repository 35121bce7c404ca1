package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/bytedance/sonic"
)

var errNoCandidates = errors.New("no candidates or choices with text content")

// replyEnvelope covers both response families: Gemini style "candidates"
// and OpenAI style "choices".
type replyEnvelope struct {
	Candidates []replyEntry `json:"candidates"`
	Choices    []replyEntry `json:"choices"`
}

type replyEntry struct {
	Content json.RawMessage `json:"content"`
	Message *replyEntry     `json:"message"`
	Text    *string         `json:"text"`
}

type replyPart struct {
	Text string `json:"text"`
}

type replyParts struct {
	Parts []replyPart `json:"parts"`
}

// ExtractReply normalizes a raw completion response into a single text reply.
// The first entry yielding non-blank text wins. Structured content is flattened
// by joining its part texts with single spaces.
func ExtractReply(body []byte) (string, error) {
	var env replyEnvelope
	if err := sonic.Unmarshal(body, &env); err != nil {
		return "", err
	}

	entries := append(env.Candidates, env.Choices...)
	for _, entry := range entries {
		if text := entryText(entry); text != "" {
			return text, nil
		}
	}
	return "", errNoCandidates
}

func entryText(e replyEntry) string {
	if text := contentText(e.Content); text != "" {
		return text
	}
	if e.Message != nil {
		if text := entryText(*e.Message); text != "" {
			return text
		}
	}
	if e.Text != nil {
		return strings.TrimSpace(*e.Text)
	}
	return ""
}

// contentText accepts a plain string, an object with "parts", or a bare parts list
func contentText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	switch raw[0] {
	case '"':
		var s string
		if err := sonic.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	case '{':
		var p replyParts
		if err := sonic.Unmarshal(raw, &p); err != nil {
			return ""
		}
		return joinParts(p.Parts)
	case '[':
		var parts []replyPart
		if err := sonic.Unmarshal(raw, &parts); err != nil {
			return ""
		}
		return joinParts(parts)
	}
	return ""
}

// joinParts concatenates part texts in order with single spaces. Parts
// without text (tool calls, inline data) are skipped.
func joinParts(parts []replyPart) string {
	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p.Text); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, " ")
}

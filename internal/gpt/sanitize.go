package gpt

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrEmptyOutput reports a completion whose content is absent or blank.
var ErrEmptyOutput = errors.New("empty model output")

// MalformedError reports model output that still does not parse after
// repair. Raw is kept for log-side diagnosis; it must never be echoed to
// API callers.
type MalformedError struct {
	Raw string
	Err error
}

func (e *MalformedError) Error() string { return "malformed model output: " + e.Err.Error() }
func (e *MalformedError) Unwrap() error { return e.Err }

// Sanitized is verified-parseable exercise JSON plus its discriminator.
type Sanitized struct {
	JSON []byte
	Kind string
}

var typePairRe = regexp.MustCompile(`,?\s*"type"\s*:\s*"[^"]*"`)

// Sanitize turns a raw gateway body into parseable exercise JSON. The body
// is either the payload itself or a chat-completion envelope whose content
// may be fenced as a markdown code block and may repeat the "type" key.
// Sanitize is idempotent: its own output passes through unchanged.
func Sanitize(raw string) (Sanitized, error) {
	text := raw
	// A JSON-escaped payload inside an envelope reads \"type\", so this
	// literal only matches when the body already is the payload.
	if !strings.Contains(text, `"type"`) {
		content, err := unwrapEnvelope(raw)
		if err != nil {
			return Sanitized{}, err
		}
		text = content
	}
	text = stripFences(text)
	text = dropRepeatedType(text)
	text = strings.TrimSpace(text)

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(text), &probe); err != nil {
		return Sanitized{}, &MalformedError{Raw: raw, Err: err}
	}
	return Sanitized{JSON: []byte(text), Kind: probe.Type}, nil
}

func unwrapEnvelope(raw string) (string, error) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return "", &MalformedError{Raw: raw, Err: err}
	}
	if len(env.Choices) == 0 || strings.TrimSpace(env.Choices[0].Message.Content) == "" {
		return "", ErrEmptyOutput
	}
	return env.Choices[0].Message.Content, nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if after, ok := strings.CutPrefix(text, "```json"); ok {
		text = after
	} else if after, ok := strings.CutPrefix(text, "```"); ok {
		text = after
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// dropRepeatedType deletes every "type" pair after the first one. The
// model occasionally emits the discriminator twice; targeted string
// surgery repairs that without re-serializing content that has not been
// validated yet.
func dropRepeatedType(text string) string {
	locs := typePairRe.FindAllStringIndex(text, -1)
	if len(locs) < 2 {
		return text
	}
	var b strings.Builder
	b.WriteString(text[:locs[1][0]])
	last := locs[1][1]
	for _, loc := range locs[2:] {
		b.WriteString(text[last:loc[0]])
		last = loc[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

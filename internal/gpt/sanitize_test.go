package gpt

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// wrapInEnvelope builds a chat-completion body whose content is the given
// text, with real JSON escaping applied.
func wrapInEnvelope(t *testing.T, content string) string {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	})
	if err != nil {
		t.Fatalf("building envelope: %v", err)
	}
	return string(body)
}

func TestSanitizeDirectPayload(t *testing.T) {
	raw := `{"type":"ABCD","questions":["q"],"answers":["A"]}`
	got, err := Sanitize(raw)
	if err != nil {
		t.Fatalf("Sanitize() error = %v", err)
	}
	if got.Kind != "ABCD" {
		t.Errorf("kind = %q, want ABCD", got.Kind)
	}
	if string(got.JSON) != raw {
		t.Errorf("payload changed: %s", got.JSON)
	}
}

func TestSanitizeUnwrapsEnvelope(t *testing.T) {
	payload := `{"type":"True/False","questions":["s1"],"answers":["true"]}`
	raw := wrapInEnvelope(t, payload)
	// The payload inside the envelope is escaped, so the raw body must not
	// trip the direct-payload shortcut.
	if strings.Contains(raw, `"type"`) {
		t.Fatalf("fixture broken: envelope exposes an unescaped type key: %s", raw)
	}
	got, err := Sanitize(raw)
	if err != nil {
		t.Fatalf("Sanitize() error = %v", err)
	}
	if got.Kind != "True/False" {
		t.Errorf("kind = %q, want True/False", got.Kind)
	}
	if string(got.JSON) != payload {
		t.Errorf("payload = %s, want %s", got.JSON, payload)
	}
}

func TestSanitizeStripsFences(t *testing.T) {
	payload := `{"type":"Dialogue","questions":["A: hi B: _____"],"answers":["hello"]}`
	tests := []struct {
		name    string
		content string
	}{
		{"json fence", "```json\n" + payload + "\n```"},
		{"bare fence", "```\n" + payload + "\n```"},
		{"fence with padding", "  ```json\n" + payload + "\n```  \n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sanitize(wrapInEnvelope(t, tt.content))
			if err != nil {
				t.Fatalf("Sanitize() error = %v", err)
			}
			if string(got.JSON) != payload {
				t.Errorf("payload = %s, want %s", got.JSON, payload)
			}
		})
	}
}

func TestSanitizeKeepsFirstTypeKey(t *testing.T) {
	raw := `{"type":"ABCD","questions":["q"],"answers":["A"],"type":"ABCD"}`
	got, err := Sanitize(raw)
	if err != nil {
		t.Fatalf("Sanitize() error = %v", err)
	}
	want := `{"type":"ABCD","questions":["q"],"answers":["A"]}`
	if string(got.JSON) != want {
		t.Errorf("payload = %s, want %s", got.JSON, want)
	}
	if got.Kind != "ABCD" {
		t.Errorf("kind = %q, want ABCD", got.Kind)
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		`{"type":"ABCD","questions":["q"],"answers":["A"],"type":"ABCD"}`,
		wrapInEnvelope(t, "```json\n{\"type\":\"Open Questions\",\"questions\":[\"q\"],\"answers\":[\"a\"]}\n```"),
	}
	for _, raw := range inputs {
		once, err := Sanitize(raw)
		if err != nil {
			t.Fatalf("Sanitize() error = %v", err)
		}
		twice, err := Sanitize(string(once.JSON))
		if err != nil {
			t.Fatalf("second Sanitize() error = %v", err)
		}
		if string(twice.JSON) != string(once.JSON) || twice.Kind != once.Kind {
			t.Errorf("not idempotent:\n once %s\ntwice %s", once.JSON, twice.JSON)
		}
	}
}

func TestSanitizeEmptyOutput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no choices", `{"choices":[]}`},
		{"blank content", wrapInEnvelope(t, "   \n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Sanitize(tt.raw); !errors.Is(err, ErrEmptyOutput) {
				t.Errorf("Sanitize() error = %v, want ErrEmptyOutput", err)
			}
		})
	}
}

func TestSanitizeMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json at all", "internal server error"},
		{"payload with trailing prose", wrapInEnvelope(t, "Sure! Here you go: exercise about cats")},
		{"truncated payload", `{"type":"ABCD","questions":["q"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Sanitize(tt.raw)
			var malformed *MalformedError
			if !errors.As(err, &malformed) {
				t.Fatalf("Sanitize() error = %v, want *MalformedError", err)
			}
			if malformed.Raw != tt.raw {
				t.Errorf("Raw = %q, want the original body", malformed.Raw)
			}
		})
	}
}

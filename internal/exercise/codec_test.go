package exercise

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func sampleFor(t *testing.T, kind Kind) Exercise {
	t.Helper()
	switch kind {
	case KindFillTheGaps:
		return &FillTheGaps{Recognized: Recognized{
			Text:       "The cat _____ on the mat.",
			Questions:  []string{"The cat _____ on the mat.", "Birds _____ south."},
			Answers:    []string{"fly", "sat"},
			Dictionary: []IndexPair{{Question: 0, Answer: 1}, {Question: 1, Answer: 0}},
			Metadata:   map[string]any{"source": "page 1"},
		}}
	case KindMatchTheSentence:
		return &MatchTheSentence{Recognized: Recognized{
			Questions:  []string{"If it rains", "When I grow up"},
			Answers:    []string{"I will be a pilot", "we stay home"},
			Dictionary: []IndexPair{{Question: 0, Answer: 1}, {Question: 1, Answer: 0}},
		}}
	case KindTrueFalse:
		return &TrueFalse{Creation: Creation{
			Questions:  []string{"The sun rises in the west."},
			Answers:    []string{"false"},
			Dictionary: []TextPair{{Question: "The sun rises in the west.", Answer: "false"}},
		}}
	case KindABCD:
		return &ABCD{Creation: Creation{
			Questions: []string{"Pick the synonym of 'big': A) tiny B) large C) thin D) low"},
			Answers:   []string{"B"},
		}}
	case KindOpenQuestions:
		return &OpenQuestions{Creation: Creation{
			Questions: []string{"Describe your last holiday."},
			Answers:   []string{"Answers will vary."},
		}}
	case KindDialogue:
		return &Dialogue{Creation: Creation{
			Text:      "At the airport",
			Questions: []string{"A: Where is gate 12? B: _____"},
			Answers:   []string{"Go straight and turn left."},
		}}
	case KindCreation:
		return &Creation{
			Questions: []string{"Write three sentences about your town."},
			Answers:   []string{"Answers will vary."},
		}
	}
	t.Fatalf("no sample for kind %q", kind)
	return nil
}

func TestMarshalDecodeRoundTrip(t *testing.T) {
	for _, kind := range Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			original := sampleFor(t, kind)

			blob, err := Marshal(original)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if !strings.HasPrefix(string(blob), `{"type":`) {
				t.Errorf("blob does not lead with the discriminator: %s", blob)
			}

			decoded, err := Decode(kind, blob)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if decoded.Kind() != kind {
				t.Errorf("decoded kind = %q, want %q", decoded.Kind(), kind)
			}
			if !reflect.DeepEqual(decoded, original) {
				t.Errorf("round trip mismatch:\n got %#v\nwant %#v", decoded, original)
			}
		})
	}
}

func TestMarshalDiscriminatorMatchesVariant(t *testing.T) {
	for _, kind := range Kinds() {
		blob, err := Marshal(sampleFor(t, kind))
		if err != nil {
			t.Fatalf("Marshal(%s) error = %v", kind, err)
		}
		var probe struct {
			Type Kind `json:"type"`
		}
		if err := json.Unmarshal(blob, &probe); err != nil {
			t.Fatalf("blob for %s is not valid JSON: %v", kind, err)
		}
		if probe.Type != kind {
			t.Errorf("stored discriminator = %q, want %q", probe.Type, kind)
		}
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	for _, kind := range []Kind{"", "Crossword", "fill the gaps "} {
		if _, err := Decode(kind, []byte(`{"questions":["q"],"answers":["a"]}`)); !errors.Is(err, ErrUnsupportedKind) {
			t.Errorf("Decode(%q) error = %v, want ErrUnsupportedKind", kind, err)
		}
	}
}

func TestDecodeRejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		data string
	}{
		{"missing questions", KindTrueFalse, `{"answers":["false"]}`},
		{"empty answers", KindFillTheGaps, `{"questions":["q _____"],"answers":[]}`},
		{"questions not an array", KindABCD, `{"questions":"q","answers":["A"]}`},
		{"index pair holds strings", KindMatchTheSentence, `{"questions":["q"],"answers":["a"],"dictionary":[{"question":"q","answer":"a"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.kind, []byte(tt.data)); err == nil {
				t.Errorf("Decode(%s, %s) succeeded, want error", tt.kind, tt.data)
			}
		})
	}
}

func TestDecodeIgnoresUnknownFields(t *testing.T) {
	data := `{"type":"True/False","questions":["s"],"answers":["true"],"confidence":0.93,"notes":["extra"]}`
	ex, err := Decode(KindTrueFalse, []byte(data))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got := ex.QuestionList(); len(got) != 1 || got[0] != "s" {
		t.Errorf("questions = %v, want [s]", got)
	}
}

func TestUnmarshalDegradesOnBadBlobs(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{"empty", ""},
		{"whitespace", "  \n"},
		{"not json", "<html>oops</html>"},
		{"unknown type", `{"type":"Sudoku","questions":["q"],"answers":["a"]}`},
		{"missing required", `{"type":"ABCD","answers":["A"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex, ok := Unmarshal([]byte(tt.blob))
			if ok || ex != nil {
				t.Errorf("Unmarshal(%q) = (%v, %v), want (nil, false)", tt.blob, ex, ok)
			}
		})
	}
}

func TestUnmarshalDispatchesByStoredType(t *testing.T) {
	blob, err := Marshal(sampleFor(t, KindDialogue))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	ex, ok := Unmarshal(blob)
	if !ok {
		t.Fatal("Unmarshal() reported degraded read for a valid blob")
	}
	if _, isDialogue := ex.(*Dialogue); !isDialogue {
		t.Errorf("Unmarshal() built %T, want *Dialogue", ex)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"True/False", KindTrueFalse, false},
		{"true/false", KindTrueFalse, false},
		{" abcd ", KindABCD, false},
		{"Fill The Gaps", KindFillTheGaps, false},
		{"Anagram", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnsupportedKind) {
				t.Errorf("ParseKind(%q) error = %v, want ErrUnsupportedKind", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseKind(%q) = (%q, %v), want (%q, nil)", tt.in, got, err, tt.want)
		}
	}
}

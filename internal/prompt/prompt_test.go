package prompt

import (
	"errors"
	"strings"
	"testing"

	"github.com/miaai/langhelper/internal/exercise"
)

func TestBuildCleanup(t *testing.T) {
	recognized := "Ex. 4 Fill in: The cat ___ on the mat.\npage 12"
	got, err := BuildCleanup(recognized)
	if err != nil {
		t.Fatalf("BuildCleanup() error = %v", err)
	}
	for _, want := range []string{
		recognized,
		`"Fill The Gaps"`,
		`"Match The Sentence"`,
		`"True/False"`,
		`"_____"`,
		"exactly one exercise",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("cleanup prompt missing %q", want)
		}
	}
}

func TestBuildCleanupDeterministic(t *testing.T) {
	first, err := BuildCleanup("some text")
	if err != nil {
		t.Fatalf("BuildCleanup() error = %v", err)
	}
	second, err := BuildCleanup("some text")
	if err != nil {
		t.Fatalf("BuildCleanup() error = %v", err)
	}
	if first != second {
		t.Error("BuildCleanup() is not deterministic")
	}
}

func TestBuildGeneration(t *testing.T) {
	data := GenerationData{Level: "B1", Age: "12", Topic: "space travel"}
	tests := []struct {
		kind       exercise.Kind
		wantSchema string
	}{
		{exercise.KindTrueFalse, `"type": "True/False"`},
		{exercise.KindABCD, `"type": "ABCD"`},
		{exercise.KindOpenQuestions, `"type": "Open Questions"`},
		{exercise.KindDialogue, `"type": "Dialogue"`},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got, err := BuildGeneration(tt.kind, data)
			if err != nil {
				t.Fatalf("BuildGeneration() error = %v", err)
			}
			for _, want := range []string{tt.wantSchema, "B1", "12", "space travel"} {
				if !strings.Contains(got, want) {
					t.Errorf("%s prompt missing %q", tt.kind, want)
				}
			}
		})
	}
}

func TestBuildGenerationUnsupportedKinds(t *testing.T) {
	for _, kind := range []exercise.Kind{exercise.KindFillTheGaps, exercise.KindMatchTheSentence, exercise.KindCreation, "Sudoku"} {
		if _, err := BuildGeneration(kind, GenerationData{}); !errors.Is(err, exercise.ErrUnsupportedKind) {
			t.Errorf("BuildGeneration(%q) error = %v, want ErrUnsupportedKind", kind, err)
		}
	}
}

// Package prompt builds the instructions sent to the language model. All
// builders are pure: the same input always produces the same prompt.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"sync"
	"text/template"

	"github.com/miaai/langhelper/internal/exercise"
)

//go:embed templates/*.txt
var templateFS embed.FS

var generationFiles = map[exercise.Kind]string{
	exercise.KindTrueFalse:     "templates/generate_truefalse.txt",
	exercise.KindABCD:          "templates/generate_abcd.txt",
	exercise.KindOpenQuestions: "templates/generate_openquestions.txt",
	exercise.KindDialogue:      "templates/generate_dialogue.txt",
}

var (
	loadOnce            sync.Once
	loadErr             error
	cleanupTemplate     *template.Template
	generationTemplates map[exercise.Kind]*template.Template
)

func load() error {
	loadOnce.Do(func() {
		content, err := templateFS.ReadFile("templates/cleanup.txt")
		if err != nil {
			loadErr = fmt.Errorf("read cleanup template: %w", err)
			return
		}
		cleanupTemplate, err = template.New("cleanup").Parse(string(content))
		if err != nil {
			loadErr = fmt.Errorf("parse cleanup template: %w", err)
			return
		}

		generationTemplates = make(map[exercise.Kind]*template.Template)
		for kind, file := range generationFiles {
			content, err := templateFS.ReadFile(file)
			if err != nil {
				loadErr = fmt.Errorf("read template %s: %w", file, err)
				return
			}
			tmpl, err := template.New(string(kind)).Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse template %s: %w", file, err)
				return
			}
			generationTemplates[kind] = tmpl
		}
	})
	return loadErr
}

// CleanupData holds template data for the recognized-text cleanup prompt.
type CleanupData struct {
	RecognizedText string
}

// GenerationData holds the student constraints for a generation prompt.
type GenerationData struct {
	Level string
	Age   string
	Topic string
}

// BuildCleanup builds the prompt that asks the model to isolate and clean
// exactly one exercise from noisy recognized text.
func BuildCleanup(recognizedText string) (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := cleanupTemplate.Execute(&buf, CleanupData{RecognizedText: recognizedText}); err != nil {
		return "", fmt.Errorf("build cleanup prompt: %w", err)
	}
	return buf.String(), nil
}

// BuildGeneration builds the prompt that asks the model to create a fresh
// exercise of the given kind. Only the generated kinds are supported.
func BuildGeneration(kind exercise.Kind, data GenerationData) (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	tmpl, ok := generationTemplates[kind]
	if !ok {
		return "", fmt.Errorf("%w: no generation prompt for %q", exercise.ErrUnsupportedKind, string(kind))
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("build %s prompt: %w", kind, err)
	}
	return buf.String(), nil
}

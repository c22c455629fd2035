// Package model holds the persisted record shape, the JSON transport
// types and the caller-identity context helpers.
package model

import (
	"context"
	"encoding/json"
	"time"

	"github.com/miaai/langhelper/internal/exercise"
)

// previewLimit caps the content preview in listings.
const previewLimit = 100

// Record is one persisted exercise row. Exercise is nil when the stored
// payload can no longer be reconstructed; the denormalized columns keep
// the row listable anyway.
type Record struct {
	ID             int64
	PublicID       string
	Owner          string
	Exercise       exercise.Exercise
	Payload        []byte
	Type           string
	CreatedText    string
	QuestionsCount int
	IsPublic       bool
	IsCompleted    bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Summary is the client-facing projection of a Record.
type Summary struct {
	PublicID       string          `json:"publicId"`
	Type           string          `json:"type"`
	ContentPreview string          `json:"contentPreview"`
	ExerciseData   json.RawMessage `json:"exerciseData"`
	CreatedText    string          `json:"createdText,omitempty"`
	QuestionsCount int             `json:"questionsCount"`
	IsPublic       bool            `json:"isPublic"`
	IsCompleted    bool            `json:"isCompleted"`
	Metadata       map[string]any  `json:"metadata,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Summary projects the record for clients. A degraded record (nil
// Exercise) reports type "Unknown", an empty payload object and no
// preview, but stays listable.
func (r Record) Summary() Summary {
	s := Summary{
		PublicID:       r.PublicID,
		Type:           "Unknown",
		ExerciseData:   json.RawMessage("{}"),
		QuestionsCount: r.QuestionsCount,
		IsPublic:       r.IsPublic,
		IsCompleted:    r.IsCompleted,
		Timestamp:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.Exercise == nil {
		return s
	}
	s.Type = string(r.Exercise.Kind())
	s.ExerciseData = json.RawMessage(r.Payload)
	s.CreatedText = r.Exercise.Passage()
	s.ContentPreview = preview(r.Exercise.Passage())
	s.Metadata = r.Exercise.Meta()
	return s
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLimit {
		return text
	}
	return string(runes[:previewLimit]) + "..."
}

// GenerationParams are the client constraints for a generated exercise.
type GenerationParams struct {
	Type  string `json:"type"`
	Level string `json:"level"`
	Age   string `json:"age"`
	Topic string `json:"topic"`
}

// DictionaryEntry pairs a question with its answer either by literal text
// or by explicit index, depending on the exercise type being saved.
type DictionaryEntry struct {
	Question      string `json:"question,omitempty"`
	Answer        string `json:"answer,omitempty"`
	QuestionIndex *int   `json:"questionIndex,omitempty"`
	AnswerIndex   *int   `json:"answerIndex,omitempty"`
}

// SaveRequest is a client-composed exercise.
type SaveRequest struct {
	Type        string            `json:"type"`
	CreatedText string            `json:"createdText"`
	Questions   []string          `json:"questions"`
	Answers     []string          `json:"answers"`
	Dictionary  []DictionaryEntry `json:"dictionary"`
	Metadata    map[string]any    `json:"metadata"`
}

// VisibilityRequest toggles public sharing of a record.
type VisibilityRequest struct {
	IsPublic *bool `json:"isPublic"`
}

// VisibilityResponse reports the new state and, when shared, the
// anonymous link.
type VisibilityResponse struct {
	Success   bool   `json:"success"`
	IsPublic  bool   `json:"isPublic"`
	PublicURL string `json:"publicUrl,omitempty"`
}

// CompletionRequest marks a record as worked through.
type CompletionRequest struct {
	IsCompleted *bool `json:"isCompleted"`
}

// CompletionResponse reports the new completion state.
type CompletionResponse struct {
	Success     bool `json:"success"`
	IsCompleted bool `json:"isCompleted"`
}

type contextKey string

const callerKey contextKey = "caller"

// ContextWithCaller stores the authenticated caller identity in the
// context.
func ContextWithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// CallerFromContext retrieves the caller identity from the context.
func CallerFromContext(ctx context.Context) (string, bool) {
	caller, ok := ctx.Value(callerKey).(string)
	return caller, ok && caller != ""
}

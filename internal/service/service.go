// Package service orchestrates the pipeline: document text extraction,
// prompt building, the model call, output sanitization, variant decoding
// and persistence. Every run is request-scoped; nothing is persisted when
// a run fails or is cancelled.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/avast/retry-go"

	"github.com/miaai/langhelper/internal/exercise"
	"github.com/miaai/langhelper/internal/gpt"
	"github.com/miaai/langhelper/internal/model"
	"github.com/miaai/langhelper/internal/prompt"
	"github.com/miaai/langhelper/internal/store"
)

// TextSource turns an uploaded document into plain text.
type TextSource interface {
	Text(ctx context.Context, filename string, data []byte) (string, error)
}

// Completer is the model gateway surface the pipeline needs.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Service runs the pipeline.
type Service struct {
	extractor TextSource
	gateway   Completer
	store     *store.Store
	retries   uint
}

// New wires the pipeline. retries is the number of extra attempts after a
// timed-out model call.
func New(extractor TextSource, gateway Completer, st *store.Store, retries uint) *Service {
	return &Service{extractor: extractor, gateway: gateway, store: st, retries: retries}
}

// CreateFromUpload recognizes text in an uploaded document, asks the
// model to isolate and clean one exercise from it, and persists the
// result for owner.
func (s *Service) CreateFromUpload(ctx context.Context, owner, filename string, data []byte) (model.Record, error) {
	text, err := s.extractor.Text(ctx, filename, data)
	if err != nil {
		return model.Record{}, err
	}
	slog.Info("document recognized", "file", filename, "chars", len(text))

	p, err := prompt.BuildCleanup(text)
	if err != nil {
		return model.Record{}, err
	}
	return s.generate(ctx, owner, p)
}

// CreateFromParams asks the model for a fresh exercise of the requested
// kind under the given student constraints and persists the result.
func (s *Service) CreateFromParams(ctx context.Context, owner string, params model.GenerationParams) (model.Record, error) {
	kind, err := exercise.ParseKind(params.Type)
	if err != nil {
		return model.Record{}, err
	}
	p, err := prompt.BuildGeneration(kind, prompt.GenerationData{
		Level: params.Level,
		Age:   params.Age,
		Topic: params.Topic,
	})
	if err != nil {
		return model.Record{}, err
	}
	return s.generate(ctx, owner, p)
}

// SaveComposed persists a client-composed exercise after pushing it
// through the same variant registry the model path uses.
func (s *Service) SaveComposed(ctx context.Context, owner string, req model.SaveRequest) (model.Record, error) {
	ex, err := composeExercise(req)
	if err != nil {
		return model.Record{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.Record{}, err
	}
	return s.store.Insert(owner, ex)
}

func (s *Service) generate(ctx context.Context, owner, promptText string) (model.Record, error) {
	raw, err := s.complete(ctx, promptText)
	if err != nil {
		return model.Record{}, err
	}

	cleaned, err := gpt.Sanitize(raw)
	if err != nil {
		var malformed *gpt.MalformedError
		if errors.As(err, &malformed) {
			slog.Error("model output did not sanitize", "error", err, "raw", malformed.Raw)
		}
		return model.Record{}, err
	}

	ex, err := exercise.Decode(exercise.Kind(cleaned.Kind), cleaned.JSON)
	if err != nil {
		slog.Error("model output did not decode", "type", cleaned.Kind, "error", err)
		return model.Record{}, err
	}

	if err := ctx.Err(); err != nil {
		return model.Record{}, err
	}
	return s.store.Insert(owner, ex)
}

// complete wraps the single gateway call with the caller-side retry
// policy: only a timed-out call is worth another attempt.
func (s *Service) complete(ctx context.Context, promptText string) (string, error) {
	var raw string
	err := retry.Do(
		func() error {
			var err error
			raw, err = s.gateway.Complete(ctx, promptText)
			if err != nil && !errors.Is(err, gpt.ErrTimeout) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(s.retries+1),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			slog.Warn("retrying model call", "attempt", attempt+1, "error", err)
		}),
	)
	return raw, err
}

package service

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/miaai/langhelper/internal/exercise"
	"github.com/miaai/langhelper/internal/model"
)

// ErrInvalidExercise reports a client-composed exercise that does not
// form a valid variant.
var ErrInvalidExercise = errors.New("invalid exercise")

// composeExercise converts a client-composed request into a typed
// variant. Dictionary entries may carry literal strings or explicit
// indices; each variant family needs the other form, so entries are
// converted where possible.
func composeExercise(req model.SaveRequest) (exercise.Exercise, error) {
	kind, err := exercise.ParseKind(req.Type)
	if err != nil {
		return nil, err
	}

	var ex exercise.Exercise
	switch kind {
	case exercise.KindFillTheGaps, exercise.KindMatchTheSentence:
		dict, err := indexDictionary(req.Dictionary)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidExercise, err)
		}
		recognized := exercise.Recognized{
			Text:       req.CreatedText,
			Questions:  req.Questions,
			Answers:    req.Answers,
			Dictionary: dict,
			Metadata:   req.Metadata,
		}
		if kind == exercise.KindFillTheGaps {
			ex = &exercise.FillTheGaps{Recognized: recognized}
		} else {
			ex = &exercise.MatchTheSentence{Recognized: recognized}
		}
	default:
		creation := exercise.Creation{
			Text:       req.CreatedText,
			Questions:  req.Questions,
			Answers:    req.Answers,
			Dictionary: textDictionary(req.Dictionary),
			Metadata:   req.Metadata,
		}
		switch kind {
		case exercise.KindTrueFalse:
			ex = &exercise.TrueFalse{Creation: creation}
		case exercise.KindABCD:
			ex = &exercise.ABCD{Creation: creation}
		case exercise.KindOpenQuestions:
			ex = &exercise.OpenQuestions{Creation: creation}
		case exercise.KindDialogue:
			ex = &exercise.Dialogue{Creation: creation}
		default:
			ex = &creation
		}
	}

	if err := exercise.Validate(ex); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExercise, err)
	}
	return ex, nil
}

func indexDictionary(entries []model.DictionaryEntry) ([]exercise.IndexPair, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	pairs := make([]exercise.IndexPair, 0, len(entries))
	for i, entry := range entries {
		q, err := entryIndex(entry.QuestionIndex, entry.Question)
		if err != nil {
			return nil, fmt.Errorf("dictionary entry %d question: %w", i, err)
		}
		a, err := entryIndex(entry.AnswerIndex, entry.Answer)
		if err != nil {
			return nil, fmt.Errorf("dictionary entry %d answer: %w", i, err)
		}
		pairs = append(pairs, exercise.IndexPair{Question: q, Answer: a})
	}
	return pairs, nil
}

func entryIndex(explicit *int, literal string) (int, error) {
	if explicit != nil {
		return *explicit, nil
	}
	idx, err := strconv.Atoi(literal)
	if err != nil {
		return 0, fmt.Errorf("%q is not an index", literal)
	}
	return idx, nil
}

func textDictionary(entries []model.DictionaryEntry) []exercise.TextPair {
	if len(entries) == 0 {
		return nil
	}
	pairs := make([]exercise.TextPair, 0, len(entries))
	for _, entry := range entries {
		q, a := entry.Question, entry.Answer
		if q == "" && entry.QuestionIndex != nil {
			q = strconv.Itoa(*entry.QuestionIndex)
		}
		if a == "" && entry.AnswerIndex != nil {
			a = strconv.Itoa(*entry.AnswerIndex)
		}
		pairs = append(pairs, exercise.TextPair{Question: q, Answer: a})
	}
	return pairs
}

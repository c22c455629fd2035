package exercise

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrUnsupportedKind reports a discriminator outside the closed variant
// set. It covers unknown, misspelled and absent discriminators alike.
var ErrUnsupportedKind = errors.New("unsupported exercise type")

// registry maps each discriminator to its variant constructor. Built once
// at init and never mutated afterwards.
var registry = map[Kind]func() Exercise{
	KindFillTheGaps:      func() Exercise { return &FillTheGaps{} },
	KindTrueFalse:        func() Exercise { return &TrueFalse{} },
	KindMatchTheSentence: func() Exercise { return &MatchTheSentence{} },
	KindABCD:             func() Exercise { return &ABCD{} },
	KindOpenQuestions:    func() Exercise { return &OpenQuestions{} },
	KindDialogue:         func() Exercise { return &Dialogue{} },
	KindCreation:         func() Exercise { return &Creation{} },
}

var validate = validator.New()

// Kinds returns every registered discriminator.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(registry))
	for kind := range registry {
		kinds = append(kinds, kind)
	}
	return kinds
}

// Decode builds the variant registered for kind from its JSON payload.
// Unknown kinds fail closed. Unknown JSON fields are ignored; missing
// required fields and wrong primitive types are errors.
func Decode(kind Kind, data []byte) (Exercise, error) {
	construct, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, string(kind))
	}
	ex := construct()
	if err := json.Unmarshal(data, ex); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", kind, err)
	}
	if err := Validate(ex); err != nil {
		return nil, err
	}
	return ex, nil
}

// Validate checks the variant's required fields.
func Validate(ex Exercise) error {
	if err := validate.Struct(ex); err != nil {
		return fmt.Errorf("invalid %s payload: %w", ex.Kind(), err)
	}
	return nil
}

// Marshal serializes ex as a self-describing blob with the discriminator
// as the first key. The discriminator comes from the variant itself, so a
// stored blob cannot disagree with the type that produced it.
func Marshal(ex Exercise) ([]byte, error) {
	body, err := json.Marshal(ex)
	if err != nil {
		return nil, fmt.Errorf("serialize %s payload: %w", ex.Kind(), err)
	}
	head := fmt.Sprintf(`{"type":%q`, string(ex.Kind()))
	if bytes.Equal(body, []byte("{}")) {
		return []byte(head + "}"), nil
	}
	return append([]byte(head+","), body[1:]...), nil
}

// Unmarshal reconstructs a variant from a stored blob. An absent, empty or
// unreadable blob yields (nil, false) so callers can degrade to summary
// data instead of failing a whole listing.
func Unmarshal(blob []byte) (Exercise, bool) {
	if len(bytes.TrimSpace(blob)) == 0 {
		return nil, false
	}
	var probe struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(blob, &probe); err != nil {
		slog.Warn("unreadable exercise payload", "error", err)
		return nil, false
	}
	ex, err := Decode(probe.Type, blob)
	if err != nil {
		slog.Warn("stored exercise payload no longer decodes", "type", string(probe.Type), "error", err)
		return nil, false
	}
	return ex, true
}

// ParseKind matches a client-supplied type string against the registry,
// ignoring case and surrounding space.
func ParseKind(s string) (Kind, error) {
	trimmed := strings.TrimSpace(s)
	for kind := range registry {
		if strings.EqualFold(trimmed, string(kind)) {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, s)
}

// Package exercise defines the closed set of exercise variants the service
// produces, plus the registry-driven codec that moves them in and out of
// their self-describing JSON form.
package exercise

// Kind discriminates exercise variants. The values are wire-visible: they
// appear in model output, in stored payloads and in client requests.
type Kind string

const (
	KindFillTheGaps      Kind = "Fill The Gaps"
	KindTrueFalse        Kind = "True/False"
	KindMatchTheSentence Kind = "Match The Sentence"
	KindABCD             Kind = "ABCD"
	KindOpenQuestions    Kind = "Open Questions"
	KindDialogue         Kind = "Dialogue"
	KindCreation         Kind = "Creation"
)

// IndexPair links a question to its answer by position. Used by the
// variants lifted from scanned pages, where the model shuffles answers.
type IndexPair struct {
	Question int `json:"question"`
	Answer   int `json:"answer"`
}

// TextPair links a question to its answer by literal text. Used by the
// generated variants.
type TextPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Exercise is one typed exercise payload.
type Exercise interface {
	Kind() Kind
	Passage() string
	QuestionList() []string
	AnswerList() []string
	Meta() map[string]any
}

// Recognized is the shared shape of the variants recognized from scanned
// pages. Its dictionary pairs questions and answers by index.
type Recognized struct {
	Text       string         `json:"createdText,omitempty"`
	Questions  []string       `json:"questions" validate:"required,min=1"`
	Answers    []string       `json:"answers" validate:"required,min=1"`
	Dictionary []IndexPair    `json:"dictionary"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func (e *Recognized) Passage() string        { return e.Text }
func (e *Recognized) QuestionList() []string { return e.Questions }
func (e *Recognized) AnswerList() []string   { return e.Answers }
func (e *Recognized) Meta() map[string]any   { return e.Metadata }

// FillTheGaps is a cloze exercise. Gaps in the questions are marked with
// five underscores.
type FillTheGaps struct {
	Recognized
}

func (*FillTheGaps) Kind() Kind { return KindFillTheGaps }

// MatchTheSentence asks the student to pair sentence halves.
type MatchTheSentence struct {
	Recognized
}

func (*MatchTheSentence) Kind() Kind { return KindMatchTheSentence }

// Creation is the generic generated-exercise shape. The named generated
// variants embed it and override only the discriminator.
type Creation struct {
	Text       string         `json:"createdText,omitempty"`
	Questions  []string       `json:"questions" validate:"required,min=1"`
	Answers    []string       `json:"answers" validate:"required,min=1"`
	Dictionary []TextPair     `json:"dictionary"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func (*Creation) Kind() Kind               { return KindCreation }
func (e *Creation) Passage() string        { return e.Text }
func (e *Creation) QuestionList() []string { return e.Questions }
func (e *Creation) AnswerList() []string   { return e.Answers }
func (e *Creation) Meta() map[string]any   { return e.Metadata }

// TrueFalse holds statements to be judged true or false.
type TrueFalse struct {
	Creation
}

func (*TrueFalse) Kind() Kind { return KindTrueFalse }

// ABCD is a multiple-choice exercise with four options per question.
type ABCD struct {
	Creation
}

func (*ABCD) Kind() Kind { return KindABCD }

// OpenQuestions holds free-form questions with reference answers.
type OpenQuestions struct {
	Creation
}

func (*OpenQuestions) Kind() Kind { return KindOpenQuestions }

// Dialogue holds a conversation with blanks or turns to complete.
type Dialogue struct {
	Creation
}

func (*Dialogue) Kind() Kind { return KindDialogue }

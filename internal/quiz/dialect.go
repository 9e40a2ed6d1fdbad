// Package quiz turns untrusted language-model completions into quiz
// records, extracts answer attempts from free-form user input and grades
// them. All functions are pure text analysis; the external model call
// stays with the caller.
package quiz

import (
	"fmt"

	"github.com/mmaung/securitasbot/internal/model/chat"
)

// RenderFunc converts markdown-ish model output to display markup.
type RenderFunc func(string) string

// Attempt is an extracted answer: a 1-based question number and a
// normalized single-character token.
type Attempt struct {
	Question int
	Token    string
}

// Outcome classifies a graded attempt.
type Outcome string

const (
	OutcomeCorrect         Outcome = "correct"
	OutcomeIncorrect       Outcome = "incorrect"
	OutcomeUnknownQuestion Outcome = "unknown_question"
)

// Verdict is the graded result plus the text shown to the user.
type Verdict struct {
	Outcome Outcome
	Text    string
}

// Dialect is one supported quiz shape. Parse never fails: model output is
// untrusted and every malformed completion degrades to a documented
// default rather than an error.
type Dialect interface {
	// Name identifies the dialect on stored quiz records.
	Name() string
	// Instruction is the fixed generation prompt sent to the model.
	Instruction() string
	// Parse converts one completion into a quiz record and its rendering.
	// The rendering never contains the answer key.
	Parse(completion string) (chat.QuizRecord, string)
	// ExtractAnswer scans free text for an answer attempt. A missing
	// attempt is not an error; the caller falls through to QA routing.
	ExtractAnswer(input string) (Attempt, bool)
	// Grade compares an attempt against the record's answer key.
	Grade(rec chat.QuizRecord, at Attempt) Verdict
}

// New returns the dialect selected by configuration.
func New(name string, render RenderFunc) (Dialect, error) {
	switch name {
	case "single":
		return &SingleChoice{render: render}, nil
	case "multi":
		return &MultiQuestion{render: render}, nil
	default:
		return nil, fmt.Errorf("unknown quiz dialect %q", name)
	}
}

package chat

// QuizRecord holds the answer key for an outstanding quiz. Exactly one of
// the two shapes is populated, depending on the configured dialect:
// single-choice quizzes carry Options plus CorrectAnswer, multi-question
// quizzes carry AnswerKey. The key material is never serialized.
type QuizRecord struct {
	Dialect       string            `json:"dialect"`
	Question      string            `json:"question,omitempty"`
	Options       map[string]string `json:"options,omitempty"`
	CorrectAnswer string            `json:"-"`
	AnswerKey     map[int]string    `json:"-"`
}

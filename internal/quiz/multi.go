package quiz

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/mmaung/securitasbot/internal/model/chat"
)

const (
	multiName = "multi"

	multiInstruction = "Generate a single multiple-choice question on cybersecurity. " +
		"Provide **only the question text**. " +
		"Do NOT include the options, correct answer, hints, or any extra notes."
)

var (
	reKeyLine     = regexp.MustCompile(`^(\d+)\.\s*([a-dA-D1-5])`)
	reBareKeyLine = regexp.MustCompile(`^\d+\.\s*[a-dA-D1-5]\s*$`)

	// Tried in order; the first phrasing that matches wins.
	reAnswerOfN     = regexp.MustCompile(`(?i)the answer of\s*(\d+)\s*is\s*([a-d1-5])\b`)
	reTheAnswerIs   = regexp.MustCompile(`(?i)the answer\s*is\s*([a-d1-5])\b`)
	reAnswerColon   = regexp.MustCompile(`(?i)answer:\s*([a-d1-5])\b`)
	reBareAnswer = regexp.MustCompile(`(?i)\banswer\s+([a-d1-5])\b`)
)

// MultiQuestion is the number-to-letter answer-key dialect: every line of
// the completion is scanned for "<number>. <letter>" key declarations.
type MultiQuestion struct {
	render RenderFunc
}

func (d *MultiQuestion) Name() string { return multiName }

func (d *MultiQuestion) Instruction() string { return multiInstruction }

// Parse builds the answer key from key-shaped lines and hides the key
// from the rendered text. Only lines that consist of nothing but a key
// declaration are hidden; ambiguous lines stay visible.
func (d *MultiQuestion) Parse(completion string) (chat.QuizRecord, string) {
	answerKey := make(map[int]string)
	displayLines := make([]string, 0, 8)

	for _, line := range strings.Split(completion, "\n") {
		trimmed := strings.TrimSpace(line)
		if m := reKeyLine.FindStringSubmatch(trimmed); m != nil {
			num, err := strconv.Atoi(m[1])
			if err == nil {
				answerKey[num] = strings.ToLower(m[2])
			}
			if reBareKeyLine.MatchString(trimmed) {
				continue
			}
		}
		displayLines = append(displayLines, line)
	}

	if len(answerKey) == 0 {
		log.Printf("[quiz] no answer key lines found in completion")
	}

	rec := chat.QuizRecord{
		Dialect:   multiName,
		AnswerKey: answerKey,
	}

	rendered := fmt.Sprintf("<div class='quiz-block'>%s</div>", d.render(strings.Join(displayLines, "\n")))
	return rec, rendered
}

// ExtractAnswer tries the four accepted phrasings in priority order.
// Phrasings without a question number default to question 1.
func (d *MultiQuestion) ExtractAnswer(input string) (Attempt, bool) {
	if m := reAnswerOfN.FindStringSubmatch(input); m != nil {
		num, err := strconv.Atoi(m[1])
		if err != nil {
			num = 1
		}
		return Attempt{Question: num, Token: strings.ToLower(m[2])}, true
	}
	for _, re := range []*regexp.Regexp{reTheAnswerIs, reAnswerColon, reBareAnswer} {
		if m := re.FindStringSubmatch(input); m != nil {
			return Attempt{Question: 1, Token: strings.ToLower(m[1])}, true
		}
	}
	return Attempt{}, false
}

func (d *MultiQuestion) Grade(rec chat.QuizRecord, at Attempt) Verdict {
	key, ok := rec.AnswerKey[at.Question]
	if !ok || strings.TrimSpace(key) == "" {
		return Verdict{
			Outcome: OutcomeUnknownQuestion,
			Text:    fmt.Sprintf("⚠️ Could not find the correct answer for Question %d.", at.Question),
		}
	}

	if strings.EqualFold(strings.TrimSpace(at.Token), strings.TrimSpace(key)) {
		return Verdict{
			Outcome: OutcomeCorrect,
			Text:    fmt.Sprintf("✅ Correct! Question %d answer is <b>%s</b>.", at.Question, key),
		}
	}

	return Verdict{
		Outcome: OutcomeIncorrect,
		Text:    fmt.Sprintf("❌ Wrong! Question %d answer is <b>%s</b>.", at.Question, key),
	}
}

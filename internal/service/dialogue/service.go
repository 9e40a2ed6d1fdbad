// Package dialogue is the per-session orchestrator: it decides whether an
// inbound message answers a pending quiz, starts a new quiz, or is
// forwarded to the retrieval QA engine.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mmaung/securitasbot/internal/model/chat"
	"github.com/mmaung/securitasbot/internal/quiz"
	chatservice "github.com/mmaung/securitasbot/internal/service/chat"
)

// ErrEmptyPrompt rejects requests with nothing to answer.
var ErrEmptyPrompt = errors.New("no prompt provided")

// ErrSessionRequired mirrors the store's validation; sessions must be
// caller-identified, there is no shared default bucket.
var ErrSessionRequired = chatservice.ErrSessionRequired

// QAEngine is the external retrieval-augmented answering service.
type QAEngine interface {
	Ask(ctx context.Context, question string, history []chat.Turn) (string, error)
	AskStream(ctx context.Context, question string, history []chat.Turn, onChunk func(string)) (string, error)
}

// Completer is the direct language-model completion used for quiz
// generation.
type Completer interface {
	Complete(ctx context.Context, instruction string) (string, error)
}

// Reply is the rendered answer payload for one inbound message.
type Reply struct {
	Answer string
}

// Service drives the dialogue state machine for every session.
type Service struct {
	store     *chatservice.Store
	qa        QAEngine
	completer Completer
	dialect   quiz.Dialect
	render    quiz.RenderFunc
}

// NewService wires the orchestrator to its collaborators.
func NewService(store *chatservice.Store, qa QAEngine, completer Completer, dialect quiz.Dialect, render quiz.RenderFunc) *Service {
	return &Service{
		store:     store,
		qa:        qa,
		completer: completer,
		dialect:   dialect,
		render:    render,
	}
}

// HandleMessage routes one inbound message and returns the rendered
// answer. On any collaborator failure the session history is left
// untouched and the error is surfaced to the transport boundary.
func (s *Service) HandleMessage(ctx context.Context, sessionID, prompt string) (Reply, error) {
	return s.handle(ctx, sessionID, prompt, nil)
}

// StreamMessage is HandleMessage with QA completion chunks forwarded to
// onDelta as they arrive. Quiz turns resolve without streaming.
func (s *Service) StreamMessage(ctx context.Context, sessionID, prompt string, onDelta func(string)) (Reply, error) {
	return s.handle(ctx, sessionID, prompt, onDelta)
}

func (s *Service) handle(ctx context.Context, sessionID, prompt string, onDelta func(string)) (Reply, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Reply{}, ErrEmptyPrompt
	}

	var reply Reply
	err := s.store.Update(ctx, sessionID, func(view chatservice.SessionView) ([]chat.Message, chatservice.State, error) {
		if view.State == chatservice.StateAwaitingAnswer && view.ActiveQuiz != nil {
			if attempt, ok := s.dialect.ExtractAnswer(prompt); ok {
				verdict := s.dialect.Grade(*view.ActiveQuiz, attempt)
				log.Printf("[dialogue] graded quiz answer for session=%s: %s", sessionID, verdict.Outcome)

				reply.Answer = "<p>" + verdict.Text + "</p>"
				result := chat.Message{Role: chat.RoleAssistant, Content: verdict.Text, Kind: chat.KindPlain}
				return append(view.Messages, result), chatservice.StateIdle, nil
			}
			// No extractable token: fall through to trigger detection and QA.
		}

		// Loose substring trigger, documented behaviour: fires on any
		// prompt containing "quiz", even mid-sentence.
		if strings.Contains(strings.ToLower(prompt), "quiz") {
			completion, err := s.completer.Complete(ctx, s.dialect.Instruction())
			if err != nil {
				return nil, view.State, fmt.Errorf("quiz generation failed: %w", err)
			}

			rec, rendered := s.dialect.Parse(completion)
			log.Printf("[dialogue] started %s quiz for session=%s", s.dialect.Name(), sessionID)

			reply.Answer = rendered
			quizMsg := chat.Message{Role: chat.RoleAssistant, Content: rendered, Kind: chat.KindQuiz, Quiz: &rec}
			return append(view.Messages, quizMsg), chatservice.StateAwaitingAnswer, nil
		}

		answer, err := s.askQA(ctx, prompt, chat.Turns(view.Messages), onDelta)
		if err != nil {
			return nil, view.State, fmt.Errorf("qa engine failed: %w", err)
		}
		if strings.TrimSpace(answer) == "" {
			answer = "No answer."
		}

		html := s.render(answer)
		reply.Answer = html
		result := chat.Message{Role: chat.RoleAssistant, Content: html, Kind: chat.KindPlain}
		return append(view.Messages, result), chatservice.StateIdle, nil
	})
	if err != nil {
		return Reply{}, err
	}
	return reply, nil
}

func (s *Service) askQA(ctx context.Context, question string, history []chat.Turn, onDelta func(string)) (string, error) {
	if onDelta != nil {
		return s.qa.AskStream(ctx, question, history, onDelta)
	}
	return s.qa.Ask(ctx, question, history)
}

// Reset discards the session's history unconditionally.
func (s *Service) Reset(sessionID string) {
	s.store.Reset(sessionID)
}

// Package chat owns every session and its message history. Sessions are
// in-memory and live for the process lifetime; history beyond the
// retention window is dropped on each access.
package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmaung/securitasbot/internal/model/chat"
)

var (
	ErrSessionRequired = errors.New("session id is required")
	ErrSessionNotFound = errors.New("session not found")
)

// State is the dialogue state stored alongside a session's history and
// updated transactionally with it.
type State string

const (
	StateIdle           State = "idle"
	StateAwaitingAnswer State = "awaiting_answer"
)

// SessionView is the windowed, reconciled snapshot handed to an Update
// callback. Messages is a copy; mutations must be returned explicitly.
type SessionView struct {
	Messages   []chat.Message
	State      State
	ActiveQuiz *chat.QuizRecord
}

// UpdateFunc inspects a session view and returns the replacement history
// and state. Returning an error aborts the update with no mutation.
type UpdateFunc func(view SessionView) ([]chat.Message, State, error)

// Store holds all sessions. Each session carries its own lock so
// read-modify-write cycles serialize per session identifier while
// distinct sessions proceed concurrently.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*session
	window   time.Duration
}

type session struct {
	mu       sync.Mutex
	messages []chat.Message
	state    State
}

// NewStore creates a store pruning history to the given retention window.
func NewStore(window time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*session),
		window:   window,
	}
}

func (s *Store) get(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{state: StateIdle}
		s.sessions[id] = sess
	}
	return sess
}

// Update runs fn against the session's windowed history under the
// session's lock. The lock is held for the whole read-modify-write cycle,
// including any external calls fn makes. On success the returned messages
// replace the history (new messages are stamped with an id and creation
// time) and the returned state is stored; on error nothing changes.
func (s *Store) Update(ctx context.Context, id string, fn UpdateFunc) error {
	if id == "" {
		return ErrSessionRequired
	}

	sess := s.get(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	now := time.Now().UTC()
	recent := FilterRecent(sess.messages, now, s.window)

	view := SessionView{
		Messages: append([]chat.Message(nil), recent...),
		State:    sess.state,
	}
	view.ActiveQuiz = activeQuiz(recent)
	if view.State == StateAwaitingAnswer && view.ActiveQuiz == nil {
		// The pending quiz fell out of the window; it cannot be resurrected.
		view.State = StateIdle
	}

	messages, state, err := fn(view)
	if err != nil {
		return err
	}

	for i := range messages {
		if messages[i].ID == "" {
			messages[i].ID = uuid.NewString()
		}
		if messages[i].CreatedAt.IsZero() {
			messages[i].CreatedAt = now
		}
		if messages[i].Kind == "" {
			messages[i].Kind = chat.KindPlain
		}
		messages[i].SessionID = id
	}

	sess.messages = messages
	sess.state = state
	return nil
}

// History returns a copy of the session's stored messages, unwindowed.
func (s *Store) History(id string) ([]chat.Message, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return append([]chat.Message(nil), sess.messages...), nil
}

// State reports the session's stored dialogue state.
func (s *Store) State(id string) (State, bool) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return StateIdle, false
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state, true
}

// Reset discards the session's entire history unconditionally. Resetting
// an unknown session is a no-op.
func (s *Store) Reset(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// activeQuiz returns the most recent quiz-kind message's record, if any.
func activeQuiz(messages []chat.Message) *chat.QuizRecord {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Kind == chat.KindQuiz && messages[i].Quiz != nil {
			return messages[i].Quiz
		}
	}
	return nil
}

package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	modelchat "github.com/mmaung/securitasbot/internal/model/chat"
	"github.com/mmaung/securitasbot/internal/quiz"
	chatservice "github.com/mmaung/securitasbot/internal/service/chat"
	"github.com/mmaung/securitasbot/internal/service/dialogue"
)

type stubQA struct {
	answer string
	err    error
}

func (s *stubQA) Ask(_ context.Context, _ string, _ []modelchat.Turn) (string, error) {
	return s.answer, s.err
}

func (s *stubQA) AskStream(ctx context.Context, question string, history []modelchat.Turn, onChunk func(string)) (string, error) {
	answer, err := s.Ask(ctx, question, history)
	if err == nil {
		onChunk(answer)
	}
	return answer, err
}

type stubCompleter struct {
	completion string
	err        error
}

func (s *stubCompleter) Complete(_ context.Context, _ string) (string, error) {
	return s.completion, s.err
}

func setupRouter(t *testing.T, qa *stubQA, completer *stubCompleter) (*chi.Mux, *chatservice.Store) {
	t.Helper()
	dialect, err := quiz.New("single", func(s string) string { return s })
	if err != nil {
		t.Fatalf("quiz.New err: %v", err)
	}
	store := chatservice.NewStore(5 * time.Minute)
	svc := dialogue.NewService(store, qa, completer, dialect, func(s string) string { return s })
	handler := New(svc)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, store
}

func postJSON(t *testing.T, r http.Handler, path string, body map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestChatReturnsAnswer(t *testing.T) {
	r, _ := setupRouter(t, &stubQA{answer: "Keep your software patched."}, &stubCompleter{})

	resp := postJSON(t, r, "/chat", map[string]string{"prompt": "how do I stay safe?", "session_id": "s1"})

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body struct {
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if body.Answer != "Keep your software patched." {
		t.Fatalf("unexpected answer: %q", body.Answer)
	}
}

func TestChatEmptyPromptRejected(t *testing.T) {
	r, store := setupRouter(t, &stubQA{answer: "x"}, &stubCompleter{})

	resp := postJSON(t, r, "/chat", map[string]string{"prompt": "", "session_id": "s1"})

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "No prompt provided") {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
	if _, err := store.History("s1"); !errors.Is(err, chatservice.ErrSessionNotFound) {
		t.Fatal("rejected request must not create session state")
	}
}

func TestChatMissingSessionRejected(t *testing.T) {
	r, _ := setupRouter(t, &stubQA{answer: "x"}, &stubCompleter{})

	resp := postJSON(t, r, "/chat", map[string]string{"prompt": "hello"})

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "session_id is required") {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
}

func TestChatCollaboratorFailureReturnsFallback(t *testing.T) {
	r, _ := setupRouter(t, &stubQA{err: errors.New("engine down")}, &stubCompleter{})

	resp := postJSON(t, r, "/chat", map[string]string{"prompt": "what is malware?", "session_id": "s1"})

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	var body struct {
		Thinking string `json:"thinking"`
		Answer   string `json:"answer"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if !strings.Contains(body.Thinking, "engine down") {
		t.Fatalf("diagnostic payload missing failure detail: %q", body.Thinking)
	}
	if body.Answer != "<p>No answer.</p>" {
		t.Fatalf("expected fallback answer, got %q", body.Answer)
	}
}

func TestResetDiscardsHistory(t *testing.T) {
	r, store := setupRouter(t, &stubQA{answer: "x"}, &stubCompleter{})

	if resp := postJSON(t, r, "/chat", map[string]string{"prompt": "hello", "session_id": "s1"}); resp.Code != http.StatusOK {
		t.Fatalf("chat failed: %d", resp.Code)
	}

	resp := postJSON(t, r, "/reset", map[string]string{"session_id": "s1"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	if _, err := store.History("s1"); !errors.Is(err, chatservice.ErrSessionNotFound) {
		t.Fatal("expected session discarded after reset")
	}
}

func TestResetRequiresSessionID(t *testing.T) {
	r, _ := setupRouter(t, &stubQA{answer: "x"}, &stubCompleter{})

	resp := postJSON(t, r, "/reset", map[string]string{})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

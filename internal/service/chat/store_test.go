package chat_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	modelchat "github.com/mmaung/securitasbot/internal/model/chat"
	chatservice "github.com/mmaung/securitasbot/internal/service/chat"
)

func TestFilterRecentBoundsAndOrder(t *testing.T) {
	now := time.Now().UTC()
	window := 5 * time.Minute

	messages := []modelchat.Message{
		{Content: "expired", CreatedAt: now.Add(-10 * time.Minute)},
		{Content: "first", CreatedAt: now.Add(-4 * time.Minute)},
		{Content: "no timestamp"},
		{Content: "second", CreatedAt: now.Add(-time.Minute)},
	}

	got := chatservice.FilterRecent(messages, now, window)

	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
	if got[0].Content != "first" || got[1].Content != "second" {
		t.Fatalf("order not preserved: %v", got)
	}
	for _, m := range got {
		if m.CreatedAt.Before(now.Add(-window)) {
			t.Fatalf("message %q outside window", m.Content)
		}
	}

	again := chatservice.FilterRecent(got, now, window)
	if !reflect.DeepEqual(got, again) {
		t.Fatal("filtering is not idempotent")
	}
}

func TestUpdateStampsAppendedMessages(t *testing.T) {
	store := chatservice.NewStore(5 * time.Minute)
	ctx := context.Background()

	err := store.Update(ctx, "s1", func(view chatservice.SessionView) ([]modelchat.Message, chatservice.State, error) {
		if len(view.Messages) != 0 {
			t.Fatalf("expected empty view, got %d messages", len(view.Messages))
		}
		msg := modelchat.Message{Role: modelchat.RoleAssistant, Content: "hello"}
		return append(view.Messages, msg), chatservice.StateIdle, nil
	})
	if err != nil {
		t.Fatalf("Update err: %v", err)
	}

	history, err := store.History("s1")
	if err != nil {
		t.Fatalf("History err: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 message, got %d", len(history))
	}
	if history[0].ID == "" || history[0].CreatedAt.IsZero() {
		t.Fatalf("message not stamped: %+v", history[0])
	}
	if history[0].SessionID != "s1" {
		t.Fatalf("unexpected session id %q", history[0].SessionID)
	}
	if history[0].Kind != modelchat.KindPlain {
		t.Fatalf("expected plain kind default, got %q", history[0].Kind)
	}
}

func TestUpdateErrorLeavesSessionUntouched(t *testing.T) {
	store := chatservice.NewStore(5 * time.Minute)
	ctx := context.Background()

	seed := func(view chatservice.SessionView) ([]modelchat.Message, chatservice.State, error) {
		return append(view.Messages, modelchat.Message{Role: modelchat.RoleAssistant, Content: "kept"}), chatservice.StateIdle, nil
	}
	if err := store.Update(ctx, "s1", seed); err != nil {
		t.Fatalf("seed err: %v", err)
	}

	boom := errors.New("collaborator failed")
	err := store.Update(ctx, "s1", func(view chatservice.SessionView) ([]modelchat.Message, chatservice.State, error) {
		return nil, chatservice.StateAwaitingAnswer, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}

	history, err := store.History("s1")
	if err != nil {
		t.Fatalf("History err: %v", err)
	}
	if len(history) != 1 || history[0].Content != "kept" {
		t.Fatalf("history mutated on error: %v", history)
	}
	if state, _ := store.State("s1"); state != chatservice.StateIdle {
		t.Fatalf("state mutated on error: %s", state)
	}
}

func TestUpdateRequiresSessionID(t *testing.T) {
	store := chatservice.NewStore(5 * time.Minute)

	err := store.Update(context.Background(), "", func(view chatservice.SessionView) ([]modelchat.Message, chatservice.State, error) {
		t.Fatal("callback must not run without a session id")
		return nil, chatservice.StateIdle, nil
	})
	if !errors.Is(err, chatservice.ErrSessionRequired) {
		t.Fatalf("expected ErrSessionRequired, got %v", err)
	}
}

func TestUpdateReconcilesExpiredQuizState(t *testing.T) {
	store := chatservice.NewStore(5 * time.Minute)
	ctx := context.Background()

	err := store.Update(ctx, "s1", func(view chatservice.SessionView) ([]modelchat.Message, chatservice.State, error) {
		msg := modelchat.Message{
			Role:      modelchat.RoleAssistant,
			Content:   "old quiz",
			Kind:      modelchat.KindQuiz,
			Quiz:      &modelchat.QuizRecord{Dialect: "single", CorrectAnswer: "a"},
			CreatedAt: time.Now().UTC().Add(-10 * time.Minute),
		}
		return append(view.Messages, msg), chatservice.StateAwaitingAnswer, nil
	})
	if err != nil {
		t.Fatalf("seed err: %v", err)
	}

	err = store.Update(ctx, "s1", func(view chatservice.SessionView) ([]modelchat.Message, chatservice.State, error) {
		if view.State != chatservice.StateIdle {
			t.Fatalf("expected reconciled idle state, got %s", view.State)
		}
		if view.ActiveQuiz != nil {
			t.Fatal("expired quiz must not be active")
		}
		if len(view.Messages) != 0 {
			t.Fatalf("expired messages still visible: %v", view.Messages)
		}
		return view.Messages, view.State, nil
	})
	if err != nil {
		t.Fatalf("Update err: %v", err)
	}
}

func TestResetDiscardsSession(t *testing.T) {
	store := chatservice.NewStore(5 * time.Minute)
	ctx := context.Background()

	err := store.Update(ctx, "s1", func(view chatservice.SessionView) ([]modelchat.Message, chatservice.State, error) {
		return append(view.Messages, modelchat.Message{Role: modelchat.RoleAssistant, Content: "x"}), chatservice.StateIdle, nil
	})
	if err != nil {
		t.Fatalf("Update err: %v", err)
	}

	store.Reset("s1")

	if _, err := store.History("s1"); !errors.Is(err, chatservice.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after reset, got %v", err)
	}
}

func TestConcurrentUpdatesSameSessionSerialize(t *testing.T) {
	store := chatservice.NewStore(5 * time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Update(ctx, "shared", func(view chatservice.SessionView) ([]modelchat.Message, chatservice.State, error) {
				time.Sleep(time.Millisecond)
				return append(view.Messages, modelchat.Message{Role: modelchat.RoleAssistant, Content: "turn"}), chatservice.StateIdle, nil
			})
			if err != nil {
				t.Errorf("Update err: %v", err)
			}
		}()
	}
	wg.Wait()

	history, err := store.History("shared")
	if err != nil {
		t.Fatalf("History err: %v", err)
	}
	if len(history) != 8 {
		t.Fatalf("lost updates: expected 8 messages, got %d", len(history))
	}
}

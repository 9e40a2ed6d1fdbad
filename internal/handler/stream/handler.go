package stream

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/mmaung/securitasbot/internal/service/dialogue"
	"github.com/mmaung/securitasbot/pkg/utils"
)

// Handler streams assistant output over Server-Sent Events.
type Handler struct {
	dialogueSvc *dialogue.Service
}

// New creates a new stream handler.
func New(dialogueSvc *dialogue.Service) *Handler {
	return &Handler{dialogueSvc: dialogueSvc}
}

// StreamResponse is one SSE chunk.
type StreamResponse struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HandleStreamRequest routes one message and streams the outcome. Quiz
// turns resolve in a single message event; QA-routed turns stream raw
// deltas first, then the final rendered answer.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:     "start",
		SessionID: sessionID,
	})

	reply, err := h.dialogueSvc.StreamMessage(ctx, sessionID, userMessage, func(chunk string) {
		utils.SendSSEChunk(w, flusher, StreamResponse{
			Event:     "delta",
			SessionID: sessionID,
			Content:   chunk,
		})
	})
	if err != nil {
		utils.SendSSEChunk(w, flusher, StreamResponse{
			Event: "error",
			Error: err.Error(),
		})
		return err
	}

	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:     "message",
		SessionID: sessionID,
		Content:   reply.Answer,
	})
	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:     "end",
		SessionID: sessionID,
		Finished:  true,
	})

	log.Printf("[sse] completed response for session=%s", sessionID)
	return nil
}

// ServeHTTP validates query parameters and hands off to the stream loop.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	userMessage := r.URL.Query().Get("message")

	if sessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "session_id query parameter is required")
		return
	}
	if userMessage == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	if err := h.HandleStreamRequest(r.Context(), w, sessionID, userMessage); err != nil {
		if errors.Is(err, dialogue.ErrEmptyPrompt) || errors.Is(err, dialogue.ErrSessionRequired) {
			return
		}
		log.Printf("[sse] error handling request: %v", err)
	}
}

package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmaung/securitasbot/internal/service/dialogue"
	"github.com/mmaung/securitasbot/pkg/utils"
)

// Handler serves the chat and reset operations.
type Handler struct {
	dialogueSvc *dialogue.Service
}

// New creates the chat handler.
func New(dialogueSvc *dialogue.Service) *Handler {
	return &Handler{dialogueSvc: dialogueSvc}
}

// RegisterRoutes mounts the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Post("/reset", h.handleReset)
}

type chatRequest struct {
	Prompt    string `json:"prompt"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	Answer string `json:"answer"`
}

// fallbackResponse is returned on collaborator failure: the caller always
// receives a renderable answer, plus a diagnostic payload.
type fallbackResponse struct {
	Thinking string `json:"thinking"`
	Answer   string `json:"answer"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chatRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.dialogueSvc.HandleMessage(r.Context(), payload.SessionID, payload.Prompt)
	switch {
	case errors.Is(err, dialogue.ErrEmptyPrompt):
		utils.RespondError(w, http.StatusBadRequest, "No prompt provided")
		return
	case errors.Is(err, dialogue.ErrSessionRequired):
		utils.RespondError(w, http.StatusBadRequest, "session_id is required")
		return
	case err != nil:
		log.Printf("[chat] message handling failed for session=%s: %v", payload.SessionID, err)
		utils.RespondJSON(w, http.StatusInternalServerError, fallbackResponse{
			Thinking: fmt.Sprintf("🤖 <think> Error: %v </think>", err),
			Answer:   "<p>No answer.</p>",
		})
		return
	}

	utils.RespondJSON(w, http.StatusOK, chatResponse{Answer: reply.Answer})
}

type resetRequest struct {
	SessionID string `json:"session_id"`
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	var payload resetRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.SessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	h.dialogueSvc.Reset(payload.SessionID)
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

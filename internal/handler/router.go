package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mmaung/securitasbot/internal/config"
	chatHandler "github.com/mmaung/securitasbot/internal/handler/chat"
	streamHandler "github.com/mmaung/securitasbot/internal/handler/stream"
	middlewarePkg "github.com/mmaung/securitasbot/internal/middleware"
	"github.com/mmaung/securitasbot/internal/service/dialogue"
	"github.com/mmaung/securitasbot/pkg/utils"
)

// NewRouter wires HTTP routes to the dialogue service.
func NewRouter(dialogueSvc *dialogue.Service, serverCfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(serverCfg.AllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		chatHandler.New(dialogueSvc).RegisterRoutes(api)
		api.Get("/stream", streamHandler.New(dialogueSvc).ServeHTTP)
	})

	return r
}

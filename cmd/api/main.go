package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mmaung/securitasbot/internal/config"
	"github.com/mmaung/securitasbot/internal/handler"
	"github.com/mmaung/securitasbot/internal/quiz"
	"github.com/mmaung/securitasbot/internal/service/ai"
	chatservice "github.com/mmaung/securitasbot/internal/service/chat"
	"github.com/mmaung/securitasbot/internal/service/dialogue"
	"github.com/mmaung/securitasbot/pkg/markup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	aiSvc, err := ai.NewService(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("failed to initialize AI service: %v", err)
	}
	log.Printf("AI service initialized, model=%s, retrieval_k=%d", cfg.AI.Model, cfg.AI.RetrievalK)

	dialect, err := quiz.New(cfg.Chat.QuizDialect, markup.ToHTML)
	if err != nil {
		log.Fatalf("failed to select quiz dialect: %v", err)
	}
	log.Printf("quiz dialect: %s", dialect.Name())

	store := chatservice.NewStore(cfg.Chat.HistoryWindow)
	dialogueSvc := dialogue.NewService(store, aiSvc, aiSvc, dialect, markup.ToHTML)

	router := handler.NewRouter(dialogueSvc, cfg.Server)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("SecuritasBot backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Package ai adapts the retrieval-augmented QA engine and the raw
// completion model behind the contracts the dialogue layer consumes.
package ai

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
	"github.com/tmc/langchaingo/vectorstores/chroma"

	"github.com/mmaung/securitasbot/internal/config"
	"github.com/mmaung/securitasbot/internal/model/chat"
)

const qaPromptTemplate = `Answer the question based on the context below.

- Short to the main point
- Relevant and reasonable answer
- Human readable and understandable
- Explain using an example for the main point related to the question if possible
- Do not show source links or website links

Context:
%s`

// Service wraps the Ollama chat model and the Chroma retriever.
type Service struct {
	llm         llms.Model
	retriever   schema.Retriever
	temperature float64
	timeout     time.Duration
}

// NewService connects to the Ollama host and the Chroma vector store.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	llm, err := ollama.New(
		ollama.WithModel(cfg.Model),
		ollama.WithServerURL(cfg.Host),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	embedderLLM, err := ollama.New(
		ollama.WithModel(cfg.EmbeddingModel),
		ollama.WithServerURL(cfg.Host),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding model: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(embedderLLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	store, err := chroma.New(
		chroma.WithChromaURL(cfg.ChromaURL),
		chroma.WithEmbedder(embedder),
		chroma.WithNameSpace(cfg.Collection),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chroma at %s: %w", cfg.ChromaURL, err)
	}

	return &Service{
		llm:         llm,
		retriever:   vectorstores.ToRetriever(store, cfg.RetrievalK),
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}, nil
}

// Ask answers a question against the retrieved context, with the session
// history as conversational context. No retries.
func (s *Service) Ask(ctx context.Context, question string, history []chat.Turn) (string, error) {
	return s.ask(ctx, question, history, nil)
}

// AskStream is Ask with raw completion chunks forwarded to onChunk.
func (s *Service) AskStream(ctx context.Context, question string, history []chat.Turn, onChunk func(string)) (string, error) {
	return s.ask(ctx, question, history, onChunk)
}

func (s *Service) ask(ctx context.Context, question string, history []chat.Turn, onChunk func(string)) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	docs, err := s.retriever.GetRelevantDocuments(ctx, question)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve context: %w", err)
	}

	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.TextParts(schema.ChatMessageTypeSystem, fmt.Sprintf(qaPromptTemplate, formatContext(docs))))
	for _, turn := range history {
		role := schema.ChatMessageTypeHuman
		if turn.Role == chat.RoleAssistant {
			role = schema.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, turn.Content))
	}
	messages = append(messages, llms.TextParts(schema.ChatMessageTypeHuman, question))

	opts := []llms.CallOption{llms.WithTemperature(s.temperature)}
	if onChunk != nil {
		opts = append(opts, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			onChunk(string(chunk))
			return nil
		}))
	}

	resp, err := s.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}

	answer := resp.Choices[0].Content
	log.Printf("[ai] answered question, context_docs=%d, length=%d", len(docs), len(answer))
	return answer, nil
}

// Complete runs one raw completion, used only for quiz generation.
func (s *Service) Complete(ctx context.Context, instruction string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	completion, err := llms.GenerateFromSinglePrompt(ctx, s.llm, instruction, llms.WithTemperature(s.temperature))
	if err != nil {
		return "", fmt.Errorf("failed to generate completion: %w", err)
	}
	return completion, nil
}

func formatContext(docs []schema.Document) string {
	if len(docs) == 0 {
		return "No relevant documents found."
	}
	parts := lo.Map(docs, func(d schema.Document, _ int) string {
		return strings.TrimSpace(d.PageContent)
	})
	return strings.Join(parts, "\n\n")
}

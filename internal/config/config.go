package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every runtime setting for the service.
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Chat   ChatConfig
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Chat: chat}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	origins := strings.Split(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" verbatim.
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

// AIConfig describes the Ollama model endpoints and the retrieval layer.
type AIConfig struct {
	Host           string
	Model          string
	EmbeddingModel string
	ChromaURL      string
	Collection     string
	RetrievalK     int
	Temperature    float64
	Timeout        time.Duration
}

func loadAIConfig() (AIConfig, error) {
	model := strings.TrimSpace(os.Getenv("LLM_MODEL"))
	if model == "" {
		return AIConfig{}, fmt.Errorf("LLM_MODEL is required")
	}

	embeddingModel := strings.TrimSpace(os.Getenv("EMBEDDING_MODEL"))
	if embeddingModel == "" {
		return AIConfig{}, fmt.Errorf("EMBEDDING_MODEL is required")
	}

	k := 4
	if override, err := parseOptionalIntEnv("RETRIEVAL_K"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return AIConfig{}, fmt.Errorf("RETRIEVAL_K must be positive, got %d", *override)
		}
		k = *override
	}

	temperature := 0.3
	if override, err := parseOptionalFloatEnv("OLLAMA_TEMPERATURE"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		temperature = *override
	}

	// The upstream calls carry no timeout of their own; every collaborator
	// call runs under this deadline.
	timeoutSeconds := 60
	if override, err := parseOptionalIntEnv("OLLAMA_TIMEOUT_SECONDS"); err != nil {
		return AIConfig{}, err
	} else if override != nil && *override > 0 {
		timeoutSeconds = *override
	}

	return AIConfig{
		Host:           getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434"),
		Model:          model,
		EmbeddingModel: embeddingModel,
		ChromaURL:      getEnvOrDefault("CHROMA_URL", "http://localhost:8000"),
		Collection:     getEnvOrDefault("CHROMA_COLLECTION", "securitas_docs"),
		RetrievalK:     k,
		Temperature:    temperature,
		Timeout:        time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// ChatConfig describes dialogue behaviour.
type ChatConfig struct {
	HistoryWindow time.Duration
	QuizDialect   string
}

func loadChatConfig() (ChatConfig, error) {
	windowSeconds := 300
	if override, err := parseOptionalIntEnv("HISTORY_WINDOW_SECONDS"); err != nil {
		return ChatConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return ChatConfig{}, fmt.Errorf("HISTORY_WINDOW_SECONDS must be positive, got %d", *override)
		}
		windowSeconds = *override
	}

	dialect := getEnvOrDefault("QUIZ_DIALECT", "single")
	switch dialect {
	case "single", "multi":
	default:
		return ChatConfig{}, fmt.Errorf("invalid QUIZ_DIALECT value %q: want single or multi", dialect)
	}

	return ChatConfig{
		HistoryWindow: time.Duration(windowSeconds) * time.Second,
		QuizDialect:   dialect,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

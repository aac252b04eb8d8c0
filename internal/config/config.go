// Package config loads the process-lifetime Settings value (C1): proxy
// endpoints, model names, retrieval tuning, and timeouts. It also provides
// the secret-loading helper LoadSecret; Load does not call it, and inbound
// bearer tokens are forwarded to the proxy without being checked against a
// stored secret.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Settings is the immutable configuration value for the whole pipeline.
// It is constructed once and handed to Dependencies; nothing mutates it
// after Load returns.
type Settings struct {
	// LLM proxy (OpenAI-compatible): chat/completions, embeddings, responses.
	ProxyHost string
	ProxyPort int

	EmbeddingModel     string
	EmbeddingDimension map[string]int

	CompletionModel       string
	ResponsesModelPattern string // substring match against CompletionModel selects the responses API

	// Retrieval tuning.
	RetrievalTopN       int
	SimilarityFloor     *float64
	CollectionName      string
	VectorStoreURL      string

	// MaxQueryLength bounds the caller-supplied query body; requests over
	// this many characters are rejected with a 422 before any stage runs.
	MaxQueryLength int

	// MCP tool service.
	MCPServiceURL string

	// Reporting / behavior flags.
	EnableUsageReporting bool
	AllowDevFallbackToken bool
	JudgeFailOpen         bool

	// Timeouts for each upstream call the pipeline makes.
	EmbeddingTimeout time.Duration
	VectorSearchTimeout time.Duration
	LLMCallTimeout      time.Duration
	ToolCallTimeout     time.Duration
	RequestTimeout      time.Duration

	// Tool-call loop bound for the synthesis agent.
	MaxToolCalls int

	// MCP assembly fan-out concurrency bound.
	MCPFanoutConcurrency int

	// Notes-domain description used by the input guardrail's prompt.
	NotesDomainDescription string
	// NotesDomainDescriptionFile, if it exists, is watched for changes and
	// hot-reloads NotesDomainDescription in dev mode (Debug == true).
	NotesDomainDescriptionFile string

	Debug bool
}

// EmbeddingDim returns the configured dimension for the configured
// embedding model, or 0 if unknown.
func (s *Settings) EmbeddingDim() int {
	return s.EmbeddingDimension[s.EmbeddingModel]
}

// UsesResponsesAPI reports whether the completion model name matches the
// configured responses-API pattern, selecting the responses transport over
// chat-completions.
func (s *Settings) UsesResponsesAPI() bool {
	if s.ResponsesModelPattern == "" {
		return false
	}
	return contains(s.CompletionModel, s.ResponsesModelPattern)
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

// Load builds Settings from an optional .env file followed by the process
// environment: it tries a short list of .env paths before falling back to
// whatever is already in the environment.
func Load() *Settings {
	envPaths := []string{"config/.env", ".env"}
	loaded := false
	for _, p := range envPaths {
		if _, err := os.Stat(p); err == nil {
			if err := godotenv.Load(p); err == nil {
				loaded = true
				break
			}
		}
	}
	if !loaded {
		logrus.Debug("no .env file found, relying on process environment")
	}

	embeddingModel := getEnv("EMBEDDING_MODEL", "text-embedding-3-small")
	embeddingDims := map[string]int{
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
	}
	embeddingDims[embeddingModel] = getEnvAsInt("EMBEDDING_DIMENSION", embeddingDims[embeddingModel])

	return &Settings{
		ProxyHost: getEnv("PROXY_HOST", "localhost"),
		ProxyPort: getEnvAsInt("PROXY_PORT", 4000),

		EmbeddingModel:     embeddingModel,
		EmbeddingDimension: embeddingDims,

		CompletionModel:       getEnv("COMPLETION_MODEL", "gpt-4o-mini"),
		ResponsesModelPattern: getEnv("RESPONSES_MODEL_PATTERN", "responses"),

		RetrievalTopN:   getEnvAsInt("RETRIEVAL_TOP_N", 5),
		SimilarityFloor: getEnvAsFloatPtr("SIMILARITY_FLOOR"),
		CollectionName:  getEnv("VECTOR_DB_COLLECTION", "noteplan_notes"),
		VectorStoreURL:  getEnv("VECTOR_DB_URL", "http://localhost:6333"),
		MaxQueryLength:  getEnvAsInt("MAX_QUERY_LENGTH", 4000),

		MCPServiceURL: getEnv("MCP_URL", "http://localhost:8000"),

		EnableUsageReporting:  getEnvAsBool("ENABLE_USAGE_REPORTING", true),
		AllowDevFallbackToken: getEnvAsBool("ALLOW_DEV_FALLBACK_TOKEN", false),
		JudgeFailOpen:         getEnvAsBool("JUDGE_FAIL_OPEN", true),

		EmbeddingTimeout:    getEnvAsDuration("EMBEDDING_TIMEOUT", 30*time.Second),
		VectorSearchTimeout: getEnvAsDuration("VECTOR_SEARCH_TIMEOUT", 15*time.Second),
		LLMCallTimeout:      getEnvAsDuration("LLM_CALL_TIMEOUT", 120*time.Second),
		ToolCallTimeout:     getEnvAsDuration("TOOL_CALL_TIMEOUT", 10*time.Second),
		RequestTimeout:      getEnvAsDuration("REQUEST_TIMEOUT", 180*time.Second),

		MaxToolCalls:         getEnvAsInt("MAX_TOOL_CALLS", 8),
		MCPFanoutConcurrency: getEnvAsInt("MCP_FANOUT_CONCURRENCY", 4),

		NotesDomainDescription: getEnv(
			"NOTES_DOMAIN_DESCRIPTION",
			"a personal NotePlan markdown notes corpus covering tasks, daily logs, and topical notes",
		),
		NotesDomainDescriptionFile: getEnv("NOTES_DOMAIN_DESCRIPTION_FILE", "notes-domain.yaml"),

		Debug: getEnvAsBool("DEBUG", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func getEnvAsFloatPtr(key string) *float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return &v
	}
	return nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

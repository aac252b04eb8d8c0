package deps_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/omars-lab/knowledge-agents/internal/config"
	"github.com/omars-lab/knowledge-agents/internal/deps"
)

func TestNewConstructsEveryDependency(t *testing.T) {
	settings := &config.Settings{
		ProxyHost:            "localhost",
		ProxyPort:            4000,
		EmbeddingModel:       "text-embedding-3-small",
		EmbeddingDimension:   map[string]int{"text-embedding-3-small": 1536},
		CompletionModel:      "gpt-4o-mini",
		VectorStoreURL:       "http://localhost:6333",
		MCPServiceURL:        "http://localhost:8000",
		MCPFanoutConcurrency: 4,
		EmbeddingTimeout:     time.Second,
		VectorSearchTimeout:  time.Second,
		LLMCallTimeout:       time.Second,
		ToolCallTimeout:      time.Second,
		RequestTimeout:       time.Second,
	}

	dependencies := deps.New(settings)

	assert.Same(t, settings, dependencies.Settings)
	assert.NotNil(t, dependencies.Embeddings)
	assert.NotNil(t, dependencies.VectorStore)
	assert.NotNil(t, dependencies.LLMClient)
	assert.NotNil(t, dependencies.MCPClient)
	assert.NotNil(t, dependencies.Retriever)
	assert.NotNil(t, dependencies.InputGuardrail)
	assert.NotNil(t, dependencies.OutputGuardrail)
	assert.NotNil(t, dependencies.Synthesizer)
	assert.NotNil(t, dependencies.Assembler)
	assert.NotNil(t, dependencies.StreamStatus)
	assert.NotNil(t, dependencies.DomainWatcher)
}

// Package deps implements C2: a single, eagerly-constructed container of
// every process-lifetime client the pipeline needs. There is no lazy
// loading and no global state; everything is built once in New and handed
// down explicitly.
package deps

import (
	"github.com/omars-lab/knowledge-agents/internal/assembler"
	"github.com/omars-lab/knowledge-agents/internal/config"
	"github.com/omars-lab/knowledge-agents/internal/embeddings"
	"github.com/omars-lab/knowledge-agents/internal/guardrail"
	"github.com/omars-lab/knowledge-agents/internal/llmclient"
	"github.com/omars-lab/knowledge-agents/internal/mcptool"
	"github.com/omars-lab/knowledge-agents/internal/retrieval"
	"github.com/omars-lab/knowledge-agents/internal/streamstatus"
	"github.com/omars-lab/knowledge-agents/internal/synthesis"
	"github.com/omars-lab/knowledge-agents/internal/vectorstore"
)

// Dependencies bundles every client and stage the note query pipeline uses.
type Dependencies struct {
	Settings *config.Settings

	Embeddings  *embeddings.Client
	VectorStore *vectorstore.Client
	LLMClient   llmclient.Client
	MCPClient   *mcptool.Client

	Retriever       *retrieval.Retriever
	InputGuardrail  *guardrail.InputGuardrail
	OutputGuardrail *guardrail.OutputGuardrail
	Synthesizer     *synthesis.Synthesizer
	Assembler       *assembler.Assembler

	StreamStatus  *streamstatus.Broadcaster
	DomainWatcher *config.DomainWatcher
}

// New constructs every dependency eagerly from settings. Nothing here
// performs network I/O beyond what http.Client's zero value implies; actual
// calls happen only when the pipeline runs a request.
func New(settings *config.Settings) *Dependencies {
	embeddingClient := embeddings.New(settings)
	vectorStoreClient := vectorstore.New(settings)
	llmClient := llmclient.New(settings)
	mcpClient := mcptool.New(settings)

	domainFile := ""
	if settings.Debug {
		domainFile = settings.NotesDomainDescriptionFile
	}
	domainWatcher := config.NewDomainWatcher(domainFile, settings.NotesDomainDescription)

	mcpTool := llmclient.Tool{
		Name:        "derive_xcallback_url_from_noteplan_file",
		Description: "Resolve the noteplan:// x-callback-url that opens a given note file directly in NotePlan.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"file_path": map[string]any{"type": "string"},
			},
			"required": []string{"file_path"},
		},
		Handler: mcpClient.AsTool,
	}

	return &Dependencies{
		Settings: settings,

		Embeddings:  embeddingClient,
		VectorStore: vectorStoreClient,
		LLMClient:   llmClient,
		MCPClient:   mcpClient,

		Retriever:       retrieval.New(settings, embeddingClient, vectorStoreClient),
		InputGuardrail:  guardrail.NewInputWithDomainProvider(llmClient, domainWatcher),
		OutputGuardrail: guardrail.NewOutput(settings, llmClient),
		Synthesizer:     synthesis.New(llmClient, []llmclient.Tool{mcpTool}, settings.MaxToolCalls),
		Assembler:       assembler.New(settings, mcpClient),

		StreamStatus:  streamstatus.New(),
		DomainWatcher: domainWatcher,
	}
}

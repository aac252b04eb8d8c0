// Package assembler implements C11: joining a synthesis result back into a
// full NoteQueryResponse, resolving x-callback-url links for cited files on
// a best-effort basis, and building the response headers.
package assembler

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/omars-lab/knowledge-agents/internal/config"
	"github.com/omars-lab/knowledge-agents/internal/llmclient"
	"github.com/omars-lab/knowledge-agents/internal/models"
)

// LinkResolver derives a noteplan:// x-callback-url for one file path.
type LinkResolver interface {
	DeriveXCallbackURL(ctx context.Context, filePath string) (string, error)
}

// Assembler builds the final response and its headers.
type Assembler struct {
	linkResolver     LinkResolver
	fanoutConcurrency int
	reportUsage      bool
}

// New builds an Assembler from Settings and the MCP link resolver.
func New(settings *config.Settings, linkResolver LinkResolver) *Assembler {
	concurrency := settings.MCPFanoutConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Assembler{
		linkResolver:      linkResolver,
		fanoutConcurrency: concurrency,
		reportUsage:       settings.EnableUsageReporting,
	}
}

// Input bundles everything the assembler needs from earlier pipeline stages.
type Input struct {
	Query             models.Query
	Retrieval         models.RetrievalResult
	Answer            models.AgentAnswer
	Usage             models.UsageReport
	Raw               llmclient.RawHandle
	GuardrailsTripped []models.GuardrailIdentifier
	QueryAnswered     bool
	GenerationTime    time.Duration
}

// Assemble joins cited files back to their full NoteReference records
// (resolving x-callback-url links concurrently, best-effort), and produces
// both the JSON response body and the headers that accompany it.
func (a *Assembler) Assemble(ctx context.Context, in Input) (models.NoteQueryResponse, http.Header) {
	byPath := make(map[string]models.NoteReference, len(in.Retrieval.References))
	for _, ref := range in.Retrieval.References {
		byPath[ref.FilePath] = ref
	}

	cited := make([]models.NoteReference, 0, len(in.Answer.CitedFilePaths))
	for _, path := range in.Answer.CitedFilePaths {
		if ref, ok := byPath[path]; ok {
			cited = append(cited, ref)
		}
	}
	sort.Slice(cited, func(i, j int) bool {
		if cited[i].SimilarityScore != cited[j].SimilarityScore {
			return cited[i].SimilarityScore > cited[j].SimilarityScore
		}
		return cited[i].FilePath < cited[j].FilePath
	})

	a.resolveLinks(ctx, cited)

	guardrailsTripped := in.GuardrailsTripped
	if guardrailsTripped == nil {
		guardrailsTripped = []models.GuardrailIdentifier{}
	}

	response := models.NoteQueryResponse{
		RequestID:         in.Query.RequestID,
		Answer:            in.Answer.Answer,
		Reasoning:         in.Answer.Reasoning,
		RelevantFiles:     cited,
		OriginalQuery:     in.Query.Text,
		QueryAnswered:     in.QueryAnswered,
		GuardrailsTripped: guardrailsTripped,
	}

	return response, a.buildHeaders(in)
}

// resolveLinks fills in XCallbackURL for each cited reference, bounded to
// fanoutConcurrency simultaneous MCP calls. A failed lookup leaves
// XCallbackURL empty rather than failing the request.
func (a *Assembler) resolveLinks(ctx context.Context, refs []models.NoteReference) {
	if a.linkResolver == nil || len(refs) == 0 {
		return
	}

	sem := make(chan struct{}, a.fanoutConcurrency)
	var wg sync.WaitGroup
	for i := range refs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			url, err := a.linkResolver.DeriveXCallbackURL(ctx, refs[i].FilePath)
			if err == nil {
				refs[i].XCallbackURL = url
			}
		}(i)
	}
	wg.Wait()
}

func (a *Assembler) buildHeaders(in Input) http.Header {
	h := http.Header{}
	h.Set("X-Request-Id", in.Query.RequestID)
	h.Set("X-Model-Name", in.Raw.ModelName)
	h.Set("X-Api-Type", in.Raw.APIType)
	h.Set("X-Generation-Time-Seconds", fmt.Sprintf("%.3f", in.GenerationTime.Seconds()))

	if !a.reportUsage {
		return h
	}
	if in.Usage.InputTokens != nil {
		h.Set("X-Input-Tokens", strconv.Itoa(*in.Usage.InputTokens))
	}
	if in.Usage.OutputTokens != nil {
		h.Set("X-Output-Tokens", strconv.Itoa(*in.Usage.OutputTokens))
	}
	if in.Usage.TotalTokens != nil {
		h.Set("X-Total-Tokens", strconv.Itoa(*in.Usage.TotalTokens))
	}
	return h
}

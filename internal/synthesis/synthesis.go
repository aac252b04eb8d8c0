// Package synthesis implements C9: the core agent call that turns retrieved
// note references and a user query into a cited answer, with one corrective
// retry if the model cites files outside the retrieved set.
package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/omars-lab/knowledge-agents/internal/apperr"
	"github.com/omars-lab/knowledge-agents/internal/llmclient"
	"github.com/omars-lab/knowledge-agents/internal/models"
)

// Synthesizer drives the LLM to produce a grounded, cited answer.
type Synthesizer struct {
	client       llmclient.Client
	tools        []llmclient.Tool
	maxToolCalls int
}

// New builds a Synthesizer bound to client and the tools the agent may call
// (typically the MCP x-callback-url resolver). maxToolCalls bounds each
// Complete call's tool-call loop; 0 falls back to a safe default.
func New(client llmclient.Client, tools []llmclient.Tool, maxToolCalls int) *Synthesizer {
	if maxToolCalls <= 0 {
		maxToolCalls = 8
	}
	return &Synthesizer{client: client, tools: tools, maxToolCalls: maxToolCalls}
}

type synthesisOutput struct {
	Answer         string   `json:"answer"`
	Reasoning      string   `json:"reasoning"`
	CitedFilePaths []string `json:"cited_file_paths"`
}

// Result bundles the agent's answer with usage/trace metadata the assembler
// needs for response headers.
type Result struct {
	Answer models.AgentAnswer
	Usage  models.UsageReport
	Raw    llmclient.RawHandle
	Trace  []llmclient.ToolCall
}

// Synthesize answers query using retrieval as the only citable evidence. If
// the model cites a file path outside retrieval on its first attempt, it is
// given one corrective retry naming the violation; a second violation
// produces an AgentOutputError.
func (s *Synthesizer) Synthesize(ctx context.Context, apiToken, query string, retrieval models.RetrievalResult) (Result, error) {
	allowed := make(map[string]bool, len(retrieval.References))
	var catalogue strings.Builder
	for _, ref := range retrieval.References {
		allowed[ref.FilePath] = true
		fmt.Fprintf(&catalogue, "- %s (modified %s, similarity %.4f)\n", ref.FilePath, ref.ModifiedAt.Format("2006-01-02"), ref.SimilarityScore)
	}

	systemPrompt := "You answer questions about the user's personal notes using only the files listed below as " +
		"evidence. Cite every file path you rely on in cited_file_paths, and never cite a file that is not in " +
		"the list. Respond only as JSON matching {\"answer\": string, \"reasoning\": string, " +
		"\"cited_file_paths\": [string]}.\n\nAvailable files:\n" + catalogue.String()

	req := llmclient.Request{
		SystemPrompt: systemPrompt,
		Messages:     []llmclient.Message{{Role: "user", Content: query}},
		Tools:        s.tools,
		MaxToolCalls: s.maxToolCalls,
		Temperature:  0.2,
	}

	result, err := s.client.Complete(ctx, apiToken, req)
	if err != nil {
		return Result{}, err
	}

	answer, violations, parseErr := parseAndValidate(result.OutputJSON, allowed)
	if parseErr != nil {
		return Result{}, parseErr
	}

	if len(violations) > 0 {
		correction := fmt.Sprintf(
			"Your previous answer cited files not in the evidence list: %s. Revise your answer so that "+
				"cited_file_paths only contains files from the list above.", strings.Join(violations, ", "),
		)
		req.Messages = append(req.Messages, llmclient.Message{Role: "assistant", Content: result.OutputJSON})
		req.Messages = append(req.Messages, llmclient.Message{Role: "user", Content: correction})

		retryResult, err := s.client.Complete(ctx, apiToken, req)
		if err != nil {
			return Result{}, err
		}
		mergeInto(&result, retryResult)

		answer, violations, parseErr = parseAndValidate(result.OutputJSON, allowed)
		if parseErr != nil {
			return Result{}, parseErr
		}
		if len(violations) > 0 {
			return Result{}, apperr.AgentOutput(
				"agent cited files outside the retrieved evidence set after one corrective retry", nil)
		}
	}

	return Result{
		Answer: answer,
		Usage:  result.Usage,
		Raw:    result.Raw,
		Trace:  result.Trace,
	}, nil
}

func parseAndValidate(outputJSON string, allowed map[string]bool) (models.AgentAnswer, []string, error) {
	var parsed synthesisOutput
	if err := json.Unmarshal([]byte(outputJSON), &parsed); err != nil {
		return models.AgentAnswer{}, nil, apperr.AgentOutput("synthesis agent produced non-JSON output", err)
	}

	var violations []string
	for _, path := range parsed.CitedFilePaths {
		if !allowed[path] {
			violations = append(violations, path)
		}
	}

	return models.AgentAnswer{
		Answer:         parsed.Answer,
		Reasoning:      parsed.Reasoning,
		CitedFilePaths: parsed.CitedFilePaths,
	}, violations, nil
}

func mergeInto(dst *llmclient.Result, src llmclient.Result) {
	dst.OutputJSON = src.OutputJSON
	dst.Raw = src.Raw
	dst.Trace = append(dst.Trace, src.Trace...)
	if src.Usage.InputTokens != nil {
		if dst.Usage.InputTokens == nil {
			dst.Usage.InputTokens = new(int)
		}
		*dst.Usage.InputTokens += *src.Usage.InputTokens
	}
	if src.Usage.OutputTokens != nil {
		if dst.Usage.OutputTokens == nil {
			dst.Usage.OutputTokens = new(int)
		}
		*dst.Usage.OutputTokens += *src.Usage.OutputTokens
	}
	if src.Usage.TotalTokens != nil {
		if dst.Usage.TotalTokens == nil {
			dst.Usage.TotalTokens = new(int)
		}
		*dst.Usage.TotalTokens += *src.Usage.TotalTokens
	}
}

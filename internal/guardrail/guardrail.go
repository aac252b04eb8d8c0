// Package guardrail implements C7 and C10: the input guardrail that rejects
// queries unrelated to the notes domain, and the output judge guardrail that
// scores a synthesized answer before it is returned to the caller.
//
// Both are expressed as explicit two-valued returns rather than the
// exception/tripwire pattern original_source's OpenAI-Agents-SDK guardrails
// use.
package guardrail

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/omars-lab/knowledge-agents/internal/apperr"
	"github.com/omars-lab/knowledge-agents/internal/config"
	"github.com/omars-lab/knowledge-agents/internal/llmclient"
	"github.com/omars-lab/knowledge-agents/internal/models"
)

// InputVerdict is the result of classifying whether a query describes a
// lookup against the notes domain.
type InputVerdict struct {
	IsNoteQuery bool
	Reasoning   string
}

// DomainProvider supplies the notes-domain description used in the input
// guardrail's classification prompt. It exists so the description can be
// hot-reloaded (config.DomainWatcher) instead of fixed at construction time.
type DomainProvider interface {
	Description() string
}

type staticDomain string

func (s staticDomain) Description() string { return string(s) }

// InputGuardrail classifies queries before retrieval runs. On a transient
// LLM failure it fails closed: the query is treated as not a note query,
// since letting an unclassifiable query through risks an ungrounded answer.
type InputGuardrail struct {
	client llmclient.Client
	domain DomainProvider
}

// NewInput builds the input guardrail from Settings and a shared LLM client,
// with a fixed domain description.
func NewInput(settings *config.Settings, client llmclient.Client) *InputGuardrail {
	return &InputGuardrail{client: client, domain: staticDomain(settings.NotesDomainDescription)}
}

// NewInputWithDomainProvider builds an input guardrail whose domain
// description is read from provider on every call, so edits to an operator's
// notes-domain.yaml take effect without a restart.
func NewInputWithDomainProvider(client llmclient.Client, provider DomainProvider) *InputGuardrail {
	return &InputGuardrail{client: client, domain: provider}
}

type inputClassification struct {
	IsNoteQuery bool   `json:"is_note_query"`
	Reasoning   string `json:"reasoning"`
}

// Check classifies query. A returned error is always an AgentOutputError
// (the classification could not be parsed); an LLM failure is not returned
// but fails closed. A nil error with IsNoteQuery false means the guardrail
// tripped, either on the model's verdict or by failing closed.
func (g *InputGuardrail) Check(ctx context.Context, apiToken string, query string) (InputVerdict, error) {
	req := llmclient.Request{
		SystemPrompt: fmt.Sprintf(
			"Decide whether the user's message is a question that could plausibly be answered by "+
				"searching %s. Respond only as JSON matching {\"is_note_query\": bool, \"reasoning\": string}.",
			g.domain.Description(),
		),
		Messages:     []llmclient.Message{{Role: "user", Content: query}},
		MaxToolCalls: 0,
		Temperature:  0,
	}

	result, err := g.client.Complete(ctx, apiToken, req)
	if err != nil {
		// Fail closed: treat the query as out of domain rather than let an
		// unclassifiable query reach synthesis.
		return InputVerdict{IsNoteQuery: false, Reasoning: "input classification unavailable"}, nil
	}

	var parsed inputClassification
	if err := json.Unmarshal([]byte(result.OutputJSON), &parsed); err != nil {
		return InputVerdict{}, apperr.AgentOutput("input guardrail produced non-JSON classification", err)
	}
	return InputVerdict{IsNoteQuery: parsed.IsNoteQuery, Reasoning: parsed.Reasoning}, nil
}

// OutputGuardrail judges a synthesized answer's quality and intent match.
// On a transient LLM failure it fails open: the answer is passed through
// rather than discarding work the pipeline has already produced.
type OutputGuardrail struct {
	client   llmclient.Client
	failOpen bool
}

// NewOutput builds the output judge guardrail.
func NewOutput(settings *config.Settings, client llmclient.Client) *OutputGuardrail {
	return &OutputGuardrail{client: client, failOpen: settings.JudgeFailOpen}
}

type judgeResponse struct {
	Score            string  `json:"score"`
	Feedback         string  `json:"feedback"`
	IntentMatchScore float64 `json:"intent_match_score"`
}

// Judge scores answer against the original query. A transient failure
// yields models.JudgePass when failOpen is set, or models.JudgeFail
// otherwise, with a nil error in both cases; an error is returned only when
// the model's output cannot be parsed at all.
func (g *OutputGuardrail) Judge(ctx context.Context, apiToken string, query string, answer models.AgentAnswer) (models.JudgeVerdict, error) {
	req := llmclient.Request{
		SystemPrompt: "Judge whether the answer actually addresses the user's question and is supported " +
			"by its cited files. Respond only as JSON matching " +
			"{\"score\": \"pass\"|\"needs_improvement\"|\"fail\", \"feedback\": string, \"intent_match_score\": number}.",
		Messages: []llmclient.Message{
			{Role: "user", Content: fmt.Sprintf("Question: %s\n\nAnswer: %s\n\nReasoning: %s", query, answer.Answer, answer.Reasoning)},
		},
		MaxToolCalls: 0,
		Temperature:  0,
	}

	result, err := g.client.Complete(ctx, apiToken, req)
	if err != nil {
		if g.failOpen {
			return models.JudgeVerdict{Score: models.JudgePass, Feedback: "judge unavailable, failing open"}, nil
		}
		return models.JudgeVerdict{Score: models.JudgeFail, Feedback: "judge unavailable, failing closed"}, nil
	}

	var parsed judgeResponse
	if err := json.Unmarshal([]byte(result.OutputJSON), &parsed); err != nil {
		return models.JudgeVerdict{}, apperr.AgentOutput("output judge produced non-JSON verdict", err)
	}

	score := models.JudgeScore(parsed.Score)
	switch score {
	case models.JudgePass, models.JudgeNeedsImprovement, models.JudgeFail:
	default:
		score = models.JudgeNeedsImprovement
	}
	return models.JudgeVerdict{Score: score, Feedback: parsed.Feedback, IntentMatchScore: parsed.IntentMatchScore}, nil
}

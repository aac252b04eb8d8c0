package guardrail_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omars-lab/knowledge-agents/internal/config"
	"github.com/omars-lab/knowledge-agents/internal/guardrail"
	"github.com/omars-lab/knowledge-agents/internal/llmclient"
	"github.com/omars-lab/knowledge-agents/internal/models"
)

type fakeClient struct {
	output string
	err    error
}

func (f fakeClient) Complete(ctx context.Context, apiToken string, req llmclient.Request) (llmclient.Result, error) {
	if f.err != nil {
		return llmclient.Result{}, f.err
	}
	return llmclient.Result{OutputJSON: f.output}, nil
}

func TestInputGuardrailAcceptsNoteQuery(t *testing.T) {
	client := fakeClient{output: `{"is_note_query": true, "reasoning": "asks about a past note"}`}
	g := guardrail.NewInput(&config.Settings{NotesDomainDescription: "notes"}, client)

	verdict, err := g.Check(context.Background(), "token", "what did I decide about the migration?")
	require.NoError(t, err)
	assert.True(t, verdict.IsNoteQuery)
}

func TestInputGuardrailRejectsOffTopicQuery(t *testing.T) {
	client := fakeClient{output: `{"is_note_query": false, "reasoning": "asks for a recipe"}`}
	g := guardrail.NewInput(&config.Settings{NotesDomainDescription: "notes"}, client)

	verdict, err := g.Check(context.Background(), "token", "how do I make lasagna?")
	require.NoError(t, err)
	assert.False(t, verdict.IsNoteQuery)
}

func TestInputGuardrailFailsClosedOnTransientError(t *testing.T) {
	client := fakeClient{err: assert.AnError}
	g := guardrail.NewInput(&config.Settings{NotesDomainDescription: "notes"}, client)

	verdict, err := g.Check(context.Background(), "token", "anything")
	require.NoError(t, err)
	assert.False(t, verdict.IsNoteQuery)
}

func TestOutputGuardrailFailsOpenWhenConfigured(t *testing.T) {
	client := fakeClient{err: assert.AnError}
	g := guardrail.NewOutput(&config.Settings{JudgeFailOpen: true}, client)

	verdict, err := g.Judge(context.Background(), "token", "q", models.AgentAnswer{Answer: "a"})
	require.NoError(t, err)
	assert.Equal(t, models.JudgePass, verdict.Score)
}

func TestOutputGuardrailFailsClosedWhenConfigured(t *testing.T) {
	client := fakeClient{err: assert.AnError}
	g := guardrail.NewOutput(&config.Settings{JudgeFailOpen: false}, client)

	verdict, err := g.Judge(context.Background(), "token", "q", models.AgentAnswer{Answer: "a"})
	require.NoError(t, err)
	assert.Equal(t, models.JudgeFail, verdict.Score)
}

func TestOutputGuardrailParsesPassingVerdict(t *testing.T) {
	client := fakeClient{output: `{"score": "pass", "feedback": "well grounded", "intent_match_score": 0.9}`}
	g := guardrail.NewOutput(&config.Settings{}, client)

	verdict, err := g.Judge(context.Background(), "token", "q", models.AgentAnswer{Answer: "a"})
	require.NoError(t, err)
	assert.Equal(t, models.JudgePass, verdict.Score)
	assert.Equal(t, 0.9, verdict.IntentMatchScore)
}

func TestOutputGuardrailUnrecognizedScoreDefaultsToNeedsImprovement(t *testing.T) {
	client := fakeClient{output: `{"score": "whatever", "feedback": "garbled"}`}
	g := guardrail.NewOutput(&config.Settings{}, client)

	verdict, err := g.Judge(context.Background(), "token", "q", models.AgentAnswer{Answer: "a"})
	require.NoError(t, err)
	assert.Equal(t, models.JudgeNeedsImprovement, verdict.Score)
}

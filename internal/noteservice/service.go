// Package noteservice implements C12: the note query pipeline's state
// machine, wiring the input guardrail, retrieval, synthesis, output judge,
// and assembler stages together behind one entry point and mapping every
// failure onto a stable *apperr.Error.
package noteservice

import (
	"context"
	"time"

	"github.com/omars-lab/knowledge-agents/internal/assembler"
	"github.com/omars-lab/knowledge-agents/internal/deps"
	"github.com/omars-lab/knowledge-agents/internal/models"
	"github.com/omars-lab/knowledge-agents/internal/requestid"
	"github.com/omars-lab/knowledge-agents/internal/streamstatus"
)

// Service runs the end-to-end note query pipeline.
type Service struct {
	deps *deps.Dependencies
}

// New builds a Service from a fully constructed Dependencies container.
func New(d *deps.Dependencies) *Service {
	return &Service{deps: d}
}

// Answer drives one query through AUTH (already done by the caller) ->
// GUARDRAIL_IN -> RETRIEVE -> SYNTHESIZE -> GUARDRAIL_OUT -> ASSEMBLE, and
// returns both the JSON body and the response headers the HTTP layer sets.
//
// A guardrail trip is not an error: it yields a NoteQueryResponse with
// QueryAnswered false and the relevant identifier in GuardrailsTripped, with
// a nil header map. Any other stage failure returns a *apperr.Error.
func (s *Service) Answer(ctx context.Context, query models.Query) (models.NoteQueryResponse, map[string]string, error) {
	start := time.Now()
	log := requestid.Logger(ctx)

	ctx, cancel := context.WithTimeout(ctx, s.deps.Settings.RequestTimeout)
	defer cancel()

	s.publish(query.RequestID, streamstatus.StageGuardrailIn)
	log.Debug("checking input guardrail")
	inputVerdict, err := s.deps.InputGuardrail.Check(ctx, query.APIToken, query.Text)
	if err != nil {
		return models.NoteQueryResponse{}, nil, err
	}
	if !inputVerdict.IsNoteQuery {
		s.publish(query.RequestID, streamstatus.StageDone)
		return tripped(query, models.GuardrailDescribesNoteQuery, inputVerdict.Reasoning), nil, nil
	}

	s.publish(query.RequestID, streamstatus.StageRetrieve)
	log.Debug("retrieving candidate notes")
	retrieval, err := s.deps.Retriever.Retrieve(ctx, query.APIToken, query.Text)
	if err != nil {
		return models.NoteQueryResponse{}, nil, err
	}

	s.publish(query.RequestID, streamstatus.StageSynthesize)
	log.WithField("candidate_count", len(retrieval.References)).Debug("synthesizing answer")
	synth, err := s.deps.Synthesizer.Synthesize(ctx, query.APIToken, query.Text, retrieval)
	if err != nil {
		return models.NoteQueryResponse{}, nil, err
	}

	s.publish(query.RequestID, streamstatus.StageGuardrailOut)
	log.Debug("judging answer quality")
	verdict, err := s.deps.OutputGuardrail.Judge(ctx, query.APIToken, query.Text, synth.Answer)
	if err != nil {
		return models.NoteQueryResponse{}, nil, err
	}
	if verdict.Score == models.JudgeFail {
		s.publish(query.RequestID, streamstatus.StageDone)
		return tripped(query, models.GuardrailJudgesAnswerQuality, verdict.Feedback), nil, nil
	}

	s.publish(query.RequestID, streamstatus.StageAssemble)
	response, headers := s.deps.Assembler.Assemble(ctx, assembler.Input{
		Query:          query,
		Retrieval:      retrieval,
		Answer:         synth.Answer,
		Usage:          synth.Usage,
		Raw:            synth.Raw,
		QueryAnswered:  true,
		GenerationTime: time.Since(start),
	})
	s.publish(query.RequestID, streamstatus.StageDone)

	headerMap := make(map[string]string, len(headers))
	for k := range headers {
		headerMap[k] = headers.Get(k)
	}
	return response, headerMap, nil
}

func (s *Service) publish(requestID string, stage streamstatus.Stage) {
	if s.deps.StreamStatus == nil {
		return
	}
	s.deps.StreamStatus.Publish(requestID, stage, time.Now())
}

func tripped(query models.Query, which models.GuardrailIdentifier, reasoning string) models.NoteQueryResponse {
	return models.NoteQueryResponse{
		RequestID:         query.RequestID,
		Reasoning:         reasoning,
		RelevantFiles:     []models.NoteReference{},
		OriginalQuery:     query.Text,
		QueryAnswered:     false,
		GuardrailsTripped: []models.GuardrailIdentifier{which},
	}
}

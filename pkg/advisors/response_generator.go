package advisors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// ResponseGenerator is LLM#2: given the state selector's verdict, it drafts
// at least MinResponses candidate replies and always succeeds, falling back
// to a deterministic neutral set on any LLM failure.
type ResponseGenerator struct {
	completer Completer
}

// NewResponseGenerator builds a ResponseGenerator.
func NewResponseGenerator(completer Completer) *ResponseGenerator {
	return &ResponseGenerator{completer: completer}
}

type rawResponseGeneratorResponse struct {
	Responses         []string `json:"responses"`
	ResponseStyleTags []string `json:"response_style_tags"`
	ChosenIndex       int      `json:"chosen_index"`
	SafetyNotes       []string `json:"safety_notes"`
}

func (g *ResponseGenerator) buildPrompt(in ResponseGeneratorInput) string {
	intent := "responder objetivamente"
	if in.ResponseHint != "" {
		intent = "confirmação"
	}
	return fmt.Sprintf(
		"Gere respostas institucionais Otto em PT-BR. Contexto: estado atual %s, "+
			"próximo %s. Confiança: %.2f. Hint: %s. Objetivo: %s. "+
			"Última mensagem: %s. Responda somente JSON com responses (mínimo %d), "+
			"response_style_tags, chosen_index, safety_notes.",
		in.CurrentState, in.CandidateNextState, in.Confidence, in.ResponseHint, intent,
		in.LastUserMessage, MinResponses,
	)
}

// deterministicFallback always yields MinResponses neutral PT-BR templates,
// optionally folding in the state selector's hint.
func deterministicFallback(in ResponseGeneratorInput, safetyNotes []string) ResponseGeneratorOutput {
	base := "Estou aqui para ajudar. "
	if in.ResponseHint != "" {
		base += in.ResponseHint + " "
	}
	return ResponseGeneratorOutput{
		Responses: []string{
			base + "Você pode confirmar se resolvemos o que precisa?",
			base + "Quer que eu finalize ou há outro pedido?",
			base + "Se preferir, posso conectar com um humano.",
		},
		ResponseStyleTags: []string{"neutra", "curta"},
		ChosenIndex:       0,
		SafetyNotes:       safetyNotes,
	}
}

// defaultSafetyNotes describe the guardrails every generated response
// should already honor.
var defaultSafetyNotes = []string{"não expor PII", "não repetir número do cliente", "tom neutro"}

// Generate always returns a valid ResponseGeneratorOutput: on any LLM or
// validation failure it returns deterministicFallback instead.
func (g *ResponseGenerator) Generate(ctx context.Context, in ResponseGeneratorInput, correlationID string, timeout time.Duration) ResponseGeneratorOutput {
	if err := in.Validate(); err != nil {
		slog.Error("response_generator_invalid_input", "correlation_id", correlationID, "error", err)
		return deterministicFallback(in, defaultSafetyNotes)
	}

	if g.completer == nil {
		slog.Warn("response_generator_no_completer", "correlation_id", correlationID)
		return deterministicFallback(in, defaultSafetyNotes)
	}

	raw, err := g.completer.Complete(ctx, g.buildPrompt(in), timeout)
	if err != nil {
		slog.Error("response_generator_llm_failed", "correlation_id", correlationID, "error", err, "state", in.CurrentState, "next_state", in.CandidateNextState)
		return deterministicFallback(in, defaultSafetyNotes)
	}

	var parsed rawResponseGeneratorResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		slog.Error("response_generator_decode_failed", "correlation_id", correlationID, "error", err)
		return deterministicFallback(in, defaultSafetyNotes)
	}

	notes := parsed.SafetyNotes
	if len(notes) == 0 {
		notes = defaultSafetyNotes
	}
	out := ResponseGeneratorOutput{
		Responses:         parsed.Responses,
		ResponseStyleTags: parsed.ResponseStyleTags,
		ChosenIndex:       parsed.ChosenIndex,
		SafetyNotes:       notes,
	}
	if err := out.Validate(); err != nil {
		slog.Error("response_generator_output_invalid", "correlation_id", correlationID, "error", err)
		return deterministicFallback(in, defaultSafetyNotes)
	}

	slog.Info("response_generator_result",
		"correlation_id", correlationID,
		"state", in.CurrentState,
		"next_state", in.CandidateNextState,
		"status", in.StateDecision.Status,
		"confidence", in.Confidence,
		"had_hint", in.ResponseHint != "",
	)
	return out
}

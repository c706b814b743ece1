package advisors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ottohq/otto-gateway/pkg/fsm"
)

// MasterDecider is LLM#3: the authoritative decision-maker, reconciling the
// state selector's verdict with the response generator's candidates into a
// single executable decision.
type MasterDecider struct {
	completer           Completer
	confidenceThreshold float64
}

// NewMasterDecider builds a MasterDecider with the given confidence gate
// (spec: MASTER_DECIDER_CONFIDENCE_THRESHOLD, default
// MasterDecisionConfidenceThreshold).
func NewMasterDecider(completer Completer, confidenceThreshold float64) *MasterDecider {
	if confidenceThreshold <= 0 {
		confidenceThreshold = MasterDecisionConfidenceThreshold
	}
	return &MasterDecider{completer: completer, confidenceThreshold: confidenceThreshold}
}

type rawMasterDecisionResponse struct {
	FinalState            string  `json:"final_state"`
	ApplyState            bool    `json:"apply_state"`
	SelectedResponseIndex int     `json:"selected_response_index"`
	MessageType           string  `json:"message_type"`
	OverallConfidence     float64 `json:"overall_confidence"`
	Reason                string  `json:"reason"`
}

func (d *MasterDecider) buildPrompt(in MasterDecisionInput) string {
	return fmt.Sprintf(
		"Decida a ação final da conversa Otto. Estado atual: %s. Decisão do seletor: "+
			"selected=%s accepted=%t confidence=%.2f. Opções de resposta: %v. "+
			"Última mensagem: %s. Responda somente JSON com final_state, apply_state, "+
			"selected_response_index, message_type, overall_confidence, reason.",
		in.CurrentState, in.StateDecision.SelectedState, in.StateDecision.Accepted,
		in.StateDecision.Confidence, in.ResponseOptions.Responses, in.LastUserMessage,
	)
}

// Decide runs the master decision. When the state selector already rejected
// its proposal (accepted=false), the deterministic path below is always
// used — there's nothing for LLM#3 to authoritatively override, since the
// conversation must stay put and surface the selector's hint. Otherwise the
// LLM is consulted, with a deterministic fallback taking the selector's
// accepted verdict and response generator's chosen response on any failure.
func (d *MasterDecider) Decide(ctx context.Context, in MasterDecisionInput, correlationID string, timeout time.Duration) MasterDecisionOutput {
	if !in.StateDecision.Accepted {
		return d.deterministic(in, in.StateDecision.ResponseHint, "state selector rejected its proposal; using hint")
	}

	if d.completer == nil {
		slog.Warn("master_decider_no_completer", "correlation_id", correlationID)
		return d.deterministic(in, "", "no completer configured; using state selector's accepted verdict")
	}

	raw, err := d.completer.Complete(ctx, d.buildPrompt(in), timeout)
	if err != nil {
		slog.Error("master_decider_llm_failed", "correlation_id", correlationID, "error", err)
		return d.deterministic(in, "", "llm call failed; falling back to state selector's accepted verdict")
	}

	var parsed rawMasterDecisionResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		slog.Error("master_decider_decode_failed", "correlation_id", correlationID, "error", err)
		return d.deterministic(in, "", "llm response could not be decoded")
	}

	index := parsed.SelectedResponseIndex
	if index < 0 || index >= len(in.ResponseOptions.Responses) {
		index = in.ResponseOptions.ChosenIndex
	}

	// LLM#3's final_state wins when it names a candidate state; anything
	// else keeps the selector's accepted next state.
	finalState := in.StateDecision.NextState
	for _, candidate := range fsm.PossibleLLMNextStates() {
		if string(candidate) == parsed.FinalState {
			finalState = candidate
			break
		}
	}

	out := MasterDecisionOutput{
		FinalState:            finalState,
		ApplyState:            parsed.ApplyState,
		SelectedResponseIndex: index,
		SelectedResponseText:  in.ResponseOptions.Responses[index],
		MessageKind:           MessageKindText,
		OverallConfidence:     clamp01(parsed.OverallConfidence),
		Reason:                parsed.Reason,
		DecisionTrace: map[string]any{
			"responses":             in.ResponseOptions.Responses,
			"state_decision_status": in.StateDecision.Status,
		},
	}
	if out.Reason == "" {
		out.Reason = "llm3 decision"
	}
	if out.OverallConfidence == 0 && in.StateDecision.Confidence > 0 {
		out.OverallConfidence = in.StateDecision.Confidence
	}
	if err := out.Validate(); err != nil {
		slog.Error("master_decider_output_invalid", "correlation_id", correlationID, "error", err)
		return d.deterministic(in, "", "llm output failed validation")
	}
	return out
}

// deterministic produces a safe, always-valid decision by trusting the
// state selector and the response generator's own chosen index, capping
// confidence at whatever the state selector reported.
func (d *MasterDecider) deterministic(in MasterDecisionInput, hintOverride, reason string) MasterDecisionOutput {
	index := in.ResponseOptions.ChosenIndex
	if index < 0 || index >= len(in.ResponseOptions.Responses) {
		index = 0
	}
	text := in.ResponseOptions.Responses[index]

	trace := map[string]any{"state_decision_status": in.StateDecision.Status}
	if hintOverride != "" {
		// The hint replaces the generator's chosen text outright, so the
		// trace's responses/index cross-check (Validate) does not apply here.
		text = hintOverride
	} else {
		trace["responses"] = in.ResponseOptions.Responses
	}

	return MasterDecisionOutput{
		FinalState:            in.StateDecision.NextState,
		ApplyState:            in.StateDecision.Accepted,
		SelectedResponseIndex: index,
		SelectedResponseText:  text,
		MessageKind:           MessageKindText,
		OverallConfidence:     in.StateDecision.Confidence,
		Reason:                reason,
		DecisionTrace:         trace,
	}
}

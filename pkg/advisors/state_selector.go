package advisors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ottohq/otto-gateway/pkg/fsm"
)

// closingAcknowledgementWords trigger the pre-check that clamps confidence
// when the user appears to be wrapping up a conversation with open items
// still pending — a premature HANDOFF_HUMAN/SELF_SERVE_INFO transition here
// would strand whatever the user never got: confirm before closing.
var closingAcknowledgementWords = []string{"ok", "obrigado", "obrigada", "valeu", "beleza"}

// newRequestWords flag a message that looks like a brand-new ask arriving
// mid-conversation, overriding whatever the LLM concluded about the
// existing thread.
var newRequestWords = []string{"agora quero", "outra coisa", "outro assunto", "além disso"}

// StateSelector is LLM#1: it proposes the next conversation state and is
// gated by a confidence threshold before the orchestrator trusts it.
type StateSelector struct {
	completer           Completer
	confidenceThreshold float64
}

// NewStateSelector builds a StateSelector with the given confidence gate
// (spec: STATE_SELECTOR_THRESHOLD, default StateSelectorConfidenceThreshold).
func NewStateSelector(completer Completer, confidenceThreshold float64) *StateSelector {
	if confidenceThreshold <= 0 {
		confidenceThreshold = StateSelectorConfidenceThreshold
	}
	return &StateSelector{completer: completer, confidenceThreshold: confidenceThreshold}
}

type rawStateSelectorResponse struct {
	SelectedState string  `json:"selected_state"`
	Confidence    float64 `json:"confidence"`
	Status        string  `json:"status"`
}

func (s *StateSelector) buildPrompt(in StateSelectorInput) string {
	var sb strings.Builder
	sb.WriteString("Decida o próximo estado conversacional. Estado atual: ")
	sb.WriteString(string(in.CurrentState))
	sb.WriteString(". Estados possíveis: ")
	for i, st := range in.PossibleNextStates {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(string(st))
	}
	sb.WriteString(". Mensagem: ")
	sb.WriteString(in.MessageText)
	sb.WriteString(". Responda somente JSON com selected_state, confidence, status.")
	return sb.String()
}

// Select runs the confidence-gated state selection, applying the pre-check
// rules before trusting the LLM's confidence, and falling back to a safe,
// non-accepted verdict on any LLM or decode failure.
func (s *StateSelector) Select(ctx context.Context, in StateSelectorInput, correlationID string, timeout time.Duration) StateSelectorOutput {
	if err := in.Validate(); err != nil {
		slog.Error("state_selector_invalid_input", "correlation_id", correlationID, "error", err)
		return s.fallback(in, "invalid_input")
	}

	if s.completer == nil {
		slog.Warn("state_selector_no_completer", "correlation_id", correlationID)
		return s.fallback(in, "no_completer")
	}

	raw, err := s.completer.Complete(ctx, s.buildPrompt(in), timeout)
	if err != nil {
		slog.Error("state_selector_llm_failed", "correlation_id", correlationID, "error", err)
		return s.fallback(in, "llm_error")
	}

	var parsed rawStateSelectorResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		slog.Error("state_selector_decode_failed", "correlation_id", correlationID, "error", err)
		return s.fallback(in, "decode_error")
	}

	selected := resolveSelectedState(parsed.SelectedState, in)
	confidence := clamp01(parsed.Confidence)

	out := StateSelectorOutput{
		SelectedState:    selected,
		Confidence:       confidence,
		NextState:        in.CurrentState,
		Status:           StateSelectorStatus(parsed.Status),
		OpenItems:        in.OpenItems,
		FulfilledItems:   in.FulfilledItems,
		DetectedRequests: in.DetectedRequests,
	}

	if looksLikeNewRequest(in.MessageText) {
		out.Status = StatusNewRequestDetected
		out.Accepted = false
		out.ResponseHint = "Detectei um novo pedido; vou tratar isso separadamente."
		return out
	}

	if looksLikeClosing(in.MessageText) && len(in.OpenItems) > 0 && confidence >= s.confidenceThreshold {
		out.Confidence = s.confidenceThreshold - 0.01
		out.Status = StatusNeedsClarification
		out.Accepted = false
		out.ResponseHint = "Antes de encerrar, confirme se todos os pedidos foram resolvidos."
		return out
	}

	if confidence >= s.confidenceThreshold {
		out.Accepted = true
		out.NextState = selected
		if out.Status == "" {
			out.Status = StatusDone
		}
		return out
	}

	out.Accepted = false
	out.ResponseHint = "Pode confirmar melhor o que você precisa?"
	if out.Status == "" {
		out.Status = StatusInProgress
	}
	return out
}

func (s *StateSelector) fallback(in StateSelectorInput, reason string) StateSelectorOutput {
	return StateSelectorOutput{
		SelectedState: in.CurrentState,
		Confidence:    0.0,
		Accepted:      false,
		NextState:     in.CurrentState,
		ResponseHint:  fmt.Sprintf("Não consegui avaliar automaticamente (%s); vou manter o estado atual.", reason),
		Status:        StatusInProgress,
	}
}

func resolveSelectedState(candidate string, in StateSelectorInput) fsm.LLMState {
	for _, st := range in.PossibleNextStates {
		if string(st) == candidate {
			return st
		}
	}
	return in.CurrentState
}

func looksLikeClosing(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range closingAcknowledgementWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func looksLikeNewRequest(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range newRequestWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Package advisors implements the three LLM-backed pipeline stages: the
// State Selector (LLM#1), the Response Generator (LLM#2) and the Master
// Decider (LLM#3), each with a confidence gate and a deterministic fallback
// so the pipeline never blocks on, or trusts blindly, an LLM call.
package advisors

import (
	"fmt"

	"github.com/ottohq/otto-gateway/pkg/fsm"
)

// StateSelectorStatus narrates why the State Selector reached its verdict.
type StateSelectorStatus string

const (
	StatusDone               StateSelectorStatus = "done"
	StatusInProgress         StateSelectorStatus = "in_progress"
	StatusNeedsClarification StateSelectorStatus = "needs_clarification"
	StatusNewRequestDetected StateSelectorStatus = "new_request_detected"
)

// StateSelectorInput is LLM#1's input: the conversation's current state, the
// states it may legally move to, and enough history to judge intent.
type StateSelectorInput struct {
	CurrentState       fsm.LLMState
	PossibleNextStates []fsm.LLMState
	MessageText        string
	HistorySummary     []string
	OpenItems          []string
	FulfilledItems     []string
	DetectedRequests   []string
}

// Validate enforces the non-empty possible_next_states invariant.
func (in StateSelectorInput) Validate() error {
	if len(in.PossibleNextStates) == 0 {
		return fmt.Errorf("advisors: possible_next_states must not be empty")
	}
	return nil
}

// StateSelectorOutput is LLM#1's verdict, confidence-gated before use.
type StateSelectorOutput struct {
	SelectedState    fsm.LLMState
	Confidence       float64
	Accepted         bool
	NextState        fsm.LLMState
	ResponseHint     string
	Status           StateSelectorStatus
	OpenItems        []string
	FulfilledItems   []string
	DetectedRequests []string
}

// Validate enforces the confidence-gate and hint-when-rejected invariants.
func (out StateSelectorOutput) Validate() error {
	if out.Confidence < 0.0 || out.Confidence > 1.0 {
		return fmt.Errorf("advisors: confidence must be within [0,1], got %f", out.Confidence)
	}
	if out.Accepted && out.Confidence < StateSelectorConfidenceThreshold {
		return fmt.Errorf("advisors: accepted=true requires confidence >= %.2f", StateSelectorConfidenceThreshold)
	}
	if !out.Accepted && out.ResponseHint == "" {
		return fmt.Errorf("advisors: response_hint is required when accepted=false")
	}
	return nil
}

// StateSelectorConfidenceThreshold is the default acceptance gate (spec:
// STATE_SELECTOR_THRESHOLD, default 0.7).
const StateSelectorConfidenceThreshold = 0.7

// ResponseGeneratorInput is LLM#2's input: the message needing a reply, the
// state selector's verdict, and the candidate next state it implies.
type ResponseGeneratorInput struct {
	LastUserMessage    string
	DayHistory         []string
	StateDecision      StateSelectorOutput
	CurrentState       fsm.LLMState
	CandidateNextState fsm.LLMState
	Confidence         float64
	ResponseHint       string
}

// Validate enforces the hint-required-on-low-confidence invariant.
func (in ResponseGeneratorInput) Validate() error {
	if in.Confidence < StateSelectorConfidenceThreshold && in.ResponseHint == "" {
		return fmt.Errorf("advisors: response_hint is required when confidence is low")
	}
	return nil
}

// MinResponses is the minimum number of candidate replies LLM#2 must return
// (spec: RESPONSE_GENERATOR_MIN_RESPONSES, default 3).
const MinResponses = 3

// ResponseGeneratorOutput is LLM#2's set of candidate replies, always at
// least MinResponses long.
type ResponseGeneratorOutput struct {
	Responses         []string
	ResponseStyleTags []string
	ChosenIndex       int
	SafetyNotes       []string
}

// Validate enforces the minimum-responses and chosen-index-in-range invariants.
func (out ResponseGeneratorOutput) Validate() error {
	if len(out.Responses) < MinResponses {
		return fmt.Errorf("advisors: at least %d responses are required, got %d", MinResponses, len(out.Responses))
	}
	if out.ChosenIndex < 0 || out.ChosenIndex >= len(out.Responses) {
		return fmt.Errorf("advisors: chosen_index %d is out of range", out.ChosenIndex)
	}
	return nil
}

// MessageKind is the wire shape the Master Decider selects for the reply.
type MessageKind string

const (
	MessageKindText MessageKind = "text"
)

// MasterDecisionInput is LLM#3's aggregated input: everything the first two
// advisors produced, plus enough context to make the authoritative call.
type MasterDecisionInput struct {
	LastUserMessage string
	DayHistory      []string
	StateDecision   StateSelectorOutput
	ResponseOptions ResponseGeneratorOutput
	CurrentState    fsm.LLMState
	CorrelationID   string
}

// MasterDecisionConfidenceThreshold is the default acceptance gate (spec:
// MASTER_DECIDER_CONFIDENCE_THRESHOLD, default 0.7).
const MasterDecisionConfidenceThreshold = 0.7

// MasterDecisionOutput is LLM#3's authoritative, executable decision.
type MasterDecisionOutput struct {
	FinalState            fsm.LLMState
	ApplyState             bool
	SelectedResponseIndex int
	SelectedResponseText  string
	MessageKind           MessageKind
	OverallConfidence     float64
	Reason                string
	DecisionTrace         map[string]any
}

// Validate enforces the confidence-range, non-empty-reason, and
// index/text-agree-with-decision-trace invariants.
func (out MasterDecisionOutput) Validate() error {
	if out.OverallConfidence < 0.0 || out.OverallConfidence > 1.0 {
		return fmt.Errorf("advisors: overall_confidence must be within [0,1], got %f", out.OverallConfidence)
	}
	if out.Reason == "" {
		return fmt.Errorf("advisors: reason is required")
	}
	responses, ok := out.DecisionTrace["responses"].([]string)
	if ok && len(responses) > 0 {
		if out.SelectedResponseIndex < 0 || out.SelectedResponseIndex >= len(responses) {
			return fmt.Errorf("advisors: selected_response_index out of range")
		}
		if responses[out.SelectedResponseIndex] != out.SelectedResponseText {
			return fmt.Errorf("advisors: selected_response_text must match the chosen index")
		}
	}
	return nil
}

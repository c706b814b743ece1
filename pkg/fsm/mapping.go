package fsm

import "log/slog"

// LLMState is a member of the smaller, LLM-facing state alphabet handed to
// the advisors. Several internal states fold onto the same LLM-facing tag.
type LLMState string

const (
	LLMInit            LLMState = "INIT"
	LLMAwaitingUser    LLMState = "AWAITING_USER"
	LLMHandoffHuman    LLMState = "HANDOFF_HUMAN"
	LLMSelfServeInfo   LLMState = "SELF_SERVE_INFO"
	LLMRouteExternal   LLMState = "ROUTE_EXTERNAL"
	LLMScheduledFollow LLMState = "SCHEDULED_FOLLOWUP"
	LLMDuplicateOrSpam LLMState = "DUPLICATE_OR_SPAM"
	LLMFailedInternal  LLMState = "FAILED_INTERNAL"
)

// llmMapping is a total function over the internal alphabet. The transient
// mid-pipeline states (Identifying..SelectingMessageType) never outlive a
// single request in practice, but the mapping still covers them so that a
// crash-recovered or hand-edited session still resolves to something valid.
//
// ROUTE_EXTERNAL and SCHEDULED_FOLLOWUP are reachable only through
// Session.Outcome (guards and the master decider set it directly); no
// internal current-state maps onto them, since Completed is shared by both
// the self-serve and external-route terminal paths.
var llmMapping = map[State]LLMState{
	Init:                 LLMInit,
	Identifying:          LLMInit,
	UnderstandingIntent:  LLMInit,
	Processing:           LLMInit,
	GeneratingResponse:   LLMInit,
	SelectingMessageType: LLMInit,
	AwaitingUser:         LLMAwaitingUser,
	Escalating:           LLMHandoffHuman,
	Completed:            LLMSelfServeInfo,
	Failed:               LLMFailedInternal,
	Spam:                 LLMDuplicateOrSpam,
}

// MapToLLMState collapses an internal state onto the LLM-facing alphabet.
// An input outside the internal alphabet entirely (corrupt/legacy data)
// folds to LLMInit and logs fsm_state_mapping_fallback.
func MapToLLMState(s State) LLMState {
	if v, ok := llmMapping[s]; ok {
		return v
	}
	slog.Warn("fsm_state_mapping_fallback", "input_state", string(s), "folded_to", string(LLMInit))
	return LLMInit
}

// llmCandidateStates are the LLM-facing states the State Selector is ever
// allowed to propose moving to. DUPLICATE_OR_SPAM is guard-only and
// FAILED_INTERNAL is error-only; neither is a destination the advisor
// itself may choose.
var llmCandidateStates = []LLMState{
	LLMInit, LLMAwaitingUser, LLMHandoffHuman, LLMSelfServeInfo,
	LLMRouteExternal, LLMScheduledFollow,
}

// PossibleLLMNextStates returns the fixed catalog of LLM-facing states the
// State Selector may choose among for the current turn.
func PossibleLLMNextStates() []LLMState {
	out := make([]LLMState, len(llmCandidateStates))
	copy(out, llmCandidateStates)
	return out
}

package advisors

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ottohq/otto-gateway/pkg/fsm"
)

func TestStateSelectorInput_RejectsEmptyPossibleStates(t *testing.T) {
	in := StateSelectorInput{CurrentState: fsm.LLMAwaitingUser}
	assert.Error(t, in.Validate())
}

func TestStateSelectorOutput_RejectsAcceptedBelowThreshold(t *testing.T) {
	out := StateSelectorOutput{Accepted: true, Confidence: 0.5}
	assert.Error(t, out.Validate())
}

func TestStateSelectorOutput_RequiresHintWhenRejected(t *testing.T) {
	out := StateSelectorOutput{Accepted: false, Confidence: 0.5}
	assert.Error(t, out.Validate())
}

func TestResponseGeneratorOutput_RejectsTooFewResponses(t *testing.T) {
	out := ResponseGeneratorOutput{Responses: []string{"a", "b"}}
	assert.Error(t, out.Validate())
}

func TestResponseGeneratorOutput_RejectsOutOfRangeIndex(t *testing.T) {
	out := ResponseGeneratorOutput{Responses: []string{"a", "b", "c"}, ChosenIndex: 5}
	assert.Error(t, out.Validate())
}

func TestMasterDecisionOutput_RejectsEmptyReason(t *testing.T) {
	out := MasterDecisionOutput{OverallConfidence: 0.5}
	assert.Error(t, out.Validate())
}

func TestMasterDecisionOutput_RejectsIndexTextMismatch(t *testing.T) {
	out := MasterDecisionOutput{
		OverallConfidence:     0.5,
		Reason:                "ok",
		SelectedResponseIndex: 0,
		SelectedResponseText:  "wrong",
		DecisionTrace:         map[string]any{"responses": []string{"a", "b"}},
	}
	assert.Error(t, out.Validate())
}

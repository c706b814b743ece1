package advisors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ottohq/otto-gateway/pkg/fsm"
)

type fakeCompleter struct {
	response string
	err      error
}

func (f fakeCompleter) Complete(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	return f.response, f.err
}

func buildSelectorInput(text string) StateSelectorInput {
	return StateSelectorInput{
		CurrentState:       fsm.LLMAwaitingUser,
		PossibleNextStates: []fsm.LLMState{fsm.LLMHandoffHuman, fsm.LLMSelfServeInfo},
		MessageText:        text,
	}
}

func TestStateSelector_ConfidenceGateAcceptsTransition(t *testing.T) {
	selector := NewStateSelector(fakeCompleter{response: `{"selected_state":"HANDOFF_HUMAN","confidence":0.9,"status":"done"}`}, 0.7)
	out := selector.Select(context.Background(), buildSelectorInput("preciso falar com humano"), "c1", time.Second)

	assert.True(t, out.Accepted)
	assert.Equal(t, fsm.LLMHandoffHuman, out.NextState)
}

func TestStateSelector_ConfidenceGateRejectsAndRequiresHint(t *testing.T) {
	selector := NewStateSelector(fakeCompleter{response: `{"selected_state":"SELF_SERVE_INFO","confidence":0.5,"status":"in_progress"}`}, 0.7)
	out := selector.Select(context.Background(), buildSelectorInput("talvez"), "c2", time.Second)

	assert.False(t, out.Accepted)
	assert.Equal(t, fsm.LLMAwaitingUser, out.NextState)
	assert.NotEmpty(t, out.ResponseHint)
}

func TestStateSelector_InvalidSelectedStateFallsBackToCurrent(t *testing.T) {
	selector := NewStateSelector(fakeCompleter{response: `{"selected_state":"INVALID","confidence":0.9,"status":"done"}`}, 0.7)
	out := selector.Select(context.Background(), buildSelectorInput("oi"), "c3", time.Second)

	assert.Equal(t, fsm.LLMAwaitingUser, out.SelectedState)
	assert.Equal(t, fsm.LLMAwaitingUser, out.NextState)
}

func TestStateSelector_LLMFailureReturnsSafeFallback(t *testing.T) {
	selector := NewStateSelector(fakeCompleter{err: errors.New("boom")}, 0.7)
	out := selector.Select(context.Background(), buildSelectorInput("teste"), "c4", time.Second)

	assert.False(t, out.Accepted)
	assert.Equal(t, 0.0, out.Confidence)
	assert.Equal(t, fsm.LLMAwaitingUser, out.NextState)
	assert.NotEmpty(t, out.ResponseHint)
}

func TestStateSelector_NilCompleterReturnsSafeFallback(t *testing.T) {
	selector := NewStateSelector(nil, 0.7)
	out := selector.Select(context.Background(), buildSelectorInput("oi"), "c-nil", time.Second)

	assert.False(t, out.Accepted)
	assert.Equal(t, fsm.LLMAwaitingUser, out.NextState)
}

func TestStateSelector_PrecheckClampsConfidenceOnClosingWithOpenItems(t *testing.T) {
	selector := NewStateSelector(fakeCompleter{response: `{"selected_state":"HANDOFF_HUMAN","confidence":0.95,"status":"in_progress"}`}, 0.7)
	in := buildSelectorInput("ok, obrigado")
	in.OpenItems = []string{"pendente"}

	out := selector.Select(context.Background(), in, "c5", time.Second)

	assert.Less(t, out.Confidence, 0.7)
	assert.False(t, out.Accepted)
	assert.Equal(t, StatusNeedsClarification, out.Status)
	assert.NotEmpty(t, out.ResponseHint)
}

func TestStateSelector_PrecheckDetectsNewRequest(t *testing.T) {
	selector := NewStateSelector(fakeCompleter{response: `{"selected_state":"HANDOFF_HUMAN","confidence":0.95,"status":"in_progress"}`}, 0.7)
	out := selector.Select(context.Background(), buildSelectorInput("agora quero outra coisa"), "c6", time.Second)

	assert.Equal(t, StatusNewRequestDetected, out.Status)
	assert.False(t, out.Accepted)
	assert.NotEmpty(t, out.ResponseHint)
}

package advisors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ottohq/otto-gateway/pkg/fsm"
)

func buildGeneratorInput() ResponseGeneratorInput {
	return ResponseGeneratorInput{
		LastUserMessage:    "preciso de ajuda",
		CurrentState:       fsm.LLMAwaitingUser,
		CandidateNextState: fsm.LLMSelfServeInfo,
		Confidence:         0.9,
	}
}

func TestResponseGenerator_UsesLLMOutputWhenValid(t *testing.T) {
	gen := NewResponseGenerator(fakeCompleter{response: `{"responses":["a","b","c"],"chosen_index":1}`})
	out := gen.Generate(context.Background(), buildGeneratorInput(), "c1", time.Second)

	require.Len(t, out.Responses, 3)
	assert.Equal(t, 1, out.ChosenIndex)
}

func TestResponseGenerator_FallsBackOnLLMError(t *testing.T) {
	gen := NewResponseGenerator(fakeCompleter{err: errors.New("boom")})
	out := gen.Generate(context.Background(), buildGeneratorInput(), "c2", time.Second)

	require.GreaterOrEqual(t, len(out.Responses), MinResponses)
	assert.Equal(t, 0, out.ChosenIndex)
}

func TestResponseGenerator_FallsBackOnTooFewResponses(t *testing.T) {
	gen := NewResponseGenerator(fakeCompleter{response: `{"responses":["only one"],"chosen_index":0}`})
	out := gen.Generate(context.Background(), buildGeneratorInput(), "c3", time.Second)

	require.GreaterOrEqual(t, len(out.Responses), MinResponses)
}

func TestResponseGenerator_NilCompleterFallsBack(t *testing.T) {
	gen := NewResponseGenerator(nil)
	out := gen.Generate(context.Background(), buildGeneratorInput(), "c-nil", time.Second)

	require.GreaterOrEqual(t, len(out.Responses), MinResponses)
	assert.Equal(t, 0, out.ChosenIndex)
}

func TestResponseGenerator_FallbackIncludesHint(t *testing.T) {
	gen := NewResponseGenerator(fakeCompleter{err: errors.New("boom")})
	in := buildGeneratorInput()
	in.Confidence = 0.4
	in.ResponseHint = "confirme o pedido"

	out := gen.Generate(context.Background(), in, "c4", time.Second)
	assert.Contains(t, out.Responses[0], "confirme o pedido")
}

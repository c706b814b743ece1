package advisors

import (
	"context"
	"errors"
	"time"

	"github.com/tmc/langchaingo/llms"
)

var errNoChoices = errors.New("advisors: llm returned no choices")

// Completer is the narrow capability every advisor needs from an LLM: send
// a prompt, get back raw text (expected to be a JSON object per the
// advisor's schema), bounded by a per-call timeout.
type Completer interface {
	Complete(ctx context.Context, prompt string, timeout time.Duration) (string, error)
}

// LangchainCompleter adapts a langchaingo llms.Model into a Completer,
// issuing a single-turn completion and returning its raw text content.
type LangchainCompleter struct {
	model llms.Model
}

// NewLangchainCompleter wraps model for use by the advisors.
func NewLangchainCompleter(model llms.Model) *LangchainCompleter {
	return &LangchainCompleter{model: model}
}

func (c *LangchainCompleter) Complete(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := c.model.GenerateContent(ctx,
		[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)},
		llms.WithTemperature(0.2),
		llms.WithMaxTokens(220),
	)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errNoChoices
	}
	return resp.Choices[0].Content, nil
}

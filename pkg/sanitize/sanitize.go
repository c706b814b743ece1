// Package sanitize implements the deterministic PII masker (C11): regex
// masking of CPF, CNPJ, email and BR phone numbers in outbound text and
// retained message history.
package sanitize

import "regexp"

// CompiledPattern holds a pre-compiled regex pattern with its replacement,
// applied in a fixed order from most to least specific.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
}

// MaxHistoryMessages bounds how much history is ever handed to an LLM
// advisor, applied by History.
const MaxHistoryMessages = 5

// patterns is compiled once at package init for both performance and the
// determinism the sanitizer requires (same input, same output, always).
var patterns = []CompiledPattern{
	{
		Name:        "cpf",
		Regex:       regexp.MustCompile(`\b\d{3}\.?\d{3}\.?\d{3}-?\d{2}\b`),
		Replacement: "[CPF]",
	},
	{
		Name:        "cnpj",
		Regex:       regexp.MustCompile(`\b\d{2}\.?\d{3}\.?\d{3}/?\d{4}-?\d{2}\b`),
		Replacement: "[CNPJ]",
	},
	{
		Name:        "email",
		Regex:       regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		Replacement: "[EMAIL]",
	},
	{
		Name: "phone",
		Regex: regexp.MustCompile(
			`\+?55\s*\(?\d{2}\)?\s*(?:9[89])?\d{3,4}-?\d{4}` +
				`|\(?\d{2}\)?\s*(?:9[89])?\d{3,4}-?\d{4}` +
				`|\b9\d{3,4}-?\d{4}\b`,
		),
		Replacement: "[PHONE]",
	},
}

// Text masks every recognized PII pattern in text. It is idempotent:
// Text(Text(x)) == Text(x), since CPF/CNPJ/email/phone patterns never match
// their own replacement tokens, and it never panics or mutates its input.
//
// A Pix key is masked incidentally: every Pix key format this system deals
// with (CPF, CNPJ, email or phone) is already covered by one of the
// patterns above once it is entered into a message as that identifier.
func Text(text string) string {
	if text == "" {
		return text
	}
	result := text
	for _, p := range patterns {
		result = p.Regex.ReplaceAllString(result, p.Replacement)
	}
	return result
}

// History masks every message, truncating to the last MaxHistoryMessages
// entries first (data minimization before the text even reaches a pattern).
func History(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	start := 0
	if len(messages) > MaxHistoryMessages {
		start = len(messages) - MaxHistoryMessages
	}
	truncated := messages[start:]

	out := make([]string, len(truncated))
	for i, m := range truncated {
		out[i] = Text(m)
	}
	return out
}

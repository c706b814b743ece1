package guards

import "strings"

// spamKeywords are blocklisted substrings (case-insensitive) that, on their
// own, are enough to classify a message as spam.
var spamKeywords = []string{
	"clique aqui",
	"ganhe dinheiro",
	"promoção imperdível",
	"http://bit.ly",
}

// maxRepeatedRun is the longest run of an identical rune tolerated before a
// message is considered spam (e.g. "aaaaaaaaaaaaaaaa").
const maxRepeatedRun = 8

// IsSpam is a deterministic pure heuristic over message text: no network
// calls, no randomness, same input always yields the same verdict.
func IsSpam(text string) bool {
	if text == "" {
		return false
	}

	lower := strings.ToLower(text)
	for _, kw := range spamKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}

	if hasLongRepeatedRun(text, maxRepeatedRun) {
		return true
	}

	if isMostlyUppercaseShout(text) {
		return true
	}

	return false
}

func hasLongRepeatedRun(text string, max int) bool {
	runes := []rune(text)
	run := 1
	for i := 1; i < len(runes); i++ {
		if runes[i] == runes[i-1] {
			run++
			if run > max {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}

// isMostlyUppercaseShout flags long, almost-all-caps messages; short
// messages and acronyms are left alone.
func isMostlyUppercaseShout(text string) bool {
	letters, upper := 0, 0
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			letters++
			if r >= 'A' && r <= 'Z' {
				upper++
			}
		}
	}
	if letters < 20 {
		return false
	}
	return upper*100/letters >= 90
}

package summarizer

import (
	"context"
	"errors"
	"strings"
	"unicode"
)

// ProviderExtractive names the offline extractive capability.
const ProviderExtractive = "extractive"

// ErrNothingToSummarize is returned for blank input.
var ErrNothingToSummarize = errors.New("nothing to summarize")

// BasicSummarizer is an offline, deterministic Capability. It keeps leading
// sentences while they fit in the word budget and never returns more than
// budget.MaxLength words.
type BasicSummarizer struct {
	defaultMaxWords int
}

// NewBasicSummarizer creates a new BasicSummarizer instance.
func NewBasicSummarizer() *BasicSummarizer {
	return &BasicSummarizer{defaultMaxWords: DefaultMaxLength}
}

// Summarize implements Capability.
func (s *BasicSummarizer) Summarize(_ context.Context, text string, budget LengthBudget) (string, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return "", ErrNothingToSummarize
	}

	limit := budget.MaxLength
	if limit <= 0 {
		limit = s.defaultMaxWords
	}
	if len(words) <= limit {
		return strings.Join(words, " "), nil
	}

	var kept []string
	count := 0
	for _, sentence := range splitSentences(text) {
		n := len(strings.Fields(sentence))
		if count+n > limit {
			break
		}
		kept = append(kept, strings.Join(strings.Fields(sentence), " "))
		count += n
	}

	if count == 0 {
		// First sentence alone is over budget: cut at a word boundary.
		return strings.Join(words[:limit], " ") + "...", nil
	}
	return strings.Join(kept, " "), nil
}

// splitSentences breaks text after '.', '!' or '?' when followed by
// whitespace or the end of input.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0

	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if sentence := strings.TrimSpace(string(runes[start : i+1])); sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = i + 1
	}

	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

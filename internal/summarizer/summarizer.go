// Package summarizer turns arbitrarily long text into a summary by splitting
// it into chunks and asking a summarization capability for each one.
package summarizer

import (
	"context"
	"errors"
)

const (
	// DefaultMaxLength is the default upper word bound requested per chunk.
	DefaultMaxLength = 100

	// DefaultMinLength is the default lower word bound requested per chunk.
	DefaultMinLength = 30
)

// ErrCapabilityUnavailable is returned when the summarization capability
// failed to initialise for this process.
var ErrCapabilityUnavailable = errors.New("summarization capability unavailable")

// LengthBudget is the pair of word-count bounds handed to the capability
// for one chunk.
type LengthBudget struct {
	MaxLength int
	MinLength int
	// Deterministic disables sampling so identical input yields identical output.
	Deterministic bool
}

// Capability is a black-box text-to-summary function. Implementations may
// fail for any single call.
type Capability interface {
	Summarize(ctx context.Context, text string, budget LengthBudget) (string, error)
}

// CapabilityFunc adapts a plain function to Capability.
type CapabilityFunc func(ctx context.Context, text string, budget LengthBudget) (string, error)

// Summarize calls f.
func (f CapabilityFunc) Summarize(ctx context.Context, text string, budget LengthBudget) (string, error) {
	return f(ctx, text, budget)
}

// ComputeBudget derives the per-chunk target from the chunk's own word count:
// half the words, clamped into [minLen, maxLen]. The upper clamp wins when
// minLen > maxLen.
func ComputeBudget(chunkWords, maxLen, minLen int) LengthBudget {
	return LengthBudget{
		MaxLength:     min(maxLen, max(minLen, chunkWords/2)),
		MinLength:     minLen,
		Deterministic: true,
	}
}

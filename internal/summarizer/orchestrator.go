package summarizer

import (
	"context"
	"log/slog"
	"strings"

	"github.com/localrivet/protext/internal/chunker"
	"github.com/localrivet/protext/internal/telemetry"
)

// ChunkFailure records a chunk whose summarization failed and was skipped.
type ChunkFailure struct {
	Index int
	Err   error
}

// Result is the outcome of one orchestrated summarization.
type Result struct {
	Summary  string
	Chunks   int
	Failures []ChunkFailure
}

// Degraded reports whether some, but not all, chunks were lost.
func (r *Result) Degraded() bool {
	return len(r.Failures) > 0 && len(r.Failures) < r.Chunks
}

// Orchestrator splits text into chunks and summarizes them one after the
// other with a Capability.
type Orchestrator struct {
	capability    Capability
	maxChunkChars int
	logger        *slog.Logger
	metrics       *telemetry.MetricsCollector
	onProgress    func(done, total int)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxChunkChars sets the chunk size used when splitting input.
func WithMaxChunkChars(n int) Option {
	return func(o *Orchestrator) { o.maxChunkChars = n }
}

// WithLogger sets the logger used for chunk failure warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records per-chunk outcomes on m.
func WithMetrics(m *telemetry.MetricsCollector) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithProgress registers a callback invoked after every chunk, successful or not.
func WithProgress(fn func(done, total int)) Option {
	return func(o *Orchestrator) { o.onProgress = fn }
}

// NewOrchestrator creates an Orchestrator around an already constructed capability.
func NewOrchestrator(capability Capability, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		capability:    capability,
		maxChunkChars: chunker.DefaultMaxChunkChars,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Summarize produces one summary for text. Chunks are processed strictly in
// order. A chunk whose call fails is logged, counted and skipped, so this
// never returns an error; inspect Result.Failures for partial loss.
// Blank input returns an empty Result without calling the capability.
func (o *Orchestrator) Summarize(ctx context.Context, text string, maxLen, minLen int) *Result {
	if strings.TrimSpace(text) == "" {
		return &Result{}
	}

	chunks := chunker.Split(text, o.maxChunkChars)
	result := &Result{Chunks: len(chunks)}

	var summary strings.Builder
	for i, chunk := range chunks {
		budget := ComputeBudget(chunker.WordCount(chunk), maxLen, minLen)

		fragment, err := o.capability.Summarize(ctx, chunk, budget)
		if err != nil {
			o.logger.Warn("Error summarizing a chunk",
				"chunk", i+1,
				"chunks", len(chunks),
				"max_length", budget.MaxLength,
				"min_length", budget.MinLength,
				"error", err)
			result.Failures = append(result.Failures, ChunkFailure{Index: i, Err: err})
			o.recordChunk(false)
		} else {
			summary.WriteString(fragment)
			summary.WriteString(" ")
			o.recordChunk(true)
		}

		if o.onProgress != nil {
			o.onProgress(i+1, len(chunks))
		}
	}

	result.Summary = strings.TrimSpace(summary.String())
	return result
}

func (o *Orchestrator) recordChunk(success bool) {
	if o.metrics != nil {
		o.metrics.RecordChunk(success)
	}
}

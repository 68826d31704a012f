package summarizer

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/localrivet/protext/internal/telemetry"
)

// Status tags a Handle as ready or unavailable.
type Status int

const (
	// StatusReady means the capability was constructed and can be called.
	StatusReady Status = iota
	// StatusUnavailable means construction failed; it is never retried.
	StatusUnavailable
)

func (s Status) String() string {
	if s == StatusReady {
		return "ready"
	}
	return "unavailable"
}

// Handle is the result of constructing the summarization capability once at
// startup. It is immutable and safe to share.
type Handle struct {
	status     Status
	capability Capability
	name       string
	err        error
}

// Ready wraps a constructed capability.
func Ready(capability Capability, name string) *Handle {
	return &Handle{status: StatusReady, capability: capability, name: name}
}

// Unavailable records a construction failure.
func Unavailable(err error) *Handle {
	if err == nil {
		err = ErrCapabilityUnavailable
	}
	return &Handle{status: StatusUnavailable, err: err}
}

// Status returns the handle's tag.
func (h *Handle) Status() Status {
	return h.status
}

// Name returns the name of the primary provider behind a ready handle.
func (h *Handle) Name() string {
	return h.name
}

// Err returns the construction error of an unavailable handle.
func (h *Handle) Err() error {
	return h.err
}

// Capability returns the capability, or ErrCapabilityUnavailable wrapping the
// construction cause.
func (h *Handle) Capability() (Capability, error) {
	if h == nil {
		return nil, ErrCapabilityUnavailable
	}
	if h.status != StatusReady {
		return nil, fmt.Errorf("%w: %v", ErrCapabilityUnavailable, h.err)
	}
	return h.capability, nil
}

// Close releases the capability's resources when it holds any. It is a no-op
// for unavailable handles.
func (h *Handle) Close() error {
	if h == nil || h.status != StatusReady {
		return nil
	}
	if closer, ok := h.capability.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// HandleOptions tunes NewHandle.
type HandleOptions struct {
	Metrics *telemetry.MetricsCollector
	Logger  *slog.Logger
	// VerifyOnStart checks the primary provider once; a failed check makes
	// the handle unavailable.
	VerifyOnStart bool
}

// NewHandle constructs the capability described by config exactly once.
// Failure is logged here and captured in the returned handle.
func NewHandle(ctx context.Context, config *AISummarizerConfig, opts HandleOptions) *Handle {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if config != nil && config.ProviderName == ProviderExtractive {
		logger.Info("Summarization capability ready", "provider", ProviderExtractive)
		return Ready(NewBasicSummarizer(), ProviderExtractive)
	}

	ai, err := NewAISummarizer(ctx, config, opts.Metrics)
	if err != nil {
		logger.Error("Failed to load summarization capability", "error", err)
		return Unavailable(err)
	}

	if opts.VerifyOnStart {
		health := ai.CheckProviderHealth(ctx)
		if !health[ai.ProviderName()] {
			err := fmt.Errorf("primary provider %s failed its startup health check", ai.ProviderName())
			logger.Error("Failed to load summarization capability", "error", err)
			return Unavailable(err)
		}
	}

	logger.Info("Summarization capability ready",
		"provider", ai.ProviderName(),
		"fallbacks", len(ai.fallbackProviders))
	return Ready(ai, ai.ProviderName())
}

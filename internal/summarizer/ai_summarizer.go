package summarizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/localrivet/protext/internal/resilience/circuitbreaker"
	"github.com/localrivet/protext/internal/resilience/retry"
	"github.com/localrivet/protext/internal/summarizer/providers"
	"github.com/localrivet/protext/internal/telemetry"
	"github.com/localrivet/protext/internal/util"
)

const (
	// Default settings
	DefaultTimeout       = 30 * time.Second
	DefaultMaxRetries    = 2
	DefaultRetryDelay    = 2 * time.Second
	DefaultCacheCapacity = 1000
	DefaultCacheTTL      = 24 * time.Hour
)

// Errors
var (
	ErrProviderNotSupported = errors.New("provider not supported")
	ErrSummarizationFailed  = errors.New("summarization failed")
	ErrConfigError          = errors.New("configuration error")
)

// AISummarizerConfig holds configuration for the AISummarizer
type AISummarizerConfig struct {
	ProviderName      string
	ModelID           string
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
	CacheCapacity     int
	CacheTTL          time.Duration
	FallbackProviders []FallbackConfig

	// ExtractiveFallback answers with BasicSummarizer when every provider
	// failed instead of reporting the chunk as failed.
	ExtractiveFallback bool
}

// FallbackConfig configures one provider of the fallback chain.
type FallbackConfig struct {
	Name    string
	ModelID string
	APIKey  string
	BaseURL string
}

func (c *AISummarizerConfig) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.CacheCapacity <= 0 {
		c.CacheCapacity = DefaultCacheCapacity
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
}

// AISummarizer is a Capability backed by a primary model provider and an
// ordered chain of fallbacks. Every provider call runs behind a circuit
// breaker and a retry policy, and results are cached per chunk and budget.
type AISummarizer struct {
	provider          providers.LLMProvider
	fallbackProviders []providers.LLMProvider
	breakers          map[string]*circuitbreaker.CircuitBreaker
	timeout           time.Duration
	retryConfig       retry.Config
	cache             *summaryCache
	extractive        *BasicSummarizer
	metrics           *telemetry.MetricsCollector
	logger            *slog.Logger
}

// summaryCache provides thread-safe caching for summaries
type summaryCache struct {
	items    map[string]cachedSummary
	capacity int
	ttl      time.Duration
	mu       sync.RWMutex
}

// cachedSummary represents a cached summary with expiration
type cachedSummary struct {
	summary  string
	expireAt time.Time
}

// NewAISummarizer builds the provider chain described by config.
func NewAISummarizer(ctx context.Context, config *AISummarizerConfig, metrics *telemetry.MetricsCollector) (*AISummarizer, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: missing summarizer configuration", ErrConfigError)
	}
	if config.ProviderName == "" {
		return nil, fmt.Errorf("%w: no provider configured", ErrConfigError)
	}

	providerConfigs := map[string]providers.Config{
		config.ProviderName: {
			APIKey:  config.APIKey,
			ModelID: config.ModelID,
			BaseURL: config.BaseURL,
			Timeout: config.Timeout,
		},
	}
	var preferenceOrder []string
	for _, fb := range config.FallbackProviders {
		if fb.Name == "" || fb.Name == config.ProviderName {
			continue
		}
		providerConfigs[fb.Name] = providers.Config{
			APIKey:  fb.APIKey,
			ModelID: fb.ModelID,
			BaseURL: fb.BaseURL,
			Timeout: config.Timeout,
		}
		preferenceOrder = append(preferenceOrder, fb.Name)
	}

	factory := providers.NewProviderFactory(providerConfigs)

	primary, err := factory.GetProvider(ctx, config.ProviderName)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create primary provider: %v", ErrConfigError, err)
	}
	fallbacks := factory.GetProviderChain(ctx, preferenceOrder, config.ProviderName)

	return NewAISummarizerWithProviders(config, metrics, primary, fallbacks...), nil
}

// NewAISummarizerWithProviders wires already constructed providers.
func NewAISummarizerWithProviders(config *AISummarizerConfig, metrics *telemetry.MetricsCollector, primary providers.LLMProvider, fallbacks ...providers.LLMProvider) *AISummarizer {
	if config == nil {
		config = &AISummarizerConfig{}
	}
	config.applyDefaults()
	if metrics == nil {
		metrics = telemetry.NewMetricsCollector()
	}

	s := &AISummarizer{
		provider:          primary,
		fallbackProviders: fallbacks,
		breakers:          make(map[string]*circuitbreaker.CircuitBreaker),
		timeout:           config.Timeout,
		retryConfig:       retry.ProviderConfig(config.MaxRetries, config.RetryDelay),
		cache: &summaryCache{
			items:    make(map[string]cachedSummary),
			capacity: config.CacheCapacity,
			ttl:      config.CacheTTL,
		},
		metrics: metrics,
		logger:  slog.Default().With("component", "ai_summarizer"),
	}
	if config.ExtractiveFallback {
		s.extractive = NewBasicSummarizer()
	}

	for _, p := range append([]providers.LLMProvider{primary}, fallbacks...) {
		if p == nil {
			continue
		}
		s.breakers[p.Name()] = circuitbreaker.New(circuitbreaker.ProviderConfig(p.Name()))
	}

	return s
}

// ProviderName returns the name of the primary provider.
func (s *AISummarizer) ProviderName() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

// Summarize implements Capability.
func (s *AISummarizer) Summarize(ctx context.Context, text string, budget LengthBudget) (string, error) {
	key := util.CacheKey(text, budget.MaxLength, budget.MinLength)
	if summary, found := s.checkCache(key); found {
		s.metrics.RecordCacheLookup(true)
		return summary, nil
	}
	s.metrics.RecordCacheLookup(false)

	req := providers.Request{
		Text:          text,
		MaxWords:      budget.MaxLength,
		MinWords:      budget.MinLength,
		Deterministic: budget.Deterministic,
	}

	summary, err := s.callProvider(ctx, s.provider, req)
	if err == nil {
		s.cacheResult(key, summary)
		return summary, nil
	}
	lastErr := err
	s.logger.Warn("Primary provider failed", "provider", s.provider.Name(), "error", err)

	for _, fallback := range s.fallbackProviders {
		if ctx.Err() != nil {
			break
		}
		summary, err = s.callProvider(ctx, fallback, req)
		s.metrics.RecordFallback(err == nil)
		if err == nil {
			s.cacheResult(key, summary)
			return summary, nil
		}
		lastErr = err
		s.logger.Warn("Fallback provider failed", "provider", fallback.Name(), "error", err)
	}

	if s.extractive != nil && ctx.Err() == nil {
		return s.extractive.Summarize(ctx, text, budget)
	}

	return "", fmt.Errorf("%w: %w", ErrSummarizationFailed, lastErr)
}

// callProvider runs one provider call behind its breaker and the retry policy.
func (s *AISummarizer) callProvider(ctx context.Context, provider providers.LLMProvider, req providers.Request) (string, error) {
	name := provider.Name()
	breaker := s.breakers[name]

	cfg := s.retryConfig
	cfg.OnRetry = func(int, error) { s.metrics.RecordRetry(name) }

	var summary string
	err := retry.WithBackoff(ctx, cfg, func() error {
		call := func() (string, error) {
			callCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			start := time.Now()
			out, err := provider.Summarize(callCtx, req)
			s.metrics.RecordProviderCall(name, err, time.Since(start))
			return out, err
		}

		var out string
		var err error
		if breaker != nil {
			out, err = breaker.Call(call)
		} else {
			out, err = call()
		}
		if err != nil {
			return err
		}
		summary = out
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return summary, nil
}

// checkCache looks for a cached summary
func (s *AISummarizer) checkCache(key string) (string, bool) {
	s.cache.mu.RLock()
	defer s.cache.mu.RUnlock()

	if item, exists := s.cache.items[key]; exists && time.Now().Before(item.expireAt) {
		return item.summary, true
	}
	return "", false
}

// cacheResult stores a summary in the cache
func (s *AISummarizer) cacheResult(key, summary string) {
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()

	now := time.Now()
	if len(s.cache.items) >= s.cache.capacity {
		// Drop expired entries first, then any one entry if still full.
		for k, item := range s.cache.items {
			if now.After(item.expireAt) {
				delete(s.cache.items, k)
			}
		}
		if len(s.cache.items) >= s.cache.capacity {
			for k := range s.cache.items {
				delete(s.cache.items, k)
				break
			}
		}
	}

	s.cache.items[key] = cachedSummary{
		summary:  summary,
		expireAt: now.Add(s.cache.ttl),
	}

	s.metrics.SetCacheSize(len(s.cache.items))
}

// Close releases providers that hold client connections.
func (s *AISummarizer) Close() error {
	var errs []error
	for _, p := range append([]providers.LLMProvider{s.provider}, s.fallbackProviders...) {
		if closer, ok := p.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// GetMetrics returns the metrics collector for this summarizer
func (s *AISummarizer) GetMetrics() *telemetry.MetricsCollector {
	return s.metrics
}

// healthCheckText is summarized by every provider during a health check.
const healthCheckText = "This is a brief health check for the summarization provider. " +
	"It verifies that the provider answers a short request within the timeout."

// CheckProviderHealth sends a short request to every provider, bypassing the
// cache and the retry policy, and reports which ones answered.
func (s *AISummarizer) CheckProviderHealth(ctx context.Context) map[string]bool {
	results := make(map[string]bool)
	req := providers.Request{Text: healthCheckText, MaxWords: 20, MinWords: 5, Deterministic: true}

	for _, provider := range append([]providers.LLMProvider{s.provider}, s.fallbackProviders...) {
		if provider == nil {
			continue
		}
		name := provider.Name()
		if _, alreadyChecked := results[name]; alreadyChecked {
			continue
		}

		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err := provider.Summarize(checkCtx, req)
		cancel()

		results[name] = err == nil
		s.metrics.SetProviderHealth(name, err == nil)
	}

	return results
}

// Package telemetry provides metrics collection and reporting
// for monitoring the summarization service.
package telemetry

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeEmpty   = "empty"
)

// MetricsCollector records summarizer metrics on a private Prometheus
// registry so several collectors can coexist in one process.
type MetricsCollector struct {
	registry *prometheus.Registry

	providerCalls   *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	providerHealth  *prometheus.GaugeVec
	retries         *prometheus.CounterVec
	fallbacks       *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	cacheSize       prometheus.Gauge
	chunks          *prometheus.CounterVec
	summaries       *prometheus.CounterVec
	summaryDuration prometheus.Histogram
	extractions     *prometheus.CounterVec
}

// NewMetricsCollector creates a new MetricsCollector instance
func NewMetricsCollector() *MetricsCollector {
	m := &MetricsCollector{
		registry: prometheus.NewRegistry(),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "protext_provider_calls_total",
			Help: "Summarization provider calls by provider and outcome",
		}, []string{"provider", "outcome"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "protext_provider_latency_seconds",
			Help:    "Latency of summarization provider calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"provider"}),
		providerHealth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "protext_provider_up",
			Help: "Result of the last provider health check (1=up, 0=down)",
		}, []string{"provider"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "protext_provider_retries_total",
			Help: "Retry attempts per provider",
		}, []string{"provider"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "protext_fallbacks_total",
			Help: "Fallback provider attempts by outcome",
		}, []string{"outcome"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "protext_cache_lookups_total",
			Help: "Summary cache lookups by result",
		}, []string{"result"}),
		cacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "protext_cache_entries",
			Help: "Number of cached chunk summaries",
		}),
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "protext_chunks_total",
			Help: "Chunks processed by outcome",
		}, []string{"outcome"}),
		summaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "protext_summaries_total",
			Help: "Summarization requests by outcome",
		}, []string{"outcome"}),
		summaryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "protext_summary_duration_seconds",
			Help:    "Wall-clock time of whole summarization requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "protext_extractions_total",
			Help: "Document text extractions by format and outcome",
		}, []string{"format", "outcome"}),
	}

	m.registry.MustRegister(
		m.providerCalls,
		m.providerLatency,
		m.providerHealth,
		m.retries,
		m.fallbacks,
		m.cacheLookups,
		m.cacheSize,
		m.chunks,
		m.summaries,
		m.summaryDuration,
		m.extractions,
	)

	return m
}

// Registry returns the registry holding every metric of this collector.
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collector's metrics in the Prometheus exposition format.
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordProviderCall records one call to a summarization provider.
func (m *MetricsCollector) RecordProviderCall(provider string, err error, d time.Duration) {
	m.providerCalls.WithLabelValues(provider, outcome(err == nil)).Inc()
	m.providerLatency.WithLabelValues(provider).Observe(d.Seconds())
}

// RecordRetry records a retry attempt against a provider.
func (m *MetricsCollector) RecordRetry(provider string) {
	m.retries.WithLabelValues(provider).Inc()
}

// RecordFallback records an attempt on a fallback provider.
func (m *MetricsCollector) RecordFallback(success bool) {
	m.fallbacks.WithLabelValues(outcome(success)).Inc()
}

// RecordCacheLookup records a cache hit or miss.
func (m *MetricsCollector) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// SetCacheSize sets the current number of cache entries.
func (m *MetricsCollector) SetCacheSize(n int) {
	m.cacheSize.Set(float64(n))
}

// SetProviderHealth records the latest health check result of a provider.
func (m *MetricsCollector) SetProviderHealth(provider string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1.0
	}
	m.providerHealth.WithLabelValues(provider).Set(v)
}

// RecordChunk records the outcome of one chunk summarization.
func (m *MetricsCollector) RecordChunk(success bool) {
	m.chunks.WithLabelValues(outcome(success)).Inc()
}

// RecordSummary records a whole summarization request.
func (m *MetricsCollector) RecordSummary(result string, d time.Duration) {
	m.summaries.WithLabelValues(result).Inc()
	m.summaryDuration.Observe(d.Seconds())
}

// RecordExtraction records a document extraction attempt.
func (m *MetricsCollector) RecordExtraction(format string, success bool) {
	m.extractions.WithLabelValues(format, outcome(success)).Inc()
}

// ProviderCalls returns the number of provider calls with the given outcome
// summed over all providers.
func (m *MetricsCollector) ProviderCalls(result string) int64 {
	return m.sumCounter("protext_provider_calls_total", "outcome", result)
}

// CacheLookups returns the number of cache lookups with the given result ("hit" or "miss").
func (m *MetricsCollector) CacheLookups(result string) int64 {
	return m.sumCounter("protext_cache_lookups_total", "result", result)
}

// Chunks returns the number of chunks processed with the given outcome.
func (m *MetricsCollector) Chunks(result string) int64 {
	return m.sumCounter("protext_chunks_total", "outcome", result)
}

// CacheSize returns the current cache entry gauge.
func (m *MetricsCollector) CacheSize() int64 {
	var metric dto.Metric
	if err := m.cacheSize.Write(&metric); err != nil {
		return 0
	}
	return int64(metric.GetGauge().GetValue())
}

// ProviderLatencyAverage returns the mean call latency of a provider.
func (m *MetricsCollector) ProviderLatencyAverage(provider string) time.Duration {
	observer, err := m.providerLatency.GetMetricWithLabelValues(provider)
	if err != nil {
		return 0
	}
	h, ok := observer.(prometheus.Histogram)
	if !ok {
		return 0
	}
	var metric dto.Metric
	if err := h.Write(&metric); err != nil {
		return 0
	}
	count := metric.GetHistogram().GetSampleCount()
	if count == 0 {
		return 0
	}
	seconds := metric.GetHistogram().GetSampleSum() / float64(count)
	return time.Duration(seconds * float64(time.Second))
}

// GetReport generates a plain text report of all collected metrics
func (m *MetricsCollector) GetReport() string {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Sprintf("Metrics unavailable: %v\n", err)
	}

	var b strings.Builder
	b.WriteString("Metrics Report:\n")
	b.WriteString("==============\n\n")

	for _, family := range families {
		for _, metric := range family.GetMetric() {
			name := family.GetName() + labelString(metric.GetLabel())
			switch family.GetType() {
			case dto.MetricType_COUNTER:
				fmt.Fprintf(&b, "  %s: %.0f\n", name, metric.GetCounter().GetValue())
			case dto.MetricType_GAUGE:
				fmt.Fprintf(&b, "  %s: %.2f\n", name, metric.GetGauge().GetValue())
			case dto.MetricType_HISTOGRAM:
				h := metric.GetHistogram()
				avg := 0.0
				if h.GetSampleCount() > 0 {
					avg = h.GetSampleSum() / float64(h.GetSampleCount())
				}
				fmt.Fprintf(&b, "  %s: avg=%.3fs count=%d\n", name, avg, h.GetSampleCount())
			}
		}
	}

	return b.String()
}

func (m *MetricsCollector) sumCounter(family, label, value string) int64 {
	families, err := m.registry.Gather()
	if err != nil {
		return 0
	}

	var total float64
	for _, f := range families {
		if f.GetName() != family {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetName() == label && l.GetValue() == value {
					total += metric.GetCounter().GetValue()
				}
			}
		}
	}
	return int64(total)
}

func labelString(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, l.GetName()+"="+l.GetValue())
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ",") + "}"
}

func outcome(success bool) string {
	if success {
		return OutcomeSuccess
	}
	return OutcomeFailure
}

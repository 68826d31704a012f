package telemetry

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestProviderCallCounters(t *testing.T) {
	m := NewMetricsCollector()

	m.RecordProviderCall("huggingface", nil, 100*time.Millisecond)
	m.RecordProviderCall("huggingface", nil, 300*time.Millisecond)
	m.RecordProviderCall("openai", errors.New("boom"), 50*time.Millisecond)

	if got := m.ProviderCalls(OutcomeSuccess); got != 2 {
		t.Errorf("Expected 2 successful calls, got %d", got)
	}
	if got := m.ProviderCalls(OutcomeFailure); got != 1 {
		t.Errorf("Expected 1 failed call, got %d", got)
	}

	avg := m.ProviderLatencyAverage("huggingface")
	if avg < 190*time.Millisecond || avg > 210*time.Millisecond {
		t.Errorf("Expected average latency near 200ms, got %v", avg)
	}
	if got := m.ProviderLatencyAverage("unknown"); got != 0 {
		t.Errorf("Expected zero latency for unused provider, got %v", got)
	}
}

func TestCacheAndChunkCounters(t *testing.T) {
	m := NewMetricsCollector()

	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordCacheLookup(false)
	m.SetCacheSize(7)
	m.RecordChunk(true)
	m.RecordChunk(false)

	if got := m.CacheLookups("hit"); got != 1 {
		t.Errorf("Expected 1 hit, got %d", got)
	}
	if got := m.CacheLookups("miss"); got != 2 {
		t.Errorf("Expected 2 misses, got %d", got)
	}
	if got := m.CacheSize(); got != 7 {
		t.Errorf("Expected cache size 7, got %d", got)
	}
	if got := m.Chunks(OutcomeFailure); got != 1 {
		t.Errorf("Expected 1 failed chunk, got %d", got)
	}
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewMetricsCollector()
	b := NewMetricsCollector()

	a.RecordChunk(true)

	if got := b.Chunks(OutcomeSuccess); got != 0 {
		t.Errorf("Expected separate registries, got %d chunks on the second collector", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetricsCollector()
	m.RecordSummary(OutcomeSuccess, time.Second)
	m.RecordExtraction("pdf", false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{"protext_summaries_total", "protext_extractions_total"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("Expected exposition to contain %s", want)
		}
	}
}

func TestGetReport(t *testing.T) {
	m := NewMetricsCollector()
	m.RecordRetry("anthropic")
	m.RecordFallback(true)

	report := m.GetReport()
	if !strings.Contains(report, "protext_provider_retries_total{provider=anthropic}: 1") {
		t.Errorf("Report missing retry counter:\n%s", report)
	}
	if !strings.Contains(report, "protext_fallbacks_total{outcome=success}: 1") {
		t.Errorf("Report missing fallback counter:\n%s", report)
	}
}

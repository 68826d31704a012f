package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/localrivet/protext/internal/telemetry"
)

// Version is reported in health reports.
var Version = "1.0.0"

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	// StatusHealthy indicates a component is fully operational
	StatusHealthy HealthStatus = "healthy"

	// StatusDegraded indicates a component is operational but with reduced capability
	StatusDegraded HealthStatus = "degraded"

	// StatusUnhealthy indicates a component is not operational
	StatusUnhealthy HealthStatus = "unhealthy"
)

// HealthReport contains information about the current health of the summarization capability
type HealthReport struct {
	Status        HealthStatus       `json:"status"`
	Timestamp     time.Time          `json:"timestamp"`
	Capability    string             `json:"capability"`
	Error         string             `json:"error,omitempty"`
	Components    map[string]string  `json:"components"`
	Providers     map[string]bool    `json:"providers"`
	ResponseTimes map[string]float64 `json:"response_times_ms"`
	CacheStats    map[string]int64   `json:"cache_stats"`
	SuccessRate   float64            `json:"success_rate"`
	TotalRequests int64              `json:"total_requests"`
	Version       string             `json:"version"`
}

// CreateHealthReport generates a health report for the AI summarizer
func CreateHealthReport(ctx context.Context, summarizer *AISummarizer) (*HealthReport, error) {
	if summarizer == nil {
		return nil, fmt.Errorf("summarizer is nil")
	}

	m := summarizer.GetMetrics()
	if m == nil {
		return nil, fmt.Errorf("metrics collector is nil")
	}

	providerHealth := summarizer.CheckProviderHealth(ctx)

	status := StatusHealthy
	workingProviders := 0
	for _, isHealthy := range providerHealth {
		if isHealthy {
			workingProviders++
		}
	}
	if workingProviders == 0 {
		status = StatusUnhealthy
	} else if workingProviders < len(providerHealth) {
		status = StatusDegraded
	}

	totalSuccess := m.ProviderCalls(telemetry.OutcomeSuccess)
	totalFailure := m.ProviderCalls(telemetry.OutcomeFailure)
	totalRequests := totalSuccess + totalFailure

	var successRate float64
	if totalRequests > 0 {
		successRate = float64(totalSuccess) / float64(totalRequests) * 100.0
	}

	responseTimes := make(map[string]float64, len(providerHealth))
	for name := range providerHealth {
		responseTimes[name] = float64(m.ProviderLatencyAverage(name)) / float64(time.Millisecond)
	}

	cacheStats := map[string]int64{
		"hits":   m.CacheLookups("hit"),
		"misses": m.CacheLookups("miss"),
		"size":   m.CacheSize(),
	}

	components := map[string]string{
		"cache":     string(StatusHealthy),
		"primary":   string(StatusUnhealthy),
		"fallbacks": string(StatusUnhealthy),
	}
	for provider, healthy := range providerHealth {
		if healthy && provider == summarizer.ProviderName() {
			components["primary"] = string(StatusHealthy)
		} else if healthy {
			components["fallbacks"] = string(StatusHealthy)
		}
	}
	if len(summarizer.fallbackProviders) == 0 {
		delete(components, "fallbacks")
	}

	return &HealthReport{
		Status:        status,
		Timestamp:     time.Now(),
		Capability:    StatusReady.String(),
		Components:    components,
		Providers:     providerHealth,
		ResponseTimes: responseTimes,
		CacheStats:    cacheStats,
		SuccessRate:   successRate,
		TotalRequests: totalRequests,
		Version:       Version,
	}, nil
}

// HandleHealth reports on whatever the handle holds. An unavailable handle
// is always unhealthy and is not checked.
func HandleHealth(ctx context.Context, h *Handle) *HealthReport {
	report := &HealthReport{
		Status:     StatusHealthy,
		Timestamp:  time.Now(),
		Capability: h.Status().String(),
		Components: map[string]string{},
		Providers:  map[string]bool{},
		Version:    Version,
	}

	capability, err := h.Capability()
	if err != nil {
		report.Status = StatusUnhealthy
		report.Error = err.Error()
		report.Components["capability"] = string(StatusUnhealthy)
		return report
	}

	if ai, ok := capability.(*AISummarizer); ok {
		if full, err := CreateHealthReport(ctx, ai); err == nil {
			return full
		}
	}

	report.Components["capability"] = string(StatusHealthy)
	report.Providers[h.Name()] = true
	return report
}

// CreateHealthReportJSON generates a JSON health report for the AI summarizer
func CreateHealthReportJSON(ctx context.Context, summarizer *AISummarizer) (string, error) {
	report, err := CreateHealthReport(ctx, summarizer)
	if err != nil {
		return "", err
	}

	reportJSON, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal health report: %w", err)
	}

	return string(reportJSON), nil
}

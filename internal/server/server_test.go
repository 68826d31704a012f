package server

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/localrivet/protext/internal/artifacts"
	"github.com/localrivet/protext/internal/service"
	"github.com/localrivet/protext/internal/summarizer"
	"github.com/localrivet/protext/internal/tools"
)

// echoFirstSentence is a capability that returns the first sentence of each chunk.
var echoFirstSentence = summarizer.CapabilityFunc(func(_ context.Context, text string, _ summarizer.LengthBudget) (string, error) {
	if strings.Contains(text, "FAIL") {
		return "", errors.New("model error")
	}
	return strings.SplitN(text, ".", 2)[0] + ".", nil
})

func newTestService(t *testing.T, handle *summarizer.Handle) *service.Service {
	t.Helper()
	store := artifacts.NewSQLiteStore(time.Hour)
	if err := store.Initialize(artifacts.MemoryPath); err != nil {
		t.Fatalf("Failed to initialize store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return service.New(handle, store)
}

func newTestToolServer(t *testing.T, handle *summarizer.Handle) *MCPToolServer {
	t.Helper()
	s := NewMCPToolServer(newTestService(t, handle), "protext-test", time.Minute)
	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}
	return s
}

func TestInitializeRequiresService(t *testing.T) {
	s := NewMCPToolServer(nil, "", 0)
	if err := s.Initialize(); !errors.Is(err, ErrMissingDependencies) {
		t.Errorf("expected ErrMissingDependencies, got %v", err)
	}
	if err := s.Start(); !errors.Is(err, ErrServerNotInitialized) {
		t.Errorf("expected ErrServerNotInitialized, got %v", err)
	}
}

// TestSummarizeText tests the summarize_text tool handler
func TestSummarizeText(t *testing.T) {
	s := newTestToolServer(t, summarizer.Ready(echoFirstSentence, "fake"))

	response, err := s.handleSummarizeText(nil, tools.SummarizeTextRequest{
		Text: "The first sentence matters. The rest is detail that can go.",
	})
	if err != nil {
		t.Fatalf("handleSummarizeText returned error: %v", err)
	}

	if response.Status != tools.StatusSuccess {
		t.Fatalf("Expected status=success, got %s (%s)", response.Status, response.Error)
	}
	if response.Summary != "The first sentence matters." {
		t.Errorf("Unexpected summary: %q", response.Summary)
	}
	if response.Report == nil || response.Report.OriginalWords != 11 || response.Report.SummaryWords != 4 {
		t.Errorf("Unexpected report: %+v", response.Report)
	}
	if response.Report.ReductionPercent == nil || *response.Report.ReductionPercent != 63 {
		t.Errorf("Expected 63%% reduction, got %v", response.Report.ReductionPercent)
	}
	if len(response.Artifacts) != 1 {
		t.Fatalf("Expected one artifact, got %d", len(response.Artifacts))
	}

	artifact, err := s.handleGetArtifact(nil, tools.GetArtifactRequest{ID: response.Artifacts[0].ID})
	if err != nil {
		t.Fatalf("handleGetArtifact returned error: %v", err)
	}
	if artifact.Status != tools.StatusSuccess || artifact.Content != response.Summary {
		t.Errorf("Unexpected artifact response: %+v", artifact)
	}
	if !strings.HasPrefix(artifact.FileName, "summary_") {
		t.Errorf("Unexpected artifact name: %s", artifact.FileName)
	}
}

func TestSummarizeTextErrors(t *testing.T) {
	s := newTestToolServer(t, summarizer.Ready(echoFirstSentence, "fake"))

	response, err := s.handleSummarizeText(nil, tools.SummarizeTextRequest{Text: "   "})
	if err != nil {
		t.Fatalf("We expect no direct error from handler: %v", err)
	}
	if response.Status != tools.StatusError || response.Error != "Please enter some text to summarize." {
		t.Errorf("Unexpected response for blank input: %+v", response)
	}

	response, _ = s.handleSummarizeText(nil, tools.SummarizeTextRequest{Text: "Text.", MaxLength: 500})
	if response.Status != tools.StatusError || !strings.Contains(response.Error, "max_length") {
		t.Errorf("Unexpected response for invalid settings: %+v", response)
	}

	unavailable := newTestToolServer(t, summarizer.Unavailable(errors.New("missing key")))
	response, _ = unavailable.handleSummarizeText(nil, tools.SummarizeTextRequest{Text: "Text."})
	if response.Status != tools.StatusError || !strings.Contains(response.Error, "missing key") {
		t.Errorf("Unexpected response for unavailable capability: %+v", response)
	}
}

// TestSummarizeDocument tests the summarize_document tool handler
func TestSummarizeDocument(t *testing.T) {
	s := newTestToolServer(t, summarizer.Ready(echoFirstSentence, "fake"))

	content := base64.StdEncoding.EncodeToString([]byte("Meeting notes follow. We agreed on the plan."))
	response, err := s.handleSummarizeDocument(nil, tools.SummarizeDocumentRequest{
		FileName:      "notes.txt",
		ContentBase64: content,
	})
	if err != nil {
		t.Fatalf("handleSummarizeDocument returned error: %v", err)
	}
	if response.Status != tools.StatusSuccess {
		t.Fatalf("Expected status=success, got %s (%s)", response.Status, response.Error)
	}
	if response.File == nil || response.File.Name != "notes.txt" {
		t.Errorf("Unexpected file info: %+v", response.File)
	}
	if len(response.Artifacts) != 2 {
		t.Errorf("Expected summary and extracted text artifacts, got %d", len(response.Artifacts))
	}

	response, _ = s.handleSummarizeDocument(nil, tools.SummarizeDocumentRequest{FileName: "x.txt", ContentBase64: "***"})
	if response.Status != tools.StatusError {
		t.Errorf("Expected an error for invalid base64, got %+v", response)
	}
}

func TestGetArtifactUnknown(t *testing.T) {
	s := newTestToolServer(t, summarizer.Ready(echoFirstSentence, "fake"))

	response, err := s.handleGetArtifact(nil, tools.GetArtifactRequest{ID: "nope"})
	if err != nil {
		t.Fatalf("handleGetArtifact returned error: %v", err)
	}
	if response.Status != tools.StatusError || response.Error == "" {
		t.Errorf("Unexpected response: %+v", response)
	}
}

func TestSummarizerHealth(t *testing.T) {
	ready := newTestToolServer(t, summarizer.Ready(summarizer.NewBasicSummarizer(), summarizer.ProviderExtractive))
	response, _ := ready.handleSummarizerHealth(nil, tools.SummarizerHealthRequest{})
	if response.Status != tools.StatusSuccess || response.Capability != "ready" {
		t.Errorf("Unexpected response: %+v", response)
	}

	down := newTestToolServer(t, summarizer.Unavailable(errors.New("no model")))
	response, _ = down.handleSummarizerHealth(nil, tools.SummarizerHealthRequest{})
	if response.Status != tools.StatusError || response.Health != string(summarizer.StatusUnhealthy) {
		t.Errorf("Unexpected response: %+v", response)
	}
}

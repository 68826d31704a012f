// Package service composes validation, document extraction, chunked
// summarization, reporting and artifact storage into the operations every
// surface exposes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/localrivet/protext/internal/artifacts"
	"github.com/localrivet/protext/internal/chunker"
	"github.com/localrivet/protext/internal/errortypes"
	"github.com/localrivet/protext/internal/extract"
	"github.com/localrivet/protext/internal/report"
	"github.com/localrivet/protext/internal/summarizer"
	"github.com/localrivet/protext/internal/telemetry"
)

// Bounds of the user-facing length settings.
const (
	MinMaxLength = 30
	MaxMaxLength = 300
	MinMinLength = 10
	MaxMinLength = 100

	// DefaultMaxUploadBytes caps uploaded documents.
	DefaultMaxUploadBytes = 20 << 20
)

// EmptyInputMessage is shown to the user for blank text.
const EmptyInputMessage = "Please enter some text to summarize."

var (
	// ErrEmptyInput is returned for blank text.
	ErrEmptyInput = errors.New("empty input")
	// ErrEmptyFile is returned for an upload with no bytes.
	ErrEmptyFile = errors.New("uploaded file is empty")
	// ErrFileTooLarge is returned for uploads above the configured limit.
	ErrFileTooLarge = errors.New("uploaded file is too large")
	// ErrInvalidSettings is returned for length settings out of range.
	ErrInvalidSettings = errors.New("invalid summary settings")
	// ErrNoTextExtracted is returned when a document yields no text.
	ErrNoTextExtracted = errors.New("no text could be extracted from the document")
	// ErrNoSummary is returned when every chunk failed.
	ErrNoSummary = errors.New("summarization produced no output")
)

// Settings are the user-chosen word bounds.
type Settings struct {
	MaxLength int `json:"max_length" yaml:"max_length"`
	MinLength int `json:"min_length" yaml:"min_length"`
}

// DefaultSettings returns the settings used when a caller supplies none.
func DefaultSettings() Settings {
	return Settings{MaxLength: summarizer.DefaultMaxLength, MinLength: summarizer.DefaultMinLength}
}

// WithDefaults replaces zero values by the defaults.
func (s Settings) WithDefaults() Settings {
	d := DefaultSettings()
	if s.MaxLength == 0 {
		s.MaxLength = d.MaxLength
	}
	if s.MinLength == 0 {
		s.MinLength = d.MinLength
	}
	return s
}

// Validate checks both bounds and that MinLength does not exceed MaxLength.
func (s Settings) Validate() error {
	switch {
	case s.MaxLength < MinMaxLength || s.MaxLength > MaxMaxLength:
		return fmt.Errorf("%w: max_length must be between %d and %d, got %d",
			ErrInvalidSettings, MinMaxLength, MaxMaxLength, s.MaxLength)
	case s.MinLength < MinMinLength || s.MinLength > MaxMinLength:
		return fmt.Errorf("%w: min_length must be between %d and %d, got %d",
			ErrInvalidSettings, MinMinLength, MaxMinLength, s.MinLength)
	case s.MinLength > s.MaxLength:
		return fmt.Errorf("%w: min_length (%d) cannot exceed max_length (%d)",
			ErrInvalidSettings, s.MinLength, s.MaxLength)
	}
	return nil
}

// ProgressFunc is called after every chunk.
type ProgressFunc func(done, total int)

// TextRequest asks for a summary of pasted text.
type TextRequest struct {
	Text     string
	Settings Settings
	Progress ProgressFunc
}

// DocumentRequest asks for a summary of an uploaded document.
type DocumentRequest struct {
	FileName    string
	ContentType string
	Data        []byte
	Settings    Settings
	Progress    ProgressFunc
}

// FileInfo describes an uploaded document.
type FileInfo struct {
	Name      string  `json:"name" yaml:"name"`
	SizeBytes int     `json:"size_bytes" yaml:"size_bytes"`
	SizeKB    float64 `json:"size_kb" yaml:"size_kb"`
	Type      string  `json:"type" yaml:"type"`
}

// ArtifactRef points at a stored download.
type ArtifactRef struct {
	ID       string `json:"id" yaml:"id"`
	Kind     string `json:"kind" yaml:"kind"`
	FileName string `json:"file_name" yaml:"file_name"`
}

// Response is the outcome of a successful summarization.
type Response struct {
	Summary       string         `json:"summary" yaml:"summary"`
	Report        report.Metrics `json:"report" yaml:"report"`
	Chunks        int            `json:"chunks" yaml:"chunks"`
	FailedChunks  int            `json:"failed_chunks" yaml:"failed_chunks"`
	Warnings      []string       `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Artifacts     []ArtifactRef  `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
	File          *FileInfo      `json:"file,omitempty" yaml:"file,omitempty"`
	ExtractedText string         `json:"extracted_text,omitempty" yaml:"extracted_text,omitempty"`
}

// Service runs summarization requests against one capability handle.
type Service struct {
	handle         *summarizer.Handle
	store          artifacts.Store
	extractor      *extract.Registry
	metrics        *telemetry.MetricsCollector
	logger         *slog.Logger
	maxChunkChars  int
	maxUploadBytes int
	now            func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records request metrics on m.
func WithMetrics(m *telemetry.MetricsCollector) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxChunkChars sets the chunk size.
func WithMaxChunkChars(n int) Option {
	return func(s *Service) { s.maxChunkChars = n }
}

// WithMaxUploadBytes sets the largest accepted document.
func WithMaxUploadBytes(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithClock overrides the time source used for artifact file names.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service. store may be nil, in which case no artifacts are kept.
func New(handle *summarizer.Handle, store artifacts.Store, opts ...Option) *Service {
	s := &Service{
		handle:         handle,
		store:          store,
		extractor:      extract.NewRegistry(),
		metrics:        telemetry.NewMetricsCollector(),
		logger:         slog.Default().With("component", "service"),
		maxChunkChars:  chunker.DefaultMaxChunkChars,
		maxUploadBytes: DefaultMaxUploadBytes,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle returns the capability handle the service was built with.
func (s *Service) Handle() *summarizer.Handle {
	return s.handle
}

// Metrics returns the collector the service records on.
func (s *Service) Metrics() *telemetry.MetricsCollector {
	return s.metrics
}

// SummarizeText summarizes pasted text.
func (s *Service) SummarizeText(ctx context.Context, req TextRequest) (*Response, error) {
	if strings.TrimSpace(req.Text) == "" {
		s.metrics.RecordSummary(telemetry.OutcomeEmpty, 0)
		return nil, errortypes.ValidationError(ErrEmptyInput, EmptyInputMessage)
	}

	settings := req.Settings.WithDefaults()
	if err := settings.Validate(); err != nil {
		return nil, errortypes.ValidationError(err, "")
	}

	capability, err := s.handle.Capability()
	if err != nil {
		return nil, errortypes.CapabilityError(err, "")
	}

	resp, err := s.summarize(ctx, capability, req.Text, settings, req.Progress)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// SummarizeDocument extracts the text of an uploaded document and summarizes it.
func (s *Service) SummarizeDocument(ctx context.Context, req DocumentRequest) (*Response, error) {
	if len(req.Data) == 0 {
		return nil, errortypes.ValidationError(ErrEmptyFile, "").WithField("file", req.FileName)
	}
	if len(req.Data) > s.maxUploadBytes {
		err := fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrFileTooLarge, len(req.Data), s.maxUploadBytes)
		return nil, errortypes.ValidationError(err, "").WithField("file", req.FileName)
	}

	settings := req.Settings.WithDefaults()
	if err := settings.Validate(); err != nil {
		return nil, errortypes.ValidationError(err, "")
	}

	capability, err := s.handle.Capability()
	if err != nil {
		return nil, errortypes.CapabilityError(err, "")
	}

	mimeType := extract.DetectMIME(req.FileName, req.ContentType, req.Data)
	info := &FileInfo{
		Name:      req.FileName,
		SizeBytes: len(req.Data),
		SizeKB:    math.Round(float64(len(req.Data))/1024*100) / 100,
		Type:      mimeType,
	}

	format := s.extractor.FormatOf(mimeType)
	doc, err := s.extractor.Extract(req.FileName, mimeType, req.Data)
	s.metrics.RecordExtraction(format, err == nil)
	if err != nil {
		s.logger.Warn("Document extraction failed", "file", req.FileName, "type", mimeType, "error", err)
		return nil, errortypes.ExtractionError(fmt.Errorf("%w: %w", ErrNoTextExtracted, err), "").
			WithField("file", req.FileName).
			WithField("type", mimeType)
	}

	s.logger.Info("Extracted document text",
		"file", req.FileName,
		"format", doc.Format,
		"words", chunker.WordCount(doc.Text))

	resp, err := s.summarize(ctx, capability, doc.Text, settings, req.Progress)
	if err != nil {
		return nil, err
	}
	resp.File = info
	resp.ExtractedText = doc.Text

	if ref, ok := s.storeArtifact(ctx, artifacts.KindExtractedText, report.PrefixExtractedText, doc.Text); ok {
		resp.Artifacts = append(resp.Artifacts, ref)
	} else if s.store != nil {
		resp.Warnings = append(resp.Warnings, "The extracted text could not be saved for download.")
	}

	return resp, nil
}

func (s *Service) summarize(ctx context.Context, capability summarizer.Capability, text string, settings Settings, progress ProgressFunc) (*Response, error) {
	opts := []summarizer.Option{
		summarizer.WithMaxChunkChars(s.maxChunkChars),
		summarizer.WithLogger(s.logger),
		summarizer.WithMetrics(s.metrics),
	}
	if progress != nil {
		opts = append(opts, summarizer.WithProgress(progress))
	}
	orchestrator := summarizer.NewOrchestrator(capability, opts...)

	start := time.Now()
	result := orchestrator.Summarize(ctx, text, settings.MaxLength, settings.MinLength)
	elapsed := time.Since(start)

	if result.Summary == "" {
		s.metrics.RecordSummary(telemetry.OutcomeFailure, elapsed)
		cause := ErrNoSummary
		if n := len(result.Failures); n > 0 {
			cause = fmt.Errorf("%w: %d of %d chunks failed, last error: %w",
				ErrNoSummary, n, result.Chunks, result.Failures[n-1].Err)
		}
		return nil, errortypes.APIError(cause, "").WithField("chunks", result.Chunks)
	}
	s.metrics.RecordSummary(telemetry.OutcomeSuccess, elapsed)

	resp := &Response{
		Summary:      result.Summary,
		Report:       report.Compute(text, result.Summary, elapsed),
		Chunks:       result.Chunks,
		FailedChunks: len(result.Failures),
	}
	for _, f := range result.Failures {
		resp.Warnings = append(resp.Warnings,
			fmt.Sprintf("Chunk %d of %d could not be summarized: %v", f.Index+1, result.Chunks, f.Err))
	}

	if ref, ok := s.storeArtifact(ctx, artifacts.KindSummary, report.PrefixSummary, result.Summary); ok {
		resp.Artifacts = append(resp.Artifacts, ref)
	} else if s.store != nil {
		resp.Warnings = append(resp.Warnings, "The summary could not be saved for download.")
	}

	s.logger.Info("Summarization complete",
		"chunks", result.Chunks,
		"failed_chunks", len(result.Failures),
		"original_words", resp.Report.OriginalWords,
		"summary_words", resp.Report.SummaryWords,
		"elapsed", elapsed)

	return resp, nil
}

func (s *Service) storeArtifact(ctx context.Context, kind, prefix, content string) (ArtifactRef, bool) {
	if s.store == nil {
		return ArtifactRef{}, false
	}

	stored, err := s.store.Put(ctx, artifacts.Artifact{
		Kind:     kind,
		FileName: report.ArtifactFileName(prefix, s.now()),
		Content:  []byte(content),
	})
	if err != nil {
		errortypes.LogError(s.logger, errortypes.StorageError(err, "failed to store artifact").WithField("kind", kind))
		return ArtifactRef{}, false
	}

	return ArtifactRef{ID: stored.ID, Kind: stored.Kind, FileName: stored.FileName}, true
}

// Artifact returns a stored download by id.
func (s *Service) Artifact(ctx context.Context, id string) (*artifacts.Artifact, error) {
	if s.store == nil || strings.TrimSpace(id) == "" {
		return nil, errortypes.NotFoundError(artifacts.ErrNotFound, "").WithField("id", id)
	}

	a, err := s.store.Get(ctx, id)
	if errors.Is(err, artifacts.ErrNotFound) {
		return nil, errortypes.NotFoundError(err, "").WithField("id", id)
	}
	if err != nil {
		return nil, errortypes.StorageError(err, "failed to load artifact").WithField("id", id)
	}
	return a, nil
}

// PurgeArtifacts removes expired downloads.
func (s *Service) PurgeArtifacts(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, nil
	}
	n, err := s.store.PurgeExpired(ctx, time.Now())
	if err != nil {
		return 0, errortypes.StorageError(err, "failed to purge artifacts")
	}
	if n > 0 {
		s.logger.Debug("Purged expired artifacts", "count", n)
	}
	return n, nil
}

// Health reports on the summarization capability.
func (s *Service) Health(ctx context.Context) *summarizer.HealthReport {
	return summarizer.HandleHealth(ctx, s.handle)
}

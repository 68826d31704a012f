package server

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"time"

	"github.com/localrivet/gomcp/server"
	"github.com/localrivet/protext/internal/errortypes"
	"github.com/localrivet/protext/internal/service"
	"github.com/localrivet/protext/internal/summarizer"
	"github.com/localrivet/protext/internal/tools"
)

// Common server error types
var (
	ErrServerNotInitialized = errors.New("server not initialized")
	ErrMissingDependencies  = errors.New("one or more required dependencies are nil")
)

// DefaultRequestTimeout bounds a single tool call.
const DefaultRequestTimeout = 10 * time.Minute

// MCPToolServer implements ToolServer for MCP clients over stdio.
type MCPToolServer struct {
	svc       *service.Service
	timeout   time.Duration
	name      string
	mcpServer server.Server
}

// NewMCPToolServer creates a new MCPToolServer instance.
func NewMCPToolServer(svc *service.Service, name string, timeout time.Duration) *MCPToolServer {
	if name == "" {
		name = "protext"
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &MCPToolServer{svc: svc, name: name, timeout: timeout}
}

// Initialize creates the MCP server and registers the tools.
func (s *MCPToolServer) Initialize() error {
	slog.Info("Initializing MCP Tool Server")

	if s.svc == nil {
		return errortypes.ConfigError(ErrMissingDependencies, "server initialization failed")
	}

	s.mcpServer = s.RegisterTools(server.NewServer(s.name))
	slog.Info("MCP Tool Server initialized successfully", "tool_count", 4)
	return nil
}

// RegisterTools adds the summarization tools to srv, which may be a host
// application's own MCP server.
func (s *MCPToolServer) RegisterTools(srv server.Server) server.Server {
	srv = srv.Tool(tools.ToolSummarizeText,
		"Summarize text. Long input is split into chunks that are summarized in order.",
		s.handleSummarizeText)

	srv = srv.Tool(tools.ToolSummarizeDocument,
		"Extract the text of a PDF, Word (.docx) or plain text document and summarize it",
		s.handleSummarizeDocument)

	srv = srv.Tool(tools.ToolGetArtifact,
		"Fetch a summary or extracted-text download by id",
		s.handleGetArtifact)

	srv = srv.Tool(tools.ToolSummarizerHealth,
		"Report whether the summarization capability is available",
		s.handleSummarizerHealth)

	return srv
}

// Start starts the MCP server on the stdio transport.
func (s *MCPToolServer) Start() error {
	if s.mcpServer == nil {
		return errortypes.ConfigError(ErrServerNotInitialized, "cannot start server")
	}

	slog.Info("Starting MCP Tool Server")
	return s.mcpServer.AsStdio().Run()
}

// Stop gracefully shuts down the MCP server.
func (s *MCPToolServer) Stop() error {
	slog.Info("Stopping MCP Tool Server")
	// The server will exit when stdin is closed
	return nil
}

func (s *MCPToolServer) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// handleSummarizeText handles the summarize_text MCP tool call.
func (s *MCPToolServer) handleSummarizeText(ctx *server.Context, req tools.SummarizeTextRequest) (tools.SummarizeResponse, error) {
	slog.Info("Processing summarize_text request", "text_length", len(req.Text))

	reqCtx, cancel := s.requestContext()
	defer cancel()

	resp, err := s.svc.SummarizeText(reqCtx, service.TextRequest{
		Text:     req.Text,
		Settings: service.Settings{MaxLength: req.MaxLength, MinLength: req.MinLength},
	})
	if err != nil {
		return toolError(err), nil
	}

	slog.Info("Successfully summarized text", "chunks", resp.Chunks, "failed_chunks", resp.FailedChunks)
	return toToolResponse(resp), nil
}

// handleSummarizeDocument handles the summarize_document MCP tool call.
func (s *MCPToolServer) handleSummarizeDocument(ctx *server.Context, req tools.SummarizeDocumentRequest) (tools.SummarizeResponse, error) {
	slog.Info("Processing summarize_document request", "file", req.FileName)

	data, err := base64.StdEncoding.DecodeString(req.ContentBase64)
	if err != nil {
		return toolError(errortypes.ValidationError(err, "content_base64 is not valid base64")), nil
	}

	reqCtx, cancel := s.requestContext()
	defer cancel()

	resp, err := s.svc.SummarizeDocument(reqCtx, service.DocumentRequest{
		FileName:    req.FileName,
		ContentType: req.ContentType,
		Data:        data,
		Settings:    service.Settings{MaxLength: req.MaxLength, MinLength: req.MinLength},
	})
	if err != nil {
		return toolError(err), nil
	}

	slog.Info("Successfully summarized document", "file", req.FileName, "chunks", resp.Chunks)
	return toToolResponse(resp), nil
}

// handleGetArtifact handles the get_artifact MCP tool call.
func (s *MCPToolServer) handleGetArtifact(ctx *server.Context, req tools.GetArtifactRequest) (tools.GetArtifactResponse, error) {
	slog.Info("Processing get_artifact request", "id", req.ID)

	reqCtx, cancel := s.requestContext()
	defer cancel()

	a, err := s.svc.Artifact(reqCtx, req.ID)
	if err != nil {
		logToolError(err)
		return tools.GetArtifactResponse{Status: tools.StatusError, Error: userMessage(err)}, nil
	}

	return tools.GetArtifactResponse{
		Status:      tools.StatusSuccess,
		FileName:    a.FileName,
		ContentType: a.ContentType,
		Content:     string(a.Content),
	}, nil
}

// handleSummarizerHealth handles the summarizer_health MCP tool call.
func (s *MCPToolServer) handleSummarizerHealth(ctx *server.Context, req tools.SummarizerHealthRequest) (tools.SummarizerHealthResponse, error) {
	reqCtx, cancel := s.requestContext()
	defer cancel()

	report := s.svc.Health(reqCtx)
	resp := tools.SummarizerHealthResponse{
		Status:     tools.StatusSuccess,
		Health:     string(report.Status),
		Capability: report.Capability,
		Providers:  report.Providers,
		Version:    report.Version,
		Error:      report.Error,
	}
	if report.Status == summarizer.StatusUnhealthy {
		resp.Status = tools.StatusError
	}
	return resp, nil
}

func toolError(err error) tools.SummarizeResponse {
	logToolError(err)
	return tools.SummarizeResponse{Status: tools.StatusError, Error: userMessage(err)}
}

func logToolError(err error) {
	// Empty input is a prompt for the user, not a failure.
	if errors.Is(err, service.ErrEmptyInput) {
		slog.Info("Rejected empty input")
		return
	}
	errortypes.LogError(nil, err)
}

func userMessage(err error) string {
	var appErr *errortypes.AppError
	if errors.As(err, &appErr) {
		return appErr.UserMessage()
	}
	return err.Error()
}

func toToolResponse(resp *service.Response) tools.SummarizeResponse {
	out := tools.SummarizeResponse{
		Status:       tools.StatusSuccess,
		Summary:      resp.Summary,
		Chunks:       resp.Chunks,
		FailedChunks: resp.FailedChunks,
		Warnings:     resp.Warnings,
		Report: &tools.Report{
			OriginalWords:  resp.Report.OriginalWords,
			SummaryWords:   resp.Report.SummaryWords,
			ElapsedSeconds: resp.Report.ElapsedSeconds,
			Text:           resp.Report.String(),
		},
		ExtractedText: resp.ExtractedText,
	}
	if resp.Report.ReductionDefined {
		reduction := resp.Report.ReductionPercent
		out.Report.ReductionPercent = &reduction
	}
	for _, a := range resp.Artifacts {
		out.Artifacts = append(out.Artifacts, tools.Artifact{ID: a.ID, Kind: a.Kind, FileName: a.FileName})
	}
	if resp.File != nil {
		out.File = &tools.FileInfo{
			Name:      resp.File.Name,
			SizeBytes: resp.File.SizeBytes,
			SizeKB:    resp.File.SizeKB,
			Type:      resp.File.Type,
		}
	}
	return out
}

// Package protext summarizes long text and documents by splitting them into
// chunks, summarizing each chunk with a configured model provider and joining
// the results. It can run as an MCP tool server, an HTTP API or be embedded.
package protext

import (
	"context"
	"log/slog"
	"time"

	"github.com/localrivet/gomcp/server"

	"github.com/localrivet/protext/internal/artifacts"
	"github.com/localrivet/protext/internal/config"
	"github.com/localrivet/protext/internal/errortypes"
	mcpserver "github.com/localrivet/protext/internal/server"
	"github.com/localrivet/protext/internal/service"
	"github.com/localrivet/protext/internal/summarizer"
	"github.com/localrivet/protext/internal/telemetry"
)

// Config represents the configuration for the protext service.
type Config = config.Config

// Response is the outcome of a summarization.
type Response = service.Response

// Settings are the per-request length bounds.
type Settings = service.Settings

// Server represents the protext service.
type Server struct {
	config     *config.Config
	handle     *summarizer.Handle
	store      artifacts.Store
	service    *service.Service
	toolServer *mcpserver.MCPToolServer
	logger     *slog.Logger
}

// ServerOptions defines the options for creating a new Server.
type ServerOptions struct {
	Config     *Config      // Pre-filled config. If nil, ConfigPath is used.
	ConfigPath string       // Path to config file. Used if Config is nil. If both are empty, DefaultConfig() is used.
	Logger     *slog.Logger // External logger. If nil, slog.Default() is used.
}

// NewServer creates a new protext Server with the given options.
func NewServer(opts ServerOptions) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var cfg *Config
	var err error

	if opts.Config != nil {
		cfg = opts.Config
	} else if opts.ConfigPath != "" {
		logger.Info("Loading configuration", "path", opts.ConfigPath)
		cfg, err = config.LoadConfigWithPath(opts.ConfigPath)
		if err != nil {
			return nil, errortypes.ConfigError(err, "Failed to load configuration from path: "+opts.ConfigPath)
		}
	} else {
		logger.Warn("No Config object or ConfigPath provided, using default configuration")
		cfg = DefaultConfig()
	}

	handle, store, svc, err := CreateComponents(cfg, logger)
	if err != nil {
		return nil, err
	}

	toolServer := mcpserver.NewMCPToolServer(svc, "protext", 0)
	if err := toolServer.Initialize(); err != nil {
		store.Close()
		return nil, errortypes.ConfigError(err, "Failed to initialize MCP tool server")
	}

	return &Server{
		config:     cfg,
		handle:     handle,
		store:      store,
		service:    svc,
		toolServer: toolServer,
		logger:     logger,
	}, nil
}

// DefaultConfig returns the default configuration for the protext service.
func DefaultConfig() *Config {
	return config.NewConfig()
}

// Start serves the MCP tools over stdio. It blocks until stdin closes.
func (s *Server) Start() error {
	s.logger.Info("Starting protext service")
	return s.toolServer.Start()
}

// Stop stops the tool server, releases provider clients and closes the
// artifact store.
func (s *Server) Stop() error {
	s.logger.Info("Stopping protext service")
	if err := s.toolServer.Stop(); err != nil {
		s.logger.Error("Error stopping tool server", "error", err)
		return err
	}
	if err := s.handle.Close(); err != nil {
		s.logger.Warn("Failed to release summarizer", "error", err)
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error("Failed to close store", "error", err)
		return err
	}
	return nil
}

// Summarize summarizes text with the configured default settings.
func (s *Server) Summarize(ctx context.Context, text string) (*Response, error) {
	return s.service.SummarizeText(ctx, service.TextRequest{
		Text:     text,
		Settings: s.defaultSettings(),
	})
}

// SummarizeDocument extracts and summarizes a PDF, DOCX or plain text document.
func (s *Server) SummarizeDocument(ctx context.Context, fileName string, data []byte) (*Response, error) {
	return s.service.SummarizeDocument(ctx, service.DocumentRequest{
		FileName: fileName,
		Data:     data,
		Settings: s.defaultSettings(),
	})
}

// RegisterTools adds the protext tools to a host application's MCP server.
func (s *Server) RegisterTools(srv server.Server) server.Server {
	return s.toolServer.RegisterTools(srv)
}

// Service returns the underlying summarization service.
func (s *Server) Service() *service.Service {
	return s.service
}

func (s *Server) defaultSettings() Settings {
	return Settings{MaxLength: s.config.Defaults.MaxLength, MinLength: s.config.Defaults.MinLength}
}

// CreateComponents builds the capability handle, the artifact store and the
// service without a transport. A provider that cannot be constructed does not
// fail here; the handle is unavailable and every request reports it.
func CreateComponents(cfg *Config, logger *slog.Logger) (*summarizer.Handle, artifacts.Store, *service.Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	metrics := telemetry.NewMetricsCollector()

	store := artifacts.NewSQLiteStore(cfg.ArtifactTTL())
	if err := store.Initialize(cfg.Artifacts.SQLitePath); err != nil {
		logger.Error("Failed to initialize artifact store", "path", cfg.Artifacts.SQLitePath, "error", err)
		return nil, nil, nil, errortypes.StorageError(err, "Failed to initialize artifact store")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	handle := summarizer.NewHandle(ctx, cfg.SummarizerConfig(), summarizer.HandleOptions{
		Metrics:       metrics,
		Logger:        logger.With("component", "summarizer"),
		VerifyOnStart: cfg.Summarizer.VerifyOnStart,
	})

	svc := service.New(handle, store,
		service.WithMetrics(metrics),
		service.WithLogger(logger.With("component", "service")),
		service.WithMaxChunkChars(cfg.Chunking.MaxChunkChars),
		service.WithMaxUploadBytes(cfg.HTTP.MaxUploadMB<<20),
	)

	return handle, store, svc, nil
}

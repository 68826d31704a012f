package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/localrivet/protext/internal/errortypes"
	"github.com/localrivet/protext/internal/service"
	"github.com/localrivet/protext/internal/summarizer"
	"github.com/localrivet/protext/internal/tools"
	"github.com/localrivet/protext/internal/util"
)

// RequestIDHeader carries the request id on requests and responses.
const RequestIDHeader = "X-Request-ID"

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestIDFromContext returns the request id stored by the HTTP middleware.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// HTTPConfig tunes the HTTP surface.
type HTTPConfig struct {
	Addr              string
	RequestsPerSecond float64
	Burst             int
	MaxBodyBytes      int64
	RequestTimeout    time.Duration
	ShutdownTimeout   time.Duration
	// PurgeInterval is how often expired artifacts are deleted. Zero disables purging.
	PurgeInterval time.Duration
}

// DefaultHTTPConfig returns the settings used for zero fields.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Addr:              ":8080",
		RequestsPerSecond: 5,
		Burst:             10,
		MaxBodyBytes:      service.DefaultMaxUploadBytes + 1<<20,
		RequestTimeout:    DefaultRequestTimeout,
		ShutdownTimeout:   15 * time.Second,
		PurgeInterval:     10 * time.Minute,
	}
}

func (c *HTTPConfig) applyDefaults() {
	d := DefaultHTTPConfig()
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = d.RequestsPerSecond
	}
	if c.Burst <= 0 {
		c.Burst = d.Burst
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = d.MaxBodyBytes
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
}

// HTTPServer implements ToolServer over a JSON HTTP API.
type HTTPServer struct {
	svc        *service.Service
	cfg        HTTPConfig
	logger     *slog.Logger
	limiter    *rate.Limiter
	handler    http.Handler
	httpServer *http.Server

	stopPurge chan struct{}
	wg        sync.WaitGroup
}

// NewHTTPServer creates a new HTTPServer instance.
func NewHTTPServer(svc *service.Service, cfg HTTPConfig, logger *slog.Logger) *HTTPServer {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPServer{
		svc:     svc,
		cfg:     cfg,
		logger:  logger.With("component", "http"),
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

// Initialize builds the routes and middleware chain.
func (s *HTTPServer) Initialize() error {
	if s.svc == nil {
		return errortypes.ConfigError(ErrMissingDependencies, "server initialization failed")
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/v1/summaries", s.limit(http.HandlerFunc(s.handleSummaries)))
	mux.Handle("POST /api/v1/documents", s.limit(http.HandlerFunc(s.handleDocuments)))
	mux.HandleFunc("GET /api/v1/artifacts/{id}", s.handleArtifact)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", s.svc.Metrics().Handler())

	var h http.Handler = mux
	h = s.limitBody(h)
	h = s.recoverPanics(h)
	h = s.logRequests(h)
	h = withRequestID(h)
	s.handler = h

	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// Handler returns the fully wrapped handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and blocks until Stop.
func (s *HTTPServer) Start() error {
	if s.httpServer == nil {
		return errortypes.ConfigError(ErrServerNotInitialized, "cannot start server")
	}

	if s.cfg.PurgeInterval > 0 {
		s.stopPurge = make(chan struct{})
		s.wg.Add(1)
		go s.purgeLoop()
	}

	s.logger.Info("Starting HTTP server", "addr", s.cfg.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop drains in-flight requests and stops the purge loop.
func (s *HTTPServer) Stop() error {
	s.logger.Info("Stopping HTTP server")
	if s.stopPurge != nil {
		close(s.stopPurge)
		s.wg.Wait()
		s.stopPurge = nil
	}
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *HTTPServer) purgeLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.PurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopPurge:
			return
		case <-ticker.C:
			if _, err := s.svc.PurgeArtifacts(context.Background()); err != nil {
				errortypes.LogError(s.logger, err)
			}
		}
	}
}

func (s *HTTPServer) handleSummaries(w http.ResponseWriter, r *http.Request) {
	var req tools.SummarizeTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			HandleTooLarge(w, maxErr.Limit)
			return
		}
		HandleBadRequest(w, "request body must be a JSON object with a text field")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	resp, err := s.svc.SummarizeText(ctx, service.TextRequest{
		Text:     req.Text,
		Settings: service.Settings{MaxLength: req.MaxLength, MinLength: req.MinLength},
	})
	if err != nil {
		HandleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toToolResponse(resp))
}

func (s *HTTPServer) handleDocuments(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			HandleTooLarge(w, maxErr.Limit)
			return
		}
		HandleBadRequest(w, "multipart form with a file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		HandleBadRequest(w, "could not read uploaded file")
		return
	}

	settings, err := formSettings(r)
	if err != nil {
		HandleBadRequest(w, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	resp, err := s.svc.SummarizeDocument(ctx, service.DocumentRequest{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		Settings:    settings,
	})
	if err != nil {
		HandleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toToolResponse(resp))
}

func formSettings(r *http.Request) (service.Settings, error) {
	var settings service.Settings
	for _, field := range []struct {
		name string
		dst  *int
	}{
		{"max_length", &settings.MaxLength},
		{"min_length", &settings.MinLength},
	} {
		raw := r.FormValue(field.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return settings, fmt.Errorf("%s must be an integer", field.name)
		}
		*field.dst = n
	}
	return settings, nil
}

func (s *HTTPServer) handleArtifact(w http.ResponseWriter, r *http.Request) {
	a, err := s.svc.Artifact(r.Context(), r.PathValue("id"))
	if err != nil {
		HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Content)))
	w.Header().Set("ETag", `"`+util.ShortHash(string(a.Content))+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(a.Content); err != nil {
		s.logger.Error("Failed to write artifact", "id", a.ID, "error", err)
	}
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.svc.Health(r.Context())
	status := http.StatusOK
	if report.Status == summarizer.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", "status", status, "error", err)
	}
}

// limit rejects requests beyond the token bucket with 429.
func (s *HTTPServer) limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			HandleTooManyRequests(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered",
					"request_id", RequestIDFromContext(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()))
				writeErrorResponse(w, http.StatusInternalServerError, ErrorCodeInternalError, "An unexpected error occurred", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (s *HTTPServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		s.logger.Info("request completed",
			"request_id", RequestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes", rec.bytes,
			"duration", time.Since(start))
	})
}

// withRequestID propagates X-Request-ID or generates a UUID.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// Package tools defines the MCP tool names and the request and response
// shapes exchanged with MCP clients.
package tools

const (
	// ToolSummarizeText is the name of the summarize_text MCP tool
	ToolSummarizeText = "summarize_text"

	// ToolSummarizeDocument is the name of the summarize_document MCP tool
	ToolSummarizeDocument = "summarize_document"

	// ToolGetArtifact is the name of the get_artifact MCP tool
	ToolGetArtifact = "get_artifact"

	// ToolSummarizerHealth is the name of the summarizer_health MCP tool
	ToolSummarizerHealth = "summarizer_health"
)

// Response status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// SummarizeTextRequest defines the input schema for summarize_text tool
type SummarizeTextRequest struct {
	// Text is the text to summarize
	Text string `json:"text"`

	// MaxLength is the upper word bound per chunk (30-300, default 100)
	MaxLength int `json:"max_length,omitempty"`

	// MinLength is the lower word bound per chunk (10-100, default 30)
	MinLength int `json:"min_length,omitempty"`
}

// SummarizeDocumentRequest defines the input schema for summarize_document tool
type SummarizeDocumentRequest struct {
	// FileName is used to detect the document type
	FileName string `json:"file_name"`

	// ContentBase64 is the document content, base64 encoded
	ContentBase64 string `json:"content_base64"`

	// ContentType optionally declares the MIME type
	ContentType string `json:"content_type,omitempty"`

	MaxLength int `json:"max_length,omitempty"`
	MinLength int `json:"min_length,omitempty"`
}

// Report holds the figures shown next to a summary.
type Report struct {
	OriginalWords    int     `json:"original_words"`
	SummaryWords     int     `json:"summary_words"`
	ReductionPercent *int    `json:"reduction_percent,omitempty"`
	ElapsedSeconds   float64 `json:"elapsed_seconds"`
	Text             string  `json:"text"`
}

// Artifact references a stored download.
type Artifact struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	FileName string `json:"file_name"`
}

// FileInfo describes an uploaded document.
type FileInfo struct {
	Name      string  `json:"name"`
	SizeBytes int     `json:"size_bytes"`
	SizeKB    float64 `json:"size_kb"`
	Type      string  `json:"type"`
}

// SummarizeResponse defines the output schema for the summarize_text and
// summarize_document tools
type SummarizeResponse struct {
	// Status indicates the result of the operation ("success" or "error")
	Status string `json:"status"`

	Summary       string     `json:"summary,omitempty"`
	Report        *Report    `json:"report,omitempty"`
	Chunks        int        `json:"chunks,omitempty"`
	FailedChunks  int        `json:"failed_chunks,omitempty"`
	Warnings      []string   `json:"warnings,omitempty"`
	Artifacts     []Artifact `json:"artifacts,omitempty"`
	File          *FileInfo  `json:"file,omitempty"`
	ExtractedText string     `json:"extracted_text,omitempty"`

	// Error contains an error message if Status is "error"
	Error string `json:"error,omitempty"`
}

// GetArtifactRequest defines the input schema for get_artifact tool
type GetArtifactRequest struct {
	// ID is the artifact identifier returned by a summarize tool
	ID string `json:"id"`
}

// GetArtifactResponse defines the output schema for get_artifact tool
type GetArtifactResponse struct {
	Status      string `json:"status"`
	FileName    string `json:"file_name,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Content     string `json:"content,omitempty"`
	Error       string `json:"error,omitempty"`
}

// SummarizerHealthRequest defines the input schema for summarizer_health tool.
// It takes no arguments.
type SummarizerHealthRequest struct{}

// SummarizerHealthResponse defines the output schema for summarizer_health tool
type SummarizerHealthResponse struct {
	Status     string          `json:"status"`
	Health     string          `json:"health"`
	Capability string          `json:"capability"`
	Providers  map[string]bool `json:"providers,omitempty"`
	Version    string          `json:"version"`
	Error      string          `json:"error,omitempty"`
}

// Package server exposes the summarization service over MCP and HTTP.
package server

// ToolServer is a surface that serves the summarization service.
type ToolServer interface {
	// Initialize initializes the server with dependencies and configurations.
	Initialize() error

	// Start starts serving and blocks until the server stops.
	Start() error

	// Stop gracefully shuts down the server.
	Stop() error
}

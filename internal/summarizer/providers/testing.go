package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// MockResponseConfig holds configuration for mock API responses
type MockResponseConfig struct {
	StatusCode   int
	ResponseBody interface{}
	Headers      map[string]string
}

// MockServer creates a test server that returns the configured response
func MockServer(t *testing.T, config MockResponseConfig) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range config.Headers {
			w.Header().Set(k, v)
		}
		if _, exists := config.Headers["Content-Type"]; !exists {
			w.Header().Set("Content-Type", "application/json")
		}

		w.WriteHeader(config.StatusCode)

		if config.ResponseBody == nil {
			return
		}

		var respBytes []byte
		switch body := config.ResponseBody.(type) {
		case string:
			respBytes = []byte(body)
		case []byte:
			respBytes = body
		default:
			var err error
			respBytes, err = json.Marshal(body)
			if err != nil {
				t.Errorf("Failed to marshal mock response: %v", err)
				return
			}
		}

		if _, err := w.Write(respBytes); err != nil {
			t.Errorf("Failed to write response body: %v", err)
		}
	}))
}

// TestProvider is a simple implementation of LLMProvider for testing
type TestProvider struct {
	name         string
	returnError  error
	returnString string
}

// NewTestProvider creates a new TestProvider
func NewTestProvider(name string, returnString string, returnError error) *TestProvider {
	return &TestProvider{
		name:         name,
		returnString: returnString,
		returnError:  returnError,
	}
}

// Name returns the provider name
func (p *TestProvider) Name() string {
	return p.name
}

// Summarize returns the configured string or error
func (p *TestProvider) Summarize(_ context.Context, _ Request) (string, error) {
	return p.returnString, p.returnError
}

// CapturingProvider is a provider that records every request it receives
type CapturingProvider struct {
	name         string
	returnError  error
	returnString string

	mu       sync.Mutex
	requests []Request
}

// NewCapturingProvider creates a new CapturingProvider
func NewCapturingProvider(name, returnString string, returnError error) *CapturingProvider {
	return &CapturingProvider{
		name:         name,
		returnString: returnString,
		returnError:  returnError,
	}
}

// Name returns the provider name
func (p *CapturingProvider) Name() string {
	return p.name
}

// Summarize captures inputs and returns configured response
func (p *CapturingProvider) Summarize(_ context.Context, req Request) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	return p.returnString, p.returnError
}

// Requests returns a copy of every captured request in call order.
func (p *CapturingProvider) Requests() []Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Request, len(p.requests))
	copy(out, p.requests)
	return out
}

// Calls returns the number of captured requests.
func (p *CapturingProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

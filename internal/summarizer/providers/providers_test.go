package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/localrivet/protext/internal/resilience/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest() Request {
	return Request{Text: "Some long article text.", MaxWords: 30, MinWords: 10, Deterministic: true}
}

// recordingServer answers every request with body and stores the decoded JSON payload.
func recordingServer(t *testing.T, status int, body string, captured *map[string]any, path *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if path != nil {
			*path = r.URL.Path
		}
		if captured != nil {
			payload := map[string]any{}
			_ = json.NewDecoder(r.Body).Decode(&payload)
			*captured = payload
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestHuggingFaceProvider_Success(t *testing.T) {
	var payload map[string]any
	var path string
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"summary_text": " Short summary. "}]`))
	}))
	defer server.Close()

	p := NewHuggingFaceProvider(Config{APIKey: "hf_test", BaseURL: server.URL})
	out, err := p.Summarize(context.Background(), testRequest())

	require.NoError(t, err)
	assert.Equal(t, "Short summary.", out)
	assert.Equal(t, "/"+DefaultHuggingFaceModel, path)
	assert.Equal(t, "Bearer hf_test", auth)
	assert.Equal(t, "Some long article text.", payload["inputs"])

	params, ok := payload["parameters"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(30), params["max_length"])
	assert.Equal(t, float64(10), params["min_length"])
	assert.Equal(t, false, params["do_sample"])
}

func TestHuggingFaceProvider_ModelLoadingIsRetryable(t *testing.T) {
	server := MockServer(t, MockResponseConfig{
		StatusCode:   http.StatusServiceUnavailable,
		ResponseBody: map[string]any{"error": "Model facebook/bart-large-cnn is currently loading", "estimated_time": 20.0},
	})
	defer server.Close()

	p := NewHuggingFaceProvider(Config{APIKey: "hf_test", BaseURL: server.URL})
	_, err := p.Summarize(context.Background(), testRequest())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "currently loading")
	assert.True(t, retry.IsRetryable(err))
}

func TestHuggingFaceProvider_BadRequestIsNotRetryable(t *testing.T) {
	server := MockServer(t, MockResponseConfig{
		StatusCode:   http.StatusBadRequest,
		ResponseBody: `{"error": "min_length must be lower than max_length"}`,
	})
	defer server.Close()

	p := NewHuggingFaceProvider(Config{APIKey: "hf_test", BaseURL: server.URL})
	_, err := p.Summarize(context.Background(), testRequest())

	require.Error(t, err)
	assert.False(t, retry.IsRetryable(err))
}

func TestHuggingFaceProvider_MissingKey(t *testing.T) {
	p := NewHuggingFaceProvider(Config{})
	_, err := p.Summarize(context.Background(), testRequest())
	assert.Error(t, err)
}

func TestOpenAIProvider_Success(t *testing.T) {
	var payload map[string]any
	var path string
	server := recordingServer(t, http.StatusOK, `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"created": 1,
		"model": "gpt-4o-mini",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "OpenAI summary."}, "finish_reason": "stop"}]
	}`, &payload, &path)
	defer server.Close()

	p := NewOpenAIProvider(Config{APIKey: "sk-test", BaseURL: server.URL})
	out, err := p.Summarize(context.Background(), testRequest())

	require.NoError(t, err)
	assert.Equal(t, "OpenAI summary.", out)
	assert.Equal(t, "/chat/completions", path)
	assert.Equal(t, float64(DeterministicSeed), payload["seed"])
	assert.Equal(t, ProviderOpenAI, p.Name())
}

func TestOpenAIProvider_ServerErrorIsRetryable(t *testing.T) {
	server := recordingServer(t, http.StatusInternalServerError,
		`{"error": {"message": "Internal server error", "type": "server_error"}}`, nil, nil)
	defer server.Close()

	p := NewOpenAIProvider(Config{APIKey: "sk-test", BaseURL: server.URL})
	_, err := p.Summarize(context.Background(), testRequest())

	require.Error(t, err)
	assert.True(t, retry.IsRetryable(err))
}

func TestXAIProvider_Name(t *testing.T) {
	p := NewXAIProvider(Config{APIKey: "xai-test"})
	assert.Equal(t, ProviderXAI, p.Name())
}

func TestGoogleProvider_MissingKey(t *testing.T) {
	_, err := NewGoogleProvider(context.Background(), Config{})
	assert.Error(t, err)
}

func TestGoogleProvider_NameAndClose(t *testing.T) {
	p, err := NewGoogleProvider(context.Background(), Config{APIKey: "gm-test", ModelID: "gemini-test"})
	require.NoError(t, err)

	assert.Equal(t, ProviderGoogle, p.Name())
	assert.NoError(t, p.Close())
}

func TestAnthropicProvider_Success(t *testing.T) {
	var payload map[string]any
	var path string
	server := recordingServer(t, http.StatusOK, `{
		"id": "msg_1",
		"type": "message",
		"role": "assistant",
		"model": "claude-3-5-haiku-latest",
		"content": [{"type": "text", "text": "Claude summary."}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 10, "output_tokens": 5}
	}`, &payload, &path)
	defer server.Close()

	p := NewAnthropicProvider(Config{APIKey: "sk-ant-test", BaseURL: server.URL + "/"})
	out, err := p.Summarize(context.Background(), testRequest())

	require.NoError(t, err)
	assert.Equal(t, "Claude summary.", out)
	assert.Equal(t, "/v1/messages", path)
	assert.Equal(t, float64(0), payload["temperature"])
}

func TestOllamaProvider_Success(t *testing.T) {
	var payload map[string]any
	var path string
	server := recordingServer(t, http.StatusOK,
		`{"model":"llama3.2","created_at":"2024-01-01T00:00:00Z","response":"Local summary.","done":true}`,
		&payload, &path)
	defer server.Close()

	p, err := NewOllamaProvider(Config{BaseURL: server.URL})
	require.NoError(t, err)

	out, err := p.Summarize(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "Local summary.", out)
	assert.Equal(t, "/api/generate", path)

	options, ok := payload["options"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(0), options["temperature"])
	assert.Equal(t, float64(DeterministicSeed), options["seed"])
}

func TestBuildPromptMentionsBounds(t *testing.T) {
	prompt := buildPrompt(Request{Text: "body", MaxWords: 40, MinWords: 12})
	assert.Contains(t, prompt, "12 to 40 words")
	assert.Contains(t, prompt, "body")
}

func TestMaxTokens(t *testing.T) {
	assert.Equal(t, 64, maxTokens(Request{MaxWords: 10}))
	assert.Equal(t, 216, maxTokens(Request{MaxWords: 100}))
}

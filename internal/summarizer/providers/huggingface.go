package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	huggingFaceAPIURL = "https://api-inference.huggingface.co/models"

	// DefaultHuggingFaceModel is the pretrained summarization model used by default.
	DefaultHuggingFaceModel = "facebook/bart-large-cnn"
)

// HuggingFaceProvider calls a summarization pipeline on the Hugging Face
// Inference API. Lengths are passed straight through as the pipeline's
// max_length/min_length parameters.
type HuggingFaceProvider struct {
	Config
	httpClient *http.Client
}

type huggingFaceRequest struct {
	Inputs     string                `json:"inputs"`
	Parameters huggingFaceParameters `json:"parameters"`
	Options    huggingFaceOptions    `json:"options"`
}

type huggingFaceParameters struct {
	MaxLength int  `json:"max_length"`
	MinLength int  `json:"min_length"`
	DoSample  bool `json:"do_sample"`
}

type huggingFaceOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type huggingFaceSummary struct {
	SummaryText string `json:"summary_text"`
}

type huggingFaceError struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time,omitempty"`
}

// NewHuggingFaceProvider creates a new instance of the Hugging Face provider
func NewHuggingFaceProvider(config Config) *HuggingFaceProvider {
	return &HuggingFaceProvider{
		Config:     config,
		httpClient: &http.Client{Timeout: config.timeout()},
	}
}

// Name returns the provider name
func (p *HuggingFaceProvider) Name() string {
	return ProviderHuggingFace
}

func (p *HuggingFaceProvider) endpoint() string {
	base := huggingFaceAPIURL
	if p.BaseURL != "" {
		base = strings.TrimRight(p.BaseURL, "/")
	}
	return base + "/" + p.model(DefaultHuggingFaceModel)
}

// Summarize implements the LLMProvider interface for Hugging Face
func (p *HuggingFaceProvider) Summarize(ctx context.Context, req Request) (string, error) {
	if p.APIKey == "" {
		return "", fmt.Errorf("hugging face API token not provided")
	}

	body, err := json.Marshal(huggingFaceRequest{
		Inputs: req.Text,
		Parameters: huggingFaceParameters{
			MaxLength: req.MaxWords,
			MinLength: req.MinWords,
			DoSample:  !req.Deterministic,
		},
		Options: huggingFaceOptions{WaitForModel: true},
	})
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("error sending request to Hugging Face API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr huggingFaceError
		msg := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return "", statusError(ProviderHuggingFace, resp.StatusCode, msg)
	}

	var summaries []huggingFaceSummary
	if err := json.Unmarshal(respBody, &summaries); err != nil {
		return "", fmt.Errorf("error unmarshaling response: %w", err)
	}
	if len(summaries) == 0 || strings.TrimSpace(summaries[0].SummaryText) == "" {
		return "", fmt.Errorf("empty response from Hugging Face API")
	}

	return strings.TrimSpace(summaries[0].SummaryText), nil
}

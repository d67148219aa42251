// Package ollama provides a suggestion source backed by a local Ollama instance.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/annotate-cli/internal/adapters/driven/llm"
	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driven"
)

// Ensure Source implements the interfaces.
var (
	_ driven.SuggestionSource = (*Source)(nil)
	_ driven.PromptStoreAware = (*Source)(nil)
)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
	DefaultTimeout = 300 * time.Second
)

// Config holds configuration for the Ollama suggestion source.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the default model (default: llama3.2).
	Model string

	// Timeout is the request timeout (default: 300s).
	Timeout time.Duration

	// RequestsPerSecond throttles requests. Zero disables throttling.
	RequestsPerSecond float64

	// Normalisers extracts text from HTML, Word and other documents.
	// Without it documents are sent as is.
	Normalisers driven.NormaliserRegistry
}

// Source suggests field values using Ollama's generate endpoint.
type Source struct {
	client  *http.Client
	baseURL string
	model   string
	limiter *llm.RateLimiter
	prompts driven.PromptStore
	text    driven.NormaliserRegistry
}

// generateRequest is the Ollama /api/generate request format.
type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Format  string   `json:"format,omitempty"`
	Options *options `json:"options,omitempty"`
}

// options holds generation parameters.
type options struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

// generateResponse is the Ollama /api/generate response format.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// tagsResponse is the Ollama /api/tags response format.
type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// New creates an Ollama suggestion source.
func New(cfg Config) *Source {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Source{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		limiter: llm.NewRateLimiter(cfg.RequestsPerSecond),
		text:    cfg.Normalisers,
	}
}

// Suggest embeds the document text in the prompt and asks for a JSON
// answer. PDFs are rejected since Ollama models take no document input.
func (s *Source) Suggest(ctx context.Context, req driven.SuggestionRequest) (domain.Suggestions, error) {
	if req.Template == nil {
		return nil, domain.ErrNoActiveTemplate
	}
	doc, err := llm.LoadDocument(req.DocumentRef)
	if err != nil {
		return nil, err
	}
	if doc.IsPDF() {
		return nil, fmt.Errorf("%w: ollama cannot read PDF documents, use the gemini provider",
			domain.ErrInvalidInput)
	}

	text, err := doc.Text(ctx, s.text)
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = s.model
	}

	zero := 0.0
	reqBody := generateRequest{
		Model:   model,
		Prompt:  llm.BuildPromptWith(llm.Preamble(s.prompts), req.Template) + "\n---\n" + text,
		Stream:  false,
		Format:  "json",
		Options: &options{Temperature: &zero},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if err := s.checkStatus(resp); err != nil {
		return nil, err
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return llm.ParseResponse([]byte(genResp.Response), req.Template)
}

// Models lists the locally installed models via /api/tags.
func (s *Source) Models(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("ollama: failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama: listing models failed: %w", err)
	}
	defer resp.Body.Close()

	if err := s.checkStatus(resp); err != nil {
		return nil, err
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("ollama: decode models: %w", err)
	}
	models := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		models = append(models, m.Name)
	}
	return models, nil
}

// checkStatus turns a non-200 response into an error, starting a backoff on 429.
func (s *Source) checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		var wait time.Duration
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			wait = time.Duration(secs) * time.Second
		}
		s.limiter.RecordRateLimitError(wait)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ollama error (status %d): failed to read response", resp.StatusCode)
	}
	return fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

// SetPromptStore sets the store consulted for a custom prompt preamble.
// If not set, the default preamble is used.
func (s *Source) SetPromptStore(store driven.PromptStore) {
	s.prompts = store
}

// Name returns the provider and default model.
func (s *Source) Name() string {
	return "ollama/" + s.model
}

// Close releases resources.
func (s *Source) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}

// Package gemini provides a suggestion source backed by the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/custodia-labs/annotate-cli/internal/adapters/driven/llm"
	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driven"
	"github.com/custodia-labs/annotate-cli/internal/logger"
)

// Ensure Source implements the interfaces.
var (
	_ driven.SuggestionSource = (*Source)(nil)
	_ driven.PromptStoreAware = (*Source)(nil)
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// Config holds configuration for the Gemini suggestion source.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the default model (default: gemini-2.5-flash).
	Model string

	// RequestsPerSecond throttles requests. Zero disables throttling.
	RequestsPerSecond float64

	// Normalisers extracts text from non-PDF documents. Optional.
	Normalisers driven.NormaliserRegistry
}

// generateFunc matches genai's Models.GenerateContent.
type generateFunc func(
	ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error)

// Source suggests field values by sending a document to Gemini.
type Source struct {
	generate generateFunc
	model    string
	limiter  *llm.RateLimiter
	prompts  driven.PromptStore
	text     driven.NormaliserRegistry
}

// New creates a Gemini suggestion source.
func New(ctx context.Context, cfg Config) (*Source, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}
	return newSource(client.Models.GenerateContent, cfg), nil
}

func newSource(generate generateFunc, cfg Config) *Source {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Source{
		generate: generate,
		model:    cfg.Model,
		limiter:  llm.NewRateLimiter(cfg.RequestsPerSecond),
		text:     cfg.Normalisers,
	}
}

// Suggest uploads the document with a prompt and schema derived from the template.
func (s *Source) Suggest(ctx context.Context, req driven.SuggestionRequest) (domain.Suggestions, error) {
	if req.Template == nil {
		return nil, domain.ErrNoActiveTemplate
	}
	doc, err := llm.LoadDocument(req.DocumentRef)
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = s.model
	}

	parts := []*genai.Part{genai.NewPartFromText(llm.BuildPromptWith(llm.Preamble(s.prompts), req.Template))}
	if doc.IsPDF() {
		parts = append(parts, genai.NewPartFromBytes(doc.Data, llm.MIMEPDF))
	} else {
		text, err := doc.Text(ctx, s.text)
		if err != nil {
			return nil, err
		}
		parts = append(parts, genai.NewPartFromText(text))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := s.generate(ctx, model, contents, RequestConfig(model, req.Template))
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) && apiErr.Code == 429 {
			s.limiter.RecordRateLimitError(0)
		}
		return nil, fmt.Errorf("gemini: generate: %w", err)
	}
	logger.Debug("gemini: %s answered in %s", model, time.Since(start).Round(time.Millisecond))

	text := resp.Text()
	if text == "" {
		return nil, errors.New("gemini: empty response")
	}
	return llm.ParseResponse([]byte(text), req.Template)
}

// RequestConfig builds the generation config for a model and template:
// deterministic sampling, JSON output constrained to the template schema,
// and no thinking budget on flash models.
func RequestConfig(model string, tmpl *domain.Template) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
		ResponseSchema:   ResponseSchema(tmpl),
	}
	if strings.Contains(model, "flash") {
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](0)}
	}
	return cfg
}

// ResponseSchema describes the expected answer: an object under
// llm.WrapperKey with a value, context and reasoning per field.
func ResponseSchema(tmpl *domain.Template) *genai.Schema {
	props := make(map[string]*genai.Schema)
	var required, order []string

	for _, f := range llm.SuggestableFields(tmpl) {
		value := &genai.Schema{Type: genai.TypeBoolean, Description: f.Label}
		if f.Type == domain.FieldTypeSelect {
			value = &genai.Schema{
				Type:        genai.TypeString,
				Format:      "enum",
				Enum:        append([]string(nil), f.Options...),
				Description: f.Label,
			}
		}
		ctxKey, reasonKey := f.ID+llm.ContextSuffix, f.ID+llm.ReasoningSuffix

		props[f.ID] = value
		props[ctxKey] = &genai.Schema{Type: genai.TypeString, Description: "Direct quote supporting the decision."}
		props[reasonKey] = &genai.Schema{Type: genai.TypeString, Description: "Why the context justifies the decision."}

		required = append(required, f.ID, reasonKey)
		order = append(order, f.ID, ctxKey, reasonKey)
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			llm.WrapperKey: {
				Type:             genai.TypeObject,
				Properties:       props,
				Required:         required,
				PropertyOrdering: order,
			},
		},
		Required: []string{llm.WrapperKey},
	}
}

// Models returns the Gemini models offered for suggestions.
func (s *Source) Models(context.Context) ([]string, error) {
	return domain.GeminiModels(), nil
}

// SetPromptStore sets the store consulted for a custom prompt preamble.
// If not set, the default preamble is used.
func (s *Source) SetPromptStore(store driven.PromptStore) {
	s.prompts = store
}

// Name returns the provider and default model.
func (s *Source) Name() string {
	return "gemini/" + s.model
}

// Close releases resources.
func (s *Source) Close() error {
	return nil
}

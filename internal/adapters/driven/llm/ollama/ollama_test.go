package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driven"
	"github.com/custodia-labs/annotate-cli/internal/normalisers"
)

func reviewTemplate() *domain.Template {
	return &domain.Template{
		Name: "Review",
		Fields: []domain.Field{
			{ID: "randomised", Label: "Randomised", Type: domain.FieldTypeBoolean},
		},
	}
}

func writeDoc(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestNew_Defaults(t *testing.T) {
	s := New(Config{})

	assert.Equal(t, DefaultBaseURL, s.baseURL)
	assert.Equal(t, DefaultModel, s.model)
	assert.Equal(t, DefaultTimeout, s.client.Timeout)
	assert.Equal(t, "ollama/llama3.2", s.Name())
	assert.NoError(t, s.Close())
}

func TestSource_Suggest(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(generateResponse{
			Response: `{"randomised":true,"randomised_context":"allocated at random","randomised_reasoning":"explicit"}`,
			Done:     true,
		})
	}))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL + "/"})
	out, err := s.Suggest(context.Background(), driven.SuggestionRequest{
		DocumentRef: writeDoc(t, "paper.txt", "Patients were allocated at random."),
		Model:       "mistral",
		Template:    reviewTemplate(),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.Suggestions{
		"randomised": {Value: "true", Context: "allocated at random", Reasoning: "explicit"},
	}, out)
	assert.Equal(t, "mistral", got.Model)
	assert.Equal(t, "json", got.Format)
	assert.False(t, got.Stream)
	require.NotNil(t, got.Options)
	require.NotNil(t, got.Options.Temperature)
	assert.Zero(t, *got.Options.Temperature)
	assert.Contains(t, got.Prompt, "Patients were allocated at random.")
}

func TestSource_SuggestExtractsHTMLText(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(generateResponse{Response: `{}`, Done: true})
	}))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL, Normalisers: normalisers.Default()})
	_, err := s.Suggest(context.Background(), driven.SuggestionRequest{
		DocumentRef: writeDoc(t, "article.html",
			"<html><head><title>Aspirin Trial</title></head><body><p>Patients were <b>randomised</b>.</p></body></html>"),
		Template: reviewTemplate(),
	})
	require.NoError(t, err)

	assert.Contains(t, got.Prompt, "**DOCUMENT:** Aspirin Trial\nPatients were randomised.")
	assert.NotContains(t, got.Prompt, "<p>")
}

func TestSource_SuggestRejectsPDF(t *testing.T) {
	s := New(Config{BaseURL: "http://127.0.0.1:1"})

	_, err := s.Suggest(context.Background(), driven.SuggestionRequest{
		DocumentRef: writeDoc(t, "paper.pdf", "%PDF-1.7"),
		Template:    reviewTemplate(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.Suggest(context.Background(), driven.SuggestionRequest{DocumentRef: "x"})
	assert.ErrorIs(t, err, domain.ErrNoActiveTemplate)
}

func TestSource_SuggestServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL})
	_, err := s.Suggest(context.Background(), driven.SuggestionRequest{
		DocumentRef: writeDoc(t, "a.txt", "text"),
		Template:    reviewTemplate(),
	})
	assert.ErrorContains(t, err, "status 404")
	assert.ErrorContains(t, err, "model not found")
}

func TestSource_TooManyRequestsBacksOff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL})
	_, err := s.Models(context.Background())
	require.Error(t, err)
	assert.False(t, s.limiter.Allow())
}

func TestSource_Models(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3.2:latest"},{"name":"mistral:7b"}]}`))
	}))
	defer srv.Close()

	models, err := New(Config{BaseURL: srv.URL}).Models(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3.2:latest", "mistral:7b"}, models)
}

func TestSource_ModelsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(Config{BaseURL: url}).Models(context.Background())
	assert.ErrorContains(t, err, "ollama: listing models failed")
}

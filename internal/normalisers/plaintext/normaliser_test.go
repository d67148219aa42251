package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
)

func TestSupportedMIMETypes(t *testing.T) {
	mimeTypes := New().SupportedMIMETypes()

	assert.Contains(t, mimeTypes, "text/plain")
	assert.Contains(t, mimeTypes, "text/csv")
	assert.NotContains(t, mimeTypes, "text/html", "html has its own normaliser")
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 5, New().Priority())
}

func TestNormalise(t *testing.T) {
	res, err := New().Normalise(context.Background(), &domain.RawDocument{
		URI:      "/papers/smith_2021-trial.txt",
		MIMEType: "text/plain",
		Content:  []byte("\ufeffMethods\nParticipants were randomised."),
	})
	require.NoError(t, err)

	assert.Equal(t, "smith 2021 trial", res.Title)
	assert.Equal(t, "Methods\nParticipants were randomised.", res.Content)
	assert.Equal(t, "plaintext", res.Format)
}

func TestNormalise_NilDocument(t *testing.T) {
	res, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, res)
}

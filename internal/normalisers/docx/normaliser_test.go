package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
)

// createTestDOCX creates a minimal DOCX file in memory. Empty parts are
// left out of the archive.
func createTestDOCX(t *testing.T, documentXML, coreXML string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	write := func(name, body string) {
		if body == "" {
			return
		}
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}
	write("[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8"?><Types/>`)
	write("word/document.xml", documentXML)
	write("docProps/core.xml", coreXML)

	require.NoError(t, w.Close())
	return buf.Bytes()
}

const body = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Methods</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">Patients were </w:t></w:r><w:r><w:t>randomised</w:t></w:r><w:r><w:br/><w:t>in blocks.</w:t></w:r></w:p>
<w:p></w:p>
<w:tbl>
<w:tr><w:tc><w:p><w:r><w:t>Arm</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>N</w:t></w:r></w:p></w:tc></w:tr>
<w:tr><w:tc><w:p><w:r><w:t>Aspirin</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>120</w:t></w:r></w:p></w:tc></w:tr>
</w:tbl>
<w:p><w:r><w:t>Results</w:t></w:r><w:r><w:tab/><w:t>below</w:t></w:r></w:p>
</w:body>
</w:document>`

func TestSupportedMIMETypes(t *testing.T) {
	assert.Equal(t, []string{MIMEType}, New().SupportedMIMETypes())
	assert.Equal(t, 50, New().Priority())
}

func TestNormalise(t *testing.T) {
	core := `<?xml version="1.0" encoding="UTF-8"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:title> Aspirin Trial </dc:title>
</cp:coreProperties>`

	res, err := New().Normalise(context.Background(), &domain.RawDocument{
		URI:      "trial.docx",
		MIMEType: MIMEType,
		Content:  createTestDOCX(t, body, core),
	})
	require.NoError(t, err)

	assert.Equal(t, "Aspirin Trial", res.Title)
	assert.Equal(t, "docx", res.Format)
	assert.Equal(t,
		"Methods\nPatients were randomised in blocks.\nArm | N\nAspirin | 120\nResults\tbelow",
		res.Content)
}

func TestNormalise_TitleFromFileName(t *testing.T) {
	res, err := New().Normalise(context.Background(), &domain.RawDocument{
		URI:     "/docs/cohort_report.docx",
		Content: createTestDOCX(t, body, ""),
	})
	require.NoError(t, err)
	assert.Equal(t, "cohort report", res.Title)
}

func TestNormalise_Invalid(t *testing.T) {
	ctx := context.Background()
	n := New()

	_, err := n.Normalise(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = n.Normalise(ctx, &domain.RawDocument{URI: "x.docx", Content: []byte("not a zip")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = n.Normalise(ctx, &domain.RawDocument{URI: "x.docx", Content: createTestDOCX(t, "", "")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = n.Normalise(ctx, &domain.RawDocument{URI: "x.docx", Content: createTestDOCX(t, "<w:document><w:body>", "")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

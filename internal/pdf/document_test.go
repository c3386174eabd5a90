// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdf_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/citeassist/internal/pdf"
	"github.com/pdiddy/citeassist/internal/pdf/pdftest"
)

// sparse returns a one-page document that also carries an unreferenced
// object numbered num.
func sparse(num int) []byte {
	return pdftest.Objects(map[int]string{
		1:   "<< /Type /Catalog /Pages 2 0 R >>",
		2:   "<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		3:   "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 300 400] >>",
		num: "<< /Note (unused) >>",
	}, 1)
}

func TestParse(t *testing.T) {
	data := pdftest.Build(t, 3, pdftest.Options{Width: 595, Height: 842})
	doc, err := pdf.Parse(data)
	require.NoError(t, err)

	assert.Equal(t, 3, doc.NumPages())
	assert.Equal(t, "1.3", doc.Version)
	assert.Positive(t, doc.Len())
	assert.Equal(t, data, doc.Bytes())

	box, err := doc.MediaBox(2)
	require.NoError(t, err)
	assert.Equal(t, pdf.Rect{LLX: 0, LLY: 0, URX: 595, URY: 842}, box)
	assert.InDelta(t, 595, box.Width(), 1e-9)
	assert.InDelta(t, 842, box.Height(), 1e-9)

	_, err = doc.MediaBox(0)
	assert.Error(t, err)
	_, err = doc.MediaBox(4)
	assert.Error(t, err)
}

func TestParse_CopiesInput(t *testing.T) {
	data := pdftest.Pages(t, 1)
	doc, err := pdf.Parse(data)
	require.NoError(t, err)

	data[0] = 'X'
	assert.Equal(t, byte('%'), doc.Bytes()[0])
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"html", []byte("<html>502 Bad Gateway</html>")},
		{"header only", []byte("%PDF-1.7\n%%EOF\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pdf.Parse(tt.data)
			assert.ErrorIs(t, err, pdf.ErrMalformed)
		})
	}
}

func TestParse_Encrypted(t *testing.T) {
	data := pdftest.Build(t, 1, pdftest.Options{UserPassword: "secret"})
	_, err := pdf.Parse(data)
	assert.ErrorIs(t, err, pdf.ErrEncrypted)
}

func TestParse_ObjectNumberLimit(t *testing.T) {
	doc, err := pdf.Parse(sparse(1000))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.NumPages())

	for _, num := range []int{pdf.MaxObjectNumber + 1, 20_000_000} {
		data := sparse(num)
		assert.Less(t, len(data), 1024)

		_, err := pdf.Parse(data)
		assert.ErrorIs(t, err, pdf.ErrMalformed, "object %d", num)
	}
}

func TestMediaBox_Inherited(t *testing.T) {
	data := pdftest.Objects(map[int]string{
		1: "<< /Type /Catalog /Pages 2 0 R >>",
		2: "<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 420 595] >>",
		3: "<< /Type /Page /Parent 2 0 R >>",
	}, 1)
	doc, err := pdf.Parse(data)
	require.NoError(t, err)

	box, err := doc.MediaBox(1)
	require.NoError(t, err)
	assert.Equal(t, pdf.Rect{URX: 420, URY: 595}, box)
}

func TestEncodeAndReset(t *testing.T) {
	doc := pdftest.Document(t, 2)

	out, err := pdf.Encode(doc.Context())
	require.NoError(t, err)
	require.NoError(t, doc.Reset(out))
	assert.Equal(t, 2, doc.NumPages())
	assert.Equal(t, out, doc.Bytes())

	err = doc.Reset([]byte("garbage"))
	assert.ErrorIs(t, err, pdf.ErrMalformed)
	assert.Equal(t, out, doc.Bytes())
	assert.Equal(t, 2, doc.NumPages())
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "paper.pdf")
	require.NoError(t, os.WriteFile(path, pdftest.Pages(t, 2), 0o644))
	doc, err := pdf.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.NumPages())

	empty := filepath.Join(dir, "empty.pdf")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = pdf.ReadFile(empty)
	assert.ErrorIs(t, err, pdf.ErrMalformed)

	_, err = pdf.ReadFile(filepath.Join(dir, "missing.pdf"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

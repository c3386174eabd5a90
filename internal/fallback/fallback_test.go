// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fallback

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/gomono"

	"github.com/pdiddy/citeassist/pkg/types"
)

const citation = "@article{x1,\n  title={A},\n  year={2024}\n}"

func readPDF(t *testing.T, data []byte) *pdf.Reader {
	t.Helper()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return r
}

// mediaBox returns the page's MediaBox, inherited from the page tree when
// the page does not carry its own.
func mediaBox(p pdf.Page) pdf.Value {
	for v := p.V; !v.IsNull(); v = v.Key("Parent") {
		if box := v.Key("MediaBox"); !box.IsNull() {
			return box
		}
	}
	return pdf.Value{}
}

func newMonoDoc() *fpdf.Fpdf {
	p := fpdf.New("P", "pt", "A4", "")
	p.AddUTF8FontFromBytes(listFont, "", gomono.TTF)
	p.AddPage()
	p.SetFont(listFont, "", 10)
	return p
}

func TestRender_SinglePage(t *testing.T) {
	data, err := New(nil).Render(types.PageSize{Width: 595.28, Height: 841.89}, citation)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	r := readPDF(t, data)
	require.Equal(t, 1, r.NumPage())

	text, err := r.Page(1).GetPlainText(nil)
	require.NoError(t, err)
	assert.Contains(t, text, "Citation for this Paper")
	assert.Contains(t, text, "Primary citation renderer unavailable.")
	assert.Contains(t, text, "BibTeX Citation:")
	assert.Contains(t, text, "@article{x1,")
	assert.Contains(t, text, "year={2024}")
}

func TestRender_PageSizeFollowsTarget(t *testing.T) {
	data, err := New(nil).Render(types.PageSize{Width: 400, Height: 600}, citation)
	require.NoError(t, err)

	box := mediaBox(readPDF(t, data).Page(1))
	require.Equal(t, 4, box.Len())
	assert.InDelta(t, 400, box.Index(2).Float64(), 0.01)
	assert.InDelta(t, 600, box.Index(3).Float64(), 0.01)
}

func TestRender_DefaultSize(t *testing.T) {
	data, err := New(nil).Render(types.PageSize{}, citation)
	require.NoError(t, err)

	box := mediaBox(readPDF(t, data).Page(1))
	assert.InDelta(t, 612, box.Index(2).Float64(), 0.01)
	assert.InDelta(t, 792, box.Index(3).Float64(), 0.01)
}

func TestRender_OverflowContinuesOnNewPage(t *testing.T) {
	var b strings.Builder
	b.WriteString("@misc{long,\n")
	for i := 0; i < 80; i++ {
		b.WriteString("  note={line},\n")
	}
	b.WriteString("}")

	data, err := New(nil).Render(types.PageSize{Width: 612, Height: 792}, b.String())
	require.NoError(t, err)
	assert.Equal(t, 2, readPDF(t, data).NumPage())
}

func TestRender_Deterministic(t *testing.T) {
	size := types.PageSize{Width: 612, Height: 792}
	a, err := New(nil).Render(size, citation)
	require.NoError(t, err)
	b, err := New(nil).Render(size, citation)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestWrap(t *testing.T) {
	p := newMonoDoc()

	// Go Mono 10pt is 6pt per character.
	lines := wrap(p, "abcdefghij\nxy", 32)
	assert.Equal(t, []string{"abcde", "fghij", "xy"}, lines)

	lines = wrap(p, "Żółćżółć", 32)
	assert.Equal(t, []string{"Żółćż", "ółć"}, lines, "wrapped by character, not byte")
	require.NoError(t, p.Error())
}

func TestRender_NonLatinCitation(t *testing.T) {
	entry := "@article{dvorak2024,\n  author={Łukasz Żółć and Jiří Dvořák},\n  title={Ανάλυση δεδομένων}\n}"
	data, err := New(nil).Render(types.PageSize{}, entry)
	require.NoError(t, err)

	text, err := readPDF(t, data).Page(1).GetPlainText(nil)
	require.NoError(t, err)
	assert.Contains(t, text, "Łukasz Żółć and Jiří Dvořák")
	assert.Contains(t, text, "Ανάλυση δεδομένων")
	assert.NotContains(t, text, "?ukasz")
}

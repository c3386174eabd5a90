// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fallback draws a plain citation page locally when the LaTeX
// renderer cannot deliver one.
package fallback

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/gofont/gomono"

	"github.com/pdiddy/citeassist/pkg/types"
)

// Layout, in points from the top-left corner of the page.
const (
	titleText  = "Citation for this Paper"
	noticeText = "Primary citation renderer unavailable."
	labelText  = "BibTeX Citation:"

	titleSize  = 20
	bodySize   = 12
	listSize   = 10
	titleY     = 50
	noticeX    = 50
	noticeY    = 100
	labelY     = 150
	listX      = 70
	listY      = 180
	lineHeight = 15
	margin     = 50

	// listFont is the embedded Go Mono face used for the citation, so any
	// character in the entry is drawn as written.
	listFont = "GoMono"
)

// DefaultPageSize is used when the target document's size is unknown (US
// Letter).
var DefaultPageSize = types.PageSize{Width: 612, Height: 792}

// creationDate is written into every fallback document so output is
// reproducible.
var creationDate = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Renderer produces fallback citation pages with go-pdf/fpdf.
type Renderer struct {
	logger *slog.Logger
}

// New creates a fallback renderer. A nil logger discards output.
func New(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Renderer{logger: logger}
}

// Render returns a PDF of the given size carrying a title, a notice that the
// primary renderer was unavailable, and the citation in an embedded
// monospaced Unicode face. Lines wider than the page are wrapped; lines that
// do not fit vertically continue on a new page.
func (r *Renderer) Render(size types.PageSize, citation string) ([]byte, error) {
	if size.IsZero() {
		size = DefaultPageSize
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: size.Width, Ht: size.Height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(creationDate)
	pdf.SetTitle(titleText, false)
	pdf.SetProducer("citeassist", false)

	pdf.AddUTF8FontFromBytes(listFont, "", gomono.TTF)

	pdf.AddPage()
	pdf.SetFont("Helvetica", "", titleSize)
	pdf.Text(size.Width/2-100, titleY, titleText)

	pdf.SetFont("Helvetica", "", bodySize)
	pdf.Text(noticeX, noticeY, noticeText)
	pdf.Text(noticeX, labelY, labelText)

	pdf.SetFont(listFont, "", listSize)
	maxWidth := size.Width - listX - margin
	y := float64(listY)
	for _, line := range wrap(pdf, citation, maxWidth) {
		if y > size.Height-margin {
			pdf.AddPage()
			pdf.SetFont(listFont, "", listSize)
			y = margin
		}
		pdf.Text(listX, y, line)
		y += lineHeight
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("drawing fallback page: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing fallback page: %w", err)
	}

	r.logger.Debug("fallback page drawn",
		slog.Int("pages", pdf.PageCount()),
		slog.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

// wrap breaks citation into lines no wider than maxWidth at the current
// font. Existing line breaks are kept; long lines break at the last
// character that fits.
func wrap(pdf *fpdf.Fpdf, citation string, maxWidth float64) []string {
	var out []string
	for _, raw := range strings.Split(strings.ReplaceAll(citation, "\r\n", "\n"), "\n") {
		line := []rune(strings.ReplaceAll(raw, "\t", "    "))
		for len(line) > 0 && pdf.GetStringWidth(string(line)) > maxWidth {
			cut := 1
			for cut < len(line) && pdf.GetStringWidth(string(line[:cut+1])) <= maxWidth {
				cut++
			}
			out = append(out, string(line[:cut]))
			line = line[cut:]
		}
		out = append(out, string(line))
	}
	return out
}

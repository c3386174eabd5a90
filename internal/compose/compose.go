// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package compose appends a rendered citation sheet to a document and links
// it from the first page with a button image and a link annotation. Merging
// and stamping go through pdfcpu; the link annotation is added to pdfcpu's
// page dictionary directly.
package compose

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/pdiddy/citeassist/internal/pdf"
)

// Button placement on the first page, in points.
const (
	ButtonWidth  = 113.7
	buttonMargin = 10

	tagFont     = "Courier-Bold"
	tagFontSize = 10
	tagX        = 10
	tagDrop     = 20
)

// Result describes what Merge added to the document.
type Result struct {
	// Appended is the number of citation pages appended.
	Appended int

	// FirstAppended is the 1-based number of the first appended page; the
	// link points here.
	FirstAppended int

	// Button is where the button was drawn on the first page.
	Button pdf.Rect

	// Annotation is the object number of the link annotation.
	Annotation int
}

// Compositor merges citation sheets into documents. It is safe for
// concurrent use on distinct documents.
type Compositor struct {
	button *button
	logger *slog.Logger
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compositor) { c.logger = l }
}

// New validates the button PNG drawn on the first page.
func New(png []byte, opts ...Option) (*Compositor, error) {
	b, err := decodeButton(png)
	if err != nil {
		return nil, err
	}
	c := &Compositor{button: b, logger: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Merge appends every page of citation to doc, stamps the button and the
// optional conference tag on doc's first page, and links the button to the
// first appended page.
//
// citation is validated first: if it does not parse or has no pages,
// ErrInvalidCitationDocument is returned. doc is replaced only when every
// step succeeds, so on any error it is left as it was.
func (c *Compositor) Merge(doc *pdf.Document, citation []byte, tag string) (*Result, error) {
	cite, err := pdf.Parse(citation)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCitationDocument, err)
	}
	appended := cite.NumPages()
	if appended == 0 {
		return nil, fmt.Errorf("%w: no pages", ErrInvalidCitationDocument)
	}

	original := doc.NumPages()
	if original == 0 {
		return nil, &Error{Step: "reading pages", Err: fmt.Errorf("%w: document has no pages", pdf.ErrMalformed)}
	}
	box, err := doc.MediaBox(1)
	if err != nil {
		return nil, &Error{Step: "reading pages", Err: err}
	}
	rect := pdf.Rect{
		LLX: box.URX - ButtonWidth - buttonMargin,
		LLY: box.URY - c.button.drawnHeight() - buttonMargin,
	}
	rect.URX = rect.LLX + ButtonWidth
	rect.URY = rect.LLY + c.button.drawnHeight()

	data, err := merge(doc.Bytes(), cite.Bytes())
	if err != nil {
		return nil, &Error{Step: "appending citation pages", Err: err}
	}

	wm, err := c.button.stamp()
	if err == nil {
		data, err = stamp(data, wm)
	}
	if err != nil {
		return nil, &Error{Step: "drawing button", Err: err}
	}

	if tag = cleanTag(tag); tag != "" {
		wm, err := api.TextWatermark(tag, tagDescription(), true, false, types.POINTS)
		if err == nil {
			data, err = stamp(data, wm)
		}
		if err != nil {
			return nil, &Error{Step: "drawing tag", Err: err}
		}
	}

	staged, err := pdf.Parse(data)
	if err != nil {
		return nil, &Error{Step: "re-reading stamped document", Err: err}
	}
	annot, err := addLink(staged.Context(), rect, original+1)
	if err != nil {
		return nil, &Error{Step: "adding link annotation", Err: err}
	}
	out, err := pdf.Encode(staged.Context())
	if err != nil {
		return nil, &Error{Step: "serializing", Err: err}
	}
	if err := doc.Reset(out); err != nil {
		return nil, &Error{Step: "serializing", Err: err}
	}

	c.logger.Debug("citation merged",
		slog.Int("appended", appended),
		slog.Int("first_appended", original+1),
		slog.Bool("tagged", tag != ""),
	)
	return &Result{
		Appended:      appended,
		FirstAppended: original + 1,
		Button:        rect,
		Annotation:    annot,
	}, nil
}

// merge appends the pages of citation to those of doc.
func merge(doc, citation []byte) ([]byte, error) {
	var buf bytes.Buffer
	in := []io.ReadSeeker{bytes.NewReader(doc), bytes.NewReader(citation)}
	if err := api.MergeRaw(in, &buf, false, pdf.NewConfiguration()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// stamp applies wm to the first page of data.
func stamp(data []byte, wm *model.Watermark) ([]byte, error) {
	var buf bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(data), &buf, []string{"1"}, wm, pdf.NewConfiguration()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// addLink adds a borderless link annotation over rect on the first page
// that jumps to page dest, and returns its object number. An /Annots array
// stored as its own object is extended in place.
func addLink(ctx *model.Context, rect pdf.Rect, dest int) (int, error) {
	page, pageRef, _, err := ctx.PageDict(1, false)
	if err != nil {
		return 0, err
	}
	_, destRef, _, err := ctx.PageDict(dest, false)
	if err != nil {
		return 0, err
	}
	if page == nil || pageRef == nil || destRef == nil {
		return 0, fmt.Errorf("%w: page tree does not reference pages 1 and %d", pdf.ErrMalformed, dest)
	}

	ref, err := ctx.IndRefForNewObject(types.Dict{
		"Type":    types.Name("Annot"),
		"Subtype": types.Name("Link"),
		"Rect":    types.NewNumberArray(rect.LLX, rect.LLY, rect.URX, rect.URY),
		"Border":  types.NewIntegerArray(0, 0, 0),
		"C":       types.NewIntegerArray(0, 0, 1),
		"Dest":    types.Array{*destRef, types.Name("XYZ"), nil, nil, nil},
		"P":       *pageRef,
	})
	if err != nil {
		return 0, err
	}

	existing, err := ctx.DereferenceArray(page["Annots"])
	if err != nil {
		return 0, fmt.Errorf("%w: /Annots: %v", pdf.ErrMalformed, err)
	}
	annots := append(append(types.Array{}, existing...), *ref)

	if ir, ok := page["Annots"].(types.IndirectRef); ok {
		entry, found := ctx.FindTableEntryForIndRef(&ir)
		if !found {
			return 0, fmt.Errorf("%w: /Annots %v missing", pdf.ErrMalformed, ir)
		}
		entry.Object = annots
	} else {
		page["Annots"] = annots
	}
	if entry, found := ctx.FindTableEntryForIndRef(pageRef); found {
		entry.Object = page
	}
	return int(ref.ObjectNumber), nil
}

// tagDescription places the tag tagX points in from the left edge with its
// top tagDrop points below the top edge.
func tagDescription() string {
	return fmt.Sprintf("font:%s, points:%d, pos:tl, off:%d %d, scale:1 abs, rot:0, op:1, fillcolor:#000000",
		tagFont, tagFontSize, tagX, -tagDrop)
}

// cleanTag collapses whitespace and drops control characters.
func cleanTag(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdf loads, inspects and serializes PDF documents through pdfcpu's
// object model. A Document pairs the bytes it was read from with pdfcpu's
// cross-reference context for them.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

var (
	// ErrMalformed is returned for files that cannot be parsed or lack the
	// structures every PDF must have.
	ErrMalformed = errors.New("pdf: malformed document")

	// ErrEncrypted is returned for encrypted files.
	ErrEncrypted = errors.New("pdf: encrypted documents are not supported")
)

// MaxObjectNumber is the largest object number a document may use, the
// implementation limit of ISO 32000-1 Annex C. Files declaring more objects
// are rejected before anything is written for them.
const MaxObjectNumber = 8_388_607

var configDir sync.Once

// NewConfiguration returns the pdfcpu configuration used for every read and
// write: relaxed validation, no configuration directory on disk, and a
// classic cross-reference table without object streams so that older
// readers can open the output.
func NewConfiguration() *model.Configuration {
	configDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false
	return conf
}

// Rect is a rectangle in default user space.
type Rect struct {
	LLX, LLY, URX, URY float64
}

// Width returns the horizontal extent of r.
func (r Rect) Width() float64 { return r.URX - r.LLX }

// Height returns the vertical extent of r.
func (r Rect) Height() float64 { return r.URY - r.LLY }

// Document is a parsed PDF. A Document is not safe for concurrent use.
type Document struct {
	// Version is the header version, e.g. "1.7".
	Version string

	data []byte
	ctx  *model.Context
}

// Parse reads and validates a complete PDF file. The returned document
// keeps its own copy of data.
func Parse(data []byte) (*Document, error) {
	if !bytes.Contains(data[:min(len(data), 1024)], []byte("%PDF-")) {
		return nil, fmt.Errorf("%w: missing %%PDF- header", ErrMalformed)
	}
	if err := scanObjectNumbers(data); err != nil {
		return nil, err
	}
	ctx, err := read(data)
	if err != nil {
		return nil, err
	}
	return &Document{
		Version: readVersion(data),
		data:    bytes.Clone(data),
		ctx:     ctx,
	}, nil
}

func read(data []byte) (*model.Context, error) {
	ctx, err := api.ReadContext(bytes.NewReader(data), NewConfiguration())
	if err != nil {
		if bytes.Contains(data, []byte("/Encrypt")) {
			return nil, ErrEncrypted
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if ctx.Encrypt != nil {
		return nil, ErrEncrypted
	}
	if err := checkObjectNumbers(ctx); err != nil {
		return nil, err
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return ctx, nil
}

var (
	objectHeader = regexp.MustCompile(`(?:^|[^0-9])([0-9]{1,20})[ \t\r\n\f\x00]+[0-9]{1,10}[ \t\r\n\f\x00]+obj\b`)
	sizeEntry    = regexp.MustCompile(`/Size[ \t\r\n\f\x00]*([0-9]{1,20})`)
)

// scanObjectNumbers looks at the raw object headers and /Size entries so
// that oversized files are refused before pdfcpu builds a table for them.
func scanObjectNumbers(data []byte) error {
	limits := []struct {
		re  *regexp.Regexp
		max uint64
	}{
		{objectHeader, MaxObjectNumber},
		{sizeEntry, MaxObjectNumber + 1},
	}
	for _, l := range limits {
		for _, m := range l.re.FindAllSubmatch(data, -1) {
			n, err := strconv.ParseUint(string(m[1]), 10, 64)
			if err != nil || n > l.max {
				return fmt.Errorf("%w: object number %s out of range", ErrMalformed, m[1])
			}
		}
	}
	return nil
}

// checkObjectNumbers rejects cross-reference tables sized beyond
// MaxObjectNumber; a writer emits one entry per number up to the largest.
func checkObjectNumbers(ctx *model.Context) error {
	if ctx.Size != nil && *ctx.Size > MaxObjectNumber+1 {
		return fmt.Errorf("%w: cross-reference size %d exceeds %d", ErrMalformed, *ctx.Size, MaxObjectNumber+1)
	}
	for num := range ctx.Table {
		if num < 0 || num > MaxObjectNumber {
			return fmt.Errorf("%w: object number %d out of range", ErrMalformed, num)
		}
	}
	return nil
}

// NumPages returns the number of pages.
func (d *Document) NumPages() int { return d.ctx.PageCount }

// Len returns the number of cross-reference entries.
func (d *Document) Len() int { return len(d.ctx.Table) }

// Bytes returns the serialized document. The slice must not be modified.
func (d *Document) Bytes() []byte { return d.data }

// Context returns pdfcpu's view of the document. Changes made through it
// are not reflected in Bytes until they are passed to Encode and Reset.
func (d *Document) Context() *model.Context { return d.ctx }

// Reset replaces the document's contents with data. d is unchanged when
// data does not parse.
func (d *Document) Reset(data []byte) error {
	next, err := Parse(data)
	if err != nil {
		return err
	}
	*d = *next
	return nil
}

// MediaBox returns the media box of page n (1-based), following the page
// tree for an inherited value.
func (d *Document) MediaBox(n int) (Rect, error) {
	if n < 1 || n > d.ctx.PageCount {
		return Rect{}, fmt.Errorf("page %d out of range (document has %d)", n, d.ctx.PageCount)
	}
	page, _, inherited, err := d.ctx.PageDict(n, false)
	if err != nil {
		return Rect{}, fmt.Errorf("%w: page %d: %v", ErrMalformed, n, err)
	}
	if page == nil {
		return Rect{}, fmt.Errorf("%w: page %d missing", ErrMalformed, n)
	}
	if r, ok := d.rect(page["MediaBox"]); ok {
		return r, nil
	}
	if inherited != nil && inherited.MediaBox != nil {
		b := inherited.MediaBox
		return normalize(b.LL.X, b.LL.Y, b.UR.X, b.UR.Y), nil
	}
	return Rect{}, fmt.Errorf("%w: page %d has no media box", ErrMalformed, n)
}

func (d *Document) rect(o types.Object) (Rect, bool) {
	arr, err := d.ctx.DereferenceArray(o)
	if err != nil || len(arr) != 4 {
		return Rect{}, false
	}
	var v [4]float64
	for i, e := range arr {
		f, ok := d.number(e)
		if !ok {
			return Rect{}, false
		}
		v[i] = f
	}
	r := normalize(v[0], v[1], v[2], v[3])
	return r, r.Width() > 0 && r.Height() > 0
}

func (d *Document) number(o types.Object) (float64, bool) {
	o, err := d.ctx.Dereference(o)
	if err != nil {
		return 0, false
	}
	switch v := o.(type) {
	case types.Integer:
		return float64(v), true
	case types.Float:
		return float64(v), true
	}
	return 0, false
}

func normalize(x0, y0, x1, y1 float64) Rect {
	return Rect{LLX: min(x0, x1), LLY: min(y0, y1), URX: max(x0, x1), URY: max(y0, y1)}
}

// Encode serializes ctx.
func Encode(ctx *model.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, fmt.Errorf("writing document: %w", err)
	}
	return buf.Bytes(), nil
}

// readVersion returns the version from the %PDF-x.y header, or "1.7" when
// it cannot be read.
func readVersion(data []byte) string {
	i := bytes.Index(data[:min(len(data), 1024)], []byte("%PDF-"))
	if i < 0 || i+8 > len(data) {
		return "1.7"
	}
	v := data[i+5 : i+8]
	if v[0] < '1' || v[0] > '2' || v[1] != '.' || v[2] < '0' || v[2] > '9' {
		return "1.7"
	}
	return string(v)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package verify re-reads composite documents with an independent PDF
// reader, so that a file the compositor wrote but other readers reject is
// caught before it is returned.
package verify

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnreadable is returned when the bytes cannot be opened as a PDF.
var ErrUnreadable = errors.New("verify: document unreadable")

// Summary is what the reader saw.
type Summary struct {
	// Pages is the number of pages.
	Pages int

	// Links is the number of link annotations on the first page.
	Links int
}

// Inspect opens data and counts its pages and first-page links.
func Inspect(data []byte) (s Summary, err error) {
	// The reader panics on some malformed input.
	defer func() {
		if p := recover(); p != nil {
			s, err = Summary{}, fmt.Errorf("%w: %v", ErrUnreadable, p)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	s.Pages = r.NumPage()
	if s.Pages == 0 {
		return s, fmt.Errorf("%w: no pages", ErrUnreadable)
	}

	annots := r.Page(1).V.Key("Annots")
	for i := 0; i < annots.Len(); i++ {
		if annots.Index(i).Key("Subtype").Name() == "Link" {
			s.Links++
		}
	}
	return s, nil
}

// PageText returns the plain text of page n (1-based).
func PageText(data []byte, n int) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrUnreadable, p)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if n < 1 || n > r.NumPage() {
		return "", fmt.Errorf("page %d out of range (document has %d)", n, r.NumPage())
	}
	page := r.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	text, err = page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extracting text from page %d: %w", n, err)
	}
	return strings.TrimSpace(text), nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdftest builds small PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/citeassist/internal/pdf"
)

// Options shape the generated file. The zero value gives US Letter pages.
type Options struct {
	// Width and Height are the page size in points.
	Width, Height float64

	// Link, when set, puts a URI link annotation on the first page.
	Link string

	// UserPassword, when set, encrypts the file.
	UserPassword string
}

// Build returns a PDF of n pages; page i carries the text "page i".
func Build(t testing.TB, n int, o Options) []byte {
	t.Helper()
	if o.Width <= 0 || o.Height <= 0 {
		o.Width, o.Height = 612, 792
	}

	f := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: o.Width, Ht: o.Height},
	})
	f.SetCatalogSort(true)
	f.SetCreationDate(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	if o.UserPassword != "" {
		f.SetProtection(fpdf.CnProtectPrint, o.UserPassword, "owner")
	}
	for i := 1; i <= n; i++ {
		f.AddPage()
		f.SetFont("Helvetica", "", 12)
		f.Text(72, 72, fmt.Sprintf("page %d", i))
		if i == 1 && o.Link != "" {
			f.LinkString(72, 100, 100, 20, o.Link)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, f.Output(&buf))
	return buf.Bytes()
}

// Pages returns a PDF of n US Letter pages.
func Pages(t testing.TB, n int) []byte {
	t.Helper()
	return Build(t, n, Options{})
}

// Document parses Pages(t, n).
func Document(t testing.TB, n int) *pdf.Document {
	t.Helper()
	doc, err := pdf.Parse(Pages(t, n))
	require.NoError(t, err)
	return doc
}

// Objects assembles a PDF from numbered object bodies, with one
// cross-reference subsection per object. Object root is the catalog.
func Objects(objs map[int]string, root int) []byte {
	nums := make([]int, 0, len(objs))
	for n := range objs {
		nums = append(nums, n)
	}
	slices.Sort(nums)

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make(map[int]int, len(objs))
	for _, n := range nums {
		offsets[n] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", n, objs[n])
	}

	xref := b.Len()
	b.WriteString("xref\n0 1\n0000000000 65535 f \n")
	for _, n := range nums {
		fmt.Fprintf(&b, "%d 1\n%010d 00000 n \n", n, offsets[n])
	}
	size := 1
	if len(nums) > 0 {
		size = nums[len(nums)-1] + 1
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", size, root, xref)
	return b.Bytes()
}

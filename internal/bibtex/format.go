// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package bibtex renders citation fields as a canonical BibTeX entry.
package bibtex

import (
	"errors"
	"strings"

	"github.com/pdiddy/citeassist/pkg/types"
)

// ErrEntryTypeMissing is returned when the fields carry no entry type.
var ErrEntryTypeMissing = errors.New("bibtex: entry type is required")

// Format renders fields as
//
//	@<entryType>{<referenceKey>,
//	  <name>={<value>},
//	  <name>={<value>}
//	}
//
// Fields are written in their natural order. Empty values and the reserved
// header keys are skipped. Values are copied verbatim: braces are not
// escaped and non-ASCII text is preserved.
func Format(fields types.CitationFields) (string, error) {
	entryType := fields.EntryType()
	if strings.TrimSpace(entryType) == "" {
		return "", ErrEntryTypeMissing
	}

	var b strings.Builder
	b.WriteString("@")
	b.WriteString(entryType)
	b.WriteString("{")
	b.WriteString(fields.ReferenceKey())

	for _, f := range fields.Fields() {
		if f.Value == "" || isReserved(f.Name) {
			continue
		}
		b.WriteString(",\n  ")
		b.WriteString(f.Name)
		b.WriteString("={")
		b.WriteString(f.Value)
		b.WriteString("}")
	}
	b.WriteString("\n}")
	return b.String(), nil
}

func isReserved(name string) bool {
	return name == types.FieldEntryType || name == types.FieldReferenceKey
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the data structures shared across the citeassist
// packages: citation fields, page geometry, render jobs, and configuration.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Reserved and well-known citation field names.
const (
	// FieldEntryType seeds the "@<type>" part of the BibTeX header.
	FieldEntryType = "entryType"

	// FieldReferenceKey seeds the citation key of the BibTeX header.
	FieldReferenceKey = "referenceKey"

	// FieldConference carries the optional conference acronym stamped on page 0.
	FieldConference = "confacronym"

	// FieldURL is the official publication link shown on the citation sheet.
	FieldURL = "url"
)

// legacyFieldNames maps the names used by the browser client onto the
// reserved keys.
var legacyFieldNames = map[string]string{
	"artType": FieldEntryType,
	"ref":     FieldReferenceKey,
}

// Field is a single BibTeX field.
type Field struct {
	Name  string
	Value string
}

// CitationFields is an ordered mapping of BibTeX field names to values.
// Iteration order is insertion order; setting an existing name replaces its
// value in place, so every name appears at most once.
type CitationFields struct {
	fields []Field
}

// NewCitationFields builds CitationFields from alternating name/value pairs.
// A trailing name without a value is ignored.
func NewCitationFields(pairs ...string) CitationFields {
	var c CitationFields
	for i := 0; i+1 < len(pairs); i += 2 {
		c.Set(pairs[i], pairs[i+1])
	}
	return c
}

// canonicalName resolves legacy aliases to their reserved key.
func canonicalName(name string) string {
	if canon, ok := legacyFieldNames[name]; ok {
		return canon
	}
	return name
}

// Set assigns value to name, keeping the original position if name exists.
func (c *CitationFields) Set(name, value string) {
	name = canonicalName(name)
	for i := range c.fields {
		if c.fields[i].Name == name {
			c.fields[i].Value = value
			return
		}
	}
	c.fields = append(c.fields, Field{Name: name, Value: value})
}

// Get returns the value for name and whether it was present.
func (c CitationFields) Get(name string) (string, bool) {
	name = canonicalName(name)
	for _, f := range c.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Value returns the value for name, or "" when absent.
func (c CitationFields) Value(name string) string {
	v, _ := c.Get(name)
	return v
}

// Delete removes name if present.
func (c *CitationFields) Delete(name string) {
	name = canonicalName(name)
	for i := range c.fields {
		if c.fields[i].Name == name {
			c.fields = append(c.fields[:i], c.fields[i+1:]...)
			return
		}
	}
}

// Fields returns a copy of the fields in order.
func (c CitationFields) Fields() []Field {
	out := make([]Field, len(c.fields))
	copy(out, c.fields)
	return out
}

// Len returns the number of fields, reserved keys included.
func (c CitationFields) Len() int {
	return len(c.fields)
}

// EntryType returns the BibTeX entry type (e.g. "article").
func (c CitationFields) EntryType() string {
	return c.Value(FieldEntryType)
}

// ReferenceKey returns the BibTeX citation key.
func (c CitationFields) ReferenceKey() string {
	return c.Value(FieldReferenceKey)
}

// Clone returns an independent copy.
func (c CitationFields) Clone() CitationFields {
	return CitationFields{fields: c.Fields()}
}

// UnmarshalYAML decodes a YAML mapping, preserving document order.
func (c *CitationFields) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("citation fields: expected a mapping, got %s", nodeKind(node))
	}
	var out CitationFields
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return fmt.Errorf("citation fields: value of %q must be a scalar (line %d)", key.Value, val.Line)
		}
		value := val.Value
		if val.Tag == "!!null" {
			value = ""
		}
		out.Set(key.Value, value)
	}
	*c = out
	return nil
}

// MarshalYAML encodes the fields as an ordered YAML mapping.
func (c CitationFields) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range c.fields {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: f.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Value: f.Value, Style: yaml.DoubleQuotedStyle},
		)
	}
	return node, nil
}

// UnmarshalJSON decodes a JSON object, preserving key order. Numbers and
// booleans are kept in their textual form; null becomes "".
func (c *CitationFields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("citation fields: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("citation fields: expected a JSON object")
	}

	var out CitationFields
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("citation fields: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("citation fields: unexpected key token %v", tok)
		}
		var raw interface{}
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("citation fields: value of %q: %w", key, err)
		}
		switch v := raw.(type) {
		case nil:
			out.Set(key, "")
		case string:
			out.Set(key, v)
		case json.Number:
			out.Set(key, v.String())
		case bool:
			out.Set(key, strconv.FormatBool(v))
		default:
			return fmt.Errorf("citation fields: value of %q must be a string", key)
		}
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("citation fields: %w", err)
	}
	*c = out
	return nil
}

// MarshalJSON encodes the fields as a JSON object in field order.
func (c CitationFields) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, f := range c.fields {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "node"
	}
}

// PageSize is a page's extent in PDF points.
type PageSize struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// IsZero reports whether the size is unset.
func (s PageSize) IsZero() bool {
	return s.Width <= 0 || s.Height <= 0
}

// RelatedPaper is a paper listed in the "Related Papers" box of the
// citation sheet. Supplied by the related-paper search collaborator.
type RelatedPaper struct {
	Title   string   `json:"title" yaml:"title"`
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	Year    string   `json:"year,omitempty" yaml:"year,omitempty"`
	Venue   string   `json:"venue,omitempty" yaml:"venue,omitempty"`
	URL     string   `json:"url,omitempty" yaml:"url,omitempty"`
}

// String renders the paper as a single reference line:
// "Authors (Year). Title. Venue. URL".
func (p RelatedPaper) String() string {
	var parts []string
	head := strings.Join(p.Authors, ", ")
	if p.Year != "" {
		if head != "" {
			head += " "
		}
		head += "(" + p.Year + ")"
	}
	if head != "" {
		parts = append(parts, head)
	}
	for _, s := range []string{p.Title, p.Venue, p.URL} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ". ")
}

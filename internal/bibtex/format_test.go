// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bibtex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/citeassist/pkg/types"
)

func TestFormat_SingleField(t *testing.T) {
	fields := types.NewCitationFields("entryType", "article", "referenceKey", "x1", "title", "A")

	got, err := Format(fields)
	require.NoError(t, err)
	assert.Equal(t, "@article{x1,\n  title={A}\n}", got)
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name   string
		fields types.CitationFields
		want   string
	}{
		{
			name:   "no fields",
			fields: types.NewCitationFields("entryType", "misc", "referenceKey", "k"),
			want:   "@misc{k\n}",
		},
		{
			name: "natural order kept",
			fields: types.NewCitationFields(
				"entryType", "inproceedings",
				"referenceKey", "smith2024",
				"year", "2024",
				"author", "Smith, Jane",
				"title", "On Things",
			),
			want: "@inproceedings{smith2024,\n  year={2024},\n  author={Smith, Jane},\n  title={On Things}\n}",
		},
		{
			name: "empty values skipped",
			fields: types.NewCitationFields(
				"entryType", "article",
				"referenceKey", "k",
				"doi", "",
				"title", "T",
				"note", "",
			),
			want: "@article{k,\n  title={T}\n}",
		},
		{
			name: "legacy header names",
			fields: types.NewCitationFields(
				"artType", "book",
				"ref", "b1",
				"publisher", "P",
			),
			want: "@book{b1,\n  publisher={P}\n}",
		},
		{
			name: "braces and non-ASCII preserved",
			fields: types.NewCitationFields(
				"entryType", "article",
				"referenceKey", "müller",
				"title", "{GPU} Über Straße – naïve",
			),
			want: "@article{müller,\n  title={{GPU} Über Straße – naïve}\n}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Format(tt.fields)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat_ReservedKeysEmittedOnce(t *testing.T) {
	fields := types.NewCitationFields("entryType", "article", "referenceKey", "a", "title", "T")
	fields.Set("entryType", "misc")
	fields.Set("ref", "b")

	got, err := Format(fields)
	require.NoError(t, err)
	assert.Equal(t, "@misc{b,\n  title={T}\n}", got)
	assert.NotContains(t, got, "entryType")
	assert.NotContains(t, got, "referenceKey")
}

func TestFormat_EmptyValuesNeverAppear(t *testing.T) {
	names := []string{"author", "title", "journal", "year", "doi", "url", "pages"}
	for mask := 0; mask < 1<<len(names); mask++ {
		fields := types.NewCitationFields("entryType", "article", "referenceKey", "k")
		for i, n := range names {
			if mask&(1<<i) != 0 {
				fields.Set(n, "v")
			} else {
				fields.Set(n, "")
			}
		}

		got, err := Format(fields)
		require.NoError(t, err)
		for i, n := range names {
			present := strings.Contains(got, "  "+n+"={")
			assert.Equal(t, mask&(1<<i) != 0, present, "mask %b field %s", mask, n)
		}
	}
}

func TestFormat_MissingEntryType(t *testing.T) {
	_, err := Format(types.NewCitationFields("referenceKey", "k", "title", "T"))
	assert.ErrorIs(t, err, ErrEntryTypeMissing)
}

func TestFormat_YAMLOrderIsDeterministic(t *testing.T) {
	doc := `
entryType: article
referenceKey: doe2023
title: Zeta
author: Doe, John
abstract: ""
year: 2023
`
	var fields types.CitationFields
	require.NoError(t, yaml.Unmarshal([]byte(doc), &fields))

	first, err := Format(fields)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Format(fields)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, "@article{doe2023,\n  title={Zeta},\n  author={Doe, John},\n  year={2023}\n}", first)
}

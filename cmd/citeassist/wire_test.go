// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/citeassist/pkg/types"
)

func TestReadFields(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "fields.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("entryType: article\nreferenceKey: k1\ntitle: T\nyear: 2021\n"), 0o644))
	jsonPath := filepath.Join(dir, "fields.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"entryType":"misc","referenceKey":"k2","title":"J"}`), 0o644))

	t.Run("yaml keeps order", func(t *testing.T) {
		f, err := readFields(yamlPath, nil)
		require.NoError(t, err)
		assert.Equal(t, "article", f.EntryType())
		assert.Equal(t, "2021", f.Value("year"))
		var names []string
		for _, fld := range f.Fields() {
			names = append(names, fld.Name)
		}
		assert.Equal(t, []string{"entryType", "referenceKey", "title", "year"}, names)
	})

	t.Run("json", func(t *testing.T) {
		f, err := readFields(jsonPath, nil)
		require.NoError(t, err)
		assert.Equal(t, "k2", f.ReferenceKey())
	})

	t.Run("overrides", func(t *testing.T) {
		f, err := readFields(yamlPath, []string{"title=Other", "note=a=b"})
		require.NoError(t, err)
		assert.Equal(t, "Other", f.Value("title"))
		assert.Equal(t, "a=b", f.Value("note"))
	})

	t.Run("errors", func(t *testing.T) {
		_, err := readFields("", nil)
		assert.Error(t, err)
		_, err = readFields("", []string{"novalue"})
		assert.Error(t, err)
		_, err = readFields("", []string{"=x"})
		assert.Error(t, err)
		_, err = readFields(filepath.Join(dir, "missing.yaml"), nil)
		assert.Error(t, err)
	})
}

func TestReadRelated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "related.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- title: A\n  year: \"2020\"\n  authors: [X, Y]\n- title: B\n"), 0o644))

	related, err := readRelated(path)
	require.NoError(t, err)
	require.Len(t, related, 2)
	assert.Equal(t, []string{"X", "Y"}, related[0].Authors)

	none, err := readRelated("")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestNewBackend_Unknown(t *testing.T) {
	_, err := newBackend(types.RenderConfig{Backend: "carrier-pigeon"})
	assert.ErrorContains(t, err, "unknown render backend")
}

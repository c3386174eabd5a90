// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assets holds files compiled into the binary.
package assets

import (
	_ "embed"
	"fmt"
	"os"
)

// Button is the citation button drawn on the first page of every composite
// document: a 758x201 RGBA PNG, drawn at 0.15 scale.
//
//go:embed button.png
var Button []byte

// LoadButton returns the PNG at path, or the embedded Button when path is
// empty.
func LoadButton(path string) ([]byte, error) {
	if path == "" {
		return Button, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading button image: %w", err)
	}
	return data, nil
}

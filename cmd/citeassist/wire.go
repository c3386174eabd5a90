// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/citeassist/internal/assets"
	"github.com/pdiddy/citeassist/internal/compose"
	"github.com/pdiddy/citeassist/internal/container"
	"github.com/pdiddy/citeassist/internal/fallback"
	"github.com/pdiddy/citeassist/internal/ledger"
	"github.com/pdiddy/citeassist/internal/render"
	"github.com/pdiddy/citeassist/internal/sheet"
	"github.com/pdiddy/citeassist/pkg/types"
)

// newBackend builds the configured render backend.
func newBackend(c types.RenderConfig) (render.Backend, error) {
	switch c.Backend {
	case "", types.BackendHTTP:
		return render.NewClientFromConfig(c, logger)
	case types.BackendContainer:
		rt, err := container.DetectRuntime()
		if err != nil {
			return nil, err
		}
		policy, err := render.PolicyFromConfig(c)
		if err != nil {
			return nil, err
		}
		return render.NewContainerBackend(rt, c.ContainerImage, policy, logger)
	default:
		return nil, fmt.Errorf("unknown render backend %q (want %s or %s)", c.Backend, types.BackendHTTP, types.BackendContainer)
	}
}

// pipeline holds everything Produce needs. Close releases the ledger.
type pipeline struct {
	backend  render.Backend
	producer *sheet.Producer
	ledger   *ledger.Store
}

func (p *pipeline) Close() error {
	if p.ledger == nil {
		return nil
	}
	return p.ledger.Close()
}

// newPipeline wires the backend, fallback renderer, compositor and ledger
// from cfg.
func newPipeline(c types.Config) (*pipeline, error) {
	backend, err := newBackend(c.Render)
	if err != nil {
		return nil, err
	}
	button, err := assets.LoadButton(c.Compose.ButtonImage)
	if err != nil {
		return nil, err
	}
	comp, err := compose.New(button, compose.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	p := &pipeline{backend: backend}
	opts := []sheet.Option{
		sheet.WithLogger(logger),
		sheet.WithSheetBaseURL(c.Compose.SheetBaseURL),
	}
	if c.Ledger.Path != "" {
		store, err := ledger.Open(c.Ledger.Path)
		if err != nil {
			return nil, err
		}
		p.ledger = store
		opts = append(opts, sheet.WithRecorder(store))
	}
	p.producer = sheet.NewProducer(backend, fallback.New(logger), comp, opts...)
	return p, nil
}

// readFields loads citation fields from a YAML or JSON file and applies
// name=value overrides in order.
func readFields(path string, overrides []string) (types.CitationFields, error) {
	var fields types.CitationFields
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fields, fmt.Errorf("reading fields: %w", err)
		}
		if err := yaml.Unmarshal(data, &fields); err != nil {
			return fields, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	for _, kv := range overrides {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return fields, fmt.Errorf("field %q: want name=value", kv)
		}
		fields.Set(name, value)
	}
	if fields.Len() == 0 {
		return fields, fmt.Errorf("no citation fields given (use --fields or --field)")
	}
	return fields, nil
}

// readRelated loads a YAML or JSON list of related papers.
func readRelated(path string) ([]types.RelatedPaper, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading related papers: %w", err)
	}
	var related []types.RelatedPaper
	if err := yaml.Unmarshal(data, &related); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return related, nil
}

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/pipegridgo/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

// Document is the raw, format-agnostic representation of a pipeline
// definition. Every supported input format is translated into this shape
// before any other component sees it.
type Document map[string]any

// Loader reads pipeline definition files and translates them into the
// format-agnostic Document model.
type Loader struct{}

// NewLoader creates a new Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads the definition at path and decodes it based on the file
// extension. Supported extensions are .yaml/.yml, .json and .hcl.
func (l *Loader) Load(ctx context.Context, path string) (Document, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading pipeline definition.", "path", path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".hcl" {
		return decodeHCLFile(ctx, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline definition: %w", err)
	}

	switch ext {
	case ".yaml", ".yml":
		return DecodeYAML(data)
	case ".json":
		return DecodeJSON(data)
	default:
		return nil, fmt.Errorf("unsupported pipeline definition format %q (want .yaml, .yml, .json or .hcl)", ext)
	}
}

// DecodeYAML decodes YAML bytes into a Document. A root that is not a
// mapping is a structural error.
func DecodeYAML(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML pipeline definition: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("pipeline definition is empty, expected a mapping at the root")
	}
	return doc, nil
}

// DecodeJSON decodes JSON bytes into a Document. A root that is not an
// object is a structural error.
func DecodeJSON(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON pipeline definition: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("pipeline definition is empty, expected an object at the root")
	}
	return doc, nil
}

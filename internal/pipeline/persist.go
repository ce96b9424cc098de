package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/pipegridgo/internal/config"
	"gopkg.in/yaml.v3"
)

// Save writes the pipeline's static structure to path in the same
// configuration format the parser consumes, chosen by file extension
// (.yaml/.yml or .json). Live status fields are not written.
func Save(p *Pipeline, path string) error {
	var (
		data []byte
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(p)
	case ".json":
		data, err = json.MarshalIndent(p, "", "  ")
	default:
		return fmt.Errorf("unsupported pipeline definition format %q (want .yaml, .yml or .json)", ext)
	}
	if err != nil {
		return fmt.Errorf("failed to encode pipeline %q: %w", p.Name, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write pipeline definition: %w", err)
	}
	return nil
}

// Load reads a pipeline definition from disk and parses it into a Pipeline.
// It accepts every format the config loader supports.
func Load(ctx context.Context, path string) (*Pipeline, error) {
	doc, err := config.NewLoader().Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return FromDocument(doc)
}

package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/circuitry/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Format names a description file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatHCL  Format = "hcl"
)

// FormatFromPath picks the format from the file extension. Unknown extensions are YAML.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".hcl":
		return FormatHCL
	}
	return FormatYAML
}

// File is the decoded description, before ids and handles are resolved.
type File struct {
	Circuits []CircuitSpec `mapstructure:"circuits"`
	Nodes    []NodeSpec    `mapstructure:"nodes"`
	Edges    []EdgeSpec    `mapstructure:"edges"`
}

// CircuitSpec declares a reusable circuit.
type CircuitSpec struct {
	Name  string     `mapstructure:"name"`
	Nodes []NodeSpec `mapstructure:"nodes"`
	Edges []EdgeSpec `mapstructure:"edges"`
}

// NodeSpec declares one node.
type NodeSpec struct {
	ID        string  `mapstructure:"id"`
	Type      string  `mapstructure:"type"`
	Operation string  `mapstructure:"operation"`
	Value     bool    `mapstructure:"value"`
	Circuit   string  `mapstructure:"circuit"`
	X         float64 `mapstructure:"x"`
	Y         float64 `mapstructure:"y"`
}

// EdgeSpec wires From to To. Both are "node" or "node.handle".
type EdgeSpec struct {
	ID   string `mapstructure:"id"`
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
}

// Load reads and builds a description file.
func Load(path string) (domain.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to read circuit file: %w", err)
	}
	return Parse(data, FormatFromPath(path), path)
}

// Parse decodes data in the given format and builds it.
// filename is only used in diagnostics.
func Parse(data []byte, format Format, filename string) (domain.Snapshot, error) {
	var (
		f   File
		err error
	)
	switch format {
	case FormatHCL:
		f, err = decodeHCL(data, filename)
	case FormatJSON:
		var raw map[string]any
		if err = json.Unmarshal(data, &raw); err != nil {
			return domain.Snapshot{}, fmt.Errorf("failed to parse %s: %w", filename, err)
		}
		f, err = decodeMap(raw)
	default:
		var raw map[string]any
		if err = yaml.Unmarshal(data, &raw); err != nil {
			return domain.Snapshot{}, fmt.Errorf("failed to parse %s: %w", filename, err)
		}
		f, err = decodeMap(raw)
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("%s: %w", filename, err)
	}

	snap, err := Build(f)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("%s: %w", filename, err)
	}
	return snap, nil
}

func decodeMap(raw map[string]any) (File, error) {
	var f File
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &f,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return File{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return File{}, fmt.Errorf("invalid circuit description: %w", err)
	}
	return f, nil
}

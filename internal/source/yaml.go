package source

import (
	"context"
	"fmt"
	"os"

	"github.com/specialistvlad/expgrid/internal/ctxlog"
	"github.com/specialistvlad/expgrid/internal/definition"
	"gopkg.in/yaml.v3"
)

// experimentsKey is the top-level key every file source must expose.
const experimentsKey = "experiments"

// YAMLFile reads the top-level `experiments:` mapping from a YAML file. The
// mapping's key order is kept, so the file order is the run order.
type YAMLFile struct {
	path string
}

// NewYAMLFile creates a source for the YAML file at path.
func NewYAMLFile(path string) *YAMLFile {
	return &YAMLFile{path: path}
}

// Name implements Source.
func (s *YAMLFile) Name() string { return s.path }

// Experiments implements Source.
func (s *YAMLFile) Experiments(ctx context.Context) ([]*definition.Definition, error) {
	logger := ctxlog.FromContext(ctx).With("source", s.path)
	logger.Debug("Parsing YAML experiments file.")

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read YAML file %s: %w", s.path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML file %s: %w", s.path, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("YAML file %s does not define '%s'", s.path, experimentsKey)
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("YAML file %s: top level must be a mapping", s.path)
	}

	var experiments *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == experimentsKey {
			experiments = root.Content[i+1]
			break
		}
	}
	if experiments == nil {
		return nil, fmt.Errorf("YAML file %s does not define '%s'", s.path, experimentsKey)
	}
	if experiments.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("YAML file %s: '%s' must be a mapping (line %d)", s.path, experimentsKey, experiments.Line)
	}

	defs := make([]*definition.Definition, 0, len(experiments.Content)/2)
	for i := 0; i+1 < len(experiments.Content); i += 2 {
		keyNode, valNode := experiments.Content[i], experiments.Content[i+1]
		name := keyNode.Value

		var fields map[string]any
		if valNode.Kind != yaml.MappingNode && !isNullNode(valNode) {
			return nil, fmt.Errorf("YAML file %s: experiment '%s' must be a mapping (line %d)", s.path, name, valNode.Line)
		}
		if err := valNode.Decode(&fields); err != nil {
			return nil, fmt.Errorf("YAML file %s: experiment '%s': %w", s.path, name, err)
		}
		defs = append(defs, definition.New(name, s.path, normalizeFields(fields)))
	}

	logger.Debug("Parsed YAML experiments file.", "experiments", len(defs))
	return defs, nil
}

func isNullNode(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

// normalizeFields maps decoder-specific numeric types onto int64 and float64,
// the same shapes the HCL source produces.
func normalizeFields(in map[string]any) definition.Fields {
	out := make(definition.Fields, len(in))
	for k, v := range in {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case uint64:
		return int64(t)
	case float32:
		return float64(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}

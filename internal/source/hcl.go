package source

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/expgrid/internal/ctxlog"
	"github.com/specialistvlad/expgrid/internal/definition"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// HCLFile reads `experiment "<name>" { ... }` blocks from an HCL file. Every
// attribute inside a block becomes a field.
type HCLFile struct {
	path string
}

// NewHCLFile creates a source for the HCL file at path.
func NewHCLFile(path string) *HCLFile {
	return &HCLFile{path: path}
}

// Name implements Source.
func (s *HCLFile) Name() string { return s.path }

// hclExperimentFile is the top-level structure of an experiments file.
type hclExperimentFile struct {
	Experiments []*hclExperiment `hcl:"experiment,block"`
}

// hclExperiment is a single 'experiment' block, decoded lazily.
type hclExperiment struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

// Experiments implements Source.
func (s *HCLFile) Experiments(ctx context.Context) ([]*definition.Definition, error) {
	logger := ctxlog.FromContext(ctx).With("source", s.path)
	logger.Debug("Parsing HCL experiments file.")

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(s.path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", s.path, diags)
	}

	var parsed hclExperimentFile
	diags = gohcl.DecodeBody(hclFile.Body, nil, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", s.path, diags)
	}

	evalCtx := newEvalContext()
	defs := make([]*definition.Definition, 0, len(parsed.Experiments))
	for _, exp := range parsed.Experiments {
		attrs, diags := exp.Body.JustAttributes()
		if diags.HasErrors() {
			return nil, fmt.Errorf("experiment '%s' in %s: %w", exp.Name, s.path, diags)
		}

		fields := make(definition.Fields, len(attrs))
		for name, attr := range attrs {
			val, diags := attr.Expr.Value(evalCtx)
			if diags.HasErrors() {
				return nil, fmt.Errorf("experiment '%s' in %s, field '%s': %w", exp.Name, s.path, name, diags)
			}
			native, err := ctyToNative(val)
			if err != nil {
				return nil, fmt.Errorf("experiment '%s' in %s, field '%s': %w", exp.Name, s.path, name, err)
			}
			fields[name] = native
		}
		defs = append(defs, definition.New(exp.Name, s.path, fields))
	}

	logger.Debug("Parsed HCL experiments file.", "experiments", len(defs))
	return defs, nil
}

// newEvalContext exposes the process environment as `env.<NAME>` and a small
// set of string and collection functions to definition expressions.
func newEvalContext() *hcl.EvalContext {
	envVars := make(map[string]cty.Value)
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 && hclsyntax.ValidIdentifier(pair[0]) {
			envVars[pair[0]] = cty.StringVal(pair[1])
		}
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(envVars),
		},
		Functions: map[string]function.Function{
			"upper":  stdlib.UpperFunc,
			"lower":  stdlib.LowerFunc,
			"format": stdlib.FormatFunc,
			"join":   stdlib.JoinFunc,
			"concat": stdlib.ConcatFunc,
			"min":    stdlib.MinFunc,
			"max":    stdlib.MaxFunc,
		},
	}
}

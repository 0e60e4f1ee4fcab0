package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/expgrid/internal/definition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func names(defs []*definition.Definition) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Name
	}
	return out
}

func TestForFile(t *testing.T) {
	testCases := map[string]any{
		"a.hcl":  &HCLFile{},
		"a.yaml": &YAMLFile{},
		"a.YML":  &YAMLFile{},
		"a.toml": &TOMLFile{},
	}
	for path, want := range testCases {
		src, err := ForFile(path)
		require.NoError(t, err, path)
		assert.IsType(t, want, src, path)
		assert.Equal(t, path, src.Name())
	}

	_, err := ForFile("a.json")
	var ce *definition.ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, ce.Error(), "unsupported file extension")
}

func TestHCLFile(t *testing.T) {
	t.Setenv("EXPGRID_TEST_DATASET", "mnist")
	path := writeFile(t, "exp.hcl", `
experiment "zeta" {
  executor   = "train"
  evaluators = ["score"]
  lr         = 0.5
  epochs     = 10
  dataset    = upper(env.EXPGRID_TEST_DATASET)
  layers     = { hidden = 2, sizes = [64, 32] }
}

experiment "alpha" {
  extends  = "zeta"
  abstract = true
}
`)

	defs, err := NewHCLFile(path).Experiments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha"}, names(defs), "block order is kept")

	want := definition.Fields{
		"executor":   "train",
		"evaluators": []any{"score"},
		"lr":         0.5,
		"epochs":     int64(10),
		"dataset":    "MNIST",
		"layers":     map[string]any{"hidden": int64(2), "sizes": []any{int64(64), int64(32)}},
	}
	if diff := cmp.Diff(want, defs[0].Fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, path, defs[0].Source)
	assert.Equal(t, true, defs[1].Fields["abstract"])
}

func TestHCLFile_Errors(t *testing.T) {
	testCases := map[string]string{
		"syntax":        `experiment "a" {`,
		"missing label": `experiment { executor = "x" }`,
		"nested block":  `experiment "a" { inner {} }`,
		"unknown var":   `experiment "a" { x = nope.value }`,
	}
	for name, src := range testCases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, "bad.hcl", src)
			_, err := NewHCLFile(path).Experiments(context.Background())
			require.Error(t, err)
		})
	}
}

func TestYAMLFile_KeepsKeyOrder(t *testing.T) {
	path := writeFile(t, "exp.yaml", `
experiments:
  zeta:
    executor: train
    lr: 0.1
    epochs: 3
    tags: [a, b]
  alpha:
    extends: [zeta]
  middle:
`)

	defs, err := NewYAMLFile(path).Experiments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "middle"}, names(defs))

	want := definition.Fields{"executor": "train", "lr": 0.1, "epochs": int64(3), "tags": []any{"a", "b"}}
	if diff := cmp.Diff(want, defs[0].Fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, defs[2].Fields)
}

func TestYAMLFile_Errors(t *testing.T) {
	testCases := map[string]string{
		"no experiments":     "other: {}\n",
		"not a mapping":      "experiments: [a, b]\n",
		"experiment scalar":  "experiments:\n  a: 5\n",
		"top level sequence": "- a\n",
		"invalid yaml":       "experiments: [\n",
	}
	for name, src := range testCases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, "bad.yaml", src)
			_, err := NewYAMLFile(path).Experiments(context.Background())
			require.Error(t, err)
		})
	}
}

func TestTOMLFile_LexicalOrder(t *testing.T) {
	path := writeFile(t, "exp.toml", `
[experiments.zeta]
executor = "train"
lr = 0.25
epochs = 4

[experiments.alpha]
extends = ["zeta"]
`)

	defs, err := NewTOMLFile(path).Experiments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, names(defs))

	want := definition.Fields{"executor": "train", "lr": 0.25, "epochs": int64(4)}
	if diff := cmp.Diff(want, defs[1].Fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestProviders(t *testing.T) {
	static := Static("builtin", definition.New("a", "", definition.Fields{"executor": "x"}))
	failing := Func("broken", func(context.Context) ([]*definition.Definition, error) {
		return nil, errors.New("unavailable")
	})

	defs, err := static.Experiments(context.Background())
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "builtin", defs[0].Source)

	_, err = failing.Experiments(context.Background())
	require.EqualError(t, err, "provider 'broken': unavailable")

	p := NewProviders()
	p.Register(static)
	p.Register(failing)
	assert.Equal(t, []string{"builtin", "broken"}, []string{p.Sources()[0].Name(), p.Sources()[1].Name()})
	assert.Panics(t, func() { p.Register(Static("builtin")) })
}

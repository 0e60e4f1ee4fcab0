package error_handling

import (
	"errors"
	"strings"
	"testing"

	"github.com/specialistvlad/expgrid/internal/definition"
	"github.com/specialistvlad/expgrid/internal/testutil"
	"github.com/stretchr/testify/require"
)

// Test for: load-time errors abort the run before any experiment executes.
func TestErrorHandling_LoadErrorsAbortRun(t *testing.T) {
	testCases := []struct {
		name    string
		files   map[string]string
		check   func(t *testing.T, err error)
		message string
	}{
		{
			name:    "required field missing",
			files:   map[string]string{"a.yaml": "experiments:\n  a:\n    lr: 1\n"},
			message: "required field 'executor' not found in experiment 'a'",
			check: func(t *testing.T, err error) {
				var target *definition.MissingFieldError
				require.True(t, errors.As(err, &target))
			},
		},
		{
			name: "duplicate across files",
			files: map[string]string{
				"a.yaml": "experiments:\n  same:\n    executor: record\n",
				"b.hcl":  "experiment \"same\" {\n  executor = \"record\"\n}\n",
			},
			message: "experiment name 'same' is not unique",
			check: func(t *testing.T, err error) {
				var target *definition.DuplicateNameError
				require.True(t, errors.As(err, &target))
			},
		},
		{
			name:    "cyclic inheritance",
			files:   map[string]string{"a.yaml": "experiments:\n  a:\n    extends: b\n  b:\n    extends: a\n"},
			message: "cyclic inheritance detected: a -> b -> a",
			check: func(t *testing.T, err error) {
				var target *definition.CyclicInheritanceError
				require.True(t, errors.As(err, &target))
			},
		},
		{
			name:    "unknown parent",
			files:   map[string]string{"a.yaml": "experiments:\n  a:\n    extends: ghost\n    executor: record\n"},
			message: "extends unknown experiment 'ghost'",
			check: func(t *testing.T, err error) {
				var target *definition.UnknownParentError
				require.True(t, errors.As(err, &target))
			},
		},
		{
			name:    "invalid hcl",
			files:   map[string]string{"a.hcl": "experiment \"a\" {\n"},
			message: "failed to parse HCL file",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			rec := testutil.NewRecordingModule()

			// --- Act ---
			result := testutil.RunExperiments(t, tc.files, rec)

			// --- Assert ---
			require.Error(t, result.Err)
			if !strings.Contains(result.Err.Error(), tc.message) {
				t.Errorf("expected error to contain %q, got: %v", tc.message, result.Err)
			}
			if tc.check != nil {
				tc.check(t, result.Err)
			}
			require.Empty(t, rec.Calls(), "nothing runs when loading fails")
			require.Nil(t, result.Report)
		})
	}
}

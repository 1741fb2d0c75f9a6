package app_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nk/detstrap/internal/testutil"
)

func TestApp_RunsPlanWithCoreModules(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "pipeline.py")
	require.NoError(t, os.WriteFile(src, []byte("def pipeline(): pass\n"), 0o644))

	planHCL := `
step "copy" "pipeline" {
  source = "` + src + `"
}
`

	// --- Act ---
	result := testutil.RunBootstrapTest(t, planHCL)

	// --- Assert ---
	require.NoError(t, result.Err, "logs:\n%s", result.LogOutput)
	require.FileExists(t, filepath.Join(result.Home, "pipeline.py"))
	require.Contains(t, result.Stdout, "Bootstrap complete.")
	require.Contains(t, result.LogOutput, "Finished step.")
}

func TestApp_UnknownStepKindFailsStartup(t *testing.T) {
	t.Parallel()

	result := testutil.RunBootstrapTest(t, `
step "teleport" "weights" {
  url = "https://example.com/weights.h5"
}
`)

	require.Error(t, result.Err)
	require.Contains(t, result.Err.Error(), "unknown step kind 'teleport'")
}

func TestApp_CustomModulesReplaceCore(t *testing.T) {
	t.Parallel()

	mod := &testutil.RecordingModule{Kind: "record"}

	result := testutil.RunBootstrapTest(t, `
step "record" "only" {
  label = "only"
}
`, mod)

	require.NoError(t, result.Err, "logs:\n%s", result.LogOutput)
	require.Equal(t, []string{"only"}, mod.Order())
}

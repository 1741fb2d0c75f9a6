package stage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nk/detstrap/internal/config"
	"github.com/nk/detstrap/internal/registry"
)

// projectDir materializes the fixed auxiliary files the original project
// checkout carries: the pipeline script plus a UUID-named metadata/weights
// pair sharing one basename.
func projectDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"pipeline.py": "def pipeline(): pass\n",
		"787bb5eb-7ba0-4f34-8af3-0b277337e4b4.json":    `{"id": "787bb5eb"}`,
		"787bb5eb-7ba0-4f34-8af3-0b277337e4b4.weights": "binary-weights",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func newEnv(t *testing.T, planDir string) *registry.Env {
	t.Helper()
	return &registry.Env{
		Home:       t.TempDir(),
		PlanDir:    planDir,
		OnConflict: config.Overwrite,
	}
}

func TestOnRunCopy_StagesIntoHome(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	project := projectDir(t)
	env := newEnv(t, project)

	// --- Act ---
	result, err := OnRunCopy(context.Background(), env, &CopyInput{
		Source: filepath.Join(project, "pipeline.py"),
	})

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, result.Artifacts, 1)
	require.Equal(t, filepath.Join(env.Home, "pipeline.py"), result.Artifacts[0].Path)
	require.NotEmpty(t, result.Artifacts[0].SHA256)

	got, err := os.ReadFile(filepath.Join(env.Home, "pipeline.py"))
	require.NoError(t, err)
	require.Equal(t, "def pipeline(): pass\n", string(got))
}

func TestOnRunCopy_ResolvesRelativeSourceAgainstPlanDir(t *testing.T) {
	t.Parallel()

	project := projectDir(t)
	env := newEnv(t, project)

	_, err := OnRunCopy(context.Background(), env, &CopyInput{Source: "pipeline.py"})

	require.NoError(t, err)
	require.FileExists(t, filepath.Join(env.Home, "pipeline.py"))
}

func TestOnRunCopy_MissingSourceFails(t *testing.T) {
	t.Parallel()

	env := newEnv(t, t.TempDir())

	_, err := OnRunCopy(context.Background(), env, &CopyInput{Source: "absent.py"})

	require.Error(t, err)
	require.Contains(t, err.Error(), "not readable")
}

func TestOnRunCopyGlob_StagesMatchingPair(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	project := projectDir(t)
	env := newEnv(t, project)

	// --- Act ---
	result, err := OnRunCopyGlob(context.Background(), env, &GlobInput{
		Pattern: filepath.Join(project, "787bb5eb-7ba0-4f34-8af3-0b277337e4b4.*"),
	})

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, result.Artifacts, 2)
	require.FileExists(t, filepath.Join(env.Home, "787bb5eb-7ba0-4f34-8af3-0b277337e4b4.json"))
	require.FileExists(t, filepath.Join(env.Home, "787bb5eb-7ba0-4f34-8af3-0b277337e4b4.weights"))

	// The pipeline script does not match the prefix and must not be staged.
	require.NoFileExists(t, filepath.Join(env.Home, "pipeline.py"))
}

func TestOnRunCopyGlob_NoMatchesFails(t *testing.T) {
	t.Parallel()

	env := newEnv(t, t.TempDir())

	_, err := OnRunCopyGlob(context.Background(), env, &GlobInput{Pattern: "nothing-here-*.json"})

	require.Error(t, err)
	require.Contains(t, err.Error(), "matches no files")
}

func TestOnRunCopy_ConflictPolicySkip(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	project := projectDir(t)
	env := newEnv(t, project)
	env.OnConflict = config.Skip

	existing := filepath.Join(env.Home, "pipeline.py")
	require.NoError(t, os.WriteFile(existing, []byte("already here"), 0o644))

	// --- Act ---
	result, err := OnRunCopy(context.Background(), env, &CopyInput{Source: "pipeline.py"})

	// --- Assert ---
	require.NoError(t, err)
	require.True(t, result.Artifacts[0].Skipped)

	got, err := os.ReadFile(existing)
	require.NoError(t, err)
	require.Equal(t, "already here", string(got))
}

func TestOnRunCopy_ConflictPolicyFail(t *testing.T) {
	t.Parallel()

	project := projectDir(t)
	env := newEnv(t, project)
	env.OnConflict = config.Fail
	require.NoError(t, os.WriteFile(filepath.Join(env.Home, "pipeline.py"), []byte("x"), 0o644))

	_, err := OnRunCopy(context.Background(), env, &CopyInput{Source: "pipeline.py"})

	require.Error(t, err)
	require.Contains(t, err.Error(), "already exists")
}

package executor_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/nk/detstrap/internal/config"
	"github.com/nk/detstrap/internal/executor"
	"github.com/nk/detstrap/internal/hcl"
	"github.com/nk/detstrap/internal/receipt"
	"github.com/nk/detstrap/internal/registry"
	"github.com/nk/detstrap/internal/testutil"
)

// loadPlan parses a plan from a string and returns everything an executor
// needs to run it against an isolated home.
func loadPlan(t *testing.T, planHCL string) (*config.Model, config.Decoder, executor.Options) {
	t.Helper()

	tmpDir := t.TempDir()
	planPath := filepath.Join(tmpDir, "plan.hcl")
	require.NoError(t, os.WriteFile(planPath, []byte(planHCL), 0o644))

	model, dec, err := hcl.NewLoader().Load(context.Background(), planPath)
	require.NoError(t, err)

	home := filepath.Join(tmpDir, "home")
	require.NoError(t, os.Mkdir(home, 0o755))

	return model, dec, executor.Options{
		Home:       home,
		PlanDir:    tmpDir,
		PlanPath:   planPath,
		OnConflict: model.Settings.OnConflict,
	}
}

// readReceipt loads the run receipt written under the given home.
func readReceipt(t *testing.T, home string) *receipt.Receipt {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(home, receipt.Dir, receipt.FileName))
	require.NoError(t, err)
	var r receipt.Receipt
	require.NoError(t, yaml.Unmarshal(data, &r))
	return &r
}

const orderedPlan = `
step "record" "first" {
  label = "first"
}

step "record" "second" {
  label = "second"
}

step "record" "third" {
  label = "third"
}
`

func TestRun_ExecutesStepsInDeclarationOrder(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	model, dec, opts := loadPlan(t, orderedPlan)
	mod := &testutil.RecordingModule{Kind: "record"}
	reg := registry.New()
	mod.Register(reg)

	// --- Act ---
	err := executor.New(reg, dec, opts).Run(context.Background(), model)

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, []string{"first", "second", "third"}, mod.Order())

	r := readReceipt(t, opts.Home)
	require.Equal(t, receipt.StatusOK, r.Status)
	require.Len(t, r.Steps, 3)
	for _, step := range r.Steps {
		require.Equal(t, receipt.StatusOK, step.Status)
	}
}

func TestRun_StopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	model, dec, opts := loadPlan(t, orderedPlan)
	mod := &testutil.RecordingModule{
		Kind:   "record",
		FailOn: 2,
		Err:    errors.New("ref 'v9.9.9' not found"),
	}
	reg := registry.New()
	mod.Register(reg)

	// --- Act ---
	err := executor.New(reg, dec, opts).Run(context.Background(), model)

	// --- Assert ---
	require.Error(t, err)
	require.Contains(t, err.Error(), "step record.second failed")
	require.Contains(t, err.Error(), "ref 'v9.9.9' not found")

	// The third step never executed.
	require.Equal(t, []string{"first"}, mod.Order())

	// The receipt names exactly which step failed and which never ran.
	r := readReceipt(t, opts.Home)
	require.Equal(t, receipt.StatusFailed, r.Status)
	require.Len(t, r.Steps, 3)
	require.Equal(t, receipt.StatusOK, r.Steps[0].Status)
	require.Equal(t, receipt.StatusFailed, r.Steps[1].Status)
	require.Contains(t, r.Steps[1].Error, "ref 'v9.9.9' not found")
	require.Equal(t, receipt.StatusSkipped, r.Steps[2].Status)
}

func TestRun_DryRunExecutesNothing(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	model, dec, opts := loadPlan(t, orderedPlan)
	opts.DryRun = true
	mod := &testutil.RecordingModule{Kind: "record"}
	reg := registry.New()
	mod.Register(reg)

	// --- Act ---
	err := executor.New(reg, dec, opts).Run(context.Background(), model)

	// --- Assert ---
	require.NoError(t, err)
	require.Empty(t, mod.Order())

	// No receipt is written for a dry run.
	_, statErr := os.Stat(filepath.Join(opts.Home, receipt.Dir))
	require.True(t, os.IsNotExist(statErr))
}

func TestRun_DryRunStillValidatesArguments(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	model, dec, opts := loadPlan(t, `
step "record" "first" {
}
`)
	opts.DryRun = true
	mod := &testutil.RecordingModule{Kind: "record"}
	reg := registry.New()
	mod.Register(reg)

	// --- Act ---
	err := executor.New(reg, dec, opts).Run(context.Background(), model)

	// --- Assert ---
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid arguments for step record.first")
}

func TestRun_CancelledContextSkipsRemainingSteps(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	model, dec, opts := loadPlan(t, orderedPlan)
	mod := &testutil.RecordingModule{Kind: "record"}
	reg := registry.New()
	mod.Register(reg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// --- Act ---
	err := executor.New(reg, dec, opts).Run(ctx, model)

	// --- Assert ---
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, mod.Order())
}

// Package testutil provides a standardized harness for integration tests:
// it materializes a plan file and an isolated bootstrap home in a temporary
// directory, runs the full app against them, and captures the outcome.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nk/detstrap/internal/app"
	"github.com/nk/detstrap/internal/hcl"
	"github.com/nk/detstrap/internal/registry"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Stdout    string
	Err       error
	// Home is the isolated bootstrap home the run staged files into.
	Home string
	// PlanDir is the directory the plan file was written to; relative
	// source paths in the plan resolve against it.
	PlanDir string
}

// RunBootstrapTest runs a full bootstrap of the given plan against an
// isolated temporary home, using a default background context. Passing no
// modules selects the compiled-in core modules.
func RunBootstrapTest(t *testing.T, planHCL string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunBootstrapTestWithContext(context.Background(), t, planHCL, modules...)
}

// RunBootstrapTestWithContext is RunBootstrapTest with a caller-provided context.
func RunBootstrapTestWithContext(ctx context.Context, t *testing.T, planHCL string, modules ...registry.Module) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	home := filepath.Join(tmpDir, "home")
	require.NoError(t, os.Mkdir(home, 0o755))

	planPath := filepath.Join(tmpDir, "plan.hcl")
	require.NoError(t, os.WriteFile(planPath, []byte(planHCL), 0o644))

	cfg, err := app.NewConfig(app.Config{
		PlanPath:  planPath,
		Home:      home,
		LogFormat: "text",
		LogLevel:  "debug",
	})
	require.NoError(t, err)

	logBuf := &SafeBuffer{}
	outBuf := &bytes.Buffer{}

	runErr := runApp(ctx, outBuf, logBuf, cfg, modules...)

	return &HarnessResult{
		LogOutput: logBuf.String(),
		Stdout:    outBuf.String(),
		Err:       runErr,
		Home:      home,
		PlanDir:   tmpDir,
	}
}

// runApp constructs and runs the app, converting startup panics into errors
// the same way the CLI entrypoint does.
func runApp(ctx context.Context, outW, logW io.Writer, cfg *app.Config, modules ...registry.Module) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application startup panicked: %v", r)
		}
	}()

	a := app.NewApp(outW, logW, cfg, hcl.NewLoader(), modules...)
	return a.Run(ctx)
}

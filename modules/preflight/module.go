// Package preflight implements the 'preflight' step kind: checks the
// environment a bootstrap run silently depends on before any mutating step
// executes — a usable pip of sufficient version and a writable home.
package preflight

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	goversion "github.com/hashicorp/go-version"

	"github.com/nk/detstrap/internal/ctxlog"
	"github.com/nk/detstrap/internal/fsutil"
	"github.com/nk/detstrap/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// defaultPython mirrors the pip module's default interpreter.
const defaultPython = "python3"

// Input defines the arguments for a preflight step.
type Input struct {
	// Python is the interpreter to probe. Defaults to python3.
	Python string `hcl:"python,optional"`
	// MinPip is an optional minimum pip version, e.g. "21.3".
	MinPip string `hcl:"min_pip,optional"`
}

// OnRunPreflight is the handler for the 'preflight' step kind.
func OnRunPreflight(ctx context.Context, env *registry.Env, input *Input) (*registry.Result, error) {
	logger := ctxlog.FromContext(ctx)

	python := input.Python
	if python == "" {
		python = defaultPython
	}

	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, python, "-m", "pip", "--version")
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s has no usable pip: %w\n%s", python, err, output.Bytes())
	}

	pipVersion, err := parsePipVersion(output.String())
	if err != nil {
		return nil, err
	}
	logger.Info("Found pip.", "python", python, "pip_version", pipVersion.String())

	if input.MinPip != "" {
		constraint, err := goversion.NewConstraint(">= " + input.MinPip)
		if err != nil {
			return nil, fmt.Errorf("invalid min_pip constraint %q: %w", input.MinPip, err)
		}
		if !constraint.Check(pipVersion) {
			return nil, fmt.Errorf("pip %s is older than required minimum %s", pipVersion, input.MinPip)
		}
	}

	if err := fsutil.IsDirWritable(env.Home); err != nil {
		return nil, err
	}
	logger.Debug("Bootstrap home is writable.", "home", env.Home)

	return &registry.Result{
		Summary: fmt.Sprintf("pip %s ok, home writable", pipVersion),
	}, nil
}

// parsePipVersion extracts the version from `pip --version` output, which
// looks like "pip 23.0.1 from /usr/lib/python3/... (python 3.10)".
func parsePipVersion(output string) (*goversion.Version, error) {
	fields := strings.Fields(output)
	if len(fields) < 2 || fields[0] != "pip" {
		return nil, fmt.Errorf("unrecognized pip --version output: %q", strings.TrimSpace(output))
	}
	v, err := goversion.NewVersion(fields[1])
	if err != nil {
		return nil, fmt.Errorf("unparseable pip version %q: %w", fields[1], err)
	}
	return v, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("preflight", &registry.RegisteredStep{
		NewInput: func() any { return new(Input) },
		Fn: func(ctx context.Context, env *registry.Env, input any) (*registry.Result, error) {
			return OnRunPreflight(ctx, env, input.(*Input))
		},
	})
}

// Package pip implements the 'pip_install' step kind: installing a Python
// package with the host's package manager, either from a local path or from
// a pinned source-control egg reference, optionally in editable mode.
package pip

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/nk/detstrap/internal/ctxlog"
	"github.com/nk/detstrap/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// defaultPython is the interpreter whose pip runs the install.
const defaultPython = "python3"

// outputTail bounds how much subprocess output is attached to an error.
const outputTail = 2048

// Input defines the arguments for a pip_install step.
type Input struct {
	// Source is a local path or a source-control egg reference.
	Source string `hcl:"source"`
	// Editable selects a development-mode install (-e). Defaults to true:
	// both packages the bootstrap installs are live source checkouts.
	Editable *bool `hcl:"editable,optional"`
	// Python is the interpreter to use. Defaults to python3.
	Python string `hcl:"python,optional"`
}

// OnRunPipInstall is the handler for the 'pip_install' step kind.
func OnRunPipInstall(ctx context.Context, env *registry.Env, input *Input) (*registry.Result, error) {
	logger := ctxlog.FromContext(ctx)

	editable := input.Editable == nil || *input.Editable
	python := input.Python
	if python == "" {
		python = defaultPython
	}

	source := input.Source
	if IsVCSRef(source) {
		ref, err := ParseEggRef(source)
		if err != nil {
			return nil, err
		}
		// pip refuses an editable VCS install without a project name.
		if editable && ref.Egg == "" {
			return nil, fmt.Errorf("editable install of %q requires an #egg= fragment", source)
		}
		logger.Info("Installing package from source control.",
			"vcs", ref.VCS, "repo", ref.RepoURL, "ref", ref.Ref, "egg", ref.Egg)
	} else {
		if !filepath.IsAbs(source) {
			source = filepath.Join(env.PlanDir, source)
		}
		logger.Info("Installing package from local path.", "path", source)
	}

	args := buildArgs(source, editable)
	logger.Debug("Running package manager.", "python", python, "args", args)

	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, python, args...)
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pip install of %q failed: %w\n%s", input.Source, err, tail(output.Bytes()))
	}

	logger.Debug("Package manager finished.", "output", output.String())
	return &registry.Result{Summary: fmt.Sprintf("installed %s", input.Source)}, nil
}

// buildArgs assembles the `python -m pip install` argument list.
func buildArgs(source string, editable bool) []string {
	args := []string{"-m", "pip", "install"}
	if editable {
		args = append(args, "-e")
	}
	return append(args, source)
}

// tail returns at most the last outputTail bytes of subprocess output.
func tail(b []byte) []byte {
	if len(b) <= outputTail {
		return b
	}
	return b[len(b)-outputTail:]
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("pip_install", &registry.RegisteredStep{
		NewInput: func() any { return new(Input) },
		Fn: func(ctx context.Context, env *registry.Env, input any) (*registry.Result, error) {
			return OnRunPipInstall(ctx, env, input.(*Input))
		},
	})
}

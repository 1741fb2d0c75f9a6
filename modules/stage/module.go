// Package stage implements the 'copy' and 'copy_glob' step kinds: placing
// fixed auxiliary files (the pipeline script, metadata, bundled weights)
// into the bootstrap home where the downstream pipeline expects them.
package stage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/nk/detstrap/internal/ctxlog"
	"github.com/nk/detstrap/internal/fsutil"
	"github.com/nk/detstrap/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// CopyInput defines the arguments for a copy step.
type CopyInput struct {
	// Source is the file to stage. Relative paths resolve against the plan
	// file's directory.
	Source string `hcl:"source"`
}

// GlobInput defines the arguments for a copy_glob step.
type GlobInput struct {
	// Pattern is a filepath glob; every match is staged. Zero matches is an
	// error, since it means the project checkout is incomplete.
	Pattern string `hcl:"pattern"`
}

// OnRunCopy is the handler for the 'copy' step kind.
func OnRunCopy(ctx context.Context, env *registry.Env, input *CopyInput) (*registry.Result, error) {
	source := resolve(env, input.Source)
	artifact, err := stageOne(ctx, env, source)
	if err != nil {
		return nil, err
	}
	return &registry.Result{
		Artifacts: []registry.Artifact{artifact},
		Summary:   fmt.Sprintf("staged %s", filepath.Base(source)),
	}, nil
}

// OnRunCopyGlob is the handler for the 'copy_glob' step kind.
func OnRunCopyGlob(ctx context.Context, env *registry.Env, input *GlobInput) (*registry.Result, error) {
	pattern := resolve(env, input.Pattern)

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", input.Pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("glob pattern %q matches no files", pattern)
	}

	artifacts := make([]registry.Artifact, 0, len(matches))
	for _, match := range matches {
		artifact, err := stageOne(ctx, env, match)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, artifact)
	}

	return &registry.Result{
		Artifacts: artifacts,
		Summary:   fmt.Sprintf("staged %d files matching %s", len(artifacts), filepath.Base(pattern)),
	}, nil
}

// stageOne copies a single file into the bootstrap home.
func stageOne(ctx context.Context, env *registry.Env, source string) (registry.Artifact, error) {
	logger := ctxlog.FromContext(ctx)

	dest, digest, skipped, err := fsutil.StageFile(source, env.Home, env.OnConflict)
	if err != nil {
		return registry.Artifact{}, err
	}
	if skipped {
		logger.Info("Destination exists, skipping per conflict policy.", "dest", dest)
	} else {
		logger.Info("Staged file.", "source", source, "dest", dest, "sha256", digest)
	}

	return registry.Artifact{Path: dest, SHA256: digest, Skipped: skipped}, nil
}

// resolve makes a plan-relative path absolute against the plan directory.
func resolve(env *registry.Env, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(env.PlanDir, path)
}

// Register registers the handlers with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("copy", &registry.RegisteredStep{
		NewInput: func() any { return new(CopyInput) },
		Fn: func(ctx context.Context, env *registry.Env, input any) (*registry.Result, error) {
			return OnRunCopy(ctx, env, input.(*CopyInput))
		},
	})
	r.RegisterStep("copy_glob", &registry.RegisteredStep{
		NewInput: func() any { return new(GlobInput) },
		Fn: func(ctx context.Context, env *registry.Env, input any) (*registry.Result, error) {
			return OnRunCopyGlob(ctx, env, input.(*GlobInput))
		},
	})
}

package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/nk/detstrap/internal/config"
	"github.com/nk/detstrap/internal/ctxlog"
	"github.com/nk/detstrap/internal/schema"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL plan loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses the plan file at path and translates it into the
// format-agnostic model. The returned Decoder shares the parser's file
// table so step bodies can be decoded later with full diagnostics.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, config.Decoder, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading bootstrap plan.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, nil, fmt.Errorf("failed to parse plan file %s: %w", path, diags)
	}

	var plan schema.Plan
	if diags := gohcl.DecodeBody(file.Body, nil, &plan); diags.HasErrors() {
		return nil, nil, fmt.Errorf("failed to decode plan file %s: %w", path, diags)
	}

	model, err := l.translate(&plan, path)
	if err != nil {
		return nil, nil, err
	}

	logger.Debug("Plan loaded.", "steps", len(model.Steps))
	return model, NewDecoder(), nil
}

// translate converts the HCL-specific plan schema into the agnostic model,
// applying defaults and plan-level validation.
func (l *Loader) translate(plan *schema.Plan, path string) (*config.Model, error) {
	settings := &config.Settings{OnConflict: config.Overwrite}
	if plan.Settings != nil {
		policy, err := config.ParseConflictPolicy(plan.Settings.OnConflict)
		if err != nil {
			return nil, err
		}
		settings.Home = plan.Settings.Home
		settings.OnConflict = policy
	}

	if len(plan.Steps) == 0 {
		return nil, fmt.Errorf("plan %s declares no steps", path)
	}

	seen := make(map[string]struct{}, len(plan.Steps))
	steps := make([]*config.Step, 0, len(plan.Steps))
	for _, s := range plan.Steps {
		key := s.Kind + "." + s.Name
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate step %q in plan %s", key, path)
		}
		seen[key] = struct{}{}

		steps = append(steps, &config.Step{
			Kind:     s.Kind,
			Name:     s.Name,
			Body:     s.Body,
			DeclFile: path,
		})
	}

	return &config.Model{Settings: settings, Steps: steps}, nil
}

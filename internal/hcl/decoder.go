package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/zclconf/go-cty/cty"

	"github.com/nk/detstrap/internal/config"
	"github.com/nk/detstrap/internal/ctxlog"
)

// Decoder is the HCL-specific implementation of the config.Decoder interface.
type Decoder struct{}

// NewDecoder creates a new HCL step-body decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// DecodeStep evaluates the step body's expressions and populates the
// handler's input struct. The provided variables (e.g. `home`) are exposed
// to the plan author's expressions.
func (d *Decoder) DecodeStep(ctx context.Context, step *config.Step, vars map[string]cty.Value, target any) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Decoding step body.", "kind", step.Kind, "name", step.Name)

	evalCtx := &hcl.EvalContext{Variables: vars}
	if diags := gohcl.DecodeBody(step.Body, evalCtx, target); diags.HasErrors() {
		return fmt.Errorf("invalid arguments for step %s.%s: %w", step.Kind, step.Name, diags)
	}
	return nil
}

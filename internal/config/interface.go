package config

import (
	"context"

	"github.com/zclconf/go-cty/cty"
)

// Loader is the interface for a format-specific plan loader.
type Loader interface {
	// Load reads a plan from the given path, translates it into the
	// format-agnostic model, and returns a matching Decoder.
	Load(ctx context.Context, path string) (*Model, Decoder, error)
}

// Decoder is the interface for format-specific data binding. It bridges a
// raw step body and the Go input struct of the step's handler.
type Decoder interface {
	// DecodeStep decodes a step's raw body into the target Go struct,
	// exposing the given variables (e.g. `home`, `plan_dir`) to any
	// expressions the plan author used.
	DecodeStep(ctx context.Context, step *Step, vars map[string]cty.Value, target any) error
}

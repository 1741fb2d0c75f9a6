package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/nk/detstrap/internal/config"
)

// Module is the interface that all step modules must implement to be
// registered with an application instance.
type Module interface {
	Register(r *Registry)
}

// Env is the execution environment handed to every step handler.
type Env struct {
	// Home is the resolved bootstrap home directory; every staged or
	// downloaded file lands here.
	Home string
	// PlanDir is the directory containing the plan file. Relative source
	// paths in step arguments resolve against it.
	PlanDir string
	// OnConflict is the plan-level destination-collision policy.
	OnConflict config.ConflictPolicy
}

// Artifact records one file a step placed in the bootstrap home.
type Artifact struct {
	// Path is the absolute destination path.
	Path string
	// SHA256 is the hex digest of the file contents as written. Empty for
	// skipped artifacts.
	SHA256 string
	// Skipped is true when the conflict policy left an existing file alone.
	Skipped bool
}

// Result is what a step handler reports back on success.
type Result struct {
	Artifacts []Artifact
	// Summary is an optional one-line human description of what happened.
	Summary string
}

// StepFunc executes one step. The input is the struct produced by the
// handler's NewInput, populated from the step body by the plan's decoder.
type StepFunc func(ctx context.Context, env *Env, input any) (*Result, error)

// RegisteredStep holds the compiled Go parts of a step kind.
type RegisteredStep struct {
	// NewInput returns a fresh input struct for the decoder to fill.
	NewInput func() any
	Fn       StepFunc
}

// Registry holds all registered step handlers for a single application
// instance.
type Registry struct {
	steps map[string]*RegisteredStep
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{steps: make(map[string]*RegisteredStep)}
}

// RegisterStep registers a Go handler for a step kind.
func (r *Registry) RegisterStep(kind string, handler *RegisteredStep) {
	if _, exists := r.steps[kind]; exists {
		panic(fmt.Sprintf("step handler for kind '%s' already registered", kind))
	}
	slog.Debug("Registering step handler.", "kind", kind)
	r.steps[kind] = handler
}

// Step looks up the handler for a step kind.
func (r *Registry) Step(kind string) (*RegisteredStep, bool) {
	h, ok := r.steps[kind]
	return h, ok
}

// Kinds returns the sorted list of registered step kinds.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.steps))
	for k := range r.steps {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// ValidatePlan checks that every step in the plan names a registered kind.
// It reports all unknown kinds at once rather than stopping at the first.
func (r *Registry) ValidatePlan(ctx context.Context, model *config.Model) error {
	var errs []string
	for _, step := range model.Steps {
		if _, ok := r.steps[step.Kind]; !ok {
			errs = append(errs, fmt.Sprintf("step '%s.%s': unknown step kind '%s' (registered kinds: %s)",
				step.Kind, step.Name, step.Kind, strings.Join(r.Kinds(), ", ")))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("plan validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

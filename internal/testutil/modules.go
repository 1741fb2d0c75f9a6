package testutil

import (
	"context"
	"sync"

	"github.com/nk/detstrap/internal/registry"
)

// NoopModule registers a do-nothing handler under the given kind, for tests
// that only exercise parsing, validation, or sequencing.
type NoopModule struct {
	Kind string
}

// Register implements registry.Module.
func (m *NoopModule) Register(r *registry.Registry) {
	r.RegisterStep(m.Kind, &registry.RegisteredStep{
		NewInput: func() any { return new(struct{}) },
		Fn: func(ctx context.Context, env *registry.Env, input any) (*registry.Result, error) {
			return &registry.Result{}, nil
		},
	})
}

// RecordingModule registers a handler that appends each executed step's
// input to an ordered log, optionally failing on a chosen invocation.
type RecordingModule struct {
	Kind string
	// FailOn makes the nth (1-based) invocation return an error. Zero
	// disables failure injection.
	FailOn int
	// Err is the error returned when FailOn triggers.
	Err error

	mu    sync.Mutex
	calls int
	order []string
}

// RecordingInput is the step input captured by a RecordingModule.
type RecordingInput struct {
	Label string `hcl:"label"`
}

// Register implements registry.Module.
func (m *RecordingModule) Register(r *registry.Registry) {
	r.RegisterStep(m.Kind, &registry.RegisteredStep{
		NewInput: func() any { return new(RecordingInput) },
		Fn: func(ctx context.Context, env *registry.Env, input any) (*registry.Result, error) {
			in := input.(*RecordingInput)
			m.mu.Lock()
			defer m.mu.Unlock()
			m.calls++
			if m.FailOn != 0 && m.calls == m.FailOn {
				return nil, m.Err
			}
			m.order = append(m.order, in.Label)
			return &registry.Result{Summary: in.Label}, nil
		},
	})
}

// Order returns the labels of successfully executed steps, in order.
func (m *RecordingModule) Order() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

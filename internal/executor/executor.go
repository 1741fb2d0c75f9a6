package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/nk/detstrap/internal/config"
	"github.com/nk/detstrap/internal/ctxlog"
	"github.com/nk/detstrap/internal/receipt"
	"github.com/nk/detstrap/internal/registry"
)

// Options configures a single plan execution.
type Options struct {
	// Home is the resolved bootstrap home directory.
	Home string
	// PlanDir is the directory containing the plan file.
	PlanDir string
	// PlanPath is the plan file itself, recorded in the receipt.
	PlanPath string
	// OnConflict is the plan-level destination-collision policy.
	OnConflict config.ConflictPolicy
	// DryRun validates and logs the plan without executing any step.
	DryRun bool
}

// Executor runs the steps of a bootstrap plan in order.
type Executor struct {
	reg  *registry.Registry
	dec  config.Decoder
	opts Options
}

// New creates an executor over the given registry and step decoder.
func New(reg *registry.Registry, dec config.Decoder, opts Options) *Executor {
	return &Executor{reg: reg, dec: dec, opts: opts}
}

// Run executes the plan. It returns the first step failure, after recording
// the run receipt. Steps after a failure never execute and are recorded as
// skipped.
func (e *Executor) Run(ctx context.Context, model *config.Model) error {
	env := &registry.Env{
		Home:       e.opts.Home,
		PlanDir:    e.opts.PlanDir,
		OnConflict: e.opts.OnConflict,
	}
	vars := map[string]cty.Value{
		"home":     cty.StringVal(e.opts.Home),
		"plan_dir": cty.StringVal(e.opts.PlanDir),
	}

	if e.opts.DryRun {
		return e.dryRun(ctx, model, vars)
	}

	rcpt := receipt.New(e.opts.PlanPath)
	logger := ctxlog.FromContext(ctx).With("run_id", rcpt.RunID)
	ctx = ctxlog.WithLogger(ctx, logger)

	logger.Info("🚀 Starting bootstrap run.", "steps", len(model.Steps), "home", e.opts.Home)

	var runErr error
	for _, step := range model.Steps {
		if runErr != nil {
			rcpt.Record(receipt.StepRecord{Name: step.Name, Kind: step.Kind, Status: receipt.StatusSkipped, Duration: "0s"})
			continue
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			rcpt.Record(receipt.StepRecord{Name: step.Name, Kind: step.Kind, Status: receipt.StatusSkipped, Duration: "0s"})
			continue
		}

		rec := e.runStep(ctx, env, vars, step)
		rcpt.Record(rec)
		if rec.Status == receipt.StatusFailed {
			runErr = fmt.Errorf("step %s.%s failed: %s", step.Kind, step.Name, rec.Error)
		}
	}

	if runErr != nil {
		rcpt.Finish(receipt.StatusFailed)
	} else {
		rcpt.Finish(receipt.StatusOK)
	}
	// A receipt write failure must not mask the run's own outcome.
	if err := rcpt.Write(e.opts.Home); err != nil {
		logger.Warn("Failed to write run receipt.", "error", err)
	}

	if runErr != nil {
		logger.Error("❌ Bootstrap run failed.", "error", runErr)
		return runErr
	}
	logger.Info("🏁 Bootstrap run finished.")
	return nil
}

// runStep decodes and executes a single step, timing it.
func (e *Executor) runStep(ctx context.Context, env *registry.Env, vars map[string]cty.Value, step *config.Step) receipt.StepRecord {
	logger := ctxlog.FromContext(ctx).With("step", step.Kind+"."+step.Name)
	ctx = ctxlog.WithLogger(ctx, logger)

	rec := receipt.StepRecord{Name: step.Name, Kind: step.Kind}
	started := time.Now()

	logger.Info("▶️ Starting step.")
	result, err := e.execute(ctx, env, vars, step)
	rec.Duration = time.Since(started).Round(time.Millisecond).String()

	if err != nil {
		rec.Status = receipt.StatusFailed
		rec.Error = err.Error()
		logger.Error("❌ Step failed.", "error", err, "duration", rec.Duration)
		return rec
	}

	rec.Status = receipt.StatusOK
	for _, a := range result.Artifacts {
		rec.Artifacts = append(rec.Artifacts, receipt.Artifact{Path: a.Path, SHA256: a.SHA256, Skipped: a.Skipped})
	}
	logger.Info("✅ Finished step.", "duration", rec.Duration, "summary", result.Summary)
	return rec
}

// execute binds the step body to the handler's input struct and invokes it.
func (e *Executor) execute(ctx context.Context, env *registry.Env, vars map[string]cty.Value, step *config.Step) (*registry.Result, error) {
	handler, ok := e.reg.Step(step.Kind)
	if !ok {
		// ValidatePlan runs before execution, so this is a programmer error.
		return nil, fmt.Errorf("no handler registered for step kind '%s'", step.Kind)
	}

	input := handler.NewInput()
	if err := e.dec.DecodeStep(ctx, step, vars, input); err != nil {
		return nil, err
	}

	result, err := handler.Fn(ctx, env, input)
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = &registry.Result{}
	}
	return result, nil
}

// dryRun decodes every step to validate its arguments, logging what would
// run, without executing anything or writing a receipt.
func (e *Executor) dryRun(ctx context.Context, model *config.Model, vars map[string]cty.Value) error {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Dry run: validating plan without executing.", "steps", len(model.Steps))

	for i, step := range model.Steps {
		handler, ok := e.reg.Step(step.Kind)
		if !ok {
			return fmt.Errorf("no handler registered for step kind '%s'", step.Kind)
		}
		input := handler.NewInput()
		if err := e.dec.DecodeStep(ctx, step, vars, input); err != nil {
			return err
		}
		logger.Info("Would run step.", "order", i+1, "kind", step.Kind, "name", step.Name)
	}

	logger.Info("Dry run complete: plan is valid.")
	return nil
}

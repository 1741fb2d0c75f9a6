package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nk/detstrap/internal/ctxlog"
	"github.com/nk/detstrap/internal/executor"
)

// completionMessage is the single success line written to standard output.
const completionMessage = "Bootstrap complete. The object detection pipeline is ready to run."

// Run executes the loaded bootstrap plan.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	home, err := a.resolveHome()
	if err != nil {
		return err
	}

	planPath, err := filepath.Abs(a.config.PlanPath)
	if err != nil {
		return fmt.Errorf("failed to resolve plan path: %w", err)
	}

	exec := executor.New(a.registry, a.decoder, executor.Options{
		Home:       home,
		PlanDir:    filepath.Dir(planPath),
		PlanPath:   planPath,
		OnConflict: a.model.Settings.OnConflict,
		DryRun:     a.config.DryRun,
	})
	if err := exec.Run(ctx, a.model); err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}

	if a.config.DryRun {
		fmt.Fprintln(a.outW, "Plan is valid (dry run, nothing executed).")
	} else {
		fmt.Fprintln(a.outW, completionMessage)
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

// resolveHome picks the bootstrap home directory: the CLI override wins,
// then the plan's bootstrap block, then the invoking user's home. The
// directory must already exist.
func (a *App) resolveHome() (string, error) {
	home := a.config.Home
	if home == "" {
		home = a.model.Settings.Home
	}
	if home == "" {
		var err error
		home, err = os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine home directory: %w", err)
		}
	}

	info, err := os.Stat(home)
	if err != nil {
		return "", fmt.Errorf("bootstrap home %s is not usable: %w", home, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("bootstrap home %s is not a directory", home)
	}
	return home, nil
}

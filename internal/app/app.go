package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/nk/detstrap/internal/config"
	"github.com/nk/detstrap/internal/ctxlog"
	"github.com/nk/detstrap/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	model    *config.Model
	decoder  config.Decoder
	config   *Config
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and registry. Plan
// load or validation failures are critical startup errors and panic; the
// entrypoint recovers them into a clean exit.
func NewApp(outW, logW io.Writer, appConfig *Config, loader config.Loader, modules ...registry.Module) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, decoder, err := loader.Load(ctx, appConfig.PlanPath)
	if err != nil {
		panic(fmt.Errorf("failed to load plan: %w", err))
	}
	logger.Debug("Plan loaded and translated into unified model.", "steps", len(model.Steps))

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All step modules registered.", "count", len(modules), "kinds", reg.Kinds())

	// A plan naming an unknown step kind must fail before anything runs.
	if err := reg.ValidatePlan(ctx, model); err != nil {
		panic(err)
	}
	logger.Debug("Plan validation passed.")

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		model:    model,
		decoder:  decoder,
		config:   appConfig,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Model returns the loaded plan model. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}

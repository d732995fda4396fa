// Package app wires the customizer together: the settings document, the
// plugin system, and the apply pipeline that runs plugins against a
// customization before writing it out.
package app

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/oreui/customizer/internal/env"
	"github.com/oreui/customizer/internal/plugin"
	"github.com/oreui/customizer/internal/plugin/security"
	"github.com/oreui/customizer/internal/settings"
)

// App is the central coordinator for a customizer run. It owns the
// settings document and the plugin system, and drives the apply
// pipeline.
type App struct {
	// Core infrastructure
	logger  *slog.Logger
	metrics *Metrics

	// Customization state
	store *settings.Store

	// Extension components
	system *plugin.System

	// State
	running atomic.Bool

	// Options
	opts Options
}

// Options configures the application.
type Options struct {
	// PluginPaths are directories searched for plugins. Empty uses the
	// default locations.
	PluginPaths []string

	// SettingsPath is the path to the input settings document (JSON).
	// Empty starts from an empty document.
	SettingsPath string

	// OutputPath is where the applied document is written. Empty skips
	// the export.
	OutputPath string

	// Version is the customizer version plugins observe.
	Version string

	// HostType is the kind of host running the customizer.
	HostType env.HostType

	// Limits bound each plugin runtime. Zero means the defaults.
	Limits security.ResourceLimits

	// Logger receives application and plugin diagnostics. Nil falls
	// back to slog.Default.
	Logger *slog.Logger
}

// New creates a new App with the given options.
func New(opts Options) (*App, error) {
	app := &App{
		opts: opts,
	}

	if err := app.bootstrap(); err != nil {
		return nil, err
	}

	return app, nil
}

// bootstrap initializes all components in dependency order.
func (a *App) bootstrap() error {
	// 1. Logger and metrics
	a.logger = a.opts.Logger
	if a.logger == nil {
		a.logger = slog.Default()
	}
	a.metrics = NewMetrics()

	// 2. Settings document
	if a.opts.SettingsPath != "" {
		store, err := settings.FromFile(a.opts.SettingsPath)
		if err != nil {
			return &InitError{Component: "settings", Err: err}
		}
		a.store = store
	} else {
		a.store = settings.Default()
	}

	// 3. Plugin system
	version := a.opts.Version
	if version == "" {
		version = "0.0.0"
	}
	hostType := a.opts.HostType
	if hostType == "" {
		hostType = env.HostCLI
	}

	systemConfig := plugin.SystemConfig{
		ManagerConfig: plugin.ManagerConfig{
			PluginPaths:  a.opts.PluginPaths,
			AutoActivate: true,
			Limits:       a.opts.Limits,
			Logger:       a.logger,
		},
		Version:  version,
		HostType: hostType,
		Settings: a.store,
	}
	if len(systemConfig.ManagerConfig.PluginPaths) == 0 {
		systemConfig.ManagerConfig.PluginPaths = plugin.DefaultPluginPaths()
	}

	a.system = plugin.NewSystem(systemConfig)
	if err := a.system.Initialize(); err != nil {
		return &InitError{Component: "plugin system", Err: err}
	}

	// 4. Metrics follow plugin events
	a.system.Subscribe(func(e plugin.ManagerEvent) {
		switch e.Type {
		case plugin.EventPluginLoaded:
			a.metrics.RecordPluginLoaded()
		case plugin.EventPluginError:
			a.metrics.RecordPluginError()
		}
	})

	return nil
}

// Shutdown unloads all plugins and releases the plugin system.
func (a *App) Shutdown(ctx context.Context) error {
	return a.system.Shutdown(ctx)
}

// IsRunning returns true while an apply pass is in progress.
func (a *App) IsRunning() bool {
	return a.running.Load()
}

// System returns the plugin system.
func (a *App) System() *plugin.System {
	return a.system
}

// Settings returns the settings document.
func (a *App) Settings() *settings.Store {
	return a.store
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Metrics returns the application metrics.
func (a *App) Metrics() *Metrics {
	return a.metrics
}

// InitError represents an initialization error.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return "init " + e.Component + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/oreui/customizer/internal/plugin"
)

// Report summarizes an apply pass.
type Report struct {
	// Discovered is the number of plugins found on the search paths.
	Discovered int

	// Loaded is the number of plugins that loaded successfully.
	Loaded int

	// Active is the number of plugins that were activated.
	Active int

	// OutputPath is where the applied document was written, if anywhere.
	OutputPath string

	// Duration is the wall time of the whole pass.
	Duration time.Duration

	// Errors holds the plugin failures the pass tolerated.
	Errors []error
}

// Failed reports whether any plugin failed during the pass.
func (r *Report) Failed() bool {
	return len(r.Errors) > 0
}

// Apply runs the full customization pass: load and activate plugins,
// seed their contributed setting defaults, dispatch beforeApply, seal
// the settings document, dispatch afterApply, and export the result.
//
// Plugin failures do not abort the pass. They are collected into the
// report so the remaining plugins still run. Only infrastructure
// failures, such as an unwritable output path, return an error.
func (a *App) Apply(ctx context.Context) (*Report, error) {
	if !a.running.CompareAndSwap(false, true) {
		return nil, ErrApplyInProgress
	}
	defer a.running.Store(false)

	timer := StartTimer()
	report := &Report{}
	failures := NewErrorList()

	// 1. Discover and load every plugin on the search paths.
	infos, err := a.system.Discover()
	if err != nil {
		return nil, &OperationError{Op: "discover plugins", Err: err}
	}
	report.Discovered = len(infos)

	if err := a.system.LoadAll(ctx); err != nil {
		failures.Add(err)
		a.logger.Warn("some plugins failed to load", "error", err)
	}
	report.Loaded = a.system.PluginCount()
	report.Active = a.system.ActivePluginCount()

	a.logger.Info("plugins ready",
		"discovered", report.Discovered,
		"loaded", report.Loaded,
		"active", report.Active)

	// 2. Seed contributed setting defaults. Host values win.
	if err := a.seedSettingDefaults(); err != nil {
		failures.Add(err)
	}

	// 3. beforeApply: the document is still mutable.
	a.dispatch(ctx, plugin.ExtBeforeApply, failures)

	// 4. The customization takes effect. No further writes.
	a.store.Seal()

	// 5. afterApply: plugins observe the sealed document.
	a.dispatch(ctx, plugin.ExtAfterApply, failures)

	// 6. Export the applied document.
	if a.opts.OutputPath != "" {
		if err := a.exportDocument(a.opts.OutputPath); err != nil {
			return nil, &OperationError{Op: "write output", Target: a.opts.OutputPath, Err: err}
		}
		report.OutputPath = a.opts.OutputPath
	}

	report.Duration = timer.Elapsed()
	report.Errors = failures.Errors()

	a.logger.Info("apply complete",
		"duration", report.Duration,
		"failures", len(report.Errors))

	return report, nil
}

// dispatch invokes one extension point across all active plugins and
// records the outcome.
func (a *App) dispatch(ctx context.Context, point plugin.ExtensionPoint, failures *ErrorList) {
	t := StartTimer()
	err := a.system.InvokeAll(ctx, point)
	a.metrics.RecordDispatch(t.Stop())
	if err != nil {
		failures.Add(err)
		a.logger.Warn("extension point reported errors", "point", string(point), "error", err)
	}
}

// seedSettingDefaults writes each loaded plugin's contributed setting
// defaults into the document. Paths already present are left alone, so
// host settings always take precedence over plugin defaults.
func (a *App) seedSettingDefaults() error {
	seedErrs := NewErrorList()
	for _, host := range a.system.ListPlugins() {
		m := host.Manifest()
		for path, value := range m.AllSettingDefaults() {
			if a.store.Get(path).Exists() {
				continue
			}
			if err := a.store.Set(path, value); err != nil {
				seedErrs.Add(fmt.Errorf("seed %s.%s: %w", m.Name, path, err))
			}
		}
	}
	return seedErrs.AsError()
}

// exportDocument writes the settings document to path as indented JSON.
func (a *App) exportDocument(path string) error {
	raw := a.store.Raw()

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		// The store guards its document, so this should not happen.
		// Fall back to the raw bytes rather than fail the export.
		buf.Reset()
		buf.Write(raw)
	}
	buf.WriteByte('\n')

	return os.WriteFile(path, buf.Bytes(), 0644)
}

// List discovers plugins without loading them.
func (a *App) List() ([]*plugin.PluginInfo, error) {
	return a.system.Discover()
}

// Describe returns the manifest for a named plugin without loading it.
func (a *App) Describe(name string) (*plugin.Manifest, error) {
	return a.system.Manager().Loader().LoadManifestOnly(name)
}

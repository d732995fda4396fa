package app

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/oreui/customizer/internal/env"
)

// writePlugin creates a directory plugin with a manifest and script.
func writePlugin(t *testing.T, root, name, manifest, script string) string {
	t.Helper()

	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "plugin.json"), []byte(manifest), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.js"), []byte(script), 0644); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return dir
}

func newTestApp(t *testing.T, opts Options) *App {
	t.Helper()

	if opts.Logger == nil {
		opts.Logger = NullLogger()
	}
	a, err := New(opts)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() {
		_ = a.Shutdown(context.Background())
	})
	return a
}

func TestApp_Apply(t *testing.T) {
	pluginRoot := t.TempDir()
	writePlugin(t, pluginRoot, "greeter",
		`{
			"name": "greeter",
			"version": "1.0.0",
			"main": "index.js",
			"settingsSchema": {
				"greeter.message": {"type": "string", "default": "hello"}
			}
		}`,
		`var phase = "";
function beforeApply() { phase += "before"; }
function afterApply() { phase += ",after"; }`)

	outPath := filepath.Join(t.TempDir(), "applied.json")
	a := newTestApp(t, Options{
		PluginPaths: []string{pluginRoot},
		OutputPath:  outPath,
		Version:     "2.0.0",
		HostType:    env.HostWebsite,
	})

	report, err := a.Apply(context.Background())
	if err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}

	if report.Discovered != 1 {
		t.Errorf("expected 1 discovered, got %d", report.Discovered)
	}
	if report.Loaded != 1 {
		t.Errorf("expected 1 loaded, got %d", report.Loaded)
	}
	if report.Active != 1 {
		t.Errorf("expected 1 active, got %d", report.Active)
	}
	if report.Failed() {
		t.Errorf("expected clean pass, got errors: %v", report.Errors)
	}
	if report.OutputPath != outPath {
		t.Errorf("expected output path %s, got %s", outPath, report.OutputPath)
	}

	// Both extension points ran in order
	host, ok := a.System().GetPlugin("greeter")
	if !ok {
		t.Fatal("expected greeter to be loaded")
	}
	v, err := host.Eval("phase")
	if err != nil {
		t.Fatalf("Eval() failed: %v", err)
	}
	if v.String() != "before,after" {
		t.Errorf("expected 'before,after', got '%s'", v.String())
	}

	// Contributed default was seeded and the document sealed
	if got := a.Settings().Get("greeter.message").String(); got != "hello" {
		t.Errorf("expected seeded default 'hello', got '%s'", got)
	}
	if !a.Settings().Sealed() {
		t.Error("expected settings to be sealed after apply")
	}
}

func TestApp_Apply_WritesOutput(t *testing.T) {
	pluginRoot := t.TempDir()
	writePlugin(t, pluginRoot, "themer",
		`{
			"name": "themer",
			"version": "1.0.0",
			"main": "index.js",
			"settingsSchema": {
				"ui.accent": {"type": "string", "default": "#ff8800"}
			}
		}`,
		`function beforeApply() {}`)

	outPath := filepath.Join(t.TempDir(), "out.json")
	a := newTestApp(t, Options{
		PluginPaths: []string{pluginRoot},
		OutputPath:  outPath,
	})

	if _, err := a.Apply(context.Background()); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if !json.Valid(data) {
		t.Errorf("expected valid JSON output, got: %s", data)
	}
	if !strings.Contains(string(data), `"accent": "#ff8800"`) {
		t.Errorf("expected seeded value in output, got: %s", data)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("expected trailing newline in output")
	}
}

func TestApp_Apply_HostValuesWin(t *testing.T) {
	pluginRoot := t.TempDir()
	writePlugin(t, pluginRoot, "greeter",
		`{
			"name": "greeter",
			"version": "1.0.0",
			"main": "index.js",
			"settingsSchema": {
				"greeter.message": {"type": "string", "default": "hello"}
			}
		}`,
		`function beforeApply() {}`)

	settingsPath := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(settingsPath, []byte(`{"greeter":{"message":"howdy"}}`), 0644); err != nil {
		t.Fatalf("failed to write settings: %v", err)
	}

	a := newTestApp(t, Options{
		PluginPaths:  []string{pluginRoot},
		SettingsPath: settingsPath,
	})

	if _, err := a.Apply(context.Background()); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}

	if got := a.Settings().Get("greeter.message").String(); got != "howdy" {
		t.Errorf("expected host value 'howdy' to win over default, got '%s'", got)
	}
}

func TestApp_Apply_PluginFailureTolerated(t *testing.T) {
	pluginRoot := t.TempDir()
	writePlugin(t, pluginRoot, "bad",
		`{"name": "bad", "version": "1.0.0", "main": "index.js"}`,
		`function beforeApply() { throw new Error("boom"); }`)
	writePlugin(t, pluginRoot, "good",
		`{"name": "good", "version": "1.0.0", "main": "index.js"}`,
		`var ran = false;
function beforeApply() { ran = true; }`)

	a := newTestApp(t, Options{
		PluginPaths: []string{pluginRoot},
	})

	report, err := a.Apply(context.Background())
	if err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}

	if !report.Failed() {
		t.Error("expected report to record the failure")
	}

	// The healthy plugin still ran
	host, ok := a.System().GetPlugin("good")
	if !ok {
		t.Fatal("expected good plugin to be loaded")
	}
	v, err := host.Eval("ran")
	if err != nil {
		t.Fatalf("Eval() failed: %v", err)
	}
	if !v.ToBoolean() {
		t.Error("expected good plugin to run despite bad plugin failing")
	}

	// The pass still completed
	if !a.Settings().Sealed() {
		t.Error("expected settings to be sealed despite plugin failure")
	}
}

func TestApp_Apply_NoPlugins(t *testing.T) {
	a := newTestApp(t, Options{
		PluginPaths: []string{t.TempDir()},
	})

	report, err := a.Apply(context.Background())
	if err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}

	if report.Discovered != 0 || report.Loaded != 0 {
		t.Errorf("expected empty pass, got discovered=%d loaded=%d", report.Discovered, report.Loaded)
	}
	if !a.Settings().Sealed() {
		t.Error("expected settings to be sealed even with no plugins")
	}
}

func TestApp_Apply_InProgress(t *testing.T) {
	a := newTestApp(t, Options{
		PluginPaths: []string{t.TempDir()},
	})

	a.running.Store(true)
	defer a.running.Store(false)

	_, err := a.Apply(context.Background())
	if !errors.Is(err, ErrApplyInProgress) {
		t.Errorf("expected ErrApplyInProgress, got %v", err)
	}
}

func TestApp_Apply_OutputUnwritable(t *testing.T) {
	a := newTestApp(t, Options{
		PluginPaths: []string{t.TempDir()},
		OutputPath:  filepath.Join(t.TempDir(), "missing", "nested", "out.json"),
	})

	_, err := a.Apply(context.Background())
	if err == nil {
		t.Fatal("expected error for unwritable output path")
	}

	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Errorf("expected OperationError, got %T", err)
	}
}

func TestApp_Apply_Metrics(t *testing.T) {
	pluginRoot := t.TempDir()
	writePlugin(t, pluginRoot, "counted",
		`{"name": "counted", "version": "1.0.0", "main": "index.js"}`,
		`function beforeApply() {}`)

	a := newTestApp(t, Options{
		PluginPaths: []string{pluginRoot},
	})

	if _, err := a.Apply(context.Background()); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}

	snapshot := a.Metrics().Snapshot()
	if snapshot.PluginsLoaded != 1 {
		t.Errorf("expected 1 plugin loaded, got %d", snapshot.PluginsLoaded)
	}
	if snapshot.DispatchCount != 2 {
		t.Errorf("expected 2 dispatches, got %d", snapshot.DispatchCount)
	}
}

func TestApp_List(t *testing.T) {
	pluginRoot := t.TempDir()
	writePlugin(t, pluginRoot, "plugin-a",
		`{"name": "plugin-a", "version": "1.0.0", "main": "index.js"}`,
		`function beforeApply() {}`)
	writePlugin(t, pluginRoot, "plugin-b",
		`{"name": "plugin-b", "version": "1.0.0", "main": "index.js"}`,
		`function beforeApply() {}`)

	a := newTestApp(t, Options{
		PluginPaths: []string{pluginRoot},
	})

	infos, err := a.List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(infos) != 2 {
		t.Errorf("expected 2 plugins, got %d", len(infos))
	}

	// Listing must not load anything
	if a.System().PluginCount() != 0 {
		t.Errorf("expected 0 loaded plugins after List(), got %d", a.System().PluginCount())
	}
}

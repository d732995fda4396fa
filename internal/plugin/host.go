package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/dop251/goja"

	"github.com/oreui/customizer/internal/archive"
	"github.com/oreui/customizer/internal/plugin/api"
	"github.com/oreui/customizer/internal/plugin/js"
	"github.com/oreui/customizer/internal/plugin/security"
)

// The environment handed to each invocation is what the api package
// binds as pluginEnv.
var _ api.PluginEnvironment = (*Environment)(nil)

// Host manages a single plugin's JavaScript runtime and lifecycle.
type Host struct {
	mu sync.RWMutex

	// Identity
	name     string
	manifest *Manifest

	// JavaScript runtime
	state *js.State

	// Plugin content; nil for single-file plugins
	arc *archive.Archive

	// State
	pluginState State
	err         error

	// Wiring
	registry *api.Registry
	logger   *slog.Logger

	// Counters
	invocations int

	// Options
	limits        security.ResourceLimits
	engineVersion *semver.Version
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithHostLimits sets all resource limits for the plugin.
func WithHostLimits(limits security.ResourceLimits) HostOption {
	return func(h *Host) {
		h.limits = limits
	}
}

// WithHostMemoryLimit sets the memory limit for the plugin.
func WithHostMemoryLimit(bytes int64) HostOption {
	return func(h *Host) {
		h.limits.MemoryLimit = bytes
	}
}

// WithHostExecutionTimeout sets the execution timeout for plugin calls.
func WithHostExecutionTimeout(d time.Duration) HostOption {
	return func(h *Host) {
		h.limits.ExecutionTimeout = d
	}
}

// WithHostRegistry sets the API registry bound into the plugin's runtime
// at load.
func WithHostRegistry(r *api.Registry) HostOption {
	return func(h *Host) {
		h.registry = r
	}
}

// WithHostEngineVersion sets the customizer version checked against the
// manifest's minEngineVersion at load. Nil skips the check.
func WithHostEngineVersion(v *semver.Version) HostOption {
	return func(h *Host) {
		h.engineVersion = v
	}
}

// WithHostLogger sets the logger receiving the plugin's console output.
func WithHostLogger(logger *slog.Logger) HostOption {
	return func(h *Host) {
		h.logger = logger
	}
}

// NewHost creates a new plugin host for the given manifest.
func NewHost(manifest *Manifest, opts ...HostOption) (*Host, error) {
	if manifest == nil {
		return nil, ErrNilManifest
	}

	h := &Host{
		name:        manifest.Name,
		manifest:    manifest,
		pluginState: StateUnloaded,
		logger:      slog.Default(),
		limits:      security.DefaultResourceLimits(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h, nil
}

// Name returns the plugin name.
func (h *Host) Name() string {
	return h.name
}

// Manifest returns the plugin manifest.
func (h *Host) Manifest() *Manifest {
	return h.manifest
}

// State returns the current plugin state.
func (h *Host) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.pluginState
}

// Error returns any error that occurred.
func (h *Host) Error() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// Load materializes the plugin's content, builds the JavaScript runtime,
// binds the API modules, and runs the plugin's entry point.
func (h *Host) Load(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pluginState != StateUnloaded {
		return ErrAlreadyLoaded
	}

	if h.engineVersion != nil && !h.manifest.SupportsEngine(h.engineVersion) {
		err := fmt.Errorf("plugin %q requires engine %s, running %s: %w",
			h.name, h.manifest.MinEngineVersion, h.engineVersion, ErrEngineIncompatible)
		h.pluginState = StateError
		h.err = err
		return err
	}

	src, err := h.loadSource()
	if err != nil {
		h.pluginState = StateError
		h.err = err
		return err
	}

	state, err := js.NewState(
		js.WithMemoryLimit(h.limits.MemoryLimit),
		js.WithExecutionTimeout(h.limits.ExecutionTimeout),
		js.WithLogger(h.logger.With("plugin", h.name)),
	)
	if err != nil {
		h.arc = nil
		h.pluginState = StateError
		h.err = err
		return err
	}
	h.state = state

	// Capability grants: everything the manifest declares, plus implicit
	// read access to the plugin's own archive.
	for _, c := range h.manifest.Capabilities {
		state.Sandbox().Grant(string(c))
	}
	if h.manifest.Kind().HasArchive() {
		state.Sandbox().Grant(string(security.CapabilityArchiveRead))
	}

	// API modules go in before plugin code runs, so top-level statements
	// already see the customizer globals.
	if h.registry != nil {
		checker := security.NewPermissionChecker(h.name)
		checker.GrantAll(h.manifest.Capabilities)
		if h.manifest.Kind().HasArchive() {
			checker.Grant(security.CapabilityArchiveRead)
		}
		if err := h.registry.InjectAll(state.Runtime(), checker); err != nil {
			h.closeState()
			h.pluginState = StateError
			h.err = err
			return err
		}
	}

	if _, err := state.RunScript(h.manifest.Main, src); err != nil {
		h.closeState()
		h.pluginState = StateError
		h.err = fmt.Errorf("failed to load plugin: %w", err)
		return h.err
	}

	h.pluginState = StateLoaded
	h.err = nil
	return nil
}

// loadSource builds the plugin's file tree for its kind and returns the
// entry point script.
func (h *Host) loadSource() (string, error) {
	switch h.manifest.Kind() {
	case KindSingleFile:
		data, err := os.ReadFile(h.manifest.MainPath())
		if err != nil {
			return "", fmt.Errorf("failed to read plugin script: %w", err)
		}
		return string(data), nil

	case KindDirectory:
		arc, err := archive.FromDir(h.manifest.Path(), archive.WithMaxEntrySize(h.limits.MaxEntrySize))
		if err != nil {
			return "", fmt.Errorf("failed to load plugin directory: %w", err)
		}
		h.arc = arc

	case KindArchive:
		arc, err := archive.FromZipFile(h.manifest.Path(), archive.WithMaxEntrySize(h.limits.MaxEntrySize))
		if err != nil {
			return "", fmt.Errorf("failed to open plugin package: %w", err)
		}
		h.arc = arc

	default:
		return "", fmt.Errorf("%w: unrecognized plugin kind", ErrInvalidPlugin)
	}

	data, err := h.arc.ReadFile(filepath.ToSlash(h.manifest.Main))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNoEntryPoint, h.manifest.Main)
	}
	return string(data), nil
}

func (h *Host) closeState() {
	if h.state != nil {
		_ = h.state.Close()
		h.state = nil
	}
	h.arc = nil
}

// Activate calls the plugin's activate function, if it defines one.
func (h *Host) Activate(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pluginState != StateLoaded {
		return ErrNotLoaded
	}

	h.pluginState = StateActivating

	if err := h.callOptional("activate"); err != nil {
		h.pluginState = StateError
		h.err = err
		return err
	}

	h.pluginState = StateActive
	h.err = nil
	return nil
}

// Deactivate calls the plugin's deactivate function and returns it to
// the loaded state.
func (h *Host) Deactivate(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pluginState != StateActive {
		return nil
	}

	h.pluginState = StateDeactivating

	if err := h.callOptional("deactivate"); err != nil {
		// Keep going; the plugin still ends up deactivated.
		h.err = err
	}

	h.pluginState = StateLoaded
	return nil
}

// callOptional calls a global plugin function if it is defined.
func (h *Host) callOptional(name string) error {
	if !h.state.HasFunction(name) {
		return nil
	}
	_, err := h.state.Call(name)
	return err
}

// Invoke runs the plugin's handler for the given extension point. A
// plugin that does not define the handler is skipped without error. Each
// invocation binds a fresh environment as the pluginEnv global for the
// duration of the call.
func (h *Host) Invoke(ctx context.Context, point ExtensionPoint) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pluginState != StateActive {
		return ErrNotActive
	}

	fn := string(point)
	if !h.state.HasFunction(fn) {
		return nil
	}

	env, err := NewEnvironment(h.manifest, h.arc, WithWriteLimit(h.limits.MaxOutputSize))
	if err != nil {
		return err
	}

	mod := api.NewPluginEnvModule(env, h.manifest)
	if err := mod.Register(h.state.Runtime()); err != nil {
		return fmt.Errorf("failed to bind plugin environment: %w", err)
	}
	defer func() { _ = h.state.DeleteGlobal("pluginEnv") }()

	h.invocations++
	if _, err := h.state.Call(fn); err != nil {
		return fmt.Errorf("%s: %w", point, err)
	}
	return nil
}

// Unload closes the JavaScript runtime and releases the plugin's
// content.
func (h *Host) Unload(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pluginState == StateUnloaded {
		return nil
	}

	// Deactivate first if active
	if h.pluginState == StateActive {
		h.pluginState = StateDeactivating
		_ = h.callOptional("deactivate")
	}

	h.closeState()
	h.pluginState = StateUnloaded
	h.err = nil
	h.invocations = 0
	return nil
}

// Reload unloads and reloads the plugin.
func (h *Host) Reload(ctx context.Context) error {
	wasActive := h.State() == StateActive

	if err := h.Unload(ctx); err != nil {
		return err
	}

	if err := h.Load(ctx); err != nil {
		return err
	}

	if wasActive {
		return h.Activate(ctx)
	}

	return nil
}

// Call calls a global function in the plugin.
func (h *Host) Call(fn string, args ...any) (goja.Value, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.state == nil {
		return nil, ErrNotLoaded
	}
	return h.state.Call(fn, args...)
}

// HasFunction returns true if the plugin defines the named global
// function.
func (h *Host) HasFunction(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.state == nil {
		return false
	}
	return h.state.HasFunction(name)
}

// Eval executes JavaScript source in the plugin's runtime.
func (h *Host) Eval(src string) (goja.Value, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.state == nil {
		return nil, ErrNotLoaded
	}
	return h.state.RunString(src)
}

// Stats returns runtime statistics for the plugin.
func (h *Host) Stats() HostStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return HostStats{
		Name:        h.name,
		State:       h.pluginState,
		Kind:        h.manifest.Kind(),
		Invocations: h.invocations,
		HasError:    h.err != nil,
	}
}

// HostStats contains runtime statistics for a plugin host.
type HostStats struct {
	Name        string
	State       State
	Kind        PluginKind
	Invocations int
	HasError    bool
}

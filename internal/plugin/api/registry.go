package api

import (
	"fmt"
	"sync"

	"github.com/dop251/goja"

	"github.com/oreui/customizer/internal/plugin/security"
	"github.com/oreui/customizer/internal/settings"
)

// Module represents a host API module that can be bound into a plugin's
// JavaScript runtime. Each module installs one or more ambient globals.
type Module interface {
	// Name returns the global binding name (e.g., "customizerEnv").
	Name() string

	// RequiredCapability returns the capability required to use this module.
	// Returns empty string if no capability is required.
	RequiredCapability() security.Capability

	// Register binds the module into the JavaScript runtime. It runs
	// before any plugin code, so direct runtime access is safe here.
	Register(vm *goja.Runtime) error
}

// Registry manages API modules and their registration.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
}

// NewRegistry creates a new API registry.
func NewRegistry() *Registry {
	return &Registry{
		modules: make(map[string]Module),
	}
}

// Register adds a module to the registry.
func (r *Registry) Register(mod Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[mod.Name()]; exists {
		return fmt.Errorf("module %q already registered", mod.Name())
	}

	r.modules[mod.Name()] = mod
	return nil
}

// Get returns a module by name.
func (r *Registry) Get(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mod, ok := r.modules[name]
	return mod, ok
}

// List returns all registered module names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	return names
}

// InjectAll binds all modules into the runtime, checking capabilities.
// Modules whose required capability is not granted are skipped, not
// errors: the plugin simply never sees that global. If checker is nil,
// only modules with no required capability are bound.
func (r *Registry) InjectAll(vm *goja.Runtime, checker *security.PermissionChecker) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, mod := range r.modules {
		reqCap := mod.RequiredCapability()
		if reqCap != "" {
			if checker == nil || !checker.HasCapability(reqCap) {
				continue
			}
		}

		if err := mod.Register(vm); err != nil {
			return fmt.Errorf("failed to register module %q: %w", name, err)
		}
	}

	return nil
}

// Inject binds specific modules into the runtime. Unlike InjectAll, this
// returns an error if a named module requires a capability the checker
// doesn't have.
func (r *Registry) Inject(vm *goja.Runtime, checker *security.PermissionChecker, moduleNames ...string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range moduleNames {
		mod, ok := r.modules[name]
		if !ok {
			return fmt.Errorf("module %q not found", name)
		}

		reqCap := mod.RequiredCapability()
		if reqCap != "" {
			if checker == nil {
				return fmt.Errorf("plugin lacks capability %q for module %q (no permission checker)", reqCap, name)
			}
			if err := checker.CheckCapability(reqCap); err != nil {
				return fmt.Errorf("module %q: %w", name, err)
			}
		}

		if err := mod.Register(vm); err != nil {
			return fmt.Errorf("failed to register module %q: %w", name, err)
		}
	}

	return nil
}

// DefaultRegistry creates a registry with all standard modules registered.
func DefaultRegistry(ctx *Context) (*Registry, error) {
	if ctx == nil {
		return nil, fmt.Errorf("api context is required")
	}

	r := NewRegistry()

	modules := []Module{
		NewEnvModule(ctx),
		NewSettingsModule(ctx),
		NewUtilModule(),
	}

	for _, mod := range modules {
		if err := r.Register(mod); err != nil {
			return nil, fmt.Errorf("failed to register module %q: %w", mod.Name(), err)
		}
	}

	return r, nil
}

// Context provides access to host state for API modules. It is shared by
// every plugin runtime; per-invocation state (the plugin environment) is
// bound separately by the host.
type Context struct {
	// Version is the customizer's semantic version string.
	Version string

	// HostType is the host flavor: "Website", "App", or "CLI".
	HostType string

	// Settings is the live settings document. Plugins observe whatever
	// value is current at the time they read it.
	Settings *settings.Store
}

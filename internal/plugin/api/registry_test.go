package api

import (
	"testing"

	"github.com/dop251/goja"

	"github.com/oreui/customizer/internal/plugin/security"
	"github.com/oreui/customizer/internal/settings"
)

// mockModule is a simple test module.
type mockModule struct {
	name       string
	capability security.Capability
	registered bool
}

func (m *mockModule) Name() string                            { return m.name }
func (m *mockModule) RequiredCapability() security.Capability { return m.capability }
func (m *mockModule) Register(vm *goja.Runtime) error {
	m.registered = true
	return vm.Set("mock_"+m.name, "mock")
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry returned nil")
	}
	if r.modules == nil {
		t.Error("modules map is nil")
	}
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()

	mod := &mockModule{name: "test"}
	err := r.Register(mod)
	if err != nil {
		t.Errorf("Register error = %v", err)
	}

	// Duplicate registration should fail
	err = r.Register(mod)
	if err == nil {
		t.Error("duplicate Register should return error")
	}
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry()
	mod := &mockModule{name: "test"}
	r.Register(mod)

	got, ok := r.Get("test")
	if !ok {
		t.Error("Get returned ok = false")
	}
	if got != mod {
		t.Error("Get returned wrong module")
	}

	_, ok = r.Get("nonexistent")
	if ok {
		t.Error("Get for nonexistent should return ok = false")
	}
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockModule{name: "mod1"})
	r.Register(&mockModule{name: "mod2"})

	names := r.List()
	if len(names) != 2 {
		t.Errorf("List returned %d items, want 2", len(names))
	}
}

func TestRegistryInjectAll(t *testing.T) {
	r := NewRegistry()
	mod1 := &mockModule{name: "test1", capability: ""}
	mod2 := &mockModule{name: "test2", capability: security.CapabilitySettingsRead}
	r.Register(mod1)
	r.Register(mod2)

	vm := goja.New()

	// Checker without the settings.read capability
	checker := security.NewPermissionChecker("test")

	err := r.InjectAll(vm, checker)
	if err != nil {
		t.Errorf("InjectAll error = %v", err)
	}

	if !mod1.registered {
		t.Error("mod1 should be registered")
	}
	if mod2.registered {
		t.Error("mod2 should not be registered without settings.read")
	}
}

func TestRegistryInjectAllWithCapability(t *testing.T) {
	r := NewRegistry()
	mod := &mockModule{name: "test", capability: security.CapabilitySettingsRead}
	r.Register(mod)

	vm := goja.New()

	checker := security.NewPermissionChecker("test")
	checker.Grant(security.CapabilitySettingsRead)

	if err := r.InjectAll(vm, checker); err != nil {
		t.Errorf("InjectAll error = %v", err)
	}
	if !mod.registered {
		t.Error("module should be registered with capability granted")
	}
}

func TestRegistryInjectAllNilChecker(t *testing.T) {
	r := NewRegistry()
	free := &mockModule{name: "free"}
	gated := &mockModule{name: "gated", capability: security.CapabilitySettingsRead}
	r.Register(free)
	r.Register(gated)

	vm := goja.New()

	if err := r.InjectAll(vm, nil); err != nil {
		t.Errorf("InjectAll error = %v", err)
	}
	if !free.registered {
		t.Error("capability-free module should be registered")
	}
	if gated.registered {
		t.Error("gated module should be skipped with nil checker")
	}
}

func TestRegistryInject(t *testing.T) {
	r := NewRegistry()
	mod := &mockModule{name: "test"}
	r.Register(mod)

	vm := goja.New()

	if err := r.Inject(vm, nil, "test"); err != nil {
		t.Errorf("Inject error = %v", err)
	}
	if !mod.registered {
		t.Error("module should be registered")
	}

	if err := r.Inject(vm, nil, "missing"); err == nil {
		t.Error("Inject of unknown module should return error")
	}
}

func TestRegistryInjectMissingCapability(t *testing.T) {
	r := NewRegistry()
	mod := &mockModule{name: "gated", capability: security.CapabilitySettingsRead}
	r.Register(mod)

	vm := goja.New()

	checker := security.NewPermissionChecker("test")
	if err := r.Inject(vm, checker, "gated"); err == nil {
		t.Error("Inject without capability should return error")
	}
	if mod.registered {
		t.Error("module should not be registered without capability")
	}

	if err := r.Inject(vm, nil, "gated"); err == nil {
		t.Error("Inject with nil checker should return error for gated module")
	}
}

func TestDefaultRegistry(t *testing.T) {
	ctx := &Context{
		Version:  "2.1.0",
		HostType: "Website",
		Settings: settings.Default(),
	}

	r, err := DefaultRegistry(ctx)
	if err != nil {
		t.Fatalf("DefaultRegistry error = %v", err)
	}

	for _, name := range []string{"customizerEnv", "customizerSettings", "customizerUtil"} {
		if _, ok := r.Get(name); !ok {
			t.Errorf("DefaultRegistry missing module %q", name)
		}
	}
}

func TestDefaultRegistryNilContext(t *testing.T) {
	if _, err := DefaultRegistry(nil); err == nil {
		t.Error("DefaultRegistry(nil) should return error")
	}
}

package api

import (
	"encoding/json"

	"github.com/dop251/goja"

	"github.com/oreui/customizer/internal/plugin/js"
	"github.com/oreui/customizer/internal/plugin/security"
)

// envModule exposes the customizerEnv ambient global: the customizer's
// version, the host flavor it is running under, and the settings document.
type envModule struct {
	ctx *Context
}

// NewEnvModule creates the customizerEnv API module.
func NewEnvModule(ctx *Context) Module {
	return &envModule{ctx: ctx}
}

func (m *envModule) Name() string {
	return "customizerEnv"
}

func (m *envModule) RequiredCapability() security.Capability {
	return ""
}

// Register binds the customizerEnv global:
//
//	customizerEnv.version   -- semantic version string
//	customizerEnv.type      -- "Website" | "App" | "CLI"
//	customizerEnv.settings  -- frozen snapshot of the settings document
//
// version and type are fixed for the lifetime of the runtime. settings is
// an accessor: each read takes a fresh snapshot of the document, so a
// plugin invoked after the host changed a setting sees the new value. The
// snapshot itself is deep-frozen; writes to it are silently discarded.
func (m *envModule) Register(vm *goja.Runtime) error {
	bridge, err := js.NewBridge(vm)
	if err != nil {
		return err
	}

	obj := vm.NewObject()
	if err := obj.Set("version", m.ctx.Version); err != nil {
		return err
	}
	if err := obj.Set("type", m.ctx.HostType); err != nil {
		return err
	}

	getter := vm.ToValue(func(call goja.FunctionCall) goja.Value {
		raw := []byte("{}")
		if m.ctx.Settings != nil {
			raw = m.ctx.Settings.Raw()
		}
		snap, err := bridge.FrozenObject(json.RawMessage(raw))
		if err != nil {
			bridge.Throw(err)
		}
		return snap
	})
	if err := obj.DefineAccessorProperty("settings", getter, goja.Undefined(), goja.FLAG_FALSE, goja.FLAG_TRUE); err != nil {
		return err
	}

	if _, err := bridge.Freeze(obj); err != nil {
		return err
	}

	return vm.Set("customizerEnv", obj)
}

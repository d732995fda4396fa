package api

import (
	"encoding/json"
	"errors"

	"github.com/dop251/goja"

	"github.com/oreui/customizer/internal/plugin/js"
	"github.com/oreui/customizer/internal/plugin/security"
	"github.com/oreui/customizer/internal/settings"
)

// settingsModule exposes typed access to the settings document under the
// customizerSettings global. Unlike customizerEnv.settings, which hands a
// plugin the whole document, this module reads individual paths, so it is
// gated behind the settings.read capability.
type settingsModule struct {
	ctx *Context
}

// NewSettingsModule creates the customizerSettings API module.
func NewSettingsModule(ctx *Context) Module {
	return &settingsModule{ctx: ctx}
}

func (m *settingsModule) Name() string {
	return "customizerSettings"
}

func (m *settingsModule) RequiredCapability() security.Capability {
	return security.CapabilitySettingsRead
}

// Register binds the customizerSettings global:
//
//	customizerSettings.has(path) -> boolean
//	customizerSettings.get(path) -> frozen value or null
//	customizerSettings.getString(path [, default]) -> string
//	customizerSettings.getNumber(path [, default]) -> number
//	customizerSettings.getBoolean(path [, default]) -> boolean
//
// Paths use gjson syntax ("ui.theme", "packs.0.name"). The typed getters
// throw when the path is absent and no default was given, and always
// throw on a type mismatch. Reads go through a live view, so each call
// observes the document as it is at that moment.
func (m *settingsModule) Register(vm *goja.Runtime) error {
	bridge, err := js.NewBridge(vm)
	if err != nil {
		return err
	}

	store := m.ctx.Settings
	if store == nil {
		store = settings.Default()
	}
	view := store.View()

	obj := vm.NewObject()

	if err := obj.Set("has", func(call goja.FunctionCall) goja.Value {
		path := stringArg(vm, call, 0, "path")
		return vm.ToValue(view.Has(path))
	}); err != nil {
		return err
	}

	if err := obj.Set("get", func(call goja.FunctionCall) goja.Value {
		path := stringArg(vm, call, 0, "path")
		r := view.Get(path)
		if !r.Exists() {
			return goja.Null()
		}
		v, err := bridge.FrozenObject(json.RawMessage(r.Raw))
		if err != nil {
			bridge.Throw(err)
		}
		return v
	}); err != nil {
		return err
	}

	if err := obj.Set("getString", func(call goja.FunctionCall) goja.Value {
		path := stringArg(vm, call, 0, "path")
		v, err := view.GetString(path)
		if err != nil {
			if def, ok := optionalArg(call, 1); ok && errors.Is(err, settings.ErrSettingNotFound) {
				return def
			}
			bridge.Throw(err)
		}
		return vm.ToValue(v)
	}); err != nil {
		return err
	}

	if err := obj.Set("getNumber", func(call goja.FunctionCall) goja.Value {
		path := stringArg(vm, call, 0, "path")
		v, err := view.GetFloat(path)
		if err != nil {
			if def, ok := optionalArg(call, 1); ok && errors.Is(err, settings.ErrSettingNotFound) {
				return def
			}
			bridge.Throw(err)
		}
		return vm.ToValue(v)
	}); err != nil {
		return err
	}

	if err := obj.Set("getBoolean", func(call goja.FunctionCall) goja.Value {
		path := stringArg(vm, call, 0, "path")
		v, err := view.GetBool(path)
		if err != nil {
			if def, ok := optionalArg(call, 1); ok && errors.Is(err, settings.ErrSettingNotFound) {
				return def
			}
			bridge.Throw(err)
		}
		return vm.ToValue(v)
	}); err != nil {
		return err
	}

	if _, err := bridge.Freeze(obj); err != nil {
		return err
	}

	return vm.Set("customizerSettings", obj)
}

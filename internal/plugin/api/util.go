package api

import (
	"encoding/base64"
	"encoding/hex"

	"github.com/Masterminds/semver/v3"
	"github.com/dop251/goja"
	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"

	"github.com/oreui/customizer/internal/plugin/js"
	"github.com/oreui/customizer/internal/plugin/security"
)

// utilModule exposes encoding and version helpers under the
// customizerUtil global. The sandbox leaves plugins without TextEncoder
// or crypto; this module fills those gaps.
type utilModule struct{}

// NewUtilModule creates the customizerUtil API module.
func NewUtilModule() Module {
	return &utilModule{}
}

func (m *utilModule) Name() string {
	return "customizerUtil"
}

func (m *utilModule) RequiredCapability() security.Capability {
	return ""
}

// Register binds the customizerUtil global:
//
//	customizerUtil.encodeUTF8(text) -> Uint8Array
//	customizerUtil.decodeUTF8(data) -> string
//	customizerUtil.toBase64(data) -> string
//	customizerUtil.fromBase64(text) -> Uint8Array
//	customizerUtil.toHex(data) -> string
//	customizerUtil.fromHex(text) -> Uint8Array
//	customizerUtil.uuid() -> string
//	customizerUtil.digest(data) -> string ("sha256:...")
//	customizerUtil.semverCompare(a, b) -> -1 | 0 | 1
//	customizerUtil.semverSatisfies(version, range) -> boolean
//
// Functions taking data accept a string, Uint8Array, or ArrayBuffer.
// Version helpers are lenient: "v1.2.3" and "1.2" both parse.
func (m *utilModule) Register(vm *goja.Runtime) error {
	bridge, err := js.NewBridge(vm)
	if err != nil {
		return err
	}

	obj := vm.NewObject()

	if err := obj.Set("encodeUTF8", func(call goja.FunctionCall) goja.Value {
		text := stringArg(vm, call, 0, "text")
		arr, err := bridge.Uint8Array([]byte(text))
		if err != nil {
			bridge.Throw(err)
		}
		return arr
	}); err != nil {
		return err
	}

	if err := obj.Set("decodeUTF8", func(call goja.FunctionCall) goja.Value {
		data, err := bytesArg(call.Argument(0))
		if err != nil {
			bridge.Throw(err)
		}
		return vm.ToValue(string(data))
	}); err != nil {
		return err
	}

	if err := obj.Set("toBase64", func(call goja.FunctionCall) goja.Value {
		data, err := bytesArg(call.Argument(0))
		if err != nil {
			bridge.Throw(err)
		}
		return vm.ToValue(base64.StdEncoding.EncodeToString(data))
	}); err != nil {
		return err
	}

	if err := obj.Set("fromBase64", func(call goja.FunctionCall) goja.Value {
		text := stringArg(vm, call, 0, "text")
		data, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			bridge.Throw(err)
		}
		arr, err := bridge.Uint8Array(data)
		if err != nil {
			bridge.Throw(err)
		}
		return arr
	}); err != nil {
		return err
	}

	if err := obj.Set("toHex", func(call goja.FunctionCall) goja.Value {
		data, err := bytesArg(call.Argument(0))
		if err != nil {
			bridge.Throw(err)
		}
		return vm.ToValue(hex.EncodeToString(data))
	}); err != nil {
		return err
	}

	if err := obj.Set("fromHex", func(call goja.FunctionCall) goja.Value {
		text := stringArg(vm, call, 0, "text")
		data, err := hex.DecodeString(text)
		if err != nil {
			bridge.Throw(err)
		}
		arr, err := bridge.Uint8Array(data)
		if err != nil {
			bridge.Throw(err)
		}
		return arr
	}); err != nil {
		return err
	}

	if err := obj.Set("uuid", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(uuid.NewString())
	}); err != nil {
		return err
	}

	if err := obj.Set("digest", func(call goja.FunctionCall) goja.Value {
		data, err := bytesArg(call.Argument(0))
		if err != nil {
			bridge.Throw(err)
		}
		return vm.ToValue(digest.FromBytes(data).String())
	}); err != nil {
		return err
	}

	if err := obj.Set("semverCompare", func(call goja.FunctionCall) goja.Value {
		a, err := semver.NewVersion(stringArg(vm, call, 0, "version"))
		if err != nil {
			bridge.Throw(err)
		}
		b, err := semver.NewVersion(stringArg(vm, call, 1, "version"))
		if err != nil {
			bridge.Throw(err)
		}
		return vm.ToValue(a.Compare(b))
	}); err != nil {
		return err
	}

	if err := obj.Set("semverSatisfies", func(call goja.FunctionCall) goja.Value {
		v, err := semver.NewVersion(stringArg(vm, call, 0, "version"))
		if err != nil {
			bridge.Throw(err)
		}
		c, err := semver.NewConstraint(stringArg(vm, call, 1, "range"))
		if err != nil {
			bridge.Throw(err)
		}
		return vm.ToValue(c.Check(v))
	}); err != nil {
		return err
	}

	if _, err := bridge.Freeze(obj); err != nil {
		return err
	}

	return vm.Set("customizerUtil", obj)
}

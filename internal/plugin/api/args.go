package api

import (
	"fmt"

	"github.com/dop251/goja"
)

// stringArg extracts a required string argument, raising a TypeError if
// the argument is missing.
func stringArg(vm *goja.Runtime, call goja.FunctionCall, idx int, name string) string {
	v := call.Argument(idx)
	if goja.IsUndefined(v) || goja.IsNull(v) {
		panic(vm.NewTypeError("%s is required", name))
	}
	return v.String()
}

// optionalArg returns the argument at idx, reporting whether it was
// supplied.
func optionalArg(call goja.FunctionCall, idx int) (goja.Value, bool) {
	if len(call.Arguments) <= idx {
		return goja.Undefined(), false
	}
	v := call.Arguments[idx]
	if goja.IsUndefined(v) {
		return goja.Undefined(), false
	}
	return v, true
}

// bytesArg extracts binary data from a string, Uint8Array, or ArrayBuffer
// argument. The returned slice is detached from the JavaScript value.
func bytesArg(v goja.Value) ([]byte, error) {
	switch data := v.Export().(type) {
	case string:
		return []byte(data), nil
	case []byte:
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	case goja.ArrayBuffer:
		src := data.Bytes()
		out := make([]byte, len(src))
		copy(out, src)
		return out, nil
	default:
		return nil, fmt.Errorf("expected string, Uint8Array, or ArrayBuffer, got %T", data)
	}
}

package js

import (
	"encoding/json"
	"fmt"

	"github.com/dop251/goja"
)

// deepFreezeSrc freezes an object and everything reachable from it.
// Values without cycles only; plugin-visible data is JSON-shaped.
const deepFreezeSrc = `(function deepFreeze(obj) {
	if (obj === null || (typeof obj !== "object" && typeof obj !== "function")) {
		return obj;
	}
	Object.getOwnPropertyNames(obj).forEach(function (name) {
		deepFreeze(obj[name]);
	});
	return Object.freeze(obj);
})`

// Bridge converts Go values into plugin-visible JavaScript values.
//
// goja's ToValue and Export already cover structural conversion in both
// directions; the bridge adds what plugin isolation needs on top: plain
// (non host-backed) objects, deep freezing, typed byte arrays, and Go
// error translation.
type Bridge struct {
	vm     *goja.Runtime
	freeze goja.Callable
	parse  goja.Callable
}

// NewBridge creates a bridge for the given runtime.
func NewBridge(vm *goja.Runtime) (*Bridge, error) {
	freezeVal, err := vm.RunString(deepFreezeSrc)
	if err != nil {
		return nil, fmt.Errorf("failed to install freeze helper: %w", err)
	}
	freeze, ok := goja.AssertFunction(freezeVal)
	if !ok {
		return nil, fmt.Errorf("freeze helper is not a function")
	}

	parseVal, err := vm.RunString("JSON.parse")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve JSON.parse: %w", err)
	}
	parse, ok := goja.AssertFunction(parseVal)
	if !ok {
		return nil, fmt.Errorf("JSON.parse is not a function")
	}

	return &Bridge{vm: vm, freeze: freeze, parse: parse}, nil
}

// Freeze deep-freezes a JavaScript value in place and returns it.
func (b *Bridge) Freeze(v goja.Value) (goja.Value, error) {
	frozen, err := b.freeze(goja.Undefined(), v)
	if err != nil {
		return nil, fmt.Errorf("failed to freeze value: %w", err)
	}
	return frozen, nil
}

// PlainObject converts v into a plain JavaScript value by round-tripping
// it through JSON. Unlike ToValue, the result is not backed by the Go
// value, so later Go-side mutation never shows through and the object
// can be frozen.
func (b *Bridge) PlainObject(v any) (goja.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	parsed, err := b.parse(goja.Undefined(), b.vm.ToValue(string(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse value: %w", err)
	}
	return parsed, nil
}

// FrozenObject converts v into a plain JavaScript value and deep-freezes
// it.
func (b *Bridge) FrozenObject(v any) (goja.Value, error) {
	plain, err := b.PlainObject(v)
	if err != nil {
		return nil, err
	}
	return b.Freeze(plain)
}

// Uint8Array wraps a copy of data in a JavaScript Uint8Array.
func (b *Bridge) Uint8Array(data []byte) (goja.Value, error) {
	content := make([]byte, len(data))
	copy(content, data)

	buf := b.vm.NewArrayBuffer(content)
	ctor := b.vm.Get("Uint8Array")
	arr, err := b.vm.New(ctor, b.vm.ToValue(buf))
	if err != nil {
		return nil, fmt.Errorf("failed to build Uint8Array: %w", err)
	}
	return arr, nil
}

// Throw raises err as a JavaScript exception. It never returns; call it
// only from functions invoked by running JavaScript code.
func (b *Bridge) Throw(err error) {
	panic(b.vm.NewGoError(err))
}

// Runtime returns the runtime the bridge operates on.
func (b *Bridge) Runtime() *goja.Runtime {
	return b.vm
}

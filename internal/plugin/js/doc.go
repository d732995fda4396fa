// Package js provides the JavaScript runtime integration for the plugin
// system.
//
// This package wraps the goja interpreter to provide:
//   - Sandboxed JavaScript state management
//   - Plugin-safe value conversion (plain objects, deep freezing)
//   - Capability tracking
//   - Interrupt-enforced execution timeouts
//
// # State
//
// The State type manages a JavaScript runtime with sandboxing:
//
//	state, err := js.NewState(
//	    js.WithMemoryLimit(10 * 1024 * 1024),
//	    js.WithExecutionTimeout(5 * time.Second),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer state.Close()
//
//	if _, err := state.RunScript("plugin.js", src); err != nil {
//	    log.Fatal(err)
//	}
//
// # Sandbox
//
// The Sandbox restricts JavaScript code execution by:
//   - Removing dynamic code evaluation (eval, the Function constructor)
//   - Routing console output to the host logger
//   - Tracking capability grants for API module injection
//
// # Bridge
//
// The Bridge builds the values plugins observe. goja converts Go values
// natively; the bridge adds plain-object conversion (so Go-side mutation
// never shows through), deep freezing, Uint8Array construction, and
// raising Go errors as JavaScript exceptions:
//
//	bridge, _ := js.NewBridge(state.Runtime())
//	frozen, _ := bridge.FrozenObject(manifest)
//
// # Timeouts
//
// Execution timeouts are enforced with goja's Interrupt mechanism: a
// timer interrupts the runtime, the interrupted call fails with
// ErrExecutionTimeout, and the pending interrupt is cleared so the state
// stays usable.
package js

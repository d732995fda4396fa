// Package js provides the JavaScript runtime integration for the plugin system.
package js

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// Default limits for a JavaScript state.
const (
	DefaultMemoryLimit      = 10 * 1024 * 1024 // 10 MB (advisory, not enforced by goja)
	DefaultExecutionTimeout = 5 * time.Second
)

// State wraps a goja runtime with additional features for plugin execution.
//
// IMPORTANT: goja's Runtime is not goroutine-safe. All operations on a State
// must be called from a single goroutine, or external synchronization must be
// used. The mutex in this struct serializes access from Go code; the only
// goja call that is safe from another goroutine is Interrupt, which is how
// execution timeouts are enforced.
//
// Memory limits are advisory only - goja does not provide a mechanism to
// enforce hard memory limits. The memoryLimit field is provided for
// documentation and potential future use.
type State struct {
	vm *goja.Runtime

	mu sync.Mutex

	// Configuration
	memoryLimit      int64 // Advisory only, not enforced
	executionTimeout time.Duration

	// Sandbox
	sandbox *Sandbox

	// Tracking
	closed bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithMemoryLimit sets the memory limit for the JavaScript state.
// NOTE: This is advisory only - goja does not enforce memory limits.
func WithMemoryLimit(bytes int64) StateOption {
	return func(s *State) {
		s.memoryLimit = bytes
	}
}

// WithExecutionTimeout sets the execution timeout for JavaScript calls.
// The timeout is enforced with the runtime's interrupt mechanism, so
// even a busy loop is stopped.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.executionTimeout = d
	}
}

// WithLogger sets the logger that sandbox console output is written to.
func WithLogger(logger *slog.Logger) StateOption {
	return func(s *State) {
		s.sandbox.logger = logger
	}
}

// NewState creates a new sandboxed JavaScript state.
func NewState(opts ...StateOption) (*State, error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	state := &State{
		vm:               vm,
		memoryLimit:      DefaultMemoryLimit,
		executionTimeout: DefaultExecutionTimeout,
		sandbox:          NewSandbox(vm, slog.Default()),
	}

	// Apply options
	for _, opt := range opts {
		opt(state)
	}

	state.sandbox.Install()

	return state, nil
}

// RunScript compiles and executes src. The name appears in stack traces.
// Execution is synchronous - the call blocks until completion, timeout,
// or error.
func (s *State) RunScript(name, src string) (goja.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStateClosed
	}

	prog, err := goja.Compile(name, src, false)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", name, err)
	}

	return s.runGuarded(func() (goja.Value, error) {
		return s.vm.RunProgram(prog)
	})
}

// RunString executes a JavaScript snippet.
func (s *State) RunString(src string) (goja.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStateClosed
	}

	return s.runGuarded(func() (goja.Value, error) {
		return s.vm.RunString(src)
	})
}

// Call calls a global JavaScript function with the given arguments.
func (s *State) Call(fn string, args ...any) (goja.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStateClosed
	}

	fnVal := s.vm.Get(fn)
	callable, ok := goja.AssertFunction(fnVal)
	if !ok {
		if fnVal == nil || goja.IsUndefined(fnVal) {
			return nil, fmt.Errorf("function %q not found", fn)
		}
		return nil, fmt.Errorf("%q is not a function", fn)
	}

	jsArgs := make([]goja.Value, len(args))
	for i, arg := range args {
		jsArgs[i] = s.vm.ToValue(arg)
	}

	return s.runGuarded(func() (goja.Value, error) {
		return callable(goja.Undefined(), jsArgs...)
	})
}

// runGuarded executes fn under the state's timeout with panic recovery.
// The caller must hold s.mu.
func (s *State) runGuarded(fn func() (goja.Value, error)) (val goja.Value, err error) {
	if s.executionTimeout > 0 {
		timer := time.AfterFunc(s.executionTimeout, func() {
			s.vm.Interrupt(ErrExecutionTimeout)
		})
		defer func() {
			timer.Stop()
			// A pending interrupt would poison the next run.
			s.vm.ClearInterrupt()
		}()
	}

	defer func() {
		if r := recover(); r != nil {
			if ierr, ok := r.(*goja.InterruptedError); ok {
				err = ierr
			} else {
				err = fmt.Errorf("js panic: %v", r)
			}
		}
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			if v, ok := interrupted.Value().(error); ok && errors.Is(v, ErrStateClosed) {
				err = ErrStateClosed
			} else {
				err = fmt.Errorf("%w after %v", ErrExecutionTimeout, s.executionTimeout)
			}
		}
	}()

	return fn()
}

// HasFunction reports whether a global function with the given name is
// defined.
func (s *State) HasFunction(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	_, ok := goja.AssertFunction(s.vm.Get(name))
	return ok
}

// GetGlobal returns a global variable value, or nil when undefined.
func (s *State) GetGlobal(name string) goja.Value {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	return s.vm.Get(name)
}

// SetGlobal sets a global variable.
func (s *State) SetGlobal(name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	return s.vm.Set(name, value)
}

// DeleteGlobal removes a global variable.
func (s *State) DeleteGlobal(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	return s.vm.GlobalObject().Delete(name)
}

// Runtime returns the underlying goja runtime.
//
// WARNING: Direct access to the runtime bypasses all safety measures
// including the mutex lock and the execution timeout. It is intended for
// API module registration, which happens before any plugin code runs.
func (s *State) Runtime() *goja.Runtime {
	return s.vm
}

// Sandbox returns the sandbox for capability management.
//
// NOTE: The sandbox is shared with the State. Modifications to sandbox
// capabilities affect future JavaScript executions.
func (s *State) Sandbox() *Sandbox {
	return s.sandbox
}

// ExecutionTimeout returns the configured per-call timeout.
func (s *State) ExecutionTimeout() time.Duration {
	return s.executionTimeout
}

// MemoryLimit returns the advisory memory limit.
func (s *State) MemoryLimit() int64 {
	return s.memoryLimit
}

// IsClosed returns true if the state has been closed.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases the state. After Close, all other methods fail with
// ErrStateClosed. goja has no explicit teardown; dropping references is
// enough, so Close only flips the flag and interrupts stray execution.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.vm.Interrupt(ErrStateClosed)
	s.closed = true
	return nil
}

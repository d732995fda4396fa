package js

import (
	"errors"
	"testing"
	"time"
)

func TestNewState(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	if state.IsClosed() {
		t.Error("NewState() returned closed state")
	}

	if state.Runtime() == nil {
		t.Error("NewState() Runtime() is nil")
	}

	if state.Sandbox() == nil {
		t.Error("NewState() Sandbox() is nil")
	}
}

func TestStateWithOptions(t *testing.T) {
	state, err := NewState(
		WithMemoryLimit(5*1024*1024),
		WithExecutionTimeout(2*time.Second),
	)
	if err != nil {
		t.Fatalf("NewState() with options error = %v", err)
	}
	defer state.Close()

	if state.MemoryLimit() != 5*1024*1024 {
		t.Errorf("MemoryLimit() = %d, want %d", state.MemoryLimit(), 5*1024*1024)
	}

	if state.ExecutionTimeout() != 2*time.Second {
		t.Errorf("ExecutionTimeout() = %v, want %v", state.ExecutionTimeout(), 2*time.Second)
	}
}

func TestStateRunString(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	v, err := state.RunString(`var x = 1 + 1; x`)
	if err != nil {
		t.Fatalf("RunString() error = %v", err)
	}

	if v.ToInteger() != 2 {
		t.Errorf("RunString() = %v, want 2", v)
	}

	// The global survives between runs.
	g := state.GetGlobal("x")
	if g == nil {
		t.Fatal("GetGlobal(x) returned nil")
	}
	if g.ToInteger() != 2 {
		t.Errorf("x = %v, want 2", g)
	}
}

func TestStateRunStringSyntaxError(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	_, err = state.RunString(`function {`)
	if err == nil {
		t.Error("RunString() with invalid code should return error")
	}
}

func TestStateRunScript(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	v, err := state.RunScript("plugin.js", `"hello " + "world"`)
	if err != nil {
		t.Fatalf("RunScript() error = %v", err)
	}

	if v.String() != "hello world" {
		t.Errorf("RunScript() = %q, want %q", v.String(), "hello world")
	}
}

func TestStateCall(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	_, err = state.RunString(`
		function add(a, b) {
			return a + b;
		}
	`)
	if err != nil {
		t.Fatalf("RunString() error = %v", err)
	}

	result, err := state.Call("add", 2, 3)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	if result.ToInteger() != 5 {
		t.Errorf("add(2, 3) = %v, want 5", result)
	}
}

func TestStateCallUndefinedFunction(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	_, err = state.Call("missing")
	if err == nil {
		t.Error("Call() on undefined function should return error")
	}
}

func TestStateCallNonFunction(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	if _, err := state.RunString(`var notFn = 42`); err != nil {
		t.Fatalf("RunString() error = %v", err)
	}

	_, err = state.Call("notFn")
	if err == nil {
		t.Error("Call() on non-function should return error")
	}
}

func TestStateCallThrownError(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	_, err = state.RunString(`
		function boom() {
			throw new Error("plugin failure");
		}
	`)
	if err != nil {
		t.Fatalf("RunString() error = %v", err)
	}

	_, err = state.Call("boom")
	if err == nil {
		t.Fatal("Call() on throwing function should return error")
	}
}

func TestStateHasFunction(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	_, err = state.RunString(`
		function onActivate() {}
		var notAFunction = "string";
	`)
	if err != nil {
		t.Fatalf("RunString() error = %v", err)
	}

	if !state.HasFunction("onActivate") {
		t.Error("HasFunction(onActivate) = false, want true")
	}
	if state.HasFunction("notAFunction") {
		t.Error("HasFunction(notAFunction) = true, want false")
	}
	if state.HasFunction("missing") {
		t.Error("HasFunction(missing) = true, want false")
	}
}

func TestStateExecutionTimeout(t *testing.T) {
	state, err := NewState(WithExecutionTimeout(50 * time.Millisecond))
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	_, err = state.RunString(`while (true) {}`)
	if !errors.Is(err, ErrExecutionTimeout) {
		t.Fatalf("RunString() error = %v, want ErrExecutionTimeout", err)
	}

	// The interrupt is cleared, so the state stays usable.
	v, err := state.RunString(`6 * 7`)
	if err != nil {
		t.Fatalf("RunString() after timeout error = %v", err)
	}
	if v.ToInteger() != 42 {
		t.Errorf("RunString() after timeout = %v, want 42", v)
	}
}

func TestStateSetGetGlobal(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	if err := state.SetGlobal("answer", 42); err != nil {
		t.Fatalf("SetGlobal() error = %v", err)
	}

	v, err := state.RunString(`answer * 2`)
	if err != nil {
		t.Fatalf("RunString() error = %v", err)
	}
	if v.ToInteger() != 84 {
		t.Errorf("answer * 2 = %v, want 84", v)
	}
}

func TestStateDeleteGlobal(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	if err := state.SetGlobal("temp", "value"); err != nil {
		t.Fatalf("SetGlobal() error = %v", err)
	}
	if state.GetGlobal("temp") == nil {
		t.Fatal("temp should exist before delete")
	}

	if err := state.DeleteGlobal("temp"); err != nil {
		t.Fatalf("DeleteGlobal() error = %v", err)
	}
	if state.GetGlobal("temp") != nil {
		t.Error("temp should be nil after delete")
	}
}

func TestStateClose(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}

	if err := state.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if !state.IsClosed() {
		t.Error("Close() did not close state")
	}

	// Double close should not error.
	if err := state.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestStateClosedOperations(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	state.Close()

	if _, err := state.RunString(`1 + 1`); !errors.Is(err, ErrStateClosed) {
		t.Errorf("RunString() on closed state error = %v, want ErrStateClosed", err)
	}

	if _, err := state.RunScript("x.js", `1`); !errors.Is(err, ErrStateClosed) {
		t.Errorf("RunScript() on closed state error = %v, want ErrStateClosed", err)
	}

	if _, err := state.Call("fn"); !errors.Is(err, ErrStateClosed) {
		t.Errorf("Call() on closed state error = %v, want ErrStateClosed", err)
	}

	if err := state.SetGlobal("x", 1); !errors.Is(err, ErrStateClosed) {
		t.Errorf("SetGlobal() on closed state error = %v, want ErrStateClosed", err)
	}

	if err := state.DeleteGlobal("x"); !errors.Is(err, ErrStateClosed) {
		t.Errorf("DeleteGlobal() on closed state error = %v, want ErrStateClosed", err)
	}

	if state.GetGlobal("x") != nil {
		t.Error("GetGlobal() on closed state should return nil")
	}

	if state.HasFunction("fn") {
		t.Error("HasFunction() on closed state should return false")
	}
}

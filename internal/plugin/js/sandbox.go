package js

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dop251/goja"
)

// Sandbox restricts JavaScript execution to safe operations and tracks
// the capabilities granted to the running plugin.
type Sandbox struct {
	vm     *goja.Runtime
	logger *slog.Logger

	// Capabilities
	capabilities map[string]bool
}

// NewSandbox creates a new sandbox for the JavaScript runtime.
func NewSandbox(vm *goja.Runtime, logger *slog.Logger) *Sandbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sandbox{
		vm:           vm,
		logger:       logger,
		capabilities: make(map[string]bool),
	}
}

// Install sets up the sandbox restrictions.
func (s *Sandbox) Install() {
	// Remove dynamic code evaluation. The Function constructor stays
	// reachable through prototypes; removing the globals raises the bar
	// without claiming full containment.
	dangerousGlobals := []string{
		"eval",
		"Function",
	}

	global := s.vm.GlobalObject()
	for _, name := range dangerousGlobals {
		_ = global.Delete(name)
	}

	s.installConsole()
}

// installConsole routes console output to the sandbox logger.
func (s *Sandbox) installConsole() {
	console := s.vm.NewObject()
	_ = console.Set("debug", s.logFunc(slog.LevelDebug))
	_ = console.Set("log", s.logFunc(slog.LevelInfo))
	_ = console.Set("info", s.logFunc(slog.LevelInfo))
	_ = console.Set("warn", s.logFunc(slog.LevelWarn))
	_ = console.Set("error", s.logFunc(slog.LevelError))
	_ = s.vm.Set("console", console)
}

func (s *Sandbox) logFunc(level slog.Level) func(call goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			parts = append(parts, fmt.Sprint(arg.Export()))
		}
		s.logger.Log(context.Background(), level, strings.Join(parts, " "))
		return goja.Undefined()
	}
}

// SetLogger replaces the logger console output is written to.
func (s *Sandbox) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Grant grants a capability to the running plugin.
func (s *Sandbox) Grant(capability string) {
	s.capabilities[capability] = true
}

// Has reports whether a capability has been granted.
func (s *Sandbox) Has(capability string) bool {
	return s.capabilities[capability]
}

// Capabilities returns all granted capabilities.
func (s *Sandbox) Capabilities() []string {
	caps := make([]string, 0, len(s.capabilities))
	for c := range s.capabilities {
		caps = append(caps, c)
	}
	return caps
}

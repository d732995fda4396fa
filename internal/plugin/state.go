package plugin

// State represents the lifecycle state of a plugin.
type State int

// Plugin states.
const (
	// StateUnloaded - Plugin is not loaded.
	StateUnloaded State = iota

	// StateLoaded - Plugin code is loaded but not activated.
	StateLoaded

	// StateActivating - Plugin is being activated.
	StateActivating

	// StateActive - Plugin is active and can be invoked.
	StateActive

	// StateDeactivating - Plugin is being deactivated.
	StateDeactivating

	// StateError - Plugin encountered an error.
	StateError
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateActivating:
		return "activating"
	case StateActive:
		return "active"
	case StateDeactivating:
		return "deactivating"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// IsUsable returns true if the plugin can be used (loaded or active).
func (s State) IsUsable() bool {
	return s == StateLoaded || s == StateActive
}

// ExtensionPoint names a host callback a plugin may implement as a global
// function. Plugins implement any subset; missing functions are skipped.
type ExtensionPoint string

// Extension points, in the order the host runs them.
const (
	// ExtBeforeApply runs before the host applies its settings. Settings
	// are still mutable at this point.
	ExtBeforeApply ExtensionPoint = "beforeApply"

	// ExtAfterApply runs after settings are applied and sealed.
	ExtAfterApply ExtensionPoint = "afterApply"
)

// Valid returns true if the extension point is one the host runs.
func (p ExtensionPoint) Valid() bool {
	return p == ExtBeforeApply || p == ExtAfterApply
}

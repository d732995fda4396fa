package plugin

import "errors"

// Environment errors. These are the only errors the file access facade
// reports: fetch operations fail with ErrNotFound when a path does not
// resolve to the expected entry kind, and every archive-backed operation
// fails with ErrUnsupportedOperation on a single-file plugin.
var (
	// ErrNotFound is returned when a fetched path does not resolve to the
	// expected archive entry.
	ErrNotFound = errors.New("entry not found")

	// ErrUnsupportedOperation is returned when an archive-backed operation
	// is invoked against a plugin that has no backing archive.
	ErrUnsupportedOperation = errors.New("operation requires an archive-backed plugin")

	// ErrOutputTooLarge is returned when a write through a writable stream
	// would exceed the environment's output size limit.
	ErrOutputTooLarge = errors.New("output exceeds size limit")
)

// Plugin system errors.
var (
	// ErrPluginNotFound is returned when a plugin cannot be located.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrNoEntryPoint is returned when a plugin has no valid entry point.
	ErrNoEntryPoint = errors.New("plugin has no entry point (index.js or plugin.js)")

	// ErrNilManifest is returned when a nil manifest is provided.
	ErrNilManifest = errors.New("manifest is nil")

	// ErrEngineIncompatible is returned when a plugin's minEngineVersion
	// exceeds the running customizer version.
	ErrEngineIncompatible = errors.New("plugin requires a newer engine version")

	// ErrAlreadyLoaded is returned when attempting to load an already loaded plugin.
	ErrAlreadyLoaded = errors.New("plugin is already loaded")

	// ErrNotLoaded is returned when attempting to use an unloaded plugin.
	ErrNotLoaded = errors.New("plugin is not loaded")

	// ErrNotActive is returned when invoking an extension point on a plugin
	// that is not active.
	ErrNotActive = errors.New("plugin is not active")

	// ErrInvalidPlugin is returned when plugin validation fails.
	ErrInvalidPlugin = errors.New("invalid plugin")

	// ErrAlreadyInitialized is returned when initializing an initialized system.
	ErrAlreadyInitialized = errors.New("plugin system is already initialized")

	// ErrNotInitialized is returned when using an uninitialized system.
	ErrNotInitialized = errors.New("plugin system is not initialized")
)

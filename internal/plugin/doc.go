// Package plugin provides the plugin system for the Ore UI customizer.
//
// The plugin system allows extending the customizer with JavaScript that
// can:
//   - Inspect the host environment (customizer version, host type)
//   - Read the active settings document
//   - Read files packaged with the plugin (directory trees and zip
//     packages)
//   - Rewrite packaged files through writable streams
//   - Hook the apply pipeline before and after settings are applied
//
// # Quick Start
//
// The easiest way to use the plugin system is through the System type:
//
//	config := plugin.DefaultSystemConfig()
//	config.Version = "2.1.0"
//	config.HostType = env.HostApp
//	config.Settings = store
//
//	sys := plugin.NewSystem(config)
//	if err := sys.Initialize(); err != nil {
//	    log.Fatal(err)
//	}
//	defer sys.Shutdown(context.Background())
//
//	// Load all plugins
//	if err := sys.LoadAll(context.Background()); err != nil {
//	    log.Printf("some plugins failed to load: %v", err)
//	}
//
//	// Run an extension point across every active plugin
//	if err := sys.InvokeAll(context.Background(), plugin.ExtBeforeApply); err != nil {
//	    log.Printf("some plugins failed: %v", err)
//	}
//
// # Plugin Structure
//
// Plugins come in three packagings:
//
// Single-file plugin, a lone script with no packaged content:
//
//	~/.config/ore-ui-customizer/plugins/myplugin.js
//
// Directory plugin:
//
//	~/.config/ore-ui-customizer/plugins/myplugin/
//	├── plugin.json      # Manifest (optional but recommended)
//	├── index.js         # Entry point
//	└── assets/          # Packaged content
//	    └── theme.css
//
// Zip package (.ouicplugin or .zip), the directory layout inside an
// archive:
//
//	~/.config/ore-ui-customizer/plugins/myplugin.ouicplugin
//
// # Manifest
//
// The plugin.json manifest describes the plugin:
//
//	{
//	  "name": "my-plugin",
//	  "version": "1.0.0",
//	  "displayName": "My Plugin",
//	  "description": "A helpful plugin",
//	  "main": "index.js",
//	  "capabilities": ["settings.read"],
//	  "settingsSchema": {
//	    "myPlugin.accent": {"type": "string", "default": "#00ff00"}
//	  }
//	}
//
// Single-file plugins and packages without a manifest get a minimal one
// synthesized from the file name.
//
// # Capabilities
//
// Plugins must declare required capabilities in their manifest:
//
//   - archive.read: Read entries from the plugin's own package
//     (granted implicitly to directory and zip plugins)
//   - archive.write: Rewrite entries in the plugin's own package
//   - settings.read: Read the host settings document
//   - network: Declare intent to fetch remote resources
//   - unsafe: Full access (disables sandbox restrictions)
//
// # Plugin Lifecycle
//
// Plugins go through these states:
//
//	StateUnloaded -> Load() -> StateLoaded
//	StateLoaded -> Activate() -> StateActive
//	StateActive -> Deactivate() -> StateLoaded
//	StateLoaded -> Unload() -> StateUnloaded
//
// Active plugins receive extension point invocations. Each invocation
// binds a fresh pluginEnv global scoped to that call.
//
// # Architecture
//
// The plugin system consists of several components:
//
//   - System: High-level facade that coordinates all components
//   - Manager: Manages plugin lifecycle (discovery, loading, activation)
//     and extension point dispatch
//   - Host: Per-plugin JavaScript runtime and lifecycle management
//   - Loader: Discovers plugins in the filesystem
//   - Registry: Manages API modules available to plugins
//   - Environment: Per-invocation view of the plugin's packaged content
//
// # Security
//
// Plugins run in a sandboxed JavaScript runtime with:
//   - eval and the Function constructor removed
//   - Execution timeouts enforced by runtime interrupts
//   - Capability-based access control
//   - Per-entry size limits on packaged content
//
// # Available API Modules
//
// Plugins access customizer functionality through ambient globals:
//
//   - customizerEnv: Host version, host type, live settings view
//   - customizerSettings: Typed settings getters (requires settings.read)
//   - customizerUtil: Encoding, hashing, and version helpers
//   - pluginEnv: The plugin's own manifest and packaged content,
//     bound for the duration of each extension point invocation
//
// # Example Plugin
//
//	// index.js
//	var css = "";
//
//	function activate() {
//	    // One-time setup
//	}
//
//	function beforeApply() {
//	    if (customizerEnv.type === "Website") {
//	        css = pluginEnv.fetchFileStringContents("assets/theme.css");
//	    }
//	}
//
//	function afterApply() {
//	    var entry = pluginEnv.findZipFileEntry("assets/theme.css");
//	    if (entry !== null) {
//	        var out = pluginEnv.fetchFileAsWritableStream(entry.path);
//	        out.write(css);
//	        out.close();
//	    }
//	}
//
//	function deactivate() {
//	    css = "";
//	}
package plugin

// Package api provides the JavaScript API modules exposed to customizer
// plugins.
//
// The api package implements the bridge between plugin scripts and the
// customizer host. Plugins see the host through ambient globals:
//
//   - customizerEnv: host version, host type, and the settings document
//   - customizerSettings: typed per-path settings reads
//   - customizerUtil: encoding, digest, and version helpers
//   - pluginEnv: the invoked plugin's manifest and archive surface
//
// # Architecture
//
// Each API module implements the Module interface:
//
//	type Module interface {
//	    Name() string
//	    RequiredCapability() security.Capability
//	    Register(vm *goja.Runtime) error
//	}
//
// The shared modules sit in a Registry, which binds them into a plugin's
// runtime once, at load. pluginEnv is different: the host builds a fresh
// module for every invocation, registers it around the extension point
// call, and removes the global afterwards.
//
// # Capability-Based Security
//
// API modules declare their required capabilities. InjectAll binds a
// module only when the plugin's permission checker grants its
// capability; a plugin without settings.read simply never sees the
// customizerSettings global.
//
// # Context
//
// The Context struct gives shared modules access to host state:
//
//	ctx := &api.Context{
//	    Version:  "2.1.0",
//	    HostType: "Website",
//	    Settings: store,
//	}
//
// # Usage
//
// To set up API modules for a plugin:
//
//	registry, err := api.DefaultRegistry(ctx)
//	if err != nil {
//	    return err
//	}
//	err = registry.InjectAll(state.Runtime(), permissionChecker)
//
// From JavaScript, plugins read the host state directly:
//
//	if (customizerEnv.type === "Website") {
//	    var accent = customizerEnv.settings.ui.accent;
//	}
//
//	// With the settings.read capability:
//	var theme = customizerSettings.getString("ui.theme", "dark");
//
//	// During an extension point call:
//	var manifest = pluginEnv.manifest;
//	var entry = pluginEnv.findZipFileEntry("assets/logo.png");
//	if (entry !== null) {
//	    var data = pluginEnv.fetchFileContents(entry.path);
//	}
package api

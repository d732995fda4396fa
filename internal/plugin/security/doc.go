// Package security provides security primitives for the plugin system.
//
// The security package implements a capability-based security model
// for controlling what a customizer plugin may touch:
//
// # Capabilities
//
// Capabilities are permissions that plugins must request in their manifest.
// The capability system is hierarchical - granting a parent capability
// (e.g., "archive") implicitly grants all child capabilities (e.g.,
// "archive.read", "archive.write").
//
// Core capability categories:
//   - archive.read/write: Access to the plugin's own archive
//   - settings.read: Read the host settings document
//   - network: Network requests
//   - unsafe: Every capability, present and future
//
// Archive-backed plugins receive archive.read implicitly, and every
// plugin receives settings.read; the remaining capabilities gate which
// API modules are injected into the plugin's scripting state.
//
// # Permissions
//
// The PermissionChecker tracks granted capabilities for one plugin and
// answers HasCapability/CheckCapability queries, resolving implication
// through the hierarchy.
//
// # Resource Limits
//
// ResourceLimits bundles the budgets the host applies to a plugin:
//
//   - Memory limits (advisory)
//   - Execution timeouts (enforced by the scripting engine)
//   - Archive entry size limits (enforced at load)
//
// Example usage:
//
//	// Create permission checker for a plugin
//	checker := security.NewPermissionChecker("my-plugin")
//	checker.Grant(security.CapabilityArchiveRead)
//
//	// Check permission before injecting an API module
//	if err := checker.CheckCapability(security.CapabilityNetwork); err != nil {
//	    // Access denied
//	}
package security

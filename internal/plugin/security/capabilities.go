// Package security provides security primitives for the plugin system.
package security

import (
	"fmt"
	"strings"
)

// Capability represents a permission that a plugin can request.
// Capabilities are hierarchical - granting a parent capability
// implicitly grants all child capabilities.
type Capability string

// Core capabilities that plugins can request.
const (
	// CapabilityArchive grants full access to the plugin's own archive.
	CapabilityArchive Capability = "archive"

	// CapabilityArchiveRead allows reading entries from the plugin's
	// archive. Granted implicitly to every archive-backed plugin.
	CapabilityArchiveRead Capability = "archive.read"

	// CapabilityArchiveWrite allows writing entries into the plugin's
	// archive through writable streams.
	CapabilityArchiveWrite Capability = "archive.write"

	// CapabilitySettingsRead allows reading the host settings document
	// through the customizerSettings module. Requested via the manifest
	// capabilities list.
	CapabilitySettingsRead Capability = "settings.read"

	// CapabilityNetwork allows network access (HTTP, sockets, etc.).
	CapabilityNetwork Capability = "network"

	// CapabilityUnsafe grants every capability, present and future.
	// This is a dangerous capability and should be granted sparingly.
	CapabilityUnsafe Capability = "unsafe"
)

// CapabilityInfo provides metadata about a capability.
type CapabilityInfo struct {
	// Name is the capability identifier.
	Name Capability

	// DisplayName is a human-readable name.
	DisplayName string

	// Description explains what the capability allows.
	Description string

	// Parent is the parent capability (for hierarchical capabilities).
	Parent Capability

	// RiskLevel indicates how dangerous this capability is.
	RiskLevel RiskLevel

	// RequiresUserApproval indicates if the user must explicitly approve.
	RequiresUserApproval bool
}

// RiskLevel indicates the security risk of a capability.
type RiskLevel int

const (
	// RiskLow indicates minimal security risk.
	RiskLow RiskLevel = iota

	// RiskMedium indicates moderate security risk.
	RiskMedium

	// RiskHigh indicates significant security risk.
	RiskHigh

	// RiskCritical indicates maximum security risk.
	RiskCritical
)

// String returns a string representation of the risk level.
func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	case RiskCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// capabilityRegistry holds metadata about all known capabilities.
var capabilityRegistry = map[Capability]CapabilityInfo{
	CapabilityArchive: {
		Name:                 CapabilityArchive,
		DisplayName:          "Archive Access",
		Description:          "Full access to the plugin archive",
		RiskLevel:            RiskMedium,
		RequiresUserApproval: false,
	},
	CapabilityArchiveRead: {
		Name:                 CapabilityArchiveRead,
		DisplayName:          "Archive Read",
		Description:          "Read entries from the plugin archive",
		Parent:               CapabilityArchive,
		RiskLevel:            RiskLow,
		RequiresUserApproval: false,
	},
	CapabilityArchiveWrite: {
		Name:                 CapabilityArchiveWrite,
		DisplayName:          "Archive Write",
		Description:          "Write entries into the plugin archive",
		Parent:               CapabilityArchive,
		RiskLevel:            RiskMedium,
		RequiresUserApproval: false,
	},
	CapabilitySettingsRead: {
		Name:                 CapabilitySettingsRead,
		DisplayName:          "Settings Read",
		Description:          "Read the host settings document",
		RiskLevel:            RiskLow,
		RequiresUserApproval: false,
	},
	CapabilityNetwork: {
		Name:                 CapabilityNetwork,
		DisplayName:          "Network Access",
		Description:          "Make network requests",
		RiskLevel:            RiskHigh,
		RequiresUserApproval: true,
	},
	CapabilityUnsafe: {
		Name:                 CapabilityUnsafe,
		DisplayName:          "Unsafe Mode",
		Description:          "Every capability, present and future (dangerous)",
		RiskLevel:            RiskCritical,
		RequiresUserApproval: true,
	},
}

// GetCapabilityInfo returns information about a capability.
func GetCapabilityInfo(cap Capability) (CapabilityInfo, bool) {
	info, ok := capabilityRegistry[cap]
	return info, ok
}

// IsValidCapability returns true if the capability is known.
func IsValidCapability(cap Capability) bool {
	_, ok := capabilityRegistry[cap]
	return ok
}

// AllCapabilities returns all known capabilities.
func AllCapabilities() []Capability {
	caps := make([]Capability, 0, len(capabilityRegistry))
	for cap := range capabilityRegistry {
		caps = append(caps, cap)
	}
	return caps
}

// HighRiskCapabilities returns capabilities that require user approval.
func HighRiskCapabilities() []Capability {
	var caps []Capability
	for cap, info := range capabilityRegistry {
		if info.RequiresUserApproval {
			caps = append(caps, cap)
		}
	}
	return caps
}

// IsChildOf returns true if child is a child of parent.
func IsChildOf(child, parent Capability) bool {
	// Direct string prefix check for hierarchical capabilities
	return strings.HasPrefix(string(child), string(parent)+".")
}

// ImpliesCapability returns true if having 'granted' implies having 'required'.
func ImpliesCapability(granted, required Capability) bool {
	// Same capability
	if granted == required {
		return true
	}

	// Unsafe implies everything
	if granted == CapabilityUnsafe {
		return true
	}

	// Check if granted is a parent of required
	return IsChildOf(required, granted)
}

// CapabilityError represents a capability-related error.
type CapabilityError struct {
	Capability Capability
	Operation  string
	Message    string
}

// Error implements the error interface.
func (e *CapabilityError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("capability %q required for %s: %s", e.Capability, e.Operation, e.Message)
	}
	return fmt.Sprintf("capability %q: %s", e.Capability, e.Message)
}

// NewCapabilityError creates a new capability error.
func NewCapabilityError(cap Capability, operation, message string) *CapabilityError {
	return &CapabilityError{
		Capability: cap,
		Operation:  operation,
		Message:    message,
	}
}

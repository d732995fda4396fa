package security

import (
	"testing"
)

func TestNewPermissionChecker(t *testing.T) {
	pc := NewPermissionChecker("test-plugin")
	if pc == nil {
		t.Fatal("NewPermissionChecker returned nil")
	}
	if pc.PluginName() != "test-plugin" {
		t.Errorf("PluginName() = %q, want %q", pc.PluginName(), "test-plugin")
	}
}

func TestPermissionCheckerGrant(t *testing.T) {
	pc := NewPermissionChecker("test")

	pc.Grant(CapabilityArchiveRead)
	if !pc.HasCapability(CapabilityArchiveRead) {
		t.Error("HasCapability(ArchiveRead) = false after Grant")
	}
}

func TestPermissionCheckerRevoke(t *testing.T) {
	pc := NewPermissionChecker("test")

	pc.Grant(CapabilityArchiveRead)
	pc.Revoke(CapabilityArchiveRead)
	if pc.HasCapability(CapabilityArchiveRead) {
		t.Error("HasCapability(ArchiveRead) = true after Revoke")
	}
}

func TestPermissionCheckerGrantAll(t *testing.T) {
	pc := NewPermissionChecker("test")

	caps := []Capability{CapabilityArchiveRead, CapabilitySettingsRead, CapabilityNetwork}
	pc.GrantAll(caps)

	for _, cap := range caps {
		if !pc.HasCapability(cap) {
			t.Errorf("HasCapability(%q) = false", cap)
		}
	}
}

func TestPermissionCheckerHasCapabilityHierarchy(t *testing.T) {
	pc := NewPermissionChecker("test")

	// Grant parent capability
	pc.Grant(CapabilityArchive)

	// Should imply child capabilities
	if !pc.HasCapability(CapabilityArchiveRead) {
		t.Error("HasCapability(ArchiveRead) = false (should be implied by Archive)")
	}
	if !pc.HasCapability(CapabilityArchiveWrite) {
		t.Error("HasCapability(ArchiveWrite) = false (should be implied by Archive)")
	}

	// Unrelated capability not implied
	if pc.HasCapability(CapabilityNetwork) {
		t.Error("HasCapability(Network) = true (should not be implied by Archive)")
	}
}

func TestPermissionCheckerUnsafeImpliesAll(t *testing.T) {
	pc := NewPermissionChecker("test")
	pc.Grant(CapabilityUnsafe)

	for _, cap := range AllCapabilities() {
		if !pc.HasCapability(cap) {
			t.Errorf("HasCapability(%q) = false (should be implied by Unsafe)", cap)
		}
	}
}

func TestPermissionCheckerCheckCapability(t *testing.T) {
	pc := NewPermissionChecker("test")

	err := pc.CheckCapability(CapabilityArchiveWrite)
	if err == nil {
		t.Fatal("CheckCapability should fail for ungranted capability")
	}
	capErr, ok := err.(*CapabilityError)
	if !ok {
		t.Fatalf("error is %T, want *CapabilityError", err)
	}
	if capErr.Capability != CapabilityArchiveWrite {
		t.Errorf("Capability = %q, want %q", capErr.Capability, CapabilityArchiveWrite)
	}

	pc.Grant(CapabilityArchiveWrite)
	if err := pc.CheckCapability(CapabilityArchiveWrite); err != nil {
		t.Errorf("CheckCapability after Grant: %v", err)
	}
}

func TestPermissionCheckerCapabilities(t *testing.T) {
	pc := NewPermissionChecker("test")
	pc.GrantAll([]Capability{CapabilityArchiveRead, CapabilityNetwork})

	caps := pc.Capabilities()
	if len(caps) != 2 {
		t.Errorf("Capabilities() returned %d entries, want 2", len(caps))
	}
}

func TestPermissionCheckerReset(t *testing.T) {
	pc := NewPermissionChecker("test")
	pc.Grant(CapabilityUnsafe)

	pc.Reset()
	if pc.HasCapability(CapabilityUnsafe) {
		t.Error("HasCapability(Unsafe) = true after Reset")
	}
	if len(pc.Capabilities()) != 0 {
		t.Error("Capabilities() not empty after Reset")
	}
}

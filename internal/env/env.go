// Package env describes the customizer host to plugins: which kind of
// host is running, its version, and a read-only view of the active
// settings. One Environment is built per host run and never changes
// afterward.
package env

import (
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/oreui/customizer/internal/settings"
)

// HostType identifies the kind of host running the customizer.
type HostType string

// The closed set of host types. No other value passes validation.
const (
	HostWebsite HostType = "Website"
	HostApp     HostType = "App"
	HostCLI     HostType = "CLI"
)

// ErrUnknownHostType indicates a host type outside the known set.
var ErrUnknownHostType = errors.New("unknown host type")

// ParseHostType converts s into a HostType.
func ParseHostType(s string) (HostType, error) {
	switch HostType(s) {
	case HostWebsite, HostApp, HostCLI:
		return HostType(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownHostType, s)
}

// Valid reports whether t is one of the known host types.
func (t HostType) Valid() bool {
	switch t {
	case HostWebsite, HostApp, HostCLI:
		return true
	}
	return false
}

func (t HostType) String() string {
	return string(t)
}

// Environment is the host description plugins observe. It is immutable
// after construction; the settings view reads the live store until the
// host seals it.
type Environment struct {
	version  *semver.Version
	hostType HostType
	settings settings.View
}

// New creates an Environment. The version must be a valid semantic
// version and host must be a known host type, so every constructed
// Environment satisfies those invariants.
func New(version string, host HostType, store *settings.Store) (*Environment, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return nil, fmt.Errorf("invalid host version %q: %w", version, err)
	}
	if !host.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownHostType, host)
	}
	if store == nil {
		store = settings.Default()
	}
	return &Environment{
		version:  v,
		hostType: host,
		settings: store.View(),
	}, nil
}

// Version returns the host version string.
func (e *Environment) Version() string {
	return e.version.String()
}

// SemVer returns the parsed host version.
func (e *Environment) SemVer() *semver.Version {
	return e.version
}

// Type returns the kind of host.
func (e *Environment) Type() HostType {
	return e.hostType
}

// Settings returns the read-only settings view.
func (e *Environment) Settings() settings.View {
	return e.settings
}

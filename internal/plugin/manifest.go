package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/Masterminds/semver/v3"

	"github.com/oreui/customizer/internal/plugin/security"
)

// PluginKind describes how a plugin is packaged.
type PluginKind int

const (
	// KindSingleFile - a lone script with no backing archive.
	KindSingleFile PluginKind = iota

	// KindDirectory - a directory tree loaded into an in-memory archive.
	KindDirectory

	// KindArchive - a zip package (.ouicplugin or .zip).
	KindArchive
)

// String returns a string representation of the kind.
func (k PluginKind) String() string {
	switch k {
	case KindSingleFile:
		return "single-file"
	case KindDirectory:
		return "directory"
	case KindArchive:
		return "archive"
	default:
		return "unknown"
	}
}

// HasArchive returns true if plugins of this kind carry a backing archive.
func (k PluginKind) HasArchive() bool {
	return k == KindDirectory || k == KindArchive
}

// Manifest describes a plugin's metadata and requirements.
type Manifest struct {
	// Identity
	Name        string `json:"name"`        // Unique identifier (e.g., "dark-mode")
	Version     string `json:"version"`     // Semver (e.g., "1.2.0")
	DisplayName string `json:"displayName"` // Human-readable name
	Description string `json:"description"` // Short description
	Author      string `json:"author"`      // Author name or org
	License     string `json:"license"`     // SPDX license identifier
	Homepage    string `json:"homepage"`    // URL to plugin homepage
	Repository  string `json:"repository"`  // Git repository URL

	// Entry point
	Main string `json:"main"` // Archive-relative path to the main script (default: "index.js")

	// Requirements
	MinEngineVersion string   `json:"minEngineVersion"` // Minimum customizer version
	Dependencies     []string `json:"dependencies"`     // Required plugins

	// Capabilities requested
	Capabilities []security.Capability `json:"capabilities"`

	// Settings contributed by the plugin: default values keyed by
	// dotted settings path, seeded into the host settings document
	// before any extension point runs.
	SettingsSchema map[string]SettingProperty `json:"settingsSchema"`

	// Internal: filesystem location (directory, or the package file for
	// archive plugins) and packaging kind, set by the loader.
	path string
	kind PluginKind
}

// SettingProperty describes a settings value a plugin contributes.
type SettingProperty struct {
	Type        string      `json:"type"`        // string, number, boolean, array, object
	Default     interface{} `json:"default"`     // Default value
	Description string      `json:"description"` // Property description
	Enum        []string    `json:"enum"`        // Allowed values for enum types
	Minimum     *float64    `json:"minimum"`     // Minimum value for numbers
	Maximum     *float64    `json:"maximum"`     // Maximum value for numbers
}

// Validation errors.
var (
	ErrMissingName          = errors.New("manifest: name is required")
	ErrInvalidName          = errors.New("manifest: name must be alphanumeric with hyphens")
	ErrMissingVersion       = errors.New("manifest: version is required")
	ErrInvalidVersion       = errors.New("manifest: version must be valid semver")
	ErrInvalidEngineVersion = errors.New("manifest: minEngineVersion must be valid semver")
	ErrInvalidMain          = errors.New("manifest: main must be a .js file")
	ErrInvalidCapability    = errors.New("manifest: invalid capability")
	ErrInvalidSettingType   = errors.New("manifest: invalid setting property type")
)

// namePattern validates plugin names.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*[a-z0-9]$|^[a-z]$`)

// validSettingTypes are the allowed setting property types.
var validSettingTypes = map[string]bool{
	"string":  true,
	"number":  true,
	"boolean": true,
	"array":   true,
	"object":  true,
}

// LoadManifest loads and validates a plugin manifest from a file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}

	// The manifest file sits in the plugin directory
	m.path = filepath.Dir(path)
	m.kind = KindDirectory
	return m, nil
}

// LoadManifestFromDir loads a manifest from a plugin directory.
// Looks for plugin.json in the directory.
func LoadManifestFromDir(dir string) (*Manifest, error) {
	return LoadManifest(filepath.Join(dir, "plugin.json"))
}

// ParseManifest parses and validates manifest JSON.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// NewManifestMinimal creates a minimal manifest for single-file plugins.
func NewManifestMinimal(name, path string) *Manifest {
	return &Manifest{
		Name:    name,
		Version: "0.0.0",
		Main:    "index.js",
		path:    path,
		kind:    KindSingleFile,
	}
}

// applyDefaults sets default values for optional fields.
func (m *Manifest) applyDefaults() {
	if m.Main == "" {
		m.Main = "index.js"
	}
	if m.Version == "" {
		m.Version = "0.0.0"
	}
}

// Validate checks that the manifest is valid.
func (m *Manifest) Validate() error {
	// Required fields
	if m.Name == "" {
		return ErrMissingName
	}
	if !namePattern.MatchString(m.Name) {
		return fmt.Errorf("%w: %s", ErrInvalidName, m.Name)
	}

	if m.Version == "" {
		return ErrMissingVersion
	}
	if _, err := semver.StrictNewVersion(m.Version); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidVersion, m.Version)
	}

	if m.MinEngineVersion != "" {
		if _, err := semver.StrictNewVersion(m.MinEngineVersion); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidEngineVersion, m.MinEngineVersion)
		}
	}

	// Main file
	if m.Main != "" && filepath.Ext(m.Main) != ".js" {
		return fmt.Errorf("%w: %s", ErrInvalidMain, m.Main)
	}

	// Capabilities
	for _, cap := range m.Capabilities {
		if !security.IsValidCapability(cap) {
			return fmt.Errorf("%w: %s", ErrInvalidCapability, cap)
		}
	}

	// Settings schema
	for name, prop := range m.SettingsSchema {
		if prop.Type != "" && !validSettingTypes[prop.Type] {
			return fmt.Errorf("%w: %s.%s has type %q", ErrInvalidSettingType, m.Name, name, prop.Type)
		}
	}

	return nil
}

// Path returns the plugin's filesystem location: the plugin directory, or
// the package file for archive plugins.
func (m *Manifest) Path() string {
	return m.path
}

// Kind returns how the plugin is packaged.
func (m *Manifest) Kind() PluginKind {
	return m.kind
}

// MainPath returns the full filesystem path to the main script. Only
// meaningful for single-file and directory plugins; archive plugins read
// their entry point from the archive instead.
func (m *Manifest) MainPath() string {
	return filepath.Join(m.path, m.Main)
}

// SemVer returns the parsed plugin version.
func (m *Manifest) SemVer() (*semver.Version, error) {
	return semver.StrictNewVersion(m.Version)
}

// SupportsEngine reports whether the plugin runs on the given customizer
// version. A manifest without minEngineVersion supports every version.
func (m *Manifest) SupportsEngine(v *semver.Version) bool {
	if m.MinEngineVersion == "" || v == nil {
		return true
	}
	min, err := semver.StrictNewVersion(m.MinEngineVersion)
	if err != nil {
		return true
	}
	return !v.LessThan(min)
}

// HasCapability returns true if the plugin requests the capability.
func (m *Manifest) HasCapability(cap security.Capability) bool {
	for _, c := range m.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// SettingDefault returns the default value for a contributed setting.
// Returns the default value and true if the property exists and has a default.
func (m *Manifest) SettingDefault(key string) (interface{}, bool) {
	if prop, ok := m.SettingsSchema[key]; ok && prop.Default != nil {
		return prop.Default, true
	}
	return nil, false
}

// AllSettingDefaults returns all contributed setting defaults by path.
func (m *Manifest) AllSettingDefaults() map[string]interface{} {
	defaults := make(map[string]interface{})
	for key, prop := range m.SettingsSchema {
		if prop.Default != nil {
			defaults[key] = prop.Default
		}
	}
	return defaults
}

// String returns a string representation of the manifest.
func (m *Manifest) String() string {
	display := m.DisplayName
	if display == "" {
		display = m.Name
	}
	return fmt.Sprintf("%s v%s", display, m.Version)
}

// MarshalJSON implements json.Marshaler.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	// Create an alias to avoid infinite recursion
	type ManifestAlias Manifest
	return json.Marshal((*ManifestAlias)(m))
}

// Clone creates a deep copy of the manifest.
func (m *Manifest) Clone() *Manifest {
	clone := *m

	// Deep copy slices
	if m.Dependencies != nil {
		clone.Dependencies = make([]string, len(m.Dependencies))
		copy(clone.Dependencies, m.Dependencies)
	}

	if m.Capabilities != nil {
		clone.Capabilities = make([]security.Capability, len(m.Capabilities))
		copy(clone.Capabilities, m.Capabilities)
	}

	if m.SettingsSchema != nil {
		clone.SettingsSchema = make(map[string]SettingProperty, len(m.SettingsSchema))
		for k, v := range m.SettingsSchema {
			clone.SettingsSchema[k] = v
		}
	}

	return &clone
}

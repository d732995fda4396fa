package plugin

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// maxManifestSize bounds how much manifest JSON discovery will read from
// a plugin package.
const maxManifestSize = 1 << 20

// archiveExts are the recognized plugin package extensions.
var archiveExts = map[string]bool{
	".ouicplugin": true,
	".zip":        true,
}

// Loader discovers plugins on the filesystem. A plugin is one of:
//   - a single script (name.js)
//   - a package file (name.ouicplugin or name.zip)
//   - a directory containing plugin.json, index.js, or plugin.js
//
// Discovery reads manifests only; plugin code and archive contents are
// loaded later by the Host.
type Loader struct {
	// Search paths for plugins (checked in order)
	paths []string

	// Discovered plugins cache
	discovered map[string]*PluginInfo
}

// PluginInfo contains discovery information about a plugin.
type PluginInfo struct {
	Name     string
	Path     string
	Kind     PluginKind
	Manifest *Manifest
	State    State
	Error    error
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPaths sets the plugin search paths.
func WithPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.paths = paths
	}
}

// NewLoader creates a new plugin loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		paths:      DefaultPluginPaths(),
		discovered: make(map[string]*PluginInfo),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// DefaultPluginPaths returns the default plugin search paths.
func DefaultPluginPaths() []string {
	paths := make([]string, 0, 3)

	// User plugins: ~/.config/ore-ui-customizer/plugins/
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "ore-ui-customizer", "plugins"))
	}

	// User data plugins: ~/.local/share/ore-ui-customizer/plugins/
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".local", "share", "ore-ui-customizer", "plugins"))
	}

	// Project plugins: .customizer/plugins/
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".customizer", "plugins"))
	}

	return paths
}

// Paths returns the configured search paths.
func (l *Loader) Paths() []string {
	return l.paths
}

// AddPath adds a search path.
func (l *Loader) AddPath(path string) {
	l.paths = append(l.paths, path)
}

// Discover finds all plugins in the search paths.
// Returns plugins sorted by name.
func (l *Loader) Discover() ([]*PluginInfo, error) {
	l.discovered = make(map[string]*PluginInfo)

	for _, basePath := range l.paths {
		if err := l.discoverInPath(basePath); err != nil {
			// Missing paths are not errors
			continue
		}
	}

	// Convert to sorted slice
	plugins := make([]*PluginInfo, 0, len(l.discovered))
	for _, info := range l.discovered {
		plugins = append(plugins, info)
	}

	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].Name < plugins[j].Name
	})

	return plugins, nil
}

// discoverInPath finds plugins in a single directory.
func (l *Loader) discoverInPath(basePath string) error {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // Not an error if path doesn't exist
		}
		return err
	}

	for _, entry := range entries {
		fullPath := filepath.Join(basePath, entry.Name())

		if !entry.IsDir() {
			ext := filepath.Ext(entry.Name())
			name := strings.TrimSuffix(entry.Name(), ext)
			switch {
			case ext == ".js":
				l.record(l.inspectSingleFile(name, fullPath))
			case archiveExts[ext]:
				l.record(l.inspectArchive(name, fullPath))
			}
			continue
		}

		l.record(l.inspectDirectory(entry.Name(), fullPath))
	}

	return nil
}

// record caches a discovery unless the name is already taken (first path wins).
func (l *Loader) record(info *PluginInfo) {
	if _, exists := l.discovered[info.Name]; !exists {
		l.discovered[info.Name] = info
	}
}

// inspectSingleFile describes a lone script plugin.
func (l *Loader) inspectSingleFile(name, scriptPath string) *PluginInfo {
	manifest := NewManifestMinimal(name, filepath.Dir(scriptPath))
	manifest.Main = filepath.Base(scriptPath)

	return &PluginInfo{
		Name:     name,
		Path:     scriptPath,
		Kind:     KindSingleFile,
		Manifest: manifest,
		State:    StateUnloaded,
	}
}

// inspectArchive reads the manifest out of a plugin package without
// extracting the rest of it.
func (l *Loader) inspectArchive(name, pkgPath string) *PluginInfo {
	info := &PluginInfo{
		Name:  name,
		Path:  pkgPath,
		Kind:  KindArchive,
		State: StateUnloaded,
	}

	manifest, err := readArchiveManifest(pkgPath)
	if err != nil {
		info.Error = fmt.Errorf("invalid manifest: %w", err)
		info.State = StateError
		return info
	}
	if manifest == nil {
		// No plugin.json in the package; synthesize from the file name
		manifest = NewManifestMinimal(name, pkgPath)
	}
	manifest.path = pkgPath
	manifest.kind = KindArchive

	info.Manifest = manifest
	info.Name = manifest.Name
	return info
}

// readArchiveManifest returns the parsed plugin.json from a zip package,
// or nil if the package has none.
func readArchiveManifest(pkgPath string) (*Manifest, error) {
	r, err := zip.OpenReader(pkgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open plugin package: %w", err)
	}
	defer r.Close()

	for _, zf := range r.File {
		if strings.TrimPrefix(zf.Name, "./") != "plugin.json" {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open manifest: %w", err)
		}
		data, err := io.ReadAll(io.LimitReader(rc, maxManifestSize))
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest: %w", err)
		}
		return ParseManifest(data)
	}
	return nil, nil
}

// inspectDirectory examines a plugin directory and returns its info.
func (l *Loader) inspectDirectory(name, path string) *PluginInfo {
	info := &PluginInfo{
		Name:  name,
		Path:  path,
		Kind:  KindDirectory,
		State: StateUnloaded,
	}

	// Try to load manifest
	manifestPath := filepath.Join(path, "plugin.json")
	if _, err := os.Stat(manifestPath); err == nil {
		manifest, err := LoadManifest(manifestPath)
		if err != nil {
			info.Error = fmt.Errorf("invalid manifest: %w", err)
			info.State = StateError
			return info
		}
		info.Manifest = manifest
		info.Name = manifest.Name // Use name from manifest
		return info
	}

	// No manifest - check for index.js
	if _, err := os.Stat(filepath.Join(path, "index.js")); err == nil {
		manifest := NewManifestMinimal(name, path)
		manifest.kind = KindDirectory
		info.Manifest = manifest
		return info
	}

	// Check for plugin.js (alternative entry point)
	if _, err := os.Stat(filepath.Join(path, "plugin.js")); err == nil {
		manifest := NewManifestMinimal(name, path)
		manifest.Main = "plugin.js"
		manifest.kind = KindDirectory
		info.Manifest = manifest
		return info
	}

	// No valid entry point found
	info.Error = ErrNoEntryPoint
	info.State = StateError
	return info
}

// Get returns info for a specific plugin by name.
func (l *Loader) Get(name string) (*PluginInfo, bool) {
	info, ok := l.discovered[name]
	return info, ok
}

// Refresh re-discovers plugins.
func (l *Loader) Refresh() ([]*PluginInfo, error) {
	return l.Discover()
}

// FindPlugin searches for a plugin by name across all paths.
// Returns the first match found.
func (l *Loader) FindPlugin(name string) (*PluginInfo, error) {
	// Check cache first
	if info, ok := l.discovered[name]; ok {
		return info, nil
	}

	for _, basePath := range l.paths {
		// Check directory plugin
		dirPath := filepath.Join(basePath, name)
		if stat, err := os.Stat(dirPath); err == nil && stat.IsDir() {
			info := l.inspectDirectory(name, dirPath)
			if info.Error == nil {
				l.discovered[name] = info
				return info, nil
			}
		}

		// Check package plugin
		for ext := range archiveExts {
			pkgPath := filepath.Join(basePath, name+ext)
			if _, err := os.Stat(pkgPath); err == nil {
				info := l.inspectArchive(name, pkgPath)
				if info.Error == nil {
					l.discovered[name] = info
					return info, nil
				}
			}
		}

		// Check single-file plugin
		scriptPath := filepath.Join(basePath, name+".js")
		if _, err := os.Stat(scriptPath); err == nil {
			info := l.inspectSingleFile(name, scriptPath)
			l.discovered[name] = info
			return info, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, name)
}

// ValidatePlugin checks if a plugin at the given path is valid.
func ValidatePlugin(path string) error {
	stat, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrPluginNotFound, path)
	}

	l := &Loader{}
	ext := filepath.Ext(path)
	name := strings.TrimSuffix(filepath.Base(path), ext)

	var info *PluginInfo
	switch {
	case stat.IsDir():
		info = l.inspectDirectory(name, path)
	case archiveExts[ext]:
		info = l.inspectArchive(name, path)
	case ext == ".js":
		info = l.inspectSingleFile(name, path)
	default:
		return fmt.Errorf("%w: unrecognized plugin path %s", ErrInvalidPlugin, path)
	}

	if info.Error != nil {
		return info.Error
	}
	if info.Manifest == nil {
		return ErrNoEntryPoint
	}
	return info.Manifest.Validate()
}

// LoadManifestOnly loads just the manifest without full plugin setup.
func (l *Loader) LoadManifestOnly(name string) (*Manifest, error) {
	info, err := l.FindPlugin(name)
	if err != nil {
		return nil, err
	}
	return info.Manifest, nil
}

// ListNames returns the names of all discovered plugins.
func (l *Loader) ListNames() []string {
	names := make([]string, 0, len(l.discovered))
	for name := range l.discovered {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of discovered plugins.
func (l *Loader) Count() int {
	return len(l.discovered)
}

// HasErrors returns true if any discovered plugins have errors.
func (l *Loader) HasErrors() bool {
	for _, info := range l.discovered {
		if info.Error != nil {
			return true
		}
	}
	return false
}

// Errors returns all plugins that have errors.
func (l *Loader) Errors() []*PluginInfo {
	var errored []*PluginInfo
	for _, info := range l.discovered {
		if info.Error != nil {
			errored = append(errored, info)
		}
	}
	return errored
}

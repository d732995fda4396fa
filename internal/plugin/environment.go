package plugin

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/oreui/customizer/internal/archive"
	"github.com/oreui/customizer/internal/blob"
)

// Environment is the facade through which a plugin reaches its own
// packaged files and metadata. The host creates a fresh Environment for
// each extension point invocation and discards it afterwards; it is never
// shared across concurrent invocations.
//
// Operations come in two families. Fetch operations access a file and
// fail explicitly: ErrNotFound when the path does not resolve to the
// expected entry kind, ErrUnsupportedOperation when the plugin has no
// backing archive. Find operations are probes: they report absence with
// a false result and never return an error, so callers can check for
// optional files without error handling.
type Environment struct {
	id         string
	manifest   *Manifest
	arc        *archive.Archive // nil for single-file plugins
	writeLimit int64            // max bytes per writable stream, 0 = unlimited
}

// EnvironmentOption configures an Environment.
type EnvironmentOption func(*Environment)

// WithInvocationID overrides the generated invocation ID.
func WithInvocationID(id string) EnvironmentOption {
	return func(e *Environment) {
		e.id = id
	}
}

// WithWriteLimit caps the number of bytes accepted by a single writable
// stream. Zero or negative means unlimited.
func WithWriteLimit(n int64) EnvironmentOption {
	return func(e *Environment) {
		e.writeLimit = n
	}
}

// NewEnvironment creates a plugin environment. arc is nil for single-file
// plugins; every archive-backed operation then fails with
// ErrUnsupportedOperation.
func NewEnvironment(manifest *Manifest, arc *archive.Archive, opts ...EnvironmentOption) (*Environment, error) {
	if manifest == nil {
		return nil, ErrNilManifest
	}

	e := &Environment{
		id:       uuid.NewString(),
		manifest: manifest,
		arc:      arc,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// ID returns the invocation ID.
func (e *Environment) ID() string {
	return e.id
}

// PluginName returns the name of the plugin this environment belongs to.
func (e *Environment) PluginName() string {
	return e.manifest.Name
}

// Manifest returns a copy of the plugin manifest. Each call returns a
// fresh copy so callers cannot alter what later reads observe.
func (e *Environment) Manifest() *Manifest {
	return e.manifest.Clone()
}

// HasArchive returns true if the plugin has a backing archive.
func (e *Environment) HasArchive() bool {
	return e.arc != nil
}

// ArchiveRoot returns the root directory of the plugin's archive for
// manual traversal. Returns false for single-file plugins.
func (e *Environment) ArchiveRoot() (*archive.Dir, bool) {
	if e.arc == nil {
		return nil, false
	}
	return e.arc.Root(), true
}

// FetchFileContents returns the raw contents of the file at path,
// relative to the archive root.
func (e *Environment) FetchFileContents(ctx context.Context, path string) ([]byte, error) {
	if err := e.requireArchive(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := e.arc.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return data, nil
}

// FetchFileStringContents returns the contents of the file at path
// decoded as UTF-8 text.
func (e *Environment) FetchFileStringContents(ctx context.Context, path string) (string, error) {
	data, err := e.FetchFileContents(ctx, path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FetchFileAsBlob returns the contents of the file at path as a blob with
// a media type guessed from the file extension.
func (e *Environment) FetchFileAsBlob(ctx context.Context, path string) (*blob.Memory, error) {
	data, err := e.FetchFileContents(ctx, path)
	if err != nil {
		return nil, err
	}
	return blob.NewMemory(data, blob.WithMediaType(blob.TypeByPath(path))), nil
}

// FetchFileAsWritableStream returns a writer that replaces the contents
// of the file at path when closed. The parent directory must exist;
// otherwise the operation fails with ErrNotFound. Writes past the
// environment's output limit fail with ErrOutputTooLarge and the file
// is left untouched.
func (e *Environment) FetchFileAsWritableStream(ctx context.Context, path string) (io.WriteCloser, error) {
	if err := e.requireArchive(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w, err := e.arc.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if e.writeLimit > 0 {
		return &limitedWriteCloser{w: w, remaining: e.writeLimit}, nil
	}
	return w, nil
}

// FindZipEntry probes for the entry at path, file or directory. The
// second result is false when nothing is there.
func (e *Environment) FindZipEntry(path string) (archive.Entry, bool) {
	if e.arc == nil {
		return nil, false
	}
	return e.arc.Find(path)
}

// FindZipFileEntry probes for a file entry at path. Returns false when
// the path is absent or names a directory.
func (e *Environment) FindZipFileEntry(path string) (*archive.File, bool) {
	if e.arc == nil {
		return nil, false
	}
	return e.arc.FindFile(path)
}

// FindZipDirectoryEntry probes for a directory entry at path. Returns
// false when the path is absent or names a file.
func (e *Environment) FindZipDirectoryEntry(path string) (*archive.Dir, bool) {
	if e.arc == nil {
		return nil, false
	}
	return e.arc.FindDir(path)
}

func (e *Environment) requireArchive() error {
	if e.arc == nil {
		return fmt.Errorf("plugin %q: %w", e.manifest.Name, ErrUnsupportedOperation)
	}
	return nil
}

// limitedWriteCloser bounds the bytes written through a stream. Once the
// limit is exceeded every Write fails, and Close discards the pending
// contents instead of committing them.
type limitedWriteCloser struct {
	w         io.WriteCloser
	remaining int64
	exceeded  bool
}

func (l *limitedWriteCloser) Write(p []byte) (int, error) {
	if l.exceeded {
		return 0, ErrOutputTooLarge
	}
	if int64(len(p)) > l.remaining {
		l.exceeded = true
		return 0, ErrOutputTooLarge
	}
	n, err := l.w.Write(p)
	l.remaining -= int64(n)
	return n, err
}

func (l *limitedWriteCloser) Close() error {
	if l.exceeded {
		// Leave the underlying stream uncommitted.
		return ErrOutputTooLarge
	}
	return l.w.Close()
}

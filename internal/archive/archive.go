// Package archive provides the in-memory file tree backing packaged
// plugins. A plugin archive is loaded once (from a zip or an unpacked
// directory) and then served entirely from memory.
//
// Paths are forward-slash and relative to the archive root. Lookups are
// case-sensitive. A leading "/" or "./" is stripped, "" and "." name the
// root directory, and a path that escapes the root via ".." resolves to
// nothing.
//
// Archive is safe for concurrent use.
package archive

import (
	"bytes"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Standard error values for archive operations.
// These align with POSIX errors for consistency with on-disk trees.
var (
	errIsDir  = syscall.EISDIR
	errNotDir = syscall.ENOTDIR
)

// Archive is an in-memory file tree.
type Archive struct {
	mu    sync.RWMutex
	files map[string]*File
	dirs  map[string]time.Time
}

// New creates an empty archive containing only the root directory.
func New() *Archive {
	return &Archive{
		files: make(map[string]*File),
		dirs:  map[string]time.Time{"": time.Now()},
	}
}

// Root returns the archive's root directory.
func (a *Archive) Root() *Dir {
	return &Dir{arc: a, path: ""}
}

// Find looks up the entry at p. It reports absence rather than erroring.
func (a *Archive) Find(p string) (Entry, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	p, ok := cleanPath(p)
	if !ok {
		return nil, false
	}
	if f, ok := a.files[p]; ok {
		return f, true
	}
	if _, ok := a.dirs[p]; ok {
		return &Dir{arc: a, path: p}, true
	}
	return nil, false
}

// FindFile looks up the file at p. It is absent when p does not exist
// or names a directory.
func (a *Archive) FindFile(p string) (*File, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	p, ok := cleanPath(p)
	if !ok {
		return nil, false
	}
	f, ok := a.files[p]
	return f, ok
}

// FindDir looks up the directory at p. It is absent when p does not
// exist or names a file.
func (a *Archive) FindDir(p string) (*Dir, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	p, ok := cleanPath(p)
	if !ok {
		return nil, false
	}
	if _, ok := a.dirs[p]; !ok {
		return nil, false
	}
	return &Dir{arc: a, path: p}, true
}

// ReadFile reads the entire content of the file at p.
func (a *Archive) ReadFile(p string) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	p, ok := cleanPath(p)
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: p, Err: fs.ErrNotExist}
	}
	f, found := a.files[p]
	if !found {
		if _, isDir := a.dirs[p]; isDir {
			return nil, &fs.PathError{Op: "read", Path: p, Err: errIsDir}
		}
		return nil, &fs.PathError{Op: "read", Path: p, Err: fs.ErrNotExist}
	}

	// Return a copy to prevent modification
	content := make([]byte, len(f.data))
	copy(content, f.data)
	return content, nil
}

// WriteFile creates or replaces the file at p. The parent directory
// must already exist.
func (a *Archive) WriteFile(p string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.writeFileLocked(p, data)
}

func (a *Archive) writeFileLocked(p string, data []byte) error {
	p, ok := cleanPath(p)
	if !ok || p == "" {
		return &fs.PathError{Op: "write", Path: p, Err: errIsDir}
	}
	if _, isDir := a.dirs[p]; isDir {
		return &fs.PathError{Op: "write", Path: p, Err: errIsDir}
	}

	dir := parentPath(p)
	if _, ok := a.dirs[dir]; !ok {
		return &fs.PathError{Op: "write", Path: p, Err: fs.ErrNotExist}
	}

	content := make([]byte, len(data))
	copy(content, data)

	a.files[p] = &File{
		arc:     a,
		path:    p,
		data:    content,
		modTime: time.Now(),
	}
	return nil
}

// Create opens a writer for the file at p. Nothing is visible in the
// tree until Close, which commits the buffered content as with
// WriteFile. The parent directory must already exist.
func (a *Archive) Create(p string) (io.WriteCloser, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	cp, ok := cleanPath(p)
	if !ok || cp == "" {
		return nil, &fs.PathError{Op: "create", Path: p, Err: errIsDir}
	}
	if _, isDir := a.dirs[cp]; isDir {
		return nil, &fs.PathError{Op: "create", Path: cp, Err: errIsDir}
	}
	dir := parentPath(cp)
	if _, ok := a.dirs[dir]; !ok {
		return nil, &fs.PathError{Op: "create", Path: cp, Err: fs.ErrNotExist}
	}

	return &entryWriter{arc: a, path: cp}, nil
}

// Mkdir creates the directory at p along with any missing parents.
func (a *Archive) Mkdir(p string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := cleanPath(p)
	if !ok {
		return &fs.PathError{Op: "mkdir", Path: p, Err: fs.ErrInvalid}
	}
	return a.mkdirLocked(p, time.Now())
}

func (a *Archive) mkdirLocked(p string, modTime time.Time) error {
	if p == "" {
		return nil
	}
	if _, isFile := a.files[p]; isFile {
		return &fs.PathError{Op: "mkdir", Path: p, Err: errNotDir}
	}
	parts := strings.Split(p, "/")
	current := ""
	for _, part := range parts {
		if current == "" {
			current = part
		} else {
			current += "/" + part
		}
		if _, isFile := a.files[current]; isFile {
			return &fs.PathError{Op: "mkdir", Path: current, Err: errNotDir}
		}
		if _, ok := a.dirs[current]; !ok {
			a.dirs[current] = modTime
		}
	}
	return nil
}

// Len returns the number of files in the archive.
func (a *Archive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return len(a.files)
}

// Files returns all file paths in the archive, sorted.
// Useful for testing and debugging.
func (a *Archive) Files() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	files := make([]string, 0, len(a.files))
	for p := range a.files {
		files = append(files, p)
	}
	sort.Strings(files)
	return files
}

// Dirs returns all directory paths in the archive, sorted. The root
// is included as "".
func (a *Archive) Dirs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	dirs := make([]string, 0, len(a.dirs))
	for p := range a.dirs {
		dirs = append(dirs, p)
	}
	sort.Strings(dirs)
	return dirs
}

// cleanPath normalizes p to the archive's internal form: forward-slash
// relative, no leading "/" or "./". The second return is false when p
// escapes the root.
func cleanPath(p string) (string, bool) {
	p = strings.TrimPrefix(p, "/")
	p = path.Clean(p)
	if p == "." {
		return "", true
	}
	if p == ".." || strings.HasPrefix(p, "../") {
		return p, false
	}
	return p, true
}

// parentPath returns the directory portion of an internal path, with
// "" naming the root.
func parentPath(p string) string {
	dir := path.Dir(p)
	if dir == "." {
		return ""
	}
	return dir
}

// entryWriter implements io.WriteCloser for Archive.Create.
type entryWriter struct {
	arc  *Archive
	path string
	buf  bytes.Buffer
	once sync.Once
	err  error
}

func (w *entryWriter) Write(p []byte) (n int, err error) {
	return w.buf.Write(p)
}

func (w *entryWriter) Close() error {
	w.once.Do(func() {
		w.arc.mu.Lock()
		defer w.arc.mu.Unlock()
		w.err = w.arc.writeFileLocked(w.path, w.buf.Bytes())
	})
	return w.err
}

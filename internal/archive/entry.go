package archive

import (
	"bytes"
	"io"
	"path"
	"sort"
	"strings"
	"time"
)

// Entry is a node in an archive tree: either a *File or a *Dir.
type Entry interface {
	// Name returns the entry's base name.
	Name() string
	// Path returns the entry's full path relative to the archive root.
	Path() string
	// IsDir reports whether the entry is a directory.
	IsDir() bool
	// ModTime returns the entry's modification time.
	ModTime() time.Time
}

var (
	_ Entry = (*File)(nil)
	_ Entry = (*Dir)(nil)
)

// File is a regular file entry. A File's content is fixed when the node
// is created; writing to its path stores a fresh node, so a held *File
// keeps observing the content it was found with.
type File struct {
	arc     *Archive
	path    string
	data    []byte
	modTime time.Time
}

// Name returns the file's base name.
func (f *File) Name() string { return path.Base(f.path) }

// Path returns the file's full path relative to the archive root.
func (f *File) Path() string { return f.path }

// IsDir reports false.
func (f *File) IsDir() bool { return false }

// ModTime returns the file's modification time.
func (f *File) ModTime() time.Time { return f.modTime }

// Size returns the file's size in bytes.
func (f *File) Size() int64 { return int64(len(f.data)) }

// Data returns a copy of the file's content.
func (f *File) Data() []byte {
	content := make([]byte, len(f.data))
	copy(content, f.data)
	return content
}

// Open returns a fresh reader over the file's content.
func (f *File) Open() io.ReadCloser {
	return io.NopCloser(bytes.NewReader(f.data))
}

// Dir is a directory entry. It is a live view over the archive, so
// entries added after the Dir was found are visible through it.
type Dir struct {
	arc  *Archive
	path string
}

// Name returns the directory's base name, or "." for the root.
func (d *Dir) Name() string {
	if d.path == "" {
		return "."
	}
	return path.Base(d.path)
}

// Path returns the directory's full path relative to the archive root.
// The root directory's path is "".
func (d *Dir) Path() string { return d.path }

// IsDir reports true.
func (d *Dir) IsDir() bool { return true }

// ModTime returns the directory's modification time.
func (d *Dir) ModTime() time.Time {
	d.arc.mu.RLock()
	defer d.arc.mu.RUnlock()

	return d.arc.dirs[d.path]
}

// Entry looks up a direct child by name.
func (d *Dir) Entry(name string) (Entry, bool) {
	if name == "" || strings.Contains(name, "/") {
		return nil, false
	}
	child := name
	if d.path != "" {
		child = d.path + "/" + name
	}
	return d.arc.Find(child)
}

// Entries returns the directory's direct children, sorted by name.
func (d *Dir) Entries() []Entry {
	d.arc.mu.RLock()
	defer d.arc.mu.RUnlock()

	prefix := ""
	if d.path != "" {
		prefix = d.path + "/"
	}

	var entries []Entry

	for p, f := range d.arc.files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		if rest == "" || strings.Contains(rest, "/") {
			continue // Not a direct child
		}
		entries = append(entries, f)
	}

	for p := range d.arc.dirs {
		if p == d.path || !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		if rest == "" || strings.Contains(rest, "/") {
			continue // Not a direct child
		}
		entries = append(entries, &Dir{arc: d.arc, path: p})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	return entries
}

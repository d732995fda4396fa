package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

var (
	// ErrEntryTooLarge is returned when an archive entry exceeds the
	// loader's configured size limit.
	ErrEntryTooLarge = errors.New("archive entry too large")

	errEscapes = errors.New("entry escapes archive root")
)

// LoadOption configures archive loading.
type LoadOption func(*loadOptions)

type loadOptions struct {
	maxEntrySize int64
}

// WithMaxEntrySize limits the decompressed size of a single entry.
// Zero means no limit.
func WithMaxEntrySize(n int64) LoadOption {
	return func(o *loadOptions) {
		o.maxEntrySize = n
	}
}

// FromZip materializes a zip archive into an in-memory tree. Directory
// entries become directories, parents are created implicitly, and
// symlink entries are skipped. An entry whose path escapes the root is
// rejected.
func FromZip(r *zip.Reader, opts ...LoadOption) (*Archive, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	a := New()
	for _, zf := range r.File {
		name, ok := cleanPath(zf.Name)
		if !ok {
			return nil, fmt.Errorf("invalid path %q in archive: %w", zf.Name, errEscapes)
		}
		if name == "" {
			continue
		}

		info := zf.FileInfo()
		if info.Mode()&fs.ModeSymlink != 0 {
			continue
		}
		if info.IsDir() {
			if err := a.addDir(name, zf.Modified); err != nil {
				return nil, fmt.Errorf("failed to add directory %q: %w", name, err)
			}
			continue
		}

		if o.maxEntrySize > 0 && int64(zf.UncompressedSize64) > o.maxEntrySize {
			return nil, fmt.Errorf("entry %q (%d bytes): %w", name, zf.UncompressedSize64, ErrEntryTooLarge)
		}

		data, err := readZipEntry(zf, o.maxEntrySize)
		if err != nil {
			return nil, fmt.Errorf("failed to read entry %q: %w", name, err)
		}
		if err := a.addFile(name, data, zf.Modified); err != nil {
			return nil, fmt.Errorf("failed to add entry %q: %w", name, err)
		}
	}
	return a, nil
}

// FromZipFile loads the zip archive at path into an in-memory tree.
func FromZipFile(path string, opts ...LoadOption) (*Archive, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	defer rc.Close()

	return FromZip(&rc.Reader, opts...)
}

// FromBytes loads a zip archive held in memory.
func FromBytes(b []byte, opts ...LoadOption) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}
	return FromZip(zr, opts...)
}

// FromDir loads an unpacked plugin directory into an in-memory tree.
// Symlinks are skipped.
func FromDir(root string, opts ...LoadOption) (*Archive, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	a := New()
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		name, ok := cleanPath(filepath.ToSlash(rel))
		if !ok || name == "" {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if d.IsDir() {
			return a.addDir(name, info.ModTime())
		}

		if o.maxEntrySize > 0 && info.Size() > o.maxEntrySize {
			return fmt.Errorf("file %q (%d bytes): %w", name, info.Size(), ErrEntryTooLarge)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		return a.addFile(name, data, info.ModTime())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load directory %s: %w", root, err)
	}
	return a, nil
}

// AddFile is a convenience method for adding files during setup,
// creating parent directories as needed.
func (a *Archive) AddFile(p string, content string) error {
	name, ok := cleanPath(p)
	if !ok || name == "" {
		return &fs.PathError{Op: "write", Path: p, Err: fs.ErrInvalid}
	}
	return a.addFile(name, []byte(content), time.Now())
}

// addFile stores a file node at the already-cleaned path p, creating
// parent directories. It takes ownership of data.
func (a *Archive) addFile(p string, data []byte, modTime time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.mkdirLocked(parentPath(p), modTime); err != nil {
		return err
	}
	if _, isDir := a.dirs[p]; isDir {
		return &fs.PathError{Op: "write", Path: p, Err: errIsDir}
	}
	a.files[p] = &File{
		arc:     a,
		path:    p,
		data:    data,
		modTime: modTime,
	}
	return nil
}

// addDir creates a directory node at the already-cleaned path p along
// with any missing parents.
func (a *Archive) addDir(p string, modTime time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.mkdirLocked(p, modTime)
}

func readZipEntry(zf *zip.File, limit int64) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if limit > 0 {
		// Guard against entries whose header understates their size.
		r = io.LimitReader(rc, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, ErrEntryTooLarge
	}
	return data, nil
}

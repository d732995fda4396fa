package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip create %s failed: %v", name, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("zip write %s failed: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip close failed: %v", err)
	}
	return buf.Bytes()
}

func TestArchive_AddFile(t *testing.T) {
	a := New()

	// AddFile should create parent directories
	err := a.AddFile("a/b/c/file.txt", "content")
	if err != nil {
		t.Fatalf("AddFile failed: %v", err)
	}

	if _, ok := a.FindFile("a/b/c/file.txt"); !ok {
		t.Error("file should exist")
	}
	if _, ok := a.FindDir("a/b/c"); !ok {
		t.Error("parent directory should exist")
	}
	if _, ok := a.FindDir("a/b"); !ok {
		t.Error("grandparent directory should exist")
	}
}

func TestArchive_FromBytes(t *testing.T) {
	data := buildZip(t, map[string]string{
		"index.js":          "export {}",
		"assets/icon.png":   "png-bytes",
		"assets/sub/":       "",
		"assets/sub/x.json": "{}",
	})

	a, err := FromBytes(data)
	if err != nil {
		t.Fatalf("FromBytes failed: %v", err)
	}

	content, err := a.ReadFile("index.js")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(content) != "export {}" {
		t.Errorf("content: got %q, want %q", content, "export {}")
	}

	// Parents created implicitly even without directory entries
	if _, ok := a.FindDir("assets"); !ok {
		t.Error("assets directory should exist")
	}
	if _, ok := a.FindDir("assets/sub"); !ok {
		t.Error("assets/sub directory should exist")
	}
	if got := a.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
}

func TestArchive_FromBytesRejectsEscape(t *testing.T) {
	data := buildZip(t, map[string]string{
		"../evil.txt": "nope",
	})

	_, err := FromBytes(data)
	if err == nil {
		t.Fatal("expected error for entry escaping the root")
	}
}

func TestArchive_FromBytesEntryLimit(t *testing.T) {
	data := buildZip(t, map[string]string{
		"big.bin": "0123456789",
	})

	_, err := FromBytes(data, WithMaxEntrySize(4))
	if !errors.Is(err, ErrEntryTooLarge) {
		t.Errorf("error = %v, want ErrEntryTooLarge", err)
	}

	if _, err := FromBytes(data, WithMaxEntrySize(10)); err != nil {
		t.Errorf("limit equal to size should load: %v", err)
	}
}

func TestArchive_FromDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "lib"), 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.js"), []byte("main"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "lib", "util.js"), []byte("util"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	a, err := FromDir(dir)
	if err != nil {
		t.Fatalf("FromDir failed: %v", err)
	}

	content, err := a.ReadFile("lib/util.js")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(content) != "util" {
		t.Errorf("content: got %q, want %q", content, "util")
	}
	if _, ok := a.FindDir("lib"); !ok {
		t.Error("lib directory should exist")
	}
}

func TestArchive_FindKinds(t *testing.T) {
	a := New()
	a.AddFile("dir/file.txt", "x")

	// A path resolves to at most one kind
	if _, ok := a.FindFile("dir"); ok {
		t.Error("FindFile on a directory should be absent")
	}
	if _, ok := a.FindDir("dir/file.txt"); ok {
		t.Error("FindDir on a file should be absent")
	}

	for _, p := range []string{"dir", "dir/file.txt", "missing"} {
		_, found := a.Find(p)
		_, isFile := a.FindFile(p)
		_, isDir := a.FindDir(p)
		if found != (isFile || isDir) {
			t.Errorf("Find(%q) = %v but file=%v dir=%v", p, found, isFile, isDir)
		}
		if isFile && isDir {
			t.Errorf("path %q is both file and directory", p)
		}
	}
}

func TestArchive_PathNormalization(t *testing.T) {
	a := New()
	a.AddFile("sub/file.txt", "x")

	for _, p := range []string{"sub/file.txt", "/sub/file.txt", "./sub/file.txt", "sub//file.txt", "sub/./file.txt", "sub/../sub/file.txt"} {
		if _, ok := a.FindFile(p); !ok {
			t.Errorf("FindFile(%q) should resolve", p)
		}
	}

	// Escaping the root resolves to nothing
	if _, ok := a.Find("../sub/file.txt"); ok {
		t.Error("path escaping the root should not resolve")
	}

	// "" and "." name the root
	for _, p := range []string{"", ".", "/"} {
		d, ok := a.FindDir(p)
		if !ok {
			t.Fatalf("FindDir(%q) should resolve to the root", p)
		}
		if d.Path() != "" {
			t.Errorf("root path = %q, want \"\"", d.Path())
		}
	}
}

func TestArchive_ReadFileErrors(t *testing.T) {
	a := New()
	a.AddFile("dir/file.txt", "x")

	_, err := a.ReadFile("missing")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadFile(missing) error = %v, want fs.ErrNotExist", err)
	}

	_, err = a.ReadFile("dir")
	if err == nil {
		t.Error("expected error when reading a directory")
	}
	if errors.Is(err, fs.ErrNotExist) {
		t.Error("reading a directory should not report not-exist")
	}
}

func TestArchive_ReadFileModification(t *testing.T) {
	a := New()
	original := "original content"
	a.AddFile("test.txt", original)

	content, _ := a.ReadFile("test.txt")
	content[0] = 'X'

	content2, _ := a.ReadFile("test.txt")
	if string(content2) != original {
		t.Error("modifying returned slice affected stored content")
	}
}

func TestArchive_WriteFile(t *testing.T) {
	a := New()
	a.AddFile("dir/old.txt", "old")

	if err := a.WriteFile("dir/new.txt", []byte("new")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	content, err := a.ReadFile("dir/new.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(content) != "new" {
		t.Errorf("content: got %q, want %q", content, "new")
	}

	// Parent must exist
	err = a.WriteFile("other/file.txt", []byte("x"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("WriteFile without parent: error = %v, want fs.ErrNotExist", err)
	}

	// A directory path cannot be written
	if err := a.WriteFile("dir", []byte("x")); err == nil {
		t.Error("expected error writing over a directory")
	}
}

func TestArchive_Create(t *testing.T) {
	a := New()
	a.AddFile("dir/seed.txt", "seed")

	w, err := a.Create("dir/out.txt")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := w.Write([]byte("hello ")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := w.Write([]byte("world")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// Nothing visible until Close
	if _, ok := a.FindFile("dir/out.txt"); ok {
		t.Error("file should not exist before Close")
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	content, err := a.ReadFile("dir/out.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(content) != "hello world" {
		t.Errorf("content: got %q, want %q", content, "hello world")
	}
}

func TestArchive_CreateMissingParent(t *testing.T) {
	a := New()

	_, err := a.Create("missing/out.txt")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Create without parent: error = %v, want fs.ErrNotExist", err)
	}
}

func TestFile_Accessors(t *testing.T) {
	a := New()
	a.AddFile("data/blob.bin", "abc")

	f, ok := a.FindFile("data/blob.bin")
	if !ok {
		t.Fatal("file should exist")
	}
	if f.Name() != "blob.bin" {
		t.Errorf("Name() = %q, want %q", f.Name(), "blob.bin")
	}
	if f.Path() != "data/blob.bin" {
		t.Errorf("Path() = %q, want %q", f.Path(), "data/blob.bin")
	}
	if f.IsDir() {
		t.Error("IsDir() should be false")
	}
	if f.Size() != 3 {
		t.Errorf("Size() = %d, want 3", f.Size())
	}

	data := f.Data()
	data[0] = 'X'
	if string(f.Data()) != "abc" {
		t.Error("modifying Data() result affected stored content")
	}

	r := f.Open()
	defer r.Close()
	content, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(content) != "abc" {
		t.Errorf("content: got %q, want %q", content, "abc")
	}
}

func TestFile_HeldNodeKeepsContent(t *testing.T) {
	a := New()
	a.AddFile("file.txt", "first")

	f, _ := a.FindFile("file.txt")
	if err := a.WriteFile("file.txt", []byte("second")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if string(f.Data()) != "first" {
		t.Error("held file node should keep the content it was found with")
	}
	f2, _ := a.FindFile("file.txt")
	if string(f2.Data()) != "second" {
		t.Error("fresh lookup should observe the replacement")
	}
}

func TestDir_Entries(t *testing.T) {
	a := New()
	a.AddFile("b.txt", "x")
	a.AddFile("a.txt", "x")
	a.AddFile("sub/nested.txt", "x")

	root := a.Root()
	entries := root.Entries()

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	want := []string{"a.txt", "b.txt", "sub"}
	if len(names) != len(want) {
		t.Fatalf("Entries() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, names[i], want[i])
		}
	}

	// Only direct children
	for _, e := range entries {
		if e.Name() == "nested.txt" {
			t.Error("nested file should not be a direct child of the root")
		}
	}
}

func TestDir_Entry(t *testing.T) {
	a := New()
	a.AddFile("sub/file.txt", "x")

	sub, ok := a.Root().Entry("sub")
	if !ok {
		t.Fatal("sub should exist")
	}
	d, ok := sub.(*Dir)
	if !ok {
		t.Fatalf("sub is %T, want *Dir", sub)
	}

	e, ok := d.Entry("file.txt")
	if !ok {
		t.Fatal("file.txt should exist")
	}
	if e.Path() != "sub/file.txt" {
		t.Errorf("Path() = %q, want %q", e.Path(), "sub/file.txt")
	}

	if _, ok := d.Entry("nested/too/deep"); ok {
		t.Error("Entry should reject names containing separators")
	}
}

func TestDir_LiveView(t *testing.T) {
	a := New()
	a.AddFile("sub/one.txt", "x")

	d, _ := a.FindDir("sub")
	if got := len(d.Entries()); got != 1 {
		t.Fatalf("Entries() = %d, want 1", got)
	}

	a.AddFile("sub/two.txt", "x")
	if got := len(d.Entries()); got != 2 {
		t.Errorf("Entries() after add = %d, want 2", got)
	}
}

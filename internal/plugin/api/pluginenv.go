package api

import (
	"context"
	"io"

	"github.com/dop251/goja"

	"github.com/oreui/customizer/internal/archive"
	"github.com/oreui/customizer/internal/blob"
	"github.com/oreui/customizer/internal/plugin/js"
	"github.com/oreui/customizer/internal/plugin/security"
)

// PluginEnvironment is the per-invocation file surface the host exposes
// to a plugin. The concrete implementation lives with the host; this
// package only needs the operations it binds into JavaScript.
//
// The surface has two families. Fetch operations fail explicitly when
// the path does not resolve to the expected kind of entry. Find
// operations probe: absence comes back as a missing value, never an
// error. A plugin without an archive (a single .js file) reports
// HasArchive false; its fetch operations fail and its find operations
// find nothing.
type PluginEnvironment interface {
	HasArchive() bool
	ArchiveRoot() (*archive.Dir, bool)
	FetchFileContents(ctx context.Context, path string) ([]byte, error)
	FetchFileStringContents(ctx context.Context, path string) (string, error)
	FetchFileAsBlob(ctx context.Context, path string) (*blob.Memory, error)
	FetchFileAsWritableStream(ctx context.Context, path string) (io.WriteCloser, error)
	FindZipEntry(path string) (archive.Entry, bool)
	FindZipFileEntry(path string) (*archive.File, bool)
	FindZipDirectoryEntry(path string) (*archive.Dir, bool)
}

// pluginEnvModule binds one invocation's environment as the pluginEnv
// global. Unlike the shared modules it never sits in a registry: the
// host constructs one per invocation, registers it, runs the extension
// point, and deletes the global again.
type pluginEnvModule struct {
	env      PluginEnvironment
	manifest any
}

// NewPluginEnvModule creates a pluginEnv binding for one invocation.
// manifest may be any JSON-encodable value; plugins see it as a plain
// frozen object.
func NewPluginEnvModule(env PluginEnvironment, manifest any) Module {
	return &pluginEnvModule{env: env, manifest: manifest}
}

func (m *pluginEnvModule) Name() string {
	return "pluginEnv"
}

func (m *pluginEnvModule) RequiredCapability() security.Capability {
	return ""
}

// Register binds the pluginEnv global:
//
//	pluginEnv.manifest                        -- frozen manifest object
//	pluginEnv.archiveRoot                     -- root directory entry, or null
//	pluginEnv.fetchFileContents(path)         -> Uint8Array
//	pluginEnv.fetchFileStringContents(path)   -> string
//	pluginEnv.fetchFileAsBlob(path)           -> blob
//	pluginEnv.fetchFileAsWritableStream(path) -> writable stream
//	pluginEnv.findZipEntry(path)              -> entry or null
//	pluginEnv.findZipFileEntry(path)          -> file entry or null
//	pluginEnv.findZipDirectoryEntry(path)     -> directory entry or null
//
// Fetch functions throw: a NotFoundError when the path does not resolve
// to the expected kind of entry, an UnsupportedOperationError when the
// plugin has no archive at all. Find functions never throw; anything
// that does not match comes back as null.
func (m *pluginEnvModule) Register(vm *goja.Runtime) error {
	bridge, err := js.NewBridge(vm)
	if err != nil {
		return err
	}

	obj := vm.NewObject()

	manifest, err := bridge.FrozenObject(m.manifest)
	if err != nil {
		return err
	}
	if err := obj.Set("manifest", manifest); err != nil {
		return err
	}

	var root goja.Value = goja.Null()
	if d, ok := m.env.ArchiveRoot(); ok {
		root, err = m.dirValue(vm, bridge, d)
		if err != nil {
			return err
		}
	}
	if err := obj.Set("archiveRoot", root); err != nil {
		return err
	}

	if err := obj.Set("fetchFileContents", func(call goja.FunctionCall) goja.Value {
		p := stringArg(vm, call, 0, "path")
		data, err := m.env.FetchFileContents(context.Background(), p)
		if err != nil {
			m.throwFetch(vm, err)
		}
		arr, err := bridge.Uint8Array(data)
		if err != nil {
			bridge.Throw(err)
		}
		return arr
	}); err != nil {
		return err
	}

	if err := obj.Set("fetchFileStringContents", func(call goja.FunctionCall) goja.Value {
		p := stringArg(vm, call, 0, "path")
		text, err := m.env.FetchFileStringContents(context.Background(), p)
		if err != nil {
			m.throwFetch(vm, err)
		}
		return vm.ToValue(text)
	}); err != nil {
		return err
	}

	if err := obj.Set("fetchFileAsBlob", func(call goja.FunctionCall) goja.Value {
		p := stringArg(vm, call, 0, "path")
		b, err := m.env.FetchFileAsBlob(context.Background(), p)
		if err != nil {
			m.throwFetch(vm, err)
		}
		v, err := m.blobValue(vm, bridge, b)
		if err != nil {
			bridge.Throw(err)
		}
		return v
	}); err != nil {
		return err
	}

	if err := obj.Set("fetchFileAsWritableStream", func(call goja.FunctionCall) goja.Value {
		p := stringArg(vm, call, 0, "path")
		w, err := m.env.FetchFileAsWritableStream(context.Background(), p)
		if err != nil {
			m.throwFetch(vm, err)
		}
		v, err := m.streamValue(vm, bridge, w)
		if err != nil {
			bridge.Throw(err)
		}
		return v
	}); err != nil {
		return err
	}

	if err := obj.Set("findZipEntry", func(call goja.FunctionCall) goja.Value {
		p := stringArg(vm, call, 0, "path")
		e, ok := m.env.FindZipEntry(p)
		if !ok {
			return goja.Null()
		}
		v, err := m.entryValue(vm, bridge, e)
		if err != nil {
			bridge.Throw(err)
		}
		return v
	}); err != nil {
		return err
	}

	if err := obj.Set("findZipFileEntry", func(call goja.FunctionCall) goja.Value {
		p := stringArg(vm, call, 0, "path")
		f, ok := m.env.FindZipFileEntry(p)
		if !ok {
			return goja.Null()
		}
		v, err := m.fileValue(vm, bridge, f)
		if err != nil {
			bridge.Throw(err)
		}
		return v
	}); err != nil {
		return err
	}

	if err := obj.Set("findZipDirectoryEntry", func(call goja.FunctionCall) goja.Value {
		p := stringArg(vm, call, 0, "path")
		d, ok := m.env.FindZipDirectoryEntry(p)
		if !ok {
			return goja.Null()
		}
		v, err := m.dirValue(vm, bridge, d)
		if err != nil {
			bridge.Throw(err)
		}
		return v
	}); err != nil {
		return err
	}

	if _, err := bridge.Freeze(obj); err != nil {
		return err
	}

	return vm.Set("pluginEnv", obj)
}

// throwFetch raises a fetch failure. The environment admits exactly two
// failure classes: on an archive-backed plugin every failure is a
// missing or wrong-kind entry, on a single-file plugin every failure is
// the archive surface being absent.
func (m *pluginEnvModule) throwFetch(vm *goja.Runtime, err error) {
	name := "NotFoundError"
	if !m.env.HasArchive() {
		name = "UnsupportedOperationError"
	}
	e := vm.NewGoError(err)
	_ = e.Set("name", name)
	panic(e)
}

func (m *pluginEnvModule) entryValue(vm *goja.Runtime, bridge *js.Bridge, e archive.Entry) (goja.Value, error) {
	switch v := e.(type) {
	case *archive.File:
		return m.fileValue(vm, bridge, v)
	case *archive.Dir:
		return m.dirValue(vm, bridge, v)
	default:
		return goja.Null(), nil
	}
}

// fileValue builds a file entry descriptor: name, path, directory flag,
// size.
func (m *pluginEnvModule) fileValue(vm *goja.Runtime, bridge *js.Bridge, f *archive.File) (goja.Value, error) {
	obj := vm.NewObject()
	if err := obj.Set("name", f.Name()); err != nil {
		return nil, err
	}
	if err := obj.Set("path", f.Path()); err != nil {
		return nil, err
	}
	if err := obj.Set("directory", false); err != nil {
		return nil, err
	}
	if err := obj.Set("size", f.Size()); err != nil {
		return nil, err
	}
	return bridge.Freeze(obj)
}

// dirValue builds a directory entry descriptor. entries() lists the
// directory's children as further descriptors, so a plugin can walk the
// whole archive from pluginEnv.archiveRoot without the find functions.
func (m *pluginEnvModule) dirValue(vm *goja.Runtime, bridge *js.Bridge, d *archive.Dir) (goja.Value, error) {
	obj := vm.NewObject()
	if err := obj.Set("name", d.Name()); err != nil {
		return nil, err
	}
	if err := obj.Set("path", d.Path()); err != nil {
		return nil, err
	}
	if err := obj.Set("directory", true); err != nil {
		return nil, err
	}
	if err := obj.Set("entries", func(call goja.FunctionCall) goja.Value {
		children := d.Entries()
		items := make([]interface{}, 0, len(children))
		for _, child := range children {
			v, err := m.entryValue(vm, bridge, child)
			if err != nil {
				bridge.Throw(err)
			}
			items = append(items, v)
		}
		return vm.NewArray(items...)
	}); err != nil {
		return nil, err
	}
	return bridge.Freeze(obj)
}

// blobValue builds a blob descriptor: size, media type, content digest,
// and accessors for the content itself.
func (m *pluginEnvModule) blobValue(vm *goja.Runtime, bridge *js.Bridge, b *blob.Memory) (goja.Value, error) {
	obj := vm.NewObject()
	if err := obj.Set("size", b.Size()); err != nil {
		return nil, err
	}
	mediaType, _ := b.MediaType()
	if err := obj.Set("type", mediaType); err != nil {
		return nil, err
	}
	d, _ := b.Digest()
	if err := obj.Set("digest", d); err != nil {
		return nil, err
	}
	if err := obj.Set("bytes", func(call goja.FunctionCall) goja.Value {
		arr, err := bridge.Uint8Array(b.Bytes())
		if err != nil {
			bridge.Throw(err)
		}
		return arr
	}); err != nil {
		return nil, err
	}
	if err := obj.Set("text", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(string(b.Bytes()))
	}); err != nil {
		return nil, err
	}
	return bridge.Freeze(obj)
}

// streamValue wraps an open writer. write accepts a string, Uint8Array,
// or ArrayBuffer; close replaces the target file's contents with what
// was written.
func (m *pluginEnvModule) streamValue(vm *goja.Runtime, bridge *js.Bridge, w io.WriteCloser) (goja.Value, error) {
	obj := vm.NewObject()
	if err := obj.Set("write", func(call goja.FunctionCall) goja.Value {
		data, err := bytesArg(call.Argument(0))
		if err != nil {
			bridge.Throw(err)
		}
		if _, err := w.Write(data); err != nil {
			bridge.Throw(err)
		}
		return goja.Undefined()
	}); err != nil {
		return nil, err
	}
	if err := obj.Set("close", func(call goja.FunctionCall) goja.Value {
		if err := w.Close(); err != nil {
			bridge.Throw(err)
		}
		return goja.Undefined()
	}); err != nil {
		return nil, err
	}
	if _, err := bridge.Freeze(obj); err != nil {
		return nil, err
	}
	return obj, nil
}

package settings

import (
	"github.com/tidwall/gjson"
)

// View is a read-only window onto a settings store.
type View interface {
	// Get returns the value at the given path.
	Get(path string) gjson.Result
	// Has reports whether a value exists at the given path.
	Has(path string) bool
	// Raw returns a copy of the current document.
	Raw() []byte
	// GetString returns a string value at the given path.
	GetString(path string) (string, error)
	// GetInt returns an integer value at the given path.
	GetInt(path string) (int, error)
	// GetBool returns a boolean value at the given path.
	GetBool(path string) (bool, error)
	// GetFloat returns a float64 value at the given path.
	GetFloat(path string) (float64, error)
}

type view struct {
	s *Store
}

var _ View = view{}

func (v view) Get(path string) gjson.Result {
	return v.s.Get(path)
}

func (v view) Has(path string) bool {
	return v.s.Get(path).Exists()
}

func (v view) Raw() []byte {
	return v.s.Raw()
}

func (v view) GetString(path string) (string, error) {
	r := v.s.Get(path)
	if !r.Exists() {
		return "", ErrSettingNotFound
	}
	if r.Type != gjson.String {
		return "", &TypeError{Path: path, Expected: "string", Actual: r.Type.String()}
	}
	return r.String(), nil
}

func (v view) GetInt(path string) (int, error) {
	r := v.s.Get(path)
	if !r.Exists() {
		return 0, ErrSettingNotFound
	}
	if r.Type != gjson.Number {
		return 0, &TypeError{Path: path, Expected: "int", Actual: r.Type.String()}
	}
	return int(r.Int()), nil
}

func (v view) GetBool(path string) (bool, error) {
	r := v.s.Get(path)
	if !r.Exists() {
		return false, ErrSettingNotFound
	}
	if r.Type != gjson.True && r.Type != gjson.False {
		return false, &TypeError{Path: path, Expected: "bool", Actual: r.Type.String()}
	}
	return r.Bool(), nil
}

func (v view) GetFloat(path string) (float64, error) {
	r := v.s.Get(path)
	if !r.Exists() {
		return 0, ErrSettingNotFound
	}
	if r.Type != gjson.Number {
		return 0, &TypeError{Path: path, Expected: "float64", Actual: r.Type.String()}
	}
	return r.Float(), nil
}

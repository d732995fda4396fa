package settings

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDocument indicates the settings document is not valid JSON.
	ErrInvalidDocument = errors.New("settings document is not valid JSON")

	// ErrSealed indicates a mutation was attempted after the settings
	// were applied.
	ErrSealed = errors.New("settings are sealed")

	// ErrSettingNotFound indicates no value exists at the requested path.
	ErrSettingNotFound = errors.New("setting not found")
)

// TypeError indicates a setting value has a different type than requested.
type TypeError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("setting %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

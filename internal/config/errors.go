package config

import (
	"errors"
	"fmt"
)

// Error codes for configuration resolution.
const (
	ErrCodeProfileNotFound = "E201" // Profile file does not exist
	ErrCodeParse           = "E202" // Profile file is not valid YAML or not a mapping
	ErrCodeOverride        = "E203" // Malformed or inapplicable override
	ErrCodeSchema          = "E204" // Tree does not satisfy #Config
	ErrCodeDefaultsCycle   = "E205" // Profile defaults list refers back to itself
	ErrCodeInvalid         = "E206" // Settings failed semantic validation
)

// ErrKeyNotFound is returned by Config.Lookup for paths that do not resolve.
var ErrKeyNotFound = errors.New("key not found")

// LoadError describes why a profile could not be resolved.
type LoadError struct {
	Code    string
	Path    string // File or dotted key the error refers to, if any
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ErrorCode returns the LoadError code carried by err, or "" if there is none.
func ErrorCode(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

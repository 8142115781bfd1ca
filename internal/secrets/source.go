package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Source looks up a variable by name.
type Source interface {
	Lookup(key string) (string, bool)
}

// EnvSource reads the process environment.
type EnvSource struct{}

// Lookup implements Source.
func (EnvSource) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// MapSource serves values from a fixed map.
type MapSource map[string]string

// Lookup implements Source.
func (m MapSource) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Chain tries each source in order and returns the first non-empty value.
// A key set to "" in an earlier source does not hide a later one.
type Chain []Source

// Lookup implements Source.
func (c Chain) Lookup(key string) (string, bool) {
	for _, src := range c {
		if v, ok := src.Lookup(key); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// ReadEnvFile parses a dotenv file without touching the process environment.
// If optional is true, a missing file yields an empty source.
func ReadEnvFile(path string, optional bool) (MapSource, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return MapSource{}, nil
		}
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return MapSource(values), nil
}

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/trainpipe/internal/canon"
)

// LoadOptions selects the profile to resolve.
type LoadOptions struct {
	// Dir is the directory holding profile files.
	Dir string

	// Profile is the profile name, e.g. "main" or "test".
	Profile string

	// Overrides are command-line style overrides applied last.
	Overrides []string

	// Logger receives debug output. Nil discards it.
	Logger *slog.Logger
}

// Load resolves a profile into an immutable Config.
// Any failure is a *LoadError; nothing is partially returned.
func Load(opts LoadOptions) (*Config, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Profile == "" {
		return nil, &LoadError{Code: ErrCodeProfileNotFound, Message: "profile name is required"}
	}

	overrides, err := ParseOverrides(opts.Overrides)
	if err != nil {
		return nil, err
	}

	c := &composer{dir: opts.Dir, loading: map[string]bool{}}
	layered, err := c.compose(opts.Profile)
	if err != nil {
		return nil, err
	}
	logger.Debug("profile composed", "profile", opts.Profile, "files", c.files)

	sch, err := newSchema()
	if err != nil {
		return nil, err
	}

	resolved, err := sch.resolve(layered)
	if err != nil {
		return nil, err
	}

	if len(overrides) > 0 {
		withOverrides := cloneMap(layered)
		for _, ov := range overrides {
			if err := ov.apply(withOverrides, resolved); err != nil {
				return nil, err
			}
		}
		resolved, err = sch.resolve(withOverrides)
		if err != nil {
			return nil, err
		}
		logger.Debug("overrides applied", "count", len(overrides))
	}

	settings, err := decodeSettings(resolved)
	if err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	fp, err := canon.Fingerprint(resolved)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeSchema, Message: err.Error(), Err: err}
	}

	return &Config{
		profile:     opts.Profile,
		files:       c.files,
		tree:        resolved,
		settings:    settings,
		fingerprint: fp,
	}, nil
}

// decodeSettings maps a resolved tree onto Settings, rejecting fields the
// struct does not declare. Model.Params is taken from the tree itself so
// integers keep the int64 type they have there instead of the float64 a
// JSON round trip would give them.
func decodeSettings(tree map[string]any) (Settings, error) {
	data, err := json.Marshal(tree)
	if err != nil {
		return Settings{}, &LoadError{Code: ErrCodeSchema, Message: fmt.Sprintf("encode settings: %v", err), Err: err}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var s Settings
	if err := dec.Decode(&s); err != nil {
		return Settings{}, &LoadError{Code: ErrCodeSchema, Message: fmt.Sprintf("decode settings: %v", err), Err: err}
	}
	if model, ok := tree["model"].(map[string]any); ok {
		if params, ok := model["params"].(map[string]any); ok {
			s.Model.Params = cloneMap(params)
		}
	}
	return s, nil
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultsKey is the reserved profile key listing other profiles to compose.
const defaultsKey = "defaults"

// selfEntry marks where a profile's own body is merged within its defaults list.
const selfEntry = "_self_"

var profileExts = []string{".yaml", ".yml"}

// profileFile locates <dir>/<name>.yaml or <dir>/<name>.yml.
func profileFile(dir, name string) (string, error) {
	for _, ext := range profileExts {
		path := filepath.Join(dir, name+ext)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", &LoadError{Code: ErrCodeProfileNotFound, Path: path, Message: err.Error(), Err: err}
		}
	}
	return "", &LoadError{
		Code:    ErrCodeProfileNotFound,
		Path:    filepath.Join(dir, name+profileExts[0]),
		Message: fmt.Sprintf("profile %q not found in %s", name, dir),
		Err:     fs.ErrNotExist,
	}
}

// readProfile parses a profile file into a tree. An empty file is an empty tree.
func readProfile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Path: path, Message: err.Error(), Err: err}
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Path: path, Message: err.Error(), Err: err}
	}
	if raw == nil {
		return map[string]any{}, nil
	}

	m, ok := raw.(map[string]any)
	if !ok {
		return nil, &LoadError{Code: ErrCodeParse, Path: path, Message: fmt.Sprintf("top level must be a mapping, got %T", raw)}
	}
	tree, err := normalizeMap(m)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Path: path, Message: err.Error(), Err: err}
	}
	return tree, nil
}

// defaultsEntry is one item of a profile's defaults list.
// Group is empty for a plain profile reference.
type defaultsEntry struct {
	Group  string
	Option string
}

// parseDefaults extracts and removes the defaults list from a profile body.
func parseDefaults(path string, body map[string]any) ([]defaultsEntry, error) {
	raw, ok := body[defaultsKey]
	if !ok {
		return nil, nil
	}
	delete(body, defaultsKey)

	list, ok := raw.([]any)
	if !ok {
		return nil, &LoadError{Code: ErrCodeParse, Path: path, Message: "defaults must be a list"}
	}

	entries := make([]defaultsEntry, 0, len(list))
	for i, item := range list {
		switch v := item.(type) {
		case string:
			entries = append(entries, defaultsEntry{Option: v})
		case map[string]any:
			if len(v) != 1 {
				return nil, &LoadError{Code: ErrCodeParse, Path: path, Message: fmt.Sprintf("defaults[%d]: group entry must have exactly one key", i)}
			}
			for group, opt := range v {
				name, ok := opt.(string)
				if !ok {
					return nil, &LoadError{Code: ErrCodeParse, Path: path, Message: fmt.Sprintf("defaults[%d]: option for group %q must be a string", i, group)}
				}
				entries = append(entries, defaultsEntry{Group: group, Option: name})
			}
		default:
			return nil, &LoadError{Code: ErrCodeParse, Path: path, Message: fmt.Sprintf("defaults[%d]: unsupported entry %T", i, item)}
		}
	}
	return entries, nil
}

// composer resolves a profile and its defaults list into one tree.
type composer struct {
	dir     string
	loading map[string]bool
	files   []string
}

func (c *composer) compose(name string) (map[string]any, error) {
	path, err := profileFile(c.dir, name)
	if err != nil {
		return nil, err
	}
	if c.loading[path] {
		return nil, &LoadError{Code: ErrCodeDefaultsCycle, Path: path, Message: fmt.Sprintf("profile %q includes itself through its defaults list", name)}
	}
	c.loading[path] = true
	defer delete(c.loading, path)

	body, err := readProfile(path)
	if err != nil {
		return nil, err
	}
	c.files = append(c.files, path)

	entries, err := parseDefaults(path, body)
	if err != nil {
		return nil, err
	}

	out := map[string]any{}
	selfMerged := false
	for _, e := range entries {
		switch {
		case e.Group == "" && e.Option == selfEntry:
			out = merge(out, body)
			selfMerged = true
		case e.Group == "":
			sub, err := c.compose(e.Option)
			if err != nil {
				return nil, err
			}
			out = merge(out, sub)
		default:
			sub, err := c.compose(filepath.Join(e.Group, e.Option))
			if err != nil {
				return nil, err
			}
			out = merge(out, map[string]any{e.Group: sub})
		}
	}
	if !selfMerged {
		out = merge(out, body)
	}
	return out, nil
}

// normalizeMap converts yaml.v3 output into the tree form used throughout
// the package: string keys everywhere, timestamps as RFC 3339 strings.
func normalizeMap(m map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		nv, err := normalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = nv
	}
	return out, nil
}

func normalizeList(l []any) ([]any, error) {
	out := make([]any, len(l))
	for i, v := range l {
		nv, err := normalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = nv
	}
	return out, nil
}

func normalizeValue(v any) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		return normalizeMap(val)
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, elem := range val {
			m[fmt.Sprint(k)] = elem
		}
		return normalizeMap(m)
	case []any:
		return normalizeList(val)
	case time.Time:
		return val.Format(time.RFC3339Nano), nil
	case nil, bool, string, int, int64, uint64, float64:
		return val, nil
	default:
		return nil, fmt.Errorf("unsupported value of type %T", v)
	}
}

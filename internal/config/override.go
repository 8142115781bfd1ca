package config

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// OverrideOp is the kind of change an override makes.
type OverrideOp int

const (
	// OverrideSet replaces the value of a key that already exists.
	OverrideSet OverrideOp = iota
	// OverrideAdd introduces a key that does not exist yet (+key=value).
	OverrideAdd
	// OverrideDelete removes a key (~key).
	OverrideDelete
)

// Override is one parsed command-line override.
type Override struct {
	Op    OverrideOp
	Key   string
	Value any
	Raw   string
}

// keySegment matches one dotted key segment: an identifier, or a list index.
var keySegment = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_-]*|[0-9]+)$`)

// ParseOverride parses "key=value", "+key=value" or "~key".
// The value is decoded as YAML, so 0.1 is a float, 3 an int, true a bool,
// [a, b] a list and "3" a string.
// Numeric key segments index existing list elements, as in
// stages.train.command.1=train.py.
func ParseOverride(arg string) (Override, error) {
	ov := Override{Op: OverrideSet, Raw: arg}
	rest := arg
	switch {
	case strings.HasPrefix(rest, "+"):
		ov.Op = OverrideAdd
		rest = rest[1:]
	case strings.HasPrefix(rest, "~"):
		ov.Op = OverrideDelete
		rest = rest[1:]
	}

	key, raw, hasValue := strings.Cut(rest, "=")
	if err := validateKey(key); err != nil {
		return Override{}, &LoadError{Code: ErrCodeOverride, Path: key, Message: fmt.Sprintf("override %q: %v", arg, err)}
	}
	ov.Key = key

	if ov.Op == OverrideDelete {
		if hasValue && raw != "" {
			return Override{}, &LoadError{Code: ErrCodeOverride, Path: key, Message: fmt.Sprintf("override %q: delete takes no value", arg)}
		}
		return ov, nil
	}
	if !hasValue {
		return Override{}, &LoadError{Code: ErrCodeOverride, Path: key, Message: fmt.Sprintf("override %q: expected key=value", arg)}
	}

	value, err := parseOverrideValue(raw)
	if err != nil {
		return Override{}, &LoadError{Code: ErrCodeOverride, Path: key, Message: fmt.Sprintf("override %q: %v", arg, err), Err: err}
	}
	ov.Value = value
	return ov, nil
}

// ParseOverrides parses every argument, stopping at the first error.
func ParseOverrides(args []string) ([]Override, error) {
	out := make([]Override, 0, len(args))
	for _, arg := range args {
		ov, err := ParseOverride(arg)
		if err != nil {
			return nil, err
		}
		out = append(out, ov)
	}
	return out, nil
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}
	for _, seg := range splitPath(key) {
		if !keySegment.MatchString(seg) {
			return fmt.Errorf("invalid key segment %q", seg)
		}
	}
	return nil
}

func parseOverrideValue(raw string) (any, error) {
	if raw == "" {
		return "", nil
	}
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	if m, ok := v.(map[string]any); ok {
		return normalizeMap(m)
	}
	if l, ok := v.([]any); ok {
		return normalizeList(l)
	}
	return v, nil
}

// apply applies an override to a layered tree. known is the tree resolved
// without overrides; a plain set must name a key that exists there.
func (ov Override) apply(tree, known map[string]any) error {
	segs := splitPath(ov.Key)
	switch ov.Op {
	case OverrideDelete:
		if !deletePath(tree, segs) {
			if _, ok := lookup(known, ov.Key); ok {
				return &LoadError{Code: ErrCodeOverride, Path: ov.Key, Message: "cannot delete a schema default"}
			}
			return &LoadError{Code: ErrCodeOverride, Path: ov.Key, Message: "cannot delete: key not found"}
		}
		return nil
	case OverrideAdd:
		if _, ok := lookup(known, ov.Key); ok {
			return &LoadError{Code: ErrCodeOverride, Path: ov.Key, Message: fmt.Sprintf("key already exists, use %s=... to change it", ov.Key)}
		}
	default:
		if _, ok := lookup(known, ov.Key); !ok {
			return &LoadError{Code: ErrCodeOverride, Path: ov.Key, Message: fmt.Sprintf("key is not in config, use +%s=... to add it", ov.Key)}
		}
	}
	if !setPath(tree, segs, cloneValue(ov.Value)) {
		return &LoadError{Code: ErrCodeOverride, Path: ov.Key, Message: "a parent of this key is not a mapping, or a list index is out of range"}
	}
	return nil
}

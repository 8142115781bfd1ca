package config

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource string

// schema holds the compiled #Config definition. A schema and the values
// encoded against it must share one cue.Context.
type schema struct {
	ctx *cue.Context
	def cue.Value
}

func newSchema() (*schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	def := v.LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("lookup #Config: %w", err)
	}
	return &schema{ctx: ctx, def: def}, nil
}

// resolve unifies a layered tree with #Config, fills defaults, and returns
// the concrete result as a tree.
func (s *schema) resolve(tree map[string]any) (map[string]any, error) {
	data := s.ctx.Encode(tree)
	if err := data.Err(); err != nil {
		return nil, schemaError(err)
	}

	v := s.def.Unify(data)
	if err := v.Validate(); err != nil {
		return nil, schemaError(err)
	}

	out, err := export(v, "")
	if err != nil {
		return nil, err
	}
	m, ok := out.(map[string]any)
	if !ok {
		return nil, &LoadError{Code: ErrCodeSchema, Message: fmt.Sprintf("resolved configuration is %T, not a mapping", out)}
	}
	return m, nil
}

// export converts a CUE value into a tree, taking defaults where a
// disjunction offers one. Non-concrete leaves are missing required values.
func export(v cue.Value, path string) (any, error) {
	if d, ok := v.Default(); ok {
		v = d
	}
	if err := v.Err(); err != nil {
		return nil, schemaError(err)
	}

	switch v.Kind() {
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, schemaError(err)
		}
		out := map[string]any{}
		for iter.Next() {
			label := iter.Selector().Unquoted()
			child, err := export(iter.Value(), joinPath(path, label))
			if err != nil {
				return nil, err
			}
			out[label] = child
		}
		return out, nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, schemaError(err)
		}
		out := []any{}
		for i := 0; iter.Next(); i++ {
			child, err := export(iter.Value(), joinPath(path, fmt.Sprint(i)))
			if err != nil {
				return nil, err
			}
			out = append(out, child)
		}
		return out, nil
	case cue.StringKind:
		return v.String()
	case cue.IntKind:
		return v.Int64()
	case cue.FloatKind:
		return v.Float64()
	case cue.BoolKind:
		return v.Bool()
	case cue.NullKind:
		return nil, nil
	default:
		return nil, &LoadError{
			Code:    ErrCodeSchema,
			Path:    path,
			Message: fmt.Sprintf("missing required value of type %v", v.IncompleteKind()),
		}
	}
}

func joinPath(parent, label string) string {
	if parent == "" {
		return label
	}
	return parent + "." + label
}

// schemaError reports the first CUE error with its field path.
func schemaError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: ErrCodeSchema, Message: err.Error(), Err: err}
	}
	first := errs[0]
	msg, args := first.Msg()
	return &LoadError{
		Code:    ErrCodeSchema,
		Path:    strings.Join(first.Path(), "."),
		Message: fmt.Sprintf(msg, args...),
		Err:     err,
	}
}

// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/json"
)

// Result holds a decoded value together with the unified CUE value it was
// decoded from.
type Result[T any] struct {
	Value   *T
	Unified cue.Value
}

// ParseAndDecode compiles data as CUE, unifies it with the schema
// definition at schemaPath and decodes the result into T.
func ParseAndDecode[T any](schema, data []byte, schemaPath string, opts ...Option) (*Result[T], error) {
	o := applyOptions(opts)
	if err := CheckFileSize(data, o.maxFileSize, o.filename); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()
	user := ctx.CompileBytes(data, cue.Filename(o.filename))
	if user.Err() != nil {
		return nil, FormatError(user.Err(), o.filename)
	}
	return unifyAndDecode[T](ctx, schema, user, schemaPath, o)
}

// DecodeJSON is ParseAndDecode for JSON documents. JSON syntax errors are
// reported with the JSON decoder's position rather than as CUE errors.
func DecodeJSON[T any](schema, data []byte, schemaPath string, opts ...Option) (*Result[T], error) {
	o := applyOptions(opts)
	if err := CheckFileSize(data, o.maxFileSize, o.filename); err != nil {
		return nil, err
	}

	expr, err := json.Extract(o.filename, data)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid JSON: %w", o.filename, err)
	}

	ctx := cuecontext.New()
	user := ctx.BuildExpr(expr, cue.Filename(o.filename))
	if user.Err() != nil {
		return nil, FormatError(user.Err(), o.filename)
	}
	return unifyAndDecode[T](ctx, schema, user, schemaPath, o)
}

func applyOptions(opts []Option) parseOptions {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func unifyAndDecode[T any](ctx *cue.Context, schema []byte, user cue.Value, schemaPath string, o parseOptions) (*Result[T], error) {
	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}
	def := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if def.Err() != nil {
		return nil, fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, def.Err())
	}

	unified := def.Unify(user)
	if err := unified.Validate(cue.Concrete(o.concrete)); err != nil {
		return nil, FormatError(err, o.filename)
	}

	var out T
	if err := unified.Decode(&out); err != nil {
		return nil, FormatError(err, o.filename)
	}
	return &Result[T]{Value: &out, Unified: unified}, nil
}

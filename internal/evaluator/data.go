// SPDX-License-Identifier: MPL-2.0

package evaluator

import (
	"context"
	"errors"
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"github.com/invowk/modfs/pkg/cueutil"
	"github.com/invowk/modfs/pkg/loader"
)

// anySchema accepts every document; JSON modules are only checked for
// syntax and concreteness.
const anySchema = "#Module: _"

type (
	// JSON evaluates JSON documents. The parsed document becomes the
	// module's export value; top-level object keys are also named exports.
	JSON struct{}

	// TOML evaluates TOML documents. Top-level keys become named exports.
	TOML struct{}
)

// Evaluate implements loader.Evaluator.
func (JSON) Evaluate(_ context.Context, content []byte, mod *loader.Module) error {
	res, err := cueutil.DecodeJSON[any]([]byte(anySchema), content, "#Module",
		cueutil.WithFilename(mod.ID), cueutil.WithConcrete(true))
	if err != nil {
		return err
	}
	doc := *res.Value
	if obj, ok := doc.(map[string]any); ok {
		for k, v := range obj {
			mod.Exports.Set(k, v)
		}
	}
	mod.Exports.Replace(doc)
	return nil
}

// Evaluate implements loader.Evaluator.
func (TOML) Evaluate(_ context.Context, content []byte, mod *loader.Module) error {
	var doc map[string]any
	if err := toml.Unmarshal(content, &doc); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return fmt.Errorf("%s:%d:%d: %w", mod.ID, row, col, err)
		}
		return fmt.Errorf("%s: %w", mod.ID, err)
	}
	for k, v := range doc {
		mod.Exports.Set(k, v)
	}
	return nil
}

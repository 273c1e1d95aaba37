// SPDX-License-Identifier: MPL-2.0

package evaluator

import (
	"errors"
	"fmt"
)

// ErrUnsupported is returned by Mux for files without a registered evaluator.
var ErrUnsupported = errors.New("unsupported module format")

// UnsupportedError reports the module and extension Mux could not dispatch.
type UnsupportedError struct {
	ID  string
	Ext string
}

func (e *UnsupportedError) Error() string {
	if e.Ext == "" {
		return fmt.Sprintf("%s: no evaluator for files without extension", e.ID)
	}
	return fmt.Sprintf("%s: no evaluator for %q files", e.ID, e.Ext)
}

func (e *UnsupportedError) Unwrap() error { return ErrUnsupported }

// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"errors"
	"fmt"
)

// ErrFetchFailed is matched by every *FetchError.
var ErrFetchFailed = errors.New("fetch failed")

// FetchError reports a dependency that could not be fetched.
type FetchError struct {
	Name       string
	Constraint string
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s@%s: %v", e.Name, e.Constraint, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is reports whether target is ErrFetchFailed.
func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }

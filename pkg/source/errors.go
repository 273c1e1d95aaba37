// SPDX-License-Identifier: MPL-2.0

package source

import "errors"

var (
	// ErrNotFound is returned when a source has no package or no version
	// matching the requested constraint. Fallback moves on to the next
	// source only for this error.
	ErrNotFound = errors.New("package not found")
	// ErrFormat is returned for malformed archives.
	ErrFormat = errors.New("malformed archive")
)

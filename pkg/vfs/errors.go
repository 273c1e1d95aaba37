// SPDX-License-Identifier: MPL-2.0

package vfs

import (
	"errors"
	"fmt"
)

// Sentinel errors identifying the kind of a traversal or content failure.
// Match them with errors.Is; the wrapping *PathError carries the location.
var (
	ErrNotFound    = errors.New("no such file or directory")
	ErrNotDir      = errors.New("not a directory")
	ErrNotFile     = errors.New("not a file")
	ErrCyclic      = errors.New("too many levels of symbolic links")
	ErrExists      = errors.New("entry already exists")
	ErrNotSync     = errors.New("content not loaded yet")
	ErrReadOnly    = errors.New("file is read-only")
	ErrInvalidName = errors.New("invalid entry name")
)

// PathError records a failed operation together with the path or specifier
// that caused it.
type PathError struct {
	// Op is the operation that failed (e.g., "walk", "readlink", "read").
	Op string
	// Path is the full path or specifier being processed.
	Path string
	// Err is one of the package sentinel errors, possibly wrapped.
	Err error
}

// Error implements the error interface.
func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error so callers can use errors.Is.
func (e *PathError) Unwrap() error { return e.Err }

func pathErr(op, path string, err error) error {
	return &PathError{Op: op, Path: path, Err: err}
}

// Kind returns a short upper-case label for the error kind of err, or an
// empty string when err does not carry a vfs sentinel.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "NOTFOUND"
	case errors.Is(err, ErrNotDir):
		return "NOTADIR"
	case errors.Is(err, ErrNotFile):
		return "NOTAFILE"
	case errors.Is(err, ErrCyclic):
		return "CYCLIC"
	case errors.Is(err, ErrNotSync):
		return "NOTSYNC"
	case errors.Is(err, ErrExists):
		return "EXISTS"
	case errors.Is(err, ErrReadOnly):
		return "READONLY"
	case errors.Is(err, ErrInvalidName):
		return "INVALIDNAME"
	default:
		return ""
	}
}

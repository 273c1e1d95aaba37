// SPDX-License-Identifier: MPL-2.0

// Package loader maps import specifiers to files in a vfs tree and loads
// them through a pluggable Evaluator.
//
// Resolution order, first match wins:
//
//  1. the platform-override ("browser") map of the nearest manifest:
//     false stubs the module out, a string replaces the specifier once
//  2. relative and absolute specifiers: the exact file, then each
//     configured extension, then the directory's index files, then the
//     entry field of the directory's manifest
//  3. bare specifiers: the nearest dependency directory that holds the
//     package, then the requested subpath or the package entry point
//
// A Cache registers a module before its evaluation starts, so circular
// requires observe the partially populated exports instead of recursing.
// A Loader and its Cache are meant for one goroutine; Exports values are
// safe for concurrent use.
package loader

// SPDX-License-Identifier: MPL-2.0

// Package evaluator provides loader.Evaluator implementations for the module
// formats the modfs CLI can run: JSON and TOML documents, and shell scripts
// interpreted in-process by mvdan.cc/sh. Mux dispatches on file extension.
//
// Shell modules import other modules with
//
//	eval "$(require ./other.sh)"
//
// where require prints the required module's exports as shell assignments.
// A shell module's exports are its exported variables.
package evaluator

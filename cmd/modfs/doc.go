// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for modfs.
//
// This package implements the Cobra command hierarchy for the modfs CLI.
// Every command copies a host project directory into an in-memory
// filesystem, installs its dependencies from the configured package source,
// and then inspects or evaluates the result. Nothing is written back to the
// host.
package cmd

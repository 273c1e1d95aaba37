// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Common helpers build host directories (MustWriteFile, WriteFiles) and
// in-memory trees (NewTree, MustLookup, ReadString).
package testutil

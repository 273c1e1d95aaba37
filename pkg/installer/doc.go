// SPDX-License-Identifier: MPL-2.0

// Package installer materializes a package's transitive dependency graph
// into a vfs tree.
//
// Install reads the manifest of a package directory, fetches every declared
// dependency through a Fetcher, grafts each returned tree into the
// package's dependency directory under its qualified identifier, adds a
// bare-name alias symlink, and recurses into the grafted package.
// Sibling dependencies are fetched concurrently.
//
// Within one run, fetches are memoized by qualified identifier. The first
// branch to graft a package owns it; any other branch that needs the same
// package receives a symlink to the owner instead of a second copy and
// does not recurse. Cyclic package graphs therefore terminate.
//
// A failed fetch does not cancel sibling branches and nothing is rolled
// back: Install may return a partially populated tree together with an
// error joining every branch failure.
package installer

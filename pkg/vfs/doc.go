// SPDX-License-Identifier: MPL-2.0

// Package vfs implements the in-memory content store that packages are
// installed into and modules are resolved from.
//
// The store is a tree of [Node] values: [Directory], [File] and [Symlink].
// Nodes never know where they live. Location is carried by [Path], the
// ephemeral result of a traversal, which pairs a node with the full path
// string and the parent chain used to reach it. Two Paths may point at the
// same node (for example two alias symlinks leading to one installed
// package) while the node itself is owned by exactly one directory.
//
// # Specifiers
//
// Traversal input is a specifier string. [DecodeSpecifier] splits it into
// components: "/" separates components, "." components and empty
// components are dropped, and a backslash escapes the following character
// so that `a\/b` names a single entry called "a/b". [Path.String] applies
// the same escaping, which keeps Walk(root, p.String()) a round trip.
//
// # Symlinks
//
// A [Symlink] stores only its target specifier. Resolution is lazy and is
// re-executed on every traversal relative to the symlink's parent
// directory, so mutating the tree changes what a symlink points at.
// Resolution depth is bounded by [MaxSymlinkDepth].
//
// # Concurrency
//
// Directories are not synchronized. Callers that mutate a tree from several
// goroutines (the installer does) must serialize access themselves.
package vfs

// SPDX-License-Identifier: MPL-2.0

// Package manifest reads package manifests (package.json) out of a vfs tree
// and defines the naming conventions of the dependency directory:
//
//   - dependencies live in DepsDirName below a package root
//   - each installed package is stored under its qualified identifier,
//     QualifiedID(name, constraint), e.g. "scope+name@^1.2.0"
//   - a bare-name alias symlink (NormalizeName(name)) points at the
//     qualified identifier most recently installed for that name
//
// Manifests are validated against an embedded CUE schema. Any decode or
// validation failure wraps ErrInvalid.
package manifest

// SPDX-License-Identifier: MPL-2.0

// Package source provides installer.Fetcher implementations: a host
// directory registry, a git remote, an S3 bucket, and an in-memory registry,
// plus the tar archive decoder they share. Version selection uses
// pkg/semver.
package source

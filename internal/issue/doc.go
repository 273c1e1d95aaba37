// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and
// short remediation steps. An error may also name an Issue: a longer
// Markdown hint rendered with glamour when the CLI reports the failure.
package issue

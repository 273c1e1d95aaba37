// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// ActionableError is a user-facing failure: the operation that failed,
	// the package, module or file it concerned, and what to try next.
	//
	//	return issue.NewErrorContext().
	//		WithOperation("install dependencies").
	//		WithResource("/app/package.json").
	//		WithIssue(issue.PackageNotFoundId).
	//		Wrap(err).
	//		BuildError()
	ActionableError struct {
		Operation   string
		Resource    string
		Suggestions []string
		Cause       error
		// Issue selects the long-form markdown hint shown in verbose mode.
		Issue Id
	}

	// ErrorContext accumulates the fields of an ActionableError.
	ErrorContext struct {
		err ActionableError
	}
)

// NewErrorContext starts an empty builder.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// Error renders "failed to <operation>[: <resource>][: <cause>]".
func (e *ActionableError) Error() string {
	parts := []string{"failed to " + e.Operation}
	if e.Resource != "" {
		parts = append(parts, e.Resource)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Format returns Error followed by the suggestions as a bullet list. Verbose
// output also lists every error in the cause chain.
func (e *ActionableError) Format(verbose bool) string {
	var sb strings.Builder
	sb.WriteString(e.Error())
	if len(e.Suggestions) > 0 {
		sb.WriteString("\n")
		for _, s := range e.Suggestions {
			sb.WriteString("\n  • " + s)
		}
	}
	if verbose && e.Cause != nil {
		sb.WriteString(chain(e.Cause, 1))
	}
	return sb.String()
}

// Hint returns the catalog entry attached to the error, or nil.
func (e *ActionableError) Hint() *Issue {
	if e.Issue == 0 {
		return nil
	}
	return Get(e.Issue)
}

// FormatChain renders err followed by its unwrapped causes. When err wraps
// an ActionableError, that error's Format output is used instead.
func FormatChain(err error, verbose bool) string {
	var ae *ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	if !verbose {
		return err.Error()
	}
	return err.Error() + chain(errors.Unwrap(err), 1)
}

func chain(err error, depth int) string {
	if err == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n\nError chain:")
	for ; err != nil; err = errors.Unwrap(err) {
		fmt.Fprintf(&sb, "\n  %d. %s", depth, err.Error())
		depth++
	}
	return sb.String()
}

// WithOperation sets the verb phrase describing what failed, e.g.
// "resolve module".
func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.err.Operation = op
	return c
}

// WithResource names the path, specifier or package involved.
func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.err.Resource = res
	return c
}

// WithSuggestion appends one remediation hint.
func (c *ErrorContext) WithSuggestion(sug string) *ErrorContext {
	c.err.Suggestions = append(c.err.Suggestions, sug)
	return c
}

// WithIssue attaches a catalog entry.
func (c *ErrorContext) WithIssue(id Id) *ErrorContext {
	c.err.Issue = id
	return c
}

// Wrap sets the underlying cause.
func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.err.Cause = err
	return c
}

// BuildError returns the accumulated error, or nil when no operation was
// set. Each call returns an independent copy so a builder can be reused.
func (c *ErrorContext) BuildError() error {
	if c.err.Operation == "" {
		return nil
	}
	out := c.err
	out.Suggestions = append([]string(nil), c.err.Suggestions...)
	return &out
}

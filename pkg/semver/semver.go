// SPDX-License-Identifier: MPL-2.0

// Package semver selects package versions for npm-style version
// constraints. Ordering and validation are delegated to
// golang.org/x/mod/semver; this package adds the range grammar:
// exact versions, =, ^, ~, >, >=, <, <=, x-ranges ("1.x", "1.2.*"),
// "*", "latest", space-separated intersections and "||" unions.
package semver

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

var (
	// ErrInvalidVersion is returned for strings that are not semantic versions.
	ErrInvalidVersion = errors.New("invalid version")
	// ErrInvalidConstraint is returned for unparseable constraints.
	ErrInvalidConstraint = errors.New("invalid constraint")
	// ErrNoMatch is returned when no available version satisfies a constraint.
	ErrNoMatch = errors.New("no matching version")
)

type (
	// Version is a parsed semantic version.
	Version struct {
		Major      int
		Minor      int
		Patch      int
		Prerelease string
		// Original is the version string as it was given.
		Original string

		canonical string
	}

	// Constraint is a union of comparator sets; a version matches when it
	// satisfies every comparator of at least one set.
	Constraint struct {
		sets     [][]comparator
		original string
	}

	comparator struct {
		op      string
		version *Version
	}
)

// constraintRegex matches one comparator. Missing minor/patch parts and
// x/X/* wildcards are allowed.
var constraintRegex = regexp.MustCompile(`^(\^|~|>=|<=|>|<|=)?v?(\d+|[xX*])(?:\.(\d+|[xX*]))?(?:\.(\d+|[xX*]))?(?:-([0-9A-Za-z\-.]+))?(?:\+[0-9A-Za-z\-.]+)?$`)

// ParseVersion parses a version string. A leading "v" is optional.
func ParseVersion(s string) (*Version, error) {
	v := "v" + strings.TrimPrefix(strings.TrimSpace(s), "v")
	if !semver.IsValid(v) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}
	canonical := semver.Canonical(v)
	core := strings.TrimPrefix(canonical, "v")
	pre := semver.Prerelease(canonical)
	core = strings.TrimSuffix(core, pre)

	parts := strings.SplitN(core, ".", 3)
	out := &Version{Original: s, canonical: canonical, Prerelease: strings.TrimPrefix(pre, "-")}
	out.Major, _ = strconv.Atoi(parts[0])
	out.Minor, _ = strconv.Atoi(parts[1])
	out.Patch, _ = strconv.Atoi(parts[2])
	return out, nil
}

// String returns the version as originally written.
func (v *Version) String() string {
	return v.Original
}

// Compare returns -1, 0 or 1 following semantic version precedence.
func (v *Version) Compare(other *Version) int {
	return semver.Compare(v.canonical, other.canonical)
}

func (v *Version) sameCore(other *Version) bool {
	return v.Major == other.Major && v.Minor == other.Minor && v.Patch == other.Patch
}

func newVersion(major, minor, patch int, pre string) *Version {
	s := fmt.Sprintf("%d.%d.%d", major, minor, patch)
	if pre != "" {
		s += "-" + pre
	}
	v, _ := ParseVersion(s)
	return v
}

// ParseConstraint parses a constraint such as "^1.2.0", ">=1 <3" or
// "1.x || 3.0.0". The empty string, "*" and "latest" match any release.
func ParseConstraint(s string) (*Constraint, error) {
	c := &Constraint{original: s}
	for alt := range strings.SplitSeq(s, "||") {
		set, err := parseSet(strings.TrimSpace(alt))
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidConstraint, s, err)
		}
		c.sets = append(c.sets, set)
	}
	return c, nil
}

func parseSet(s string) ([]comparator, error) {
	fields := strings.Fields(s)
	// "1.0.0 - 2.0.0" hyphen range.
	if len(fields) == 3 && fields[1] == "-" {
		lo, err := ParseVersion(fields[0])
		if err != nil {
			return nil, err
		}
		hi, err := ParseVersion(fields[2])
		if err != nil {
			return nil, err
		}
		return []comparator{{">=", lo}, {"<=", hi}}, nil
	}

	var set []comparator
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		// Allow ">= 1.2.0" with a space after the operator.
		if isOperator(f) && i+1 < len(fields) {
			f += fields[i+1]
			i++
		}
		if f == "latest" || f == "*" {
			continue
		}
		cs, err := parseComparator(f)
		if err != nil {
			return nil, err
		}
		set = append(set, cs...)
	}
	return set, nil
}

func isOperator(s string) bool {
	switch s {
	case "^", "~", ">", ">=", "<", "<=", "=":
		return true
	}
	return false
}

func isWildcard(s string) bool {
	return s == "" || s == "x" || s == "X" || s == "*"
}

// parseComparator expands one comparator into primitive comparisons.
func parseComparator(s string) ([]comparator, error) {
	m := constraintRegex.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("unsupported comparator %q", s)
	}
	op, pre := m[1], m[5]
	if isWildcard(m[2]) {
		return nil, nil
	}
	major, _ := strconv.Atoi(m[2])
	minorWild, patchWild := isWildcard(m[3]), isWildcard(m[4])
	minor, _ := strconv.Atoi(m[3])
	patch, _ := strconv.Atoi(m[4])
	if minorWild {
		minor, patch = 0, 0
	} else if patchWild {
		patch = 0
	}
	base := newVersion(major, minor, patch, pre)
	if base == nil {
		return nil, fmt.Errorf("%w: prerelease %q", ErrInvalidVersion, pre)
	}

	switch {
	case op == "^":
		return []comparator{{">=", base}, {"<", caretUpper(major, minor, patch, minorWild, patchWild)}}, nil
	case op == "~":
		if minorWild {
			return []comparator{{">=", base}, {"<", newVersion(major+1, 0, 0, "")}}, nil
		}
		return []comparator{{">=", base}, {"<", newVersion(major, minor+1, 0, "")}}, nil
	case op == "" || op == "=":
		switch {
		case minorWild:
			return []comparator{{">=", base}, {"<", newVersion(major+1, 0, 0, "")}}, nil
		case patchWild:
			return []comparator{{">=", base}, {"<", newVersion(major, minor+1, 0, "")}}, nil
		}
		return []comparator{{"=", base}}, nil
	case op == ">" && (minorWild || patchWild):
		if minorWild {
			return []comparator{{">=", newVersion(major+1, 0, 0, "")}}, nil
		}
		return []comparator{{">=", newVersion(major, minor+1, 0, "")}}, nil
	case op == "<=" && (minorWild || patchWild):
		if minorWild {
			return []comparator{{"<", newVersion(major+1, 0, 0, "")}}, nil
		}
		return []comparator{{"<", newVersion(major, minor+1, 0, "")}}, nil
	}
	return []comparator{{op, base}}, nil
}

// caretUpper allows changes that do not modify the left-most non-zero part:
// ^1.2.3 is <2.0.0, ^0.2.3 is <0.3.0, ^0.0.3 is <0.0.4.
func caretUpper(major, minor, patch int, minorWild, patchWild bool) *Version {
	switch {
	case major != 0 || minorWild:
		return newVersion(major+1, 0, 0, "")
	case minor != 0 || patchWild:
		return newVersion(0, minor+1, 0, "")
	default:
		return newVersion(0, 0, patch+1, "")
	}
}

func (c comparator) matches(v *Version) bool {
	cmp := v.Compare(c.version)
	switch c.op {
	case "=":
		return cmp == 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	default:
		return false
	}
}

// Matches reports whether v satisfies c. Prerelease versions only match a
// comparator set that names a prerelease of the same major.minor.patch.
func (c *Constraint) Matches(v *Version) bool {
	for _, set := range c.sets {
		if setMatches(set, v) {
			return true
		}
	}
	return false
}

func setMatches(set []comparator, v *Version) bool {
	for _, cmp := range set {
		if !cmp.matches(v) {
			return false
		}
	}
	if v.Prerelease == "" {
		return true
	}
	for _, cmp := range set {
		if cmp.version.Prerelease != "" && cmp.version.sameCore(v) {
			return true
		}
	}
	return false
}

// String returns the constraint as originally written.
func (c *Constraint) String() string {
	return c.original
}

// Resolve returns the highest version in available that satisfies
// constraint. A constraint equal to one of the available strings (a
// dist-tag or an exact version) selects it directly.
func Resolve(constraint string, available []string) (string, error) {
	if slices.Contains(available, constraint) {
		return constraint, nil
	}
	c, err := ParseConstraint(constraint)
	if err != nil {
		return "", err
	}

	var best *Version
	for _, s := range available {
		v, err := ParseVersion(s)
		if err != nil {
			continue
		}
		if c.Matches(v) && (best == nil || v.Compare(best) > 0) {
			best = v
		}
	}
	if best == nil {
		return "", fmt.Errorf("%w for %q (available: %v)", ErrNoMatch, constraint, available)
	}
	return best.Original, nil
}

// IsValidVersion reports whether s is a semantic version.
func IsValidVersion(s string) bool {
	_, err := ParseVersion(s)
	return err == nil
}

// IsValidConstraint reports whether s parses as a constraint.
func IsValidConstraint(s string) bool {
	_, err := ParseConstraint(s)
	return err == nil
}

// SortVersions returns the valid versions in descending order.
func SortVersions(versions []string) []string {
	var parsed []*Version
	for _, s := range versions {
		if v, err := ParseVersion(s); err == nil {
			parsed = append(parsed, v)
		}
	}
	slices.SortFunc(parsed, func(a, b *Version) int { return b.Compare(a) })

	out := make([]string, len(parsed))
	for i, v := range parsed {
		out[i] = v.Original
	}
	return out
}

// FilterVersions returns the versions that satisfy constraint, in input order.
func FilterVersions(constraint string, versions []string) ([]string, error) {
	c, err := ParseConstraint(constraint)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, s := range versions {
		if v, err := ParseVersion(s); err == nil && c.Matches(v) {
			out = append(out, s)
		}
	}
	return out, nil
}

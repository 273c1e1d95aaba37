// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	_ "embed"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/invowk/modfs/pkg/cueutil"
	"github.com/invowk/modfs/pkg/vfs"
)

const (
	// FileName is the manifest file looked up in every package root.
	FileName = "package.json"
	// DepsDirName is the reserved dependency directory below a package root.
	DepsDirName = "node_modules"

	// FieldBrowser and FieldMain name the manifest entry fields accepted by Entry.
	FieldBrowser = "browser"
	FieldMain    = "main"
)

//go:embed manifest_schema.cue
var manifestSchema []byte

// ErrInvalid is returned for manifests that cannot be parsed or that do not
// match the manifest schema.
var ErrInvalid = errors.New("invalid manifest")

type (
	// Manifest is the subset of package.json modfs understands.
	Manifest struct {
		Name         string
		Version      string
		Main         string
		Dependencies map[string]string
		Browser      Browser
	}

	// Browser is the platform-override map. The string form of the
	// "browser" field only replaces the package entry point.
	Browser struct {
		Entry     string
		Overrides map[string]Override
	}

	// Override is a single platform-override entry: either a replacement
	// specifier or the disable sentinel (false).
	Override struct {
		Replacement string
		Disabled    bool
	}

	// Dependency is one declared dependency.
	Dependency struct {
		Name       string
		Constraint string
	}

	rawManifest struct {
		Name         string            `json:"name"`
		Version      string            `json:"version"`
		Main         string            `json:"main"`
		Dependencies map[string]string `json:"dependencies"`
		Browser      any               `json:"browser"`
	}
)

// Parse decodes and validates manifest content. filename is used in error
// messages only.
func Parse(data []byte, filename string) (*Manifest, error) {
	res, err := cueutil.DecodeJSON[rawManifest](manifestSchema, data, "#Manifest", cueutil.WithFilename(filename))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	raw := res.Value

	m := &Manifest{
		Name:         raw.Name,
		Version:      raw.Version,
		Main:         raw.Main,
		Dependencies: raw.Dependencies,
	}
	if m.Dependencies == nil {
		m.Dependencies = map[string]string{}
	}
	browser, err := parseBrowser(raw.Browser)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: browser: %w", ErrInvalid, filename, err)
	}
	m.Browser = browser
	return m, nil
}

func parseBrowser(v any) (Browser, error) {
	b := Browser{Overrides: map[string]Override{}}
	switch val := v.(type) {
	case nil:
	case string:
		b.Entry = val
	case map[string]any:
		for spec, target := range val {
			switch t := target.(type) {
			case string:
				b.Overrides[spec] = Override{Replacement: t}
			case bool:
				if t {
					return b, fmt.Errorf("%q: only false disables a module", spec)
				}
				b.Overrides[spec] = Override{Disabled: true}
			default:
				return b, fmt.Errorf("%q: unsupported override %T", spec, target)
			}
		}
	default:
		return b, fmt.Errorf("unsupported value %T", v)
	}
	return b, nil
}

// Read parses the manifest called name inside dir. A missing manifest is
// reported as a vfs.ErrNotFound path error.
func Read(dir *vfs.Path, name string) (*Manifest, error) {
	p, err := vfs.Lookup(dir, vfs.EscapeName(name))
	if err != nil {
		return nil, err
	}
	data, err := vfs.ReadPath(p)
	if err != nil {
		return nil, err
	}
	return Parse(data, p.String())
}

// FindNearest returns the closest manifest called name found in cwd or any
// of its ancestors, together with the directory that holds it. Both are nil
// when no ancestor has a manifest.
func FindNearest(cwd *vfs.Path, name string) (*Manifest, *vfs.Path, error) {
	for found := range vfs.AncestorSearch(cwd, name) {
		p, err := vfs.ResolveSymlink(found, vfs.MaxSymlinkDepth)
		if err != nil {
			return nil, nil, err
		}
		if _, ok := p.File(); !ok {
			continue
		}
		data, err := vfs.ReadPath(p)
		if err != nil {
			return nil, nil, err
		}
		m, err := Parse(data, p.String())
		if err != nil {
			return nil, nil, err
		}
		return m, found.Parent(), nil
	}
	return nil, nil, nil
}

// Entry returns the first non-empty entry field among fields. With no
// arguments the browser entry is preferred over main.
func (m *Manifest) Entry(fields ...string) string {
	if len(fields) == 0 {
		fields = []string{FieldBrowser, FieldMain}
	}
	for _, f := range fields {
		switch f {
		case FieldBrowser:
			if m.Browser.Entry != "" {
				return m.Browser.Entry
			}
		case FieldMain:
			if m.Main != "" {
				return m.Main
			}
		}
	}
	return ""
}

// SortedDependencies returns the declared dependencies ordered by name.
func (m *Manifest) SortedDependencies() []Dependency {
	names := slices.Sorted(maps.Keys(m.Dependencies))
	deps := make([]Dependency, 0, len(names))
	for _, name := range names {
		deps = append(deps, Dependency{Name: name, Constraint: m.Dependencies[name]})
	}
	return deps
}

// Override returns the platform override registered for spec.
func (b Browser) Override(spec string) (Override, bool) {
	o, ok := b.Overrides[spec]
	return o, ok
}

// Disabled reports whether spec is mapped to the disable sentinel.
func (b Browser) Disabled(spec string) bool {
	o, ok := b.Overrides[spec]
	return ok && o.Disabled
}

// NormalizeName turns a package name into a single safe directory entry
// name: "@scope/name" becomes "scope+name".
func NormalizeName(name string) string {
	name = strings.TrimPrefix(name, "@")
	return strings.ReplaceAll(name, "/", "+")
}

// QualifiedID is the dependency directory entry for name installed under
// constraint.
func QualifiedID(name, constraint string) string {
	return NormalizeName(name) + "@" + strings.ReplaceAll(constraint, "/", "+")
}

// String formats d as name@constraint.
func (d Dependency) String() string {
	return d.Name + "@" + d.Constraint
}

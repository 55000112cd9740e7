// Package manifest implements the manifest data model: schema, validation,
// and TOML (de)serialization (SPEC_FULL.md §1, spec.md §3 and §4.2).
package manifest

// FileName is the conventional manifest file name, relative to a project's
// working copy (spec.md §6).
const FileName = "git-ws.toml"

// CurrentVersion is the schema version written by Save/Create and accepted
// without upgrade by Load.
const CurrentVersion = 1

// Remote is a named alias for a base URL under which sibling repositories
// live (spec.md §3 "Remote").
type Remote struct {
	Name    string `toml:"name"`
	URLBase string `toml:"url-base,omitempty"`
}

// GroupDef declares a dependency group and whether it is optional
// (SPEC_FULL.md §4, ported from original_source/gitws/datamodel.py Group).
// Optional is false when the manifest omits it. It is stored and
// round-tripped only: group selection (internal/groupfilter, as called by
// internal/resolver) never reads it.
type GroupDef struct {
	Name     string `toml:"name"`
	Optional bool   `toml:"optional"`
}

// Defaults holds fallback values applied to a ProjectSpec that does not set
// them explicitly (spec.md §3 "Defaults").
type Defaults struct {
	Remote     string   `toml:"remote,omitempty"`
	Revision   string   `toml:"revision,omitempty"`
	Groups     []string `toml:"groups,omitempty"`
	WithGroups []string `toml:"with-groups,omitempty"`
	Submodules *bool    `toml:"submodules,omitempty"`
}

// FileRef describes a link or copy file, relative to the enclosing project
// (spec.md §3 "linkfiles, copyfiles").
type FileRef struct {
	Src    string   `toml:"src"`
	Dest   string   `toml:"dest"`
	Groups []string `toml:"groups,omitempty"`
}

// ProjectSpec is the declarative dependency entry as written in a manifest
// (spec.md §3 "ProjectSpec").
type ProjectSpec struct {
	Name         string   `toml:"name"`
	Remote       string   `toml:"remote,omitempty"`
	SubURL       string   `toml:"sub-url,omitempty"`
	URL          string   `toml:"url,omitempty"`
	Revision     string   `toml:"revision,omitempty"`
	Path         string   `toml:"path,omitempty"`
	ManifestPath string   `toml:"manifest-path,omitempty"`
	Groups       []string `toml:"groups,omitempty"`
	WithGroups   []string `toml:"with-groups,omitempty"`
	Submodules   *bool    `toml:"submodules,omitempty"`
	LinkFiles    []FileRef `toml:"linkfiles,omitempty"`
	CopyFiles    []FileRef `toml:"copyfiles,omitempty"`
}

// EffectiveManifestPath returns manifest_path if set, else the schema default.
func (p ProjectSpec) EffectiveManifestPath() string {
	if p.ManifestPath != "" {
		return p.ManifestPath
	}
	return FileName
}

// EffectivePath returns path if set, else name.
func (p ProjectSpec) EffectivePath() string {
	if p.Path != "" {
		return p.Path
	}
	return p.Name
}

// EffectiveSubmodules returns submodules if set, else the schema default (true).
func (p ProjectSpec) EffectiveSubmodules() bool {
	if p.Submodules != nil {
		return *p.Submodules
	}
	return true
}

// ManifestSpec is the on-disk manifest form (spec.md §3 "ManifestSpec").
type ManifestSpec struct {
	Version      int           `toml:"version"`
	Remotes      []Remote      `toml:"remotes,omitempty"`
	Groups       []GroupDef    `toml:"groups,omitempty"`
	Defaults     Defaults      `toml:"defaults,omitempty"`
	GroupFilters []string      `toml:"group-filters,omitempty"`
	Dependencies []ProjectSpec `toml:"dependencies,omitempty"`
	LinkFiles    []FileRef     `toml:"linkfiles,omitempty"`
	CopyFiles    []FileRef     `toml:"copyfiles,omitempty"`
}

// New returns an empty manifest at the current schema version.
func New() ManifestSpec {
	return ManifestSpec{Version: CurrentVersion}
}

// RemoteByName returns the remote declared under name, if any.
func (m ManifestSpec) RemoteByName(name string) (Remote, bool) {
	for _, r := range m.Remotes {
		if r.Name == name {
			return r, true
		}
	}
	return Remote{}, false
}

// GroupDefByName returns the group declaration for name, if any.
func (m ManifestSpec) GroupDefByName(name string) (GroupDef, bool) {
	for _, g := range m.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return GroupDef{}, false
}

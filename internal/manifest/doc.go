package manifest

import (
	"fmt"
	"strings"
)

// docHeader is prepended to every manifest written by Create or Upgrade,
// documenting the schema inline the way a hand-maintained manifest would be
// commented (spec.md §4.2 "regenerating embedded documentation comments",
// ported from original_source/gitws/datamodel.py ManifestSpec._create).
const docHeader = `# Git Workspace manifest.
#
# remotes:      named aliases for a base URL; dependencies under a remote
#               resolve to "<url-base>/<sub-url>", or without sub-url to
#               "<url-base>/<name>" plus the suffix of the containing
#               repository's URL (e.g. ".git").
# groups:       declare a group name and whether it is optional (default
#               false). The flag is informational: selection depends only
#               on group-filters, with-groups and command-line filters.
# defaults:     fallback remote/revision/groups/submodules for dependencies
#               that don't set them.
# group-filters: ordered "+group[@path]" / "-group[@path]" expressions.
#               Later entries override earlier ones.
# dependencies: the actual repositories this project depends on.
`

// Create returns a fresh, documented manifest at the current schema version.
func Create() ManifestSpec {
	return New()
}

// RenderWithDocs renders m as TOML prefixed with the schema documentation
// header, the form written to disk by `manifest create` and `manifest
// upgrade`.
func RenderWithDocs(m ManifestSpec) ([]byte, error) {
	body, err := Marshal(m)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	b.WriteString(docHeader)
	b.WriteString("\n")
	b.Write(body)
	return []byte(b.String()), nil
}

// SaveWithDocs writes m to path including the documentation header.
func SaveWithDocs(path string, m ManifestSpec) error {
	data, err := RenderWithDocs(m)
	if err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	return atomicWrite(path, data, 0o644)
}

// Upgrade loads the manifest at path, bumps it to CurrentVersion, and
// rewrites it with a fresh documentation header, preserving every field the
// old manifest set (spec.md §4.2 "upgrade").
func Upgrade(path string) (ManifestSpec, error) {
	spec, err := Load(path)
	if err != nil {
		return ManifestSpec{}, err
	}
	if spec.Version > CurrentVersion {
		return ManifestSpec{}, &ValidationError{Issues: []Issue{
			issue(KindSchemaTooNew, "version", "cannot downgrade schema version %d to %d", spec.Version, CurrentVersion),
		}}
	}
	spec.Version = CurrentVersion
	if err := SaveWithDocs(path, spec); err != nil {
		return ManifestSpec{}, err
	}
	return spec, nil
}

package manifest

import (
	"fmt"
	"regexp"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// ValidIdentifier reports whether name matches the schema's identifier rule
// (spec.md §4.2 BadIdentifier).
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// Validate checks m's structural invariants (spec.md §3 Invariants, §4.2
// error taxonomy) and returns every Issue found, wrapped in a
// *ValidationError if non-empty.
func Validate(m ManifestSpec) error {
	var issues []Issue

	if m.Version > CurrentVersion {
		issues = append(issues, issue(KindSchemaTooNew, "version", "schema version %d is newer than supported version %d", m.Version, CurrentVersion))
	}

	issues = append(issues, validateRemotes(m)...)
	issues = append(issues, validateGroups(m)...)
	issues = append(issues, validateDefaults(m)...)
	issues = append(issues, validateDependencies(m)...)

	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: issues}
}

func validateRemotes(m ManifestSpec) []Issue {
	var issues []Issue
	seen := map[string]struct{}{}
	for i, r := range m.Remotes {
		ref := fmt.Sprintf("remotes[%d]", i)
		if strings.TrimSpace(r.Name) == "" {
			issues = append(issues, issue(KindMissingRequired, ref+".name", "remote name is required"))
			continue
		}
		if !ValidIdentifier(r.Name) {
			issues = append(issues, issue(KindBadIdentifier, ref+".name", "invalid remote name: %s", r.Name))
		}
		if _, ok := seen[r.Name]; ok {
			issues = append(issues, issue(KindDuplicateRemote, ref+".name", "duplicate remote name: %s", r.Name))
		}
		seen[r.Name] = struct{}{}
	}
	return issues
}

func validateGroups(m ManifestSpec) []Issue {
	var issues []Issue
	seen := map[string]struct{}{}
	for i, g := range m.Groups {
		ref := fmt.Sprintf("groups[%d]", i)
		if strings.TrimSpace(g.Name) == "" {
			issues = append(issues, issue(KindMissingRequired, ref+".name", "group name is required"))
			continue
		}
		if !ValidIdentifier(g.Name) {
			issues = append(issues, issue(KindBadIdentifier, ref+".name", "invalid group name: %s", g.Name))
		}
		if _, ok := seen[g.Name]; ok {
			issues = append(issues, issue(KindDuplicateGroup, ref+".name", "duplicate group name: %s", g.Name))
		}
		seen[g.Name] = struct{}{}
	}
	return issues
}

func validateDefaults(m ManifestSpec) []Issue {
	var issues []Issue
	if m.Defaults.Remote != "" {
		if _, ok := m.RemoteByName(m.Defaults.Remote); !ok {
			issues = append(issues, issue(KindUnknownRemote, "defaults.remote", "unknown remote: %s", m.Defaults.Remote))
		}
	}
	return issues
}

func validateDependencies(m ManifestSpec) []Issue {
	var issues []Issue
	seenPaths := map[string]struct{}{}
	for i, dep := range m.Dependencies {
		ref := fmt.Sprintf("dependencies[%d]", i)
		issues = append(issues, validateDependency(m, ref, dep)...)

		path := dep.EffectivePath()
		if path != "" {
			if _, ok := seenPaths[path]; ok {
				// Not an error: spec.md §4.4 resolves same-manifest path
				// collisions via first-wins at resolve time, not validate
				// time. Still worth surfacing as a warning-grade issue so
				// `manifest validate` can flag manifests that will silently
				// drop a dependency.
				issues = append(issues, issue(KindMissingRequired, ref+".path", "duplicate path %q within this manifest; the later entry will be dropped by first-wins", path))
			}
			seenPaths[path] = struct{}{}
		}
	}
	return issues
}

func validateDependency(m ManifestSpec, ref string, dep ProjectSpec) []Issue {
	var issues []Issue
	if strings.TrimSpace(dep.Name) == "" {
		issues = append(issues, issue(KindMissingRequired, ref+".name", "dependency name is required"))
	}

	if dep.Remote != "" && dep.URL != "" {
		issues = append(issues, issue(KindConflictingURLSources, ref, "'remote' and 'url' are mutually exclusive"))
	}
	if dep.SubURL != "" && dep.Remote == "" {
		issues = append(issues, issue(KindInvalidSubURL, ref+".sub-url", "'sub-url' requires 'remote'"))
	}
	if dep.Remote != "" {
		if _, ok := m.RemoteByName(dep.Remote); !ok {
			issues = append(issues, issue(KindUnknownRemote, ref+".remote", "unknown remote: %s", dep.Remote))
		}
	}
	if len(dep.Revision) == 40 {
		if !isHexSHA(dep.Revision) {
			issues = append(issues, issue(KindTypeMismatch, ref+".revision", "revision looks like a 40-char SHA but is not hex: %s", dep.Revision))
		}
	}
	return issues
}

func isHexSHA(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

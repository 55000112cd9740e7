package manifest

import "fmt"

// AddRemote returns a copy of m with a new remote appended, or an error if
// the name is invalid or already declared (spec.md §6 "remote" editing op).
func AddRemote(m ManifestSpec, name, urlBase string) (ManifestSpec, error) {
	if !ValidIdentifier(name) {
		return m, fmt.Errorf("invalid remote name: %s", name)
	}
	if _, ok := m.RemoteByName(name); ok {
		return m, fmt.Errorf("remote already exists: %s", name)
	}
	out := m
	out.Remotes = append(append([]Remote{}, m.Remotes...), Remote{Name: name, URLBase: urlBase})
	return out, nil
}

// RemoveRemote returns a copy of m with the named remote removed. It is an
// error to remove a remote still referenced by defaults or a dependency.
func RemoveRemote(m ManifestSpec, name string) (ManifestSpec, error) {
	if _, ok := m.RemoteByName(name); !ok {
		return m, fmt.Errorf("unknown remote: %s", name)
	}
	if m.Defaults.Remote == name {
		return m, fmt.Errorf("remote %s is used by defaults", name)
	}
	for _, dep := range m.Dependencies {
		if dep.Remote == name {
			return m, fmt.Errorf("remote %s is used by dependency %s", name, dep.Name)
		}
	}
	out := m
	remotes := make([]Remote, 0, len(m.Remotes))
	for _, r := range m.Remotes {
		if r.Name != name {
			remotes = append(remotes, r)
		}
	}
	out.Remotes = remotes
	return out, nil
}

// SetDefault sets one field of m.Defaults by key ("remote", "revision",
// "submodules") and returns the updated manifest (spec.md §6 "default"
// editing op).
func SetDefault(m ManifestSpec, key, value string) (ManifestSpec, error) {
	out := m
	switch key {
	case "remote":
		if value != "" {
			if _, ok := m.RemoteByName(value); !ok {
				return m, fmt.Errorf("unknown remote: %s", value)
			}
		}
		out.Defaults.Remote = value
	case "revision":
		out.Defaults.Revision = value
	case "submodules":
		b, err := parseBool(value)
		if err != nil {
			return m, fmt.Errorf("default submodules: %w", err)
		}
		out.Defaults.Submodules = &b
	default:
		return m, fmt.Errorf("unknown default key: %s", key)
	}
	return out, nil
}

// AddDependency returns a copy of m with dep appended, or an error if a
// dependency with the same effective path is already declared (spec.md §6
// "dep" editing op).
func AddDependency(m ManifestSpec, dep ProjectSpec) (ManifestSpec, error) {
	if dep.Name == "" {
		return m, fmt.Errorf("dependency name is required")
	}
	for _, existing := range m.Dependencies {
		if existing.EffectivePath() == dep.EffectivePath() {
			return m, fmt.Errorf("dependency already declared at path: %s", dep.EffectivePath())
		}
	}
	out := m
	out.Dependencies = append(append([]ProjectSpec{}, m.Dependencies...), dep)
	return out, nil
}

// RemoveDependency returns a copy of m with the dependency at the given
// effective path removed (spec.md §6 "dep" editing op).
func RemoveDependency(m ManifestSpec, path string) (ManifestSpec, error) {
	out := m
	deps := make([]ProjectSpec, 0, len(m.Dependencies))
	found := false
	for _, dep := range m.Dependencies {
		if dep.EffectivePath() == path {
			found = true
			continue
		}
		deps = append(deps, dep)
	}
	if !found {
		return m, fmt.Errorf("no dependency at path: %s", path)
	}
	out.Dependencies = deps
	return out, nil
}

// SetGroupFilters replaces m's top-level group-filters list wholesale
// (spec.md §6 "group-filters" editing op).
func SetGroupFilters(m ManifestSpec, filters []string) ManifestSpec {
	out := m
	out.GroupFilters = append([]string{}, filters...)
	return out
}

func parseBool(s string) (bool, error) {
	switch s {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	default:
		return false, fmt.Errorf("not a boolean: %s", s)
	}
}

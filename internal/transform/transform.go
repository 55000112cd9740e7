// Package transform implements the manifest transform operations of
// spec.md §4.6: resolve, freeze, validate, upgrade.
package transform

import (
	"context"
	"fmt"
	"path"

	"github.com/spf13/afero"

	"github.com/basalt-tools/gitws/internal/gitdriver"
	"github.com/basalt-tools/gitws/internal/groupfilter"
	"github.com/basalt-tools/gitws/internal/manifest"
	"github.com/basalt-tools/gitws/internal/resolver"
)

// Resolve runs the project resolver and emits a single ManifestSpec whose
// dependencies are every resolved non-main project in BFS order, each with
// an absolute URL, its source revision preserved, and its group membership
// preserved. defaults are empty and group_filters is flattened to the set
// of filters actually in effect (spec.md §4.6 "resolve").
func Resolve(opts resolver.Options) (manifest.ManifestSpec, resolver.Result, error) {
	result, err := resolver.Resolve(opts)
	if err != nil {
		return manifest.ManifestSpec{}, result, err
	}

	flattened, err := flattenedFilters(opts)
	if err != nil {
		return manifest.ManifestSpec{}, result, err
	}

	out := manifest.New()
	out.GroupFilters = flattened
	for _, p := range result.Projects {
		if p.IsMain {
			continue
		}
		submodules := p.Submodules
		out.Dependencies = append(out.Dependencies, manifest.ProjectSpec{
			Name:         p.Name,
			URL:          p.URL,
			Revision:     p.Revision,
			Path:         p.Path,
			ManifestPath: p.ManifestPath,
			Groups:       p.Groups,
			Submodules:   &submodules,
			LinkFiles:    p.LinkFiles,
			CopyFiles:    p.CopyFiles,
		})
	}
	return out, result, nil
}

// Freeze is Resolve followed by overwriting every dependency's revision
// with the current commit SHA of its clone, obtained via driver. It fails
// if any resolved project is not yet cloned (spec.md §4.6 "freeze").
func Freeze(ctx context.Context, opts resolver.Options, driver gitdriver.Driver) (manifest.ManifestSpec, error) {
	out, result, err := Resolve(opts)
	if err != nil {
		return manifest.ManifestSpec{}, err
	}
	shaByPath := make(map[string]string, len(result.Projects))
	for _, p := range result.Projects {
		if p.IsMain {
			continue
		}
		dir := path.Join(opts.WorkspaceRoot, p.Path)
		if !driver.IsGitClone(ctx, dir) {
			return manifest.ManifestSpec{}, fmt.Errorf("freeze: %s is not yet cloned", p.Path)
		}
		sha, err := driver.RevParseHEAD(ctx, dir)
		if err != nil {
			return manifest.ManifestSpec{}, fmt.Errorf("freeze: %s: %w", p.Path, err)
		}
		shaByPath[p.Path] = sha
	}
	for i := range out.Dependencies {
		out.Dependencies[i].Revision = shaByPath[out.Dependencies[i].Path]
	}
	return out, nil
}

// Validate loads and validates the manifest at path, returning a structured
// *manifest.ValidationError on failure (spec.md §4.6 "validate").
func Validate(fs afero.Fs, manifestPath string) (manifest.ManifestSpec, error) {
	data, err := afero.ReadFile(fs, manifestPath)
	if err != nil {
		return manifest.ManifestSpec{}, fmt.Errorf("load %s: %w", manifestPath, err)
	}
	spec, err := manifest.Unmarshal(data)
	if err != nil {
		return manifest.ManifestSpec{}, fmt.Errorf("parse %s: %w", manifestPath, err)
	}
	if err := manifest.Validate(spec); err != nil {
		return manifest.ManifestSpec{}, err
	}
	return spec, nil
}

// Upgrade rewrites the manifest at path to the latest schema version,
// preserving every field already present (spec.md §4.6 "upgrade"; delegates
// to manifest.Upgrade, which does the actual rewrite).
func Upgrade(path string) (manifest.ManifestSpec, error) {
	return manifest.Upgrade(path)
}

func flattenedFilters(opts resolver.Options) ([]string, error) {
	manifestPath := opts.ManifestPath
	if manifestPath == "" {
		manifestPath = manifest.FileName
	}
	mainPath := ""
	if opts.Main != nil {
		mainPath = opts.Main.Path
	}
	full := path.Join(opts.WorkspaceRoot, mainPath, manifestPath)
	data, err := afero.ReadFile(opts.Fs, full)
	if err != nil {
		return nil, fmt.Errorf("load main manifest %s: %w", full, err)
	}
	spec, err := manifest.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("parse main manifest %s: %w", full, err)
	}
	rules, err := groupfilter.ParseList(spec.GroupFilters, "manifest")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rules)+len(opts.CLIFilters))
	for _, r := range rules {
		out = append(out, r.String())
	}
	for _, r := range opts.CLIFilters {
		out = append(out, r.String())
	}
	return out, nil
}

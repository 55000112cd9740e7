// Package resolver implements the breadth-first dependency graph resolver
// (spec.md §4.4): starting at the main project, it walks dependencies level
// by level, applying the group-filter predicate and first-wins conflict
// resolution, and produces an ordered list of resolved Project records plus
// diagnostics.
package resolver

import (
	"fmt"
	"path"

	"github.com/spf13/afero"

	"github.com/basalt-tools/gitws/internal/groupfilter"
	"github.com/basalt-tools/gitws/internal/manifest"
	"github.com/basalt-tools/gitws/internal/pathutil"
)

// Project is the resolved form of a ProjectSpec (spec.md §3 "Project").
type Project struct {
	Name         string
	Path         string // workspace-relative, normalized
	Level        int    // BFS depth; main project is 0
	URL          string
	Revision     string
	Groups       []string
	WithGroups   []string
	Submodules   bool
	ManifestPath string // relative to Path
	LinkFiles    []manifest.FileRef
	CopyFiles    []manifest.FileRef
	IsMain       bool

	// FileFilters and FileFilterDefault are the effective filter list and
	// default-select value that govern which of this project's own
	// LinkFiles/CopyFiles entries are selected (spec.md §4.3 "Link/copy
	// files inherit group filtering"). They are the same filter/default
	// pair used to resolve this project's own dependencies.
	FileFilters       []groupfilter.Rule
	FileFilterDefault bool
}

// DiagnosticKind classifies a non-fatal event recorded during resolution.
type DiagnosticKind string

const (
	DiagDuplicate       DiagnosticKind = "duplicate"
	DiagFilteredOut     DiagnosticKind = "filtered-out"
	DiagMissingRevision DiagnosticKind = "missing-revision"
	DiagInvalidManifest DiagnosticKind = "invalid-manifest"
)

// Diagnostic is one resolver-time event, attributed to the project path it
// concerns (spec.md §4.4 "Output ... a list of diagnostics").
type Diagnostic struct {
	Kind    DiagnosticKind
	Path    string
	Message string
}

// Result is the resolver's output: projects in BFS order, plus diagnostics.
type Result struct {
	Projects    []Project
	Diagnostics []Diagnostic
}

// MainProject describes the workspace's main project, when one exists. URL
// is the project's own Git remote URL (obtained by the caller via the Git
// driver collaborator before calling Resolve) and seeds sibling-URL
// resolution for its direct dependencies; Revision is its current checked
// out revision, also supplied by the caller.
type MainProject struct {
	Name     string
	Path     string
	URL      string
	Revision string
}

// Options configures one resolver run.
type Options struct {
	Fs            afero.Fs
	WorkspaceRoot string
	// ManifestPath is relative to Main.Path (or to WorkspaceRoot for a
	// main-less workspace), per spec.md §4.7.
	ManifestPath string
	// Main is nil for a main-less workspace; the main manifest is still
	// loaded and its dependencies still resolved.
	Main *MainProject
	// CLIFilters are appended, highest precedence, at every level
	// (spec.md §4.3 "command-line filters (highest precedence)").
	CLIFilters []groupfilter.Rule
}

type queueItem struct {
	parentPath               string
	refURL                   string
	manifestPath             string
	preloaded                *manifest.ManifestSpec
	filtersForChildren       []groupfilter.Rule
	defaultSelectForChildren bool
	level                    int
}

// Resolve runs the BFS algorithm of spec.md §4.4 and returns the resolved
// project list and diagnostics. An error is only returned when the main
// manifest itself cannot be loaded or parsed; a missing or malformed
// dependency manifest degrades to an empty subtree plus a diagnostic.
func Resolve(opts Options) (Result, error) {
	var result Result

	manifestPath := opts.ManifestPath
	if manifestPath == "" {
		manifestPath = manifest.FileName
	}

	mainPath := ""
	refURL := ""
	if opts.Main != nil {
		mainPath = opts.Main.Path
		refURL = opts.Main.URL
	}

	fullMainManifestPath := path.Join(opts.WorkspaceRoot, mainPath, manifestPath)
	data, err := afero.ReadFile(opts.Fs, fullMainManifestPath)
	if err != nil {
		return result, fmt.Errorf("load main manifest %s: %w", fullMainManifestPath, err)
	}
	mainManifest, err := manifest.Unmarshal(data)
	if err != nil {
		return result, fmt.Errorf("parse main manifest %s: %w", fullMainManifestPath, err)
	}

	mainFilters, err := groupfilter.ParseList(mainManifest.GroupFilters, "manifest")
	if err != nil {
		return result, fmt.Errorf("group-filters in %s: %w", fullMainManifestPath, err)
	}

	seen := map[string]bool{}
	resolved := map[string]Project{}

	mainEffectiveFilters := make([]groupfilter.Rule, 0, len(mainFilters)+len(opts.CLIFilters))
	mainEffectiveFilters = append(mainEffectiveFilters, mainFilters...)
	mainEffectiveFilters = append(mainEffectiveFilters, opts.CLIFilters...)

	if opts.Main != nil {
		mp := Project{
			Name:              opts.Main.Name,
			Path:              cleanPath(opts.Main.Path),
			Level:             0,
			URL:               opts.Main.URL,
			Revision:          opts.Main.Revision,
			Submodules:        true,
			IsMain:            true,
			LinkFiles:         mainManifest.LinkFiles,
			CopyFiles:         mainManifest.CopyFiles,
			FileFilters:       mainEffectiveFilters,
			FileFilterDefault: true,
		}
		seen[mp.Path] = true
		resolved[mp.Path] = mp
		result.Projects = append(result.Projects, mp)
	}

	queue := []queueItem{{
		parentPath:               mainPath,
		refURL:                   refURL,
		manifestPath:             manifestPath,
		preloaded:                &mainManifest,
		filtersForChildren:       mainFilters,
		defaultSelectForChildren: true,
		level:                    1,
	}}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		spec := manifest.ManifestSpec{}
		if item.preloaded != nil {
			spec = *item.preloaded
		} else {
			full := path.Join(opts.WorkspaceRoot, item.parentPath, item.manifestPath)
			exists, err := afero.Exists(opts.Fs, full)
			if err != nil || !exists {
				// Missing manifest: the dependency's subtree is empty, not an error.
				continue
			}
			raw, err := afero.ReadFile(opts.Fs, full)
			if err != nil {
				result.Diagnostics = append(result.Diagnostics, Diagnostic{
					Kind: DiagInvalidManifest, Path: item.parentPath,
					Message: fmt.Sprintf("read %s: %v", full, err),
				})
				continue
			}
			spec, err = manifest.Unmarshal(raw)
			if err != nil {
				result.Diagnostics = append(result.Diagnostics, Diagnostic{
					Kind: DiagInvalidManifest, Path: item.parentPath,
					Message: fmt.Sprintf("parse %s: %v", full, err),
				})
				continue
			}
		}

		effectiveFilters := make([]groupfilter.Rule, 0, len(item.filtersForChildren)+len(opts.CLIFilters))
		effectiveFilters = append(effectiveFilters, item.filtersForChildren...)
		effectiveFilters = append(effectiveFilters, opts.CLIFilters...)

		for _, depSpec := range spec.Dependencies {
			effPath := cleanPath(depSpec.EffectivePath())

			if seen[effPath] {
				result.Diagnostics = append(result.Diagnostics, Diagnostic{
					Kind: DiagDuplicate, Path: effPath,
					Message: fmt.Sprintf("dependency %q at path %q already resolved; first occurrence wins", depSpec.Name, effPath),
				})
				continue
			}
			seen[effPath] = true

			effRemote := depSpec.Remote
			if effRemote == "" {
				effRemote = spec.Defaults.Remote
			}
			effGroups := depSpec.Groups
			if len(effGroups) == 0 {
				effGroups = spec.Defaults.Groups
			}

			decision := groupfilter.Evaluate(effGroups, effPath, effectiveFilters, item.defaultSelectForChildren)
			if !decision.Selected {
				result.Diagnostics = append(result.Diagnostics, Diagnostic{
					Kind: DiagFilteredOut, Path: effPath,
					Message: fmt.Sprintf("dependency %q filtered out by group selection", depSpec.Name),
				})
				continue
			}

			effRevision := depSpec.Revision
			if effRevision == "" {
				effRevision = spec.Defaults.Revision
			}
			if effRevision == "" {
				result.Diagnostics = append(result.Diagnostics, Diagnostic{
					Kind: DiagMissingRevision, Path: effPath,
					Message: fmt.Sprintf("dependency %q has no revision", depSpec.Name),
				})
			}

			effWithGroups := depSpec.WithGroups
			if len(effWithGroups) == 0 {
				effWithGroups = spec.Defaults.WithGroups
			}

			var remoteBase string
			hasRemote := effRemote != ""
			if hasRemote {
				r, ok := spec.RemoteByName(effRemote)
				if !ok {
					result.Diagnostics = append(result.Diagnostics, Diagnostic{
						Kind: DiagInvalidManifest, Path: effPath,
						Message: fmt.Sprintf("dependency %q references unknown remote %q", depSpec.Name, effRemote),
					})
					continue
				}
				remoteBase = r.URLBase
			}

			url := pathutil.ResolveURL(pathutil.ResolveParams{
				ExplicitURL: depSpec.URL,
				RemoteBase:  remoteBase,
				HasRemote:   hasRemote,
				SubURL:      depSpec.SubURL,
				Name:        depSpec.Name,
				RefURL:      item.refURL,
			})

			childFilters := groupfilter.FromGroupNames(effWithGroups, "with-groups")
			childEffectiveFilters := make([]groupfilter.Rule, 0, len(childFilters)+len(opts.CLIFilters))
			childEffectiveFilters = append(childEffectiveFilters, childFilters...)
			childEffectiveFilters = append(childEffectiveFilters, opts.CLIFilters...)

			proj := Project{
				Name:              depSpec.Name,
				Path:              effPath,
				Level:             item.level,
				URL:               url,
				Revision:          effRevision,
				Groups:            effGroups,
				WithGroups:        effWithGroups,
				Submodules:        effectiveSubmodules(depSpec, spec.Defaults),
				ManifestPath:      depSpec.EffectiveManifestPath(),
				LinkFiles:         depSpec.LinkFiles,
				CopyFiles:         depSpec.CopyFiles,
				FileFilters:       childEffectiveFilters,
				FileFilterDefault: false,
			}
			resolved[effPath] = proj
			result.Projects = append(result.Projects, proj)

			queue = append(queue, queueItem{
				parentPath:               effPath,
				refURL:                   url,
				manifestPath:             proj.ManifestPath,
				filtersForChildren:       childFilters,
				defaultSelectForChildren: false,
				level:                    item.level + 1,
			})
		}
	}

	return result, nil
}

func effectiveSubmodules(spec manifest.ProjectSpec, defaults manifest.Defaults) bool {
	if spec.Submodules != nil {
		return *spec.Submodules
	}
	if defaults.Submodules != nil {
		return *defaults.Submodules
	}
	return true
}

func cleanPath(p string) string {
	if p == "" {
		return p
	}
	return path.Clean(p)
}

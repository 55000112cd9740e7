package materialize

import (
	"context"
	"path"

	"github.com/spf13/afero"

	"github.com/basalt-tools/gitws/internal/resolver"
	"github.com/basalt-tools/gitws/internal/wsmeta"
)

// prune enumerates directories within the workspace — excluding .git-ws/
// and the main project's own location — that are Git clones no longer
// present in the resolved set, and removes each one that is free of
// uncommitted work (spec.md §4.5 "Pruning").
func prune(ctx context.Context, opts Options, result resolver.Result) ([]PruneOutcome, error) {
	resolvedPaths := make(map[string]bool, len(result.Projects))
	mainPath := ""
	for _, p := range result.Projects {
		resolvedPaths[p.Path] = true
		if p.IsMain {
			mainPath = p.Path
		}
	}

	entries, err := afero.ReadDir(opts.Fs, opts.WorkspaceRoot)
	if err != nil {
		return nil, err
	}

	var outcomes []PruneOutcome
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == wsmeta.DirName || name == mainPath || resolvedPaths[name] {
			continue
		}
		dir := path.Join(opts.WorkspaceRoot, name)
		if !opts.Driver.IsGitClone(ctx, dir) {
			continue
		}

		reason, dirty, err := checkDirty(ctx, opts, dir)
		if err != nil {
			return nil, err
		}
		if dirty && !opts.Force {
			if opts.Metrics != nil {
				opts.Metrics.ObservePruneDecision(reason)
			}
			outcomes = append(outcomes, PruneOutcome{Path: name, Action: PruneRefused, Reason: reason})
			continue
		}

		if err := opts.Fs.RemoveAll(dir); err != nil {
			return nil, err
		}
		if opts.Metrics != nil {
			opts.Metrics.ObservePruneDecision("removed")
		}
		outcomes = append(outcomes, PruneOutcome{Path: name, Action: PruneRemoved})
	}
	return outcomes, nil
}

// checkDirty reports the first uncommitted-work reason found, per spec.md
// §4.5 "empty of uncommitted work: no untracked files, no unpushed commits,
// no stash entries, no staged changes".
func checkDirty(ctx context.Context, opts Options, dir string) (reason string, dirty bool, err error) {
	driver := opts.Driver

	untracked, err := driver.HasUntracked(ctx, dir)
	if err != nil {
		return "", false, err
	}
	if untracked {
		return "untracked", true, nil
	}

	unpushed, err := driver.HasUnpushed(ctx, dir)
	if err != nil {
		return "", false, err
	}
	if unpushed {
		return "unpushed", true, nil
	}

	stashed, err := driver.HasStash(ctx, dir)
	if err != nil {
		return "", false, err
	}
	if stashed {
		return "stash", true, nil
	}

	clean, err := driver.IsClean(ctx, dir)
	if err != nil {
		return "", false, err
	}
	if !clean {
		return "staged-or-modified", true, nil
	}

	return "", false, nil
}

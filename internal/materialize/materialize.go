// Package materialize implements the workspace materializer (spec.md §4.5):
// reconciling a resolved project list against the filesystem by
// cloning/checking-out/pulling clones, linking/copying files, and pruning
// clones that fell out of the resolved set.
package materialize

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/basalt-tools/gitws/internal/gitdriver"
	"github.com/basalt-tools/gitws/internal/metrics"
	"github.com/basalt-tools/gitws/internal/resolver"
)

// Action classifies what Materialize did for one project.
type Action string

const (
	ActionCloned       Action = "cloned"
	ActionPulled       Action = "pulled"
	ActionRebased      Action = "rebased"
	ActionCheckedOut   Action = "checked-out"
	ActionNoop         Action = "noop"
	ActionSkipped      Action = "skipped"
	ActionNotAGitClone Action = "not-a-git-clone"
	ActionError        Action = "error"
)

// Outcome records what happened to one project.
type Outcome struct {
	Path   string
	Action Action
	Err    error
}

// PruneAction classifies what happened to one prune candidate.
type PruneAction string

const (
	PruneRemoved PruneAction = "removed"
	PruneRefused PruneAction = "refused"
)

// PruneOutcome records one prune decision.
type PruneOutcome struct {
	Path   string
	Action PruneAction
	Reason string // set when Action is PruneRefused: "untracked", "unpushed", "stash", "staged-or-modified"
}

// Report is the full result of one Materialize call (spec.md §4.5 "Failure
// semantics"): every project's outcome, whether any failed, and any prune
// decisions made.
type Report struct {
	Outcomes []Outcome
	Pruned   []PruneOutcome
	Failed   bool
}

// Options configures one materializer run.
type Options struct {
	Fs            afero.Fs
	WorkspaceRoot string
	Driver        gitdriver.Driver
	Metrics       *metrics.Registry // optional

	SkipMain   bool
	Rebase     bool
	Prune      bool
	Force      bool
	CloneDepth int

	// OnProgress, if set, is called once per project before its operation
	// starts (SPEC_FULL.md ambient-stack logging integration point).
	OnProgress func(path string, level int)
}

// Materialize reconciles result.Projects against the filesystem in BFS
// order (spec.md §4.5). Operations on distinct clone directories run
// concurrently; a per-path mutex registry serializes anything that targets
// the same directory twice in one run (spec.md §4.5 "Concurrency").
func Materialize(ctx context.Context, opts Options, result resolver.Result) (Report, error) {
	locks := newPathLocks()
	outcomes := make([]Outcome, len(result.Projects))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range result.Projects {
		i, p := i, p
		if p.IsMain && opts.SkipMain {
			outcomes[i] = Outcome{Path: p.Path, Action: ActionSkipped}
			continue
		}
		g.Go(func() error {
			unlock := locks.lock(p.Path)
			defer unlock()

			if opts.OnProgress != nil {
				opts.OnProgress(p.Path, p.Level)
			}
			outcomes[i] = materializeOne(gctx, opts, p)
			return nil // per-project failures are diagnostics, not fatal (spec.md §4.5)
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	report := Report{Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Action == ActionError || o.Action == ActionNotAGitClone {
			report.Failed = true
		}
	}

	if err := materializeFiles(ctx, opts, result); err != nil {
		return report, err
	}

	if opts.Prune {
		pruned, err := prune(ctx, opts, result)
		if err != nil {
			return report, err
		}
		report.Pruned = pruned
		for _, p := range pruned {
			if p.Action == PruneRefused {
				report.Failed = true
			}
		}
	}

	return report, nil
}

func materializeOne(ctx context.Context, opts Options, p resolver.Project) Outcome {
	dir := path.Join(opts.WorkspaceRoot, p.Path)
	driver := opts.Driver

	isClone := driver.IsGitClone(ctx, dir)
	exists, err := afero.DirExists(opts.Fs, dir)
	if err != nil {
		return Outcome{Path: p.Path, Action: ActionError, Err: err}
	}

	var action Action
	switch {
	case isClone:
		branch, _ := driver.Branch(ctx, dir)
		if err := syncExistingClone(ctx, opts, dir, p); err != nil {
			return Outcome{Path: p.Path, Action: ActionError, Err: err}
		}
		action = classifyExistingCloneAction(opts, p, branch)
	case exists && !opts.Force:
		return Outcome{Path: p.Path, Action: ActionNotAGitClone,
			Err: fmt.Errorf("%s exists and is not a Git checkout", dir)}
	case exists && opts.Force:
		return Outcome{Path: p.Path, Action: ActionSkipped,
			Err: fmt.Errorf("%s is not a Git checkout; skipped under --force", dir)}
	default:
		if err := timed(opts, "clone", func() error {
			return driver.Clone(ctx, p.URL, dir, opts.CloneDepth)
		}); err != nil {
			return Outcome{Path: p.Path, Action: ActionError, Err: err}
		}
		if p.Revision != "" {
			if err := timed(opts, "checkout", func() error {
				return driver.Checkout(ctx, dir, p.Revision)
			}); err != nil {
				return Outcome{Path: p.Path, Action: ActionError, Err: err}
			}
		}
		action = ActionCloned
	}

	if p.Submodules {
		if err := timed(opts, "submodule-update", func() error {
			return driver.SubmoduleUpdate(ctx, dir)
		}); err != nil {
			return Outcome{Path: p.Path, Action: ActionError, Err: err}
		}
	}

	return Outcome{Path: p.Path, Action: action}
}

// syncExistingClone implements the "target exists and is a valid Git
// checkout" branch of spec.md §4.5: pull/rebase if the pinned revision is
// the currently checked-out branch, else fetch and checkout the pinned ref.
func syncExistingClone(ctx context.Context, opts Options, dir string, p resolver.Project) error {
	if p.Revision == "" {
		return nil // "leave current branch alone; emit warning" — warning is the caller's diagnostic to raise
	}

	driver := opts.Driver
	branch, err := driver.Branch(ctx, dir)
	if err != nil {
		return err
	}

	if branch != "" && branch == p.Revision {
		if opts.Rebase {
			return timed(opts, "rebase", func() error { return driver.Rebase(ctx, dir) })
		}
		return timed(opts, "pull", func() error { return driver.Pull(ctx, dir) })
	}

	if err := timed(opts, "fetch", func() error { return driver.Fetch(ctx, dir) }); err != nil {
		return err
	}
	return timed(opts, "checkout", func() error { return driver.Checkout(ctx, dir, p.Revision) })
}

// classifyExistingCloneAction mirrors syncExistingClone's decision: branch is
// the branch checked out before the sync.
func classifyExistingCloneAction(opts Options, p resolver.Project, branch string) Action {
	if p.Revision == "" {
		return ActionNoop
	}
	if branch == "" || branch != p.Revision {
		return ActionCheckedOut
	}
	if opts.Rebase {
		return ActionRebased
	}
	return ActionPulled
}

func timed(opts Options, op string, fn func() error) error {
	start := timeNow()
	err := fn()
	if opts.Metrics != nil {
		opts.Metrics.ObserveGitOp(op, err, timeNow().Sub(start).Seconds())
	}
	return err
}

// timeNow is a seam so operation-duration metrics stay mockable in tests.
var timeNow = time.Now

// pathLocks serializes the per-project Git operations against the same
// workspace-relative path, in case two entries in a resolved set target the
// same directory in one run. Link and copy files are processed after every
// project operation has finished and do not take these locks.
// Grounded on the teacher's internal/infra/prefetcher task-map pattern.
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPathLocks() *pathLocks {
	return &pathLocks{locks: map[string]*sync.Mutex{}}
}

func (p *pathLocks) lock(path string) func() {
	p.mu.Lock()
	l, ok := p.locks[path]
	if !ok {
		l = &sync.Mutex{}
		p.locks[path] = l
	}
	p.mu.Unlock()

	l.Lock()
	return l.Unlock
}

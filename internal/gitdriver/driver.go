// Package gitdriver implements the Git collaborator spec.md §9 describes by
// interface: the narrow set of operations the materializer and transform
// packages need, with every invocation going through a single subprocess
// runner (adapted from the teacher's internal/infra/gitcmd).
package gitdriver

import "context"

// Driver is the external Git collaborator contract spec.md §9 names:
// Clone, Fetch, Pull, Checkout, Rebase, SubmoduleUpdate, Branch, RemoteURL,
// RevParseHEAD, IsClean, HasUntracked, HasUnpushed, HasStash.
type Driver interface {
	Clone(ctx context.Context, url, dir string, depth int) error
	Fetch(ctx context.Context, dir string) error
	Pull(ctx context.Context, dir string) error
	Rebase(ctx context.Context, dir string) error
	Checkout(ctx context.Context, dir, revision string) error
	SubmoduleUpdate(ctx context.Context, dir string) error

	// Branch returns the name of the currently checked out branch, or ""
	// for a detached HEAD.
	Branch(ctx context.Context, dir string) (string, error)
	RemoteURL(ctx context.Context, dir, remote string) (string, error)
	RevParseHEAD(ctx context.Context, dir string) (string, error)

	IsGitClone(ctx context.Context, dir string) bool
	IsClean(ctx context.Context, dir string) (bool, error)
	HasUntracked(ctx context.Context, dir string) (bool, error)
	HasUnpushed(ctx context.Context, dir string) (bool, error)
	HasStash(ctx context.Context, dir string) (bool, error)
}

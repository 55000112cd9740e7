package gitdriver

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory Driver double for tests that exercise materialize
// and transform without invoking the real git binary. The mutating
// operations (Clone, Fetch, Pull, Rebase, Checkout, SubmoduleUpdate) record
// themselves in Calls for assertions; the query methods do not.
type Fake struct {
	mu sync.Mutex

	Cloned      map[string]string // dir -> url
	Checkouts   map[string]string // dir -> revision
	HEADs       map[string]string // dir -> simulated current commit SHA
	Branches    map[string]string // dir -> current branch ("" = detached)
	RemoteURLs  map[string]string // dir -> origin URL
	Clean       map[string]bool
	Untracked   map[string]bool
	Unpushed    map[string]bool
	Stashed     map[string]bool
	GitClones   map[string]bool

	Calls []string
}

// NewFake returns a Fake with every map initialized.
func NewFake() *Fake {
	return &Fake{
		Cloned: map[string]string{}, Checkouts: map[string]string{},
		HEADs: map[string]string{}, Branches: map[string]string{},
		RemoteURLs: map[string]string{}, Clean: map[string]bool{},
		Untracked: map[string]bool{}, Unpushed: map[string]bool{},
		Stashed: map[string]bool{}, GitClones: map[string]bool{},
	}
}

func (f *Fake) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, call)
}

func (f *Fake) Clone(_ context.Context, url, dir string, depth int) error {
	f.record(fmt.Sprintf("clone %s %s depth=%d", url, dir, depth))
	f.Cloned[dir] = url
	f.GitClones[dir] = true
	return nil
}

func (f *Fake) Fetch(_ context.Context, dir string) error {
	f.record("fetch " + dir)
	return nil
}

func (f *Fake) Pull(_ context.Context, dir string) error {
	f.record("pull " + dir)
	return nil
}

func (f *Fake) Rebase(_ context.Context, dir string) error {
	f.record("rebase " + dir)
	return nil
}

func (f *Fake) Checkout(_ context.Context, dir, revision string) error {
	f.record(fmt.Sprintf("checkout %s %s", dir, revision))
	f.Checkouts[dir] = revision
	return nil
}

func (f *Fake) SubmoduleUpdate(_ context.Context, dir string) error {
	f.record("submodule-update " + dir)
	return nil
}

func (f *Fake) Branch(_ context.Context, dir string) (string, error) {
	return f.Branches[dir], nil
}

func (f *Fake) RemoteURL(_ context.Context, dir, _ string) (string, error) {
	return f.RemoteURLs[dir], nil
}

func (f *Fake) RevParseHEAD(_ context.Context, dir string) (string, error) {
	if sha, ok := f.HEADs[dir]; ok {
		return sha, nil
	}
	return "", fmt.Errorf("no HEAD recorded for %s", dir)
}

func (f *Fake) IsGitClone(_ context.Context, dir string) bool {
	return f.GitClones[dir]
}

func (f *Fake) IsClean(_ context.Context, dir string) (bool, error) {
	return f.Clean[dir], nil
}

func (f *Fake) HasUntracked(_ context.Context, dir string) (bool, error) {
	return f.Untracked[dir], nil
}

func (f *Fake) HasUnpushed(_ context.Context, dir string) (bool, error) {
	return f.Unpushed[dir], nil
}

func (f *Fake) HasStash(_ context.Context, dir string) (bool, error) {
	return f.Stashed[dir], nil
}

package materialize

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/basalt-tools/gitws/internal/gitdriver"
	"github.com/basalt-tools/gitws/internal/manifest"
	"github.com/basalt-tools/gitws/internal/resolver"
)

func newOsOptions(t *testing.T) (Options, string) {
	t.Helper()
	root := t.TempDir()
	return Options{
		Fs:            afero.NewOsFs(),
		WorkspaceRoot: root,
		Driver:        gitdriver.NewFake(),
	}, root
}

func TestMaterializeClonesMissingProject(t *testing.T) {
	opts, root := newOsOptions(t)
	fake := opts.Driver.(*gitdriver.Fake)

	result := resolver.Result{Projects: []resolver.Project{
		{Name: "app", Path: "app", IsMain: true, Submodules: false},
		{Name: "mylib", Path: "mylib", Level: 1, URL: "https://example.com/mylib", Revision: "v1.0"},
	}}

	report, err := Materialize(context.Background(), opts, result)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if report.Failed {
		t.Fatalf("unexpected failure: %+v", report.Outcomes)
	}
	if fake.Cloned[filepath.Join(root, "mylib")] != "https://example.com/mylib" {
		t.Errorf("expected mylib to be cloned, got %+v", fake.Cloned)
	}
	if fake.Checkouts[filepath.Join(root, "mylib")] != "v1.0" {
		t.Errorf("expected checkout to v1.0, got %+v", fake.Checkouts)
	}
}

func TestMaterializePullsWhenRevisionIsCurrentBranch(t *testing.T) {
	opts, root := newOsOptions(t)
	fake := opts.Driver.(*gitdriver.Fake)
	dir := filepath.Join(root, "mylib")
	fake.GitClones[dir] = true
	fake.Branches[dir] = "main"

	result := resolver.Result{Projects: []resolver.Project{
		{Name: "mylib", Path: "mylib", Level: 1, Revision: "main"},
	}}

	report, err := Materialize(context.Background(), opts, result)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if report.Outcomes[0].Action != ActionPulled {
		t.Errorf("got action %v", report.Outcomes[0].Action)
	}
	found := false
	for _, c := range fake.Calls {
		if c == "pull "+dir {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a pull call, got %v", fake.Calls)
	}
}

func TestMaterializeFetchesAndChecksOutPinnedRevision(t *testing.T) {
	opts, root := newOsOptions(t)
	fake := opts.Driver.(*gitdriver.Fake)
	dir := filepath.Join(root, "mylib")
	fake.GitClones[dir] = true
	fake.Branches[dir] = "" // detached

	result := resolver.Result{Projects: []resolver.Project{
		{Name: "mylib", Path: "mylib", Level: 1, Revision: "a1b2c3d"},
	}}

	if _, err := Materialize(context.Background(), opts, result); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if fake.Checkouts[dir] != "a1b2c3d" {
		t.Errorf("expected checkout to a1b2c3d, got %+v", fake.Checkouts)
	}
}

func TestMaterializeNotAGitCloneWithoutForce(t *testing.T) {
	opts, root := newOsOptions(t)
	dir := filepath.Join(root, "mylib")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	result := resolver.Result{Projects: []resolver.Project{
		{Name: "mylib", Path: "mylib", Level: 1, Revision: "v1.0"},
	}}

	report, err := Materialize(context.Background(), opts, result)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if !report.Failed {
		t.Fatal("expected failure")
	}
	if report.Outcomes[0].Action != ActionNotAGitClone {
		t.Errorf("got action %v", report.Outcomes[0].Action)
	}
}

func TestMaterializeLinkFilesFirstLevelOnly(t *testing.T) {
	opts, root := newOsOptions(t)
	mainDir := filepath.Join(root, "app")
	if err := os.MkdirAll(mainDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(mainDir, "hooks.sh"), []byte("#!/bin/sh\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	result := resolver.Result{Projects: []resolver.Project{
		{
			Name: "app", Path: "app", IsMain: true,
			LinkFiles: []manifest.FileRef{{Src: "hooks.sh", Dest: "linked-hooks.sh"}},
		},
		{
			Name: "deep", Path: "deep", Level: 2,
			LinkFiles: []manifest.FileRef{{Src: "hooks.sh", Dest: "linked-hooks.sh"}},
		},
	}}

	if _, err := Materialize(context.Background(), opts, result); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	target := filepath.Join(mainDir, "linked-hooks.sh")
	info, err := os.Lstat(target)
	if err != nil {
		t.Fatalf("Lstat: %v", err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Errorf("expected %s to be a symlink", target)
	}
	deepTarget := filepath.Join(root, "deep", "linked-hooks.sh")
	if _, err := os.Lstat(deepTarget); !os.IsNotExist(err) {
		t.Errorf("expected no linkfile for a level-2 project at %s, got err=%v", deepTarget, err)
	}
}

func TestMaterializeCopyFileRefusesOverwriteOfModifiedDestination(t *testing.T) {
	opts, root := newOsOptions(t)
	mainDir := filepath.Join(root, "app")
	if err := os.MkdirAll(mainDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(mainDir, "a.txt"), []byte("v1"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	result := resolver.Result{Projects: []resolver.Project{
		{
			Name: "app", Path: "app", IsMain: true,
			CopyFiles: []manifest.FileRef{{Src: "a.txt", Dest: "b.txt"}},
		},
	}}

	if _, err := Materialize(context.Background(), opts, result); err != nil {
		t.Fatalf("first Materialize: %v", err)
	}

	// Simulate the destination being hand-edited after the copy.
	if err := os.WriteFile(filepath.Join(mainDir, "b.txt"), []byte("hand-edited"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(mainDir, "a.txt"), []byte("v2"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Materialize(context.Background(), opts, result); err == nil {
		t.Fatal("expected second Materialize to refuse overwrite")
	}

	opts.Force = true
	if _, err := Materialize(context.Background(), opts, result); err != nil {
		t.Fatalf("Materialize with --force: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(mainDir, "b.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "v2" {
		t.Errorf("got %q, want v2", got)
	}
}

func TestPruneRemovesCleanUnresolvedClone(t *testing.T) {
	opts, root := newOsOptions(t)
	fake := opts.Driver.(*gitdriver.Fake)
	stale := filepath.Join(root, "lib2")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	fake.GitClones[stale] = true
	fake.Clean[stale] = true

	opts.Prune = true
	result := resolver.Result{Projects: []resolver.Project{
		{Name: "app", Path: "app", IsMain: true},
	}}
	if err := os.MkdirAll(filepath.Join(root, "app"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	report, err := Materialize(context.Background(), opts, result)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if len(report.Pruned) != 1 || report.Pruned[0].Action != PruneRemoved {
		t.Fatalf("got prune outcomes %+v", report.Pruned)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("expected %s removed", stale)
	}
}

func TestPruneRefusesDirtyClone(t *testing.T) {
	opts, root := newOsOptions(t)
	fake := opts.Driver.(*gitdriver.Fake)
	stale := filepath.Join(root, "lib2")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	fake.GitClones[stale] = true
	fake.Untracked[stale] = true

	opts.Prune = true
	result := resolver.Result{Projects: []resolver.Project{
		{Name: "app", Path: "app", IsMain: true},
	}}
	if err := os.MkdirAll(filepath.Join(root, "app"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	report, err := Materialize(context.Background(), opts, result)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if !report.Failed {
		t.Fatal("expected prune refusal to mark the report failed")
	}
	if len(report.Pruned) != 1 || report.Pruned[0].Action != PruneRefused || report.Pruned[0].Reason != "untracked" {
		t.Fatalf("got prune outcomes %+v", report.Pruned)
	}
	if _, err := os.Stat(stale); err != nil {
		t.Errorf("expected %s to still exist, got %v", stale, err)
	}
}

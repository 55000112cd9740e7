package gitdriver

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ExecDriver implements Driver by shelling out to the system git binary,
// one subprocess per call (adapted from the teacher's
// internal/infra/gitcmd command set).
type ExecDriver struct{}

// NewExecDriver returns the default Driver used outside of tests.
func NewExecDriver() *ExecDriver { return &ExecDriver{} }

func (ExecDriver) Clone(ctx context.Context, url, dir string, depth int) error {
	args := []string{"clone"}
	if depth > 0 {
		args = append(args, "--depth", strconv.Itoa(depth))
	}
	args = append(args, url, dir)
	_, err := run(ctx, "", args...)
	return err
}

func (ExecDriver) Fetch(ctx context.Context, dir string) error {
	_, err := run(ctx, dir, "fetch")
	return err
}

func (ExecDriver) Pull(ctx context.Context, dir string) error {
	_, err := run(ctx, dir, "pull")
	return err
}

func (ExecDriver) Rebase(ctx context.Context, dir string) error {
	_, err := run(ctx, dir, "pull", "--rebase")
	return err
}

func (ExecDriver) Checkout(ctx context.Context, dir, revision string) error {
	_, err := run(ctx, dir, "checkout", revision)
	return err
}

func (ExecDriver) SubmoduleUpdate(ctx context.Context, dir string) error {
	_, err := run(ctx, dir, "submodule", "update", "--init", "--recursive")
	return err
}

func (ExecDriver) Branch(ctx context.Context, dir string) (string, error) {
	res, err := run(ctx, dir, "symbolic-ref", "--short", "-q", "HEAD")
	if err != nil {
		if res.ExitCode == 1 {
			return "", nil // detached HEAD
		}
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

func (ExecDriver) RemoteURL(ctx context.Context, dir, remote string) (string, error) {
	res, err := run(ctx, dir, "remote", "get-url", remote)
	if err != nil {
		return "", fmt.Errorf("remote url for %s: %w", remote, err)
	}
	return strings.TrimSpace(res.Stdout), nil
}

func (ExecDriver) RevParseHEAD(ctx context.Context, dir string) (string, error) {
	res, err := run(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("rev-parse HEAD: %w", err)
	}
	return strings.TrimSpace(res.Stdout), nil
}

func (ExecDriver) IsGitClone(_ context.Context, dir string) bool {
	info, err := os.Stat(dir + "/.git")
	return err == nil && (info.IsDir() || info.Mode().IsRegular()) // regular file: worktree/submodule .git pointer
}

func (ExecDriver) IsClean(ctx context.Context, dir string) (bool, error) {
	res, err := run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(res.Stdout) == "", nil
}

func (ExecDriver) HasUntracked(ctx context.Context, dir string) (bool, error) {
	res, err := run(ctx, dir, "status", "--porcelain", "--untracked-files=all")
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(res.Stdout, "\n") {
		if strings.HasPrefix(line, "??") {
			return true, nil
		}
	}
	return false, nil
}

func (ExecDriver) HasUnpushed(ctx context.Context, dir string) (bool, error) {
	res, err := run(ctx, dir, "status", "--porcelain", "--branch")
	if err != nil {
		return false, err
	}
	firstLine := res.Stdout
	if idx := strings.IndexByte(firstLine, '\n'); idx >= 0 {
		firstLine = firstLine[:idx]
	}
	return strings.Contains(firstLine, "[ahead"), nil
}

func (ExecDriver) HasStash(ctx context.Context, dir string) (bool, error) {
	res, err := run(ctx, dir, "stash", "list")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(res.Stdout) != "", nil
}

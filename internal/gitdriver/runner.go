package gitdriver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/basalt-tools/gitws/internal/infra/debuglog"
)

// result is the raw outcome of one git subprocess invocation (adapted from
// the teacher's internal/infra/gitcmd.Result).
type result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// run executes `git <args...>` in dir, tracing through debuglog when
// GITWS_DEBUG is enabled. Every exported ExecDriver method except IsGitClone
// (a plain stat) funnels through here, so a single clone directory's
// operations always serialize by virtue
// of the caller holding that clone's mutex (internal/materialize).
func run(ctx context.Context, dir string, args ...string) (result, error) {
	if len(args) == 0 {
		return result{}, fmt.Errorf("git command is required")
	}
	if !isAllowedSubcommand(args[0]) {
		return result{}, fmt.Errorf("git subcommand %q is not allowed", args[0])
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	trace := ""
	if debuglog.Enabled() {
		trace = debuglog.NewTrace("git")
		debuglog.LogCommand(trace, debuglog.FormatCommand("git", args))
	}
	err := cmd.Run()
	res := result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitCode(err)}
	if debuglog.Enabled() {
		debuglog.LogStdoutLines(trace, res.Stdout)
		debuglog.LogStderrLines(trace, res.Stderr)
		debuglog.LogExit(trace, res.ExitCode)
	}
	if err != nil {
		if msg := strings.TrimSpace(res.Stderr); msg != "" {
			return res, fmt.Errorf("git %v: %w: %s", args, err, msg)
		}
		return res, fmt.Errorf("git %v: %w", args, err)
	}
	return res, nil
}

var allowedSubcommands = map[string]struct{}{
	"add":              {},
	"branch":           {},
	"check-ref-format": {},
	"checkout":         {},
	"clone":            {},
	"commit":           {},
	"config":           {},
	"diff":             {},
	"fetch":            {},
	"init":             {},
	"log":              {},
	"ls-remote":        {},
	"pull":             {},
	"push":             {},
	"rebase":           {},
	"remote":           {},
	"rev-parse":        {},
	"show-ref":         {},
	"stash":            {},
	"status":           {},
	"submodule":        {},
	"symbolic-ref":     {},
	"tag":              {},
	"update-ref":       {},
	"version":          {},
	"worktree":         {},
}

func isAllowedSubcommand(subcommand string) bool {
	_, ok := allowedSubcommands[subcommand]
	return ok
}

// RunRaw executes an arbitrary allow-listed git subcommand in dir and
// returns its stdout (stderr only appears in the returned error), for the
// CLI's foreach/git/push/status/diff/tag commands (spec.md §6 "invoke Git
// via collaborator") — the core packages never call this themselves, only
// internal/cliapp.
func RunRaw(ctx context.Context, dir string, args ...string) (string, error) {
	res, err := run(ctx, dir, args...)
	if err != nil {
		return res.Stdout, err
	}
	return res.Stdout, nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return -1
	}
	return exitErr.ExitCode()
}

package cliapp

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/basalt-tools/gitws/internal/gitdriver"
	"github.com/basalt-tools/gitws/internal/resolver"
)

// iterate walks result.Projects in BFS order (or reverse, for teardown-style
// commands like `push`) and calls fn with each project's absolute directory
// (spec.md §6 "Iterate resolved projects (BFS, reverse on request)").
func iterate(e *env, result resolver.Result, reverse bool, fn func(p resolver.Project, dir string) error) error {
	projects := result.Projects
	if reverse {
		projects = make([]resolver.Project, len(result.Projects))
		for i, p := range result.Projects {
			projects[len(result.Projects)-1-i] = p
		}
	}
	var firstErr error
	for _, p := range projects {
		dir := filepath.Join(e.root, p.Path)
		if err := fn(p, dir); err != nil {
			role := "dep "
			if p.IsMain {
				role = "main"
			}
			fmt.Fprintf(e.log.Out, "[%s] %-32s error: %v\n", role, p.Path, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func resolveForIteration(e *env) (resolver.Result, error) {
	if err := requireWorkspace(e); err != nil {
		return resolver.Result{}, err
	}
	opts, err := resolverOptions(e)
	if err != nil {
		return resolver.Result{}, err
	}
	result, err := resolver.Resolve(opts)
	if err != nil {
		return resolver.Result{}, err
	}
	e.log.Diagnostics(result.Diagnostics)
	return result, nil
}

func newForeachCmd() *cobra.Command {
	var reverse bool
	cmd := &cobra.Command{
		Use:   "foreach -- <command> [args...]",
		Short: "Run an arbitrary shell-free git subcommand in every resolved project",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFromContext(cmd.Context())
			result, err := resolveForIteration(e)
			if err != nil {
				return err
			}
			return iterate(e, result, reverse, func(p resolver.Project, dir string) error {
				out, err := gitdriver.RunRaw(cmd.Context(), dir, args...)
				if strings.TrimSpace(out) != "" {
					fmt.Fprint(cmd.OutOrStdout(), out)
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&reverse, "reverse", false, "iterate dependencies before the main project")
	return cmd
}

func newGitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                "git -- <args...>",
		Short:              "Alias for foreach: run `git <args>` in every resolved project",
		Args:               cobra.MinimumNArgs(1),
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFromContext(cmd.Context())
			result, err := resolveForIteration(e)
			if err != nil {
				return err
			}
			return iterate(e, result, false, func(p resolver.Project, dir string) error {
				out, err := gitdriver.RunRaw(cmd.Context(), dir, args...)
				if strings.TrimSpace(out) != "" {
					fmt.Fprint(cmd.OutOrStdout(), out)
				}
				return err
			})
		},
	}
	return cmd
}

func newPullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Pull every resolved project's current branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFromContext(cmd.Context())
			result, err := resolveForIteration(e)
			if err != nil {
				return err
			}
			return iterate(e, result, false, func(p resolver.Project, dir string) error {
				return e.driver.Pull(cmd.Context(), dir)
			})
		},
	}
}

func newPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Push every resolved project's current branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFromContext(cmd.Context())
			result, err := resolveForIteration(e)
			if err != nil {
				return err
			}
			return iterate(e, result, true, func(p resolver.Project, dir string) error {
				_, err := gitdriver.RunRaw(cmd.Context(), dir, "push")
				return err
			})
		},
	}
}

func newRebaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebase",
		Short: "Rebase every resolved project's current branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFromContext(cmd.Context())
			result, err := resolveForIteration(e)
			if err != nil {
				return err
			}
			return iterate(e, result, false, func(p resolver.Project, dir string) error {
				return e.driver.Rebase(cmd.Context(), dir)
			})
		},
	}
}

func newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch every resolved project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFromContext(cmd.Context())
			result, err := resolveForIteration(e)
			if err != nil {
				return err
			}
			return iterate(e, result, false, func(p resolver.Project, dir string) error {
				return e.driver.Fetch(cmd.Context(), dir)
			})
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print `git status --short` for every resolved project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFromContext(cmd.Context())
			result, err := resolveForIteration(e)
			if err != nil {
				return err
			}
			return iterate(e, result, false, func(p resolver.Project, dir string) error {
				out, err := gitdriver.RunRaw(cmd.Context(), dir, "status", "--short")
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s", p.Path, out)
				return err
			})
		},
	}
}

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "Print `git diff` for every resolved project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFromContext(cmd.Context())
			result, err := resolveForIteration(e)
			if err != nil {
				return err
			}
			return iterate(e, result, false, func(p resolver.Project, dir string) error {
				out, err := gitdriver.RunRaw(cmd.Context(), dir, "diff")
				if strings.TrimSpace(out) != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s", p.Path, out)
				}
				return err
			})
		},
	}
}

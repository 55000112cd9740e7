// Package cliapp is the thin `gitws` command dispatcher: it only translates
// flags into calls on the core packages (resolver, materialize, transform,
// manifest, wsmeta) and the ambient stack (appconfig, uilog). No business
// logic lives here, mirroring the teacher's internal/cli (flag parsing and
// rendering only, delegating to internal/domain and internal/ops).
package cliapp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/basalt-tools/gitws/internal/appconfig"
	"github.com/basalt-tools/gitws/internal/gitdriver"
	"github.com/basalt-tools/gitws/internal/groupfilter"
	"github.com/basalt-tools/gitws/internal/manifest"
	"github.com/basalt-tools/gitws/internal/metrics"
	"github.com/basalt-tools/gitws/internal/resolver"
	"github.com/basalt-tools/gitws/internal/uilog"
	"github.com/basalt-tools/gitws/internal/wsmeta"
)

// env bundles the collaborators every subcommand needs, built once in
// PersistentPreRunE and threaded through via the command's context — the
// same "build once, pass down" shape as the teacher's rootDir/theme/renderer
// locals in internal/cli/app.go, generalized into a struct instead of
// positional parameters since gitws has many more subcommands.
type env struct {
	fs     afero.Fs
	driver gitdriver.Driver
	log    *uilog.Logger
	cfg    *appconfig.Store
	metr   *metrics.Registry

	root       string // workspace root, resolved via wsmeta.Find
	groupFlags []string
}

type envKey struct{}

func envFromContext(ctx context.Context) *env {
	e, _ := ctx.Value(envKey{}).(*env)
	if e == nil {
		panic("cliapp: command ran without an env in its context")
	}
	return e
}

// New builds the root `gitws` command tree (SPEC_FULL.md §2).
func New() *cobra.Command {
	root := &cobra.Command{
		Use:           "gitws",
		Short:         "Resolve, materialize, and manage multi-repository Git workspaces",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	e := &env{fs: afero.NewOsFs(), driver: gitdriver.NewExecDriver(), metr: metrics.New()}
	root.PersistentFlags().StringArrayVar(&e.groupFlags, "group-filter", nil,
		"group filter expression, e.g. +frontend or -optional@libs/* (repeatable, highest precedence)")
	var noColor bool
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		e.log = uilog.New(cmd.OutOrStdout())
		if noColor {
			e.log.UseColor = false
		}
		root, ok, err := wsmeta.Find(mustGetwd())
		if err != nil {
			return err
		}
		if ok {
			e.root = root
			if err := uilog.EnableDebug(root); err != nil {
				return err
			}
		}
		cfgPaths := appconfig.Paths{}
		if dir, err := appconfig.UserConfigDir(); err == nil {
			cfgPaths.UserFile = filepath.Join(dir, "config.toml")
		}
		if e.root != "" {
			cfgPaths.WorkspaceFile = filepath.Join(e.root, wsmeta.DirName, "appconfig.toml")
		}
		store, err := appconfig.Load(e.fs, cfgPaths)
		if err != nil {
			return err
		}
		e.cfg = store
		cmd.SetContext(context.WithValue(cmd.Context(), envKey{}, e))
		return nil
	}

	root.AddCommand(
		newInitCmd(), newCloneCmd(), newUpdateCmd(), newCheckoutCmd(), newDeinitCmd(),
		newForeachCmd(), newGitCmd(), newPullCmd(), newPushCmd(), newRebaseCmd(),
		newFetchCmd(), newStatusCmd(), newDiffCmd(),
		newManifestCmd(),
		newDepCmd(), newRemoteCmd(), newDefaultCmd(), newGroupFiltersCmd(),
		newInfoCmd(),
		newTagCmd(),
	)
	return root
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// requireWorkspace fails fast with a WorkspaceNotFound-style error when a
// command needs an enclosing .git-ws directory (spec.md §7 error taxonomy).
func requireWorkspace(e *env) error {
	if e.root == "" {
		return fmt.Errorf("not inside a gitws workspace (no %s found above the current directory)", wsmeta.DirName)
	}
	return nil
}

// cliFilters parses --group-filter values from e plus any already-configured
// default filters from appconfig (spec.md §4.3 precedence: CLI highest).
func cliFilters(e *env) ([]groupfilter.Rule, error) {
	raw := append([]string{}, e.cfg.DefaultGroupFilters()...)
	raw = append(raw, e.groupFlags...)
	return groupfilter.ParseList(raw, "cli")
}

// resolverOptions builds resolver.Options for the workspace at e.root,
// reading its stored metadata for main path/manifest path (spec.md §4.7).
func resolverOptions(e *env) (resolver.Options, error) {
	cfg, err := wsmeta.Load(e.root)
	if err != nil {
		return resolver.Options{}, fmt.Errorf("load workspace metadata: %w", err)
	}
	filters, err := cliFilters(e)
	if err != nil {
		return resolver.Options{}, err
	}
	opts := resolver.Options{
		Fs:            e.fs,
		WorkspaceRoot: e.root,
		ManifestPath:  cfg.ManifestPath,
		CLIFilters:    filters,
	}
	if cfg.MainPath != "" {
		dir := filepath.Join(e.root, cfg.MainPath)
		rev, _ := e.driver.RevParseHEAD(context.Background(), dir)
		url, _ := e.driver.RemoteURL(context.Background(), dir, "origin")
		opts.Main = &resolver.MainProject{Path: cfg.MainPath, Name: filepath.Base(cfg.MainPath), URL: url, Revision: rev}
	}
	return opts, nil
}

func mainManifestPath(e *env, cfg wsmeta.Config) string {
	manifestRel := cfg.ManifestPath
	if manifestRel == "" {
		manifestRel = manifest.FileName
	}
	return filepath.Join(e.root, cfg.MainPath, manifestRel)
}

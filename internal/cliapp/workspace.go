package cliapp

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/basalt-tools/gitws/internal/manifest"
	"github.com/basalt-tools/gitws/internal/materialize"
	"github.com/basalt-tools/gitws/internal/resolver"
	"github.com/basalt-tools/gitws/internal/wsmeta"
)

func newInitCmd() *cobra.Command {
	var manifestPath string
	cmd := &cobra.Command{
		Use:   "init [workspace-dir]",
		Short: "Create workspace metadata for a main-less workspace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFromContext(cmd.Context())
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			abs, err := filepath.Abs(dir)
			if err != nil {
				return err
			}
			if err := e.fs.MkdirAll(filepath.Join(abs, wsmeta.DirName), 0o755); err != nil {
				return err
			}
			cfg := wsmeta.Config{ManifestPath: manifestPath}
			if err := wsmeta.Save(abs, cfg); err != nil {
				return err
			}
			e.log.Header("gitws init")
			fmt.Fprintf(cmd.OutOrStdout(), "workspace: %s\n", abs)
			return nil
		},
	}
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "manifest path relative to the workspace root")
	return cmd
}

func newCloneCmd() *cobra.Command {
	var manifestPath string
	var prune, force, rebase bool
	cmd := &cobra.Command{
		Use:   "clone <url> [workspace-dir]",
		Short: "Clone a main project and materialize its dependency tree",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFromContext(cmd.Context())
			url := args[0]
			dir := filepath.Base(url)
			if len(args) == 2 {
				dir = args[1]
			}
			abs, err := filepath.Abs(dir)
			if err != nil {
				return err
			}
			mainPath := "."
			cloneDir := abs
			if err := e.driver.Clone(cmd.Context(), url, cloneDir, e.cfg.CloneDepth()); err != nil {
				return err
			}
			lock, err := wsmeta.AcquireExclusive(cmd.Context(), abs)
			if err != nil {
				return err
			}
			defer lock.Release()
			if err := wsmeta.Save(abs, wsmeta.Config{MainPath: mainPath, ManifestPath: manifestPath}); err != nil {
				return err
			}
			e.root = abs
			return runUpdate(cmd, e, updateFlags{prune: prune, force: force, rebase: rebase})
		},
	}
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "manifest path relative to the main project")
	cmd.Flags().BoolVar(&prune, "prune", false, "remove clones that fell out of the resolved set")
	cmd.Flags().BoolVar(&force, "force", false, "force operations despite dirty trees")
	cmd.Flags().BoolVar(&rebase, "rebase", false, "rebase instead of pull on existing clones")
	return cmd
}

type updateFlags struct {
	skipMain bool
	rebase   bool
	prune    bool
	force    bool
}

func newUpdateCmd() *cobra.Command {
	var f updateFlags
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Run the resolver and materializer (spec.md §4.5)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFromContext(cmd.Context())
			if err := requireWorkspace(e); err != nil {
				return err
			}
			lock, err := wsmeta.AcquireExclusive(cmd.Context(), e.root)
			if err != nil {
				return err
			}
			defer lock.Release()
			return runUpdate(cmd, e, f)
		},
	}
	cmd.Flags().BoolVar(&f.skipMain, "skip-main", false, "do not touch the main project's clone")
	cmd.Flags().BoolVar(&f.rebase, "rebase", false, "rebase instead of pull on existing clones")
	cmd.Flags().BoolVar(&f.prune, "prune", false, "remove clones that fell out of the resolved set")
	cmd.Flags().BoolVar(&f.force, "force", false, "force operations despite dirty trees")
	return cmd
}

func runUpdate(cmd *cobra.Command, e *env, f updateFlags) error {
	opts, err := resolverOptions(e)
	if err != nil {
		return err
	}
	result, err := resolver.Resolve(opts)
	if err != nil {
		return err
	}
	e.log.Diagnostics(result.Diagnostics)

	report, err := materialize.Materialize(cmd.Context(), materialize.Options{
		Fs:            e.fs,
		WorkspaceRoot: e.root,
		Driver:        e.driver,
		Metrics:       e.metr,
		SkipMain:      f.skipMain,
		Rebase:        f.rebase,
		Prune:         f.prune,
		Force:         f.force,
		CloneDepth:    e.cfg.CloneDepth(),
	}, result)
	if err != nil {
		return err
	}
	for i, o := range report.Outcomes {
		e.log.ProjectBanner(o, result.Projects[i].IsMain)
	}
	for _, p := range report.Pruned {
		e.log.PruneBanner(p)
	}
	if report.Failed {
		return fmt.Errorf("materialize: one or more projects failed (see banners above)")
	}
	return nil
}

func newCheckoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Reset each resolved clone to its manifest-declared revision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFromContext(cmd.Context())
			if err := requireWorkspace(e); err != nil {
				return err
			}
			lock, err := wsmeta.AcquireExclusive(cmd.Context(), e.root)
			if err != nil {
				return err
			}
			defer lock.Release()

			opts, err := resolverOptions(e)
			if err != nil {
				return err
			}
			result, err := resolver.Resolve(opts)
			if err != nil {
				return err
			}
			for _, p := range result.Projects {
				if p.Revision == "" {
					continue
				}
				dir := filepath.Join(e.root, p.Path)
				if err := e.driver.Checkout(cmd.Context(), dir, p.Revision); err != nil {
					e.log.ProjectBanner(materialize.Outcome{Path: p.Path, Action: materialize.ActionError, Err: err}, p.IsMain)
					continue
				}
				e.log.ProjectBanner(materialize.Outcome{Path: p.Path, Action: materialize.ActionCheckedOut}, p.IsMain)
			}
			return nil
		},
	}
	return cmd
}

func newDeinitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deinit",
		Short: "Delete .git-ws/ and forget this workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFromContext(cmd.Context())
			if err := requireWorkspace(e); err != nil {
				return err
			}
			return wsmeta.Delete(e.root)
		},
	}
	return cmd
}

// loadMainManifest is shared by the manifest/dep/remote/default/group-filters
// commands, each of which edits the main project's git-ws.toml in place.
func loadMainManifest(e *env) (manifest.ManifestSpec, string, wsmeta.Config, error) {
	cfg, err := wsmeta.Load(e.root)
	if err != nil {
		return manifest.ManifestSpec{}, "", cfg, err
	}
	path := mainManifestPath(e, cfg)
	spec, err := manifest.Load(path)
	if err != nil {
		return manifest.ManifestSpec{}, "", cfg, err
	}
	return spec, path, cfg, nil
}

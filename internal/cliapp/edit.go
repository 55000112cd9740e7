package cliapp

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/basalt-tools/gitws/internal/manifest"
)

// saveMain writes spec back to the main manifest with schema docs, the same
// round-trip the teacher's cli/manifest_add.go etc. use after every mutation.
func saveMain(path string, spec manifest.ManifestSpec) error {
	return manifest.SaveWithDocs(path, spec)
}

func newDepCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "dep", Short: "Edit the main manifest's dependency list"}
	cmd.AddCommand(newDepAddCmd(), newDepRmCmd())
	return cmd
}

func newDepAddCmd() *cobra.Command {
	var remote, subURL, url, revision, path, manifestPath string
	var groups []string
	var submodules bool
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a dependency to the main manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFromContext(cmd.Context())
			if err := requireWorkspace(e); err != nil {
				return err
			}
			spec, mpath, _, err := loadMainManifest(e)
			if err != nil {
				return err
			}
			sm := submodules
			spec, err = manifest.AddDependency(spec, manifest.ProjectSpec{
				Name: args[0], Remote: remote, SubURL: subURL, URL: url,
				Revision: revision, Path: path, ManifestPath: manifestPath,
				Groups: groups, Submodules: &sm,
			})
			if err != nil {
				return err
			}
			if err := saveMain(mpath, spec); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added dependency %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "remote alias to resolve the URL under")
	cmd.Flags().StringVar(&subURL, "sub-url", "", "URL suffix appended to the remote's base")
	cmd.Flags().StringVar(&url, "url", "", "absolute URL (overrides remote/sub-url)")
	cmd.Flags().StringVar(&revision, "revision", "", "pinned revision")
	cmd.Flags().StringVar(&path, "path", "", "workspace-relative clone path (default: name)")
	cmd.Flags().StringVar(&manifestPath, "manifest-path", "", "nested manifest path (default: git-ws.toml)")
	cmd.Flags().StringArrayVar(&groups, "group", nil, "dependency group membership (repeatable)")
	cmd.Flags().BoolVar(&submodules, "submodules", true, "initialize submodules on clone")
	return cmd
}

func newDepRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <path>",
		Short: "Remove a dependency from the main manifest by its path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFromContext(cmd.Context())
			if err := requireWorkspace(e); err != nil {
				return err
			}
			spec, path, _, err := loadMainManifest(e)
			if err != nil {
				return err
			}
			spec, err = manifest.RemoveDependency(spec, args[0])
			if err != nil {
				return err
			}
			if err := saveMain(path, spec); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed dependency at %s\n", args[0])
			return nil
		},
	}
	return cmd
}

func newRemoteCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "remote", Short: "Edit the main manifest's named remotes"}
	cmd.AddCommand(newRemoteAddCmd(), newRemoteRmCmd())
	return cmd
}

func newRemoteAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name> <url-base>",
		Short: "Declare a named remote base URL",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFromContext(cmd.Context())
			if err := requireWorkspace(e); err != nil {
				return err
			}
			spec, path, _, err := loadMainManifest(e)
			if err != nil {
				return err
			}
			spec, err = manifest.AddRemote(spec, args[0], args[1])
			if err != nil {
				return err
			}
			return saveMain(path, spec)
		},
	}
	return cmd
}

func newRemoteRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <name>",
		Short: "Remove a named remote",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFromContext(cmd.Context())
			if err := requireWorkspace(e); err != nil {
				return err
			}
			spec, path, _, err := loadMainManifest(e)
			if err != nil {
				return err
			}
			spec, err = manifest.RemoveRemote(spec, args[0])
			if err != nil {
				return err
			}
			return saveMain(path, spec)
		},
	}
	return cmd
}

func newDefaultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "default <key> <value>",
		Short: "Set one field of the main manifest's [defaults] table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFromContext(cmd.Context())
			if err := requireWorkspace(e); err != nil {
				return err
			}
			spec, path, _, err := loadMainManifest(e)
			if err != nil {
				return err
			}
			spec, err = manifest.SetDefault(spec, args[0], args[1])
			if err != nil {
				return err
			}
			return saveMain(path, spec)
		},
	}
	return cmd
}

func newGroupFiltersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group-filters [filters...]",
		Short: "Replace the main manifest's top-level group-filters list",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFromContext(cmd.Context())
			if err := requireWorkspace(e); err != nil {
				return err
			}
			spec, path, _, err := loadMainManifest(e)
			if err != nil {
				return err
			}
			spec = manifest.SetGroupFilters(spec, args)
			return saveMain(path, spec)
		},
	}
	return cmd
}

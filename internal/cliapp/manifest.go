package cliapp

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/basalt-tools/gitws/internal/manifest"
	"github.com/basalt-tools/gitws/internal/resolver"
	"github.com/basalt-tools/gitws/internal/transform"
	"github.com/basalt-tools/gitws/internal/wsmeta"
)

// newManifestCmd wires the four transform.go operations plus the
// introspection-only path/paths/create helpers (spec.md §4.6).
func newManifestCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "manifest", Short: "Manifest transform operations (resolve, freeze, validate, upgrade)"}
	cmd.AddCommand(
		newManifestResolveCmd(),
		newManifestFreezeCmd(),
		newManifestValidateCmd(),
		newManifestUpgradeCmd(),
		newManifestPathCmd(),
		newManifestPathsCmd(),
		newManifestCreateCmd(),
	)
	return cmd
}

func newManifestResolveCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Flatten the resolved graph to one manifest with empty defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFromContext(cmd.Context())
			if err := requireWorkspace(e); err != nil {
				return err
			}
			opts, err := resolverOptions(e)
			if err != nil {
				return err
			}
			spec, _, err := transform.Resolve(opts)
			if err != nil {
				return err
			}
			return writeOrPrintManifest(cmd, spec, out)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write the resolved manifest here instead of stdout")
	return cmd
}

func newManifestFreezeCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "freeze",
		Short: "Resolve then overwrite every dependency's revision with its clone's current HEAD",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFromContext(cmd.Context())
			if err := requireWorkspace(e); err != nil {
				return err
			}
			opts, err := resolverOptions(e)
			if err != nil {
				return err
			}
			spec, err := transform.Freeze(cmd.Context(), opts, e.driver)
			if err != nil {
				return err
			}
			return writeOrPrintManifest(cmd, spec, out)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write the frozen manifest here instead of stdout")
	return cmd
}

func newManifestValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a manifest's structure",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFromContext(cmd.Context())
			path := defaultedManifestPath(e, args)
			if _, err := transform.Validate(e.fs, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", path)
			return nil
		},
	}
	return cmd
}

func newManifestUpgradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upgrade [path]",
		Short: "Rewrite a manifest to the latest schema version in place",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFromContext(cmd.Context())
			path := defaultedManifestPath(e, args)
			spec, err := transform.Upgrade(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: upgraded to schema version %d\n", path, spec.Version)
			return nil
		},
	}
	return cmd
}

func newManifestPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the main project's manifest path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFromContext(cmd.Context())
			if err := requireWorkspace(e); err != nil {
				return err
			}
			cfg, err := wsmeta.Load(e.root)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), mainManifestPath(e, cfg))
			return nil
		},
	}
}

func newManifestPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print every resolved project's manifest path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFromContext(cmd.Context())
			opts, err := resolverOptions(e)
			if err != nil {
				return err
			}
			result, err := resolver.Resolve(opts)
			if err != nil {
				return err
			}
			for _, p := range result.Projects {
				fmt.Fprintf(cmd.OutOrStdout(), "%s/%s\n", p.Path, p.ManifestPath)
			}
			return nil
		},
	}
}

func newManifestCreateCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Write a new, empty manifest with schema documentation comments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = manifest.FileName
			}
			return manifest.SaveWithDocs(out, manifest.Create())
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "where to write the new manifest (default ./git-ws.toml)")
	return cmd
}

func writeOrPrintManifest(cmd *cobra.Command, spec manifest.ManifestSpec, out string) error {
	if out != "" {
		return manifest.Save(out, spec)
	}
	data, err := manifest.Marshal(spec)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func defaultedManifestPath(e *env, args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	if e.root != "" {
		if cfg, err := wsmeta.Load(e.root); err == nil {
			return mainManifestPath(e, cfg)
		}
	}
	return manifest.FileName
}

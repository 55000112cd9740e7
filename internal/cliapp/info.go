package cliapp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/basalt-tools/gitws/internal/resolver"
	"github.com/basalt-tools/gitws/internal/wsmeta"
)

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "info", Short: "Read-only introspection of resolver output"}
	cmd.AddCommand(
		newInfoMainPathCmd(), newInfoWorkspacePathCmd(), newInfoProjectPathsCmd(),
		newInfoDepTreeCmd(), newInfoMetricsCmd(),
	)
	return cmd
}

func newInfoMainPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "main-path",
		Short: "Print the main project's workspace-relative path",
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
			fmt.Fprintln(cmd.OutOrStdout(), cfg.MainPath)
			return nil
		},
	}
}

func newInfoWorkspacePathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "workspace-path",
		Short: "Print the enclosing workspace root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFromContext(cmd.Context())
			if err := requireWorkspace(e); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), e.root)
			return nil
		},
	}
}

func newInfoProjectPathsCmd() *cobra.Command {
	var copyName string
	cmd := &cobra.Command{
		Use:   "project-paths",
		Short: "Print every resolved project's workspace-relative path",
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
			if copyName != "" {
				for _, p := range result.Projects {
					if p.Name == copyName {
						return clipboard.WriteAll(filepath.Join(e.root, p.Path))
					}
				}
				return fmt.Errorf("no resolved project named %s", copyName)
			}
			for _, p := range result.Projects {
				fmt.Fprintln(cmd.OutOrStdout(), p.Path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&copyName, "copy", "", "copy the named project's absolute path to the clipboard instead of printing the list")
	return cmd
}

func newInfoMetricsCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Dump Git-operation and prune-decision counters as Prometheus text format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFromContext(cmd.Context())
			if file != "" {
				f, err := e.fs.Create(file)
				if err != nil {
					return err
				}
				defer f.Close()
				return e.metr.WriteText(f)
			}
			return e.metr.WriteText(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&file, "metrics-file", "", "write metrics here instead of stdout (never served over a network)")
	return cmd
}

// depTreeNode is the plain-text/JSON/YAML rendering of one resolved project,
// independent of whatever UI renders it (bubbletea or a flat printer).
type depTreeNode struct {
	Name       string   `json:"name" yaml:"name"`
	Path       string   `json:"path" yaml:"path"`
	Level      int      `json:"level" yaml:"level"`
	URL        string   `json:"url" yaml:"url"`
	Revision   string   `json:"revision" yaml:"revision"`
	Groups     []string `json:"groups,omitempty" yaml:"groups,omitempty"`
	IsMain     bool     `json:"is_main" yaml:"is_main"`
	ClonedInfo string   `json:"cloned,omitempty" yaml:"cloned,omitempty"`
}

func buildDepTree(e *env, result resolver.Result) []depTreeNode {
	nodes := make([]depTreeNode, 0, len(result.Projects))
	for _, p := range result.Projects {
		node := depTreeNode{Name: p.Name, Path: p.Path, Level: p.Level, URL: p.URL, Revision: p.Revision, Groups: p.Groups, IsMain: p.IsMain}
		if info, err := e.fs.Stat(filepath.Join(e.root, p.Path, ".git")); err == nil {
			node.ClonedInfo = humanize.Time(info.ModTime())
		}
		nodes = append(nodes, node)
	}
	return nodes
}

func newInfoDepTreeCmd() *cobra.Command {
	var format string
	var interactive bool
	cmd := &cobra.Command{
		Use:   "dep-tree",
		Short: "Render the resolved dependency tree",
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
			nodes := buildDepTree(e, result)

			if interactive && isatty.IsTerminal(os.Stdout.Fd()) {
				return runDepTreeTUI(nodes)
			}
			switch format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(nodes)
			case "yaml":
				data, err := yaml.Marshal(nodes)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			default:
				for _, n := range nodes {
					indent := strings.Repeat("  ", n.Level)
					label := n.Path
					if n.IsMain {
						label += " (main)"
					}
					if n.ClonedInfo != "" {
						label += fmt.Sprintf(" [%s]", n.ClonedInfo)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", indent, label)
				}
				return nil
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "text|json|yaml")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "browse the tree interactively (TTY only)")
	return cmd
}

func newTagCmd() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "tag <name>",
		Short: "Freeze the manifest, commit it, and create a Git tag (spec.md §6 \"tag\")",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFromContext(cmd.Context())
			if err := requireWorkspace(e); err != nil {
				return err
			}
			if strings.TrimSpace(message) == "" {
				return fmt.Errorf("tag requires -m/--message")
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
			cfg, err := wsmeta.Load(e.root)
			if err != nil {
				return err
			}
			spec, err := transformFreeze(cmd, e, opts)
			if err != nil {
				return err
			}
			frozenPath := filepath.Join(e.root, wsmeta.DirName, "manifests", args[0]+".toml")
			if err := saveFrozenManifest(e, frozenPath, spec); err != nil {
				return err
			}
			mainDir := filepath.Join(e.root, cfg.MainPath)
			if _, err := gitAdd(cmd, mainDir, frozenPath); err != nil {
				return err
			}
			if _, err := gitCommit(cmd, mainDir, message); err != nil {
				return err
			}
			if _, err := gitTag(cmd, mainDir, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tagged %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "tag message, committed alongside the frozen manifest")
	return cmd
}

package cliapp

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/basalt-tools/gitws/internal/gitdriver"
	"github.com/basalt-tools/gitws/internal/manifest"
	"github.com/basalt-tools/gitws/internal/resolver"
	"github.com/basalt-tools/gitws/internal/transform"
)

// transformFreeze is a thin wrapper so newTagCmd reads like the rest of this
// package's RunE bodies (one call per transform.go operation).
func transformFreeze(cmd *cobra.Command, e *env, opts resolver.Options) (manifest.ManifestSpec, error) {
	return transform.Freeze(cmd.Context(), opts, e.driver)
}

// saveFrozenManifest persists spec under .git-ws/manifests/<tag>.toml
// (spec.md §6 "tag" — "Produce a frozen manifest into
// .git-ws/manifests/NAME.toml").
func saveFrozenManifest(e *env, path string, spec manifest.ManifestSpec) error {
	if err := e.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return manifest.Save(path, spec)
}

func gitAdd(cmd *cobra.Command, dir, path string) (string, error) {
	return gitdriver.RunRaw(cmd.Context(), dir, "add", path)
}

func gitCommit(cmd *cobra.Command, dir, message string) (string, error) {
	return gitdriver.RunRaw(cmd.Context(), dir, "commit", "-m", message)
}

func gitTag(cmd *cobra.Command, dir, name string) (string, error) {
	return gitdriver.RunRaw(cmd.Context(), dir, "tag", name)
}

// Package appconfig implements the layered application configuration
// store spec.md §6 names as an external collaborator: system defaults,
// user overrides, workspace overrides, and environment variables, merged
// in that precedence order.
package appconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix gitws reads environment overrides under:
// GIT_WS_<OPTION_NAME_UPPERCASED> (spec.md §6).
const EnvPrefix = "GIT_WS"

// Keys gitws recognizes. Unknown keys are still readable/writable —
// gitws is not the sole owner of this file's schema — but these are the
// ones the core packages consult.
const (
	KeyDefaultGroupFilters = "default_group_filters"
	KeyCloneDepth          = "clone_depth"
	KeyColor               = "color"
)

// Store layers system, user, and workspace config files with environment
// overrides on top, using viper's own merge order (each later Merge call
// wins over the former, exactly how workspace > user > system > built-in
// default is expressed here).
type Store struct {
	v *viper.Viper
}

// Paths names the three config files a Store may load, most of which are
// optional — a missing file is not an error.
type Paths struct {
	SystemFile    string // e.g. /etc/gitws/config.toml
	UserFile      string // e.g. $HOME/.config/gitws/config.toml
	WorkspaceFile string // e.g. <workspace>/.git-ws/appconfig.toml
}

// Load builds a Store from Paths, merging system, then user, then
// workspace layers (later layers win), and finally enabling
// GIT_WS_<KEY> environment overrides (highest precedence of all).
func Load(fs afero.Fs, paths Paths) (*Store, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	for _, file := range []string{paths.SystemFile, paths.UserFile, paths.WorkspaceFile} {
		if strings.TrimSpace(file) == "" {
			continue
		}
		if err := mergeLayer(fs, v, file); err != nil {
			return nil, err
		}
	}

	return &Store{v: v}, nil
}

func mergeLayer(fs afero.Fs, v *viper.Viper, path string) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config layer %s: %w", path, err)
	}
	layer := viper.New()
	layer.SetConfigType("toml")
	if err := layer.ReadConfig(strings.NewReader(string(data))); err != nil {
		return fmt.Errorf("parse config layer %s: %w", path, err)
	}
	return v.MergeConfigMap(layer.AllSettings())
}

// DefaultGroupFilters returns the configured default --group-filter
// values applied when a command omits the flag entirely.
func (s *Store) DefaultGroupFilters() []string {
	return s.v.GetStringSlice(KeyDefaultGroupFilters)
}

// CloneDepth returns the configured default shallow-clone depth, or 0
// for a full clone.
func (s *Store) CloneDepth() int {
	return s.v.GetInt(KeyCloneDepth)
}

// ColorMode returns the configured color preference: "auto", "always",
// or "never".
func (s *Store) ColorMode() string {
	mode := strings.ToLower(strings.TrimSpace(s.v.GetString(KeyColor)))
	if mode == "" {
		return "auto"
	}
	return mode
}

// UserConfigDir returns the per-user gitws config directory, honoring
// XDG_CONFIG_HOME the way a well-behaved CLI does.
func UserConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "gitws"), nil
}

// Package wsmeta implements the workspace metadata store of spec.md §4.7
// and §6: the small key-value record persisted under
// "<workspace>/.git-ws/config.toml", and the upward-search algorithm that
// locates the enclosing workspace from the current working directory.
package wsmeta

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// DirName is the workspace metadata directory, relative to the workspace root.
const DirName = ".git-ws"

// configFileName is the metadata file inside DirName.
const configFileName = "config.toml"

// Config is the persisted record (spec.md §4.7).
type Config struct {
	MainPath     string   `toml:"main_path,omitempty"`
	ManifestPath string   `toml:"manifest_path,omitempty"`
	GroupFilters []string `toml:"group_filters,omitempty"`
	CloneDepth   int      `toml:"clone_depth,omitempty"`
}

// ConfigPath returns the path to the config file inside a workspace root.
func ConfigPath(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, DirName, configFileName)
}

// Load reads the workspace config. A missing file is reported as the plain,
// unwrapped *os.PathError so callers can test with os.IsNotExist.
func Load(workspaceRoot string) (Config, error) {
	data, err := os.ReadFile(ConfigPath(workspaceRoot))
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", ConfigPath(workspaceRoot), err)
	}
	return cfg, nil
}

// Save atomically writes cfg to workspaceRoot's config file (spec.md §4.7
// "updated atomically on writes").
func Save(workspaceRoot string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal workspace config: %w", err)
	}
	dir := filepath.Join(workspaceRoot, DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	path := ConfigPath(workspaceRoot)
	tmp, err := os.CreateTemp(dir, ".tmp-"+configFileName+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	return os.Rename(tmpPath, path)
}

// Delete removes the workspace metadata directory (spec.md §3 "it is
// deleted by deinit").
func Delete(workspaceRoot string) error {
	return os.RemoveAll(filepath.Join(workspaceRoot, DirName))
}

// Find walks upward from startDir until a DirName directory is found,
// returning the workspace root that contains it (spec.md §4.7 "Search
// algorithm for 'which workspace am I in'"). ok is false if no workspace is
// found before reaching the filesystem root.
func Find(startDir string) (root string, ok bool, err error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, err
	}
	for {
		info, statErr := os.Stat(filepath.Join(dir, DirName))
		if statErr == nil && info.IsDir() {
			return dir, true, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Path returns the path to the manifest file inside dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Load reads and parses the manifest at path. A missing file is reported as
// a wrapped *os.PathError, so callers test with errors.Is(err,
// fs.ErrNotExist) (os.IsNotExist does not see through the wrapping);
// spec.md treats "no git-ws.toml" as a non-error empty subtree for
// dependencies, and as ManifestNotFound only for the project the resolver
// is explicitly asked to load.
func Load(path string) (ManifestSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ManifestSpec{}, fmt.Errorf("read %s: %w", path, err)
	}
	spec, err := Unmarshal(data)
	if err != nil {
		return ManifestSpec{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return spec, nil
}

// Unmarshal decodes a manifest from raw TOML bytes, defaulting Version to
// CurrentVersion when absent (a manifest predating the version field).
func Unmarshal(data []byte) (ManifestSpec, error) {
	var spec ManifestSpec
	if err := toml.Unmarshal(data, &spec); err != nil {
		return ManifestSpec{}, err
	}
	if spec.Version == 0 {
		spec.Version = CurrentVersion
	}
	return spec, nil
}

// Marshal encodes m as TOML, in the field order declared on ManifestSpec.
func Marshal(m ManifestSpec) ([]byte, error) {
	if m.Version == 0 {
		m.Version = CurrentVersion
	}
	return toml.Marshal(m)
}

// Save atomically writes m to path: the new content is written to a sibling
// temp file and renamed over path, so a crash mid-write never leaves a
// truncated manifest (spec.md §3 "editing commands rewrite the file
// atomically").
func Save(path string, m ManifestSpec) error {
	data, err := Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	return atomicWrite(path, data, 0o644)
}

func atomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

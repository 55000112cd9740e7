package materialize

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"github.com/zeebo/blake3"

	"github.com/basalt-tools/gitws/internal/groupfilter"
	"github.com/basalt-tools/gitws/internal/manifest"
	"github.com/basalt-tools/gitws/internal/resolver"
)

// hashStoreFile records, per destination path, the BLAKE3 digest of a copy
// file's content as of its last successful materialization (spec.md §4.5
// Open Question on staleness detection, resolved as content-hash).
const hashStoreFile = ".git-ws/copyfile-hashes.toml"

type hashStore struct {
	Digests map[string]string `toml:"digests,omitempty"`
}

func loadHashStore(fs afero.Fs, workspaceRoot string) (hashStore, error) {
	data, err := afero.ReadFile(fs, path.Join(workspaceRoot, hashStoreFile))
	if err != nil {
		if os.IsNotExist(err) {
			return hashStore{Digests: map[string]string{}}, nil
		}
		return hashStore{}, err
	}
	var store hashStore
	if err := toml.Unmarshal(data, &store); err != nil {
		return hashStore{}, fmt.Errorf("parse %s: %w", hashStoreFile, err)
	}
	if store.Digests == nil {
		store.Digests = map[string]string{}
	}
	return store, nil
}

func saveHashStore(fs afero.Fs, workspaceRoot string, store hashStore) error {
	data, err := toml.Marshal(store)
	if err != nil {
		return fmt.Errorf("marshal copy-file hash store: %w", err)
	}
	full := path.Join(workspaceRoot, hashStoreFile)
	if err := fs.MkdirAll(path.Dir(full), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(fs, full, data, 0o644)
}

func blake3Hex(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// materializeFiles processes linkfiles/copyfiles of the main project and
// first-level dependencies only (spec.md §4.5); entries declared in deeper
// manifests are ignored by construction (they never appear at level 0 or 1).
func materializeFiles(_ context.Context, opts Options, result resolver.Result) error {
	store, err := loadHashStore(opts.Fs, opts.WorkspaceRoot)
	if err != nil {
		return err
	}
	changed := false

	for _, p := range result.Projects {
		if p.Level > 1 {
			continue
		}
		projectDir := path.Join(opts.WorkspaceRoot, p.Path)

		for _, ref := range selectFileRefs(p, p.LinkFiles) {
			if err := materializeLinkFile(opts.Fs, projectDir, ref); err != nil {
				return fmt.Errorf("linkfile %s -> %s: %w", ref.Src, ref.Dest, err)
			}
		}
		for _, ref := range selectFileRefs(p, p.CopyFiles) {
			didWrite, err := materializeCopyFile(opts, projectDir, ref, store)
			if err != nil {
				return fmt.Errorf("copyfile %s -> %s: %w", ref.Src, ref.Dest, err)
			}
			changed = changed || didWrite
		}
	}

	if changed {
		return saveHashStore(opts.Fs, opts.WorkspaceRoot, store)
	}
	return nil
}

// selectFileRefs filters refs by the project's effective group filters,
// per spec.md §4.3 "a FileRef with non-empty groups is created iff its
// group set passes the same predicate" used to select the project itself.
func selectFileRefs(p resolver.Project, refs []manifest.FileRef) []manifest.FileRef {
	var out []manifest.FileRef
	for _, ref := range refs {
		if len(ref.Groups) == 0 {
			out = append(out, ref)
			continue
		}
		decision := groupfilter.Evaluate(ref.Groups, p.Path, p.FileFilters, p.FileFilterDefault)
		if decision.Selected {
			out = append(out, ref)
		}
	}
	return out
}

func materializeLinkFile(fs afero.Fs, projectDir string, ref manifest.FileRef) error {
	src := path.Join(projectDir, ref.Src)
	dest := path.Join(projectDir, ref.Dest)

	if err := fs.MkdirAll(path.Dir(dest), 0o755); err != nil {
		return err
	}
	linker, ok := fs.(afero.Linker)
	if !ok {
		return fmt.Errorf("filesystem does not support symbolic links")
	}
	_ = fs.Remove(dest)
	return linker.SymlinkIfPossible(src, dest)
}

// materializeCopyFile copies src to dest, refusing to overwrite a dest whose
// content no longer matches the last digest recorded for it unless Force is
// set (spec.md §4.5 "refuse to overwrite unless --force"). It reports
// whether the hash store changed.
func materializeCopyFile(opts Options, projectDir string, ref manifest.FileRef, store hashStore) (bool, error) {
	fs := opts.Fs
	src := path.Join(projectDir, ref.Src)
	dest := path.Join(projectDir, ref.Dest)

	srcData, err := afero.ReadFile(fs, src)
	if err != nil {
		return false, err
	}

	destExists, err := afero.Exists(fs, dest)
	if err != nil {
		return false, err
	}
	if destExists && !opts.Force {
		destData, err := afero.ReadFile(fs, dest)
		if err != nil {
			return false, err
		}
		recorded, hadRecord := store.Digests[dest]
		current := blake3Hex(destData)
		if hadRecord && current != recorded {
			return false, fmt.Errorf("destination modified since last update; rerun with --force to overwrite")
		}
	}

	if err := fs.MkdirAll(path.Dir(dest), 0o755); err != nil {
		return false, err
	}
	if err := afero.WriteFile(fs, dest, srcData, 0o644); err != nil {
		return false, err
	}
	store.Digests[dest] = blake3Hex(srcData)
	return true, nil
}

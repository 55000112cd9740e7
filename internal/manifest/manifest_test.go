package manifest

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	sub := "v1"
	m := ManifestSpec{
		Version: CurrentVersion,
		Remotes: []Remote{{Name: "origin", URLBase: "https://example.com/org"}},
		Groups:  []GroupDef{{Name: "test", Optional: true}},
		Defaults: Defaults{
			Remote:   "origin",
			Revision: "main",
		},
		GroupFilters: []string{"+test"},
		Dependencies: []ProjectSpec{
			{Name: "mylib", Revision: "v1.0", Groups: []string{"test"}, SubURL: sub, Remote: "origin"},
		},
	}

	data, err := Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(m, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSaveAtomic(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir)
	m := ManifestSpec{Version: CurrentVersion, Dependencies: []ProjectSpec{{Name: "a"}}}
	if err := Save(path, m); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Dependencies) != 1 || got.Dependencies[0].Name != "a" {
		t.Fatalf("Load got %+v", got)
	}
	// no leftover temp files
	matches, _ := filepath.Glob(filepath.Join(dir, ".tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestValidateConflictingURLSources(t *testing.T) {
	m := ManifestSpec{
		Version: CurrentVersion,
		Remotes: []Remote{{Name: "origin", URLBase: "https://example.com"}},
		Dependencies: []ProjectSpec{
			{Name: "dep", Remote: "origin", URL: "https://example.com/dep"},
		},
	}
	err := Validate(m)
	if err == nil {
		t.Fatal("expected validation error")
	}
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if verr.Issues[0].Kind != KindConflictingURLSources {
		t.Errorf("got kind %s", verr.Issues[0].Kind)
	}
}

func TestValidateSubURLRequiresRemote(t *testing.T) {
	m := ManifestSpec{
		Version:      CurrentVersion,
		Dependencies: []ProjectSpec{{Name: "dep", SubURL: "x"}},
	}
	err := Validate(m)
	if err == nil {
		t.Fatal("expected validation error")
	}
	verr := err.(*ValidationError)
	if verr.Issues[0].Kind != KindInvalidSubURL {
		t.Errorf("got kind %s", verr.Issues[0].Kind)
	}
}

func TestValidateUnknownRemote(t *testing.T) {
	m := ManifestSpec{
		Version:      CurrentVersion,
		Dependencies: []ProjectSpec{{Name: "dep", Remote: "nope"}},
	}
	err := Validate(m)
	verr := err.(*ValidationError)
	if verr.Issues[0].Kind != KindUnknownRemote {
		t.Errorf("got kind %s", verr.Issues[0].Kind)
	}
}

func TestValidateDuplicateRemote(t *testing.T) {
	m := ManifestSpec{
		Version: CurrentVersion,
		Remotes: []Remote{{Name: "origin"}, {Name: "origin"}},
	}
	err := Validate(m)
	verr := err.(*ValidationError)
	found := false
	for _, iss := range verr.Issues {
		if iss.Kind == KindDuplicateRemote {
			found = true
		}
	}
	if !found {
		t.Errorf("expected KindDuplicateRemote, got %+v", verr.Issues)
	}
}

func TestValidateBadIdentifier(t *testing.T) {
	m := ManifestSpec{
		Version: CurrentVersion,
		Remotes: []Remote{{Name: "bad name!"}},
	}
	err := Validate(m)
	verr := err.(*ValidationError)
	if verr.Issues[0].Kind != KindBadIdentifier {
		t.Errorf("got kind %s", verr.Issues[0].Kind)
	}
}

func TestAddRemoveRemote(t *testing.T) {
	m := New()
	m, err := AddRemote(m, "origin", "https://example.com")
	if err != nil {
		t.Fatalf("AddRemote: %v", err)
	}
	if _, err := AddRemote(m, "origin", "https://other.com"); err == nil {
		t.Error("expected error for duplicate remote")
	}
	m, err = RemoveRemote(m, "origin")
	if err != nil {
		t.Fatalf("RemoveRemote: %v", err)
	}
	if len(m.Remotes) != 0 {
		t.Errorf("expected no remotes, got %+v", m.Remotes)
	}
}

func TestRemoveRemoteInUse(t *testing.T) {
	m := New()
	m, _ = AddRemote(m, "origin", "https://example.com")
	m.Dependencies = []ProjectSpec{{Name: "dep", Remote: "origin"}}
	if _, err := RemoveRemote(m, "origin"); err == nil {
		t.Error("expected error removing in-use remote")
	}
}

func TestUpgradeBumpsVersion(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir)
	old := ManifestSpec{Version: 0, Dependencies: []ProjectSpec{{Name: "a"}}}
	if err := Save(path, old); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Upgrade(path)
	if err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	if got.Version != CurrentVersion {
		t.Errorf("got version %d, want %d", got.Version, CurrentVersion)
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded.Version != CurrentVersion {
		t.Errorf("reloaded version %d, want %d", reloaded.Version, CurrentVersion)
	}
}

package transform

import (
	"context"
	"testing"

	"github.com/spf13/afero"

	"github.com/basalt-tools/gitws/internal/gitdriver"
	"github.com/basalt-tools/gitws/internal/manifest"
	"github.com/basalt-tools/gitws/internal/resolver"
)

func writeManifest(t *testing.T, fs afero.Fs, dir string, m manifest.ManifestSpec) {
	t.Helper()
	data, err := manifest.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := afero.WriteFile(fs, dir+"/"+manifest.FileName, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func testOptions(fs afero.Fs) resolver.Options {
	return resolver.Options{
		Fs: fs, WorkspaceRoot: "/ws",
		Main: &resolver.MainProject{Name: "app", Path: "app", URL: "https://example.com/app"},
	}
}

func TestResolveEmitsFlatManifest(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeManifest(t, fs, "/ws/app", manifest.ManifestSpec{
		Version:      manifest.CurrentVersion,
		GroupFilters: []string{"+dev"},
		Dependencies: []manifest.ProjectSpec{{Name: "mylib", Revision: "v1.0"}},
	})

	out, _, err := Resolve(testOptions(fs))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.Defaults.Remote != "" || out.Defaults.Revision != "" || len(out.Defaults.Groups) != 0 {
		t.Errorf("expected empty defaults, got %+v", out.Defaults)
	}
	if len(out.Dependencies) != 1 || out.Dependencies[0].Name != "mylib" {
		t.Fatalf("got %+v", out.Dependencies)
	}
	if out.Dependencies[0].URL != "https://example.com/mylib" {
		t.Errorf("got url %q", out.Dependencies[0].URL)
	}
	if len(out.GroupFilters) != 1 || out.GroupFilters[0] != "+dev" {
		t.Errorf("expected flattened filters [+dev], got %v", out.GroupFilters)
	}
}

func TestFreezeOverwritesRevisionWithHEAD(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeManifest(t, fs, "/ws/app", manifest.ManifestSpec{
		Version:      manifest.CurrentVersion,
		Dependencies: []manifest.ProjectSpec{{Name: "mylib", Revision: "v1.0"}},
	})

	driver := gitdriver.NewFake()
	driver.GitClones["/ws/mylib"] = true
	driver.HEADs["/ws/mylib"] = "a1b2c3d4e5f60000000000000000000000000000"

	out, err := Freeze(context.Background(), testOptions(fs), driver)
	if err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	if out.Dependencies[0].Revision != "a1b2c3d4e5f60000000000000000000000000000" {
		t.Errorf("got revision %q", out.Dependencies[0].Revision)
	}
}

func TestFreezeFailsWhenNotCloned(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeManifest(t, fs, "/ws/app", manifest.ManifestSpec{
		Version:      manifest.CurrentVersion,
		Dependencies: []manifest.ProjectSpec{{Name: "mylib", Revision: "v1.0"}},
	})

	driver := gitdriver.NewFake()
	if _, err := Freeze(context.Background(), testOptions(fs), driver); err == nil {
		t.Fatal("expected error for un-cloned dependency")
	}
}

func TestValidateReturnsStructuredError(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeManifest(t, fs, "/ws/app", manifest.ManifestSpec{
		Version:      manifest.CurrentVersion,
		Dependencies: []manifest.ProjectSpec{{Name: "dep", Remote: "missing"}},
	})
	_, err := Validate(fs, "/ws/app/"+manifest.FileName)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if _, ok := err.(*manifest.ValidationError); !ok {
		t.Fatalf("expected *manifest.ValidationError, got %T", err)
	}
}

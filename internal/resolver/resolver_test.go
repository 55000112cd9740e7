package resolver

import (
	"testing"

	"github.com/spf13/afero"

	"github.com/basalt-tools/gitws/internal/groupfilter"
	"github.com/basalt-tools/gitws/internal/manifest"
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

func projectPaths(r Result) []string {
	out := make([]string, len(r.Projects))
	for i, p := range r.Projects {
		out[i] = p.Path
	}
	return out
}

// Scenario 1 (spec.md §8): simple sibling.
func TestResolveSimpleSibling(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeManifest(t, fs, "/ws/app", manifest.ManifestSpec{
		Version: manifest.CurrentVersion,
		Dependencies: []manifest.ProjectSpec{
			{Name: "mylib", Revision: "v1.0"},
		},
	})

	result, err := Resolve(Options{
		Fs: fs, WorkspaceRoot: "/ws",
		Main: &MainProject{Name: "app", Path: "app", URL: "https://example.com/app"},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(result.Projects) != 2 {
		t.Fatalf("got %d projects, want 2: %+v", len(result.Projects), result.Projects)
	}
	mylib := result.Projects[1]
	if mylib.URL != "https://example.com/mylib" {
		t.Errorf("got URL %q, want %q", mylib.URL, "https://example.com/mylib")
	}
	if mylib.Path != "mylib" || mylib.Revision != "v1.0" {
		t.Errorf("got %+v", mylib)
	}
}

// Scenario 2 (spec.md §8): transitive + override, first-wins across levels.
func TestResolveTransitiveFirstWins(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeManifest(t, fs, "/ws/app", manifest.ManifestSpec{
		Version: manifest.CurrentVersion,
		Dependencies: []manifest.ProjectSpec{
			{Name: "FooLib", Revision: "v2.4.0"},
			{Name: "BazLib", Revision: "v5.6.7"},
		},
	})
	writeManifest(t, fs, "/ws/FooLib", manifest.ManifestSpec{
		Version: manifest.CurrentVersion,
		Dependencies: []manifest.ProjectSpec{
			{Name: "BarLib", Revision: "v42"},
		},
	})
	writeManifest(t, fs, "/ws/BazLib", manifest.ManifestSpec{
		Version: manifest.CurrentVersion,
		Dependencies: []manifest.ProjectSpec{
			{Name: "BarLib", Revision: "v44"},
		},
	})

	result, err := Resolve(Options{
		Fs: fs, WorkspaceRoot: "/ws",
		Main: &MainProject{Name: "app", Path: "app", URL: "https://example.com/app"},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	got := projectPaths(result)
	want := []string{"app", "FooLib", "BazLib", "BarLib"}
	if len(got) != len(want) {
		t.Fatalf("got paths %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %q, want %q", i, got[i], want[i])
		}
	}

	var barLib Project
	for _, p := range result.Projects {
		if p.Path == "BarLib" {
			barLib = p
		}
	}
	if barLib.Revision != "v42" {
		t.Errorf("BarLib revision = %q, want v42 (first occurrence wins)", barLib.Revision)
	}

	foundDuplicate := false
	for _, d := range result.Diagnostics {
		if d.Kind == DiagDuplicate && d.Path == "BarLib" {
			foundDuplicate = true
		}
	}
	if !foundDuplicate {
		t.Errorf("expected a DUPLICATE diagnostic for BarLib, got %+v", result.Diagnostics)
	}
}

// Scenario 3 (spec.md §8): group filter.
func TestResolveGroupFilter(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeManifest(t, fs, "/ws/app", manifest.ManifestSpec{
		Version:      manifest.CurrentVersion,
		Dependencies: []manifest.ProjectSpec{{Name: "PrintLib", Revision: "v1"}},
	})
	writeManifest(t, fs, "/ws/PrintLib", manifest.ManifestSpec{
		Version: manifest.CurrentVersion,
		Dependencies: []manifest.ProjectSpec{
			{Name: "IOLib", Revision: "v1"},
			{Name: "SimpleUT", Revision: "v1", Groups: []string{"dev"}},
		},
	})

	base := Options{
		Fs: fs, WorkspaceRoot: "/ws",
		Main: &MainProject{Name: "app", Path: "app", URL: "https://example.com/app"},
	}

	withoutFilter, err := Resolve(base)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := projectPaths(withoutFilter); !equalStrings(got, []string{"app", "PrintLib", "IOLib"}) {
		t.Errorf("without filter: got %v", got)
	}

	withFilter := base
	rules, err := groupfilter.ParseList([]string{"+dev"}, "cli")
	if err != nil {
		t.Fatalf("ParseList: %v", err)
	}
	withFilter.CLIFilters = rules
	result, err := Resolve(withFilter)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := projectPaths(result); !equalStrings(got, []string{"app", "PrintLib", "IOLib", "SimpleUT"}) {
		t.Errorf("with +dev: got %v", got)
	}
}

// Boundary: dependency cycle main -> A -> main resolves as [main, A], no error.
func TestResolveCycleNoError(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeManifest(t, fs, "/ws/app", manifest.ManifestSpec{
		Version:      manifest.CurrentVersion,
		Dependencies: []manifest.ProjectSpec{{Name: "A", Revision: "v1"}},
	})
	writeManifest(t, fs, "/ws/A", manifest.ManifestSpec{
		Version:      manifest.CurrentVersion,
		Dependencies: []manifest.ProjectSpec{{Name: "app", Revision: "v2"}},
	})

	result, err := Resolve(Options{
		Fs: fs, WorkspaceRoot: "/ws",
		Main: &MainProject{Name: "app", Path: "app", URL: "https://example.com/app"},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := projectPaths(result); !equalStrings(got, []string{"app", "A"}) {
		t.Errorf("got %v, want [app A]", got)
	}
}

// Boundary: an empty dependency list produces only the main project.
func TestResolveEmptyDependencies(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeManifest(t, fs, "/ws/app", manifest.ManifestSpec{Version: manifest.CurrentVersion})

	result, err := Resolve(Options{
		Fs: fs, WorkspaceRoot: "/ws",
		Main: &MainProject{Name: "app", Path: "app", URL: "https://example.com/app"},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(result.Projects) != 1 || !result.Projects[0].IsMain {
		t.Errorf("got %+v", result.Projects)
	}
}

func TestResolveMissingDependencyManifestIsEmptySubtree(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeManifest(t, fs, "/ws/app", manifest.ManifestSpec{
		Version:      manifest.CurrentVersion,
		Dependencies: []manifest.ProjectSpec{{Name: "leaf", Revision: "v1"}},
	})
	// no manifest written under /ws/leaf

	result, err := Resolve(Options{
		Fs: fs, WorkspaceRoot: "/ws",
		Main: &MainProject{Name: "app", Path: "app", URL: "https://example.com/app"},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := projectPaths(result); !equalStrings(got, []string{"app", "leaf"}) {
		t.Errorf("got %v", got)
	}
}

func TestResolveMainManifestMissingIsError(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := Resolve(Options{
		Fs: fs, WorkspaceRoot: "/ws",
		Main: &MainProject{Name: "app", Path: "app", URL: "https://example.com/app"},
	})
	if err == nil {
		t.Fatal("expected error for missing main manifest")
	}
}

func TestResolveMissingRevisionDiagnostic(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeManifest(t, fs, "/ws/app", manifest.ManifestSpec{
		Version:      manifest.CurrentVersion,
		Dependencies: []manifest.ProjectSpec{{Name: "norev"}},
	})

	result, err := Resolve(Options{
		Fs: fs, WorkspaceRoot: "/ws",
		Main: &MainProject{Name: "app", Path: "app", URL: "https://example.com/app"},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	found := false
	for _, d := range result.Diagnostics {
		if d.Kind == DiagMissingRevision && d.Path == "norev" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a missing-revision diagnostic, got %+v", result.Diagnostics)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

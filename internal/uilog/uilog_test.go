package uilog

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/basalt-tools/gitws/internal/materialize"
	"github.com/basalt-tools/gitws/internal/resolver"
)

func TestProjectBannerIncludesErrorDetail(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{Out: &buf, Theme: DefaultTheme(), UseColor: false}

	l.ProjectBanner(materialize.Outcome{Path: "mylib", Action: materialize.ActionError, Err: errors.New("boom")}, false)

	out := buf.String()
	if !strings.Contains(out, "mylib") || !strings.Contains(out, "boom") {
		t.Errorf("got %q", out)
	}
}

func TestPruneBannerRefused(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{Out: &buf, Theme: DefaultTheme(), UseColor: false}

	l.PruneBanner(materialize.PruneOutcome{Path: "lib2", Action: materialize.PruneRefused, Reason: "untracked"})

	out := buf.String()
	if !strings.Contains(out, "lib2") || !strings.Contains(out, "untracked") {
		t.Errorf("got %q", out)
	}
}

func TestDiagnosticsRendersEveryEntry(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{Out: &buf, Theme: DefaultTheme(), UseColor: false}

	l.Diagnostics([]resolver.Diagnostic{
		{Kind: resolver.DiagDuplicate, Path: "lib1", Message: "already resolved"},
		{Kind: resolver.DiagMissingRevision, Path: "lib2", Message: "no revision"},
	})

	out := buf.String()
	if !strings.Contains(out, "lib1") || !strings.Contains(out, "lib2") {
		t.Errorf("got %q", out)
	}
}

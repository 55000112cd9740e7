// Package uilog renders the operator-facing output of gitws commands: one
// banner per project touched by the materializer, plus a summary of
// resolver diagnostics. Adapted from the teacher's internal/ui (theme,
// section rendering) and internal/infra/debuglog (file-backed command
// tracing toggled by an environment variable), generalized from gwst's
// workspace/repo vocabulary to projects and dependencies (spec.md §7).
package uilog

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/basalt-tools/gitws/internal/infra/debuglog"
	"github.com/basalt-tools/gitws/internal/materialize"
	"github.com/basalt-tools/gitws/internal/resolver"
)

// DebugEnvVar is the environment variable that, when set to a non-empty
// value, turns on file-backed command tracing for the run.
const DebugEnvVar = "GITWS_DEBUG"

// Theme holds the styles a Logger applies when color is enabled.
type Theme struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warn    lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
}

// DefaultTheme mirrors the teacher's DefaultTheme palette.
func DefaultTheme() Theme {
	return Theme{
		Header:  lipgloss.NewStyle().Bold(true),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		Warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// Logger renders command output to Out, honoring NO_COLOR and TTY
// detection exactly as the teacher does: lipgloss styling on a real
// terminal, a plain fatih/color fallback otherwise.
type Logger struct {
	Out      io.Writer
	Theme    Theme
	UseColor bool
}

// New builds a Logger for out, auto-detecting color support (SPEC_FULL.md
// §2 "Color/TTY detection").
func New(out io.Writer) *Logger {
	useColor := false
	if f, ok := out.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd()) && os.Getenv("NO_COLOR") == ""
	}
	color.NoColor = !useColor
	return &Logger{Out: out, Theme: DefaultTheme(), UseColor: useColor}
}

// EnableDebug turns on file-backed command tracing under workspaceRoot if
// GITWS_DEBUG is set (spec.md §6's "file-backed trace log").
func EnableDebug(workspaceRoot string) error {
	if os.Getenv(DebugEnvVar) == "" {
		return nil
	}
	return debuglog.Enable(workspaceRoot)
}

func (l *Logger) style(text string, s lipgloss.Style) string {
	if !l.UseColor {
		return text
	}
	return s.Render(text)
}

// Header prints a bold section header.
func (l *Logger) Header(text string) {
	fmt.Fprintln(l.Out, l.style(text, l.Theme.Header))
}

// ProjectBanner prints one line per project the materializer touched,
// role-tagged main/dependency (spec.md §7 "banner-per-project format").
func (l *Logger) ProjectBanner(o materialize.Outcome, isMain bool) {
	role := "dep "
	if isMain {
		role = "main"
	}
	line := fmt.Sprintf("[%s] %-32s %s", role, o.Path, o.Action)
	switch o.Action {
	case materialize.ActionError, materialize.ActionNotAGitClone:
		fmt.Fprintln(l.Out, l.style(line, l.Theme.Error))
		if o.Err != nil {
			fmt.Fprintln(l.Out, l.style("  "+o.Err.Error(), l.Theme.Muted))
		}
	case materialize.ActionSkipped, materialize.ActionNoop:
		fmt.Fprintln(l.Out, l.style(line, l.Theme.Muted))
	default:
		fmt.Fprintln(l.Out, l.style(line, l.Theme.Success))
	}
}

// PruneBanner prints one line per prune decision.
func (l *Logger) PruneBanner(o materialize.PruneOutcome) {
	if o.Action == materialize.PruneRemoved {
		fmt.Fprintln(l.Out, l.style(fmt.Sprintf("[prune] %-32s removed", o.Path), l.Theme.Success))
		return
	}
	fmt.Fprintln(l.Out, l.style(fmt.Sprintf("[prune] %-32s refused (%s)", o.Path, o.Reason), l.Theme.Warn))
}

// Error prints a single styled "error: <message>" line, for the
// entrypoint's top-level failure path.
func (l *Logger) Error(err error) {
	fmt.Fprintln(l.Out, l.style(fmt.Sprintf("error: %s", err.Error()), l.Theme.Error))
}

// Diagnostics prints every resolver diagnostic, grouped loosely by kind via
// color rather than a literal heading per kind (matching the teacher's
// terse single-pass rendering style).
func (l *Logger) Diagnostics(diags []resolver.Diagnostic) {
	for _, d := range diags {
		style := l.Theme.Warn
		if d.Kind == resolver.DiagInvalidManifest {
			style = l.Theme.Error
		}
		fmt.Fprintln(l.Out, l.style(fmt.Sprintf("[%s] %s: %s", d.Kind, d.Path, d.Message), style))
	}
}

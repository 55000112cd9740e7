package groupfilter

import "testing"

func mustParseList(t *testing.T, exprs []string, source string) []Rule {
	t.Helper()
	rules, err := ParseList(exprs, source)
	if err != nil {
		t.Fatalf("ParseList(%v): %v", exprs, err)
	}
	return rules
}

func TestParse(t *testing.T) {
	cases := []struct {
		expr    string
		want    Rule
		wantErr bool
	}{
		{expr: "+test", want: Rule{Select: true, Group: "test"}},
		{expr: "-doc", want: Rule{Select: false, Group: "doc"}},
		{expr: "+feature@dep/path", want: Rule{Select: true, Group: "feature", Path: "dep/path"}},
		{expr: "test", wantErr: true},
		{expr: "+", wantErr: true},
		{expr: "+bad name", wantErr: true},
		{expr: "+group@", wantErr: true},
	}
	for _, c := range cases {
		got, err := Parse(c.expr)
		if c.wantErr {
			if err == nil {
				t.Errorf("Parse(%q): expected error, got %+v", c.expr, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Parse(%q): unexpected error: %v", c.expr, err)
		}
		if got != c.want {
			t.Errorf("Parse(%q) = %+v, want %+v", c.expr, got, c.want)
		}
	}
}

func TestEvaluateEmptyGroupsUnconditional(t *testing.T) {
	filters := mustParseList(t, []string{"-anything"}, "cli")
	d := Evaluate(nil, "some/path", filters, false)
	if !d.Selected {
		t.Errorf("expected unconditional selection for empty groups list")
	}
}

// Ported from original_source/gitws/_iters.py create_filter doctests:
// group_filters = ('-@special', '+test', '+doc', '+feature@dep', '-doc')
// is translated here without the groupless "-@special" rule (spec.md's
// grammar requires an identifier), keeping the remaining precedence cases.
func TestEvaluateLastMatchWins(t *testing.T) {
	filters := mustParseList(t, []string{"+test", "+doc", "+feature@dep", "-doc"}, "manifest")

	cases := []struct {
		name   string
		groups []string
		path   string
		want   bool
	}{
		{name: "test selected by +test", groups: []string{"test"}, path: "bar", want: true},
		{name: "doc deselected by later -doc", groups: []string{"doc"}, path: "bar", want: false},
		{name: "feature only at matching path", groups: []string{"feature"}, path: "dep", want: true},
		{name: "feature not selected at other path", groups: []string{"feature"}, path: "bar", want: false},
		{name: "undeclared group defaults false", groups: []string{"other"}, path: "bar", want: false},
		{name: "any selected group wins", groups: []string{"other", "test"}, path: "bar", want: true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d := Evaluate(c.groups, c.path, filters, false)
			if d.Selected != c.want {
				t.Errorf("Evaluate(%v, %q) = %v, want %v", c.groups, c.path, d.Selected, c.want)
			}
		})
	}
}

// Same filter list with defaultSelect=true, as the resolver uses for the
// main manifest's own dependencies (original_source's ProjectIter.__iter__
// builds its top-level filter_ with default=True).
func TestEvaluateLastMatchWinsDefaultTrue(t *testing.T) {
	filters := mustParseList(t, []string{"+test", "+doc", "+feature@dep", "-doc"}, "manifest")

	cases := []struct {
		name   string
		groups []string
		path   string
		want   bool
	}{
		{name: "untouched group defaults selected", groups: []string{"other"}, path: "bar", want: true},
		{name: "doc still deselected by later -doc", groups: []string{"doc"}, path: "bar", want: false},
		{name: "feature selected at other path via default", groups: []string{"feature"}, path: "bar", want: true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d := Evaluate(c.groups, c.path, filters, true)
			if d.Selected != c.want {
				t.Errorf("Evaluate(%v, %q) = %v, want %v", c.groups, c.path, d.Selected, c.want)
			}
		})
	}
}

func TestEvaluateNoFiltersUsesDefault(t *testing.T) {
	if !Evaluate([]string{"required"}, "x", nil, true).Selected {
		t.Errorf("expected defaultSelect=true to select an untouched group")
	}
	if Evaluate([]string{"extra"}, "x", nil, false).Selected {
		t.Errorf("expected defaultSelect=false to deselect an untouched group")
	}
}

func TestBuildFilterChainPrecedenceOrder(t *testing.T) {
	manifestFilters := mustParseList(t, []string{"-test"}, "manifest")
	withGroups := mustParseList(t, []string{"+test"}, "with-groups")
	cli := mustParseList(t, []string{"-test"}, "cli")

	chain := BuildFilterChain(manifestFilters, withGroups, cli)
	d := Evaluate([]string{"test"}, "x", chain, false)
	if d.Selected {
		t.Errorf("expected CLI filter (last in chain) to win, got selected")
	}

	chainNoCLI := BuildFilterChain(manifestFilters, withGroups, nil)
	d = Evaluate([]string{"test"}, "x", chainNoCLI, false)
	if !d.Selected {
		t.Errorf("expected with-groups filter to override manifest filter when no CLI filter present")
	}
}

func TestEvaluateWinningRuleTrace(t *testing.T) {
	filters := mustParseList(t, []string{"+test"}, "manifest")
	d := Evaluate([]string{"test"}, "x", filters, false)
	if len(d.WinningRules) != 1 || d.WinningRules[0].Group != "test" {
		t.Errorf("expected trace to record the winning rule, got %+v", d.WinningRules)
	}
}

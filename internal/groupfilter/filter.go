// Package groupfilter implements the group-filter algebra that prunes the
// dependency graph (spec.md §4.3).
package groupfilter

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// Rule is one parsed filter expression: ('+'|'-') identifier ('@' path)?
type Rule struct {
	Select bool   // true for '+', false for '-'
	Group  string // required identifier
	Path   string // optional path qualifier; "" means unqualified (matches any path)
	Source string // provenance: "manifest", "with-groups", "cli" (SPEC_FULL.md §4)
}

func (r Rule) String() string {
	sign := "+"
	if !r.Select {
		sign = "-"
	}
	if r.Path != "" {
		return fmt.Sprintf("%s%s@%s", sign, r.Group, r.Path)
	}
	return fmt.Sprintf("%s%s", sign, r.Group)
}

// Parse parses a single filter expression.
func Parse(expr string) (Rule, error) {
	expr = strings.TrimSpace(expr)
	if len(expr) < 2 {
		return Rule{}, fmt.Errorf("invalid group filter %q: too short", expr)
	}
	var selected bool
	switch expr[0] {
	case '+':
		selected = true
	case '-':
		selected = false
	default:
		return Rule{}, fmt.Errorf("invalid group filter %q: must start with '+' or '-'", expr)
	}
	rest := expr[1:]
	group, at, hasAt := rest, "", false
	if idx := strings.IndexByte(rest, '@'); idx >= 0 {
		group, at, hasAt = rest[:idx], rest[idx+1:], true
	}
	if group == "" || !identifierPattern.MatchString(group) {
		return Rule{}, fmt.Errorf("invalid group filter %q: bad group identifier %q", expr, group)
	}
	if hasAt && at == "" {
		return Rule{}, fmt.Errorf("invalid group filter %q: empty path after '@'", expr)
	}
	return Rule{Select: selected, Group: group, Path: at}, nil
}

// ParseList parses each expression in exprs, tagging every resulting Rule
// with source.
func ParseList(exprs []string, source string) ([]Rule, error) {
	rules := make([]Rule, 0, len(exprs))
	for _, expr := range exprs {
		r, err := Parse(expr)
		if err != nil {
			return nil, err
		}
		r.Source = source
		rules = append(rules, r)
	}
	return rules, nil
}

// Decision is the outcome of evaluating a project's (groups, path) against a
// filter list, including the rule that decided it (spec.md §4.3 "the engine
// returns a boolean decision plus a trace of the winning rule").
type Decision struct {
	Selected bool
	// WinningRules holds, per selected-or-deselected group, the last rule
	// that touched it. Empty when the project was unconditionally selected
	// (main project, or empty groups list).
	WinningRules []Rule
}

// Evaluate decides whether a project at path with the given groups is
// selected, per spec.md §4.3:
//
//  1. groups is empty -> always selected (unconditional dependency).
//  2. Otherwise every rule in filters is applied in order; within a group,
//     the last matching rule wins. A project is selected if at least one of
//     its groups ends up selected.
//
// defaultSelect is the selection state assumed for a group that no rule in
// filters ever touches. The resolver uses true for the main manifest's own
// dependencies (so an un-filtered group is selected) and false when
// descending into a dependency's own subtree on the strength of its
// with_groups alone (ported from original_source/gitws/_iters.py, where
// ProjectIter.__iter__ builds its top-level filter_ with default=True and
// every recursive dep_filter with default=False).
//
// A path-qualified rule (Path != "") only applies when it matches path
// (glob semantics, as original_source/gitws/_iters.py does via fnmatchcase;
// a plain equality check is the no-wildcard special case of that).
func Evaluate(groups []string, path_ string, filters []Rule, defaultSelect bool) Decision {
	if len(groups) == 0 {
		return Decision{Selected: true}
	}

	selects := make(map[string]bool, len(groups))
	for _, g := range groups {
		selects[g] = defaultSelect
	}

	last := make(map[string]Rule, len(groups))
	for _, rule := range filters {
		if _, relevant := selects[rule.Group]; !relevant {
			continue
		}
		if rule.Path != "" && !pathMatches(rule.Path, path_) {
			continue
		}
		selects[rule.Group] = rule.Select
		last[rule.Group] = rule
	}
	var winning []Rule
	for _, g := range groups {
		if r, ok := last[g]; ok {
			winning = append(winning, r)
			delete(last, g)
		}
	}

	selected := false
	for _, v := range selects {
		if v {
			selected = true
			break
		}
	}
	return Decision{Selected: selected, WinningRules: winning}
}

func pathMatches(pattern, candidate string) bool {
	if pattern == candidate {
		return true
	}
	ok, err := path.Match(pattern, candidate)
	return err == nil && ok
}

// FromGroupNames turns a plain list of group names (as used by
// with_groups/defaults.with-groups) into unconditional select-true rules
// tagged with source, one per name (ported from
// original_source/gitws/_iters.py group_selects_from_groups).
func FromGroupNames(names []string, source string) []Rule {
	rules := make([]Rule, 0, len(names))
	for _, name := range names {
		rules = append(rules, Rule{Select: true, Group: name, Source: source})
	}
	return rules
}

// BuildFilterChain concatenates manifest-level filters (lowest precedence),
// ancestor with-groups filters, and CLI filters (highest precedence) in
// that order, per spec.md §4.3 "Evaluation order" and SPEC_FULL.md §4
// (ported from original_source's group_selects_from_filters merge order).
func BuildFilterChain(manifestFilters, withGroupsFilters, cliFilters []Rule) []Rule {
	chain := make([]Rule, 0, len(manifestFilters)+len(withGroupsFilters)+len(cliFilters))
	chain = append(chain, manifestFilters...)
	chain = append(chain, withGroupsFilters...)
	chain = append(chain, cliFilters...)
	return chain
}

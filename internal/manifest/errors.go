package manifest

import "fmt"

// Kind identifies the class of a manifest validation problem (spec.md §4.2).
type Kind string

const (
	KindUnknownField          Kind = "unknown-field"
	KindTypeMismatch           Kind = "type-mismatch"
	KindMissingRequired        Kind = "missing-required"
	KindDuplicateRemote        Kind = "duplicate-remote"
	KindUnknownRemote          Kind = "unknown-remote"
	KindConflictingURLSources  Kind = "conflicting-url-sources"
	KindInvalidSubURL          Kind = "invalid-sub-url"
	KindBadIdentifier          Kind = "bad-identifier"
	KindDuplicateGroup         Kind = "duplicate-group"
	KindSchemaTooNew           Kind = "schema-too-new"
)

// Issue is a single validation problem, carrying the offending field path.
type Issue struct {
	Kind    Kind
	Ref     string // dotted path, e.g. "dependencies[2].remote"
	Message string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s: %s", i.Ref, i.Message)
}

// ValidationError aggregates every Issue found by Validate. It is returned
// instead of the first issue so a caller can report everything at once.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return e.Issues[0].Error()
	}
	return fmt.Sprintf("manifest validation failed: %d issue(s), first: %s", len(e.Issues), e.Issues[0].Error())
}

func issue(kind Kind, ref, format string, args ...any) Issue {
	return Issue{Kind: kind, Ref: ref, Message: fmt.Sprintf(format, args...)}
}

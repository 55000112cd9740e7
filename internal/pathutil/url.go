// Package pathutil implements the pure URL and filesystem-path arithmetic
// that the manifest resolver relies on (SPEC_FULL.md §1, spec.md §4.1). None
// of these functions touch the filesystem or the network.
package pathutil

import (
	"fmt"
	"net/url"
	"strings"
)

// IsAbsolute reports whether rawurl is an absolute URL: it has a scheme
// (https, ssh, file, ...) or is an opaque SCP-like "user@host:path" remote.
func IsAbsolute(rawurl string) bool {
	rawurl = strings.TrimSpace(rawurl)
	if rawurl == "" {
		return false
	}
	if isSCPLike(rawurl) {
		return true
	}
	u, err := url.Parse(rawurl)
	if err != nil {
		return false
	}
	return u.Scheme != ""
}

// isSCPLike reports whether rawurl has the opaque "user@host:path" shape used
// by ssh remotes without an explicit ssh:// scheme, e.g. "git@github.com:org/repo.git".
// Windows drive letters ("C:\x") are excluded by requiring an "@" before the colon.
func isSCPLike(rawurl string) bool {
	if strings.Contains(rawurl, "://") {
		return false
	}
	at := strings.Index(rawurl, "@")
	colon := strings.Index(rawurl, ":")
	return at >= 0 && colon > at
}

// Join resolves rel against base the way a Git remote is resolved against the
// manifest that references it: an absolute rel is returned unchanged;
// otherwise ".." segments in rel collapse against the path component of base.
// For "user@host:path" remotes and "file://" URLs, the scheme/host prefix of
// base is preserved and only the path component participates in the join.
func Join(base, rel string) string {
	rel = strings.TrimSpace(rel)
	if base == "" {
		return rel
	}
	if IsAbsolute(rel) {
		return rel
	}
	if host, path, ok := splitSCPLike(base); ok {
		joined := joinPath(path, rel)
		return fmt.Sprintf("%s:%s", host, joined)
	}

	baseWithSlash := base
	if !strings.HasSuffix(baseWithSlash, "/") {
		baseWithSlash += "/"
	}
	baseParsed, err := url.Parse(baseWithSlash)
	if err != nil {
		return joinPath(base, rel)
	}
	// url.Parse/ResolveReference understands relative references (including
	// "../x") for any scheme once the base is well-formed; the scheme is
	// substituted back in afterwards so file:// and ssh:// round-trip.
	relParsed, err := url.Parse(rel)
	if err != nil {
		return joinPath(base, rel)
	}
	resolved := baseParsed.ResolveReference(relParsed)
	resolved.Scheme = baseParsed.Scheme
	return resolved.String()
}

// splitSCPLike splits an opaque "user@host:path" URL into its "user@host" and
// "path" components. ok is false if base is not in that form.
func splitSCPLike(base string) (hostPart, path string, ok bool) {
	if !isSCPLike(base) {
		return "", "", false
	}
	colon := strings.Index(base, ":")
	return base[:colon], base[colon+1:], true
}

// joinPath collapses ".." segments of rel against basePath, treating basePath
// as a directory the same way Join treats a URL base, so "../x" against
// "org/repo1.git" yields "org/x".
func joinPath(basePath, rel string) string {
	segments := strings.Split(strings.TrimSuffix(basePath, "/"), "/")
	for _, seg := range strings.Split(rel, "/") {
		switch seg {
		case "", ".":
			// skip
		case "..":
			if len(segments) > 0 {
				segments = segments[:len(segments)-1]
			}
		default:
			segments = append(segments, seg)
		}
	}
	return strings.Join(segments, "/")
}

// ResolveParams is the input to ResolveURL: the pieces of a ProjectSpec and
// its containing manifest relevant to URL assembly (spec.md §4.1
// "resolve_url"), kept as primitives so pathutil has no dependency on the
// manifest package.
type ResolveParams struct {
	ExplicitURL string // spec.url, if set; wins over everything else
	RemoteBase  string // the named remote's url-base, already looked up by the caller; "" if spec has no remote
	HasRemote   bool   // true iff spec (or its defaults) names a remote
	SubURL      string // spec.sub-url, if set
	Name        string // spec.name, used to derive sub_url when unset
	RefURL      string // the containing project's already-resolved URL
}

// ResolveURL applies spec.md §4.1's precedence: an explicit url wins; else a
// named remote's url-base is joined with sub_url (or a derived sibling name
// via SubURL); else the dependency defaults to a sibling path next to its
// containing project. The result is then joined against RefURL so relative
// forms resolve to an absolute URL (ported from
// original_source/gitws/datamodel.py Project.from_spec).
func ResolveURL(p ResolveParams) string {
	url := p.ExplicitURL
	if url == "" {
		subURL := p.SubURL
		if subURL == "" {
			subURL = SubURL(p.RefURL, p.Name)
		}
		if p.HasRemote {
			url = fmt.Sprintf("%s/%s", p.RemoteBase, subURL)
		} else {
			url = "../" + subURL
		}
	}
	return Join(p.RefURL, url)
}

// SubURL derives the sibling URL segment for name, matching the suffix style
// of base. If base ends in ".git", the result does too; if base ends in some
// other "name.suffix" form, name picks up that suffix instead. With no base,
// or a base whose last path segment has no ".", name is returned unchanged.
//
// This mirrors the original git-ws implementation's urlsub: a dependency
// declared with only a name, sitting next to a manifest whose own repository
// is "host/group/proj.git", defaults to "host/group/name.git".
func SubURL(base, name string) string {
	if base == "" {
		return name
	}
	last := base
	if idx := strings.LastIndex(last, "/"); idx >= 0 {
		last = last[idx+1:]
	}
	idx := strings.LastIndex(last, ".")
	if idx <= 0 {
		return name
	}
	suffix := last[idx+1:]
	return fmt.Sprintf("%s.%s", name, suffix)
}

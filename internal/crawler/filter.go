package crawler

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/gobwas/glob"
)

// LinkFilter decides which discovered links are offered to the frontier.
// A nil *LinkFilter allows everything.
//
// Patterns are globs over the URL path with "/" as separator: "*" stays
// within one segment and "**" crosses segments. A pattern without any "/"
// is matched against the last path segment only, so "*.pdf" matches
// "/docs/report.pdf".
type LinkFilter struct {
	// sameHost, when set, restricts links to this host (case-insensitive).
	sameHost string

	ignore []pathGlob
	follow []pathGlob
}

type pathGlob struct {
	raw      string
	g        glob.Glob
	baseOnly bool
}

func (p pathGlob) match(urlPath string) bool {
	if p.baseOnly {
		return p.g.Match(path.Base(urlPath))
	}
	return p.g.Match(urlPath)
}

// NewLinkFilter compiles ignore and follow patterns.
func NewLinkFilter(ignorePatterns, followPatterns []string) (*LinkFilter, error) {
	ignore, err := compilePatterns(ignorePatterns)
	if err != nil {
		return nil, err
	}
	follow, err := compilePatterns(followPatterns)
	if err != nil {
		return nil, err
	}
	return &LinkFilter{ignore: ignore, follow: follow}, nil
}

func compilePatterns(patterns []string) ([]pathGlob, error) {
	out := make([]pathGlob, 0, len(patterns))
	for _, raw := range patterns {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		g, err := glob.Compile(raw, '/')
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, raw, err)
		}
		out = append(out, pathGlob{raw: raw, g: g, baseOnly: !strings.Contains(raw, "/")})
	}
	return out, nil
}

// withSameHost returns a copy of f restricted to host.
func (f *LinkFilter) withSameHost(host string) *LinkFilter {
	var c LinkFilter
	if f != nil {
		c = *f
	}
	c.sameHost = host
	return &c
}

// Allow reports whether link should be crawled.
//
// Order of checks: host restriction, then ignore patterns (any match
// rejects), then follow patterns (when present, one must match).
func (f *LinkFilter) Allow(link string) bool {
	if f == nil {
		return true
	}

	u, err := url.Parse(link)
	if err != nil {
		return false
	}

	if f.sameHost != "" && !strings.EqualFold(u.Host, f.sameHost) {
		return false
	}

	p := u.Path
	if p == "" {
		p = "/"
	}

	for _, g := range f.ignore {
		if g.match(p) {
			return false
		}
	}

	if len(f.follow) == 0 {
		return true
	}
	for _, g := range f.follow {
		if g.match(p) {
			return true
		}
	}
	return false
}

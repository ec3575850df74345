package extract

import (
	"net/url"
	"strings"
)

// IsValidURL reports whether raw parses as an absolute URL with both a scheme
// and a host. Only such URLs may enter the frontier.
func IsValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

// NormalizeURL validates raw and returns it without its fragment.
// The boolean is false when raw is not a valid absolute URL.
func NormalizeURL(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), true
}

// ResolveLink resolves href against the page URL base.
//
// The boolean is false when either input fails to parse, when href is a bare
// fragment, or when the resolved URL lacks a scheme or host
// (e.g. "javascript:void(0)", "mailto:a@b.c").
func ResolveLink(base, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	resolved := baseURL.ResolveReference(ref)
	if resolved.Scheme == "" || resolved.Host == "" {
		return "", false
	}
	resolved.Fragment = ""
	resolved.RawFragment = ""
	return resolved.String(), true
}

// ExtractLinks resolves every href against base and returns the distinct valid
// results in first-seen order. Invalid hrefs are dropped silently.
func ExtractLinks(hrefs []string, base string) []string {
	seen := make(map[string]struct{}, len(hrefs))
	links := make([]string, 0, len(hrefs))
	for _, href := range hrefs {
		link, ok := ResolveLink(base, href)
		if !ok {
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		links = append(links, link)
	}
	return links
}

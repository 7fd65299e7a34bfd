package scrape

import (
	"fmt"
	"net/url"
	"strings"
)

// Absolute resolves link against base. With hostRelative set, a link starting
// with "/" is joined to the base URL's scheme+host only, discarding the base
// path ("/f/abc" on "https://h.example/a/123" gives "https://h.example/f/abc");
// otherwise standard reference resolution applies. Adapters declare which
// behavior their markup expects.
func Absolute(base, link string, hostRelative bool) (string, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", fmt.Errorf("empty link")
	}
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link, nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if hostRelative && strings.HasPrefix(link, "/") {
		return b.Scheme + "://" + b.Host + link, nil
	}
	ref, err := b.Parse(link)
	if err != nil {
		return "", fmt.Errorf("resolve link: %w", err)
	}
	return ref.String(), nil
}

// StripQuery removes the query string and fragment from a URL, leaving the
// bare asset path. Sites append cache-busting suffixes that would otherwise
// defeat deduplication.
func StripQuery(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		return raw[:i]
	}
	return raw
}

// CanonicalKey standardizes a URL into the deduplication key: lowercased
// scheme and host, default ports removed, fragment dropped, query parameters
// sorted. Unparseable input falls back to the raw string so dedupe still
// collapses exact repeats.
func CanonicalKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	u.Fragment = ""
	u.RawQuery = u.Query().Encode()
	return u.String()
}

// SameHost reports whether raw belongs to one of the given hosts, matching
// either exactly or as a subdomain.
func SameHost(raw string, hosts []string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

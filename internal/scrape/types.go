// Package scrape defines the core types and pipeline stages shared across
// all site adapters.
package scrape

import (
	"context"
	"net/http"
)

// MediaKind distinguishes the two asset flavors produced by gallery adapters.
type MediaKind string

// Supported media kinds.
const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// PageRequest is one immutable unit of fetch work: a fully-formed URL plus
// any extra headers the target site expects.
type PageRequest struct {
	URL    string
	Header http.Header
}

// FetchResult is the outcome of a single fetch. Transport failures and
// unexpected statuses are values, not Go errors: callers inspect StatusCode
// and Err explicitly and a failed fetch simply contributes nothing.
type FetchResult struct {
	Body       string
	FinalURL   string
	StatusCode int
	Err        error
}

// OK reports whether the fetch produced a usable 2xx page.
func (r FetchResult) OK() bool {
	return r.Err == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Candidate is an unvalidated, unresolved item extracted from one fetched
// page. Link is always absolute by the time a Candidate leaves the extractor.
type Candidate struct {
	Link      string
	Title     string
	SourceURL string
}

// ResolvedAsset is the terminal output of the resolver chain for gallery
// adapters: a directly fetchable media URL plus an optional thumbnail.
type ResolvedAsset struct {
	URL       string    `json:"url"`
	Kind      MediaKind `json:"kind"`
	Thumbnail string    `json:"thumbnail,omitempty"`
}

// ResultSet is the deduplicated, ordered output of one pipeline run.
// Search adapters fill Links/Titles (index-aligned); gallery adapters fill
// Images/Videos.
type ResultSet struct {
	Site   string   `json:"site"`
	Links  []string `json:"urls,omitempty"`
	Titles []string `json:"titles,omitempty"`
	Images []string `json:"images,omitempty"`
	Videos []string `json:"videos,omitempty"`
}

// Len returns the number of items carried by the set, whichever shape it has.
func (rs ResultSet) Len() int {
	if len(rs.Links) > 0 {
		return len(rs.Links)
	}
	return len(rs.Images) + len(rs.Videos)
}

// Fetcher issues a single HTTP GET and reports the outcome as a value.
// Implementations must follow redirects (FinalURL is the post-redirect URL),
// honor ctx, and never panic; a timed-out fetch is a failed fetch.
type Fetcher interface {
	Fetch(ctx context.Context, req PageRequest) FetchResult
}

// Prober checks asset liveness with a ranged GET (bytes=0-0), following
// redirects. Servers disagree about the answer (200 vs 206), so the caller
// interprets the status code.
type Prober interface {
	Probe(ctx context.Context, url string) FetchResult
}

// PromoteDetector decides whether a plain fetch result looks like a JS shell
// that warrants re-fetching through a headless browser.
type PromoteDetector interface {
	ShouldPromote(res FetchResult) bool
}

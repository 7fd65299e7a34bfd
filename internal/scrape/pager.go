package scrape

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page is one discovered result page. Pages fetched during discovery carry
// their FetchResult so the fan-out stage does not fetch them twice.
type Page struct {
	Request PageRequest
	Result  *FetchResult
}

// hardPageCap bounds every strategy even when an adapter forgets to set one,
// guaranteeing termination against cyclic pagination.
const hardPageCap = 50

// DiscoverPages determines the set of result pages for a query according to
// the adapter's pagination strategy. Probe and next-link discovery are
// sequential by necessity (each page's existence depends on the previous
// fetch); token discovery fetches only the first page and leaves the rest to
// the concurrent fetch stage.
func DiscoverPages(ctx context.Context, f Fetcher, ad Adapter, term string) []Page {
	switch ad.Pagination.Mode {
	case PaginateProbe:
		return probePages(ctx, f, ad, term)
	case PaginateRange:
		return rangePages(ad, term)
	case PaginateTokens:
		return tokenPages(ctx, f, ad, term)
	case PaginateNextLink:
		return nextLinkPages(ctx, f, ad, term)
	default:
		return []Page{{Request: ad.PageRequest(ad.PageURL(term, ad.startPage()))}}
	}
}

// FilterRelevant applies the adapter's relevance predicates to extracted
// candidates. Adapters without filters accept every candidate on the page.
func FilterRelevant(ad Adapter, term string, cands []Candidate) []Candidate {
	if !ad.FilterTitles && !ad.FilterHref {
		return cands
	}
	out := cands[:0:0]
	for _, c := range cands {
		if ad.FilterTitles && !IsRelevant(term, c.Title) {
			continue
		}
		if ad.FilterHref && !strings.Contains(strings.ToLower(c.Link), Normalize(term)) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// probePages walks page numbers until a page yields zero relevant
// candidates. Termination keys on relevant count, not raw count: a page
// full of non-matching items ends the walk too. Best-effort: a transient
// failure reads the same as end-of-results.
func probePages(ctx context.Context, f Fetcher, ad Adapter, term string) []Page {
	var pages []Page
	seen := make(map[string]struct{})
	start := ad.startPage()
	for page := start; page < start+ad.pageCap(); page++ {
		if ctx.Err() != nil {
			break
		}
		req := ad.PageRequest(ad.PageURL(term, page))
		res := f.Fetch(ctx, req)
		if !res.OK() {
			break
		}
		relevant := FilterRelevant(ad, term, Extract(res, ad.SearchRule, ad.HostRelative))
		if ad.Pagination.TrackNew {
			relevant = unseenOnly(relevant, seen)
		}
		if len(relevant) == 0 {
			break
		}
		pages = append(pages, Page{Request: req, Result: &res})
	}
	return pages
}

// rangePages fans out a fixed page window with no end probing; pages past
// the real end come back empty and contribute nothing.
func rangePages(ad Adapter, term string) []Page {
	start := ad.startPage()
	pages := make([]Page, 0, ad.pageCap())
	for page := start; page < start+ad.pageCap(); page++ {
		pages = append(pages, Page{Request: ad.PageRequest(ad.PageURL(term, page))})
	}
	return pages
}

// tokenPages reads continuation signals from the first page: either numeric
// offsets filtered by field name, or whole AJAX parameter strings decoded
// into query-string form. The remaining pages carry no Result and are
// fetched concurrently by the caller.
func tokenPages(ctx context.Context, f Fetcher, ad Adapter, term string) []Page {
	firstURL := ad.PageURL(term, ad.startPage())
	req := ad.PageRequest(firstURL)
	res := f.Fetch(ctx, req)
	if !res.OK() {
		return nil
	}
	pages := []Page{{Request: req, Result: &res}}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.Body))
	if err != nil {
		return pages
	}
	attr := ad.Pagination.TokenAttr
	if attr == "" {
		attr = "data-parameters"
	}
	seen := map[string]struct{}{CanonicalKey(firstURL): {}}
	maxPages := ad.pageCap()
	doc.Find(ad.Pagination.TokenSelector).Each(func(_ int, sel *goquery.Selection) {
		if len(pages) >= maxPages {
			return
		}
		raw, ok := sel.Attr(attr)
		if !ok || raw == "" {
			return
		}
		var pageURL string
		switch {
		case ad.Pagination.TokenField != "":
			token := tokenFieldValue(raw, ad.Pagination.TokenField)
			if token == "" {
				return
			}
			pageURL = ad.TokenURL(term, token)
		case ad.Pagination.TokenDecode:
			params := strings.ReplaceAll(strings.ReplaceAll(raw, ":", "="), ";", "&")
			pageURL = firstURL + "?" + params
		default:
			return
		}
		key := CanonicalKey(pageURL)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		pages = append(pages, Page{Request: ad.PageRequest(pageURL)})
	})
	return pages
}

// tokenFieldValue pulls the numeric value of "field:value" out of a
// ";"-separated parameter string, or "" when absent or non-numeric.
func tokenFieldValue(raw, field string) string {
	for _, part := range strings.Split(raw, ";") {
		name, value, ok := strings.Cut(part, ":")
		if !ok || name != field {
			continue
		}
		if value != "" && isDigits(value) {
			return value
		}
	}
	return ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// nextLinkPages follows an explicit next-page affordance until none is
// present, the cap is hit, or (with StopOnRepeat) a page stops contributing
// unseen links.
func nextLinkPages(ctx context.Context, f Fetcher, ad Adapter, term string) []Page {
	var pages []Page
	seen := make(map[string]struct{})
	next := ad.PageURL(term, ad.startPage())
	for next != "" && len(pages) < ad.pageCap() {
		if ctx.Err() != nil {
			break
		}
		req := ad.PageRequest(next)
		res := f.Fetch(ctx, req)
		if !res.OK() {
			break
		}
		if ad.Pagination.StopOnRepeat {
			fresh := unseenOnly(Extract(res, ad.SearchRule, ad.HostRelative), seen)
			if len(fresh) == 0 {
				break
			}
		}
		pages = append(pages, Page{Request: req, Result: &res})
		next = nextLink(res, ad)
	}
	return pages
}

func nextLink(res FetchResult, ad Adapter) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.Body))
	if err != nil {
		return ""
	}
	attr := ad.Pagination.NextAttr
	if attr == "" {
		attr = "href"
	}
	raw, ok := doc.Find(ad.Pagination.NextSelector).First().Attr(attr)
	if !ok || strings.TrimSpace(raw) == "" {
		return ""
	}
	abs, err := Absolute(res.FinalURL, raw, ad.HostRelative)
	if err != nil {
		return ""
	}
	return abs
}

// unseenOnly keeps candidates whose canonical link has not been recorded in
// seen, recording the survivors.
func unseenOnly(cands []Candidate, seen map[string]struct{}) []Candidate {
	out := cands[:0:0]
	for _, c := range cands {
		key := CanonicalKey(c.Link)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

func (a Adapter) pageCap() int {
	if a.Pagination.MaxPages > 0 && a.Pagination.MaxPages < hardPageCap {
		return a.Pagination.MaxPages
	}
	return hardPageCap
}

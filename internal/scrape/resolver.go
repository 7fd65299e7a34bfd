package scrape

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// numberedSubpage matches album subpage links ending in a page number
// ("/2", "/13/").
var numberedSubpage = regexp.MustCompile(`/\d+/?$`)

// ResolveAssets expands album URLs into final media assets by chaining
// fetch+extract hops per the adapter's resolve config. Albums are resolved
// concurrently; within one album, hops run in dependency order (subpage and
// detail enumeration must finish before the pages they produce are fetched)
// but each hop's page set fans out. A failed page contributes nothing.
func ResolveAssets(ctx context.Context, f Fetcher, ad Adapter, albums []string, limit int) []ResolvedAsset {
	cfg := ad.Resolve
	if cfg == nil {
		return nil
	}
	perAlbum := fanOut(ctx, albums, limit, func(ctx context.Context, album string) []ResolvedAsset {
		return resolveAlbum(ctx, f, ad, *cfg, album, limit)
	})
	var out []ResolvedAsset
	for _, assets := range perAlbum {
		out = append(out, assets...)
	}
	return DedupeAssets(out)
}

func resolveAlbum(ctx context.Context, f Fetcher, ad Adapter, cfg ResolveConfig, album string, limit int) []ResolvedAsset {
	referer := ""
	if cfg.RefererFromAlbum {
		referer = album
	}

	albumPages := albumPageResults(ctx, f, ad, cfg, album, referer)
	if len(albumPages) == 0 {
		return nil
	}

	mediaPages := albumPages
	if cfg.SubpageRule != nil {
		mediaPages = subpageResults(ctx, f, ad, cfg, album, referer, albumPages, limit)
	}
	if cfg.DetailRule != nil {
		mediaPages = detailResults(ctx, f, ad, cfg, referer, mediaPages, limit)
	}

	username := ""
	if cfg.Media.RequireSegment {
		username = firstPathSegment(album)
	}
	var assets []ResolvedAsset
	for _, page := range mediaPages {
		assets = append(assets, ExtractMedia(page, cfg.Media, username)...)
	}
	return assets
}

// albumPageResults fetches the album page, following its next-page chain
// when the adapter declares one.
func albumPageResults(ctx context.Context, f Fetcher, ad Adapter, cfg ResolveConfig, album, referer string) []FetchResult {
	first := f.Fetch(ctx, ad.PageRequestWithReferer(strings.TrimRight(album, "/"), referer))
	if !first.OK() {
		return nil
	}
	pages := []FetchResult{first}
	if cfg.Next == nil {
		return pages
	}

	maxPages := cfg.Next.MaxPages
	if maxPages <= 0 || maxPages > hardPageCap {
		maxPages = hardPageCap
	}
	attr := cfg.Next.Attr
	if attr == "" {
		attr = "href"
	}
	seen := make(map[string]struct{})
	cur := first
	for len(pages) < maxPages {
		if cfg.Next.StopOnRepeat {
			fresh := unseenMedia(cur, cfg.Media, seen)
			if fresh == 0 {
				pages = pages[:len(pages)-1]
				break
			}
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(cur.Body))
		if err != nil {
			break
		}
		raw, ok := doc.Find(cfg.Next.Selector).First().Attr(attr)
		if !ok || strings.TrimSpace(raw) == "" {
			break
		}
		next, err := Absolute(cur.FinalURL, raw, ad.HostRelative)
		if err != nil {
			break
		}
		cur = f.Fetch(ctx, ad.PageRequestWithReferer(next, referer))
		if !cur.OK() {
			break
		}
		pages = append(pages, cur)
	}
	return pages
}

// unseenMedia counts media URLs on the page not yet recorded in seen,
// recording them. Used for duplicate-page chain termination.
func unseenMedia(res FetchResult, rule MediaRule, seen map[string]struct{}) int {
	fresh := 0
	for _, a := range ExtractMedia(res, rule, "") {
		key := CanonicalKey(a.URL)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		fresh++
	}
	return fresh
}

// subpageResults enumerates the album's numbered subpages and fetches them.
// Subpage links must sit under the album URL itself; when none match, the
// album page stands in as the only media page.
func subpageResults(ctx context.Context, f Fetcher, ad Adapter, cfg ResolveConfig, album, referer string, albumPages []FetchResult, limit int) []FetchResult {
	albumPrefix := strings.TrimRight(album, "/")
	var subURLs []string
	for _, page := range albumPages {
		for _, c := range Extract(page, *cfg.SubpageRule, ad.HostRelative) {
			if !strings.HasPrefix(c.Link, albumPrefix) {
				continue
			}
			if !numberedSubpage.MatchString(c.Link) {
				continue
			}
			subURLs = append(subURLs, c.Link)
		}
	}
	subURLs = DedupeStrings(subURLs)
	if len(subURLs) == 0 {
		return albumPages
	}
	reqs := make([]PageRequest, len(subURLs))
	for i, u := range subURLs {
		reqs[i] = ad.PageRequestWithReferer(u, referer)
	}
	return FetchAll(ctx, f, reqs, limit)
}

// detailResults extracts per-item viewer links from the given pages and
// fetches them concurrently.
func detailResults(ctx context.Context, f Fetcher, ad Adapter, cfg ResolveConfig, referer string, pages []FetchResult, limit int) []FetchResult {
	var detailURLs []string
	for _, page := range pages {
		for _, c := range Extract(page, *cfg.DetailRule, ad.HostRelative) {
			detailURLs = append(detailURLs, c.Link)
		}
	}
	detailURLs = DedupeStrings(detailURLs)
	reqs := make([]PageRequest, len(detailURLs))
	for i, u := range detailURLs {
		reqs[i] = ad.PageRequestWithReferer(u, referer)
	}
	return FetchAll(ctx, f, reqs, limit)
}

// ExtractMedia applies the terminal media rule to a fetched page. Thumb
// variants are excluded from the asset list; video elements contribute a
// poster-derived thumbnail, falling back to the configured placeholder.
func ExtractMedia(res FetchResult, rule MediaRule, username string) []ResolvedAsset {
	if !res.OK() || res.Body == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.Body))
	if err != nil {
		return nil
	}
	segment := ""
	if rule.RequireSegment && username != "" {
		segment = "/" + username + "/"
	}
	var out []ResolvedAsset

	if rule.ImageSelector != "" {
		doc.Find(rule.ImageSelector).Each(func(_ int, sel *goquery.Selection) {
			src := firstAttr(sel, attrsOr(rule.ImageAttrs, "src"))
			if src == "" {
				return
			}
			abs, err := Absolute(res.FinalURL, src, false)
			if err != nil {
				return
			}
			if !mediaAccept(abs, rule, segment) {
				return
			}
			if rule.ImagePrefix != "" && !strings.HasPrefix(abs, rule.ImagePrefix) {
				return
			}
			if rule.StripQuery {
				abs = StripQuery(abs)
			}
			out = append(out, ResolvedAsset{URL: abs, Kind: MediaImage})
		})
	}

	if rule.VideoSelector != "" {
		doc.Find(rule.VideoSelector).Each(func(_ int, sel *goquery.Selection) {
			src := firstAttr(sel, attrsOr(rule.VideoAttrs, "src"))
			if src == "" {
				return
			}
			abs, err := Absolute(res.FinalURL, src, false)
			if err != nil {
				return
			}
			if !mediaAccept(abs, rule, segment) {
				return
			}
			if rule.StripQuery {
				abs = StripQuery(abs)
			}
			out = append(out, ResolvedAsset{
				URL:       abs,
				Kind:      MediaVideo,
				Thumbnail: videoThumbnail(res.FinalURL, sel, rule),
			})
		})
	}
	return out
}

func mediaAccept(abs string, rule MediaRule, segment string) bool {
	if rule.ThumbMarker != "" && strings.Contains(abs, rule.ThumbMarker) {
		return false
	}
	if segment != "" && !strings.Contains(abs, segment) {
		return false
	}
	return true
}

// videoThumbnail reads the poster attribute off the video's element chain,
// falling back to the configured placeholder.
func videoThumbnail(baseURL string, sel *goquery.Selection, rule MediaRule) string {
	if rule.PosterAttr != "" {
		poster, ok := sel.Attr(rule.PosterAttr)
		if !ok {
			// <source> children inherit the poster from the parent <video>.
			poster, ok = sel.Closest("video").Attr(rule.PosterAttr)
		}
		if ok && strings.TrimSpace(poster) != "" {
			if abs, err := Absolute(baseURL, poster, false); err == nil {
				return abs
			}
		}
	}
	return rule.ThumbFallback
}

func attrsOr(attrs []string, fallback string) []string {
	if len(attrs) == 0 {
		return []string{fallback}
	}
	return attrs
}

// firstPathSegment returns the first path element of a URL ("username" for
// "https://host/username/album/3").
func firstPathSegment(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

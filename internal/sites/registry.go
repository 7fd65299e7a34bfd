// Package sites holds the declarative adapter table the shared engine runs.
// Adding a site means adding a row here; the pipeline code never changes.
//
// Hosts are placeholder .example domains so the table documents structure,
// not live targets; deployments point adapters at real hosts via config
// overrides.
package sites

import (
	"fmt"
	"sort"

	"github.com/quarryhq/quarry/internal/scrape"
)

func table() []scrape.Adapter {
	return []scrape.Adapter{
		// Probe pagination, relevance filter on a title attribute.
		{
			Name:    "candidpix",
			Kind:    scrape.KindSearch,
			BaseURL: "https://candidpix.example",
			Escape:  scrape.EscapePlus,
			SearchRule: scrape.ExtractRule{
				Selector:  "article a.g1-frame",
				LinkAttrs: []string{"href"},
				Title:     scrape.TitleSource{Attr: "title"},
			},
			FilterTitles: true,
			Pagination: scrape.PaginationConfig{
				Mode:          scrape.PaginateProbe,
				FirstTemplate: "https://candidpix.example/?s={query}",
				PageTemplate:  "https://candidpix.example/page/{page}/?s={query}",
				MaxPages:      20,
			},
		},
		{
			Name:    "simpstream",
			Kind:    scrape.KindSearch,
			BaseURL: "https://simpstream.example",
			Escape:  scrape.EscapePlus,
			SearchRule: scrape.ExtractRule{
				Selector:  "div.video-item a",
				LinkAttrs: []string{"href"},
				Title:     scrape.TitleSource{Attr: "title"},
			},
			FilterTitles: true,
			Pagination: scrape.PaginationConfig{
				Mode:         scrape.PaginateProbe,
				PageTemplate: "https://simpstream.example/page/{page}/?s={query}",
				MaxPages:     20,
			},
		},
		// Probe pagination, relevance filter on element text, dash escaping.
		{
			Name:    "nightreel",
			Kind:    scrape.KindSearch,
			BaseURL: "https://nightreel.example",
			Escape:  scrape.EscapeDash,
			SearchRule: scrape.ExtractRule{
				Selector:  "h2.entry-title a",
				LinkAttrs: []string{"href"},
			},
			FilterTitles: true,
			Pagination: scrape.PaginationConfig{
				Mode:         scrape.PaginateProbe,
				PageTemplate: "https://nightreel.example/tag/{query}/page/{page}/",
				MaxPages:     20,
			},
		},
		// Probe pagination with no relevance filter: the site's own search is
		// trusted and pages past the end come back empty.
		{
			Name:    "glitterwire",
			Kind:    scrape.KindSearch,
			BaseURL: "https://glitterwire.example",
			SearchRule: scrape.ExtractRule{
				Selector:  "div.post-title a",
				LinkAttrs: []string{"href"},
			},
			Pagination: scrape.PaginationConfig{
				Mode:         scrape.PaginateProbe,
				PageTemplate: "https://glitterwire.example/search/{query}/page/{page}/",
				MaxPages:     15,
			},
		},
		{
			Name:    "reelden",
			Kind:    scrape.KindSearch,
			BaseURL: "https://reelden.example",
			SearchRule: scrape.ExtractRule{
				Selector:  "div.item h3 a",
				LinkAttrs: []string{"href"},
			},
			Pagination: scrape.PaginationConfig{
				Mode:         scrape.PaginateProbe,
				PageTemplate: "https://reelden.example/?s={query}&paged={page}",
				MaxPages:     15,
			},
		},
		// Probe pagination that terminates once a page contributes no unseen
		// links; the site repeats its last page forever.
		{
			Name:    "vidvault",
			Kind:    scrape.KindSearch,
			BaseURL: "https://vidvault.example",
			SearchRule: scrape.ExtractRule{
				Selector:     "div.video-list a.video-link",
				LinkAttrs:    []string{"href"},
				Title:        scrape.TitleSource{Child: "span.title"},
				ExcludeChild: "span.badge-private",
			},
			FilterTitles: true,
			Pagination: scrape.PaginationConfig{
				Mode:         scrape.PaginateProbe,
				PageTemplate: "https://vidvault.example/search/{query}/{page}/",
				MaxPages:     20,
				TrackNew:     true,
			},
		},
		{
			Name:    "fanvault",
			Kind:    scrape.KindSearch,
			BaseURL: "https://fanvault.example",
			SearchRule: scrape.ExtractRule{
				Selector:    "a.model-card",
				LinkAttrs:   []string{"href"},
				Title:       scrape.TitleSource{Child: "div.model-name"},
				LinkExclude: []string{"/category/", "/tag/"},
			},
			FilterTitles: true,
			HostRelative: true,
			Pagination: scrape.PaginationConfig{
				Mode:         scrape.PaginateProbe,
				PageTemplate: "https://fanvault.example/search?q={query}&page={page}",
				MaxPages:     15,
				TrackNew:     true,
			},
		},
		// Single page, no pagination.
		{
			Name:    "snapden",
			Kind:    scrape.KindSearch,
			BaseURL: "https://snapden.example",
			SearchRule: scrape.ExtractRule{
				Selector:  "div.gallery-card a",
				LinkAttrs: []string{"href"},
				Title:     scrape.TitleSource{Attr: "title"},
			},
			FilterTitles: true,
			Pagination: scrape.PaginationConfig{
				Mode:          scrape.PaginateNone,
				FirstTemplate: "https://snapden.example/search/{query}",
				PageTemplate:  "https://snapden.example/search/{query}",
			},
		},
		// Single page, relevance checked against the link itself because the
		// markup carries no usable titles.
		{
			Name:    "dropzone",
			Kind:    scrape.KindSearch,
			BaseURL: "https://dropzone.example",
			SearchRule: scrape.ExtractRule{
				Selector:  "div.thumb a",
				LinkAttrs: []string{"href"},
			},
			FilterHref: true,
			Pagination: scrape.PaginationConfig{
				Mode:          scrape.PaginateNone,
				FirstTemplate: "https://dropzone.example/search?search={query}",
				PageTemplate:  "https://dropzone.example/search?search={query}",
			},
		},
		// Host-relative links: hrefs like "/name/album" resolve against the
		// host root, not the current page path.
		{
			Name:    "profilehub",
			Kind:    scrape.KindSearch,
			BaseURL: "https://profilehub.example",
			SearchRule: scrape.ExtractRule{
				Selector:  "div.results a.profile",
				LinkAttrs: []string{"href"},
			},
			FilterTitles: true,
			HostRelative: true,
			Pagination: scrape.PaginationConfig{
				Mode:         scrape.PaginateProbe,
				PageTemplate: "https://profilehub.example/search/{query}/{page}",
				MaxPages:     15,
			},
		},
		// Token chain: continuation offsets embedded in data-parameters
		// attributes ("from:20;..."), expanded through a URL template.
		{
			Name:    "tapevine",
			Kind:    scrape.KindSearch,
			BaseURL: "https://tapevine.example",
			Escape:  scrape.EscapePlus,
			SearchRule: scrape.ExtractRule{
				Selector:  "div.video-list div.item a",
				LinkAttrs: []string{"href"},
				Title:     scrape.TitleSource{Attr: "title"},
			},
			FilterTitles: true,
			Pagination: scrape.PaginationConfig{
				Mode:          scrape.PaginateTokens,
				FirstTemplate: "https://tapevine.example/search/{query}/",
				PageTemplate:  "https://tapevine.example/search/{query}/",
				TokenSelector: "div.pagination a[data-parameters]",
				TokenAttr:     "data-parameters",
				TokenField:    "from",
				TokenTemplate: "https://tapevine.example/search/{query}/?from={token}",
				MaxPages:      15,
			},
		},
		{
			Name:    "isleclips",
			Kind:    scrape.KindSearch,
			BaseURL: "https://isleclips.example",
			SearchRule: scrape.ExtractRule{
				Selector:  "div#list_videos a.thumbnail",
				LinkAttrs: []string{"href"},
				Title:     scrape.TitleSource{Attr: "title"},
			},
			FilterTitles: true,
			Pagination: scrape.PaginationConfig{
				Mode:          scrape.PaginateTokens,
				FirstTemplate: "https://isleclips.example/search/{query}/",
				PageTemplate:  "https://isleclips.example/search/{query}/",
				TokenSelector: "a[data-parameters]",
				TokenAttr:     "data-parameters",
				TokenField:    "from",
				TokenTemplate: "https://isleclips.example/search/{query}/{token}/",
				MaxPages:      15,
			},
		},
		// Token chain: whole AJAX parameter strings decoded into query form
		// (":" -> "=", ";" -> "&") and appended to the first page URL.
		{
			Name:    "clipnest",
			Kind:    scrape.KindSearch,
			BaseURL: "https://clipnest.example",
			Escape:  scrape.EscapePlus,
			SearchRule: scrape.ExtractRule{
				Selector:  "div.list-videos a",
				LinkAttrs: []string{"href"},
				Title:     scrape.TitleSource{Child: "strong.title"},
			},
			FilterTitles: true,
			Pagination: scrape.PaginationConfig{
				Mode:          scrape.PaginateTokens,
				FirstTemplate: "https://clipnest.example/search/{query}/",
				PageTemplate:  "https://clipnest.example/search/{query}/",
				TokenSelector: "div.pagination-holder a[data-parameters]",
				TokenAttr:     "data-parameters",
				TokenDecode:   true,
				MaxPages:      15,
			},
		},
		// Next-link chain read from a data attribute on the load-more button.
		{
			Name:    "musefeed",
			Kind:    scrape.KindSearch,
			BaseURL: "https://musefeed.example",
			SearchRule: scrape.ExtractRule{
				Selector:  "h3.g1-gamma a",
				LinkAttrs: []string{"href"},
			},
			FilterTitles: true,
			Pagination: scrape.PaginationConfig{
				Mode:          scrape.PaginateNextLink,
				FirstTemplate: "https://musefeed.example/?s={query}",
				PageTemplate:  "https://musefeed.example/?s={query}",
				NextSelector:  "a.g1-load-more",
				NextAttr:      "data-g1-next-page-url",
				MaxPages:      15,
			},
		},
		// Gallery: fixed page window fanned out concurrently, albums filtered
		// by title, one-hop resolve straight to media on the album page.
		{
			Name:    "albumstack",
			Kind:    scrape.KindGallery,
			BaseURL: "https://albumstack.example",
			Hosts:   []string{"albumstack.example"},
			Escape:  scrape.EscapeQuery,
			SearchRule: scrape.ExtractRule{
				Selector:  "div.album a.album-link",
				LinkAttrs: []string{"href"},
				Title:     scrape.TitleSource{Child: "div.album-title"},
			},
			FilterTitles: true,
			Pagination: scrape.PaginationConfig{
				Mode:         scrape.PaginateRange,
				PageTemplate: "https://albumstack.example/search?q={query}&page={page}",
				MaxPages:     3,
			},
			Resolve: &scrape.ResolveConfig{
				Media: scrape.MediaRule{
					ImageSelector: "div.media-group img",
					ImageAttrs:    []string{"data-src", "src"},
					ThumbMarker:   "/thumb/",
					VideoSelector: "div.media-group source",
					VideoAttrs:    []string{"src"},
					ThumbFallback: "https://albumstack.example/static/video.png",
				},
			},
		},
		// Gallery: three hops (album list -> album -> per-item viewer page),
		// assets liveness-checked with a ranged GET. The CDN ignores Range and
		// answers 200 for live files.
		{
			Name:    "vaultbin",
			Kind:    scrape.KindGallery,
			BaseURL: "https://vaultbin.example",
			Hosts:   []string{"vaultbin.example", "cdn.vaultbin.example"},
			SearchRule: scrape.ExtractRule{
				Selector:     "div.album-list a",
				LinkAttrs:    []string{"href"},
				LinkContains: "/a/",
				Title:        scrape.TitleSource{Child: "div.album-name"},
			},
			FilterTitles: true,
			Pagination: scrape.PaginationConfig{
				Mode:          scrape.PaginateNone,
				FirstTemplate: "https://vaultbin.example/?search={query}",
				PageTemplate:  "https://vaultbin.example/?search={query}",
			},
			Resolve: &scrape.ResolveConfig{
				DetailRule: &scrape.ExtractRule{
					Selector:     "div.grid a.item-link",
					LinkAttrs:    []string{"href"},
					LinkContains: "/f/",
				},
				Media: scrape.MediaRule{
					ImageSelector: "figure img.max-h-full",
					ImageAttrs:    []string{"src"},
					VideoSelector: "video source",
					VideoAttrs:    []string{"src"},
					ThumbFallback: "https://vaultbin.example/static/video.png",
				},
			},
			Liveness: &scrape.ValidateConfig{AcceptStatus: 200},
		},
		// Gallery keyed by profile username: posts are numbered subpages of
		// the profile, media must live under the profile's own CDN segment,
		// and the CDN requires a Referer from the album page. Honors Range,
		// so a live asset answers 206.
		{
			Name:    "pinfolio",
			Kind:    scrape.KindGallery,
			BaseURL: "https://pinfolio.example",
			Hosts:   []string{"pinfolio.example"},
			SearchRule: scrape.ExtractRule{
				Selector:  "div#content a",
				LinkAttrs: []string{"href"},
			},
			FilterHref: true,
			Pagination: scrape.PaginationConfig{
				Mode:         scrape.PaginateProbe,
				PageTemplate: "https://pinfolio.example/ajax/model/{query}/page-{page}/",
				MaxPages:     25,
			},
			Resolve: &scrape.ResolveConfig{
				SubpageRule: &scrape.ExtractRule{
					Selector:  "div#content a",
					LinkAttrs: []string{"href"},
				},
				Media: scrape.MediaRule{
					ImageSelector:  "div.flex.justify-between img",
					ImageAttrs:     []string{"src"},
					VideoSelector:  "source[type='video/mp4']",
					VideoAttrs:     []string{"src"},
					PosterAttr:     "poster",
					ThumbFallback:  "https://pinfolio.example/static/video.png",
					RequireSegment: true,
				},
				RefererFromAlbum: true,
			},
			Liveness: &scrape.ValidateConfig{AcceptStatus: 206},
		},
		// Gallery: caller supplies the album URL; the album pages through a
		// rel-next affordance whose last page links to itself, so the walk
		// stops when a page adds no unseen images.
		{
			Name:    "shotbin",
			Kind:    scrape.KindGallery,
			BaseURL: "https://shotbin.example",
			Hosts:   []string{"shotbin.example"},
			SearchRule: scrape.ExtractRule{
				Selector:  "div.list-item a.image-container",
				LinkAttrs: []string{"href"},
			},
			Pagination: scrape.PaginationConfig{
				Mode:          scrape.PaginateNone,
				FirstTemplate: "https://shotbin.example/search/images/?q={query}",
				PageTemplate:  "https://shotbin.example/search/images/?q={query}",
			},
			Resolve: &scrape.ResolveConfig{
				Next: &scrape.NextRule{
					Selector:     "a[data-pagination='next']",
					StopOnRepeat: true,
					MaxPages:     20,
				},
				Media: scrape.MediaRule{
					ImageSelector: "div.list-item img",
					ImageAttrs:    []string{"src"},
					ImagePrefix:   "https://media.shotbin.example/",
					StripQuery:    true,
				},
			},
		},
	}
}

// All returns a fresh copy of every registered adapter, sorted by name.
func All() []scrape.Adapter {
	ads := table()
	sort.Slice(ads, func(i, j int) bool { return ads[i].Name < ads[j].Name })
	return ads
}

// SearchAdapters returns the adapters that answer term searches.
func SearchAdapters() []scrape.Adapter {
	var out []scrape.Adapter
	for _, ad := range All() {
		if ad.Kind == scrape.KindSearch {
			out = append(out, ad)
		}
	}
	return out
}

// Lookup finds one adapter by name.
func Lookup(name string) (scrape.Adapter, bool) {
	for _, ad := range table() {
		if ad.Name == name {
			return ad, true
		}
	}
	return scrape.Adapter{}, false
}

// Validate checks the whole table; run at startup so a broken row fails fast.
func Validate() error {
	names := make(map[string]struct{})
	for _, ad := range table() {
		if err := ad.Validate(); err != nil {
			return err
		}
		if _, dup := names[ad.Name]; dup {
			return fmt.Errorf("duplicate adapter name %q", ad.Name)
		}
		names[ad.Name] = struct{}{}
	}
	return nil
}

package scrape

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Kind selects the terminal output shape of an adapter's pipeline.
type Kind string

// Adapter kinds.
const (
	KindSearch  Kind = "search"  // (url, title) pairs
	KindGallery Kind = "gallery" // resolved image/video assets
)

// QueryEscape selects how a search term is embedded into URL templates.
// Sites disagree about this, so it is adapter data.
type QueryEscape string

// Query escaping modes.
const (
	EscapeQuery QueryEscape = "query" // url.QueryEscape ("a b" -> "a+b" style encoding)
	EscapePath  QueryEscape = "path"  // url.PathEscape ("a b" -> "a%20b")
	EscapePlus  QueryEscape = "plus"  // spaces become "+"
	EscapeDash  QueryEscape = "dash"  // spaces become "-"
	EscapeStrip QueryEscape = "strip" // spaces removed entirely
)

// TitleSource tells the extractor where a candidate's display title lives.
// Zero value means "the element's own trimmed text".
type TitleSource struct {
	Attr  string // read this attribute of the matched element
	Child string // or the text of this child selector
}

// ExtractRule is the declarative descriptor the extractor evaluates against
// a fetched page. Elements failing any predicate are skipped silently.
type ExtractRule struct {
	// Selector matches the candidate-bearing elements (goquery syntax).
	Selector string
	// LinkAttrs are tried in order; the first non-empty value is the link.
	// Defaults to ["href"].
	LinkAttrs []string
	// LinkPrefix keeps only links with this prefix after absolutization.
	LinkPrefix string
	// LinkContains keeps only links containing this substring.
	LinkContains string
	// LinkExclude drops links containing any of these substrings.
	LinkExclude []string
	// ExcludeChild drops elements that contain a child matching this
	// selector (e.g. a private-content badge).
	ExcludeChild string
	// Title locates the candidate title.
	Title TitleSource
	// ThumbMarker marks thumb-sized variant URLs by path substring; such
	// links are excluded from assets but may serve as thumbnails.
	ThumbMarker string
}

// PaginationMode names the page-discovery strategy.
type PaginationMode string

// Pagination strategies.
const (
	// PaginateNone fetches the first page only.
	PaginateNone PaginationMode = "none"
	// PaginateProbe walks page numbers until a page yields zero relevant
	// (and, with TrackNew, zero previously unseen) candidates. Best-effort:
	// a transient failure is indistinguishable from end-of-results.
	PaginateProbe PaginationMode = "probe"
	// PaginateRange fans out a fixed page window concurrently without
	// probing for the end.
	PaginateRange PaginationMode = "range"
	// PaginateTokens reads continuation tokens embedded in the first page
	// (AJAX parameter strings, numeric offsets) and fetches the remaining
	// pages concurrently.
	PaginateTokens PaginationMode = "tokens"
	// PaginateNextLink follows an explicit next-page affordance
	// sequentially until none is present.
	PaginateNextLink PaginationMode = "next"
)

// PaginationConfig drives the pager for one adapter. FirstTemplate and
// PageTemplate accept {query} and {page} placeholders; TokenTemplate accepts
// {query} and {token}.
type PaginationConfig struct {
	Mode          PaginationMode
	FirstTemplate string // optional distinct URL for page 1
	PageTemplate  string
	StartPage     int // defaults to 1
	MaxPages      int // hard cap; guards against cyclic pagination

	// TrackNew terminates probing when a page contributes no previously
	// unseen links, for sites that repeat results past the end.
	TrackNew bool

	// Token-chain fields.
	TokenSelector string // anchors carrying the continuation signal
	TokenAttr     string // attribute holding the raw parameter string
	TokenField    string // keep only "field:value" pairs with this field
	TokenTemplate string // URL built per token
	// TokenDecode rewrites the raw parameter string into query-string form
	// (":" -> "=", ";" -> "&") and appends it to FirstTemplate instead of
	// using TokenTemplate.
	TokenDecode bool

	// Next-link fields.
	NextSelector string
	NextAttr     string // defaults to "href"
	// StopOnRepeat ends the chain when a page yields only already-seen
	// links, for sites whose last page points at itself.
	StopOnRepeat bool
}

// MediaRule locates final media elements on an asset-bearing page.
type MediaRule struct {
	ImageSelector string
	ImageAttrs    []string // tried in order, e.g. src then data-src
	ImagePrefix   string   // keep only image URLs with this prefix
	VideoSelector string   // e.g. source[type='video/mp4']
	VideoAttrs    []string
	PosterAttr    string // thumbnail attribute on the matched video element
	ThumbFallback string // placeholder thumbnail when no poster is present
	StripQuery    bool   // drop cache-busting query suffixes
	ThumbMarker   string // exclude thumb-sized variants from final assets
	// RequireSegment keeps only media URLs containing "/{username}/", for
	// profile-scoped CDNs that mix unrelated content into one page.
	RequireSegment bool
}

// NextRule follows a next-page affordance across an album's own pages.
type NextRule struct {
	Selector     string
	Attr         string // defaults to "href"
	StopOnRepeat bool   // stop once a page contributes no unseen media
	MaxPages     int
}

// ResolveConfig describes the multi-hop chain from an album hit to final
// assets. Album links themselves come from the adapter's SearchRule; each
// hop configured here is a fan-out of fetch+extract calls.
type ResolveConfig struct {
	// Next pages through a multi-page album before media extraction.
	Next *NextRule
	// SubpageRule enumerates an album's numbered subpages (links under the
	// album URL ending in a page number). When it matches nothing the album
	// page doubles as the media page.
	SubpageRule *ExtractRule
	// DetailRule extracts per-item viewer links, for sites that interpose a
	// detail page before the asset.
	DetailRule *ExtractRule
	// Media is the terminal hop, applied to whichever page the chain ends on.
	Media MediaRule
	// RefererFromAlbum sends the album URL as Referer on inner hops.
	RefererFromAlbum bool
}

// ValidateConfig enables the per-asset liveness probe. Sites disagree about
// what a ranged GET returns for a live asset (some never honor Range and
// answer 200, others 206), so the accepted status is adapter data and is
// deliberately not unified.
type ValidateConfig struct {
	AcceptStatus int // exactly this status means "live"
}

// Adapter is the complete per-site binding of the shared pipeline: URL
// templates, selectors, pagination strategy, resolver depth, validation.
// Adding a site means adding one of these, not writing new pipeline code.
type Adapter struct {
	Name     string
	Kind     Kind
	BaseURL  string // scheme+host, used for host-relative resolution and checks
	Hosts    []string
	Headers  map[string]string
	Escape   QueryEscape
	SearchRule   ExtractRule
	FilterTitles bool // apply the relevance predicate to extracted titles
	FilterHref   bool // additionally require the normalized term in the link
	HostRelative bool // "/x" resolves against host root, not the page path
	Pagination   PaginationConfig
	Resolve      *ResolveConfig
	Liveness     *ValidateConfig
	RequiresJS   bool
}

// Validate rejects structurally broken adapter rows before any network call.
func (a Adapter) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("adapter name is required")
	}
	switch a.Kind {
	case KindSearch, KindGallery:
	default:
		return fmt.Errorf("adapter %s: unknown kind %q", a.Name, a.Kind)
	}
	if a.Kind == KindGallery && a.Resolve == nil {
		return fmt.Errorf("adapter %s: gallery adapters require a resolve config", a.Name)
	}
	switch a.Pagination.Mode {
	case PaginateNone, PaginateProbe, PaginateRange, PaginateTokens, PaginateNextLink, "":
	default:
		return fmt.Errorf("adapter %s: unknown pagination mode %q", a.Name, a.Pagination.Mode)
	}
	if a.Liveness != nil && a.Liveness.AcceptStatus == 0 {
		return fmt.Errorf("adapter %s: liveness accept status is required", a.Name)
	}
	return nil
}

// CheckAlbumURL rejects a caller-supplied gallery URL that does not belong
// to the adapter's hosts. This is the one input-validation error surfaced
// before any fetch happens.
func (a Adapter) CheckAlbumURL(raw string) error {
	if a.Kind != KindGallery {
		return fmt.Errorf("adapter %s does not accept album URLs", a.Name)
	}
	hosts := a.Hosts
	if len(hosts) == 0 {
		if u, err := url.Parse(a.BaseURL); err == nil {
			hosts = []string{u.Hostname()}
		}
	}
	if !SameHost(raw, hosts) {
		return fmt.Errorf("adapter %s: %q is not a recognized album URL", a.Name, raw)
	}
	return nil
}

// EscapeTerm applies the adapter's query escaping mode to a search term.
func (a Adapter) EscapeTerm(term string) string {
	switch a.Escape {
	case EscapePath:
		return url.PathEscape(term)
	case EscapePlus:
		return strings.ReplaceAll(term, " ", "+")
	case EscapeDash:
		return strings.ReplaceAll(strings.Join(strings.Fields(term), " "), " ", "-")
	case EscapeStrip:
		return strings.Join(strings.Fields(term), "")
	default:
		return url.QueryEscape(term)
	}
}

// PageURL expands the pagination template for the given page number.
// Page 1 uses FirstTemplate when configured.
func (a Adapter) PageURL(term string, page int) string {
	tpl := a.Pagination.PageTemplate
	if page == a.startPage() && a.Pagination.FirstTemplate != "" {
		tpl = a.Pagination.FirstTemplate
	}
	out := strings.ReplaceAll(tpl, "{query}", a.EscapeTerm(term))
	return strings.ReplaceAll(out, "{page}", strconv.Itoa(page))
}

// TokenURL expands the token template for one continuation token.
func (a Adapter) TokenURL(term, token string) string {
	out := strings.ReplaceAll(a.Pagination.TokenTemplate, "{query}", a.EscapeTerm(term))
	return strings.ReplaceAll(out, "{token}", token)
}

// PageRequest builds the fetch unit for a URL with the adapter's headers.
func (a Adapter) PageRequest(rawURL string) PageRequest {
	return a.PageRequestWithReferer(rawURL, "")
}

// PageRequestWithReferer is PageRequest plus a per-hop Referer header.
func (a Adapter) PageRequestWithReferer(rawURL, referer string) PageRequest {
	h := http.Header{}
	for k, v := range a.Headers {
		h.Set(k, v)
	}
	if referer != "" {
		h.Set("Referer", referer)
	}
	return PageRequest{URL: rawURL, Header: h}
}

func (a Adapter) startPage() int {
	if a.Pagination.StartPage > 0 {
		return a.Pagination.StartPage
	}
	return 1
}

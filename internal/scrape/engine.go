package scrape

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quarryhq/quarry/internal/progress"
)

// DefaultConcurrency bounds fan-out stages when the config leaves it unset.
const DefaultConcurrency = 8

// GalleryRef identifies what a gallery run should resolve: either one album
// URL on the adapter's hosts, or a profile username whose albums are
// discovered through the adapter's pagination and search rule.
type GalleryRef struct {
	AlbumURL string
	Username string
}

// EngineConfig wires the engine's collaborators. Fetcher is required;
// everything else degrades gracefully when absent.
type EngineConfig struct {
	Fetcher     Fetcher
	Prober      Prober  // liveness validation; nil skips validation
	Headless    Fetcher // JS rendering; nil disables promotion
	Detector    PromoteDetector
	Emitter     progress.Emitter
	Logger      *zap.Logger
	Concurrency int
}

// Engine executes the shared pipeline for any adapter:
// discover pages, fetch concurrently, extract and filter, then for gallery
// adapters resolve and validate, and finally dedupe. All per-unit failures
// stay inside the run; the returned error covers input validation only.
type Engine struct {
	fetcher     Fetcher
	prober      Prober
	headless    Fetcher
	detector    PromoteDetector
	emitter     progress.Emitter
	logger      *zap.Logger
	concurrency int
}

// NewEngine validates the config and builds an Engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("engine requires a fetcher")
	}
	if cfg.Emitter == nil {
		cfg.Emitter = progress.NopEmitter{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Engine{
		fetcher:     cfg.Fetcher,
		prober:      cfg.Prober,
		headless:    cfg.Headless,
		detector:    cfg.Detector,
		emitter:     cfg.Emitter,
		logger:      cfg.Logger,
		concurrency: cfg.Concurrency,
	}, nil
}

// Search runs the full pipeline for a search adapter and returns ordered,
// deduplicated (url, title) pairs.
func (e *Engine) Search(ctx context.Context, ad Adapter, term string) (ResultSet, error) {
	if term == "" {
		return ResultSet{}, fmt.Errorf("adapter %s: search term is required", ad.Name)
	}
	run := e.startRun(ad, term)
	defer run.finish()

	cands := e.collectCandidates(ctx, run.fetcher, ad, term)
	cands = DedupeCandidates(cands)

	rs := ResultSet{Site: ad.Name}
	for _, c := range cands {
		rs.Links = append(rs.Links, c.Link)
		rs.Titles = append(rs.Titles, c.Title)
	}
	run.items = int64(rs.Len())
	return rs, nil
}

// Gallery resolves an album URL or a profile username into final media
// assets. A URL on the wrong host fails before any network call.
func (e *Engine) Gallery(ctx context.Context, ad Adapter, ref GalleryRef) (ResultSet, error) {
	if ad.Kind != KindGallery || ad.Resolve == nil {
		return ResultSet{}, fmt.Errorf("adapter %s does not serve galleries", ad.Name)
	}
	var albums []string
	term := ref.Username
	switch {
	case ref.AlbumURL != "":
		if err := ad.CheckAlbumURL(ref.AlbumURL); err != nil {
			return ResultSet{}, err
		}
		albums = []string{ref.AlbumURL}
		term = ref.AlbumURL
	case ref.Username != "":
	default:
		return ResultSet{}, fmt.Errorf("adapter %s: album url or username is required", ad.Name)
	}

	run := e.startRun(ad, term)
	defer run.finish()

	if albums == nil {
		for _, c := range e.collectCandidates(ctx, run.fetcher, ad, ref.Username) {
			albums = append(albums, c.Link)
		}
		albums = DedupeStrings(albums)
	}

	assets := ResolveAssets(ctx, run.fetcher, ad, albums, e.concurrency)
	if e.prober != nil {
		assets = ValidateAssets(ctx, e.prober, ad, assets, e.concurrency)
	}

	rs := ResultSet{Site: ad.Name}
	for _, a := range assets {
		switch a.Kind {
		case MediaVideo:
			rs.Videos = append(rs.Videos, a.URL)
		default:
			rs.Images = append(rs.Images, a.URL)
		}
	}
	run.items = int64(rs.Len())
	return rs, nil
}

// SearchAll fans the same term out across every given search adapter and
// returns one result set per adapter in input order. An adapter's failure
// or empty run contributes an empty set, never an error.
func (e *Engine) SearchAll(ctx context.Context, ads []Adapter, term string) []ResultSet {
	return fanOut(ctx, ads, e.concurrency, func(ctx context.Context, ad Adapter) ResultSet {
		rs, err := e.Search(ctx, ad, term)
		if err != nil {
			e.logger.Warn("site search skipped",
				zap.String("site", ad.Name), zap.Error(err))
			return ResultSet{Site: ad.Name}
		}
		return rs
	})
}

// collectCandidates runs discovery, the concurrent fetch stage, and
// extraction with relevance filtering, preserving page order.
func (e *Engine) collectCandidates(ctx context.Context, f Fetcher, ad Adapter, term string) []Candidate {
	pages := DiscoverPages(ctx, f, ad, term)
	results := e.fetchPages(ctx, f, pages)
	var cands []Candidate
	for _, res := range results {
		cands = append(cands, FilterRelevant(ad, term, Extract(res, ad.SearchRule, ad.HostRelative))...)
	}
	return cands
}

// fetchPages fetches the pages discovery left unfetched, concurrently and
// bounded, and returns all page results in discovery order.
func (e *Engine) fetchPages(ctx context.Context, f Fetcher, pages []Page) []FetchResult {
	var pending []PageRequest
	var pendingIdx []int
	results := make([]FetchResult, len(pages))
	for i, p := range pages {
		if p.Result != nil {
			results[i] = *p.Result
			continue
		}
		pending = append(pending, p.Request)
		pendingIdx = append(pendingIdx, i)
	}
	for i, res := range FetchAll(ctx, f, pending, e.concurrency) {
		results[pendingIdx[i]] = res
	}
	return results
}

// runScope carries per-run observability state.
type runScope struct {
	engine  *Engine
	fetcher Fetcher
	id      [16]byte
	site    string
	term    string
	started time.Time
	items   int64
}

// startRun emits RUN_START and builds the run's instrumented fetcher,
// promoting to the headless renderer when the adapter needs JS.
func (e *Engine) startRun(ad Adapter, term string) *runScope {
	run := &runScope{
		engine:  e,
		id:      progress.UUIDToBytes(uuid.New()),
		site:    ad.Name,
		term:    term,
		started: time.Now().UTC(),
	}
	base := e.fetcher
	if ad.RequiresJS && e.headless != nil {
		base = e.headless
	} else if e.headless != nil && e.detector != nil {
		base = &promotingFetcher{plain: e.fetcher, headless: e.headless, detector: e.detector}
	}
	run.fetcher = &instrumentedFetcher{inner: base, run: run}
	e.emitter.Emit(progress.Event{
		RunID: run.id,
		TS:    run.started,
		Stage: progress.StageRunStart,
		Site:  run.site,
		Term:  run.term,
	})
	return run
}

func (run *runScope) finish() {
	run.engine.emitter.Emit(progress.Event{
		RunID: run.id,
		TS:    time.Now().UTC(),
		Stage: progress.StageRunDone,
		Site:  run.site,
		Term:  run.term,
		Items: run.items,
		Dur:   time.Since(run.started),
	})
}

// instrumentedFetcher emits a FETCH_DONE event per fetch.
type instrumentedFetcher struct {
	inner Fetcher
	run   *runScope
}

func (f *instrumentedFetcher) Fetch(ctx context.Context, req PageRequest) FetchResult {
	started := time.Now()
	res := f.inner.Fetch(ctx, req)
	evt := progress.Event{
		RunID:       f.run.id,
		TS:          time.Now().UTC(),
		Stage:       progress.StageFetchDone,
		Site:        f.run.site,
		URL:         req.URL,
		Bytes:       int64(len(res.Body)),
		StatusClass: progress.ClassifyStatus(res.StatusCode),
		Dur:         time.Since(started),
	}
	if res.Err != nil {
		evt.StatusClass = progress.StatusOther
		evt.Note = res.Err.Error()
	}
	f.run.engine.emitter.Emit(evt)
	return res
}

// promotingFetcher retries a fetch through the headless renderer when the
// plain result looks like a JS shell.
type promotingFetcher struct {
	plain    Fetcher
	headless Fetcher
	detector PromoteDetector
}

func (f *promotingFetcher) Fetch(ctx context.Context, req PageRequest) FetchResult {
	res := f.plain.Fetch(ctx, req)
	if !f.detector.ShouldPromote(res) {
		return res
	}
	rendered := f.headless.Fetch(ctx, req)
	if rendered.Err != nil {
		return res
	}
	return rendered
}

package scrape

import (
	"context"
	"net/http"
	"sync"
)

// fakeFetcher serves canned pages by exact URL and records every request.
// Unknown URLs answer 404 so tests can rely on chains terminating.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]FetchResult
	calls []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: make(map[string]FetchResult)}
}

func (f *fakeFetcher) add(url, body string) *fakeFetcher {
	f.pages[url] = FetchResult{Body: body, FinalURL: url, StatusCode: http.StatusOK}
	return f
}

func (f *fakeFetcher) addResult(url string, res FetchResult) *fakeFetcher {
	if res.FinalURL == "" {
		res.FinalURL = url
	}
	f.pages[url] = res
	return f
}

func (f *fakeFetcher) Fetch(_ context.Context, req PageRequest) FetchResult {
	f.mu.Lock()
	f.calls = append(f.calls, req.URL)
	f.mu.Unlock()
	if res, ok := f.pages[req.URL]; ok {
		return res
	}
	return FetchResult{FinalURL: req.URL, StatusCode: http.StatusNotFound}
}

func (f *fakeFetcher) fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// fakeProber answers liveness probes from a status table; unknown URLs get
// 404.
type fakeProber struct {
	status map[string]int
	errs   map[string]error
}

func (p *fakeProber) Probe(_ context.Context, url string) FetchResult {
	if err, ok := p.errs[url]; ok {
		return FetchResult{FinalURL: url, Err: err}
	}
	if code, ok := p.status[url]; ok {
		return FetchResult{FinalURL: url, StatusCode: code}
	}
	return FetchResult{FinalURL: url, StatusCode: http.StatusNotFound}
}

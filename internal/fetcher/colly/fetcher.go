// Package collyfetcher implements scrape.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/quarryhq/quarry/internal/scrape"
)

const defaultTimeout = 15 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher implements scrape.Fetcher and scrape.Prober on the Colly
// collector. Each fetch runs on a clone of the base collector so no state
// leaks between concurrent fetches.
type Fetcher struct {
	cfg       Config
	transport http.RoundTripper
	base      *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	c := colly.NewCollector(
		colly.Async(false),
		colly.IgnoreRobotsTxt(),
		colly.AllowURLRevisit(),
		// Non-2xx answers are pipeline values, not errors.
		colly.ParseHTTPErrorResponse(),
	)
	transport := newHTTPTransport()
	c.WithTransport(transport)
	return &Fetcher{cfg: cfg, transport: transport, base: c}
}

// Fetch executes a single HTTP GET. Transport failures land in Err; any
// received status (2xx or not) lands in StatusCode with Err nil. Redirects
// are followed and FinalURL is the post-redirect URL.
func (f *Fetcher) Fetch(ctx context.Context, req scrape.PageRequest) scrape.FetchResult {
	return f.visit(ctx, req, "")
}

// Probe issues a ranged GET (bytes=0-0) for liveness checks. Servers that
// ignore Range answer 200 with the full body; servers that honor it answer
// 206 with one byte. Both land in StatusCode for the caller to judge.
func (f *Fetcher) Probe(ctx context.Context, url string) scrape.FetchResult {
	return f.visit(ctx, scrape.PageRequest{URL: url}, "bytes=0-0")
}

func (f *Fetcher) visit(ctx context.Context, req scrape.PageRequest, rangeHeader string) scrape.FetchResult {
	collector := f.base.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	timeout := f.cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	collector.SetRequestTimeout(timeout)
	collector.WithTransport(f.transport)

	var result scrape.FetchResult
	collector.OnRequest(func(r *colly.Request) {
		for key, values := range req.Header {
			for _, v := range values {
				r.Headers.Set(key, v)
			}
		}
		if rangeHeader != "" {
			r.Headers.Set("Range", rangeHeader)
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		result = scrape.FetchResult{
			Body:       string(r.Body),
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			result.StatusCode = r.StatusCode
			result.FinalURL = r.Request.URL.String()
		}
		result.Err = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(req.URL)
	}()
	select {
	case <-ctx.Done():
		return scrape.FetchResult{FinalURL: req.URL, Err: ctx.Err()}
	case err := <-done:
		if result.Err == nil && result.StatusCode == 0 && err != nil {
			result.Err = err
		}
		if result.FinalURL == "" {
			result.FinalURL = req.URL
		}
		return result
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}

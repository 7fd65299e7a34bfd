package headless

import (
	"context"
	"errors"

	"github.com/quarryhq/quarry/internal/scrape"
)

// Noop implements scrape.Fetcher but always fails. It stands in for the
// renderer when headless browsing is disabled, so sites that need JS fail
// cleanly instead of being scraped un-rendered.
type Noop struct{}

// NewNoop creates a new Noop fetcher.
func NewNoop() *Noop {
	return &Noop{}
}

// Fetch reports the missing renderer as a value, per the pipeline contract.
func (Noop) Fetch(_ context.Context, req scrape.PageRequest) scrape.FetchResult {
	return scrape.FetchResult{FinalURL: req.URL, Err: errors.New("headless fetcher not configured")}
}

package scrape

import (
	"context"
	"sync"
)

// fanOut runs fn over items with at most limit goroutines in flight and
// returns one result per item, index-aligned with the input regardless of
// completion order. fn must capture its own failures as values; a panic in
// fn is a programmer error and is allowed to crash.
func fanOut[T, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, item T) R) []R {
	out := make([]R, len(items))
	if len(items) == 0 {
		return out
	}
	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for i := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			out[i] = fn(ctx, items[i])
		}(i)
	}
	wg.Wait()
	return out
}

// FetchAll executes the requests concurrently (bounded by limit; limit <= 0
// means one goroutine per request) and returns results in input order. One
// request's failure never aborts its siblings: a failed slot carries its
// error inside the FetchResult.
func FetchAll(ctx context.Context, f Fetcher, reqs []PageRequest, limit int) []FetchResult {
	return fanOut(ctx, reqs, limit, func(ctx context.Context, req PageRequest) FetchResult {
		return f.Fetch(ctx, req)
	})
}

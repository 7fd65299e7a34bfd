package scrape

import "context"

// ValidateAssets drops assets whose liveness probe does not answer exactly
// the adapter's accepted status. A probe's transport failure counts as dead.
// Probes fan out bounded by limit; input order is preserved. An adapter
// without a liveness config keeps every asset.
func ValidateAssets(ctx context.Context, p Prober, ad Adapter, assets []ResolvedAsset, limit int) []ResolvedAsset {
	cfg := ad.Liveness
	if cfg == nil || len(assets) == 0 {
		return assets
	}
	alive := fanOut(ctx, assets, limit, func(ctx context.Context, a ResolvedAsset) bool {
		res := p.Probe(ctx, a.URL)
		return res.Err == nil && res.StatusCode == cfg.AcceptStatus
	})
	out := assets[:0:0]
	for i, ok := range alive {
		if ok {
			out = append(out, assets[i])
		}
	}
	return out
}

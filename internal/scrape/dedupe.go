package scrape

// DedupeCandidates collapses candidates sharing a canonical URL, keeping the
// first-seen occurrence (and therefore its title) and preserving input
// order. Applied as a single serial merge step after fan-out completes; it
// is idempotent.
func DedupeCandidates(items []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(items))
	out := items[:0:0]
	for _, c := range items {
		key := CanonicalKey(c.Link)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

// DedupeStrings removes repeats by canonical URL, preserving first-seen order.
func DedupeStrings(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := urls[:0:0]
	for _, u := range urls {
		key := CanonicalKey(u)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, u)
	}
	return out
}

// DedupeAssets removes repeated assets by canonical asset URL, first seen wins.
func DedupeAssets(assets []ResolvedAsset) []ResolvedAsset {
	seen := make(map[string]struct{}, len(assets))
	out := assets[:0:0]
	for _, a := range assets {
		key := CanonicalKey(a.URL)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}

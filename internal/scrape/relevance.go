package scrape

import "strings"

// Normalize lowercases s and strips all whitespace. The normalized form is
// used for comparison only, never for display.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "")
}

// IsRelevant reports whether title matches term under the pipeline's sole
// relevance predicate: substring containment of the normalized term in the
// normalized title. No tokenizing, no fuzzing.
func IsRelevant(term, title string) bool {
	return strings.Contains(Normalize(title), Normalize(term))
}

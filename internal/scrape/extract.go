package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extract evaluates rule against a fetched page and returns the candidates
// in document order. Elements that miss the link attribute or fail a
// predicate are skipped silently; an unparseable body yields nil, which the
// pager treats the same as an empty page.
func Extract(res FetchResult, rule ExtractRule, hostRelative bool) []Candidate {
	if !res.OK() || res.Body == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.Body))
	if err != nil {
		return nil
	}
	return extractFromDoc(doc, res.FinalURL, rule, hostRelative)
}

func extractFromDoc(doc *goquery.Document, baseURL string, rule ExtractRule, hostRelative bool) []Candidate {
	var out []Candidate
	doc.Find(rule.Selector).Each(func(_ int, sel *goquery.Selection) {
		if rule.ExcludeChild != "" && sel.Find(rule.ExcludeChild).Length() > 0 {
			return
		}
		link := firstAttr(sel, rule.linkAttrs())
		if link == "" {
			return
		}
		abs, err := Absolute(baseURL, link, hostRelative)
		if err != nil {
			return
		}
		if !rule.acceptLink(abs) {
			return
		}
		out = append(out, Candidate{
			Link:      abs,
			Title:     extractTitle(sel, rule.Title),
			SourceURL: baseURL,
		})
	})
	return out
}

// acceptLink applies the rule's link predicates to an absolutized URL.
func (r ExtractRule) acceptLink(abs string) bool {
	if r.LinkPrefix != "" && !strings.HasPrefix(abs, r.LinkPrefix) {
		return false
	}
	if r.LinkContains != "" && !strings.Contains(abs, r.LinkContains) {
		return false
	}
	for _, sub := range r.LinkExclude {
		if strings.Contains(abs, sub) {
			return false
		}
	}
	if r.ThumbMarker != "" && strings.Contains(abs, r.ThumbMarker) {
		return false
	}
	return true
}

func (r ExtractRule) linkAttrs() []string {
	if len(r.LinkAttrs) == 0 {
		return []string{"href"}
	}
	return r.LinkAttrs
}

func extractTitle(sel *goquery.Selection, src TitleSource) string {
	if src.Attr != "" {
		if v, ok := sel.Attr(src.Attr); ok {
			return strings.TrimSpace(v)
		}
		return ""
	}
	if src.Child != "" {
		child := sel.Find(src.Child)
		if child.Length() == 0 {
			return ""
		}
		return strings.TrimSpace(child.First().Text())
	}
	return strings.TrimSpace(sel.Text())
}

func firstAttr(sel *goquery.Selection, attrs []string) string {
	for _, attr := range attrs {
		if v, ok := sel.Attr(attr); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

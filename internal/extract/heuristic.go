package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shelfgrab/shelfgrab/internal/text"
)

// containerSelectors locate listing containers, most specific first. The
// first selector with at least one match wins.
var containerSelectors = []string{
	".book-item",
	".product-item",
	".book",
	"[data-book]",
	".item",
	"article",
	".card",
}

var titleSelectors = []string{
	"h1", "h2", "h3", "h4",
	".title", ".book-title", ".product-title",
	"[data-title]", "[title]",
	"strong", "b",
}

var editionSelectors = []string{
	".edition", ".version", ".ed",
	"[data-edition]", "[data-version]",
}

var imageSelectors = []string{
	"img[src]",
	"img[data-src]",
	"img[data-lazy]",
	".image img",
	".book-image img",
	".product-image img",
}

var linkSelectors = []string{
	"a[href]",
	".link a",
	".book-link a",
	".product-link a",
}

var editionRe = regexp.MustCompile(`(?i)(\d+)(st|nd|rd|th)\s*edition|edition\s*(\d+)`)

const maxHeuristicTitle = 500

// heuristicStrategy pattern-matches listing markup with prioritized CSS
// selectors. Works on any page; candidates without a resolvable title are
// dropped here rather than surfaced as invalid records.
type heuristicStrategy struct{}

func (s *heuristicStrategy) Name() string { return "dom_heuristic" }

func (s *heuristicStrategy) Extract(doc *goquery.Document, base *url.URL) ([]Candidate, bool) {
	elements := findContainers(doc)
	if elements == nil || elements.Length() == 0 {
		return nil, false
	}

	var candidates []Candidate
	elements.Each(func(_ int, el *goquery.Selection) {
		title := extractTitle(el)
		if title == "" {
			return
		}
		source := extractSourceURL(el, base)
		if source == "" {
			source = base.String()
		}
		candidates = append(candidates, Candidate{
			Title:     title,
			Edition:   extractEdition(el),
			ImageURL:  extractImageURL(el, base),
			SourceURL: source,
		})
	})
	return candidates, true
}

func findContainers(doc *goquery.Document) *goquery.Selection {
	for _, sel := range containerSelectors {
		if found := doc.Find(sel); found.Length() > 0 {
			return found
		}
	}

	// Broadened search: any block whose text mentions book listings.
	broad := doc.Find("div, article, section").FilterFunction(func(_ int, el *goquery.Selection) bool {
		t := strings.ToLower(el.Text())
		return strings.Contains(t, "book") || strings.Contains(t, "title") || strings.Contains(t, "edition")
	})
	if broad.Length() > 0 {
		return broad
	}
	return nil
}

func extractTitle(el *goquery.Selection) string {
	for _, sel := range titleSelectors {
		found := el.Find(sel).First()
		if found.Length() == 0 {
			continue
		}
		title := text.Clean(found.Text())
		if title != "" && len(title) < maxHeuristicTitle {
			return title
		}
	}

	// Fall back to the element's first non-blank text line.
	line := text.FirstLine(el.Text())
	if len(line) > maxHeuristicTitle {
		line = line[:maxHeuristicTitle]
	}
	return line
}

func extractEdition(el *goquery.Selection) string {
	for _, sel := range editionSelectors {
		found := el.Find(sel).First()
		if found.Length() == 0 {
			continue
		}
		if edition := text.Clean(found.Text()); edition != "" {
			return edition
		}
	}
	return editionRe.FindString(strings.ToLower(el.Text()))
}

func extractImageURL(el *goquery.Selection, base *url.URL) string {
	for _, sel := range imageSelectors {
		found := el.Find(sel).First()
		if found.Length() == 0 {
			continue
		}
		for _, attr := range []string{"src", "data-src", "data-lazy"} {
			if src, ok := found.Attr(attr); ok && src != "" {
				return resolveURL(base, src)
			}
		}
	}
	return ""
}

func extractSourceURL(el *goquery.Selection, base *url.URL) string {
	for _, sel := range linkSelectors {
		found := el.Find(sel).First()
		if found.Length() == 0 {
			continue
		}
		if href, ok := found.Attr("href"); ok && href != "" {
			return resolveURL(base, href)
		}
	}
	return ""
}

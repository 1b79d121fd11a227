// Package extract turns a fetched HTML document into candidate book records.
//
// Strategies are tried in priority order and the first one that recognizes
// the document wins; outputs are never merged. Extraction is deterministic
// for a fixed document and page URL.
package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Candidate is a tentative book record produced before validation. Empty
// optional fields mean the page offered nothing for them.
type Candidate struct {
	Title     string
	Edition   string
	ImageURL  string
	SourceURL string
}

// Strategy extracts candidates from a parsed document. The second return
// value reports whether the strategy recognized the document at all; a
// recognized document with zero candidates still stops the cascade.
type Strategy interface {
	Name() string
	Extract(doc *goquery.Document, base *url.URL) ([]Candidate, bool)
}

// Engine runs an ordered list of strategies over a document.
type Engine struct {
	strategies []Strategy
}

// NewEngine creates an Engine with the given strategies, tried in order.
func NewEngine(strategies ...Strategy) *Engine {
	return &Engine{strategies: strategies}
}

// Default returns the standard cascade: embedded structured data first,
// selector heuristics second.
func Default() *Engine {
	return NewEngine(&structuredStrategy{}, &heuristicStrategy{})
}

// Extract parses the document and runs the cascade. A document no strategy
// recognizes yields zero candidates, not an error.
func (e *Engine) Extract(html string, pageURL string) ([]Candidate, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, eris.Wrap(err, "extract: parse page url")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "extract: parse html")
	}

	for _, s := range e.strategies {
		candidates, ok := s.Extract(doc, base)
		if !ok {
			continue
		}
		zap.L().Debug("extract: strategy matched",
			zap.String("strategy", s.Name()),
			zap.Int("candidates", len(candidates)),
		)
		return candidates, nil
	}

	return nil, nil
}

// resolveURL makes href absolute against the page URL. Already-absolute
// URLs pass through unchanged; garbage resolves to "".
func resolveURL(base *url.URL, href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

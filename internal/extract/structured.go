package extract

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/shelfgrab/shelfgrab/internal/text"
)

// structuredStrategy reads the JSON data island that framework-rendered
// pages inline into the document (the __NEXT_DATA__ script). It only
// claims the document when the payload parses and carries an item
// collection; anything less falls through to the selector heuristics.
type structuredStrategy struct{}

func (s *structuredStrategy) Name() string { return "structured_data" }

type structuredItem struct {
	Type     string   `json:"type"`
	TypeName string   `json:"__typename"`
	Name     string   `json:"name"`
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle"`
	Edition  string   `json:"edition"`
	Image    string   `json:"image"`
	URL      string   `json:"url"`
	Links    []string `json:"links"`
}

type structuredPayload struct {
	Items []structuredItem `json:"items"`
	Props struct {
		PageProps struct {
			Items []structuredItem `json:"items"`
		} `json:"pageProps"`
	} `json:"props"`
}

func (s *structuredStrategy) Extract(doc *goquery.Document, base *url.URL) ([]Candidate, bool) {
	raw := doc.Find(`script#__NEXT_DATA__`).First().Text()
	if strings.TrimSpace(raw) == "" {
		return nil, false
	}

	var payload structuredPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		zap.L().Debug("extract: structured payload malformed", zap.Error(err))
		return nil, false
	}

	items := payload.Items
	if len(items) == 0 {
		items = payload.Props.PageProps.Items
	}
	if items == nil {
		return nil, false
	}

	var candidates []Candidate
	for _, it := range items {
		if !it.isBook() {
			continue
		}
		title := text.Clean(it.Name)
		if title == "" {
			title = text.Clean(it.Title)
		}
		if title == "" {
			continue
		}

		edition := text.Clean(it.Subtitle)
		if edition == "" {
			edition = text.Clean(it.Edition)
		}

		source := it.URL
		if source == "" && len(it.Links) > 0 {
			source = it.Links[0]
		}

		candidates = append(candidates, Candidate{
			Title:     title,
			Edition:   edition,
			ImageURL:  resolveURL(base, it.Image),
			SourceURL: resolveURL(base, source),
		})
	}
	return candidates, true
}

func (it structuredItem) isBook() bool {
	for _, tag := range []string{it.Type, it.TypeName} {
		if strings.EqualFold(strings.TrimSpace(tag), "book") {
			return true
		}
	}
	return false
}

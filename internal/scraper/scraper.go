// Package scraper coordinates one scrape request: validate, create the
// group, fetch the page, extract candidates, persist books.
package scraper

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shelfgrab/shelfgrab/internal/extract"
	"github.com/shelfgrab/shelfgrab/internal/model"
	"github.com/shelfgrab/shelfgrab/internal/store"
)

// State names a step of the scrape pipeline. Transitions are strictly
// forward; Failed is reachable from NameCheck, Fetching and Extracting but
// never from PersistingBooks, where partial persistence is tolerated.
type State string

const (
	StateIdle            State = "idle"
	StateNameCheck       State = "name_check"
	StateGroupCreated    State = "group_created"
	StateFetching        State = "fetching"
	StateExtracting      State = "extracting"
	StatePersistingBooks State = "persisting_books"
	StateDone            State = "done"
	StateFailed          State = "failed"
)

// Fetcher retrieves one document.
type Fetcher interface {
	Get(ctx context.Context, url string) (string, error)
}

// Extractor produces candidate books from a document.
type Extractor interface {
	Extract(html string, pageURL string) ([]extract.Candidate, error)
}

// Result reports a finished scrape. BooksFound counts extracted candidates;
// BooksScraped counts the subset that validated and persisted.
type Result struct {
	GroupID      string `json:"groupId"`
	GroupName    string `json:"groupName"`
	BooksScraped int    `json:"booksScraped"`
	BooksFound   int    `json:"booksFound"`
}

// Scraper runs scrape requests against a store. Safe for concurrent use;
// each Run carries its own state.
type Scraper struct {
	store   store.Store
	fetcher Fetcher
	engine  Extractor
}

// New creates a Scraper.
func New(st store.Store, fetcher Fetcher, engine Extractor) *Scraper {
	return &Scraper{store: st, fetcher: fetcher, engine: engine}
}

// Run executes the full pipeline for one page URL and group name.
//
// A group that was already created stays persisted even when a later fetch
// or extraction step fails; rolling it back would discard the caller's
// intent along with the transient failure.
func (s *Scraper) Run(ctx context.Context, pageURL, groupName string) (*Result, error) {
	state := StateIdle
	advance := func(next State) {
		zap.L().Debug("scrape: state transition",
			zap.String("from", string(state)),
			zap.String("to", string(next)),
		)
		state = next
	}

	// Input validation.
	advance(StateNameCheck)
	group, err := model.NewGroup(groupName)
	if err != nil {
		advance(StateFailed)
		return nil, err
	}
	if _, err := model.ParseURL("url", pageURL); err != nil {
		advance(StateFailed)
		return nil, err
	}

	// Uniqueness check happens before any fetching or extraction.
	existing, err := s.store.FindGroupByName(ctx, group.Name)
	if err != nil {
		advance(StateFailed)
		return nil, NewStoreError(err)
	}
	if existing != nil {
		advance(StateFailed)
		return nil, ErrGroupExists
	}

	saved, err := s.store.SaveGroup(ctx, group)
	if err != nil {
		advance(StateFailed)
		if eris.Is(err, store.ErrDuplicateGroupName) {
			return nil, ErrGroupExists
		}
		return nil, NewStoreError(err)
	}
	advance(StateGroupCreated)

	advance(StateFetching)
	html, err := s.fetcher.Get(ctx, pageURL)
	if err != nil {
		advance(StateFailed)
		return nil, NewFetchError(err)
	}

	// An engine-internal failure counts as zero candidates, not a fatal
	// error: the group already exists and an empty result is reportable.
	advance(StateExtracting)
	candidates, err := s.engine.Extract(html, pageURL)
	if err != nil {
		zap.L().Warn("scrape: extraction degraded to zero candidates",
			zap.String("url", pageURL),
			zap.Error(err),
		)
		candidates = nil
	}

	advance(StatePersistingBooks)
	persisted := 0
	for i, c := range candidates {
		sourceURL := c.SourceURL
		if sourceURL == "" {
			sourceURL = pageURL
		}
		book, err := model.NewBook(c.Title, c.Edition, c.ImageURL, sourceURL, saved.ID)
		if err != nil {
			zap.L().Warn("scrape: skipping invalid candidate",
				zap.Int("index", i),
				zap.String("title", c.Title),
				zap.Error(err),
			)
			continue
		}
		if _, err := s.store.SaveBook(ctx, book); err != nil {
			zap.L().Error("scrape: failed to persist book",
				zap.Int("index", i),
				zap.String("title", book.Title),
				zap.Error(err),
			)
			continue
		}
		persisted++
	}
	advance(StateDone)

	zap.L().Info("scrape: complete",
		zap.String("group", saved.Name),
		zap.String("group_id", saved.ID),
		zap.Int("books_found", len(candidates)),
		zap.Int("books_scraped", persisted),
	)

	return &Result{
		GroupID:      saved.ID,
		GroupName:    saved.Name,
		BooksScraped: persisted,
		BooksFound:   len(candidates),
	}, nil
}

package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/shelfgrab/shelfgrab/internal/extract"
	"github.com/shelfgrab/shelfgrab/internal/fetch"
	"github.com/shelfgrab/shelfgrab/internal/scraper"
	"github.com/shelfgrab/shelfgrab/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "shelfgrab.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initScraper(st store.Store) *scraper.Scraper {
	opts := []fetch.Option{
		fetch.WithTimeout(time.Duration(cfg.Fetch.TimeoutSecs) * time.Second),
	}
	if cfg.Fetch.UserAgent != "" {
		opts = append(opts, fetch.WithUserAgent(cfg.Fetch.UserAgent))
	}
	return scraper.New(st, fetch.New(opts...), extract.Default())
}

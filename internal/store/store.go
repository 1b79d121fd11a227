// Package store persists groups and books behind a backend-agnostic
// interface. Two backends exist: sqlite (default) and postgres.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/shelfgrab/shelfgrab/internal/model"
)

// ErrDuplicateGroupName is returned by SaveGroup when the normalized name is
// already taken. Name uniqueness is enforced at this layer regardless of any
// caller-side pre-check.
var ErrDuplicateGroupName = eris.New("store: group name already exists")

// Store is the persistence gateway the scrape pipeline writes through.
// Lookups return (nil, nil) for absent records. Every write is atomic for
// the record it touches; no transaction spans a whole scrape batch.
type Store interface {
	// Groups
	SaveGroup(ctx context.Context, g model.Group) (*model.Group, error)
	FindGroupByName(ctx context.Context, name string) (*model.Group, error)
	GetGroup(ctx context.Context, id string) (*model.Group, error)
	ListGroups(ctx context.Context, page, limit int) ([]model.Group, error)
	CountGroups(ctx context.Context) (int, error)
	DeleteGroup(ctx context.Context, id string) (bool, error)

	// Books
	SaveBook(ctx context.Context, b model.Book) (*model.Book, error)
	ListBooksByGroup(ctx context.Context, groupID string, page, limit int) ([]model.Book, error)
	CountBooksInGroup(ctx context.Context, groupID string) (int, error)
	DeleteBook(ctx context.Context, id string) (bool, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// pageOffset converts 1-based page/limit into limit and offset, clamping
// bad input to the first page.
func pageOffset(page, limit int) (int, int) {
	if limit <= 0 {
		limit = 10
	}
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}

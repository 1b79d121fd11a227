package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/shelfgrab/shelfgrab/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it,
// which keeps the postgres store unit-testable without a server.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS book_groups (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	books_count INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS books (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	edition    TEXT,
	image_url  TEXT,
	source_url TEXT NOT NULL,
	group_id   TEXT NOT NULL REFERENCES book_groups(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_books_group_id ON books(group_id);
CREATE INDEX IF NOT EXISTS idx_books_created_at ON books(created_at);
CREATE INDEX IF NOT EXISTS idx_book_groups_created_at ON book_groups(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *PostgresStore) SaveGroup(ctx context.Context, g model.Group) (*model.Group, error) {
	g.ID = uuid.New().String()
	g.CreatedAt = time.Now().UTC()
	g.UpdatedAt = g.CreatedAt
	g.BookCount = 0

	_, err := s.pool.Exec(ctx,
		`INSERT INTO book_groups (id, name, books_count, created_at, updated_at) VALUES ($1, $2, 0, $3, $4)`,
		g.ID, g.Name, g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateGroupName
		}
		return nil, eris.Wrap(err, "postgres: insert group")
	}
	return &g, nil
}

func (s *PostgresStore) FindGroupByName(ctx context.Context, name string) (*model.Group, error) {
	return scanGroupRow(s.pool.QueryRow(ctx,
		`SELECT id, name, books_count, created_at, updated_at FROM book_groups WHERE name = $1`, name))
}

func (s *PostgresStore) GetGroup(ctx context.Context, id string) (*model.Group, error) {
	return scanGroupRow(s.pool.QueryRow(ctx,
		`SELECT id, name, books_count, created_at, updated_at FROM book_groups WHERE id = $1`, id))
}

func scanGroupRow(row pgx.Row) (*model.Group, error) {
	var g model.Group
	if err := row.Scan(&g.ID, &g.Name, &g.BookCount, &g.CreatedAt, &g.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: scan group")
	}
	return &g, nil
}

func (s *PostgresStore) ListGroups(ctx context.Context, page, limit int) ([]model.Group, error) {
	limit, offset := pageOffset(page, limit)

	rows, err := s.pool.Query(ctx,
		`SELECT id, name, books_count, created_at, updated_at
		 FROM book_groups ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list groups")
	}
	defer rows.Close()

	groups := make([]model.Group, 0, limit)
	for rows.Next() {
		var g model.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.BookCount, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan group row")
		}
		groups = append(groups, g)
	}
	return groups, eris.Wrap(rows.Err(), "postgres: list groups iterate")
}

func (s *PostgresStore) CountGroups(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM book_groups`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count groups")
}

// DeleteGroup removes an empty group. Groups that still hold books are left
// untouched; no cascade semantics exist.
func (s *PostgresStore) DeleteGroup(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM book_groups WHERE id = $1 AND NOT EXISTS (SELECT 1 FROM books WHERE group_id = $1)`,
		id,
	)
	if err != nil {
		return false, eris.Wrap(err, "postgres: delete group")
	}
	return tag.RowsAffected() > 0, nil
}

// SaveBook inserts the book and bumps the owning group's derived count in
// one transaction.
func (s *PostgresStore) SaveBook(ctx context.Context, b model.Book) (*model.Book, error) {
	b.ID = uuid.New().String()
	b.CreatedAt = time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO books (id, title, edition, image_url, source_url, group_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.ID, b.Title, b.Edition, b.ImageURL, b.SourceURL, b.GroupID, b.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert book")
	}

	tag, err := tx.Exec(ctx,
		`UPDATE book_groups SET books_count = books_count + 1, updated_at = $1 WHERE id = $2`,
		b.CreatedAt, b.GroupID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: bump group count")
	}
	if tag.RowsAffected() == 0 {
		return nil, eris.Errorf("postgres: group %s not found", b.GroupID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit book")
	}
	return &b, nil
}

func (s *PostgresStore) ListBooksByGroup(ctx context.Context, groupID string, page, limit int) ([]model.Book, error) {
	limit, offset := pageOffset(page, limit)

	rows, err := s.pool.Query(ctx,
		`SELECT id, title, edition, image_url, source_url, group_id, created_at
		 FROM books WHERE group_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		groupID, limit, offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list books")
	}
	defer rows.Close()

	books := make([]model.Book, 0, limit)
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Edition, &b.ImageURL, &b.SourceURL, &b.GroupID, &b.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan book row")
		}
		books = append(books, b)
	}
	return books, eris.Wrap(rows.Err(), "postgres: list books iterate")
}

func (s *PostgresStore) CountBooksInGroup(ctx context.Context, groupID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM books WHERE group_id = $1`, groupID).Scan(&n)
	return n, eris.Wrap(err, "postgres: count books")
}

func (s *PostgresStore) DeleteBook(ctx context.Context, id string) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, eris.Wrap(err, "postgres: begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var groupID string
	err = tx.QueryRow(ctx, `SELECT group_id FROM books WHERE id = $1`, id).Scan(&groupID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrap(err, "postgres: find book")
	}

	if _, err := tx.Exec(ctx, `DELETE FROM books WHERE id = $1`, id); err != nil {
		return false, eris.Wrap(err, "postgres: delete book")
	}
	_, err = tx.Exec(ctx,
		`UPDATE book_groups SET books_count = books_count - 1, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), groupID,
	)
	if err != nil {
		return false, eris.Wrap(err, "postgres: drop group count")
	}

	if err := tx.Commit(ctx); err != nil {
		return false, eris.Wrap(err, "postgres: commit delete")
	}
	return true, nil
}

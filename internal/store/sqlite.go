package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/shelfgrab/shelfgrab/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Timestamps are stored as unix nanoseconds so that newest-first ordering is
// exact even within a single scrape batch.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS book_groups (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	books_count INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS books (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	edition    TEXT,
	image_url  TEXT,
	source_url TEXT NOT NULL,
	group_id   TEXT NOT NULL REFERENCES book_groups(id),
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_books_group_id ON books(group_id);
CREATE INDEX IF NOT EXISTS idx_books_created_at ON books(created_at);
CREATE INDEX IF NOT EXISTS idx_book_groups_created_at ON book_groups(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveGroup(ctx context.Context, g model.Group) (*model.Group, error) {
	g.ID = uuid.New().String()
	g.CreatedAt = time.Now().UTC()
	g.UpdatedAt = g.CreatedAt
	g.BookCount = 0

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO book_groups (id, name, books_count, created_at, updated_at) VALUES (?, ?, 0, ?, ?)`,
		g.ID, g.Name, g.CreatedAt.UnixNano(), g.UpdatedAt.UnixNano(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicateGroupName
		}
		return nil, eris.Wrap(err, "sqlite: insert group")
	}
	return &g, nil
}

func (s *SQLiteStore) FindGroupByName(ctx context.Context, name string) (*model.Group, error) {
	return s.scanGroup(s.db.QueryRowContext(ctx,
		`SELECT id, name, books_count, created_at, updated_at FROM book_groups WHERE name = ?`, name))
}

func (s *SQLiteStore) GetGroup(ctx context.Context, id string) (*model.Group, error) {
	return s.scanGroup(s.db.QueryRowContext(ctx,
		`SELECT id, name, books_count, created_at, updated_at FROM book_groups WHERE id = ?`, id))
}

func (s *SQLiteStore) scanGroup(row *sql.Row) (*model.Group, error) {
	var (
		g                    model.Group
		createdNS, updatedNS int64
	)
	if err := row.Scan(&g.ID, &g.Name, &g.BookCount, &createdNS, &updatedNS); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: scan group")
	}
	g.CreatedAt = time.Unix(0, createdNS).UTC()
	g.UpdatedAt = time.Unix(0, updatedNS).UTC()
	return &g, nil
}

func (s *SQLiteStore) ListGroups(ctx context.Context, page, limit int) ([]model.Group, error) {
	limit, offset := pageOffset(page, limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, books_count, created_at, updated_at
		 FROM book_groups ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list groups")
	}
	defer rows.Close()

	groups := make([]model.Group, 0, limit)
	for rows.Next() {
		var (
			g                    model.Group
			createdNS, updatedNS int64
		)
		if err := rows.Scan(&g.ID, &g.Name, &g.BookCount, &createdNS, &updatedNS); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan group row")
		}
		g.CreatedAt = time.Unix(0, createdNS).UTC()
		g.UpdatedAt = time.Unix(0, updatedNS).UTC()
		groups = append(groups, g)
	}
	return groups, eris.Wrap(rows.Err(), "sqlite: list groups iterate")
}

func (s *SQLiteStore) CountGroups(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM book_groups`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count groups")
}

// DeleteGroup removes an empty group. Groups that still hold books are left
// untouched; no cascade semantics exist.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM book_groups WHERE id = ? AND NOT EXISTS (SELECT 1 FROM books WHERE group_id = ?)`,
		id, id,
	)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: delete group")
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// SaveBook inserts the book and bumps the owning group's derived count in
// one transaction.
func (s *SQLiteStore) SaveBook(ctx context.Context, b model.Book) (*model.Book, error) {
	b.ID = uuid.New().String()
	b.CreatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO books (id, title, edition, image_url, source_url, group_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Title, b.Edition, b.ImageURL, b.SourceURL, b.GroupID, b.CreatedAt.UnixNano(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert book")
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE book_groups SET books_count = books_count + 1, updated_at = ? WHERE id = ?`,
		b.CreatedAt.UnixNano(), b.GroupID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: bump group count")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, eris.Errorf("sqlite: group %s not found", b.GroupID)
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit book")
	}
	return &b, nil
}

func (s *SQLiteStore) ListBooksByGroup(ctx context.Context, groupID string, page, limit int) ([]model.Book, error) {
	limit, offset := pageOffset(page, limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, edition, image_url, source_url, group_id, created_at
		 FROM books WHERE group_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		groupID, limit, offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list books")
	}
	defer rows.Close()

	books := make([]model.Book, 0, limit)
	for rows.Next() {
		var (
			b         model.Book
			createdNS int64
		)
		if err := rows.Scan(&b.ID, &b.Title, &b.Edition, &b.ImageURL, &b.SourceURL, &b.GroupID, &createdNS); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan book row")
		}
		b.CreatedAt = time.Unix(0, createdNS).UTC()
		books = append(books, b)
	}
	return books, eris.Wrap(rows.Err(), "sqlite: list books iterate")
}

func (s *SQLiteStore) CountBooksInGroup(ctx context.Context, groupID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books WHERE group_id = ?`, groupID).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count books")
}

func (s *SQLiteStore) DeleteBook(ctx context.Context, id string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	var groupID string
	err = tx.QueryRowContext(ctx, `SELECT group_id FROM books WHERE id = ?`, id).Scan(&groupID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrap(err, "sqlite: find book")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id); err != nil {
		return false, eris.Wrap(err, "sqlite: delete book")
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE book_groups SET books_count = books_count - 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC().UnixNano(), groupID,
	)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: drop group count")
	}

	if err := tx.Commit(); err != nil {
		return false, eris.Wrap(err, "sqlite: commit delete")
	}
	return true, nil
}

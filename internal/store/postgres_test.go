package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfgrab/shelfgrab/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return &PostgresStore{pool: mock}, mock
}

func TestPostgresStore_SaveGroup(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO book_groups`).
		WithArgs(pgxmock.AnyArg(), "Go Books", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	g, err := s.SaveGroup(context.Background(), model.Group{Name: "Go Books"})
	require.NoError(t, err)
	assert.NotEmpty(t, g.ID)
	assert.Equal(t, "Go Books", g.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveGroup_UniqueViolation(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO book_groups`).
		WithArgs(pgxmock.AnyArg(), "Go Books", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := s.SaveGroup(context.Background(), model.Group{Name: "Go Books"})
	assert.ErrorIs(t, err, ErrDuplicateGroupName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindGroupByName_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, name, books_count, created_at, updated_at FROM book_groups WHERE name = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	g, err := s.FindGroupByName(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, g)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetGroup(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, name, books_count, created_at, updated_at FROM book_groups WHERE id = \$1`).
		WithArgs("g1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "books_count", "created_at", "updated_at"}).
			AddRow("g1", "Go Books", 3, now, now))

	g, err := s.GetGroup(context.Background(), "g1")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, "Go Books", g.Name)
	assert.Equal(t, 3, g.BookCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveBook_TransactionalCountBump(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO books`).
		WithArgs(pgxmock.AnyArg(), "Clean Code", pgxmock.AnyArg(), pgxmock.AnyArg(), "https://site.test/cc", "g1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE book_groups SET books_count = books_count \+ 1`).
		WithArgs(pgxmock.AnyArg(), "g1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	b, err := s.SaveBook(context.Background(), model.Book{
		Title:     "Clean Code",
		SourceURL: "https://site.test/cc",
		GroupID:   "g1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveBook_UnknownGroupRollsBack(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO books`).
		WithArgs(pgxmock.AnyArg(), "Orphan", pgxmock.AnyArg(), pgxmock.AnyArg(), "https://site.test/o", "missing", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE book_groups SET books_count = books_count \+ 1`).
		WithArgs(pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	_, err := s.SaveBook(context.Background(), model.Book{
		Title:     "Orphan",
		SourceURL: "https://site.test/o",
		GroupID:   "missing",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListGroups(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, name, books_count, created_at, updated_at\s+FROM book_groups ORDER BY created_at DESC LIMIT \$1 OFFSET \$2`).
		WithArgs(10, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "books_count", "created_at", "updated_at"}).
			AddRow("g2", "newer", 0, now, now).
			AddRow("g1", "older", 2, now.Add(-time.Hour), now.Add(-time.Hour)))

	groups, err := s.ListGroups(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "newer", groups[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountBooksInGroup(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM books WHERE group_id = \$1`).
		WithArgs("g1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	n, err := s.CountBooksInGroup(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

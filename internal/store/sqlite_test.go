package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfgrab/shelfgrab/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func mustSaveGroup(t *testing.T, st *SQLiteStore, name string) *model.Group {
	t.Helper()
	g, err := st.SaveGroup(context.Background(), model.Group{Name: name})
	require.NoError(t, err)
	// Listing orders by creation time; keep successive saves distinguishable.
	time.Sleep(time.Millisecond)
	return g
}

func mustSaveBook(t *testing.T, st *SQLiteStore, groupID, title string) *model.Book {
	t.Helper()
	b, err := st.SaveBook(context.Background(), model.Book{
		Title:     title,
		SourceURL: "https://site.test/" + title,
		GroupID:   groupID,
	})
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	return b
}

func TestSQLite_SaveGroup_AssignsIdentity(t *testing.T) {
	st := newTestSQLiteStore(t)

	g := mustSaveGroup(t, st, "Go Books")
	assert.NotEmpty(t, g.ID)
	assert.Equal(t, "Go Books", g.Name)
	assert.Zero(t, g.BookCount)
	assert.False(t, g.CreatedAt.IsZero())
}

func TestSQLite_SaveGroup_DuplicateName(t *testing.T) {
	st := newTestSQLiteStore(t)

	mustSaveGroup(t, st, "Go Books")
	_, err := st.SaveGroup(context.Background(), model.Group{Name: "Go Books"})
	assert.ErrorIs(t, err, ErrDuplicateGroupName)
}

func TestSQLite_SaveGroup_NameIsCaseSensitive(t *testing.T) {
	st := newTestSQLiteStore(t)

	mustSaveGroup(t, st, "Go Books")
	_, err := st.SaveGroup(context.Background(), model.Group{Name: "go books"})
	assert.NoError(t, err)
}

func TestSQLite_FindGroupByName(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	saved := mustSaveGroup(t, st, "Rust Books")

	found, err := st.FindGroupByName(ctx, "Rust Books")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, saved.ID, found.ID)

	missing, err := st.FindGroupByName(ctx, "No Such Group")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLite_SaveBook_BumpsGroupCount(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	g := mustSaveGroup(t, st, "Counted")
	b := mustSaveBook(t, st, g.ID, "first")
	assert.NotEmpty(t, b.ID)
	mustSaveBook(t, st, g.ID, "second")

	got, err := st.GetGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.BookCount)

	n, err := st.CountBooksInGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSQLite_SaveBook_UnknownGroup(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.SaveBook(context.Background(), model.Book{
		Title:     "orphan",
		SourceURL: "https://site.test/orphan",
		GroupID:   "missing",
	})
	assert.Error(t, err)
}

func TestSQLite_SaveBook_OptionalFieldsRoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	g := mustSaveGroup(t, st, "Optional")
	edition := "2nd edition"
	img := "https://cdn.test/x.png"
	_, err := st.SaveBook(ctx, model.Book{
		Title:     "with extras",
		Edition:   &edition,
		ImageURL:  &img,
		SourceURL: "https://site.test/x",
		GroupID:   g.ID,
	})
	require.NoError(t, err)

	books, err := st.ListBooksByGroup(ctx, g.ID, 1, 20)
	require.NoError(t, err)
	require.Len(t, books, 1)
	require.NotNil(t, books[0].Edition)
	assert.Equal(t, edition, *books[0].Edition)
	require.NotNil(t, books[0].ImageURL)
	assert.Equal(t, img, *books[0].ImageURL)

	// Absent optionals come back nil, not empty.
	mustSaveBook(t, st, g.ID, "bare")
	books, err = st.ListBooksByGroup(ctx, g.ID, 1, 20)
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Nil(t, books[0].Edition)
	assert.Nil(t, books[0].ImageURL)
}

func TestSQLite_ListGroups_NewestFirstPaged(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	mustSaveGroup(t, st, "oldest")
	middle := mustSaveGroup(t, st, "middle")
	mustSaveGroup(t, st, "newest")

	page, err := st.ListGroups(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, middle.ID, page[0].ID)

	all, err := st.ListGroups(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "newest", all[0].Name)
	assert.Equal(t, "oldest", all[2].Name)

	total, err := st.CountGroups(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestSQLite_ListBooksByGroup_NewestFirst(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	g := mustSaveGroup(t, st, "Ordered")
	mustSaveBook(t, st, g.ID, "a")
	mustSaveBook(t, st, g.ID, "b")
	mustSaveBook(t, st, g.ID, "c")

	books, err := st.ListBooksByGroup(ctx, g.ID, 1, 2)
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "c", books[0].Title)
	assert.Equal(t, "b", books[1].Title)

	books, err = st.ListBooksByGroup(ctx, g.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "a", books[0].Title)
}

func TestSQLite_DeleteBook_DropsCount(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	g := mustSaveGroup(t, st, "Shrinking")
	b := mustSaveBook(t, st, g.ID, "doomed")

	ok, err := st.DeleteBook(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := st.GetGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Zero(t, got.BookCount)

	ok, err = st.DeleteBook(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLite_DeleteGroup_NoCascade(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	g := mustSaveGroup(t, st, "Occupied")
	mustSaveBook(t, st, g.ID, "keeper")

	// A group with books stays; deletion does not cascade.
	ok, err := st.DeleteGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	empty := mustSaveGroup(t, st, "Empty")
	ok, err = st.DeleteGroup(ctx, empty.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

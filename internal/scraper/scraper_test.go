package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfgrab/shelfgrab/internal/extract"
	"github.com/shelfgrab/shelfgrab/internal/fetch"
	"github.com/shelfgrab/shelfgrab/internal/model"
	"github.com/shelfgrab/shelfgrab/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "scraper.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

type stubFetcher struct {
	html string
	err  error
}

func (f *stubFetcher) Get(_ context.Context, _ string) (string, error) {
	return f.html, f.err
}

type stubExtractor struct {
	candidates []extract.Candidate
	err        error
}

func (e *stubExtractor) Extract(_ string, _ string) ([]extract.Candidate, error) {
	return e.candidates, e.err
}

func TestRun_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>
<div class="book-item"><h2>Title A</h2><img src="/a.png"><a href="/books/a">more</a></div>
<div class="book-item"><h2>Title B</h2></div>
</body></html>`))
	}))
	defer srv.Close()

	st := newTestStore(t)
	s := New(st, fetch.New(), extract.Default())

	res, err := s.Run(context.Background(), srv.URL, "Novels")
	require.NoError(t, err)
	assert.Equal(t, "Novels", res.GroupName)
	assert.Equal(t, 2, res.BooksFound)
	assert.Equal(t, 2, res.BooksScraped)
	assert.NotEmpty(t, res.GroupID)

	books, err := st.ListBooksByGroup(context.Background(), res.GroupID, 1, 20)
	require.NoError(t, err)
	require.Len(t, books, 2)
	// Newest first: Title B was persisted last.
	assert.Equal(t, "Title B", books[0].Title)
	require.NotNil(t, books[1].ImageURL)
	assert.Equal(t, srv.URL+"/a.png", *books[1].ImageURL)
	assert.Equal(t, srv.URL+"/books/a", books[1].SourceURL)
	// No anchor in the second container: source falls back to the page URL.
	assert.Equal(t, srv.URL, books[0].SourceURL)
}

func TestRun_BlankGroupName(t *testing.T) {
	s := New(newTestStore(t), &stubFetcher{}, &stubExtractor{})

	_, err := s.Run(context.Background(), "https://site.test", "   ")
	require.Error(t, err)
	var ve *model.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestRun_BadURL(t *testing.T) {
	s := New(newTestStore(t), &stubFetcher{}, &stubExtractor{})

	_, err := s.Run(context.Background(), "ftp://site.test", "Group")
	require.Error(t, err)
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "url", ve.Field)
}

func TestRun_GroupExists_NoFetchNoBooks(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	st := newTestStore(t)
	_, err := st.SaveGroup(context.Background(), model.Group{Name: "Taken"})
	require.NoError(t, err)

	s := New(st, fetch.New(), extract.Default())
	_, err = s.Run(context.Background(), srv.URL, "Taken")
	assert.ErrorIs(t, err, ErrGroupExists)
	assert.Zero(t, hits.Load())

	// Normalization applies before the uniqueness check.
	_, err = s.Run(context.Background(), srv.URL, "  Taken \n")
	assert.ErrorIs(t, err, ErrGroupExists)
	assert.Zero(t, hits.Load())
}

func TestRun_FetchFailureKeepsEmptyGroup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	st := newTestStore(t)
	s := New(st, fetch.New(), extract.Default())

	_, err := s.Run(context.Background(), srv.URL, "Doomed")
	require.Error(t, err)
	var fe *FetchError
	assert.ErrorAs(t, err, &fe)

	// The group created before the fetch stays persisted, empty.
	g, err := st.FindGroupByName(context.Background(), "Doomed")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Zero(t, g.BookCount)
}

func TestRun_InvalidCandidateSkippedNotFatal(t *testing.T) {
	st := newTestStore(t)
	s := New(st, &stubFetcher{html: "<html></html>"}, &stubExtractor{
		candidates: []extract.Candidate{
			{Title: "Good One", SourceURL: "https://site.test/1"},
			{Title: "   ", SourceURL: "https://site.test/2"},
			{Title: "Good Two", SourceURL: "https://site.test/3"},
		},
	})

	res, err := s.Run(context.Background(), "https://site.test/page", "Partial")
	require.NoError(t, err)
	assert.Equal(t, 3, res.BooksFound)
	assert.Equal(t, 2, res.BooksScraped)
}

func TestRun_MissingSourceURLFallsBackToPage(t *testing.T) {
	st := newTestStore(t)
	s := New(st, &stubFetcher{html: "<html></html>"}, &stubExtractor{
		candidates: []extract.Candidate{{Title: "No Link"}},
	})

	res, err := s.Run(context.Background(), "https://site.test/page", "Linked")
	require.NoError(t, err)
	assert.Equal(t, 1, res.BooksScraped)

	books, err := st.ListBooksByGroup(context.Background(), res.GroupID, 1, 20)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "https://site.test/page", books[0].SourceURL)
}

func TestRun_ExtractorErrorMeansZeroCandidates(t *testing.T) {
	st := newTestStore(t)
	s := New(st, &stubFetcher{html: "garbage"}, &stubExtractor{err: eris.New("boom")})

	res, err := s.Run(context.Background(), "https://site.test/page", "Degraded")
	require.NoError(t, err)
	assert.Zero(t, res.BooksFound)
	assert.Zero(t, res.BooksScraped)

	g, err := st.FindGroupByName(context.Background(), "Degraded")
	require.NoError(t, err)
	require.NotNil(t, g)
}

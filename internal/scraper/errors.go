package scraper

import "github.com/rotisserie/eris"

// ErrGroupExists means the requested group name is already taken. The scrape
// stops before any fetching or extraction happens.
var ErrGroupExists = eris.New("scraper: group already exists")

// FetchError wraps a failure to retrieve the page: network fault, timeout or
// a non-2xx response. The already-created empty group is left in place.
type FetchError struct {
	cause error
}

// NewFetchError wraps cause as a FetchError.
func NewFetchError(cause error) *FetchError { return &FetchError{cause: cause} }

func (e *FetchError) Error() string { return "scraper: fetch failed: " + e.cause.Error() }
func (e *FetchError) Unwrap() error { return e.cause }

// StoreError wraps a storage-layer fault on the group write path. Per-book
// storage faults never surface here; they only reduce the persisted count.
type StoreError struct {
	cause error
}

// NewStoreError wraps cause as a StoreError.
func NewStoreError(cause error) *StoreError { return &StoreError{cause: cause} }

func (e *StoreError) Error() string { return "scraper: store failed: " + e.cause.Error() }
func (e *StoreError) Unwrap() error { return e.cause }

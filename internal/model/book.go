package model

import "time"

// Book is a single scraped listing. Edition and ImageURL are optional and
// stay nil when the page offered nothing usable; SourceURL always points at
// an absolute http(s) location.
type Book struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Edition   *string   `json:"edition"`
	ImageURL  *string   `json:"imageUrl"`
	SourceURL string    `json:"sourceUrl"`
	GroupID   string    `json:"groupId"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewBook validates every field and returns a Book without an ID. A failing
// required field (title, source URL) or a present-but-malformed image URL
// rejects the whole record.
func NewBook(title, edition, imageURL, sourceURL, groupID string) (Book, error) {
	t, err := NewTitle(title)
	if err != nil {
		return Book{}, err
	}

	src, err := ParseURL("sourceUrl", sourceURL)
	if err != nil {
		return Book{}, err
	}

	img, err := ParseOptionalURL("imageUrl", imageURL)
	if err != nil {
		return Book{}, err
	}

	return Book{
		Title:     t,
		Edition:   NewEdition(edition),
		ImageURL:  img,
		SourceURL: src,
		GroupID:   groupID,
	}, nil
}

// Package model holds the domain records and their construction-time
// validation rules.
package model

import "time"

// Group is a named collection of scraped books, unique by name.
// BookCount is derived: the store maintains it on every book insert.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	BookCount int       `json:"bookCount"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewGroup validates and normalizes the name and returns a Group without an
// ID. Identity is assigned by the store at insert time.
func NewGroup(name string) (Group, error) {
	n, err := NewGroupName(name)
	if err != nil {
		return Group{}, err
	}
	return Group{Name: n}, nil
}

package models

import (
	"time"
)

// Book is a single entry of a user's embedded book list
type Book struct {
	ID          string    `bson:"id,omitempty" json:"id,omitempty"`
	Title       string    `bson:"title" json:"title"`
	Author      string    `bson:"author" json:"author"`
	PublishYear int       `bson:"publishYear" json:"publishYear"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Image       []byte    `bson:"image,omitempty" json:"image,omitempty"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// User is the per-account document that owns the book list
type User struct {
	Email string `bson:"email" json:"email"`
	Books []Book `bson:"books" json:"books"`
}

// BookSelector addresses one element of a user's book list.
// ID wins when set; Title is the fallback for books stored without an ID.
type BookSelector struct {
	ID    string
	Title string
}

// Matches reports whether the book is addressed by the selector
func (s BookSelector) Matches(b Book) bool {
	if s.ID != "" {
		return b.ID == s.ID
	}
	return b.Title == s.Title
}

// SelectorFor addresses an already located book
func SelectorFor(b Book) BookSelector {
	return BookSelector{ID: b.ID, Title: b.Title}
}

// BookUpdate holds the values written by an in-place book update
type BookUpdate struct {
	Title       string
	Author      string
	PublishYear int
	Description string
	UpdatedAt   time.Time
}

// Apply writes the update into the book, leaving CreatedAt, ID and Image untouched
func (u BookUpdate) Apply(b *Book) {
	b.Title = u.Title
	b.Author = u.Author
	b.PublishYear = u.PublishYear
	b.Description = u.Description
	b.UpdatedAt = u.UpdatedAt
}

// MonthCount is one group of the books-by-month aggregation, Month is 1-12
type MonthCount struct {
	Month     int `bson:"_id" json:"month"`
	BookCount int `bson:"bookCount" json:"bookCount"`
}

// FindBook returns the index of the first book matching the selector, or -1
func FindBook(books []Book, sel BookSelector) int {
	for i, b := range books {
		if sel.Matches(b) {
			return i
		}
	}
	return -1
}

// CountByMonth groups books created in [from, to) by UTC month of creation
func CountByMonth(books []Book, from, to time.Time) []MonthCount {
	counts := make(map[int]int)
	for _, b := range books {
		created := b.CreatedAt.UTC()
		if created.Before(from) || !created.Before(to) {
			continue
		}
		counts[int(created.Month())]++
	}

	result := make([]MonthCount, 0, len(counts))
	for month, count := range counts {
		result = append(result, MonthCount{Month: month, BookCount: count})
	}
	return result
}

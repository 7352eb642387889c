package models

import (
	"time"
)

// UserDocument is the relational form of a User: one row per account,
// with the book list embedded in a JSON column
type UserDocument struct {
	UserID          uint64   `gorm:"primaryKey;autoIncrement"`
	Email           string   `gorm:"uniqueIndex;size:255;not null"`
	Books           BookList `gorm:"not null"`
	DocumentVersion uint64   `gorm:"not null;default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName overrides the table name for UserDocument
func (UserDocument) TableName() string {
	return "users"
}

// ToUser converts the row to the domain document
func (d UserDocument) ToUser() *User {
	books := []Book(d.Books)
	if books == nil {
		books = []Book{}
	}
	return &User{Email: d.Email, Books: books}
}

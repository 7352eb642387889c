// Package storage selects the persistence backend for the per-user book documents.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/localnerve/booksdb/internal/config"
	"github.com/localnerve/booksdb/internal/database"
	"github.com/localnerve/booksdb/internal/models"
	"github.com/localnerve/booksdb/internal/storage/mongodb"
	"github.com/localnerve/booksdb/internal/storage/stubs"
)

// Storage is the document store behind the book service. Every mutation is
// atomic per user document.
type Storage interface {
	// CreateUser inserts an empty document for email, a no-op when one exists
	CreateUser(ctx context.Context, email string) error
	// FindUser returns the document or types.ErrUserNotFound
	FindUser(ctx context.Context, email string) (*models.User, error)
	// PushBook appends to the user's list
	PushBook(ctx context.Context, email string, book models.Book) error
	// SetBook overwrites the first book matching sel
	SetBook(ctx context.Context, email string, sel models.BookSelector, update models.BookUpdate) error
	// PullBook removes the element addressed by the book
	PullBook(ctx context.Context, email string, book models.Book) error
	// CountBooksByMonth groups books created in [from, to) by month, empty groups omitted
	CountBooksByMonth(ctx context.Context, email string, from, to time.Time) ([]models.MonthCount, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open connects the backend named by cfg.DBType
func Open(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch cfg.DBType {
	case "mongodb":
		store, err := mongodb.Connect(ctx, mongodb.Options{
			URI:        cfg.MongoURI,
			Database:   cfg.MongoDatabase,
			Collection: cfg.MongoCollection,
			MaxPool:    uint64(cfg.DBConnectionLimit),
		})
		if err != nil {
			return nil, err
		}
		return store, nil

	case "memory":
		return stubs.NewMemoryStore(), nil

	default:
		db, err := database.Connect(cfg)
		if err != nil {
			return nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			_ = database.Close(db)
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		return database.NewBookStore(db), nil
	}
}

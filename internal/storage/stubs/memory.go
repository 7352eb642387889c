// Package stubs provides an in-process book store for tests and local runs.
package stubs

import (
	"context"
	"sync"
	"time"

	"github.com/localnerve/booksdb/internal/models"
	"github.com/localnerve/booksdb/internal/types"
)

// MemoryStore keeps user documents in a map guarded by one lock
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string][]models.Book
}

// NewMemoryStore returns an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string][]models.Book)}
}

func (m *MemoryStore) CreateUser(ctx context.Context, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[email]; !ok {
		m.users[email] = []models.Book{}
	}
	return nil
}

// FindUser returns a copy of the stored document
func (m *MemoryStore) FindUser(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	books, ok := m.users[email]
	if !ok {
		return nil, types.ErrUserNotFound
	}
	return &models.User{Email: email, Books: append([]models.Book{}, books...)}, nil
}

func (m *MemoryStore) PushBook(ctx context.Context, email string, book models.Book) error {
	return m.mutate(ctx, email, func(books []models.Book) ([]models.Book, error) {
		return append(books, book), nil
	})
}

func (m *MemoryStore) SetBook(ctx context.Context, email string, sel models.BookSelector, update models.BookUpdate) error {
	return m.mutate(ctx, email, func(books []models.Book) ([]models.Book, error) {
		idx := models.FindBook(books, sel)
		if idx == -1 {
			return nil, types.ErrBookNotFound
		}
		update.Apply(&books[idx])
		return books, nil
	})
}

func (m *MemoryStore) PullBook(ctx context.Context, email string, book models.Book) error {
	return m.mutate(ctx, email, func(books []models.Book) ([]models.Book, error) {
		idx := models.FindBook(books, models.SelectorFor(book))
		if idx == -1 {
			return nil, types.ErrBookNotFound
		}
		return append(books[:idx:idx], books[idx+1:]...), nil
	})
}

func (m *MemoryStore) CountBooksByMonth(ctx context.Context, email string, from, to time.Time) ([]models.MonthCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return models.CountByMonth(m.users[email], from, to), nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) mutate(ctx context.Context, email string, fn func([]models.Book) ([]models.Book, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	books, ok := m.users[email]
	if !ok {
		return types.ErrUserNotFound
	}
	next, err := fn(append([]models.Book{}, books...))
	if err != nil {
		return err
	}
	m.users[email] = next
	return nil
}

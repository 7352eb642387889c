// books.go
//
// A personal book tracking service with per-user book lists
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of booksdb.
// booksdb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// booksdb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with booksdb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package database

import (
	"context"
	"errors"
	"time"

	"github.com/localnerve/booksdb/internal/models"
	"github.com/localnerve/booksdb/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/hints"
)

// BookStore keeps each user's book list in a JSON column of the users table.
// Mutations are read-modify-write transactions guarded by a row lock and a
// document_version compare-and-swap.
type BookStore struct {
	db *gorm.DB
}

// NewBookStore wraps a connected and migrated gorm DB
func NewBookStore(db *gorm.DB) *BookStore {
	return &BookStore{db: db}
}

// emailIndex is the unique index gorm names for users.email
const emailIndex = "idx_users_email"

// byEmail scopes a query to one user row. MySQL may pick a full scan of the
// JSON rows under FOR UPDATE, so it is forced onto the email index.
func byEmail(email string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if db.Dialector.Name() == "mysql" {
			db = db.Clauses(hints.ForceIndex(emailIndex))
		}
		return db.Where("email = ?", email)
	}
}

func (s *BookStore) quiet(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Session(&gorm.Session{Logger: s.db.Logger.LogMode(logger.Silent)})
}

// CreateUser inserts an empty document for email unless one exists
func (s *BookStore) CreateUser(ctx context.Context, email string) error {
	doc := models.UserDocument{}
	return s.quiet(ctx).
		Where("email = ?", email).
		Attrs(models.UserDocument{Email: email, Books: models.BookList{}}).
		FirstOrCreate(&doc).Error
}

// FindUser loads the user document by email
func (s *BookStore) FindUser(ctx context.Context, email string) (*models.User, error) {
	var doc models.UserDocument
	err := s.quiet(ctx).
		Scopes(byEmail(email)).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrUserNotFound
		}
		return nil, err
	}
	return doc.ToUser(), nil
}

// PushBook appends a book to the user's list
func (s *BookStore) PushBook(ctx context.Context, email string, book models.Book) error {
	return s.mutate(ctx, email, func(books []models.Book) ([]models.Book, error) {
		return append(books, book), nil
	})
}

// SetBook overwrites the fields of the first book matching sel
func (s *BookStore) SetBook(ctx context.Context, email string, sel models.BookSelector, update models.BookUpdate) error {
	return s.mutate(ctx, email, func(books []models.Book) ([]models.Book, error) {
		idx := models.FindBook(books, sel)
		if idx == -1 {
			return nil, types.ErrBookNotFound
		}
		update.Apply(&books[idx])
		return books, nil
	})
}

// PullBook removes the first element addressed by the book's id, or by its title
// when it was stored without one
func (s *BookStore) PullBook(ctx context.Context, email string, book models.Book) error {
	return s.mutate(ctx, email, func(books []models.Book) ([]models.Book, error) {
		idx := models.FindBook(books, models.SelectorFor(book))
		if idx == -1 {
			return nil, types.ErrBookNotFound
		}
		return append(books[:idx], books[idx+1:]...), nil
	})
}

// CountBooksByMonth groups the user's books created in [from, to) by month.
// A missing user yields no groups.
func (s *BookStore) CountBooksByMonth(ctx context.Context, email string, from, to time.Time) ([]models.MonthCount, error) {
	user, err := s.FindUser(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return models.CountByMonth(user.Books, from, to), nil
}

// Ping checks the connection
func (s *BookStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the pool
func (s *BookStore) Close() error {
	return Close(s.db)
}

func (s *BookStore) mutate(ctx context.Context, email string, fn func([]models.Book) ([]models.Book, error)) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc models.UserDocument
		if err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Scopes(byEmail(email)).
			First(&doc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.ErrUserNotFound
			}
			return err
		}

		books, err := fn([]models.Book(doc.Books))
		if err != nil {
			return err
		}

		result := tx.Model(&models.UserDocument{}).
			Where("user_id = ? AND document_version = ?", doc.UserID, doc.DocumentVersion).
			Updates(map[string]interface{}{
				"books":            models.BookList(books),
				"document_version": doc.DocumentVersion + 1,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return types.ErrVersionConflict
		}
		return nil
	})
}

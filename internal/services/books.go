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

package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/localnerve/booksdb/internal/logging"
	"github.com/localnerve/booksdb/internal/models"
	"github.com/localnerve/booksdb/internal/storage"
	"github.com/localnerve/booksdb/internal/types"
	"github.com/localnerve/booksdb/internal/utils"
	"github.com/localnerve/booksdb/internal/validation"
)

const (
	msgMissingFields = "Please fill out missing fields."
	msgInvalidYear   = "Publish year must be a number."
	msgUserNotFound  = "User not found"
	msgBookNotFound  = "Book not found"
	msgNoRecord      = "No record"
	msgInternal      = "Internal Server Error"
)

// AddBookInput is the multipart add form
type AddBookInput struct {
	Email       string
	Title       string `validate:"required"`
	Author      string `validate:"required"`
	PublishYear string `validate:"required"`
	Description string
	Image       []byte
}

// UpdateBookInput is the update body. Empty title, author and zero year keep
// the stored values; description is always overwritten.
type UpdateBookInput struct {
	Email       string        `json:"email"`
	Title       string        `json:"title"`
	Author      string        `json:"author"`
	PublishYear types.FlexInt `json:"publishYear" swaggertype:"integer"`
	Description string        `json:"description"`
}

// BookView is the search projection, image rendered as a jpeg data URI
type BookView struct {
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	PublishYear int     `json:"publishYear"`
	Description string  `json:"description"`
	Image       *string `json:"image"`
}

// MonthBookCount is one entry of the books-by-month report
type MonthBookCount struct {
	Month     string `json:"month"`
	BookCount int    `json:"bookCount"`
}

// BooksByMonthResponse always carries twelve entries, January first
type BooksByMonthResponse struct {
	BooksByMonth []MonthBookCount `json:"booksByMonth"`
}

// BookService shapes requests and responses around the user book store
type BookService struct {
	store   storage.Storage
	timeout time.Duration
	now     func() time.Time
	newID   func() string
}

// NewBookService wraps store; every store call is bounded by timeout
func NewBookService(store storage.Storage, timeout time.Duration) *BookService {
	return &BookService{
		store:   store,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.New().String() },
	}
}

func (s *BookService) call(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *BookService) findUser(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := s.call(ctx)
	defer cancel()
	return s.store.FindUser(ctx, email)
}

func logStoreError(op, email string, err error) {
	logging.Error().Err(err).Str("op", op).Str("email", email).Msg("store call failed")
}

// RegisterUser creates the caller's empty document if it does not exist yet
func (s *BookService) RegisterUser(ctx context.Context, email string) utils.Result {
	ctx, cancel := s.call(ctx)
	defer cancel()
	if err := s.store.CreateUser(ctx, email); err != nil {
		logStoreError("create_user", email, err)
		return utils.Message(utils.OutcomeFailed, fmt.Sprintf("Error %v", err), false)
	}
	return utils.Message(utils.OutcomeCreated, fmt.Sprintf("Successfully registered %s", email), true)
}

// FetchBooks returns the user's whole book list
func (s *BookService) FetchBooks(ctx context.Context, email string) utils.Result {
	user, err := s.findUser(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			return utils.Message(utils.OutcomeNotFound, msgUserNotFound, false)
		}
		logStoreError("fetch_books", email, err)
		return utils.Message(utils.OutcomeFailed, fmt.Sprintf("Error %v", err), false)
	}
	books := user.Books
	if books == nil {
		books = []models.Book{}
	}
	return utils.Result{Outcome: utils.OutcomeOK, Body: books}
}

// SearchByTitle projects the first book whose title matches exactly
func (s *BookService) SearchByTitle(ctx context.Context, email, title string) utils.Result {
	user, err := s.findUser(ctx, email)
	if err != nil {
		outcome := utils.OutcomeFailed
		if errors.Is(err, types.ErrUserNotFound) {
			outcome = utils.OutcomeNotFound
		} else {
			logStoreError("search_by_title", email, err)
		}
		return utils.Result{Outcome: outcome, Body: utils.StatusMessage{Message: fmt.Sprintf("Error %v", err)}}
	}

	idx := models.FindBook(user.Books, models.BookSelector{Title: title})
	if idx == -1 {
		return utils.Result{Outcome: utils.OutcomeNotFound, Body: utils.StatusMessage{Message: msgNoRecord}}
	}
	return utils.Result{Outcome: utils.OutcomeOK, Body: viewOf(user.Books[idx])}
}

func viewOf(b models.Book) BookView {
	view := BookView{
		Title:       b.Title,
		Author:      b.Author,
		PublishYear: b.PublishYear,
		Description: b.Description,
	}
	if len(b.Image) > 0 {
		uri := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(b.Image)
		view.Image = &uri
	}
	return view
}

// AddBook appends a new book with a generated id
func (s *BookService) AddBook(ctx context.Context, in AddBookInput) utils.Result {
	// blank counts as missing; the stored values stay as sent
	check := in
	check.Title = strings.TrimSpace(in.Title)
	check.Author = strings.TrimSpace(in.Author)
	check.PublishYear = strings.TrimSpace(in.PublishYear)
	if err := validation.Struct(check); err != nil {
		logging.Debug().Strs("fields", validation.FailedFields(err)).Msg("add_book rejected")
		return utils.Message(utils.OutcomeInvalid, msgMissingFields, false)
	}

	year, err := strconv.Atoi(check.PublishYear)
	if err != nil {
		return utils.Message(utils.OutcomeInvalid, msgInvalidYear, false)
	}

	now := s.now()
	book := models.Book{
		ID:          s.newID(),
		Title:       in.Title,
		Author:      in.Author,
		PublishYear: year,
		Description: in.Description,
		Image:       in.Image,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	callCtx, cancel := s.call(ctx)
	defer cancel()
	if err := s.store.PushBook(callCtx, in.Email, book); err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			return utils.Message(utils.OutcomeNotFound, msgUserNotFound, false)
		}
		logStoreError("add_book", in.Email, err)
		return utils.Message(utils.OutcomeFailed, fmt.Sprintf("Error %v", err), false)
	}

	logging.Debug().Str("email", in.Email).Str("book_id", book.ID).Msg("book added")
	return utils.Message(utils.OutcomeCreated, fmt.Sprintf("Successfully added %s", book.Title), true)
}

// UpdateBook updates the first book titled title
func (s *BookService) UpdateBook(ctx context.Context, email, title string, in UpdateBookInput) utils.Result {
	notFound := fmt.Sprintf("Book with title '%s' not found for the user.", title)
	return s.update(ctx, email, models.BookSelector{Title: title}, notFound, in)
}

// UpdateBookByID updates the book with the given id
func (s *BookService) UpdateBookByID(ctx context.Context, email, id string, in UpdateBookInput) utils.Result {
	return s.update(ctx, email, models.BookSelector{ID: id}, msgBookNotFound, in)
}

func (s *BookService) update(ctx context.Context, email string, sel models.BookSelector, notFound string, in UpdateBookInput) utils.Result {
	user, err := s.findUser(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			return utils.Message(utils.OutcomeNotFound, msgUserNotFound, false)
		}
		logStoreError("update_book.find", email, err)
		return utils.Message(utils.OutcomeFailed, fmt.Sprintf("Error finding user: %v", err), false)
	}

	idx := models.FindBook(user.Books, sel)
	if idx == -1 {
		return utils.Message(utils.OutcomeNotFound, notFound, false)
	}
	current := user.Books[idx]

	update := models.BookUpdate{
		Title:       current.Title,
		Author:      current.Author,
		PublishYear: current.PublishYear,
		Description: in.Description,
		UpdatedAt:   s.now(),
	}
	if strings.TrimSpace(in.Title) != "" {
		update.Title = in.Title
	}
	if strings.TrimSpace(in.Author) != "" {
		update.Author = in.Author
	}
	if in.PublishYear != 0 {
		update.PublishYear = in.PublishYear.Int()
	}

	callCtx, cancel := s.call(ctx)
	defer cancel()
	if err := s.store.SetBook(callCtx, email, models.SelectorFor(current), update); err != nil {
		switch {
		case errors.Is(err, types.ErrBookNotFound), errors.Is(err, types.ErrUserNotFound):
			return utils.Message(utils.OutcomeNotFound, notFound, false)
		case errors.Is(err, types.ErrVersionConflict):
			return utils.Message(utils.OutcomeConflict, fmt.Sprintf("Error updating book: %v", err), false)
		}
		logStoreError("update_book.set", email, err)
		return utils.Message(utils.OutcomeFailed, fmt.Sprintf("Error updating book: %v", err), false)
	}

	return utils.Message(utils.OutcomeOK, fmt.Sprintf("Updated %s to %s", current.Title, update.Title), true)
}

// DeleteBook removes the first book titled title
func (s *BookService) DeleteBook(ctx context.Context, email, title string) utils.Result {
	return s.delete(ctx, email, models.BookSelector{Title: title})
}

// DeleteBookByID removes the book with the given id
func (s *BookService) DeleteBookByID(ctx context.Context, email, id string) utils.Result {
	return s.delete(ctx, email, models.BookSelector{ID: id})
}

func (s *BookService) delete(ctx context.Context, email string, sel models.BookSelector) utils.Result {
	user, err := s.findUser(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			return utils.Message(utils.OutcomeNotFound, msgBookNotFound, false)
		}
		logStoreError("delete_book.find", email, err)
		return utils.Message(utils.OutcomeFailed, "User not currently logged in", false)
	}

	idx := models.FindBook(user.Books, sel)
	if idx == -1 {
		return utils.Message(utils.OutcomeNotFound, msgBookNotFound, false)
	}
	book := user.Books[idx]

	callCtx, cancel := s.call(ctx)
	defer cancel()
	if err := s.store.PullBook(callCtx, email, book); err != nil {
		switch {
		case errors.Is(err, types.ErrBookNotFound), errors.Is(err, types.ErrUserNotFound):
			return utils.Message(utils.OutcomeNotFound, msgBookNotFound, false)
		case errors.Is(err, types.ErrVersionConflict):
			return utils.Message(utils.OutcomeConflict, "Error deleting a book", false)
		}
		logStoreError("delete_book.pull", email, err)
		return utils.Message(utils.OutcomeFailed, "Error deleting a book", false)
	}

	return utils.Message(utils.OutcomeOK, fmt.Sprintf("Successfully deleted a book with the title of %s", book.Title), true)
}

// GetBookByID returns the full stored book
func (s *BookService) GetBookByID(ctx context.Context, email, id string) utils.Result {
	user, err := s.findUser(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			return utils.Message(utils.OutcomeNotFound, msgUserNotFound, false)
		}
		logStoreError("get_book", email, err)
		return utils.Message(utils.OutcomeFailed, fmt.Sprintf("Error %v", err), false)
	}

	idx := models.FindBook(user.Books, models.BookSelector{ID: id})
	if idx == -1 {
		return utils.Message(utils.OutcomeNotFound, msgBookNotFound, false)
	}
	return utils.Result{Outcome: utils.OutcomeOK, Body: user.Books[idx]}
}

// BooksByMonth counts the books added in each month of the current UTC year
func (s *BookService) BooksByMonth(ctx context.Context, email string) utils.Result {
	year := s.now().Year()
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	callCtx, cancel := s.call(ctx)
	defer cancel()
	counts, err := s.store.CountBooksByMonth(callCtx, email, from, to)
	if err != nil {
		logStoreError("books_by_month", email, err)
		return utils.Result{Outcome: utils.OutcomeAggregateFailed, Body: utils.StatusMessage{Message: msgInternal}}
	}

	return utils.Result{Outcome: utils.OutcomeOK, Body: fillMonths(counts)}
}

func fillMonths(counts []models.MonthCount) BooksByMonthResponse {
	byMonth := make(map[int]int, len(counts))
	for _, c := range counts {
		byMonth[c.Month] += c.BookCount
	}

	out := BooksByMonthResponse{BooksByMonth: make([]MonthBookCount, 0, 12)}
	for m := time.January; m <= time.December; m++ {
		out.BooksByMonth = append(out.BooksByMonth, MonthBookCount{
			Month:     m.String()[:3],
			BookCount: byMonth[int(m)],
		})
	}
	return out
}

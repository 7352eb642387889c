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

package handlers

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/booksdb/internal/services"
	"github.com/localnerve/booksdb/internal/types"
	"github.com/localnerve/booksdb/internal/utils"
)

// BooksHandler handles the book routes
type BooksHandler struct {
	Service *services.BookService
}

func (h *BooksHandler) caller(c *fiber.Ctx) (string, *utils.Result) {
	email, res := bodyEmail(c)
	if res != nil {
		return "", res
	}
	return callerEmail(c, email)
}

// FetchBooks handles POST /get-book-user
// @Summary Fetch books
// @Description Return every book of the caller
// @Tags Books
// @Accept json
// @Produce json
// @Param X-Api-Version header string false "API version, 1.x selects the legacy status contract"
// @Param body body emailRequest false "Caller email, required without authentication"
// @Success 200 {array} models.Book
// @Failure 403 {object} utils.MessageResponse
// @Failure 404 {object} utils.MessageResponse
// @Failure 500 {object} utils.MessageResponse
// @Security CookieAuth
// @Router /get-book-user [post]
func (h *BooksHandler) FetchBooks(c *fiber.Ctx) error {
	email, res := h.caller(c)
	if res != nil {
		return utils.SendResult(c, *res)
	}
	return utils.SendResult(c, h.Service.FetchBooks(c.UserContext(), email))
}

// SearchByTitle handles POST /books-user/:title
// @Summary Search a book by title
// @Description Return the first book whose title matches exactly, image as a data URI
// @Tags Books
// @Accept json
// @Produce json
// @Param title path string true "Book title"
// @Param body body emailRequest false "Caller email, required without authentication"
// @Success 200 {object} services.BookView
// @Failure 404 {object} utils.StatusMessage
// @Security CookieAuth
// @Router /books-user/{title} [post]
func (h *BooksHandler) SearchByTitle(c *fiber.Ctx) error {
	email, res := h.caller(c)
	if res != nil {
		return utils.SendResult(c, *res)
	}
	return utils.SendResult(c, h.Service.SearchByTitle(c.UserContext(), email, pathParam(c, "title")))
}

// AddBook handles POST /add-book-user
// @Summary Add a book
// @Description Append a book to the caller's list
// @Tags Books
// @Accept multipart/form-data
// @Produce json
// @Param email formData string false "Caller email, required without authentication"
// @Param inputTitle formData string true "Title"
// @Param inputAuthor formData string true "Author"
// @Param inputPublishYear formData integer true "Publish year"
// @Param inputDescription formData string false "Description"
// @Param image formData file false "Cover image"
// @Success 201 {object} utils.MessageResponse
// @Failure 400 {object} utils.MessageResponse
// @Failure 403 {object} utils.MessageResponse
// @Failure 500 {object} utils.MessageResponse
// @Security CookieAuth
// @Router /add-book-user [post]
func (h *BooksHandler) AddBook(c *fiber.Ctx) error {
	email, res := callerEmail(c, c.FormValue("email"))
	if res != nil {
		return utils.SendResult(c, *res)
	}

	in := services.AddBookInput{
		Email:       email,
		Title:       c.FormValue("inputTitle"),
		Author:      c.FormValue("inputAuthor"),
		PublishYear: c.FormValue("inputPublishYear"),
		Description: c.FormValue("inputDescription"),
	}

	if fh, err := c.FormFile("image"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return utils.SendResult(c, utils.Message(utils.OutcomeInvalid, "Error reading image: "+err.Error(), false))
		}
		in.Image, err = io.ReadAll(f)
		f.Close()
		if err != nil {
			return utils.SendResult(c, utils.Message(utils.OutcomeInvalid, "Error reading image: "+err.Error(), false))
		}
	}

	return utils.SendResult(c, h.Service.AddBook(c.UserContext(), in))
}

func (h *BooksHandler) parseUpdate(c *fiber.Ctx) (services.UpdateBookInput, string, *utils.Result) {
	var in services.UpdateBookInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			msg := "Invalid request body"
			if errors.Is(err, types.ErrInvalidFlexInt) {
				msg = "Publish year must be a number."
			}
			r := utils.Message(utils.OutcomeInvalid, msg, false)
			return in, "", &r
		}
	}
	email, res := callerEmail(c, in.Email)
	return in, email, res
}

// UpdateBook handles PUT /update-book-user/:title
// @Summary Update a book by title
// @Description Update the first book with the given title. Empty fields keep stored values, description is always replaced.
// @Tags Books
// @Accept json
// @Produce json
// @Param title path string true "Current book title"
// @Param body body services.UpdateBookInput true "New values"
// @Success 200 {object} utils.MessageResponse
// @Failure 400 {object} utils.MessageResponse
// @Failure 404 {object} utils.MessageResponse
// @Failure 409 {object} utils.MessageResponse
// @Failure 500 {object} utils.MessageResponse
// @Security CookieAuth
// @Router /update-book-user/{title} [put]
func (h *BooksHandler) UpdateBook(c *fiber.Ctx) error {
	in, email, res := h.parseUpdate(c)
	if res != nil {
		return utils.SendResult(c, *res)
	}
	return utils.SendResult(c, h.Service.UpdateBook(c.UserContext(), email, pathParam(c, "title"), in))
}

// DeleteBook handles DELETE /delete-book-user/:title
// @Summary Delete a book by title
// @Description Remove the first book with the given title
// @Tags Books
// @Produce json
// @Param title path string true "Book title"
// @Success 200 {object} utils.MessageResponse
// @Failure 404 {object} utils.MessageResponse
// @Failure 500 {object} utils.MessageResponse
// @Security CookieAuth
// @Router /delete-book-user/{title} [delete]
func (h *BooksHandler) DeleteBook(c *fiber.Ctx) error {
	email, res := h.caller(c)
	if res != nil {
		return utils.SendResult(c, *res)
	}
	return utils.SendResult(c, h.Service.DeleteBook(c.UserContext(), email, pathParam(c, "title")))
}

// BooksByMonth handles POST /book-count-user
// @Summary Books added per month
// @Description Count the caller's books created in each month of the current year
// @Tags Books
// @Accept json
// @Produce json
// @Success 200 {object} services.BooksByMonthResponse
// @Failure 500 {object} utils.StatusMessage
// @Security CookieAuth
// @Router /book-count-user [post]
func (h *BooksHandler) BooksByMonth(c *fiber.Ctx) error {
	email, res := h.caller(c)
	if res != nil {
		return utils.SendResult(c, *res)
	}
	return utils.SendResult(c, h.Service.BooksByMonth(c.UserContext(), email))
}

// RegisterUser handles POST /api/users
// @Summary Create the caller's book list
// @Description Create an empty user document, a no-op when it exists
// @Tags Users
// @Accept json
// @Produce json
// @Success 201 {object} utils.MessageResponse
// @Failure 500 {object} utils.MessageResponse
// @Security CookieAuth
// @Router /api/users [post]
func (h *BooksHandler) RegisterUser(c *fiber.Ctx) error {
	email, res := h.caller(c)
	if res != nil {
		return utils.SendResult(c, *res)
	}
	return utils.SendResult(c, h.Service.RegisterUser(c.UserContext(), email))
}

// GetBook handles GET /api/books/:id
// @Summary Get a book by id
// @Tags Books
// @Produce json
// @Param id path string true "Book id"
// @Success 200 {object} models.Book
// @Failure 404 {object} utils.MessageResponse
// @Security CookieAuth
// @Router /api/books/{id} [get]
func (h *BooksHandler) GetBook(c *fiber.Ctx) error {
	email, res := callerEmail(c, c.Query("email"))
	if res != nil {
		return utils.SendResult(c, *res)
	}
	return utils.SendResult(c, h.Service.GetBookByID(c.UserContext(), email, pathParam(c, "id")))
}

// UpdateBookByID handles PUT /api/books/:id
// @Summary Update a book by id
// @Tags Books
// @Accept json
// @Produce json
// @Param id path string true "Book id"
// @Param body body services.UpdateBookInput true "New values"
// @Success 200 {object} utils.MessageResponse
// @Failure 400 {object} utils.MessageResponse
// @Failure 404 {object} utils.MessageResponse
// @Failure 409 {object} utils.MessageResponse
// @Security CookieAuth
// @Router /api/books/{id} [put]
func (h *BooksHandler) UpdateBookByID(c *fiber.Ctx) error {
	in, email, res := h.parseUpdate(c)
	if res != nil {
		return utils.SendResult(c, *res)
	}
	return utils.SendResult(c, h.Service.UpdateBookByID(c.UserContext(), email, pathParam(c, "id"), in))
}

// DeleteBookByID handles DELETE /api/books/:id
// @Summary Delete a book by id
// @Tags Books
// @Produce json
// @Param id path string true "Book id"
// @Success 200 {object} utils.MessageResponse
// @Failure 404 {object} utils.MessageResponse
// @Security CookieAuth
// @Router /api/books/{id} [delete]
func (h *BooksHandler) DeleteBookByID(c *fiber.Ctx) error {
	email, res := callerEmail(c, c.Query("email"))
	if res != nil {
		return utils.SendResult(c, *res)
	}
	return utils.SendResult(c, h.Service.DeleteBookByID(c.UserContext(), email, pathParam(c, "id")))
}

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/booksdb/internal/middleware"
)

// RegisterRoutes mounts the book routes. auth runs before every book route
// and may be nil when authentication is disabled.
func RegisterRoutes(router fiber.Router, books *BooksHandler, health *HealthHandler, auth fiber.Handler) {
	router.Get("/health", health.Health)

	chain := []fiber.Handler{middleware.VersionMiddleware()}
	if auth != nil {
		chain = append(chain, auth)
	}
	with := func(h fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, chain...), h)
	}

	// Legacy routes
	router.Post("/get-book-user", with(books.FetchBooks)...)
	router.Post("/books-user/:title", with(books.SearchByTitle)...)
	router.Post("/add-book-user", with(books.AddBook)...)
	router.Put("/update-book-user/:title", with(books.UpdateBook)...)
	router.Delete("/delete-book-user/:title", with(books.DeleteBook)...)
	router.Post("/book-count-user", with(books.BooksByMonth)...)

	// Identifier-addressed routes
	router.Post("/api/users", with(books.RegisterUser)...)
	router.Get("/api/books/:id", with(books.GetBook)...)
	router.Put("/api/books/:id", with(books.UpdateBookByID)...)
	router.Delete("/api/books/:id", with(books.DeleteBookByID)...)
}

// books_test.go
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

package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/booksdb/internal/config"
	"github.com/localnerve/booksdb/internal/handlers"
	"github.com/localnerve/booksdb/internal/middleware"
	"github.com/localnerve/booksdb/internal/models"
	"github.com/localnerve/booksdb/internal/services"
	"github.com/localnerve/booksdb/internal/storage/stubs"
	"github.com/localnerve/booksdb/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const email = "reader@example.com"

// setupApp mounts the routes over a memory store that already holds email.
// With jwtAuth the routes require a token signed with testutil.TestJWTSecret.
func setupApp(t *testing.T, jwtAuth bool) *fiber.App {
	t.Helper()
	store := stubs.NewMemoryStore()
	require.NoError(t, store.CreateUser(t.Context(), email))

	cfg := &config.Config{DBType: "memory", AuthMode: config.AuthModeNone, StoreTimeout: time.Second}
	var auth fiber.Handler
	if jwtAuth {
		cfg.AuthMode = config.AuthModeJWT
		auth = middleware.AuthUser(services.NewJWTVerifier(testutil.TestJWTSecret), "token")
	}

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	handlers.RegisterRoutes(app,
		&handlers.BooksHandler{Service: services.NewBookService(store, time.Second)},
		&handlers.HealthHandler{Config: cfg, Store: store},
		auth,
	)
	app.Use(handlers.NotFound)
	return app
}

func jsonRequest(method, target string, body interface{}) *http.Request {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func addRequest(t *testing.T, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if image != nil {
		part, err := w.CreateFormFile("image", "cover.jpg")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/add-book-user", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func do(t *testing.T, app *fiber.App, req *http.Request, version string) *http.Response {
	t.Helper()
	if version != "" {
		req.Header.Set("X-Api-Version", version)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestBookLifecycleLegacy(t *testing.T) {
	app := setupApp(t, false)
	image := []byte{0xff, 0xd8, 0xff, 0xe0, 0x01}

	resp := do(t, app, addRequest(t, map[string]string{
		"email":            email,
		"inputTitle":       "The Hobbit",
		"inputAuthor":      "J.R.R. Tolkien",
		"inputPublishYear": "1937",
		"inputDescription": "There and back again",
	}, image), "1.0")
	testutil.AssertMessage(t, resp, 200, "Successfully added The Hobbit")

	resp = do(t, app, jsonRequest("POST", "/get-book-user", map[string]string{"email": email}), "1.0")
	testutil.AssertStatus(t, resp, 200)
	var list []models.Book
	testutil.ParseJSON(t, resp, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "The Hobbit", list[0].Title)
	assert.Equal(t, 1937, list[0].PublishYear)
	assert.Equal(t, image, list[0].Image)
	assert.NotEmpty(t, list[0].ID)

	resp = do(t, app, jsonRequest("POST", "/books-user/The%20Hobbit", map[string]string{"email": email}), "1.0")
	testutil.AssertStatus(t, resp, 200)
	var view services.BookView
	testutil.ParseJSON(t, resp, &view)
	assert.Equal(t, "J.R.R. Tolkien", view.Author)
	require.NotNil(t, view.Image)
	assert.True(t, strings.HasPrefix(*view.Image, "data:image/jpeg;base64,"))

	resp = do(t, app, jsonRequest("POST", "/books-user/Missing", map[string]string{"email": email}), "1.0")
	testutil.AssertMessage(t, resp, 200, "No record")

	resp = do(t, app, jsonRequest("PUT", "/update-book-user/The%20Hobbit", map[string]interface{}{
		"email":       email,
		"title":       "The Hobbit, or There and Back Again",
		"publishYear": "1938",
	}), "1.0")
	testutil.AssertMessage(t, resp, 200, "Updated The Hobbit to The Hobbit, or There and Back Again")

	resp = do(t, app, jsonRequest("PUT", "/update-book-user/Nope", map[string]interface{}{"email": email}), "1.0")
	testutil.AssertMessage(t, resp, 200, "Book with title 'Nope' not found for the user.")

	resp = do(t, app, jsonRequest("POST", "/book-count-user", map[string]string{"email": email}), "1.0")
	testutil.AssertStatus(t, resp, 200)
	var counts services.BooksByMonthResponse
	testutil.ParseJSON(t, resp, &counts)
	require.Len(t, counts.BooksByMonth, 12)
	total := 0
	for _, m := range counts.BooksByMonth {
		total += m.BookCount
	}
	assert.Equal(t, 1, total)

	target := "/delete-book-user/The%20Hobbit,%20or%20There%20and%20Back%20Again"
	resp = do(t, app, jsonRequest("DELETE", target, map[string]string{"email": email}), "1.0")
	testutil.AssertMessage(t, resp, 200, "Successfully deleted a book with the title of The Hobbit, or There and Back Again")

	resp = do(t, app, jsonRequest("DELETE", target, map[string]string{"email": email}), "1.0")
	testutil.AssertMessage(t, resp, 200, "Book not found")
}

func TestStatusCodesV2(t *testing.T) {
	app := setupApp(t, false)

	resp := do(t, app, addRequest(t, map[string]string{"email": email, "inputTitle": "Only a title"}, nil), "")
	testutil.AssertMessage(t, resp, 400, "Please fill out missing fields.")

	resp = do(t, app, addRequest(t, map[string]string{
		"email": email, "inputTitle": "Emma", "inputAuthor": "Jane Austen", "inputPublishYear": "eighteen",
	}, nil), "")
	testutil.AssertMessage(t, resp, 400, "Publish year must be a number.")

	resp = do(t, app, addRequest(t, map[string]string{
		"email": email, "inputTitle": "Emma", "inputAuthor": "Jane Austen", "inputPublishYear": "1815",
	}, nil), "2.0")
	testutil.AssertMessage(t, resp, 201, "Successfully added Emma")

	resp = do(t, app, jsonRequest("POST", "/get-book-user", map[string]string{"email": "nobody@example.com"}), "")
	testutil.AssertMessage(t, resp, 404, "User not found")

	resp = do(t, app, jsonRequest("POST", "/books-user/Persuasion", map[string]string{"email": email}), "")
	testutil.AssertMessage(t, resp, 404, "No record")

	resp = do(t, app, jsonRequest("PUT", "/update-book-user/Emma", map[string]interface{}{"email": email, "publishYear": "soon"}), "")
	testutil.AssertMessage(t, resp, 400, "Publish year must be a number.")

	resp = do(t, app, jsonRequest("DELETE", "/delete-book-user/Persuasion", map[string]string{"email": email}), "")
	testutil.AssertMessage(t, resp, 404, "Book not found")

	resp = do(t, app, jsonRequest("POST", "/get-book-user", nil), "")
	testutil.AssertMessage(t, resp, 400, "Email is required")
}

func TestLegacyMissingFieldsStays200(t *testing.T) {
	app := setupApp(t, false)
	resp := do(t, app, addRequest(t, map[string]string{"email": email}, nil), "1.0.0")
	testutil.AssertMessage(t, resp, 200, "Please fill out missing fields.")
}

func TestAuthenticatedRoutes(t *testing.T) {
	app := setupApp(t, true)
	token := testutil.SignToken(t, testutil.TestJWTSecret, email)

	// no credential
	resp := do(t, app, jsonRequest("POST", "/get-book-user", nil), "")
	testutil.AssertStatus(t, resp, 403)
	var envelope map[string]interface{}
	testutil.ParseJSON(t, resp, &envelope)
	assert.Equal(t, false, envelope["ok"])
	assert.Equal(t, "books.authorization.user", envelope["type"])

	// legacy clients are rejected with 403 as well
	resp = do(t, app, jsonRequest("POST", "/get-book-user", nil), "1.0")
	testutil.AssertStatus(t, resp, 403)

	// identity comes from the token, body email optional
	req := jsonRequest("POST", "/get-book-user", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp = do(t, app, req, "")
	testutil.AssertStatus(t, resp, 200)

	// cookie credential
	req = addRequest(t, map[string]string{"inputTitle": "Dune", "inputAuthor": "Frank Herbert", "inputPublishYear": "1965"}, nil)
	req.Header.Set("Cookie", "token="+token)
	resp = do(t, app, req, "")
	testutil.AssertMessage(t, resp, 201, "Successfully added Dune")

	// a body email naming someone else is refused
	req = jsonRequest("POST", "/get-book-user", map[string]string{"email": "victim@example.com"})
	req.Header.Set("Authorization", "Bearer "+token)
	resp = do(t, app, req, "")
	testutil.AssertMessage(t, resp, 403, "Email does not match the authenticated user")

	// matching case-insensitively is accepted
	req = jsonRequest("POST", "/get-book-user", map[string]string{"email": strings.ToUpper(email)})
	req.Header.Set("Authorization", "Bearer "+token)
	resp = do(t, app, req, "")
	testutil.AssertStatus(t, resp, 200)
	var list []models.Book
	testutil.ParseJSON(t, resp, &list)
	assert.Len(t, list, 1)
}

func TestBooksByID(t *testing.T) {
	app := setupApp(t, true)
	token := testutil.SignToken(t, testutil.TestJWTSecret, "new@example.com")
	authed := func(req *http.Request) *http.Request {
		req.Header.Set("Authorization", "Bearer "+token)
		return req
	}

	resp := do(t, app, authed(jsonRequest("POST", "/api/users", nil)), "")
	testutil.AssertMessage(t, resp, 201, "Successfully registered new@example.com")
	resp = do(t, app, authed(jsonRequest("POST", "/api/users", nil)), "")
	testutil.AssertStatus(t, resp, 201)

	for _, title := range []string{"Twin", "Twin"} {
		resp = do(t, app, authed(addRequest(t, map[string]string{
			"inputTitle": title, "inputAuthor": "A", "inputPublishYear": "2000",
		}, nil)), "")
		testutil.AssertStatus(t, resp, 201)
	}

	resp = do(t, app, authed(jsonRequest("POST", "/get-book-user", nil)), "")
	var list []models.Book
	testutil.ParseJSON(t, resp, &list)
	require.Len(t, list, 2)
	second := list[1].ID

	resp = do(t, app, authed(jsonRequest("PUT", "/api/books/"+second, map[string]interface{}{"title": "Second", "publishYear": 2001})), "")
	testutil.AssertMessage(t, resp, 200, "Updated Twin to Second")

	resp = do(t, app, authed(jsonRequest("GET", "/api/books/"+second, nil)), "")
	testutil.AssertStatus(t, resp, 200)
	var book models.Book
	testutil.ParseJSON(t, resp, &book)
	assert.Equal(t, "Second", book.Title)
	assert.Equal(t, 2001, book.PublishYear)

	resp = do(t, app, authed(jsonRequest("DELETE", "/api/books/"+second, nil)), "")
	testutil.AssertMessage(t, resp, 200, "Successfully deleted a book with the title of Second")

	resp = do(t, app, authed(jsonRequest("GET", "/api/books/"+second, nil)), "")
	testutil.AssertMessage(t, resp, 404, "Book not found")
}

func TestHealthAndNotFound(t *testing.T) {
	app := setupApp(t, true)

	resp := do(t, app, httptest.NewRequest("GET", "/health", nil), "")
	testutil.AssertStatus(t, resp, 200)
	var health services.HealthCheckResult
	testutil.ParseJSON(t, resp, &health)
	assert.Equal(t, "healthy", health.Status)

	resp = do(t, app, httptest.NewRequest("GET", "/nowhere", nil), "")
	testutil.AssertStatus(t, resp, 404)
}

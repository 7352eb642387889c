// common.go
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
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/booksdb/internal/logging"
	"github.com/localnerve/booksdb/internal/services"
	"github.com/localnerve/booksdb/internal/types"
	"github.com/localnerve/booksdb/internal/utils"
)

// emailRequest is the body of the routes that only identify the caller
type emailRequest struct {
	Email string `json:"email" form:"email"`
}

// ErrorHandler renders errors escaping the handlers in the error envelope
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	errorType := "unknown"

	var customErr *types.CustomError
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &customErr):
		code = customErr.Code
		message = customErr.Message
		errorType = customErr.Type
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
		message = fiberErr.Message
	}

	if code >= fiber.StatusInternalServerError {
		logging.Error().Err(err).Str("url", c.OriginalURL()).Msg("request failed")
	}

	return utils.ErrorResponse(c, message, code, errorType)
}

// NotFound is the fallthrough handler for unknown routes
func NotFound(c *fiber.Ctx) error {
	return utils.ErrorResponse(c, "[404] Resource Not Found", fiber.StatusNotFound, "route")
}

// callerEmail resolves whose books a request addresses. A verified identity
// wins; a body email must then agree with it. Without auth the body email is used.
func callerEmail(c *fiber.Ctx, bodyEmail string) (string, *utils.Result) {
	bodyEmail = strings.TrimSpace(bodyEmail)

	identity, _ := c.Locals("user").(*services.Identity)
	if identity == nil {
		if bodyEmail == "" {
			r := utils.Message(utils.OutcomeInvalid, "Email is required", false)
			return "", &r
		}
		return bodyEmail, nil
	}

	if bodyEmail != "" && !strings.EqualFold(bodyEmail, identity.Email) {
		logging.Warn().Str("email", bodyEmail).Str("identity", identity.Email).Msg("email does not match session")
		r := utils.Message(utils.OutcomeForbidden, "Email does not match the authenticated user", false)
		return "", &r
	}
	return identity.Email, nil
}

// bodyEmail reads an optional {email} body
func bodyEmail(c *fiber.Ctx) (string, *utils.Result) {
	if len(c.Body()) == 0 {
		return "", nil
	}
	var req emailRequest
	if err := c.BodyParser(&req); err != nil {
		r := utils.Message(utils.OutcomeInvalid, "Invalid request body", false)
		return "", &r
	}
	return req.Email, nil
}

// pathParam returns the URL-unescaped route parameter
func pathParam(c *fiber.Ctx, key string) string {
	raw := c.Params(key)
	if value, err := url.PathUnescape(raw); err == nil {
		return value
	}
	return raw
}

package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/booksdb/internal/services"
	"github.com/localnerve/booksdb/internal/types"
)

const authErrorType = "books.authorization.user"

// AuthUser verifies the caller credential, taken from cookieName or an
// Authorization bearer header, and stores the identity in locals "user"
func AuthUser(verifier services.IdentityVerifier, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		credential := c.Cookies(cookieName)
		if credential == "" {
			if header := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(header, "Bearer ") {
				credential = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			}
		}
		if credential == "" {
			return &types.CustomError{
				Code:    fiber.StatusForbidden,
				Message: fmt.Sprintf("Credential cookie \"%s\" not found", cookieName),
				Type:    authErrorType,
			}
		}

		identity, err := verifier.Verify(c.UserContext(), credential)
		if err != nil {
			return &types.CustomError{
				Code:    fiber.StatusForbidden,
				Message: fmt.Sprintf("Invalid session: %v", err),
				Type:    authErrorType,
			}
		}

		c.Locals("user", identity)
		return c.Next()
	}
}

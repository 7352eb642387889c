package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// DefaultAPIVersion selects the status-code contract when X-Api-Version is absent
const DefaultAPIVersion = "2.0.0"

// VersionMiddleware parses the X-Api-Version header and stores it in context
func VersionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		version := c.Get("X-Api-Version", DefaultAPIVersion)

		// Support version aliases
		switch version {
		case "1", "1.0":
			version = "1.0.0"
		case "2", "2.0":
			version = "2.0.0"
		}

		c.Locals("apiVersion", version)
		c.Set("X-Api-Version", version)

		return c.Next()
	}
}

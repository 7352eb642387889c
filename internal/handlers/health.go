package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/booksdb/internal/config"
	"github.com/localnerve/booksdb/internal/services"
	"github.com/localnerve/booksdb/internal/storage"
)

// HealthHandler reports dependency health
type HealthHandler struct {
	Config *config.Config
	Store  storage.Storage
}

// Health handles GET /health
// @Summary Service health
// @Tags Health
// @Produce json
// @Success 200 {object} services.HealthCheckResult
// @Failure 503 {object} services.HealthCheckResult
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	result := services.HealthCheck(c.UserContext(), h.Config, h.Store)
	status := fiber.StatusOK
	if !result.Healthy() {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(result)
}

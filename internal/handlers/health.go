package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"charactermemory/internal/mood"
)

// HealthHandler reports liveness and the mood cache's Redis connectivity.
type HealthHandler struct {
	moodStore *mood.Store
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(moodStore *mood.Store) *HealthHandler {
	return &HealthHandler{moodStore: moodStore}
}

// Handle runs GET /health.
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":        "healthy",
		"redis_healthy": h.moodStore.Healthy(),
		"timestamp":     time.Now().Format(time.RFC3339),
	})
}

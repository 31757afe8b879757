package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"charactermemory/internal/memory"
	"charactermemory/internal/models"
	"charactermemory/internal/storage"
)

// MemoryHandler exposes the memory-summary and memory-CRUD endpoints.
type MemoryHandler struct {
	memEngine *memory.Engine
	registry  *storage.Registry
}

// NewMemoryHandler constructs a MemoryHandler.
func NewMemoryHandler(memEngine *memory.Engine, registry *storage.Registry) *MemoryHandler {
	return &MemoryHandler{memEngine: memEngine, registry: registry}
}

// Summary runs GET /characters/:id/memory-summary/:userId.
func (h *MemoryHandler) Summary(c *fiber.Ctx) error {
	characterID := c.Params("id")
	userID := c.Params("userId")

	text, err := h.memEngine.Summary(c.Context(), characterID, userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to build memory summary"})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(text)
}

// List runs GET /characters/:id/memories/:userId.
func (h *MemoryHandler) List(c *fiber.Ctx) error {
	store, err := h.registry.Open(c.Params("id"), c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to open memory store"})
	}

	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	entries, err := store.QueryRecent(c.Context(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list memories"})
	}

	out := make([]fiber.Map, 0, len(entries))
	for _, m := range entries {
		out = append(out, memoryEntryJSON(m))
	}
	return c.JSON(fiber.Map{"memories": out})
}

type createMemoryBody struct {
	ConversationID string  `json:"conversation_id"`
	Content        string  `json:"content"`
	Importance     float64 `json:"importance"`
}

// Create runs POST /characters/:id/memories/:userId.
func (h *MemoryHandler) Create(c *fiber.Ctx) error {
	characterID := c.Params("id")
	userID := c.Params("userId")

	var body createMemoryBody
	if err := c.BodyParser(&body); err != nil || body.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "content is required"})
	}
	if body.ConversationID == "" {
		body.ConversationID = "manual"
	}
	importance := body.Importance
	if importance <= 0 {
		importance = memory.ImportanceScore(body.Content, 0)
	}

	store, err := h.registry.Open(characterID, userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to open memory store"})
	}

	now := time.Now()
	entry := &models.MemoryEntry{
		ID:             uuid.NewString(),
		CharacterID:    characterID,
		UserID:         userID,
		ConversationID: body.ConversationID,
		Content:        body.Content,
		MemoryType:     models.MemoryTypeBuffer,
		Importance:     importance,
		ArchiveStatus:  models.ArchiveStatusActive,
		CreatedAt:      now,
		LastAccessed:   now,
	}
	if err := store.InsertMemory(c.Context(), entry); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create memory"})
	}
	return c.Status(fiber.StatusCreated).JSON(memoryEntryJSON(entry))
}

type updateMemoryBody struct {
	Content    string   `json:"content"`
	Importance *float64 `json:"importance"`
}

// Update runs PUT /characters/:id/memories/:userId/:memId.
func (h *MemoryHandler) Update(c *fiber.Ctx) error {
	store, err := h.registry.Open(c.Params("id"), c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to open memory store"})
	}

	entry, err := store.GetMemory(c.Context(), c.Params("memId"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "memory not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load memory"})
	}

	var body updateMemoryBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.Content != "" {
		entry.Content = body.Content
	}
	if body.Importance != nil {
		entry.Importance = *body.Importance
	}

	if err := store.UpdateMemory(c.Context(), entry); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update memory"})
	}
	return c.JSON(memoryEntryJSON(entry))
}

// Delete runs DELETE /characters/:id/memories/:userId/:memId.
func (h *MemoryHandler) Delete(c *fiber.Ctx) error {
	store, err := h.registry.Open(c.Params("id"), c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to open memory store"})
	}
	if err := store.DeleteMemory(c.Context(), c.Params("memId")); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete memory"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Package handlers is the thin fiber HTTP surface (C9): it translates
// requests into orchestrator/engine calls and results into JSON, with no
// business logic of its own, following the teacher's handler layer
// (internal/handlers/memory_handler.go, health.go).
package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"charactermemory/internal/orchestrator"
)

// ChatHandler exposes the single-turn conversation endpoint.
type ChatHandler struct {
	orch *orchestrator.Orchestrator
}

// NewChatHandler constructs a ChatHandler.
func NewChatHandler(orch *orchestrator.Orchestrator) *ChatHandler {
	return &ChatHandler{orch: orch}
}

type chatRequestBody struct {
	CharacterID    string `json:"character_id"`
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

// Handle runs POST /chat.
func (h *ChatHandler) Handle(c *fiber.Ctx) error {
	var body chatRequestBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.CharacterID == "" || body.UserID == "" || body.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "character_id, user_id, and message are required"})
	}

	result, err := h.orch.Handle(c.Context(), orchestrator.ChatRequest{
		CharacterID:    body.CharacterID,
		UserID:         body.UserID,
		ConversationID: body.ConversationID,
		Message:        body.Message,
	})
	if err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "character not found"})
		case errors.Is(err, orchestrator.ErrBusy):
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "a turn for this character and user is already in progress"})
		case errors.Is(err, orchestrator.ErrRateLimited):
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "messages are arriving too quickly, please slow down"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to process message"})
		}
	}

	resp := fiber.Map{
		"response":       result.Response,
		"character_name": result.CharacterName,
	}
	if result.ClarificationRequired {
		resp["clarification_required"] = true
		resp["ambiguous_references"] = result.AmbiguousReferences
		return c.JSON(resp)
	}

	if result.Mood != nil {
		resp["mood"] = fiber.Map{
			"current_mood":   result.Mood.CurrentMood,
			"mood_intensity": result.Mood.MoodIntensity,
		}
	}
	if result.Relationship != nil {
		resp["relationship"] = relationshipStateJSON(result.Relationship)
		resp["bonuses"] = fiber.Map{
			"leveled_up": result.LeveledUp,
		}
	}
	if result.Reward != nil {
		resp["reward"] = rewardJSON(result.Reward)
	}

	return c.JSON(resp)
}

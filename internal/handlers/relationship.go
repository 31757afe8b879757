package handlers

import (
	"github.com/gofiber/fiber/v2"

	"charactermemory/internal/relationship"
)

// RelationshipHandler exposes relationship state, leaderboard, and reward
// endpoints.
type RelationshipHandler struct {
	engine *relationship.Engine
}

// NewRelationshipHandler constructs a RelationshipHandler.
func NewRelationshipHandler(engine *relationship.Engine) *RelationshipHandler {
	return &RelationshipHandler{engine: engine}
}

// GetState runs GET /relationship/:userId/:characterId.
func (h *RelationshipHandler) GetState(c *fiber.Ctx) error {
	state, err := h.engine.GetState(c.Context(), c.Params("userId"), c.Params("characterId"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load relationship state"})
	}
	return c.JSON(relationshipStateJSON(state))
}

// Leaderboard runs GET /leaderboard.
func (h *RelationshipHandler) Leaderboard(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	states, err := h.engine.GetLeaderboard(c.Context(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load leaderboard"})
	}

	out := make([]fiber.Map, 0, len(states))
	for _, s := range states {
		entry := relationshipStateJSON(s)
		entry["user_id"] = s.UserID
		entry["character_id"] = s.CharacterID
		out = append(out, entry)
	}
	return c.JSON(fiber.Map{"leaderboard": out})
}

// NFTRewards runs GET /nft-rewards.
func (h *RelationshipHandler) NFTRewards(c *fiber.Ctx) error {
	status, err := h.engine.GetNFTRewardsStatus(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load reward status"})
	}

	recent := make([]fiber.Map, 0, len(status.Recent))
	for _, r := range status.Recent {
		recent = append(recent, rewardJSON(r))
	}
	return c.JSON(fiber.Map{
		"issued":    status.Issued,
		"remaining": status.Remaining,
		"recent":    recent,
	})
}

type setWalletBody struct {
	UserID        string `json:"user_id"`
	CharacterID   string `json:"character_id"`
	WalletAddress string `json:"wallet_address"`
}

// SetWallet runs POST /set-wallet.
func (h *RelationshipHandler) SetWallet(c *fiber.Ctx) error {
	var body setWalletBody
	if err := c.BodyParser(&body); err != nil || body.UserID == "" || body.CharacterID == "" || body.WalletAddress == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id, character_id, and wallet_address are required"})
	}

	if err := h.engine.SetWallet(c.Context(), body.UserID, body.CharacterID, body.WalletAddress); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no reward on record for this pair"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
